package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"draftly/internal/logger"
	"draftly/internal/model"
	"draftly/internal/repository"
)

type authService struct {
	userRepo repository.UserRepository
	logger   *logger.Logger
}

func NewAuthService(userRepo repository.UserRepository, logger *logger.Logger) AuthService {
	return &authService{
		userRepo: userRepo,
		logger:   logger,
	}
}

func (s *authService) GetOrCreateUser(ctx context.Context, googleID, email, name, accessToken, refreshToken string, tokenExpiry time.Time) (*model.User, error) {
	existingUser, err := s.userRepo.FindByGoogleID(ctx, googleID)
	if errors.Is(err, repository.ErrUserNotFound) {
		newUser := model.NewUser(googleID, email, name, accessToken, refreshToken, tokenExpiry)
		if err := s.userRepo.Create(ctx, newUser); err != nil {
			s.logger.Error("Failed to create user:", err)
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		s.logger.Info("Created new user:", newUser.ID)
		return newUser, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	// Google omits the refresh token on repeat consent; keep the stored one
	if accessToken != "" {
		existingUser.AccessToken = accessToken
		existingUser.TokenExpiry = tokenExpiry
	}
	if refreshToken != "" {
		existingUser.RefreshToken = refreshToken
	}
	existingUser.Email = email
	existingUser.Name = name

	if err := s.userRepo.Update(ctx, existingUser); err != nil {
		s.logger.Error("Failed to update user:", err)
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	s.logger.Info("Updated existing user:", existingUser.ID)

	return existingUser, nil
}

func (s *authService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}
