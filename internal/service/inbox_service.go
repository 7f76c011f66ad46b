package service

import (
	"context"
	"fmt"
	"strings"

	"draftly/internal/apperror"
	"draftly/internal/logger"
	"draftly/internal/model"
)

type inboxService struct {
	mailClient MailClient
	inboxFetch int
	logger     *logger.Logger
}

func NewInboxService(mailClient MailClient, inboxFetch int, logger *logger.Logger) InboxService {
	return &inboxService{
		mailClient: mailClient,
		inboxFetch: inboxFetch,
		logger:     logger,
	}
}

func (s *inboxService) ListInbox(ctx context.Context, userID string) ([]*model.MessageData, error) {
	messages, err := s.mailClient.ListInbox(ctx, userID, s.inboxFetch)
	if err != nil {
		s.logger.Error("Failed to list inbox:", err)
		return nil, fmt.Errorf("failed to list inbox: %w", err)
	}

	s.logger.Infof("Listed %d inbox messages for user %s", len(messages), userID)
	return messages, nil
}

func (s *inboxService) GetThread(ctx context.Context, userID, threadID string) (*model.ThreadData, error) {
	if strings.TrimSpace(threadID) == "" {
		return nil, apperror.Validation("threadId cannot be empty")
	}

	thread, err := s.mailClient.FetchThread(ctx, userID, threadID)
	if err != nil {
		if apperror.IsRemoteNotFound(err) {
			return nil, apperror.NotFound("Thread not found: %s", threadID)
		}
		s.logger.Error("Failed to fetch thread:", err)
		return nil, fmt.Errorf("failed to fetch thread: %w", err)
	}
	return thread, nil
}
