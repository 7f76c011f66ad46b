package handler

import (
	"fmt"
	"net/http"

	"draftly/internal/config"
	"draftly/internal/gmail"
	"draftly/internal/model"
	"draftly/internal/service"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
)

// CurrentUserProvider resolves the signed-in user of a request.
type CurrentUserProvider interface {
	GetCurrentUser(c echo.Context) (*model.User, error)
}

type AuthHandler struct {
	authService service.AuthService
	store       sessions.Store
	config      *config.Config
	logger      echo.Logger
}

func NewAuthHandler(authService service.AuthService, store sessions.Store, config *config.Config, logger echo.Logger) *AuthHandler {
	gothic.Store = store

	provider := google.New(
		config.GoogleClientID,
		config.GoogleClientSecret,
		config.BaseURL+"/auth/google/callback",
		gmail.Scopes()...,
	)
	// consent forces Google to issue a refresh token on every login
	provider.SetPrompt("consent")
	goth.UseProviders(provider)

	return &AuthHandler{
		authService: authService,
		store:       store,
		config:      config,
		logger:      logger,
	}
}

// withProvider copies the :provider path param into the query, where gothic looks for it
func withProvider(c echo.Context) *http.Request {
	req := c.Request()
	q := req.URL.Query()
	q.Set("provider", c.Param("provider"))
	req.URL.RawQuery = q.Encode()
	return req
}

// BeginAuthHandler initiates the OAuth flow
func (h *AuthHandler) BeginAuthHandler(c echo.Context) error {
	if c.Param("provider") != "google" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid provider",
		})
	}

	gothic.BeginAuthHandler(c.Response(), withProvider(c))
	return nil
}

// CallbackHandler handles the OAuth callback
func (h *AuthHandler) CallbackHandler(c echo.Context) error {
	req := withProvider(c)

	googleUser, err := gothic.CompleteUserAuth(c.Response(), req)
	if err != nil {
		h.logger.Error("Failed to complete user auth:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Authentication failed",
		})
	}

	user, err := h.authService.GetOrCreateUser(
		req.Context(),
		googleUser.Provider+"_"+googleUser.UserID,
		googleUser.Email,
		googleUser.Name,
		googleUser.AccessToken,
		googleUser.RefreshToken,
		googleUser.ExpiresAt,
	)
	if err != nil {
		h.logger.Error("Failed to get or create user:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to process user",
		})
	}

	session, _ := h.store.Get(req, sessionName)
	session.Values["user_id"] = user.ID
	if err := session.Save(req, c.Response()); err != nil {
		h.logger.Error("Failed to save session:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to save session",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"userId": user.ID,
		"email":  user.Email,
		"name":   user.Name,
	})
}

// LogoutHandler clears both the gothic and the app session
func (h *AuthHandler) LogoutHandler(c echo.Context) error {
	req := c.Request()
	if err := gothic.Logout(c.Response(), req); err != nil {
		h.logger.Warn("Failed to clear OAuth session:", err)
	}

	session, _ := h.store.Get(req, sessionName)
	delete(session.Values, "user_id")
	if session.Options != nil {
		session.Options.MaxAge = -1
	}
	if err := session.Save(req, c.Response()); err != nil {
		h.logger.Error("Failed to clear session:", err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Logged out",
	})
}

// GetCurrentUser returns the current authenticated user
func (h *AuthHandler) GetCurrentUser(c echo.Context) (*model.User, error) {
	session, err := h.store.Get(c.Request(), sessionName)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	userID, ok := session.Values["user_id"].(string)
	if !ok || userID == "" {
		return nil, fmt.Errorf("user not authenticated")
	}

	user, err := h.authService.GetUser(c.Request().Context(), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user from database: %w", err)
	}

	return user, nil
}
