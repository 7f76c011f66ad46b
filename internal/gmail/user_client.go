package gmail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"draftly/internal/apperror"
	"draftly/internal/logger"
	"draftly/internal/model"
	"draftly/internal/repository"
	"draftly/internal/service"
)

// OAuthConfig returns the Google OAuth client used to refresh stored user
// tokens. The scopes match the ones requested at login.
func OAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       Scopes(),
		Endpoint:     google.Endpoint,
	}
}

func Scopes() []string {
	return []string{
		"email",
		"profile",
		gmailapi.GmailReadonlyScope,
		gmailapi.GmailComposeScope,
		gmailapi.GmailSendScope,
	}
}

// UserMailClient resolves the caller's stored OAuth token and opens a
// Mailbox for every call.
type UserMailClient struct {
	userRepo    repository.UserRepository
	oauthConfig *oauth2.Config
	logger      *logger.Logger
	opts        []option.ClientOption
}

// NewUserMailClient builds the per-user client. When oauthConfig is nil the
// stored access token is used as-is without refresh. Extra options are
// appended to every Gmail service, e.g. option.WithEndpoint in tests.
func NewUserMailClient(userRepo repository.UserRepository, oauthConfig *oauth2.Config, logger *logger.Logger, opts ...option.ClientOption) service.MailClient {
	return &UserMailClient{
		userRepo:    userRepo,
		oauthConfig: oauthConfig,
		logger:      logger,
		opts:        opts,
	}
}

func (u *UserMailClient) mailbox(ctx context.Context, userID string) (*Mailbox, error) {
	user, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.NewRemoteError(serviceName, http.StatusUnauthorized, "load mailbox", "", err)
		}
		return nil, fmt.Errorf("failed to load user %s: %w", userID, err)
	}
	if user.AccessToken == "" {
		return nil, apperror.NewRemoteError(serviceName, http.StatusUnauthorized, "load mailbox", "", errors.New("access token not available"))
	}

	token := &oauth2.Token{
		AccessToken:  user.AccessToken,
		RefreshToken: user.RefreshToken,
		Expiry:       user.TokenExpiry,
		TokenType:    "Bearer",
	}
	var source oauth2.TokenSource
	if u.oauthConfig != nil && user.RefreshToken != "" {
		source = &persistingTokenSource{
			base:     u.oauthConfig.TokenSource(ctx, token),
			ctx:      ctx,
			user:     *user,
			userRepo: u.userRepo,
			logger:   u.logger,
		}
	} else {
		source = oauth2.StaticTokenSource(token)
	}

	opts := append([]option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, source))}, u.opts...)
	return NewMailbox(ctx, u.logger, opts...)
}

// persistingTokenSource stores refreshed tokens on the user so the next
// call starts from a valid access token.
type persistingTokenSource struct {
	base     oauth2.TokenSource
	ctx      context.Context
	userRepo repository.UserRepository
	logger   *logger.Logger

	mu   sync.Mutex
	user model.User
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if token.AccessToken == p.user.AccessToken && token.Expiry.Equal(p.user.TokenExpiry) {
		return token, nil
	}

	updated := p.user
	updated.AccessToken = token.AccessToken
	updated.TokenExpiry = token.Expiry
	if token.RefreshToken != "" {
		updated.RefreshToken = token.RefreshToken
	}
	updated.UpdatedAt = time.Now()
	if err := p.userRepo.Update(p.ctx, &updated); err != nil {
		p.logger.Warnf("Failed to store refreshed token for user %s: %v", updated.ID, err)
	} else {
		p.logger.Debugf("Stored refreshed token for user %s", updated.ID)
	}
	p.user = updated
	return token, nil
}

func (u *UserMailClient) FetchMessage(ctx context.Context, userID, messageID string) (*model.MessageData, error) {
	mb, err := u.mailbox(ctx, userID)
	if err != nil {
		return nil, err
	}
	return mb.FetchMessage(ctx, messageID)
}

func (u *UserMailClient) FetchThread(ctx context.Context, userID, threadID string) (*model.ThreadData, error) {
	mb, err := u.mailbox(ctx, userID)
	if err != nil {
		return nil, err
	}
	return mb.FetchThread(ctx, threadID)
}

func (u *UserMailClient) ListSentBodies(ctx context.Context, userID string, max int) ([]string, error) {
	mb, err := u.mailbox(ctx, userID)
	if err != nil {
		return nil, err
	}
	return mb.ListSentBodies(ctx, max)
}

func (u *UserMailClient) ListInbox(ctx context.Context, userID string, max int) ([]*model.MessageData, error) {
	mb, err := u.mailbox(ctx, userID)
	if err != nil {
		return nil, err
	}
	return mb.ListInbox(ctx, max)
}

func (u *UserMailClient) CreateDraft(ctx context.Context, userID string, reply *model.OutgoingReply) (string, error) {
	mb, err := u.mailbox(ctx, userID)
	if err != nil {
		return "", err
	}
	return mb.CreateDraft(ctx, reply)
}

func (u *UserMailClient) UpdateDraft(ctx context.Context, userID, remoteDraftID string, reply *model.OutgoingReply) (string, error) {
	mb, err := u.mailbox(ctx, userID)
	if err != nil {
		return "", err
	}
	return mb.UpdateDraft(ctx, remoteDraftID, reply)
}

func (u *UserMailClient) DeleteDraft(ctx context.Context, userID, remoteDraftID string) error {
	mb, err := u.mailbox(ctx, userID)
	if err != nil {
		return err
	}
	return mb.DeleteDraft(ctx, remoteDraftID)
}

func (u *UserMailClient) SendReply(ctx context.Context, userID string, reply *model.OutgoingReply) error {
	mb, err := u.mailbox(ctx, userID)
	if err != nil {
		return err
	}
	return mb.SendReply(ctx, reply)
}
