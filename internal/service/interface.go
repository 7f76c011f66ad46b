package service

import (
	"context"
	"time"

	"draftly/internal/model"
)

type AuthService interface {
	GetOrCreateUser(ctx context.Context, googleID, email, name, accessToken, refreshToken string, tokenExpiry time.Time) (*model.User, error)
	GetUser(ctx context.Context, userID string) (*model.User, error)
}

// DraftService is the reply draft lifecycle. Every operation reports its
// outcome through the returned result; none of them return an error.
type DraftService interface {
	GenerateReplyDraft(ctx context.Context, userID string, req *model.GenerateRequest) *model.ReplyDraftResult
	RegenerateReplyDraft(ctx context.Context, userID, threadID string, tone model.Tone) *model.ReplyDraftResult
	ApproveReplyDraft(ctx context.Context, userID, threadID, replyMessage string) *model.ActionResult
	RejectReplyDraft(ctx context.Context, userID, threadID string) *model.ActionResult
	GetDraftBody(ctx context.Context, threadID string) *model.DraftBodyResult
}

type InboxService interface {
	ListInbox(ctx context.Context, userID string) ([]*model.MessageData, error)
	GetThread(ctx context.Context, userID, threadID string) (*model.ThreadData, error)
}

// MailClient interface for interacting with the user's mailbox. Failures
// carrying an HTTP status are returned as *apperror.RemoteError.
type MailClient interface {
	FetchMessage(ctx context.Context, userID, messageID string) (*model.MessageData, error)
	FetchThread(ctx context.Context, userID, threadID string) (*model.ThreadData, error)
	ListSentBodies(ctx context.Context, userID string, max int) ([]string, error)
	ListInbox(ctx context.Context, userID string, max int) ([]*model.MessageData, error)
	CreateDraft(ctx context.Context, userID string, reply *model.OutgoingReply) (string, error)
	UpdateDraft(ctx context.Context, userID, remoteDraftID string, reply *model.OutgoingReply) (string, error)
	// DeleteDraft succeeds when the draft is already gone.
	DeleteDraft(ctx context.Context, userID, remoteDraftID string) error
	SendReply(ctx context.Context, userID string, reply *model.OutgoingReply) error
}

// CompletionClient interface for interacting with AI services
type CompletionClient interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// EventPublisher pushes lifecycle notifications to a user's live sessions.
type EventPublisher interface {
	BroadcastToUser(userID string, eventType string, data interface{})
}
