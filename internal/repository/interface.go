package repository

import (
	"context"
	"errors"

	"draftly/internal/model"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDraftNotFound  = errors.New("reply draft not found")
	ErrStatusConflict = errors.New("reply draft status changed concurrently")
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id string) error
}

// DraftRepository persists reply drafts. Lookups only see records that have
// not been deleted, newest CreatedAt first.
type DraftRepository interface {
	// Save inserts or replaces the draft, assigning an ID when empty.
	Save(ctx context.Context, draft *model.ReplyDraft) error
	// CompareAndSave stores the draft only if the persisted status still
	// equals expected, returning ErrStatusConflict otherwise.
	CompareAndSave(ctx context.Context, draft *model.ReplyDraft, expected model.DraftStatus) error
	FindLatestByThread(ctx context.Context, threadID string) (*model.ReplyDraft, error)
	FindLatestByThreadAndStatus(ctx context.Context, threadID string, status model.DraftStatus) (*model.ReplyDraft, error)
	// Delete hides the draft from all lookups.
	Delete(ctx context.Context, id string) error
}
