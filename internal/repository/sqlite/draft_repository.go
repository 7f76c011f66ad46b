package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"draftly/internal/model"
	"draftly/internal/repository"
)

type draftRow struct {
	Seq           int64  `db:"seq"`
	ID            string `db:"id"`
	ThreadID      string `db:"thread_id"`
	MessageID     string `db:"message_id"`
	FromEmail     string `db:"from_email"`
	ToEmail       string `db:"to_email"`
	ReplyMessage  string `db:"reply_message"`
	Status        string `db:"status"`
	RemoteDraftID string `db:"remote_draft_id"`
	Deleted       bool   `db:"deleted"`
	CreatedAt     int64  `db:"created_at"`
	UpdatedAt     int64  `db:"updated_at"`
}

func (r draftRow) toModel() (*model.ReplyDraft, error) {
	status, err := model.ParseDraftStatus(r.Status)
	if err != nil {
		return nil, err
	}
	return &model.ReplyDraft{
		ID:            r.ID,
		ThreadID:      r.ThreadID,
		MessageID:     r.MessageID,
		FromEmail:     r.FromEmail,
		ToEmail:       r.ToEmail,
		ReplyMessage:  r.ReplyMessage,
		Status:        status,
		RemoteDraftID: r.RemoteDraftID,
		Deleted:       r.Deleted,
		CreatedAt:     fromUnix(r.CreatedAt),
		UpdatedAt:     fromUnix(r.UpdatedAt),
	}, nil
}

type DraftRepository struct {
	db *sqlx.DB
}

func NewDraftRepository(db *sqlx.DB) *DraftRepository {
	return &DraftRepository{db: db}
}

func (r *DraftRepository) Save(ctx context.Context, draft *model.ReplyDraft) error {
	if draft.ID == "" {
		draft.ID = uuid.New().String()
	}
	const query = `
		INSERT INTO reply_drafts (
			id, thread_id, message_id, from_email, to_email, reply_message,
			status, remote_draft_id, deleted, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			reply_message = excluded.reply_message,
			status = excluded.status,
			remote_draft_id = excluded.remote_draft_id,
			deleted = excluded.deleted,
			updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query,
		draft.ID, draft.ThreadID, draft.MessageID, draft.FromEmail, draft.ToEmail, draft.ReplyMessage,
		string(draft.Status), draft.RemoteDraftID, draft.Deleted, toUnix(draft.CreatedAt), toUnix(draft.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save reply draft: %w", err)
	}
	return nil
}

func (r *DraftRepository) CompareAndSave(ctx context.Context, draft *model.ReplyDraft, expected model.DraftStatus) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.GetContext(ctx, &current, `SELECT status FROM reply_drafts WHERE id = ? AND deleted = 0`, draft.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrDraftNotFound
		}
		return fmt.Errorf("failed to read reply draft status: %w", err)
	}
	if current != string(expected) {
		return repository.ErrStatusConflict
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE reply_drafts SET reply_message=?, status=?, remote_draft_id=?, updated_at=? WHERE id=?`,
		draft.ReplyMessage, string(draft.Status), draft.RemoteDraftID, toUnix(draft.UpdatedAt), draft.ID)
	if err != nil {
		return fmt.Errorf("failed to update reply draft: %w", err)
	}
	return tx.Commit()
}

func (r *DraftRepository) FindLatestByThread(ctx context.Context, threadID string) (*model.ReplyDraft, error) {
	return r.findLatest(ctx, `
		SELECT * FROM reply_drafts WHERE thread_id = ? AND deleted = 0
		ORDER BY created_at DESC, seq DESC LIMIT 1`, threadID)
}

func (r *DraftRepository) FindLatestByThreadAndStatus(ctx context.Context, threadID string, status model.DraftStatus) (*model.ReplyDraft, error) {
	return r.findLatest(ctx, `
		SELECT * FROM reply_drafts WHERE thread_id = ? AND status = ? AND deleted = 0
		ORDER BY created_at DESC, seq DESC LIMIT 1`, threadID, string(status))
}

func (r *DraftRepository) findLatest(ctx context.Context, query string, args ...interface{}) (*model.ReplyDraft, error) {
	var row draftRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrDraftNotFound
		}
		return nil, fmt.Errorf("failed to load reply draft: %w", err)
	}
	return row.toModel()
}

func (r *DraftRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE reply_drafts SET deleted = 1, updated_at = ? WHERE id = ?`,
		toUnix(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to delete reply draft: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.ErrDraftNotFound
	}
	return nil
}
