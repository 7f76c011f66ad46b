package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"draftly/internal/model"
	"draftly/internal/repository"
)

type PostgresDraftRepository struct {
	db *sql.DB
}

func NewPostgresDraftRepository(db *sql.DB) *PostgresDraftRepository {
	return &PostgresDraftRepository{db: db}
}

const draftColumns = `id, thread_id, message_id, from_email, to_email, reply_message, status, remote_draft_id, deleted, created_at, updated_at`

func (r *PostgresDraftRepository) Save(ctx context.Context, draft *model.ReplyDraft) error {
	if draft.ID == "" {
		draft.ID = uuid.New().String()
	}
	query := `
		INSERT INTO reply_drafts (` + draftColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			reply_message = EXCLUDED.reply_message,
			status = EXCLUDED.status,
			remote_draft_id = EXCLUDED.remote_draft_id,
			deleted = EXCLUDED.deleted,
			updated_at = EXCLUDED.updated_at`
	_, err := r.db.ExecContext(ctx, query,
		draft.ID, draft.ThreadID, draft.MessageID, draft.FromEmail, draft.ToEmail,
		draft.ReplyMessage, string(draft.Status), draft.RemoteDraftID, draft.Deleted,
		draft.CreatedAt, draft.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save reply draft: %w", err)
	}
	return nil
}

func (r *PostgresDraftRepository) CompareAndSave(ctx context.Context, draft *model.ReplyDraft, expected model.DraftStatus) error {
	query := `
		UPDATE reply_drafts SET reply_message=$1, status=$2, remote_draft_id=$3, updated_at=$4
		WHERE id=$5 AND status=$6 AND NOT deleted`
	res, err := r.db.ExecContext(ctx, query,
		draft.ReplyMessage, string(draft.Status), draft.RemoteDraftID, draft.UpdatedAt,
		draft.ID, string(expected))
	if err != nil {
		return fmt.Errorf("failed to update reply draft: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update reply draft: %w", err)
	}
	if affected == 1 {
		return nil
	}

	var exists bool
	err = r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM reply_drafts WHERE id=$1 AND NOT deleted)`, draft.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check reply draft: %w", err)
	}
	if !exists {
		return repository.ErrDraftNotFound
	}
	return repository.ErrStatusConflict
}

func (r *PostgresDraftRepository) FindLatestByThread(ctx context.Context, threadID string) (*model.ReplyDraft, error) {
	query := `SELECT ` + draftColumns + ` FROM reply_drafts
		WHERE thread_id = $1 AND NOT deleted
		ORDER BY created_at DESC, seq DESC LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, threadID))
}

func (r *PostgresDraftRepository) FindLatestByThreadAndStatus(ctx context.Context, threadID string, status model.DraftStatus) (*model.ReplyDraft, error) {
	query := `SELECT ` + draftColumns + ` FROM reply_drafts
		WHERE thread_id = $1 AND status = $2 AND NOT deleted
		ORDER BY created_at DESC, seq DESC LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, threadID, string(status)))
}

func (r *PostgresDraftRepository) scanOne(row *sql.Row) (*model.ReplyDraft, error) {
	draft := &model.ReplyDraft{}
	var status string
	var fromEmail, toEmail, remoteDraftID sql.NullString
	err := row.Scan(
		&draft.ID, &draft.ThreadID, &draft.MessageID, &fromEmail, &toEmail,
		&draft.ReplyMessage, &status, &remoteDraftID, &draft.Deleted,
		&draft.CreatedAt, &draft.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrDraftNotFound
		}
		return nil, fmt.Errorf("failed to load reply draft: %w", err)
	}
	if draft.Status, err = model.ParseDraftStatus(status); err != nil {
		return nil, err
	}
	draft.FromEmail = fromEmail.String
	draft.ToEmail = toEmail.String
	draft.RemoteDraftID = remoteDraftID.String
	return draft, nil
}

func (r *PostgresDraftRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE reply_drafts SET deleted = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete reply draft: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.ErrDraftNotFound
	}
	return nil
}
