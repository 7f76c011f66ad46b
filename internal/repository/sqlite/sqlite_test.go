package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"draftly/internal/model"
	"draftly/internal/repository"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "draftly.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draftly.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()

	var version int
	require.NoError(t, db.Get(&version, "SELECT MAX(version) FROM schema_version"))
	assert.Equal(t, 1, version)
}

func TestDraftLifecycle(t *testing.T) {
	repo := NewDraftRepository(openTestDB(t))
	ctx := context.Background()
	base := time.Now()

	first := model.NewReplyDraft("t1", "m1", "me@x.com", "you@x.com", "first", "r1")
	first.CreatedAt = base
	second := model.NewReplyDraft("t1", "m1", "me@x.com", "you@x.com", "second", "r2")
	second.CreatedAt = base.Add(time.Second)
	require.NoError(t, repo.Save(ctx, first))
	require.NoError(t, repo.Save(ctx, second))

	latest, err := repo.FindLatestByThread(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, "you@x.com", latest.ToEmail)
	assert.Equal(t, "r2", latest.RemoteDraftID)
	assert.Equal(t, model.DraftStatusGenerated, latest.Status)
	assert.Equal(t, second.CreatedAt.UnixNano(), latest.CreatedAt.UnixNano())

	latest.ReplyMessage = "edited"
	require.NoError(t, latest.Apply(model.EventApprove))
	require.NoError(t, repo.CompareAndSave(ctx, latest, model.DraftStatusGenerated))
	assert.ErrorIs(t, repo.CompareAndSave(ctx, latest, model.DraftStatusGenerated), repository.ErrStatusConflict)

	sent, err := repo.FindLatestByThreadAndStatus(ctx, "t1", model.DraftStatusSent)
	require.NoError(t, err)
	assert.Equal(t, "edited", sent.ReplyMessage)

	generated, err := repo.FindLatestByThreadAndStatus(ctx, "t1", model.DraftStatusGenerated)
	require.NoError(t, err)
	assert.Equal(t, first.ID, generated.ID)

	require.NoError(t, repo.Delete(ctx, first.ID))
	_, err = repo.FindLatestByThreadAndStatus(ctx, "t1", model.DraftStatusGenerated)
	assert.ErrorIs(t, err, repository.ErrDraftNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, "missing"), repository.ErrDraftNotFound)
}

func TestDraftSameTimestampUsesInsertionOrder(t *testing.T) {
	repo := NewDraftRepository(openTestDB(t))
	ctx := context.Background()
	now := time.Now()

	a := model.NewReplyDraft("t1", "m1", "", "", "a", "")
	a.CreatedAt = now
	b := model.NewReplyDraft("t1", "m1", "", "", "b", "")
	b.CreatedAt = now
	require.NoError(t, repo.Save(ctx, a))
	require.NoError(t, repo.Save(ctx, b))

	latest, err := repo.FindLatestByThread(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "b", latest.ReplyMessage)
}

func TestUserRepository(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	ctx := context.Background()

	user := model.NewUser("g1", "a@x.com", "Ada", "tok", "ref", time.Now().Add(time.Hour))
	require.NoError(t, repo.Create(ctx, user))
	originalID := user.ID

	again := model.NewUser("g1", "a@x.com", "Ada L", "tok2", "ref", time.Now())
	require.NoError(t, repo.Create(ctx, again))
	assert.Equal(t, originalID, again.ID)

	found, err := repo.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Ada L", found.Name)
	assert.Equal(t, "tok2", found.AccessToken)

	found.Name = "Ada Lovelace"
	require.NoError(t, repo.Update(ctx, found))
	byID, err := repo.FindByID(ctx, originalID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", byID.Name)

	require.NoError(t, repo.Delete(ctx, originalID))
	_, err = repo.FindByGoogleID(ctx, "g1")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestDraftDeleteStampsUpdatedAt(t *testing.T) {
	db := openTestDB(t)
	repo := NewDraftRepository(db)
	ctx := context.Background()

	draft := model.NewReplyDraft("t1", "m1", "me@x.com", "you@x.com", "hello", "r1")
	draft.UpdatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, repo.Save(ctx, draft))

	before := time.Now()
	require.NoError(t, repo.Delete(ctx, draft.ID))

	var row draftRow
	require.NoError(t, db.GetContext(ctx, &row, `SELECT * FROM reply_drafts WHERE id = ?`, draft.ID))
	assert.True(t, row.Deleted)
	assert.False(t, fromUnix(row.UpdatedAt).Before(before))
}
