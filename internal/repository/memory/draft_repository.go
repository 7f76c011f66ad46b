package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"draftly/internal/model"
	"draftly/internal/repository"
)

type storedDraft struct {
	draft model.ReplyDraft
	seq   uint64
}

// InMemoryDraftRepository keeps copies of drafts so callers never share
// state with the store. seq breaks CreatedAt ties in insertion order.
type InMemoryDraftRepository struct {
	drafts map[string]*storedDraft
	seq    uint64
	mutex  sync.RWMutex
}

func NewInMemoryDraftRepository() *InMemoryDraftRepository {
	return &InMemoryDraftRepository{
		drafts: make(map[string]*storedDraft),
	}
}

func (r *InMemoryDraftRepository) Save(ctx context.Context, draft *model.ReplyDraft) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.put(draft)
	return nil
}

func (r *InMemoryDraftRepository) CompareAndSave(ctx context.Context, draft *model.ReplyDraft, expected model.DraftStatus) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	stored, exists := r.drafts[draft.ID]
	if !exists || stored.draft.Deleted {
		return repository.ErrDraftNotFound
	}
	if stored.draft.Status != expected {
		return repository.ErrStatusConflict
	}
	r.put(draft)
	return nil
}

func (r *InMemoryDraftRepository) put(draft *model.ReplyDraft) {
	if draft.ID == "" {
		draft.ID = uuid.New().String()
	}
	if stored, exists := r.drafts[draft.ID]; exists {
		stored.draft = *draft
		return
	}
	r.seq++
	r.drafts[draft.ID] = &storedDraft{draft: *draft, seq: r.seq}
}

func (r *InMemoryDraftRepository) FindLatestByThread(ctx context.Context, threadID string) (*model.ReplyDraft, error) {
	return r.findLatest(func(d *model.ReplyDraft) bool {
		return d.ThreadID == threadID
	})
}

func (r *InMemoryDraftRepository) FindLatestByThreadAndStatus(ctx context.Context, threadID string, status model.DraftStatus) (*model.ReplyDraft, error) {
	return r.findLatest(func(d *model.ReplyDraft) bool {
		return d.ThreadID == threadID && d.Status == status
	})
}

func (r *InMemoryDraftRepository) findLatest(match func(*model.ReplyDraft) bool) (*model.ReplyDraft, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var latest *storedDraft
	for _, stored := range r.drafts {
		if stored.draft.Deleted || !match(&stored.draft) {
			continue
		}
		if latest == nil || newer(stored, latest) {
			latest = stored
		}
	}
	if latest == nil {
		return nil, repository.ErrDraftNotFound
	}
	found := latest.draft
	return &found, nil
}

func newer(a, b *storedDraft) bool {
	if a.draft.CreatedAt.Equal(b.draft.CreatedAt) {
		return a.seq > b.seq
	}
	return a.draft.CreatedAt.After(b.draft.CreatedAt)
}

func (r *InMemoryDraftRepository) Delete(ctx context.Context, id string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	stored, exists := r.drafts[id]
	if !exists {
		return repository.ErrDraftNotFound
	}
	stored.draft.Deleted = true
	stored.draft.UpdatedAt = time.Now()
	return nil
}
