package service_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"draftly/internal/ai"
	"draftly/internal/apperror"
	"draftly/internal/gmail"
	"draftly/internal/logger"
	"draftly/internal/model"
	"draftly/internal/repository"
	"draftly/internal/repository/memory"
	"draftly/internal/retry"
	"draftly/internal/service"
)

type publishedEvent struct {
	userID    string
	eventType string
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) BroadcastToUser(userID string, eventType string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{userID: userID, eventType: eventType})
}

type fixture struct {
	repo       *memory.InMemoryDraftRepository
	mail       *gmail.MockGmailClient
	completion *ai.MockAIClient
	publisher  *recordingPublisher
	delays     []time.Duration
	logs       *bytes.Buffer
	svc        service.DraftService
}

func newFixture() *fixture {
	f := &fixture{
		repo:       memory.NewInMemoryDraftRepository(),
		mail:       gmail.NewMockGmailClient(),
		completion: ai.NewMockAIClient(),
		publisher:  &recordingPublisher{},
		logs:       &bytes.Buffer{},
	}
	log := logger.NewWithWriter(f.logs)
	sender := retry.NewSender(retry.DefaultPolicy, log).WithSleep(func(ctx context.Context, d time.Duration) error {
		f.delays = append(f.delays, d)
		return nil
	})
	f.svc = service.NewDraftService(f.repo, f.mail, f.completion, sender, f.publisher, 10, log)
	return f
}

func (f *fixture) seed(t *testing.T, status model.DraftStatus, remoteDraftID string) *model.ReplyDraft {
	t.Helper()
	draft := model.NewReplyDraft("t1", "m1", "John Doe <john@x.com>", "john@x.com", "Stored reply", remoteDraftID)
	draft.Status = status
	require.NoError(t, f.repo.Save(context.Background(), draft))
	return draft
}

func generateRequest() *model.GenerateRequest {
	return &model.GenerateRequest{
		ThreadID:  "t1",
		MessageID: "m1",
		From:      "John Doe <john@x.com>",
		Subject:   "Quarterly numbers",
		Body:      "Can you send me the report?",
		Tone:      model.ToneFormal,
	}
}

func TestGenerateReplyDraft_CreatesDraft(t *testing.T) {
	f := newFixture()
	f.mail.ListSentBodiesFunc = func(ctx context.Context, userID string, max int) ([]string, error) {
		assert.Equal(t, 10, max)
		bodies := make([]string, 7)
		for i := range bodies {
			bodies[i] = fmt.Sprintf("sent body %d", i+1)
		}
		return bodies, nil
	}
	var sentDraft *model.OutgoingReply
	f.mail.CreateDraftFunc = func(ctx context.Context, userID string, reply *model.OutgoingReply) (string, error) {
		sentDraft = reply
		return "gmail-draft-9", nil
	}
	f.completion.GenerateFunc = func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
		return "Here is the report.", nil
	}

	result := f.svc.GenerateReplyDraft(context.Background(), "user-1", generateRequest())

	require.Equal(t, model.StatusDraftCreated, result.Status, result.Message)
	assert.Equal(t, "gmail-draft-9", result.DraftID)
	assert.Equal(t, "t1", result.ThreadID)
	assert.Equal(t, "Here is the report.", result.ReplyMessage)
	assert.Equal(t, http.StatusOK, result.StatusCode)

	require.NotNil(t, sentDraft)
	assert.Equal(t, "john@x.com", sentDraft.To)
	assert.Equal(t, "Quarterly numbers", sentDraft.Subject)
	assert.Equal(t, "m1", sentDraft.InReplyTo)
	assert.Equal(t, "t1", sentDraft.ThreadID)

	assert.Contains(t, f.completion.LastUser, "sent body 5")
	assert.NotContains(t, f.completion.LastUser, "sent body 6")
	assert.Contains(t, f.completion.LastSystem, "formal and professional")

	stored, err := f.repo.FindLatestByThread(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, model.DraftStatusGenerated, stored.Status)
	assert.Equal(t, "john@x.com", stored.ToEmail)
	assert.Equal(t, "John Doe <john@x.com>", stored.FromEmail)
	assert.Equal(t, "gmail-draft-9", stored.RemoteDraftID)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, publishedEvent{"user-1", service.EventDraftCreated}, f.publisher.events[0])
	assert.Contains(t, f.logs.String(), "actionType=DRAFT_CREATED")
}

func TestGenerateReplyDraft_NoReplySender(t *testing.T) {
	f := newFixture()
	req := generateRequest()
	req.From = "Alerts <no-reply@x.com>"

	result := f.svc.GenerateReplyDraft(context.Background(), "user-1", req)

	assert.Equal(t, model.StatusNoReplyRequired, result.Status)
	assert.Equal(t, "This email does not require a reply", result.Message)
	assert.Equal(t, 0, f.mail.TotalCalls())
	assert.Equal(t, 0, f.completion.Calls)

	_, err := f.repo.FindLatestByThread(context.Background(), "t1")
	assert.ErrorIs(t, err, repository.ErrDraftNotFound)
}

func TestGenerateReplyDraft_BlankFrom(t *testing.T) {
	f := newFixture()
	req := generateRequest()
	req.From = "   "

	result := f.svc.GenerateReplyDraft(context.Background(), "user-1", req)

	assert.Equal(t, model.StatusFailed, result.Status)
	assert.Equal(t, http.StatusBadRequest, result.StatusCode)
	assert.Equal(t, string(apperror.KindValidation), result.ErrorKind)
	assert.True(t, strings.HasPrefix(result.Message, "Unable to generate reply draft: "))
	assert.Equal(t, 0, f.mail.TotalCalls())
}

func TestGenerateReplyDraft_CompletionFailure(t *testing.T) {
	f := newFixture()
	f.completion.GenerateFunc = func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
		return "", apperror.NewRemoteError("openai", http.StatusServiceUnavailable, "generate completion", "", nil)
	}

	result := f.svc.GenerateReplyDraft(context.Background(), "user-1", generateRequest())

	assert.Equal(t, model.StatusFailed, result.Status)
	assert.Equal(t, http.StatusInternalServerError, result.StatusCode)
	assert.Equal(t, string(apperror.RemoteTransientServer), result.ErrorKind)
	assert.Equal(t, 0, f.mail.CallCount("CreateDraft"))

	_, err := f.repo.FindLatestByThread(context.Background(), "t1")
	assert.ErrorIs(t, err, repository.ErrDraftNotFound)
	assert.Empty(t, f.publisher.events)
}

func TestRegenerateReplyDraft_NoDraft(t *testing.T) {
	f := newFixture()

	result := f.svc.RegenerateReplyDraft(context.Background(), "user-1", "t1", model.ToneUnspecified)

	assert.Equal(t, model.StatusFailed, result.Status)
	assert.Equal(t, "Reply draft not found for threadId: t1", result.Message)
	assert.Equal(t, http.StatusNotFound, result.StatusCode)
	assert.Equal(t, string(apperror.KindNotFound), result.ErrorKind)
	assert.Equal(t, 0, f.mail.TotalCalls())
	assert.Equal(t, 0, f.completion.Calls)
}

func TestRegenerateReplyDraft_UpdatesRemoteDraft(t *testing.T) {
	f := newFixture()
	seeded := f.seed(t, model.DraftStatusGenerated, "remote-1")
	f.completion.GenerateFunc = func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
		return "A warmer reply", nil
	}

	result := f.svc.RegenerateReplyDraft(context.Background(), "user-1", "t1", model.ToneUnspecified)

	require.Equal(t, model.StatusDraftCreated, result.Status, result.Message)
	assert.Equal(t, "remote-1", result.DraftID)
	assert.Equal(t, 1, f.mail.CallCount("UpdateDraft"))
	assert.Equal(t, 0, f.mail.CallCount("CreateDraft"))
	assert.Contains(t, f.completion.LastSystem, "friendly and warm")
	assert.Contains(t, f.completion.LastUser, "Subject: Hello")

	stored, err := f.repo.FindLatestByThread(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, stored.ID)
	assert.Equal(t, "A warmer reply", stored.ReplyMessage)
	assert.Equal(t, model.DraftStatusGenerated, stored.Status)
}

func TestRegenerateReplyDraft_FallsBackToCreate(t *testing.T) {
	f := newFixture()
	f.seed(t, model.DraftStatusGenerated, "remote-1")
	f.mail.UpdateDraftFunc = func(ctx context.Context, userID, remoteDraftID string, reply *model.OutgoingReply) (string, error) {
		return "", apperror.NewRemoteError("gmail", http.StatusNotFound, "update draft", "", nil)
	}
	f.mail.CreateDraftFunc = func(ctx context.Context, userID string, reply *model.OutgoingReply) (string, error) {
		return "remote-2", nil
	}

	result := f.svc.RegenerateReplyDraft(context.Background(), "user-1", "t1", model.ToneConcise)

	require.Equal(t, model.StatusDraftCreated, result.Status, result.Message)
	assert.Equal(t, "remote-2", result.DraftID)
	assert.Contains(t, f.completion.LastSystem, "concise and direct")

	stored, err := f.repo.FindLatestByThread(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "remote-2", stored.RemoteDraftID)
	assert.Contains(t, f.logs.String(), "Failed to update Gmail draft, creating new one")
}

func TestRegenerateReplyDraft_SentDraft(t *testing.T) {
	f := newFixture()
	f.seed(t, model.DraftStatusSent, "remote-1")

	result := f.svc.RegenerateReplyDraft(context.Background(), "user-1", "t1", model.ToneFormal)

	assert.Equal(t, model.StatusFailed, result.Status)
	assert.Equal(t, http.StatusBadRequest, result.StatusCode)
	assert.Equal(t, string(apperror.KindStateConflict), result.ErrorKind)
	assert.Equal(t, 0, f.mail.TotalCalls())
}

func TestApproveReplyDraft_SendsReply(t *testing.T) {
	f := newFixture()
	f.seed(t, model.DraftStatusGenerated, "remote-1")
	var sent *model.OutgoingReply
	f.mail.SendReplyFunc = func(ctx context.Context, userID string, reply *model.OutgoingReply) error {
		sent = reply
		return nil
	}

	result := f.svc.ApproveReplyDraft(context.Background(), "user-1", "t1", "Final text")

	require.Equal(t, model.StatusSuccess, result.Status, result.Message)
	assert.Equal(t, "Reply sent successfully to john@x.com", result.Message)
	assert.Equal(t, http.StatusOK, result.StatusCode)

	require.NotNil(t, sent)
	assert.Equal(t, "john@x.com", sent.To)
	assert.Equal(t, "Hello", sent.Subject)
	assert.Equal(t, "Final text", sent.Body)
	assert.Equal(t, "m1", sent.InReplyTo)
	assert.Empty(t, f.delays)

	stored, err := f.repo.FindLatestByThread(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, model.DraftStatusSent, stored.Status)
	assert.Equal(t, "Final text", stored.ReplyMessage)
	assert.Contains(t, f.logs.String(), "actionType=EMAIL_SENT")
}

func TestApproveReplyDraft_IsSingleUse(t *testing.T) {
	f := newFixture()
	f.seed(t, model.DraftStatusGenerated, "remote-1")

	first := f.svc.ApproveReplyDraft(context.Background(), "user-1", "t1", "Final text")
	second := f.svc.ApproveReplyDraft(context.Background(), "user-1", "t1", "Final text")

	assert.Equal(t, model.StatusSuccess, first.Status)
	assert.Equal(t, model.StatusError, second.Status)
	assert.Equal(t, http.StatusBadRequest, second.StatusCode)
	assert.Equal(t, "Draft is not in GENERATED state. Current status: SENT", second.Message)
	assert.Equal(t, 1, f.mail.CallCount("SendReply"))
}

func TestApproveReplyDraft_BlankMessage(t *testing.T) {
	f := newFixture()
	f.seed(t, model.DraftStatusGenerated, "remote-1")

	result := f.svc.ApproveReplyDraft(context.Background(), "user-1", "t1", "  \n ")

	assert.Equal(t, model.StatusError, result.Status)
	assert.Equal(t, http.StatusBadRequest, result.StatusCode)
	assert.Equal(t, "Reply message cannot be empty", result.Message)
	assert.Equal(t, 0, f.mail.CallCount("SendReply"))

	stored, err := f.repo.FindLatestByThread(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, model.DraftStatusGenerated, stored.Status)
}

func TestApproveReplyDraft_NoDraft(t *testing.T) {
	f := newFixture()

	result := f.svc.ApproveReplyDraft(context.Background(), "user-1", "t1", "Final text")

	assert.Equal(t, model.StatusError, result.Status)
	assert.Equal(t, http.StatusNotFound, result.StatusCode)
	assert.Equal(t, "Failed to send reply: Reply draft not found for threadId: t1", result.Message)
	assert.Equal(t, 0, f.mail.TotalCalls())
}

func TestApproveReplyDraft_RetriesTransientFailures(t *testing.T) {
	f := newFixture()
	f.seed(t, model.DraftStatusGenerated, "remote-1")
	attempts := 0
	f.mail.SendReplyFunc = func(ctx context.Context, userID string, reply *model.OutgoingReply) error {
		attempts++
		if attempts < 3 {
			return apperror.NewRemoteError("gmail", http.StatusBadGateway, "send reply", "", nil)
		}
		return nil
	}

	result := f.svc.ApproveReplyDraft(context.Background(), "user-1", "t1", "Final text")

	require.Equal(t, model.StatusSuccess, result.Status, result.Message)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, f.delays)
	assert.Contains(t, f.logs.String(), "Reply sent successfully after 3 attempt(s)")
	assert.Contains(t, f.logs.String(), "retrying in 1000ms")

	stored, err := f.repo.FindLatestByThread(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, model.DraftStatusSent, stored.Status)
}

func TestApproveReplyDraft_UnauthorizedAbortsImmediately(t *testing.T) {
	f := newFixture()
	f.seed(t, model.DraftStatusGenerated, "remote-1")
	f.mail.SendReplyFunc = func(ctx context.Context, userID string, reply *model.OutgoingReply) error {
		return apperror.NewRemoteError("gmail", http.StatusUnauthorized, "send reply", "", nil)
	}

	result := f.svc.ApproveReplyDraft(context.Background(), "user-1", "t1", "Final text")

	assert.Equal(t, model.StatusError, result.Status)
	assert.Equal(t, http.StatusInternalServerError, result.StatusCode)
	assert.Equal(t, string(apperror.RemoteUnauthorized), result.ErrorKind)
	assert.Equal(t, 1, f.mail.CallCount("SendReply"))
	assert.Empty(t, f.delays)
	assert.Contains(t, f.logs.String(), "non-retryable error")

	stored, err := f.repo.FindLatestByThread(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, model.DraftStatusGenerated, stored.Status)
}

func TestApproveReplyDraft_ExhaustsRetries(t *testing.T) {
	f := newFixture()
	f.seed(t, model.DraftStatusGenerated, "remote-1")
	f.mail.SendReplyFunc = func(ctx context.Context, userID string, reply *model.OutgoingReply) error {
		return apperror.NewRemoteError("gmail", http.StatusServiceUnavailable, "send reply", "", nil)
	}

	result := f.svc.ApproveReplyDraft(context.Background(), "user-1", "t1", "Final text")

	assert.Equal(t, model.StatusError, result.Status)
	assert.Equal(t, http.StatusInternalServerError, result.StatusCode)
	assert.Contains(t, result.Message, "Failed to send email after 3 attempts")
	assert.Equal(t, 3, f.mail.CallCount("SendReply"))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, f.delays)

	stored, err := f.repo.FindLatestByThread(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, model.DraftStatusGenerated, stored.Status)
}

func TestApproveReplyDraft_OriginalMessageMissing(t *testing.T) {
	f := newFixture()
	f.seed(t, model.DraftStatusGenerated, "remote-1")
	f.mail.FetchMessageFunc = func(ctx context.Context, userID, messageID string) (*model.MessageData, error) {
		return nil, apperror.NewRemoteError("gmail", http.StatusNotFound, "fetch message", "", nil)
	}

	result := f.svc.ApproveReplyDraft(context.Background(), "user-1", "t1", "Final text")

	assert.Equal(t, model.StatusError, result.Status)
	assert.Equal(t, http.StatusInternalServerError, result.StatusCode)
	assert.True(t, strings.HasPrefix(result.Message, "Failed to send reply: failed to fetch original email"), result.Message)
	assert.Equal(t, 0, f.mail.CallCount("SendReply"))

	stored, err := f.repo.FindLatestByThread(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, model.DraftStatusGenerated, stored.Status)
}

func TestApproveReplyDraft_BlankOriginalSubject(t *testing.T) {
	f := newFixture()
	f.seed(t, model.DraftStatusGenerated, "remote-1")
	f.mail.FetchMessageFunc = func(ctx context.Context, userID, messageID string) (*model.MessageData, error) {
		return &model.MessageData{ID: messageID, Subject: "  ", Body: "Original body"}, nil
	}
	var sent *model.OutgoingReply
	f.mail.SendReplyFunc = func(ctx context.Context, userID string, reply *model.OutgoingReply) error {
		sent = reply
		return nil
	}

	result := f.svc.ApproveReplyDraft(context.Background(), "user-1", "t1", "Final text")

	require.Equal(t, model.StatusSuccess, result.Status, result.Message)
	require.NotNil(t, sent)
	assert.Equal(t, "Re: Email", sent.Subject)
}

func TestApproveReplyDraft_ConcurrentCallsSendOnce(t *testing.T) {
	f := newFixture()
	f.seed(t, model.DraftStatusGenerated, "remote-1")

	const callers = 8
	results := make([]*model.ActionResult, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = f.svc.ApproveReplyDraft(context.Background(), "user-1", "t1", "Final text")
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, r := range results {
		if r.Status == model.StatusSuccess {
			successes++
		} else {
			assert.Equal(t, http.StatusBadRequest, r.StatusCode)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, f.mail.CallCount("SendReply"))
}

func TestRejectReplyDraft_RemoteDraftAlreadyGone(t *testing.T) {
	f := newFixture()
	f.seed(t, model.DraftStatusGenerated, "remote-1")
	f.mail.DeleteDraftFunc = func(ctx context.Context, userID, remoteDraftID string) error {
		return apperror.NewRemoteError("gmail", http.StatusNotFound, "delete draft", "", nil)
	}

	result := f.svc.RejectReplyDraft(context.Background(), "user-1", "t1")

	assert.Equal(t, model.StatusSuccess, result.Status)
	assert.Equal(t, "Reply draft rejected and deleted successfully", result.Message)
	assert.Equal(t, http.StatusOK, result.StatusCode)

	_, err := f.repo.FindLatestByThread(context.Background(), "t1")
	assert.ErrorIs(t, err, repository.ErrDraftNotFound)
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, service.EventDraftRejected, f.publisher.events[0].eventType)
}

func TestRejectReplyDraft_RemoteFailureDoesNotBlock(t *testing.T) {
	f := newFixture()
	f.seed(t, model.DraftStatusGenerated, "remote-1")
	f.mail.DeleteDraftFunc = func(ctx context.Context, userID, remoteDraftID string) error {
		return errors.New("connection reset")
	}

	result := f.svc.RejectReplyDraft(context.Background(), "user-1", "t1")

	assert.Equal(t, model.StatusSuccess, result.Status)
	assert.Contains(t, f.logs.String(), "continuing with database deletion")

	_, err := f.repo.FindLatestByThread(context.Background(), "t1")
	assert.ErrorIs(t, err, repository.ErrDraftNotFound)
}

func TestRejectReplyDraft_WithoutRemoteDraft(t *testing.T) {
	f := newFixture()
	f.seed(t, model.DraftStatusGenerated, "")

	result := f.svc.RejectReplyDraft(context.Background(), "user-1", "t1")

	assert.Equal(t, model.StatusSuccess, result.Status)
	assert.Equal(t, 0, f.mail.CallCount("DeleteDraft"))
}

func TestRejectReplyDraft_SentDraft(t *testing.T) {
	f := newFixture()
	f.seed(t, model.DraftStatusSent, "remote-1")

	result := f.svc.RejectReplyDraft(context.Background(), "user-1", "t1")

	assert.Equal(t, model.StatusError, result.Status)
	assert.Equal(t, http.StatusBadRequest, result.StatusCode)
	assert.Equal(t, "No GENERATED drafts found for threadId: t1. Current status: SENT", result.Message)
	assert.Equal(t, 0, f.mail.TotalCalls())

	stored, err := f.repo.FindLatestByThread(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, model.DraftStatusSent, stored.Status)
}

func TestRejectReplyDraft_NoDraft(t *testing.T) {
	f := newFixture()

	result := f.svc.RejectReplyDraft(context.Background(), "user-1", "t1")

	assert.Equal(t, http.StatusNotFound, result.StatusCode)
	assert.Equal(t, "Failed to reject reply draft: Reply draft not found for threadId: t1", result.Message)
}

func TestGetDraftBody(t *testing.T) {
	f := newFixture()
	f.seed(t, model.DraftStatusGenerated, "remote-1")

	result := f.svc.GetDraftBody(context.Background(), "t1")

	assert.Equal(t, model.StatusSuccess, result.Status)
	assert.Equal(t, "Draft retrieved successfully", result.Message)
	assert.Equal(t, "Stored reply", result.Body)
	assert.Equal(t, "", result.Subject)
	assert.Equal(t, "john@x.com", result.To)
	assert.Equal(t, model.DraftStatusGenerated, result.DraftStatus)
	assert.Equal(t, 0, f.mail.TotalCalls())
}

func TestGetDraftBody_NotFound(t *testing.T) {
	f := newFixture()

	result := f.svc.GetDraftBody(context.Background(), "missing")

	assert.Equal(t, model.StatusError, result.Status)
	assert.Equal(t, http.StatusNotFound, result.StatusCode)
	assert.Equal(t, "Reply draft not found for threadId: missing", result.Message)
}
