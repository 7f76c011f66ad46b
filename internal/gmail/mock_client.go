package gmail

import (
	"context"
	"sync"

	"draftly/internal/model"
)

// MockGmailClient is a mock implementation of service.MailClient for testing
type MockGmailClient struct {
	FetchMessageFunc   func(ctx context.Context, userID, messageID string) (*model.MessageData, error)
	FetchThreadFunc    func(ctx context.Context, userID, threadID string) (*model.ThreadData, error)
	ListSentBodiesFunc func(ctx context.Context, userID string, max int) ([]string, error)
	ListInboxFunc      func(ctx context.Context, userID string, max int) ([]*model.MessageData, error)
	CreateDraftFunc    func(ctx context.Context, userID string, reply *model.OutgoingReply) (string, error)
	UpdateDraftFunc    func(ctx context.Context, userID, remoteDraftID string, reply *model.OutgoingReply) (string, error)
	DeleteDraftFunc    func(ctx context.Context, userID, remoteDraftID string) error
	SendReplyFunc      func(ctx context.Context, userID string, reply *model.OutgoingReply) error

	// Calls counts invocations per method name.
	Calls map[string]int
	mu    sync.Mutex
}

func NewMockGmailClient() *MockGmailClient {
	return &MockGmailClient{Calls: make(map[string]int)}
}

func (m *MockGmailClient) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Calls == nil {
		m.Calls = make(map[string]int)
	}
	m.Calls[method]++
}

// TotalCalls is the number of calls across all methods.
func (m *MockGmailClient) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.Calls {
		total += n
	}
	return total
}

// CallCount is the number of calls made to method.
func (m *MockGmailClient) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[method]
}

func (m *MockGmailClient) FetchMessage(ctx context.Context, userID, messageID string) (*model.MessageData, error) {
	m.record("FetchMessage")
	if m.FetchMessageFunc != nil {
		return m.FetchMessageFunc(ctx, userID, messageID)
	}
	return &model.MessageData{ID: messageID, Subject: "Hello", Body: "Original body"}, nil
}

func (m *MockGmailClient) FetchThread(ctx context.Context, userID, threadID string) (*model.ThreadData, error) {
	m.record("FetchThread")
	if m.FetchThreadFunc != nil {
		return m.FetchThreadFunc(ctx, userID, threadID)
	}
	return &model.ThreadData{ID: threadID}, nil
}

func (m *MockGmailClient) ListSentBodies(ctx context.Context, userID string, max int) ([]string, error) {
	m.record("ListSentBodies")
	if m.ListSentBodiesFunc != nil {
		return m.ListSentBodiesFunc(ctx, userID, max)
	}
	return []string{}, nil
}

func (m *MockGmailClient) ListInbox(ctx context.Context, userID string, max int) ([]*model.MessageData, error) {
	m.record("ListInbox")
	if m.ListInboxFunc != nil {
		return m.ListInboxFunc(ctx, userID, max)
	}
	return []*model.MessageData{}, nil
}

func (m *MockGmailClient) CreateDraft(ctx context.Context, userID string, reply *model.OutgoingReply) (string, error) {
	m.record("CreateDraft")
	if m.CreateDraftFunc != nil {
		return m.CreateDraftFunc(ctx, userID, reply)
	}
	return "remote-draft-1", nil
}

func (m *MockGmailClient) UpdateDraft(ctx context.Context, userID, remoteDraftID string, reply *model.OutgoingReply) (string, error) {
	m.record("UpdateDraft")
	if m.UpdateDraftFunc != nil {
		return m.UpdateDraftFunc(ctx, userID, remoteDraftID, reply)
	}
	return remoteDraftID, nil
}

func (m *MockGmailClient) DeleteDraft(ctx context.Context, userID, remoteDraftID string) error {
	m.record("DeleteDraft")
	if m.DeleteDraftFunc != nil {
		return m.DeleteDraftFunc(ctx, userID, remoteDraftID)
	}
	return nil
}

func (m *MockGmailClient) SendReply(ctx context.Context, userID string, reply *model.OutgoingReply) error {
	m.record("SendReply")
	if m.SendReplyFunc != nil {
		return m.SendReplyFunc(ctx, userID, reply)
	}
	return nil
}
