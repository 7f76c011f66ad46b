package sse_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"draftly/internal/gmail"
	"draftly/internal/logger"
	"draftly/internal/model"
	"draftly/internal/service"
	"draftly/internal/sse"
)

func readEvent(t *testing.T, channel chan []byte) sse.Event {
	t.Helper()
	select {
	case msg := <-channel:
		var event sse.Event
		require.NoError(t, json.Unmarshal(msg, &event))
		return event
	case <-time.After(time.Second):
		t.Fatal("Did not receive message within timeout")
	}
	return sse.Event{}
}

func TestSSEManager(t *testing.T) {
	manager := sse.NewSSEManager(logger.NewWithWriter(&bytes.Buffer{}))
	defer manager.Close()

	clientChannel := manager.AddClient("user-1")
	assert.Equal(t, 1, manager.GetUserConnectionCount("user-1"))
	assert.True(t, manager.HasUserConnection("user-1"))
	assert.Equal(t, []string{"user-1"}, manager.ConnectedUsers())

	manager.BroadcastToUser("user-1", service.EventDraftCreated, map[string]interface{}{"threadId": "t1"})
	manager.BroadcastToUser("user-2", service.EventDraftCreated, nil)

	event := readEvent(t, clientChannel)
	assert.Equal(t, service.EventDraftCreated, event.Type)
	assert.Equal(t, "t1", event.Data.(map[string]interface{})["threadId"])

	manager.RemoveClient("user-1", clientChannel)
	assert.Equal(t, 0, manager.GetUserConnectionCount("user-1"))
	assert.Empty(t, manager.ConnectedUsers())

	// removing twice is a no-op
	manager.RemoveClient("user-1", clientChannel)
}

func TestSSEManagerDropsWhenBufferFull(t *testing.T) {
	manager := sse.NewSSEManager(logger.NewWithWriter(&bytes.Buffer{}))
	defer manager.Close()

	clientChannel := manager.AddClient("user-1")
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			manager.BroadcastToUser("user-1", "tick", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a slow client")
	}
	assert.Equal(t, 16, len(clientChannel))
}

func TestInboxWatchJob(t *testing.T) {
	log := logger.NewWithWriter(&bytes.Buffer{})
	mail := gmail.NewMockGmailClient()
	inbox := []*model.MessageData{{ID: "m1", ThreadID: "t1"}}
	mail.ListInboxFunc = func(ctx context.Context, userID string, max int) ([]*model.MessageData, error) {
		return inbox, nil
	}
	manager := sse.NewSSEManager(log)
	defer manager.Close()

	job := sse.NewInboxWatchJob(service.NewInboxService(mail, 20, log), manager, 30*time.Second, log)
	assert.Equal(t, 30*time.Second, job.GetInterval())

	// nobody connected: no polling
	job.RunOnce(context.Background())
	assert.Equal(t, 0, mail.CallCount("ListInbox"))

	clientChannel := manager.AddClient("user-1")

	job.RunOnce(context.Background())
	assert.Equal(t, 1, mail.CallCount("ListInbox"))
	assert.Equal(t, 0, len(clientChannel))

	inbox = []*model.MessageData{{ID: "m2", ThreadID: "t2"}, {ID: "m1", ThreadID: "t1"}}
	job.RunOnce(context.Background())

	event := readEvent(t, clientChannel)
	assert.Equal(t, "new_email", event.Type)
	assert.Equal(t, "m2", event.Data.(map[string]interface{})["messageId"])

	summary := readEvent(t, clientChannel)
	assert.Equal(t, "inbox_summary", summary.Type)
	assert.Equal(t, float64(1), summary.Data.(map[string]interface{})["count"])

	job.RunOnce(context.Background())
	assert.Equal(t, 0, len(clientChannel))
}

func TestInboxWatchJobStopsOnCancel(t *testing.T) {
	log := logger.NewWithWriter(&bytes.Buffer{})
	manager := sse.NewSSEManager(log)
	job := sse.NewInboxWatchJob(service.NewInboxService(gmail.NewMockGmailClient(), 20, log), manager, time.Hour, log)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		job.Start(ctx)
		close(stopped)
	}()
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("job did not stop")
	}
}
