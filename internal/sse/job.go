package sse

import (
	"context"
	"fmt"
	"sync"
	"time"

	"draftly/internal/logger"
	"draftly/internal/service"
)

// InboxWatchJob polls the inbox of every user with an open stream and
// pushes messages that arrived since the previous poll.
type InboxWatchJob struct {
	inboxService service.InboxService
	sseManager   *SSEManager
	logger       *logger.Logger
	interval     time.Duration

	seenMux sync.Mutex
	seen    map[string]map[string]bool // userID -> message IDs already reported
}

func NewInboxWatchJob(
	inboxService service.InboxService,
	sseManager *SSEManager,
	interval time.Duration,
	logger *logger.Logger,
) *InboxWatchJob {
	return &InboxWatchJob{
		inboxService: inboxService,
		sseManager:   sseManager,
		logger:       logger,
		interval:     interval,
		seen:         make(map[string]map[string]bool),
	}
}

// Start polls until ctx is cancelled.
func (j *InboxWatchJob) Start(ctx context.Context) {
	j.logger.Info("Starting inbox watch job with interval:", j.interval.String())

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.RunOnce(ctx)
		case <-ctx.Done():
			j.logger.Info("Inbox watch job stopped")
			return
		}
	}
}

// RunOnce performs a single poll. The first poll for a user only records
// what is already in the inbox.
func (j *InboxWatchJob) RunOnce(ctx context.Context) {
	users := j.sseManager.ConnectedUsers()
	j.forgetDisconnected(users)

	for _, userID := range users {
		messages, err := j.inboxService.ListInbox(ctx, userID)
		if err != nil {
			j.logger.Error("Failed to poll inbox for user", userID, ":", err)
			continue
		}

		j.seenMux.Lock()
		known, primed := j.seen[userID]
		if !primed {
			known = make(map[string]bool)
			j.seen[userID] = known
		}
		fresh := 0
		for _, message := range messages {
			if known[message.ID] {
				continue
			}
			known[message.ID] = true
			if primed {
				j.sseManager.BroadcastToUser(userID, "new_email", message)
				fresh++
			}
		}
		j.seenMux.Unlock()

		if fresh > 0 {
			j.sseManager.BroadcastToUser(userID, "inbox_summary", map[string]interface{}{
				"count":   fresh,
				"message": fmt.Sprintf("%d new emails received", fresh),
			})
		}
	}
}

func (j *InboxWatchJob) forgetDisconnected(connected []string) {
	active := make(map[string]bool, len(connected))
	for _, userID := range connected {
		active[userID] = true
	}

	j.seenMux.Lock()
	defer j.seenMux.Unlock()
	for userID := range j.seen {
		if !active[userID] {
			delete(j.seen, userID)
		}
	}
}

func (j *InboxWatchJob) GetInterval() time.Duration {
	return j.interval
}
