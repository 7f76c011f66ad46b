package sse

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"draftly/internal/logger"
)

// Event is the JSON envelope written to every stream.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
	Time int64       `json:"time"`
}

// SSEManager fans events out to each user's open Server-Sent Event streams
type SSEManager struct {
	clients    map[string]map[chan []byte]bool // userID -> connection channels
	clientsMux sync.RWMutex
	bufferSize int
	logger     *logger.Logger
}

func NewSSEManager(logger *logger.Logger) *SSEManager {
	return &SSEManager{
		clients:    make(map[string]map[chan []byte]bool),
		bufferSize: 16,
		logger:     logger,
	}
}

// AddClient registers a new stream for userID.
func (s *SSEManager) AddClient(userID string) chan []byte {
	s.clientsMux.Lock()
	defer s.clientsMux.Unlock()

	if s.clients[userID] == nil {
		s.clients[userID] = make(map[chan []byte]bool)
	}

	channel := make(chan []byte, s.bufferSize)
	s.clients[userID][channel] = true

	s.logger.Info("Added SSE client for user:", userID, "total clients:", len(s.clients[userID]))
	return channel
}

func (s *SSEManager) RemoveClient(userID string, channel chan []byte) {
	s.clientsMux.Lock()
	defer s.clientsMux.Unlock()

	userClients, exists := s.clients[userID]
	if !exists || !userClients[channel] {
		return
	}
	delete(userClients, channel)
	close(channel)

	s.logger.Info("Removed SSE client for user:", userID, "remaining clients:", len(userClients))
	if len(userClients) == 0 {
		delete(s.clients, userID)
	}
}

// BroadcastToUser sends an event to every stream of userID. Streams whose
// buffer is full miss the event rather than blocking the caller.
func (s *SSEManager) BroadcastToUser(userID string, eventType string, data interface{}) {
	s.clientsMux.RLock()
	defer s.clientsMux.RUnlock()

	userClients, exists := s.clients[userID]
	if !exists {
		return
	}

	jsonData, err := json.Marshal(Event{Type: eventType, Data: data, Time: time.Now().Unix()})
	if err != nil {
		s.logger.Error("Failed to marshal broadcast event:", err)
		return
	}

	for channel := range userClients {
		select {
		case channel <- jsonData:
		default:
			s.logger.Warn("Dropping", eventType, "event for slow SSE client of user:", userID)
		}
	}
}

// Close disconnects every stream.
func (s *SSEManager) Close() {
	s.clientsMux.Lock()
	defer s.clientsMux.Unlock()

	for userID, userClients := range s.clients {
		for channel := range userClients {
			close(channel)
		}
		delete(s.clients, userID)
	}
}

func (s *SSEManager) GetUserConnectionCount(userID string) int {
	s.clientsMux.RLock()
	defer s.clientsMux.RUnlock()
	return len(s.clients[userID])
}

func (s *SSEManager) HasUserConnection(userID string) bool {
	return s.GetUserConnectionCount(userID) > 0
}

// ConnectedUsers lists users with at least one open stream, sorted.
func (s *SSEManager) ConnectedUsers() []string {
	s.clientsMux.RLock()
	defer s.clientsMux.RUnlock()

	users := make([]string, 0, len(s.clients))
	for userID := range s.clients {
		users = append(users, userID)
	}
	sort.Strings(users)
	return users
}
