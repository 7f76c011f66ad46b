package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"draftly/internal/apperror"
	"draftly/internal/service"
	"draftly/internal/sse"

	"github.com/labstack/echo/v4"
)

type InboxHandler struct {
	inboxService service.InboxService
	users        CurrentUserProvider
	sseManager   *sse.SSEManager
	logger       echo.Logger
}

func NewInboxHandler(inboxService service.InboxService, users CurrentUserProvider, sseManager *sse.SSEManager, logger echo.Logger) *InboxHandler {
	return &InboxHandler{
		inboxService: inboxService,
		users:        users,
		sseManager:   sseManager,
		logger:       logger,
	}
}

// ListInbox returns the latest inbox messages of the authenticated user
func (h *InboxHandler) ListInbox(c echo.Context) error {
	user, err := h.users.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}

	messages, err := h.inboxService.ListInbox(c.Request().Context(), user.ID)
	if err != nil {
		h.logger.Error("Failed to list inbox:", err)
		return c.JSON(apperror.HTTPStatus(err), map[string]string{
			"error":     err.Error(),
			"errorKind": apperror.Detail(err),
		})
	}

	return c.JSON(http.StatusOK, messages)
}

// GetThread returns every message of a thread
func (h *InboxHandler) GetThread(c echo.Context) error {
	user, err := h.users.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}

	thread, err := h.inboxService.GetThread(c.Request().Context(), user.ID, c.Param("threadId"))
	if err != nil {
		return c.JSON(apperror.HTTPStatus(err), map[string]string{
			"error":     err.Error(),
			"errorKind": apperror.Detail(err),
		})
	}

	return c.JSON(http.StatusOK, thread)
}

// StreamEvents provides Server-Sent Events for draft lifecycle and inbox updates
func (h *InboxHandler) StreamEvents(c echo.Context) error {
	user, err := h.users.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	clientChannel := h.sseManager.AddClient(user.ID)
	defer h.sseManager.RemoveClient(user.ID, clientChannel)

	initJSON, _ := json.Marshal(sse.Event{
		Type: "connection",
		Data: map[string]string{
			"message": "Connected to draft updates",
			"userId":  user.ID,
		},
		Time: time.Now().Unix(),
	})
	fmt.Fprintf(c.Response(), "data: %s\n\n", initJSON)
	c.Response().Flush()

	for {
		select {
		case eventData, ok := <-clientChannel:
			if !ok {
				return nil
			}
			fmt.Fprintf(c.Response(), "data: %s\n\n", eventData)
			c.Response().Flush()
		case <-c.Request().Context().Done():
			return nil
		}
	}
}
