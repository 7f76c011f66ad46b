package handler

import (
	"net/http"

	"draftly/internal/model"
	"draftly/internal/service"

	"github.com/labstack/echo/v4"
)

type DraftHandler struct {
	draftService service.DraftService
	users        CurrentUserProvider
	logger       echo.Logger
}

func NewDraftHandler(draftService service.DraftService, users CurrentUserProvider, logger echo.Logger) *DraftHandler {
	return &DraftHandler{
		draftService: draftService,
		users:        users,
		logger:       logger,
	}
}

type generateReplyRequest struct {
	ThreadID  string `json:"threadId"`
	MessageID string `json:"messageId"`
	From      string `json:"from"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Tone      string `json:"tone"`
}

type regenerateReplyRequest struct {
	Tone string `json:"tone"`
}

type approveReplyRequest struct {
	ReplyMessage string `json:"replyMessage"`
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, map[string]string{
		"error": "Unauthorized",
	})
}

// GenerateReplyDraft creates an AI reply draft for an inbound email
func (h *DraftHandler) GenerateReplyDraft(c echo.Context) error {
	user, err := h.users.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}

	var req generateReplyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	result := h.draftService.GenerateReplyDraft(c.Request().Context(), user.ID, &model.GenerateRequest{
		ThreadID:  req.ThreadID,
		MessageID: req.MessageID,
		From:      req.From,
		Subject:   req.Subject,
		Body:      req.Body,
		Tone:      model.ParseTone(req.Tone),
	})
	h.logger.Infof("generate reply draft threadId=%s status=%s draftId=%s", req.ThreadID, result.Status, result.DraftID)
	return c.JSON(result.StatusCode, result)
}

// RegenerateReplyDraft rewrites the latest draft of a thread. The body is optional.
func (h *DraftHandler) RegenerateReplyDraft(c echo.Context) error {
	user, err := h.users.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}

	threadID := c.QueryParam("threadId")
	var req regenerateReplyRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "Invalid request body",
			})
		}
	}
	if req.Tone == "" {
		req.Tone = c.QueryParam("tone")
	}

	result := h.draftService.RegenerateReplyDraft(c.Request().Context(), user.ID, threadID, model.ParseTone(req.Tone))
	h.logger.Infof("regenerate reply draft threadId=%s status=%s draftId=%s", threadID, result.Status, result.DraftID)
	return c.JSON(result.StatusCode, result)
}

// ApproveReplyDraft sends the final reply text
func (h *DraftHandler) ApproveReplyDraft(c echo.Context) error {
	user, err := h.users.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}

	threadID := c.QueryParam("threadId")
	var req approveReplyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	result := h.draftService.ApproveReplyDraft(c.Request().Context(), user.ID, threadID, req.ReplyMessage)
	h.logger.Infof("approve reply draft threadId=%s status=%s statusCode=%d", threadID, result.Status, result.StatusCode)
	return c.JSON(result.StatusCode, result)
}

// RejectReplyDraft discards the active draft of a thread
func (h *DraftHandler) RejectReplyDraft(c echo.Context) error {
	user, err := h.users.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}

	threadID := c.QueryParam("threadId")
	result := h.draftService.RejectReplyDraft(c.Request().Context(), user.ID, threadID)
	h.logger.Infof("reject reply draft threadId=%s status=%s statusCode=%d", threadID, result.Status, result.StatusCode)
	return c.JSON(result.StatusCode, result)
}

// GetDraftBody returns the stored draft of a thread
func (h *DraftHandler) GetDraftBody(c echo.Context) error {
	if _, err := h.users.GetCurrentUser(c); err != nil {
		return unauthorized(c)
	}

	threadID := c.QueryParam("threadId")
	result := h.draftService.GetDraftBody(c.Request().Context(), threadID)
	return c.JSON(result.StatusCode, result)
}
