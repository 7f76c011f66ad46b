package router

import (
	"net/http"

	"draftly/internal/handler"
	"draftly/internal/middleware"

	"github.com/labstack/echo/v4"
)

func SetupRoutes(
	e *echo.Echo,
	authHandler *handler.AuthHandler,
	draftHandler *handler.DraftHandler,
	inboxHandler *handler.InboxHandler,
) {
	// Public routes
	e.GET("/auth/:provider", authHandler.BeginAuthHandler)
	e.GET("/auth/:provider/callback", authHandler.CallbackHandler)
	e.GET("/auth/logout", authHandler.LogoutHandler)

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	// Protected API routes
	protected := e.Group("/api")
	protected.Use(middleware.AuthMiddleware(authHandler))

	// Reply draft lifecycle
	protected.POST("/emails/draft/reply", draftHandler.GenerateReplyDraft)
	protected.POST("/emails/draft/reply/regenerate", draftHandler.RegenerateReplyDraft)
	protected.POST("/emails/draft/reply/approve", draftHandler.ApproveReplyDraft)
	protected.POST("/emails/draft/reply/reject", draftHandler.RejectReplyDraft)
	protected.POST("/emails/thread/reject", draftHandler.RejectReplyDraft)
	protected.GET("/emails/thread/body", draftHandler.GetDraftBody)

	// Mailbox
	protected.GET("/emails/inbox", inboxHandler.ListInbox)
	protected.GET("/emails/threads/:threadId", inboxHandler.GetThread)

	// Real-time draft and inbox updates via Server-Sent Events (SSE)
	protected.GET("/sse", inboxHandler.StreamEvents)
}
