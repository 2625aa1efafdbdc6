package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/fieldtrace/fieldtrace/internal/auth"
)

// Dependencies bundles the handlers and services the router needs.
type Dependencies struct {
	Messages     *MessageHandler
	Attachments  *AttachmentHandler
	Previews     *PreviewHandler
	TokenService *auth.TokenService
}

// SetupRouter registers all routes.
func SetupRouter(e *echo.Echo, deps *Dependencies) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	v1 := e.Group("/api/v1", deps.TokenService.Middleware())

	v1.GET("/messages/team", deps.Messages.GetTeamMessages)
	v1.GET("/messages/submissions/:submission_id", deps.Messages.GetSubmissionMessages)
	v1.GET("/messages/dm/:peer_id", deps.Messages.GetDirectMessages)
	v1.POST("/messages", deps.Messages.SendMessage)
	v1.PATCH("/messages/:id", deps.Messages.ReviseMessage)
	v1.DELETE("/messages/:id", deps.Messages.DeleteMessage)
	v1.POST("/messages/typing", deps.Messages.Typing)
	v1.GET("/messages/typing", deps.Messages.GetTyping)

	v1.POST("/attachments", deps.Attachments.Upload)
	v1.GET("/attachments/resolve", deps.Attachments.Resolve)

	v1.POST("/previews", deps.Previews.Render)
}
