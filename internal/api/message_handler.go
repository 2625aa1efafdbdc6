package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/fieldtrace/fieldtrace/internal/auth"
	"github.com/fieldtrace/fieldtrace/internal/database"
	"github.com/fieldtrace/fieldtrace/internal/models"
	"github.com/fieldtrace/fieldtrace/internal/redis"
	"github.com/fieldtrace/fieldtrace/internal/service"
)

const (
	directHistoryLimit = 200
	teamHistoryLimit   = 100
)

// MessageHandler serves conversation history and message writes.
type MessageHandler struct {
	messages database.MessageRepository
	resolver *service.AttachmentResolver
	redis    *redis.Client
}

func NewMessageHandler(messages database.MessageRepository, resolver *service.AttachmentResolver, rdb *redis.Client) *MessageHandler {
	return &MessageHandler{messages: messages, resolver: resolver, redis: rdb}
}

// GetTeamMessages returns the team-chat surface for the caller's team.
func (h *MessageHandler) GetTeamMessages(c echo.Context) error {
	teamID := auth.GetTeamID(c)
	history, err := h.messages.FetchTeamHistory(c.Request().Context(), teamID, teamHistoryLimit)
	if err != nil {
		return serviceError(c, service.FromBackend(err))
	}
	return successJSON(c, http.StatusOK, h.hydrate(c.Request().Context(), history))
}

// GetSubmissionMessages returns the per-submission discussion thread.
func (h *MessageHandler) GetSubmissionMessages(c echo.Context) error {
	teamID := auth.GetTeamID(c)
	submissionID := c.Param("submission_id")
	history, err := h.messages.FetchSubmissionThread(c.Request().Context(), teamID, submissionID, teamHistoryLimit)
	if err != nil {
		return serviceError(c, service.FromBackend(err))
	}
	return successJSON(c, http.StatusOK, h.hydrate(c.Request().Context(), history))
}

// GetDirectMessages returns the 1:1 history between the caller and a peer.
func (h *MessageHandler) GetDirectMessages(c echo.Context) error {
	teamID := auth.GetTeamID(c)
	selfID := auth.GetUserID(c)
	peerID := c.Param("peer_id")
	if peerID == "" || peerID == selfID {
		return Error(c, http.StatusBadRequest, "VALIDATION_FAILURE", "invalid peer")
	}

	history, err := h.messages.FetchDirectHistory(c.Request().Context(), teamID, selfID, peerID, directHistoryLimit)
	if err != nil {
		return serviceError(c, service.FromBackend(err))
	}
	return successJSON(c, http.StatusOK, h.hydrate(c.Request().Context(), history))
}

type sendMessageRequest struct {
	ID             string  `json:"id"`
	Kind           string  `json:"kind"`
	RecipientID    string  `json:"recipient_id"`
	SubmissionID   *string `json:"submission_id"`
	Body           string  `json:"body"`
	AttachmentPath *string `json:"attachment_path"`
	AttachmentKind *string `json:"attachment_kind"`
}

// SendMessage inserts a message row. The client supplies the id so its
// optimistic record and the stored row share identity; a missing id gets one
// assigned here.
func (h *MessageHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "VALIDATION_FAILURE", "invalid request body")
	}
	if req.Body == "" && req.AttachmentPath == nil {
		return Error(c, http.StatusBadRequest, "VALIDATION_FAILURE", "message must have a body or an attachment")
	}

	msg := models.Message{
		ID:             req.ID,
		Kind:           models.MessageKind(req.Kind),
		TeamID:         auth.GetTeamID(c),
		SenderID:       auth.GetUserID(c),
		Body:           req.Body,
		AttachmentPath: req.AttachmentPath,
		AttachmentKind: req.AttachmentKind,
		CreatedAt:      time.Now().UTC(),
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	switch msg.Kind {
	case models.KindDirect:
		if req.RecipientID == "" || req.RecipientID == msg.SenderID {
			return Error(c, http.StatusBadRequest, "VALIDATION_FAILURE", "invalid recipient")
		}
		msg.RecipientID = req.RecipientID
	case models.KindTeam:
		msg.Internal = true
		msg.SubmissionID = req.SubmissionID
	default:
		return Error(c, http.StatusBadRequest, "VALIDATION_FAILURE", "unknown message kind")
	}

	if err := h.messages.Insert(c.Request().Context(), &msg); err != nil {
		return serviceError(c, service.FromBackend(err))
	}

	h.hydrateOne(c.Request().Context(), &msg)
	return successJSON(c, http.StatusCreated, msg)
}

type reviseMessageRequest struct {
	Kind string `json:"kind"`
	Body string `json:"body"`
}

// ReviseMessage replaces a message body and marks the row as superseded.
// Sender-only enforcement lives in the backend policy layer; a denial surfaces
// as 403 with the backend's own message.
func (h *MessageHandler) ReviseMessage(c echo.Context) error {
	id := c.Param("id")
	var req reviseMessageRequest
	if err := c.Bind(&req); err != nil || req.Body == "" {
		return Error(c, http.StatusBadRequest, "VALIDATION_FAILURE", "revised body required")
	}
	kind := models.MessageKind(req.Kind)
	if kind != models.KindTeam && kind != models.KindDirect {
		return Error(c, http.StatusBadRequest, "VALIDATION_FAILURE", "unknown message kind")
	}

	if err := h.messages.Revise(c.Request().Context(), kind, id, req.Body); err != nil {
		return serviceError(c, service.FromBackend(err))
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteMessage removes a message row.
func (h *MessageHandler) DeleteMessage(c echo.Context) error {
	id := c.Param("id")
	kind := models.MessageKind(c.QueryParam("kind"))
	if kind != models.KindTeam && kind != models.KindDirect {
		return Error(c, http.StatusBadRequest, "VALIDATION_FAILURE", "unknown message kind")
	}

	if err := h.messages.Delete(c.Request().Context(), kind, id); err != nil {
		return serviceError(c, service.FromBackend(err))
	}
	return c.NoContent(http.StatusNoContent)
}

type typingRequest struct {
	Topic string `json:"topic"`
}

// Typing marks the caller as typing in a conversation.
func (h *MessageHandler) Typing(c echo.Context) error {
	var req typingRequest
	if err := c.Bind(&req); err != nil || req.Topic == "" {
		return Error(c, http.StatusBadRequest, "VALIDATION_FAILURE", "topic required")
	}
	if err := h.redis.SetTyping(c.Request().Context(), req.Topic, auth.GetUserID(c)); err != nil {
		return serviceError(c, service.NetworkFailure("typing state unavailable"))
	}
	return c.NoContent(http.StatusNoContent)
}

// GetTyping returns who is currently typing in a conversation.
func (h *MessageHandler) GetTyping(c echo.Context) error {
	topic := c.QueryParam("topic")
	if topic == "" {
		return Error(c, http.StatusBadRequest, "VALIDATION_FAILURE", "topic required")
	}
	users, err := h.redis.GetTyping(c.Request().Context(), topic)
	if err != nil {
		return serviceError(c, service.NetworkFailure("typing state unavailable"))
	}
	if users == nil {
		users = []string{}
	}
	return successJSON(c, http.StatusOK, users)
}

func (h *MessageHandler) hydrate(ctx context.Context, history []models.Message) []models.Message {
	for i := range history {
		h.hydrateOne(ctx, &history[i])
	}
	if history == nil {
		history = []models.Message{}
	}
	return history
}

func (h *MessageHandler) hydrateOne(ctx context.Context, msg *models.Message) {
	if h.resolver == nil || msg.AttachmentPath == nil {
		return
	}
	msg.Attachment = h.resolver.Resolve(ctx, *msg.AttachmentPath, msg.AttachmentKind)
}
