package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/fieldtrace/fieldtrace/internal/models"
	"github.com/fieldtrace/fieldtrace/internal/preview"
)

// PreviewHandler renders bounded document previews.
type PreviewHandler struct {
	previews *preview.Service
}

func NewPreviewHandler(previews *preview.Service) *PreviewHandler {
	return &PreviewHandler{previews: previews}
}

type previewRequest struct {
	MessageID string `json:"message_id"`
	Ref       string `json:"ref"`
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	URL       string `json:"url"`
}

// Render builds a preview for an attachment. With a message id the remote
// renderer is used; otherwise the attachment URL is parsed on this host.
func (h *PreviewHandler) Render(c echo.Context) error {
	var req previewRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "VALIDATION_FAILURE", "invalid request body")
	}
	if req.URL == "" && req.MessageID == "" {
		return Error(c, http.StatusBadRequest, "VALIDATION_FAILURE", "message_id or url required")
	}

	var hint *string
	if req.Kind != "" {
		hint = &req.Kind
	}
	att := &models.AttachmentMeta{
		URL:  req.URL,
		Kind: models.InferAttachmentKind(hint, req.Name),
		Name: req.Name,
	}

	result, err := h.previews.Render(c.Request().Context(), req.MessageID, att)
	if err != nil {
		return serviceError(c, err)
	}
	return successJSON(c, http.StatusOK, result)
}
