package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/fieldtrace/fieldtrace/internal/auth"
	"github.com/fieldtrace/fieldtrace/internal/service"
)

// AttachmentHandler serves uploads and reference resolution.
type AttachmentHandler struct {
	uploader *service.AttachmentUploader
	resolver *service.AttachmentResolver
}

func NewAttachmentHandler(uploader *service.AttachmentUploader, resolver *service.AttachmentResolver) *AttachmentHandler {
	return &AttachmentHandler{uploader: uploader, resolver: resolver}
}

// Upload stores a multipart file and returns its durable storage key.
func (h *AttachmentHandler) Upload(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return Error(c, http.StatusBadRequest, "VALIDATION_FAILURE", "file field required")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return Error(c, http.StatusBadRequest, "VALIDATION_FAILURE", "unreadable file")
	}
	defer src.Close()

	key, err := h.uploader.Upload(c.Request().Context(), auth.GetTeamID(c), &service.OutgoingAttachment{
		Name:        fileHeader.Filename,
		Size:        fileHeader.Size,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Reader:      src,
	})
	if err != nil {
		return serviceError(c, err)
	}

	return successJSON(c, http.StatusCreated, map[string]string{"storage_key": key})
}

// Resolve maps a stored reference to a time-bounded URL. An unresolvable
// reference answers with a null attachment rather than an error.
func (h *AttachmentHandler) Resolve(c echo.Context) error {
	ref := c.QueryParam("ref")
	if ref == "" {
		return Error(c, http.StatusBadRequest, "VALIDATION_FAILURE", "ref required")
	}
	var hint *string
	if k := c.QueryParam("kind"); k != "" {
		hint = &k
	}

	meta := h.resolver.Resolve(c.Request().Context(), ref, hint)
	return successJSON(c, http.StatusOK, meta)
}
