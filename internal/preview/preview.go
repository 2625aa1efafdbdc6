package preview

import (
	"context"

	"github.com/fieldtrace/fieldtrace/internal/models"
	"github.com/fieldtrace/fieldtrace/internal/service"
)

// Service routes a preview request to the right renderer. The remote path is
// preferred whenever a message identity exists: it offloads parsing and also
// covers kinds the device cannot parse. With no message identity there is
// nothing for the server to look up, so the local builder takes over.
type Service struct {
	Local  *LocalBuilder
	Remote *RemoteClient
}

func NewService(local *LocalBuilder, remote *RemoteClient) *Service {
	return &Service{Local: local, Remote: remote}
}

// Render builds a preview for the attachment, optionally tied to a message.
func (s *Service) Render(ctx context.Context, messageID string, att *models.AttachmentMeta) (*models.PreviewResult, error) {
	if att == nil || att.URL == "" {
		return nil, service.PreviewUnavailable("attachment unavailable")
	}
	if messageID != "" && s.Remote != nil {
		return s.Remote.Render(ctx, att.Kind, messageID)
	}
	if s.Local == nil {
		return nil, service.PreviewUnavailable("no local renderer configured")
	}
	return s.Local.Build(ctx, att)
}
