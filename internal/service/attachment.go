package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/fieldtrace/fieldtrace/internal/models"
)

// signedURLTTL is the multi-hour expiry on issued attachment URLs. Issued
// URLs are never cached across restarts.
const signedURLTTL = 4 * time.Hour

const maxUploadSize = 10 << 20 // 10 MB

// ObjectSigner issues time-bounded signed URLs per bucket and key.
type ObjectSigner interface {
	SignURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// ObjectStore uploads objects into a bucket.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error
}

// AttachmentResolver turns a stored attachment reference into a fetchable,
// time-bounded URL. A stored URL is a hint, not a guarantee of current
// fetchability: tokens on old signed URLs expire, so recognized-host URLs
// are re-derived and re-signed.
type AttachmentResolver struct {
	signer ObjectSigner
	host   string
	// Candidate buckets for bare keys, tried in order: legacy first, then
	// current.
	buckets []string
}

// NewAttachmentResolver creates a resolver. host is the recognized storage
// host; legacy and current are the ordered candidate buckets for bare keys.
func NewAttachmentResolver(signer ObjectSigner, host, legacy, current string) *AttachmentResolver {
	return &AttachmentResolver{
		signer:  signer,
		host:    host,
		buckets: []string{legacy, current},
	}
}

// Resolve maps a stored reference to attachment metadata. Resolution failure
// degrades to a nil result the caller shows as "unavailable"; one broken
// attachment must not fail a whole history fetch.
func (r *AttachmentResolver) Resolve(ctx context.Context, ref string, kindHint *string) *models.AttachmentMeta {
	name := path.Base(strings.TrimSuffix(ref, "/"))
	if u, err := url.Parse(ref); err == nil && u.IsAbs() {
		name = path.Base(u.Path)
	}
	kind := models.InferAttachmentKind(kindHint, name)

	resolved := r.resolveURL(ctx, ref)
	if resolved == "" {
		slog.Debug("attachment resolution failed", "ref", ref)
		return nil
	}

	return &models.AttachmentMeta{
		URL:  resolved,
		Kind: kind,
		Name: name,
	}
}

func (r *AttachmentResolver) resolveURL(ctx context.Context, ref string) string {
	u, err := url.Parse(ref)
	if err == nil && u.IsAbs() {
		if u.Host != r.host || isPresigned(u) {
			// Unrecognized host, or a URL that already carries a token:
			// pass through unchanged.
			return ref
		}
		bucket, key, ok := splitObjectPath(u.Path)
		if !ok {
			return ""
		}
		signed, err := r.signer.SignURL(ctx, bucket, key, signedURLTTL)
		if err != nil {
			return ""
		}
		return signed
	}

	// Bare key: try each candidate bucket in order, first success wins.
	key := strings.TrimPrefix(ref, "/")
	for _, bucket := range r.buckets {
		signed, err := r.signer.SignURL(ctx, bucket, key, signedURLTTL)
		if err == nil {
			return signed
		}
	}
	return ""
}

// isPresigned reports whether a URL already carries a pre-signed token.
func isPresigned(u *url.URL) bool {
	q := u.Query()
	return q.Get("X-Amz-Signature") != "" || q.Get("token") != ""
}

// splitObjectPath derives {bucket, key} from a storage-host URL path.
func splitObjectPath(p string) (bucket, key string, ok bool) {
	p = strings.TrimPrefix(p, "/")
	bucket, key, found := strings.Cut(p, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

// OutgoingAttachment is a file picked by the user for an outbound send.
type OutgoingAttachment struct {
	Name        string
	Size        int64
	ContentType string
	Reader      io.Reader
}

// AttachmentUploader stores outgoing attachments and returns the durable
// storage key that gets persisted on the message row.
type AttachmentUploader struct {
	store  ObjectStore
	bucket string
}

func NewAttachmentUploader(store ObjectStore, bucket string) *AttachmentUploader {
	return &AttachmentUploader{store: store, bucket: bucket}
}

// Upload stores the attachment under a fresh key scoped to the team.
func (u *AttachmentUploader) Upload(ctx context.Context, teamID string, att *OutgoingAttachment) (string, error) {
	if att.Size > maxUploadSize {
		return "", ValidationFailure("attachment must be under 10 MB")
	}

	key := fmt.Sprintf("teams/%s/%s/%s", teamID, uuid.NewString(), filepath.Base(att.Name))
	if err := u.store.Upload(ctx, u.bucket, key, att.Reader, att.Size, att.ContentType); err != nil {
		return "", NetworkFailure("attachment upload failed")
	}
	return key, nil
}
