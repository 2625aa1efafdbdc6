package preview

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fieldtrace/fieldtrace/internal/models"
	"github.com/fieldtrace/fieldtrace/internal/retry"
	"github.com/fieldtrace/fieldtrace/internal/service"
)

const (
	remoteMaxAttempts = 3
	remoteBaseDelay   = 500 * time.Millisecond
)

// RemoteClient requests a server-rendered preview package. The server can
// parse kinds the device cannot, notably word-processor and presentation
// formats through an office viewer.
type RemoteClient struct {
	endpoint string
	token    string
	client   *http.Client
	policy   retry.Policy
}

func NewRemoteClient(endpoint, token string) *RemoteClient {
	return &RemoteClient{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: 30 * time.Second},
		policy: retry.Policy{
			MaxAttempts: remoteMaxAttempts,
			BaseDelay:   remoteBaseDelay,
			Retryable:   isTransientStatus,
		},
	}
}

type remoteRequest struct {
	Kind    string `json:"kind"`
	ID      string `json:"id"`
	MaxRows int    `json:"max_rows"`
	MaxCols int    `json:"max_cols"`
}

type remoteResponse struct {
	OK             bool   `json:"ok"`
	Mode           string `json:"mode"`
	HTML           string `json:"html"`
	URL            string `json:"url"`
	Title          string `json:"title"`
	OfficeEmbedURL string `json:"officeEmbedUrl"`
	Error          string `json:"error"`
}

// transientStatusError marks an upstream status worth another attempt.
type transientStatusError struct {
	status int
}

func (e *transientStatusError) Error() string {
	return fmt.Sprintf("preview upstream returned %d", e.status)
}

func isTransientStatus(err error) bool {
	var tse *transientStatusError
	return errors.As(err, &tse)
}

// Render asks the server to render a preview for the attachment on the given
// message. 502/503/504/546 responses are retried with exponential backoff up
// to 3 attempts; every other failure is terminal.
func (c *RemoteClient) Render(ctx context.Context, kind models.AttachmentKind, messageID string) (*models.PreviewResult, error) {
	body, err := json.Marshal(remoteRequest{
		Kind:    string(kind),
		ID:      messageID,
		MaxRows: maxRows,
		MaxCols: maxCols,
	})
	if err != nil {
		return nil, service.Internal("preview request encode failed")
	}

	var result *models.PreviewResult
	err = c.policy.Do(ctx, func(ctx context.Context) error {
		result, err = c.attempt(ctx, body)
		return err
	})
	if err != nil {
		if isTransientStatus(err) {
			return nil, service.RetryExhausted("preview renderer unavailable after 3 attempts")
		}
		return nil, service.FromBackend(err)
	}
	return result, nil
}

func (c *RemoteClient) attempt(ctx context.Context, body []byte) (*models.PreviewResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, service.Internal("preview request build failed")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, service.NetworkFailure("preview renderer unreachable")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusBadGateway, http.StatusServiceUnavailable,
		http.StatusGatewayTimeout, 546:
		return nil, &transientStatusError{status: resp.StatusCode}
	case http.StatusUnauthorized:
		return nil, service.NotAuthenticated("preview renderer rejected credentials")
	case http.StatusForbidden:
		return nil, service.Unauthorized("preview renderer denied access")
	default:
		return nil, service.PreviewUnavailable(
			fmt.Sprintf("preview renderer returned %d", resp.StatusCode))
	}

	var decoded remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, service.PreviewUnavailable("undecodable preview response")
	}
	if !decoded.OK {
		return nil, service.PreviewUnavailable(decoded.Error)
	}

	result := &models.PreviewResult{Title: decoded.Title}
	switch models.PreviewMode(decoded.Mode) {
	case models.PreviewHTML:
		result.Mode = models.PreviewHTML
		result.HTML = decoded.HTML
	case models.PreviewURL:
		result.Mode = models.PreviewURL
		result.URL = decoded.URL
		result.OfficeEmbedURL = decoded.OfficeEmbedURL
	default:
		return nil, service.PreviewUnavailable("unknown preview mode " + decoded.Mode)
	}
	return result, nil
}
