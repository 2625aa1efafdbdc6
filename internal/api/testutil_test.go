package api

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/fieldtrace/fieldtrace/internal/models"
)

func newTestContext(method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

func setAuthUser(c echo.Context, userID, teamID string) {
	c.Set("user_id", userID)
	c.Set("team_id", teamID)
}

// ---------------------------------------------------------------------------
// Mock message repository
// ---------------------------------------------------------------------------

type mockMessageRepo struct {
	FetchTeamHistoryFn     func(ctx context.Context, teamID string, limit int) ([]models.Message, error)
	FetchSubmissionThreadFn func(ctx context.Context, teamID, submissionID string, limit int) ([]models.Message, error)
	FetchDirectHistoryFn   func(ctx context.Context, teamID, selfID, peerID string, limit int) ([]models.Message, error)
	InsertFn               func(ctx context.Context, msg *models.Message) error
	ReviseFn               func(ctx context.Context, kind models.MessageKind, id, body string) error
	DeleteFn               func(ctx context.Context, kind models.MessageKind, id string) error
}

func (m *mockMessageRepo) FetchTeamHistory(ctx context.Context, teamID string, limit int) ([]models.Message, error) {
	if m.FetchTeamHistoryFn != nil {
		return m.FetchTeamHistoryFn(ctx, teamID, limit)
	}
	return nil, nil
}

func (m *mockMessageRepo) FetchSubmissionThread(ctx context.Context, teamID, submissionID string, limit int) ([]models.Message, error) {
	if m.FetchSubmissionThreadFn != nil {
		return m.FetchSubmissionThreadFn(ctx, teamID, submissionID, limit)
	}
	return nil, nil
}

func (m *mockMessageRepo) FetchDirectHistory(ctx context.Context, teamID, selfID, peerID string, limit int) ([]models.Message, error) {
	if m.FetchDirectHistoryFn != nil {
		return m.FetchDirectHistoryFn(ctx, teamID, selfID, peerID, limit)
	}
	return nil, nil
}

func (m *mockMessageRepo) Insert(ctx context.Context, msg *models.Message) error {
	if m.InsertFn != nil {
		return m.InsertFn(ctx, msg)
	}
	return nil
}

func (m *mockMessageRepo) Revise(ctx context.Context, kind models.MessageKind, id, body string) error {
	if m.ReviseFn != nil {
		return m.ReviseFn(ctx, kind, id, body)
	}
	return nil
}

func (m *mockMessageRepo) Delete(ctx context.Context, kind models.MessageKind, id string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, kind, id)
	}
	return nil
}

func mustNil(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
