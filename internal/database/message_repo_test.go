package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fieldtrace/fieldtrace/internal/models"
)

func TestMessageRepo_FetchTeamHistory_Ascending(t *testing.T) {
	pool := testPool(t)
	repo := NewMessageRepository(pool)
	teamID := uuid.NewString()

	first := insertTeamMessage(t, pool, repo, teamID, -2*time.Minute, true, nil)
	second := insertTeamMessage(t, pool, repo, teamID, -time.Minute, true, nil)
	third := insertTeamMessage(t, pool, repo, teamID, 0, true, nil)

	got, err := repo.FetchTeamHistory(context.Background(), teamID, 100)
	if err != nil {
		t.Fatalf("FetchTeamHistory: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got))
	}
	for i, want := range []*models.Message{first, second, third} {
		if got[i].ID != want.ID {
			t.Errorf("position %d: expected %s, got %s", i, want.ID, got[i].ID)
		}
	}
	if got[0].Kind != models.KindTeam {
		t.Errorf("expected team kind, got %s", got[0].Kind)
	}
}

func TestMessageRepo_FetchTeamHistory_ExcludesNonTeamSurface(t *testing.T) {
	pool := testPool(t)
	repo := NewMessageRepository(pool)
	teamID := uuid.NewString()
	submissionID := uuid.NewString()

	visible := insertTeamMessage(t, pool, repo, teamID, 0, true, nil)
	insertTeamMessage(t, pool, repo, teamID, 0, false, nil)           // external
	insertTeamMessage(t, pool, repo, teamID, 0, true, &submissionID) // thread-scoped

	got, err := repo.FetchTeamHistory(context.Background(), teamID, 100)
	if err != nil {
		t.Fatalf("FetchTeamHistory: %v", err)
	}
	if len(got) != 1 || got[0].ID != visible.ID {
		t.Fatalf("expected only the internal unscoped message, got %d rows", len(got))
	}
}

func TestMessageRepo_FetchTeamHistory_LimitKeepsNewest(t *testing.T) {
	pool := testPool(t)
	repo := NewMessageRepository(pool)
	teamID := uuid.NewString()

	insertTeamMessage(t, pool, repo, teamID, -3*time.Minute, true, nil)
	second := insertTeamMessage(t, pool, repo, teamID, -2*time.Minute, true, nil)
	third := insertTeamMessage(t, pool, repo, teamID, -time.Minute, true, nil)

	got, err := repo.FetchTeamHistory(context.Background(), teamID, 2)
	if err != nil {
		t.Fatalf("FetchTeamHistory: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got))
	}
	// The limit trims the oldest; survivors stay ascending.
	if got[0].ID != second.ID || got[1].ID != third.ID {
		t.Errorf("expected [%s %s], got [%s %s]", second.ID, third.ID, got[0].ID, got[1].ID)
	}
}

func TestMessageRepo_FetchSubmissionThread(t *testing.T) {
	pool := testPool(t)
	repo := NewMessageRepository(pool)
	teamID := uuid.NewString()
	submissionID := uuid.NewString()
	otherSubmission := uuid.NewString()

	scoped := insertTeamMessage(t, pool, repo, teamID, 0, true, &submissionID)
	insertTeamMessage(t, pool, repo, teamID, 0, true, &otherSubmission)
	insertTeamMessage(t, pool, repo, teamID, 0, true, nil)

	got, err := repo.FetchSubmissionThread(context.Background(), teamID, submissionID, 100)
	if err != nil {
		t.Fatalf("FetchSubmissionThread: %v", err)
	}
	if len(got) != 1 || got[0].ID != scoped.ID {
		t.Fatalf("expected only the scoped message, got %d rows", len(got))
	}
}

func TestMessageRepo_FetchDirectHistory_BothDirections(t *testing.T) {
	pool := testPool(t)
	repo := NewMessageRepository(pool)
	teamID := uuid.NewString()
	alice := uuid.NewString()
	bob := uuid.NewString()
	carol := uuid.NewString()

	out := insertDirectMessage(t, pool, repo, teamID, alice, bob, -time.Minute)
	in := insertDirectMessage(t, pool, repo, teamID, bob, alice, 0)
	insertDirectMessage(t, pool, repo, teamID, alice, carol, 0)
	insertDirectMessage(t, pool, repo, teamID, carol, bob, 0)

	got, err := repo.FetchDirectHistory(context.Background(), teamID, alice, bob, 100)
	if err != nil {
		t.Fatalf("FetchDirectHistory: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 messages for the pair, got %d", len(got))
	}
	if got[0].ID != out.ID || got[1].ID != in.ID {
		t.Errorf("expected ascending [%s %s], got [%s %s]", out.ID, in.ID, got[0].ID, got[1].ID)
	}
	if got[0].Kind != models.KindDirect {
		t.Errorf("expected direct kind, got %s", got[0].Kind)
	}
}

func TestMessageRepo_ReviseMarksMessage(t *testing.T) {
	pool := testPool(t)
	repo := NewMessageRepository(pool)
	teamID := uuid.NewString()

	msg := insertTeamMessage(t, pool, repo, teamID, 0, true, nil)

	if err := repo.Revise(context.Background(), models.KindTeam, msg.ID, "corrected reading"); err != nil {
		t.Fatalf("Revise: %v", err)
	}

	got, err := repo.FetchTeamHistory(context.Background(), teamID, 100)
	if err != nil {
		t.Fatalf("FetchTeamHistory: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got))
	}
	if got[0].Body != "corrected reading" || !got[0].IsRevised {
		t.Errorf("expected revised body, got %+v", got[0])
	}
}

func TestMessageRepo_Delete(t *testing.T) {
	pool := testPool(t)
	repo := NewMessageRepository(pool)
	teamID := uuid.NewString()

	msg := insertTeamMessage(t, pool, repo, teamID, 0, true, nil)

	if err := repo.Delete(context.Background(), models.KindTeam, msg.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	got, err := repo.FetchTeamHistory(context.Background(), teamID, 100)
	if err != nil {
		t.Fatalf("FetchTeamHistory: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no messages after delete, got %d", len(got))
	}
}
