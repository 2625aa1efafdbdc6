package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldtrace/fieldtrace/internal/models"
)

// testPool returns a pgxpool.Pool connected to the test database.
// It skips the test if DATABASE_URL is not set.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connecting to test database: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	return pool
}

// insertTeamMessage persists a team message at the given offset from base and
// registers cleanup. Timestamps are truncated to the microsecond to match
// Postgres precision.
func insertTeamMessage(t *testing.T, pool *pgxpool.Pool, repo MessageRepository, teamID string, offset time.Duration, internal bool, submissionID *string) *models.Message {
	t.Helper()
	msg := &models.Message{
		ID:           uuid.NewString(),
		Kind:         models.KindTeam,
		TeamID:       teamID,
		SenderID:     uuid.NewString(),
		Internal:     internal,
		SubmissionID: submissionID,
		Body:         "body " + uuid.NewString()[:8],
		CreatedAt:    time.Now().Add(offset).UTC().Truncate(time.Microsecond),
	}
	if err := repo.Insert(context.Background(), msg); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	t.Cleanup(func() { cleanupMessage(t, pool, "team_messages", msg.ID) })
	return msg
}

func insertDirectMessage(t *testing.T, pool *pgxpool.Pool, repo MessageRepository, teamID, senderID, recipientID string, offset time.Duration) *models.Message {
	t.Helper()
	msg := &models.Message{
		ID:          uuid.NewString(),
		Kind:        models.KindDirect,
		TeamID:      teamID,
		SenderID:    senderID,
		RecipientID: recipientID,
		Body:        "body " + uuid.NewString()[:8],
		CreatedAt:   time.Now().Add(offset).UTC().Truncate(time.Microsecond),
	}
	if err := repo.Insert(context.Background(), msg); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	t.Cleanup(func() { cleanupMessage(t, pool, "direct_messages", msg.ID) })
	return msg
}

func cleanupMessage(t *testing.T, pool *pgxpool.Pool, table, id string) {
	t.Helper()
	_, err := pool.Exec(context.Background(), "DELETE FROM "+table+" WHERE id = $1", id)
	if err != nil {
		t.Logf("cleanupMessage: %v", err)
	}
}
