package database

import (
	"context"

	"github.com/fieldtrace/fieldtrace/internal/models"
)

// MessageRepository translates between the Message shape and backend rows
// for both message stores. History queries return ascending (created_at, id)
// order, bounded to the newest rows.
type MessageRepository interface {
	// FetchTeamHistory returns the team-chat surface: internal rows with no
	// submission scope.
	FetchTeamHistory(ctx context.Context, teamID string, limit int) ([]models.Message, error)
	// FetchSubmissionThread returns the per-submission discussion view of
	// the same store.
	FetchSubmissionThread(ctx context.Context, teamID, submissionID string, limit int) ([]models.Message, error)
	// FetchDirectHistory returns the 1:1 history between self and peer
	// within a team.
	FetchDirectHistory(ctx context.Context, teamID, selfID, peerID string, limit int) ([]models.Message, error)
	// Insert persists a message with its client-supplied id into the
	// correct store. The attachment path must already be a durable storage
	// reference.
	Insert(ctx context.Context, msg *models.Message) error
	// Revise replaces a message body and marks the row as superseded.
	Revise(ctx context.Context, kind models.MessageKind, id, body string) error
	// Delete removes a message row.
	Delete(ctx context.Context, kind models.MessageKind, id string) error
}
