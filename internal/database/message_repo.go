package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/fieldtrace/fieldtrace/internal/models"
)

type messageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepo{pool: pool}
}

const teamMessageColumns = `id, team_id, sender_id, body, internal, submission_id,
       attachment_path, attachment_kind, is_revised, created_at`

const directMessageColumns = `id, team_id, sender_id, recipient_id, body,
       attachment_path, attachment_kind, is_revised, created_at`

func (r *messageRepo) FetchTeamHistory(ctx context.Context, teamID string, limit int) ([]models.Message, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+teamMessageColumns+`
		 FROM team_messages
		 WHERE team_id = $1 AND internal AND submission_id IS NULL
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		teamID, limit,
	)
	if err != nil {
		return nil, err
	}
	return scanTeamMessages(rows)
}

func (r *messageRepo) FetchSubmissionThread(ctx context.Context, teamID, submissionID string, limit int) ([]models.Message, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+teamMessageColumns+`
		 FROM team_messages
		 WHERE team_id = $1 AND submission_id = $2
		 ORDER BY created_at DESC, id DESC
		 LIMIT $3`,
		teamID, submissionID, limit,
	)
	if err != nil {
		return nil, err
	}
	return scanTeamMessages(rows)
}

func (r *messageRepo) FetchDirectHistory(ctx context.Context, teamID, selfID, peerID string, limit int) ([]models.Message, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+directMessageColumns+`
		 FROM direct_messages
		 WHERE team_id = $1
		   AND ((sender_id = $2 AND recipient_id = $3) OR (sender_id = $3 AND recipient_id = $2))
		 ORDER BY created_at DESC, id DESC
		 LIMIT $4`,
		teamID, selfID, peerID, limit,
	)
	if err != nil {
		return nil, err
	}

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		m.Kind = models.KindDirect
		if err := rows.Scan(
			&m.ID, &m.TeamID, &m.SenderID, &m.RecipientID, &m.Body,
			&m.AttachmentPath, &m.AttachmentKind, &m.IsRevised, &m.CreatedAt,
		); err != nil {
			rows.Close()
			return nil, err
		}
		messages = append(messages, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	reverseInPlace(messages)
	return messages, nil
}

func (r *messageRepo) Insert(ctx context.Context, msg *models.Message) error {
	if msg.Kind == models.KindDirect {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO direct_messages (id, team_id, sender_id, recipient_id, body,
			        attachment_path, attachment_kind, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			msg.ID, msg.TeamID, msg.SenderID, msg.RecipientID, msg.Body,
			msg.AttachmentPath, msg.AttachmentKind, msg.CreatedAt,
		)
		return err
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO team_messages (id, team_id, sender_id, body, internal, submission_id,
		        attachment_path, attachment_kind, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		msg.ID, msg.TeamID, msg.SenderID, msg.Body, msg.Internal, msg.SubmissionID,
		msg.AttachmentPath, msg.AttachmentKind, msg.CreatedAt,
	)
	return err
}

func (r *messageRepo) Revise(ctx context.Context, kind models.MessageKind, id, body string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE `+tableFor(kind)+` SET body = $2, is_revised = TRUE WHERE id = $1`,
		id, body,
	)
	return err
}

func (r *messageRepo) Delete(ctx context.Context, kind models.MessageKind, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM `+tableFor(kind)+` WHERE id = $1`, id)
	return err
}

func tableFor(kind models.MessageKind) string {
	if kind == models.KindDirect {
		return "direct_messages"
	}
	return "team_messages"
}

func scanTeamMessages(rows pgx.Rows) ([]models.Message, error) {
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		m.Kind = models.KindTeam
		if err := rows.Scan(
			&m.ID, &m.TeamID, &m.SenderID, &m.Body, &m.Internal, &m.SubmissionID,
			&m.AttachmentPath, &m.AttachmentKind, &m.IsRevised, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	reverseInPlace(messages)
	return messages, nil
}

// reverseInPlace flips newest-first query results into the ascending
// presentation order.
func reverseInPlace(messages []models.Message) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}
