package models

import "time"

// MessageKind distinguishes the two message stores.
type MessageKind string

const (
	KindTeam   MessageKind = "team"
	KindDirect MessageKind = "direct"
)

// Message is a single chat message, team-wide or 1:1 direct.
// IDs are client-generated UUIDs so an optimistic local record and its
// persisted counterpart share the same identity.
type Message struct {
	ID           string          `json:"id"`
	Kind         MessageKind     `json:"kind"`
	TeamID       string          `json:"team_id"`
	SenderID     string          `json:"sender_id"`
	RecipientID  string          `json:"recipient_id,omitempty"` // direct only
	Internal     bool            `json:"internal,omitempty"`     // team only
	SubmissionID *string         `json:"submission_id,omitempty"`
	Body         string          `json:"body"`
	AttachmentPath *string       `json:"attachment_path,omitempty"`
	AttachmentKind *string       `json:"attachment_kind,omitempty"`
	IsRevised    bool            `json:"is_revised,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`

	// Attachment is derived at fetch time by the resolver; never persisted.
	Attachment *AttachmentMeta `json:"attachment,omitempty"`

	// Pending marks a provisional record that has not been confirmed by the
	// backend yet.
	Pending bool `json:"pending,omitempty"`
}

// Before reports whether m sorts before other: ascending created_at,
// tiebreak by id.
func (m *Message) Before(other *Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.Before(other.CreatedAt)
	}
	return m.ID < other.ID
}

// ConversationRef identifies one conversation surface within a team.
type ConversationRef struct {
	TeamID       string
	PeerID       string // non-empty for a 1:1 direct conversation
	SubmissionID string // non-empty for a per-submission discussion thread
}

// IsDirect reports whether the ref names a 1:1 direct conversation.
func (r ConversationRef) IsDirect() bool {
	return r.PeerID != ""
}

// Topic returns the realtime channel key for this conversation.
func (r ConversationRef) Topic() string {
	switch {
	case r.PeerID != "":
		return "dm:" + r.TeamID + ":" + r.PeerID
	case r.SubmissionID != "":
		return "submission:" + r.TeamID + ":" + r.SubmissionID
	default:
		return "team:" + r.TeamID
	}
}
