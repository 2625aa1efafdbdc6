package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/fieldtrace/fieldtrace/internal/database"
	"github.com/fieldtrace/fieldtrace/internal/models"
	"github.com/fieldtrace/fieldtrace/internal/realtime"
)

const (
	directHistoryLimit = 200
	teamHistoryLimit   = 100
	maxBodyLength      = 4000
)

// ChangeFeed opens change-feed channels. The concrete realtime.Manager
// implements this interface.
type ChangeFeed interface {
	Subscribe(topic, table, filter string, handler func(realtime.Event)) (*realtime.Subscription, error)
}

// ConversationDeps are the collaborators a conversation needs.
type ConversationDeps struct {
	Repo     database.MessageRepository
	Resolver *AttachmentResolver
	Uploader *AttachmentUploader
	Feed     ChangeFeed
	SelfID   string
	// OnChange, if set, receives a snapshot after every list mutation.
	OnChange func([]models.Message)
}

// Conversation presents one ordered, deduplicated message list for a single
// conversation and runs optimistic-then-reconciled sends. The list is the
// only shared mutable state; every mutation goes through c.mu.
type Conversation struct {
	deps ConversationDeps
	ref  models.ConversationRef

	mu       sync.Mutex
	messages []models.Message
	sub      *realtime.Subscription
	closed   bool
}

// OpenConversation loads bounded history, hydrates attachments, opens one
// realtime subscription, and returns a live view.
func OpenConversation(ctx context.Context, deps ConversationDeps, ref models.ConversationRef) (*Conversation, error) {
	var (
		history []models.Message
		err     error
	)
	switch {
	case ref.IsDirect():
		history, err = deps.Repo.FetchDirectHistory(ctx, ref.TeamID, deps.SelfID, ref.PeerID, directHistoryLimit)
	case ref.SubmissionID != "":
		history, err = deps.Repo.FetchSubmissionThread(ctx, ref.TeamID, ref.SubmissionID, teamHistoryLimit)
	default:
		history, err = deps.Repo.FetchTeamHistory(ctx, ref.TeamID, teamHistoryLimit)
	}
	if err != nil {
		return nil, FromBackend(err)
	}

	for i := range history {
		hydrateAttachment(ctx, deps.Resolver, &history[i])
	}

	c := &Conversation{
		deps:     deps,
		ref:      ref,
		messages: history,
	}
	c.sortLocked()

	table := "team_messages"
	if ref.IsDirect() {
		table = "direct_messages"
	}
	// The feed filter language cannot express the OR-of-two-pairs predicate
	// for direct messages, so the server filters by team only and the
	// participant check runs client-side in matches.
	sub, err := deps.Feed.Subscribe(ref.Topic(), table, "team_id=eq."+ref.TeamID, c.handleEvent)
	if err != nil {
		return nil, NetworkFailure("could not open realtime channel")
	}
	c.sub = sub

	return c, nil
}

// Messages returns a snapshot of the ordered list.
func (c *Conversation) Messages() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Send appends a provisional message immediately, then persists it. On
// success the provisional record is replaced in place by id; on any failure
// it is removed and the error surfaced. A failed attachment upload aborts the
// whole send, so a body-only message never appears.
func (c *Conversation) Send(ctx context.Context, body string, att *OutgoingAttachment) (*models.Message, error) {
	if body == "" && att == nil {
		return nil, ValidationFailure("message must have a body or an attachment")
	}
	if len(body) > maxBodyLength {
		return nil, ValidationFailure("message body too long")
	}
	if c.deps.SelfID == "" {
		return nil, NotAuthenticated("no authenticated sender")
	}

	msg := models.Message{
		ID:        uuid.NewString(),
		TeamID:    c.ref.TeamID,
		SenderID:  c.deps.SelfID,
		Body:      body,
		CreatedAt: time.Now().UTC(),
		Pending:   true,
	}
	if c.ref.IsDirect() {
		msg.Kind = models.KindDirect
		msg.RecipientID = c.ref.PeerID
	} else {
		msg.Kind = models.KindTeam
		msg.Internal = true
		if c.ref.SubmissionID != "" {
			sid := c.ref.SubmissionID
			msg.SubmissionID = &sid
		}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, Internal("conversation closed")
	}
	c.insertLocked(msg)
	c.notifyLocked()
	c.mu.Unlock()

	if att != nil {
		key, err := c.deps.Uploader.Upload(ctx, c.ref.TeamID, att)
		if err != nil {
			c.rollback(msg.ID)
			return nil, FromBackend(err)
		}
		kind := string(models.InferAttachmentKind(nil, att.Name))
		msg.AttachmentPath = &key
		msg.AttachmentKind = &kind
	}

	if err := c.deps.Repo.Insert(ctx, &msg); err != nil {
		c.rollback(msg.ID)
		return nil, FromBackend(err)
	}

	msg.Pending = false
	hydrateAttachment(ctx, c.deps.Resolver, &msg)

	c.mu.Lock()
	if !c.closed {
		c.reconcileLocked(msg)
		c.notifyLocked()
	}
	c.mu.Unlock()

	return &msg, nil
}

// Revise replaces a message body, marking the row as superseded. The local
// list is updated immediately; the echoed feed UPDATE is absorbed as a no-op.
func (c *Conversation) Revise(ctx context.Context, id, body string) error {
	if body == "" || len(body) > maxBodyLength {
		return ValidationFailure("revised body must be 1-4000 characters")
	}

	c.mu.Lock()
	idx := c.indexLocked(id)
	if idx < 0 {
		c.mu.Unlock()
		return NotFound("message not found")
	}
	if c.messages[idx].SenderID != c.deps.SelfID {
		c.mu.Unlock()
		return Unauthorized("only the sender can revise a message")
	}
	kind := c.messages[idx].Kind
	c.mu.Unlock()

	if err := c.deps.Repo.Revise(ctx, kind, id, body); err != nil {
		return FromBackend(err)
	}

	c.mu.Lock()
	if idx := c.indexLocked(id); idx >= 0 {
		c.messages[idx].Body = body
		c.messages[idx].IsRevised = true
		c.notifyLocked()
	}
	c.mu.Unlock()
	return nil
}

// Delete removes a message. The local entry goes away immediately; the
// echoed feed DELETE is absorbed as a no-op.
func (c *Conversation) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	idx := c.indexLocked(id)
	if idx < 0 {
		c.mu.Unlock()
		return NotFound("message not found")
	}
	if c.messages[idx].SenderID != c.deps.SelfID {
		c.mu.Unlock()
		return Unauthorized("only the sender can delete a message")
	}
	kind := c.messages[idx].Kind
	c.mu.Unlock()

	if err := c.deps.Repo.Delete(ctx, kind, id); err != nil {
		return FromBackend(err)
	}

	c.mu.Lock()
	c.removeLocked(id)
	c.notifyLocked()
	c.mu.Unlock()
	return nil
}

// Close releases the realtime subscription. Events delivered after Close
// are dropped.
func (c *Conversation) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	sub := c.sub
	c.mu.Unlock()

	if sub != nil {
		return sub.Close()
	}
	return nil
}

// handleEvent merges one normalized feed event into the list. The merge is
// idempotent and commutative with optimistic reconciliation: whichever of
// {insert response, feed echo} lands first wins by id, the other is a no-op.
func (c *Conversation) handleEvent(ev realtime.Event) {
	payload := ev.New
	if ev.Type == realtime.EventDelete {
		payload = ev.Old
	}

	var row models.Message
	if err := json.Unmarshal(payload, &row); err != nil {
		slog.Warn("undecodable feed payload", "topic", c.ref.Topic(), "error", err)
		return
	}
	if row.Kind == "" {
		if c.ref.IsDirect() {
			row.Kind = models.KindDirect
		} else {
			row.Kind = models.KindTeam
		}
	}

	if !c.matches(&row) {
		return
	}

	if ev.Type != realtime.EventDelete && row.AttachmentPath != nil {
		hydrateAttachment(context.Background(), c.deps.Resolver, &row)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	switch ev.Type {
	case realtime.EventInsert:
		c.insertLocked(row)
	case realtime.EventUpdate:
		if idx := c.indexLocked(row.ID); idx >= 0 {
			c.messages[idx] = row
			c.sortLocked()
		}
	case realtime.EventDelete:
		c.removeLocked(row.ID)
	}
	c.notifyLocked()
}

// matches applies the visibility predicate the server-side filter cannot
// express. Direct messages are limited to the two participants; the
// team-chat surface excludes external and submission-scoped rows.
func (c *Conversation) matches(row *models.Message) bool {
	if row.TeamID != c.ref.TeamID {
		return false
	}
	if c.ref.IsDirect() {
		self, peer := c.deps.SelfID, c.ref.PeerID
		return (row.SenderID == self && row.RecipientID == peer) ||
			(row.SenderID == peer && row.RecipientID == self)
	}
	if c.ref.SubmissionID != "" {
		return row.SubmissionID != nil && *row.SubmissionID == c.ref.SubmissionID
	}
	return row.Internal && row.SubmissionID == nil
}

// insertLocked adds a message unless its id is already present, keeping the
// ascending (created_at, id) order.
func (c *Conversation) insertLocked(msg models.Message) {
	if c.indexLocked(msg.ID) >= 0 {
		return
	}
	c.messages = append(c.messages, msg)
	c.sortLocked()
}

// reconcileLocked replaces the provisional record with its authoritative
// counterpart under the same id. If the feed echo already landed, the entry
// is no longer pending and the replacement carries identical data.
func (c *Conversation) reconcileLocked(msg models.Message) {
	if idx := c.indexLocked(msg.ID); idx >= 0 {
		c.messages[idx] = msg
		c.sortLocked()
	}
}

func (c *Conversation) removeLocked(id string) {
	if idx := c.indexLocked(id); idx >= 0 {
		c.messages = append(c.messages[:idx], c.messages[idx+1:]...)
	}
}

func (c *Conversation) indexLocked(id string) int {
	for i := range c.messages {
		if c.messages[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Conversation) sortLocked() {
	sort.SliceStable(c.messages, func(i, j int) bool {
		return c.messages[i].Before(&c.messages[j])
	})
}

func (c *Conversation) notifyLocked() {
	if c.deps.OnChange == nil {
		return
	}
	out := make([]models.Message, len(c.messages))
	copy(out, c.messages)
	c.deps.OnChange(out)
}

// rollback removes a provisional entry after a failed send.
func (c *Conversation) rollback(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(id)
	c.notifyLocked()
}

// hydrateAttachment fills the derived attachment metadata for one message.
// Failure leaves a nil attachment and never fails the caller.
func hydrateAttachment(ctx context.Context, resolver *AttachmentResolver, msg *models.Message) {
	if resolver == nil || msg.AttachmentPath == nil {
		return
	}
	msg.Attachment = resolver.Resolve(ctx, *msg.AttachmentPath, msg.AttachmentKind)
}
