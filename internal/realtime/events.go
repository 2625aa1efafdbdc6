package realtime

import "encoding/json"

// EventType tags a normalized change-feed event.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// Event is the normalized form of an inbound change-feed payload. All
// business logic sees only this shape; wire-format quirks stop here.
type Event struct {
	Type EventType
	New  json.RawMessage
	Old  json.RawMessage
}

// frame is the raw wire envelope. The feed has shipped several spellings of
// the same fields over time, so every known alias is accepted.
type frame struct {
	Topic     string          `json:"topic"`
	Type      string          `json:"type"`
	EventType string          `json:"eventType"`
	New       json.RawMessage `json:"new"`
	Record    json.RawMessage `json:"record"`
	Old       json.RawMessage `json:"old"`
	OldRecord json.RawMessage `json:"old_record"`
}

// normalize converts a raw frame into an Event. It returns false for frames
// that are not row changes (acks, heartbeats, unknown types).
func normalize(f *frame) (Event, bool) {
	typ := f.Type
	if typ == "" {
		typ = f.EventType
	}

	var ev Event
	switch EventType(typ) {
	case EventInsert, EventUpdate, EventDelete:
		ev.Type = EventType(typ)
	default:
		return Event{}, false
	}

	ev.New = f.New
	if ev.New == nil {
		ev.New = f.Record
	}
	ev.Old = f.Old
	if ev.Old == nil {
		ev.Old = f.OldRecord
	}
	return ev, true
}

// subscribeMsg is the outbound control frame opening or closing a channel.
type subscribeMsg struct {
	Action string `json:"action"`
	Topic  string `json:"topic"`
	Table  string `json:"table,omitempty"`
	Filter string `json:"filter,omitempty"`
}
