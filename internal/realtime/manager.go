package realtime

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Manager owns the change-feed connection and all channel subscriptions.
// One channel per topic; frames are normalized before any handler sees them.
type Manager struct {
	mu   sync.Mutex
	conn *websocket.Conn
	subs map[string]*Subscription // topic → subscription

	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects to the change-feed endpoint and starts the read loop.
func Dial(url string) (*Manager, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("realtime dial: %w", err)
	}

	m := &Manager{
		conn: conn,
		subs: make(map[string]*Subscription),
		done: make(chan struct{}),
	}
	go m.readPump()
	return m, nil
}

// Subscribe opens one channel for the topic, delivering normalized events to
// handler. The filter uses the feed's equality syntax ("team_id=eq.<id>").
// A topic may only have one live subscription at a time.
func (m *Manager) Subscribe(topic, table, filter string, handler func(Event)) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.subs[topic]; ok {
		return nil, fmt.Errorf("realtime: topic %q already subscribed", topic)
	}

	if err := m.writeControl(subscribeMsg{
		Action: "subscribe",
		Topic:  topic,
		Table:  table,
		Filter: filter,
	}); err != nil {
		return nil, fmt.Errorf("realtime subscribe %q: %w", topic, err)
	}

	sub := &Subscription{
		topic:   topic,
		handler: handler,
		manager: m,
	}
	m.subs[topic] = sub
	return sub, nil
}

// remove drops a subscription and tells the server to stop the channel.
// Unsubscribe frames are best effort; the cancelled flag already guarantees
// no further delivery.
func (m *Manager) remove(sub *Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.subs[sub.topic]; ok && existing == sub {
		delete(m.subs, sub.topic)
		if err := m.writeControl(subscribeMsg{Action: "unsubscribe", Topic: sub.topic}); err != nil {
			slog.Debug("realtime unsubscribe failed", "topic", sub.topic, "error", err)
		}
	}
}

// writeControl sends a control frame. Caller must hold m.mu.
func (m *Manager) writeControl(msg subscribeMsg) error {
	_ = m.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return m.conn.WriteJSON(msg)
}

// readPump reads frames until the connection dies, dispatching normalized
// events to the owning subscription. A read error stops live updates and is
// logged; it never panics the process.
func (m *Manager) readPump() {
	for {
		var f frame
		if err := m.conn.ReadJSON(&f); err != nil {
			select {
			case <-m.done:
				// Shut down deliberately; nothing to report.
			default:
				slog.Error("realtime read failed, live updates stopped", "error", err)
			}
			return
		}

		ev, ok := normalize(&f)
		if !ok {
			continue
		}

		m.mu.Lock()
		sub := m.subs[f.Topic]
		m.mu.Unlock()

		if sub != nil {
			sub.deliver(ev)
		}
	}
}

// Close tears down every subscription and the underlying connection.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		close(m.done)

		m.mu.Lock()
		subs := make([]*Subscription, 0, len(m.subs))
		for _, sub := range m.subs {
			subs = append(subs, sub)
		}
		m.mu.Unlock()

		for _, sub := range subs {
			_ = sub.Close()
		}
		_ = m.conn.Close()
	})
	return nil
}
