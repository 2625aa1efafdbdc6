package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// feedServer is a minimal change-feed endpoint for tests. It records inbound
// control frames and can push raw frames back to the client.
type feedServer struct {
	srv *httptest.Server

	mu       sync.Mutex
	conn     *websocket.Conn
	controls []subscribeMsg
	ready    chan struct{}
}

func newFeedServer(t *testing.T) *feedServer {
	t.Helper()
	fs := &feedServer{ready: make(chan struct{})}
	upgrader := websocket.Upgrader{}

	fs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		fs.mu.Lock()
		fs.conn = conn
		fs.mu.Unlock()
		close(fs.ready)

		for {
			var msg subscribeMsg
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			fs.mu.Lock()
			fs.controls = append(fs.controls, msg)
			fs.mu.Unlock()
		}
	}))
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *feedServer) url() string {
	return "ws" + strings.TrimPrefix(fs.srv.URL, "http")
}

func (fs *feedServer) push(t *testing.T, raw string) {
	t.Helper()
	select {
	case <-fs.ready:
	case <-time.After(2 * time.Second):
		t.Fatal("no client connected")
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
		t.Fatalf("push failed: %v", err)
	}
}

func (fs *feedServer) waitForControl(t *testing.T, action, topic string) subscribeMsg {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		fs.mu.Lock()
		for _, msg := range fs.controls {
			if msg.Action == action && msg.Topic == topic {
				fs.mu.Unlock()
				return msg
			}
		}
		fs.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("control frame %s/%s never arrived", action, topic)
	return subscribeMsg{}
}

func waitForEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("event never delivered")
		return Event{}
	}
}

func TestSubscribeSendsControlFrame(t *testing.T) {
	fs := newFeedServer(t)
	m, err := Dial(fs.url())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer m.Close()

	_, err = m.Subscribe("team:t1", "team_messages", "team_id=eq.t1", func(Event) {})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	msg := fs.waitForControl(t, "subscribe", "team:t1")
	if msg.Table != "team_messages" || msg.Filter != "team_id=eq.t1" {
		t.Errorf("unexpected control frame %+v", msg)
	}
}

func TestSubscribeRejectsDuplicateTopic(t *testing.T) {
	fs := newFeedServer(t)
	m, err := Dial(fs.url())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer m.Close()

	if _, err := m.Subscribe("team:t1", "team_messages", "", func(Event) {}); err != nil {
		t.Fatalf("first subscribe failed: %v", err)
	}
	if _, err := m.Subscribe("team:t1", "team_messages", "", func(Event) {}); err == nil {
		t.Fatal("expected duplicate topic to be rejected")
	}
}

func TestEventsRouteToTopicHandler(t *testing.T) {
	fs := newFeedServer(t)
	m, err := Dial(fs.url())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer m.Close()

	got := make(chan Event, 2)
	other := make(chan Event, 2)
	if _, err := m.Subscribe("team:t1", "team_messages", "", func(ev Event) { got <- ev }); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if _, err := m.Subscribe("team:t2", "team_messages", "", func(ev Event) { other <- ev }); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	fs.push(t, `{"topic":"team:t1","type":"INSERT","new":{"id":"m1"}}`)

	ev := waitForEvent(t, got)
	if ev.Type != EventInsert || string(ev.New) != `{"id":"m1"}` {
		t.Fatalf("unexpected event %+v", ev)
	}
	select {
	case ev := <-other:
		t.Fatalf("event leaked to unrelated topic: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFrameAliasesAreNormalized(t *testing.T) {
	fs := newFeedServer(t)
	m, err := Dial(fs.url())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer m.Close()

	got := make(chan Event, 2)
	if _, err := m.Subscribe("team:t1", "team_messages", "", func(ev Event) { got <- ev }); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	// Alternate spelling: eventType/record/old_record.
	fs.push(t, `{"topic":"team:t1","eventType":"DELETE","old_record":{"id":"m9"}}`)

	ev := waitForEvent(t, got)
	if ev.Type != EventDelete || string(ev.Old) != `{"id":"m9"}` {
		t.Fatalf("alias frame not normalized: %+v", ev)
	}
}

func TestNonRowFramesAreIgnored(t *testing.T) {
	fs := newFeedServer(t)
	m, err := Dial(fs.url())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer m.Close()

	got := make(chan Event, 2)
	if _, err := m.Subscribe("team:t1", "team_messages", "", func(ev Event) { got <- ev }); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	fs.push(t, `{"topic":"team:t1","type":"ack"}`)
	fs.push(t, `{"topic":"team:t1","type":"heartbeat"}`)
	fs.push(t, `{"topic":"team:t1","type":"INSERT","new":{"id":"m1"}}`)

	ev := waitForEvent(t, got)
	if ev.Type != EventInsert {
		t.Fatalf("expected only the row change, got %+v", ev)
	}
}

func TestClosedSubscriptionDropsStaleFrames(t *testing.T) {
	fs := newFeedServer(t)
	m, err := Dial(fs.url())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer m.Close()

	got := make(chan Event, 2)
	sub, err := m.Subscribe("team:t1", "team_messages", "", func(ev Event) { got <- ev })
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	// Stale deliver after Close is a no-op; the race between server push and
	// client close is exactly what the cancelled flag absorbs.
	sub.deliver(Event{Type: EventInsert})

	select {
	case ev := <-got:
		t.Fatalf("closed subscription delivered %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCloseFreesTopicForResubscribe(t *testing.T) {
	fs := newFeedServer(t)
	m, err := Dial(fs.url())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer m.Close()

	sub, err := m.Subscribe("dm:t1:u2", "direct_messages", "team_id=eq.t1", func(Event) {})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	fs.waitForControl(t, "unsubscribe", "dm:t1:u2")

	if _, err := m.Subscribe("dm:t1:u2", "direct_messages", "team_id=eq.t1", func(Event) {}); err != nil {
		t.Fatalf("resubscribe after close failed: %v", err)
	}
}

func TestRegistryReplaceClosesPrevious(t *testing.T) {
	r := NewRegistry()
	old := &Subscription{topic: "alerts:t1"}
	r.Register("alerts:t1", old)

	replacement := &Subscription{topic: "alerts:t1"}
	r.Register("alerts:t1", replacement)

	if !old.cancelled.Load() {
		t.Fatal("replaced handle was not closed")
	}
	if replacement.cancelled.Load() {
		t.Fatal("replacement handle must stay live")
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 live handle, got %d", r.Len())
	}
}

func TestRegistryCloseAll(t *testing.T) {
	r := NewRegistry()
	subs := []*Subscription{
		{topic: "alerts:t1"},
		{topic: "alerts:t2"},
		{topic: "alerts:t3"},
	}
	for _, sub := range subs {
		r.Register(sub.topic, sub)
	}

	r.CloseAll()

	if r.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", r.Len())
	}
	for _, sub := range subs {
		if !sub.cancelled.Load() {
			t.Errorf("handle %s survived CloseAll", sub.topic)
		}
	}
}
