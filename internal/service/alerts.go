package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/fieldtrace/fieldtrace/internal/realtime"
	"github.com/fieldtrace/fieldtrace/internal/redis"
)

// Alert is a high-priority flag raised on a submission row.
type Alert struct {
	ID           string `json:"id"`
	TeamID       string `json:"team_id"`
	HighPriority bool   `json:"high_priority"`
}

// AlertWatcher maintains the application shell's one-per-team priority-alert
// channels. These never share a handle with conversation channels; the
// watcher owns its own registry and closes it independently.
type AlertWatcher struct {
	feed     ChangeFeed
	registry *realtime.Registry
	redis    *redis.Client
	notify   func(Alert)
}

func NewAlertWatcher(feed ChangeFeed, rdb *redis.Client, notify func(Alert)) *AlertWatcher {
	return &AlertWatcher{
		feed:     feed,
		registry: realtime.NewRegistry(),
		redis:    rdb,
		notify:   notify,
	}
}

// Watch opens the priority-alert channel for one team. Watching a team that
// is already watched replaces the old channel.
func (w *AlertWatcher) Watch(teamID string) error {
	sub, err := w.feed.Subscribe("alerts:"+teamID, "submissions", "team_id=eq."+teamID, w.handle)
	if err != nil {
		return NetworkFailure("could not open alert channel")
	}
	w.registry.Register(teamID, sub)
	return nil
}

// Unwatch closes the channel for one team.
func (w *AlertWatcher) Unwatch(teamID string) {
	w.registry.Close(teamID)
}

// Close releases every alert channel.
func (w *AlertWatcher) Close() error {
	w.registry.CloseAll()
	return nil
}

func (w *AlertWatcher) handle(ev realtime.Event) {
	if ev.Type == realtime.EventDelete {
		return
	}

	var alert Alert
	if err := json.Unmarshal(ev.New, &alert); err != nil {
		slog.Warn("undecodable alert payload", "error", err)
		return
	}
	if !alert.HighPriority {
		return
	}

	// The feed can re-deliver the same row; the seen marker keeps an alert
	// from notifying twice.
	if w.redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		first, err := w.redis.MarkAlertSeen(ctx, alert.ID)
		if err != nil {
			slog.Error("alert seen-state check failed", "alertID", alert.ID, "error", err)
		} else if !first {
			return
		}
	}

	if w.notify != nil {
		w.notify(alert)
	}
}
