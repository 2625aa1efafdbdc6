package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Client wraps a Redis connection for typing indicators and priority-alert
// bookkeeping.
type Client struct {
	rdb *goredis.Client
}

// NewClient creates a Redis client from a URL and verifies the connection.
func NewClient(redisURL string) (*Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	rdb := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

// Ping checks the Redis connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

const (
	typingPrefix    = "typing:"
	alertSeenPrefix = "alert-seen:"
	typingTTL       = 10 * time.Second
	alertSeenTTL    = 24 * time.Hour
)

// SetTyping marks a user as typing in a conversation with a short TTL.
func (c *Client) SetTyping(ctx context.Context, topic, userID string) error {
	return c.rdb.Set(ctx, typingPrefix+topic+":"+userID, 1, typingTTL).Err()
}

// GetTyping returns the user IDs currently typing in a conversation.
func (c *Client) GetTyping(ctx context.Context, topic string) ([]string, error) {
	pattern := typingPrefix + topic + ":*"
	prefix := typingPrefix + topic + ":"

	var userIDs []string
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scanning typing keys: %w", err)
		}
		for _, key := range keys {
			userIDs = append(userIDs, strings.TrimPrefix(key, prefix))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return userIDs, nil
}

// MarkAlertSeen records that a priority alert was already surfaced, so a
// re-delivered feed event does not notify twice. Returns true if this is
// the first sighting.
func (c *Client) MarkAlertSeen(ctx context.Context, alertID string) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, alertSeenPrefix+alertID, 1, alertSeenTTL).Result()
	if err != nil {
		return false, fmt.Errorf("marking alert seen: %w", err)
	}
	return ok, nil
}
