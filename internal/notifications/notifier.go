// Package notifications publishes social activity (follows, likes, new
// warbles) to Redis pub/sub channels.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"warbler/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// BroadcastChannel carries events that are not addressed to a single user.
const BroadcastChannel = "notifications:broadcast"

// EventType names the activity carried by an Event.
type EventType string

const (
	EventFollow  EventType = "follow"
	EventLike    EventType = "like"
	EventMessage EventType = "message"
)

// Event is the JSON payload published for each activity.
type Event struct {
	Type      EventType `json:"type"`
	ActorID   uint      `json:"actor_id"`
	SubjectID uint      `json:"subject_id,omitempty"`
	MessageID uint      `json:"message_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UserChannel returns the channel a user's notifications are published on.
func UserChannel(userID uint) string {
	return fmt.Sprintf("notifications:user:%d", userID)
}

// Notifier provides helpers to publish notifications into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
// A nil client turns every publish into a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishUser sends an event to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, ev Event) error {
	return n.publish(ctx, UserChannel(userID), ev)
}

// PublishBroadcast sends an event to every subscriber.
func (n *Notifier) PublishBroadcast(ctx context.Context, ev Event) error {
	return n.publish(ctx, BroadcastChannel, ev)
}

func (n *Notifier) publish(ctx context.Context, channel string, ev Event) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return n.rdb.Publish(ctx, channel, payload).Err()
}

// StartPatternSubscriber subscribes to every user channel and the broadcast
// channel and calls onEvent for each decodable message until ctx is done.
func (n *Notifier) StartPatternSubscriber(ctx context.Context, onEvent func(channel string, ev Event)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, "notifications:user:*", BroadcastChannel)
	// Wait for the subscription to be acknowledged so no early publish is lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					middleware.Logger.Warn("dropping malformed notification",
						slog.String("channel", msg.Channel),
						slog.String("error", err.Error()),
					)
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in notification subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onEvent(msg.Channel, ev)
				}()
			}
		}
	}()

	return nil
}
