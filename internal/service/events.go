package service

import (
	"context"
	"log/slog"

	"warbler/internal/middleware"
	"warbler/internal/notifications"
)

// EventPublisher is satisfied by *notifications.Notifier.
type EventPublisher interface {
	PublishUser(ctx context.Context, userID uint, ev notifications.Event) error
	PublishBroadcast(ctx context.Context, ev notifications.Event) error
}

type nopPublisher struct{}

func (nopPublisher) PublishUser(context.Context, uint, notifications.Event) error { return nil }
func (nopPublisher) PublishBroadcast(context.Context, notifications.Event) error  { return nil }

func publisherOrNop(p EventPublisher) EventPublisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}

// publish sends ev to userID's channel, or to everyone when userID is 0.
// Delivery is best effort and never fails the calling operation.
func publish(ctx context.Context, p EventPublisher, userID uint, ev notifications.Event) {
	var err error
	if userID == 0 {
		err = p.PublishBroadcast(ctx, ev)
	} else {
		err = p.PublishUser(ctx, userID, ev)
	}
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish notification",
			slog.String("event", string(ev.Type)),
			slog.String("error", err.Error()),
		)
	}
}
