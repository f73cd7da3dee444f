package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.PublishUser(context.Background(), 1, Event{Type: EventFollow}))
	assert.NoError(t, n.PublishBroadcast(context.Background(), Event{Type: EventMessage}))
	assert.NoError(t, n.StartPatternSubscriber(context.Background(), func(string, Event) {}))

	var nilNotifier *Notifier
	assert.NoError(t, nilNotifier.PublishUser(context.Background(), 1, Event{}))
}

func TestUserChannel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		userID   uint
		expected string
	}{
		{1, "notifications:user:1"},
		{100, "notifications:user:100"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, UserChannel(tt.userID))
	}
}

func TestNotifier_PublishUser_DeliversJSON(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	ctx := context.Background()
	sub := rdb.Subscribe(ctx, UserChannel(2))
	defer func() { _ = sub.Close() }()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	n := NewNotifier(rdb)
	require.NoError(t, n.PublishUser(ctx, 2, Event{Type: EventLike, ActorID: 1, MessageID: 9}))

	select {
	case msg := <-sub.Channel():
		var ev Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		assert.Equal(t, EventLike, ev.Type)
		assert.Equal(t, uint(1), ev.ActorID)
		assert.Equal(t, uint(9), ev.MessageID)
		assert.False(t, ev.CreatedAt.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func TestNotifier_StartPatternSubscriber_StopsOnCancel(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan Event, 4)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(_ string, ev Event) {
		events <- ev
	}))

	require.NoError(t, n.PublishUser(context.Background(), 3, Event{Type: EventFollow, ActorID: 4}))
	require.NoError(t, rdb.Publish(context.Background(), BroadcastChannel, "not json").Err())
	require.NoError(t, n.PublishBroadcast(context.Background(), Event{Type: EventMessage, ActorID: 4, MessageID: 1}))

	got := []EventType{}
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case ev := <-events:
			got = append(got, ev.Type)
		case <-timeout:
			t.Fatalf("timed out, got %v", got)
		}
	}
	assert.ElementsMatch(t, []EventType{EventFollow, EventMessage}, got)

	cancel()
}
