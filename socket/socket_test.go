package socket

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThalefangN/get-more-bw-87-sub000/booking"
	"github.com/ThalefangN/get-more-bw-87-sub000/db"
	"github.com/ThalefangN/get-more-bw-87-sub000/geolocation"
	"github.com/ThalefangN/get-more-bw-87-sub000/models"
	"github.com/ThalefangN/get-more-bw-87-sub000/routing"
	"github.com/ThalefangN/get-more-bw-87-sub000/stores"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emitted struct {
	rooms []string
	event string
	data  any
}

type fakeBroadcaster struct {
	mu   sync.Mutex
	sent []emitted
	err  error
}

func (f *fakeBroadcaster) EmitTo(rooms []string, event string, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, emitted{rooms: rooms, event: event, data: data})
	return f.err
}

func (f *fakeBroadcaster) all() []emitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]emitted(nil), f.sent...)
}

var (
	_ geolocation.Notifier   = (*Emitter)(nil)
	_ routing.Notifier       = (*Emitter)(nil)
	_ booking.ApproachSink   = (*Emitter)(nil)
	_ stores.LocateRequester = (*Emitter)(nil)
)

func TestEmitter_TargetsUserRoom(t *testing.T) {
	b := &fakeBroadcaster{}
	e := NewEmitter(b)

	e.Notify(context.Background(), "u1", models.Notice{Level: models.NoticeInfo, Message: "hi"})
	e.RequestLocation("u1", geolocation.DefaultPositionOptions)
	e.ETATick("u1", 42)

	sent := b.all()
	require.Len(t, sent, 3)
	for _, s := range sent {
		assert.Equal(t, []string{"user:u1"}, s.rooms)
	}
	assert.Equal(t, "notice", sent[0].event)
	assert.Equal(t, "locateRequest", sent[1].event)
	assert.Equal(t, map[string]any{
		"enableHighAccuracy": true,
		"timeout":            int64(10000),
		"maximumAge":         int64(0),
	}, sent[1].data)
	assert.Equal(t, map[string]int{"remainingSeconds": 42}, sent[2].data)
}

func TestEmitter_ArrivalChimeReportsFailure(t *testing.T) {
	b := &fakeBroadcaster{err: errors.New("no transport")}
	assert.Error(t, NewEmitter(b).ArrivalChime("u1"))
}

func TestSubscriptionRoom(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
		room string
		ok   bool
	}{
		{"table", map[string]any{"table": "orders"}, "table:orders", true},
		{"filter", map[string]any{"table": "orders", "filter": "store_id=eq.s-1"}, "table:orders:store_id=s-1", true},
		{"unknown table", map[string]any{"table": "users"}, "", false},
		{"bad filter", map[string]any{"table": "orders", "filter": "store_id"}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			room, ok := subscriptionRoom([]any{tt.in})
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.room, room)
		})
	}
	_, ok := subscriptionRoom(nil)
	assert.False(t, ok)
}

func TestChangeFeed_RelaysToRooms(t *testing.T) {
	mr := miniredis.RunT(t)
	prev := db.RedisClient
	db.RedisClient = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		db.RedisClient.Close()
		db.RedisClient = prev
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b := &fakeBroadcaster{}
	StartChangeFeed(ctx, b)

	change := stores.Change{
		Table:  "orders",
		Op:     stores.ChangeUpdate,
		RowID:  "o-1",
		Filter: map[string]string{"store_id": "s-1"},
	}
	// the pattern subscription may not be registered on the first publish
	require.Eventually(t, func() bool {
		_ = stores.PublishChange(context.Background(), change)
		return len(b.all()) > 0
	}, 2*time.Second, 20*time.Millisecond)

	got := b.all()[0]
	assert.Equal(t, "tableChanged", got.event)
	assert.Equal(t, []string{"table:orders", "table:orders:store_id=s-1"}, got.rooms)
	assert.Equal(t, change, got.data)
}

func TestRelayChange_BadPayload(t *testing.T) {
	assert.Error(t, relayChange(&fakeBroadcaster{}, "{"))
}
