package events

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisFanOut(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	hub := NewHub(8, nil)
	listener := NewRedisListener(client, hub, nil)
	stop, err := listener.Listen(context.Background())
	require.NoError(t, err)
	defer stop()

	got := make(chan Change, 4)
	sub := hub.Subscribe(CollectionBookings, map[string]string{"provider_id": "p1"})
	require.NoError(t, sub.Start(context.Background(), func(c Change) { got <- c }))
	defer sub.Stop()

	pub := NewRedisPublisher(client, nil, nil)
	change, err := NewChange(CollectionBookings, ChangeUpdate, "b1", map[string]string{"provider_id": "p1"}, nil)
	require.NoError(t, err)
	pub.Publish(change)

	select {
	case c := <-got:
		assert.Equal(t, "b1", c.Key)
		assert.Equal(t, ChangeUpdate, c.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("change not relayed through redis")
	}
}

func TestRedisPublisherFallsBack(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()
	s.Close()

	hub := NewHub(4, nil)
	got := make(chan Change, 1)
	sub := hub.Subscribe(CollectionMessages, nil)
	require.NoError(t, sub.Start(context.Background(), func(c Change) { got <- c }))
	defer sub.Stop()

	pub := NewRedisPublisher(client, hub, nil)
	pub.Publish(Change{Collection: CollectionMessages, Type: ChangeInsert, Key: "m1"})

	select {
	case c := <-got:
		assert.Equal(t, "m1", c.Key)
	case <-time.After(3 * time.Second):
		t.Fatal("fallback publisher not used")
	}
}

func TestRedisListenerNilClient(t *testing.T) {
	_, err := NewRedisListener(nil, NewHub(1, nil), nil).Listen(context.Background())
	assert.Error(t, err)
}
