package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h
}

func receive(t *testing.T, conn *Connection) []byte {
	t.Helper()
	select {
	case msg, ok := <-conn.Send:
		require.True(t, ok, "send channel closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestPublishReachesRunSubscribers(t *testing.T) {
	h := startHub(t)

	a := h.NewConnection(nil, "r1")
	b := h.NewConnection(nil, "r2")
	h.Register(a)
	h.Register(b)
	require.Eventually(t, func() bool { return h.ConnectionCount() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, h.Publish("r1", map[string]any{"sequence": 1}))

	var got map[string]any
	require.NoError(t, json.Unmarshal(receive(t, a), &got))
	assert.Equal(t, float64(1), got["sequence"])

	select {
	case msg := <-b.Send:
		t.Fatalf("unexpected message for other run: %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	h := startHub(t)
	assert.False(t, h.HasSubscribers("r1"))
	assert.NoError(t, h.Publish("r1", map[string]any{"x": 1}))
}

func TestUnregisterClosesSend(t *testing.T) {
	h := startHub(t)

	conn := h.NewConnection(nil, "r1")
	h.Register(conn)
	require.Eventually(t, func() bool { return h.HasSubscribers("r1") }, time.Second, 5*time.Millisecond)

	h.Unregister(conn)
	require.Eventually(t, func() bool { return !h.HasSubscribers("r1") }, time.Second, 5*time.Millisecond)

	_, ok := <-conn.Send
	assert.False(t, ok)
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	h := startHub(t)

	conn := h.NewConnection(nil, "r1")
	h.Register(conn)
	require.Eventually(t, func() bool { return h.HasSubscribers("r1") }, time.Second, 5*time.Millisecond)

	i := 0
	require.Eventually(t, func() bool {
		for n := 0; n < 50; n++ {
			i++
			_ = h.Publish("r1", i)
		}
		return h.ConnectionCount() == 0
	}, 2*time.Second, time.Millisecond)
}

func TestRunStopClosesSubscribers(t *testing.T) {
	h := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()

	conn := h.NewConnection(nil, "r1")
	h.Register(conn)
	cancel()
	<-stopped

	_, ok := <-conn.Send
	assert.False(t, ok)

	// Registering after shutdown does not block.
	late := h.NewConnection(nil, "r1")
	h.Register(late)
	_, ok = <-late.Send
	assert.False(t, ok)
}
