package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVersions struct {
	mu      sync.Mutex
	version int64
	err     error
}

func (s *stubVersions) GetLeaderboardVersion(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version, s.err
}

func (s *stubVersions) set(v int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version, s.err = v, err
}

func addClient(h *Hub) *Client {
	c := &Client{hub: h, send: make(chan []byte, sendBufferSize)}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	return c
}

func decode(t *testing.T, raw []byte) VersionUpdate {
	t.Helper()
	var update VersionUpdate
	require.NoError(t, json.Unmarshal(raw, &update))
	return update
}

func TestBroadcastOnlyOnChange(t *testing.T) {
	versions := &stubVersions{version: 3}
	hub := NewHub(versions, nil)
	client := addClient(hub)
	ctx := context.Background()

	hub.checkAndBroadcastVersion(ctx)
	require.Len(t, client.send, 1)
	assert.Equal(t, VersionUpdate{Type: "VERSION_UPDATE", Version: 3}, decode(t, <-client.send))

	hub.checkAndBroadcastVersion(ctx)
	assert.Empty(t, client.send)

	versions.set(4, nil)
	hub.checkAndBroadcastVersion(ctx)
	require.Len(t, client.send, 1)
	assert.Equal(t, int64(4), decode(t, <-client.send).Version)
}

func TestBroadcastSkipsOnSourceError(t *testing.T) {
	versions := &stubVersions{err: errors.New("redis down")}
	hub := NewHub(versions, nil)
	client := addClient(hub)

	hub.checkAndBroadcastVersion(context.Background())
	assert.Empty(t, client.send)
}

func TestRunRegistersAndSendsInitialVersion(t *testing.T) {
	hub := NewHub(&stubVersions{version: 7}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Run(ctx)
	}()

	client := &Client{hub: hub, send: make(chan []byte, sendBufferSize)}
	hub.register <- client

	select {
	case raw := <-client.send:
		assert.Equal(t, int64(7), decode(t, raw).Version)
	case <-time.After(time.Second):
		t.Fatal("no initial version sent")
	}
	assert.Equal(t, 1, hub.GetClientCount())

	hub.unregister <- client
	require.Eventually(t, func() bool { return hub.GetClientCount() == 0 }, time.Second, time.Millisecond)
	_, open := <-client.send
	assert.False(t, open)

	cancel()
	<-done
}
