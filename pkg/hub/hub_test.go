package hub

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	h := New("test", slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h, cancel
}

func fakeClient(h *Hub, buffer int) *Client {
	return &Client{hub: h, send: make(chan Message, buffer)}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for condition")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPublishReachesClients(t *testing.T) {
	h, _ := testHub(t)

	a, b := fakeClient(h, 4), fakeClient(h, 4)
	h.attach(a)
	h.attach(b)
	waitFor(t, func() bool { return h.ClientCount() == 2 })

	if err := h.Publish(NewEvent(EventAnalysisCompleted, map[string]int{"drawn_pixels": 100})); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.send:
			var e Event
			if err := json.Unmarshal(msg.Data, &e); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if e.Type != EventAnalysisCompleted || e.ID == "" {
				t.Errorf("Unexpected event: %+v", e)
			}
		case <-time.After(time.Second):
			t.Fatal("client did not receive event")
		}
	}
}

func TestSlowClientDropped(t *testing.T) {
	h, _ := testHub(t)

	slow := fakeClient(h, 1)
	h.attach(slow)
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	h.Publish(NewEvent(EventAnalysisStarted, nil))
	h.Publish(NewEvent(EventAnalysisStarted, nil))

	waitFor(t, func() bool { return h.ClientCount() == 0 })

	// The buffered message is still readable, then the channel is closed.
	<-slow.send
	if _, ok := <-slow.send; ok {
		t.Error("Expected send channel to be closed")
	}
}

func TestDetach(t *testing.T) {
	h, _ := testHub(t)

	c := fakeClient(h, 1)
	h.attach(c)
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	h.detach(c)
	waitFor(t, func() bool { return h.ClientCount() == 0 })
	if _, ok := <-c.send; ok {
		t.Error("Expected send channel to be closed")
	}
}

func TestRunStopsWithContext(t *testing.T) {
	h, cancel := testHub(t)
	waitFor(t, h.IsRunning)

	c := fakeClient(h, 1)
	h.attach(c)
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	cancel()
	waitFor(t, func() bool { return !h.IsRunning() })

	if h.ClientCount() != 0 {
		t.Error("Expected clients to be released on shutdown")
	}
	if h.attach(fakeClient(h, 1)) {
		t.Error("attach should fail once the hub has stopped")
	}
	h.detach(c) // must not block
}

func TestBroadcastNeverBlocks(t *testing.T) {
	h := New("idle", nil)
	for i := 0; i < cap(h.broadcast)+10; i++ {
		h.Broadcast(Message{Data: []byte("{}")})
	}
	if h.Dropped() != 10 {
		t.Errorf("Dropped = %d, want 10", h.Dropped())
	}
}

// fakeConn is an in-memory websocket whose reads fail once hangup is closed.
type fakeConn struct {
	hangup chan struct{}
	once   sync.Once

	mu     sync.Mutex
	writes [][]byte
	closed atomic.Bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{hangup: make(chan struct{})}
}

func (f *fakeConn) SetReadLimit(int64) {}
func (f *fakeConn) SetReadDeadline(time.Time) error { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}
func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	<-f.hangup
	return 0, nil, errors.New("connection closed")
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	if f.closed.Load() {
		return errors.New("write on closed connection")
	}
	f.mu.Lock()
	f.writes = append(f.writes, data)
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) Close() error {
	f.closed.Store(true)
	f.once.Do(func() { close(f.hangup) })
	return nil
}

func (f *fakeConn) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func TestServeWaitsForWriter(t *testing.T) {
	h, _ := testHub(t)
	fc := newFakeConn()

	returned := make(chan struct{})
	go func() {
		serve(h, fc)
		close(returned)
	}()
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	h.Publish(NewEvent(EventAnalysisCompleted, nil))
	waitFor(t, func() bool { return fc.writeCount() >= 1 })

	// Viewer goes away.
	fc.once.Do(func() { close(fc.hangup) })

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after hangup")
	}
	if !fc.closed.Load() {
		t.Error("serve returned before the writer closed the connection")
	}
	if h.ClientCount() != 0 {
		t.Errorf("ClientCount = %d", h.ClientCount())
	}
}

func TestServeEndsWhenHubStops(t *testing.T) {
	h, cancel := testHub(t)
	fc := newFakeConn()

	returned := make(chan struct{})
	go func() {
		serve(h, fc)
		close(returned)
	}()
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	cancel()

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after hub stopped")
	}
	if !fc.closed.Load() {
		t.Error("Expected connection closed")
	}
}
