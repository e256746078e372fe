package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
)

type chanConn struct {
	mu       sync.Mutex
	received []Event
	notify   chan struct{}
}

func newChanConn() *chanConn {
	return &chanConn{notify: make(chan struct{}, 16)}
}

func (c *chanConn) Send(ev Event) bool {
	c.mu.Lock()
	c.received = append(c.received, ev)
	c.mu.Unlock()
	select {
	case c.notify <- struct{}{}:
	default:
	}
	return true
}

func (c *chanConn) events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.received))
	copy(out, c.received)
	return out
}

func newBridgeClient(t *testing.T, mr *miniredis.Miniredis) *redislib.Client {
	t.Helper()
	client := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestBridgeDeliversAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Instance A emits; instance B holds the user's connection.
	registryA := NewRegistry()
	bridgeA := NewBridge(newBridgeClient(t, mr), "test:events", registryA, nil)
	hubA := NewHub(registryA, bridgeA, nil)

	registryB := NewRegistry()
	bridgeB := NewBridge(newBridgeClient(t, mr), "test:events", registryB, nil)
	hubB := NewHub(registryB, bridgeB, nil)

	conn := newChanConn()
	registryB.Register("user-1", conn)

	go bridgeA.Run(ctx, hubA)
	go bridgeB.Run(ctx, hubB)

	// The subscription is established asynchronously, so publish until the
	// event lands or the deadline passes.
	deadline := time.After(3 * time.Second)
	for {
		hubA.EmitToUser("user-1", "task-created", map[string]string{"id": "t-1"})
		select {
		case <-conn.notify:
			events := conn.events()
			if events[0].Name != "task-created" {
				t.Fatalf("event = %q, want task-created", events[0].Name)
			}
			return
		case <-time.After(50 * time.Millisecond):
		case <-deadline:
			t.Fatal("event never crossed the bridge")
		}
	}
}

func TestBridgeSkipsOwnMessages(t *testing.T) {
	mr := miniredis.RunT(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := NewRegistry()
	bridge := NewBridge(newBridgeClient(t, mr), "test:events", registry, nil)

	// The hub delivers locally once; the bridge must not replay the same
	// event back from redis.
	conn := newChanConn()
	registry.Register("user-1", conn)
	hub := NewHub(registry, bridge, nil)

	go bridge.Run(ctx, hub)
	time.Sleep(100 * time.Millisecond)

	hub.EmitToUser("user-1", "task-updated", map[string]string{"id": "t-9"})

	<-conn.notify
	time.Sleep(200 * time.Millisecond)

	if got := len(conn.events()); got != 1 {
		t.Fatalf("delivered = %d, want exactly 1 (no pub/sub echo)", got)
	}
}
