package realtime

import "sync"

// StreamConn buffers events for a single live SSE stream. The transport layer
// owns the lifecycle: it registers the connection once the stream is
// established, drains Events from the writer loop, and closes the connection
// when the client goes away.
type StreamConn struct {
	events chan Event

	mu     sync.Mutex
	closed bool
}

func NewStreamConn(buffer int) *StreamConn {
	if buffer <= 0 {
		buffer = 32
	}
	return &StreamConn{events: make(chan Event, buffer)}
}

// Send implements Conn. Events are dropped instead of blocking when the
// buffer is full or the connection closed.
func (c *StreamConn) Send(ev Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.events <- ev:
		return true
	default:
		return false
	}
}

// Events exposes the receive side for the transport writer loop.
func (c *StreamConn) Events() <-chan Event {
	return c.events
}

// Close stops the connection; pending events are discarded by the reader.
func (c *StreamConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.events)
}
