package ws

import "sync"

const sendBufferSize = 32

// Client is one websocket connection's hub handle. The transport layer owns
// the actual connection and drains Send from its write loop; the hub only
// ever pushes into the buffer.
type Client struct {
	send chan []byte

	mu     sync.Mutex
	closed bool
}

func NewClient() *Client {
	return &Client{
		send: make(chan []byte, sendBufferSize),
	}
}

// Send is the channel the connection's write loop drains. It is closed by
// Close, never by the hub.
func (c *Client) Send() <-chan []byte {
	return c.send
}

// Push hands a payload directly to this client, outside any group. Used for
// connection-scoped frames like error responses.
func (c *Client) Push(payload []byte) bool {
	return c.push(payload)
}

// push hands a payload to the client without blocking. It reports false when
// the buffer is full or the client is already closed; the caller decides what
// to do with the drop.
func (c *Client) push(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// Close makes the client permanently unreachable for the hub and releases the
// write loop. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	close(c.send)
}
