package realtime

import "sync"

// ChannelClient delivers events over a buffered channel. Send never blocks:
// when the buffer is full the event is dropped and Send reports false.
type ChannelClient struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
}

func NewChannelClient(buffer int) *ChannelClient {
	return &ChannelClient{ch: make(chan Event, buffer)}
}

// Events is closed once Close has been called.
func (c *ChannelClient) Events() <-chan Event {
	return c.ch
}

func (c *ChannelClient) Send(evt Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.ch <- evt:
		return true
	default:
		return false
	}
}

func (c *ChannelClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}
