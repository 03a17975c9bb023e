package realtime

import (
	"sync"
	"time"
)

// DefaultBufferSize is how many events the hub keeps for replay.
const DefaultBufferSize = 100

// recentCount is what a subscriber without a cursor gets replayed.
const recentCount = 20

// Event is one entry of the event log: a GitHub webhook delivery or a local
// change such as a task status update.
type Event struct {
	ID         int64          `json:"id"`
	Type       string         `json:"type"`
	Action     string         `json:"action"`
	Payload    map[string]any `json:"payload"`
	ReceivedAt time.Time      `json:"receivedAt"`
}

// Client receives published events. Send is called on the publisher's
// goroutine and must not block; the network side (websocket, SSE) is
// managed by the handler that created it.
type Client interface {
	Send(evt Event) bool
	Close()
}

// Hub keeps a bounded log of recent events and fans new ones out to every
// registered client.
type Hub struct {
	mu      sync.RWMutex
	clients map[Client]struct{}
	events  []Event
	lastID  int64
	max     int
	now     func() time.Time
}

var hubInstance *Hub
var once sync.Once

// GetHub returns a singleton hub instance.
func GetHub() *Hub {
	once.Do(func() {
		hubInstance = NewHub(DefaultBufferSize)
	})
	return hubInstance
}

// NewHub builds a hub that retains at most max events.
func NewHub(max int) *Hub {
	if max <= 0 {
		max = DefaultBufferSize
	}
	return &Hub{
		clients: make(map[Client]struct{}),
		max:     max,
		now:     time.Now,
	}
}

// Register adds a client.
func (h *Hub) Register(client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
}

// RegisterFrom adds a client and returns the backlog it should replay first.
// Both happen under one lock so no event is missed or sent twice.
func (h *Hub) RegisterFrom(client Client, since *int64) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
	return h.replayLocked(since)
}

// Unregister removes a client.
func (h *Hub) Unregister(client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, client)
}

// Publish assigns the next id, appends the event to the log (dropping the
// oldest past the bound) and sends it to every client.
func (h *Hub) Publish(eventType, action string, payload map[string]any) Event {
	h.mu.Lock()
	h.lastID++
	evt := Event{
		ID:         h.lastID,
		Type:       eventType,
		Action:     action,
		Payload:    payload,
		ReceivedAt: h.now().UTC(),
	}
	h.events = append(h.events, evt)
	if over := len(h.events) - h.max; over > 0 {
		h.events = append([]Event(nil), h.events[over:]...)
	}
	clients := make([]Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		// A failed send is cleaned up by the client's handler.
		c.Send(evt)
	}
	return evt
}

// Replay returns the events after since, or the most recent ones when since
// is nil.
func (h *Hub) Replay(since *int64) []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.replayLocked(since)
}

func (h *Hub) replayLocked(since *int64) []Event {
	if since == nil {
		start := len(h.events) - recentCount
		if start < 0 {
			start = 0
		}
		return append([]Event{}, h.events[start:]...)
	}
	out := []Event{}
	for _, e := range h.events {
		if e.ID > *since {
			out = append(out, e)
		}
	}
	return out
}

// Total is the number of events ever published.
func (h *Hub) Total() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastID
}

// Buffered is the number of events currently retained.
func (h *Hub) Buffered() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.events)
}

// Clients is the number of registered clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
