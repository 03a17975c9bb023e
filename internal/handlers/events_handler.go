package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"ops-dashboard-api/internal/realtime"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
)

const (
	defaultHeartbeat = 30 * time.Second
	streamBuffer     = 64
)

// EventsHandler streams hub events to browsers over SSE and websockets.
type EventsHandler struct {
	hub       *realtime.Hub
	heartbeat time.Duration
}

// NewEventsHandler builds an EventsHandler. heartbeat <= 0 means 30s.
func NewEventsHandler(hub *realtime.Hub, heartbeat time.Duration) *EventsHandler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &EventsHandler{hub: hub, heartbeat: heartbeat}
}

// Stream handles GET /api/events/github?since=N
// The backlog is replayed first, then live events follow until the client
// disconnects. A comment line keeps idle proxies from closing the stream.
func (h *EventsHandler) Stream(c *gin.Context) {
	since, ok := sinceParam(c)
	if !ok {
		return
	}

	client := realtime.NewChannelClient(streamBuffer)
	backlog := h.hub.RegisterFrom(client, since)
	defer func() {
		h.hub.Unregister(client)
		client.Close()
	}()

	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream;charset=utf-8")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	for _, evt := range backlog {
		writeEvent(c, evt)
	}
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case evt, ok := <-client.Events():
			if !ok {
				return
			}
			writeEvent(c, evt)
			c.Writer.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(c.Writer, ": heartbeat\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}

func writeEvent(c *gin.Context, evt realtime.Event) {
	c.Render(-1, sse.Event{
		Id:    strconv.FormatInt(evt.ID, 10),
		Event: evt.Type,
		Data:  evt,
	})
}
