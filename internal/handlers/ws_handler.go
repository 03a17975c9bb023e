package handlers

import (
	"net/http"
	"time"

	"ops-dashboard-api/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	wsWriteWait  = 5 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS is already handled at Gin level; allow upgrade from any origin here
		return true
	},
}

// WebSocket handles GET /ws/events?since=N
// Same stream as Stream, one JSON event per text message. The hub only
// queues into the client's buffer; a single writer goroutine owns the
// connection, so a slow peer never stalls a publisher.
func (h *EventsHandler) WebSocket(c *gin.Context) {
	since, ok := sinceParam(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := realtime.NewChannelClient(streamBuffer)
	backlog := h.hub.RegisterFrom(client, since)
	defer func() {
		h.hub.Unregister(client)
		client.Close()
		_ = conn.Close()
	}()

	go writeWebSocket(conn, backlog, client.Events())

	// Reader loop: drain messages and keep connection alive via pong handler
	conn.SetReadLimit(1024)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			// Normal close or error; exit loop
			return
		}
	}
}

// writeWebSocket is the only writer on conn. It sends the backlog, then live
// events and pings until events is closed or a write fails. A failed write
// closes the connection so the reader loop exits too.
func writeWebSocket(conn *websocket.Conn, backlog []realtime.Event, events <-chan realtime.Event) {
	pingTicker := time.NewTicker(wsPingPeriod)
	defer pingTicker.Stop()

	write := func(evt realtime.Event) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(evt) == nil
	}

	for _, evt := range backlog {
		if !write(evt) {
			_ = conn.Close()
			return
		}
	}

	for {
		select {
		case evt, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(wsWriteWait))
				return
			}
			if !write(evt) {
				_ = conn.Close()
				return
			}
		case <-pingTicker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(wsWriteWait)); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}
