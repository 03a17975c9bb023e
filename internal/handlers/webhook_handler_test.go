package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ops-dashboard-api/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type recordingInvalidator struct {
	events []string
}

func (r *recordingInvalidator) InvalidateFor(eventType string) []string {
	r.events = append(r.events, eventType)
	return []string{eventType}
}

func webhookRouter(secret string, hub *realtime.Hub, inv Invalidator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewWebhookHandler(secret, hub, inv, quietLogger())
	r := gin.New()
	r.POST("/api/webhooks/github", h.Receive)
	r.GET("/api/webhooks/github", h.List)
	return r
}

func deliver(r http.Handler, event string, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/github", bytes.NewReader(body))
	req.Header.Set("X-GitHub-Event", event)
	req.Header.Set("X-GitHub-Delivery", "d-1")
	if signature != "" {
		req.Header.Set("X-Hub-Signature-256", signature)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhook_SignedDeliveryIsPublished(t *testing.T) {
	hub := realtime.NewHub(10)
	inv := &recordingInvalidator{}
	r := webhookRouter("s3cret", hub, inv)
	body := []byte(`{"action": "opened", "issue": {"number": 3, "title": "Bug"}}`)

	w := deliver(r, "issues", body, realtime.Sign(body, "s3cret"))
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"ok": true, "eventId": 1}`, w.Body.String())
	require.Equal(t, []string{"issues"}, inv.events)

	events := hub.Replay(nil)
	require.Len(t, events, 1)
	require.Equal(t, "issues", events[0].Type)
	require.Equal(t, "opened", events[0].Action)
	require.Equal(t, "Bug", events[0].Payload["title"])
}

func TestWebhook_Rejections(t *testing.T) {
	hub := realtime.NewHub(10)
	r := webhookRouter("s3cret", hub, nil)
	body := []byte(`{"action": "opened"}`)

	require.Equal(t, http.StatusUnauthorized, deliver(r, "issues", body, "").Code)
	require.Equal(t, http.StatusUnauthorized, deliver(r, "issues", body, realtime.Sign(body, "wrong")).Code)

	bad := []byte(`{not json`)
	require.Equal(t, http.StatusBadRequest, deliver(r, "issues", bad, realtime.Sign(bad, "s3cret")).Code)

	ping := []byte(`{"zen": "Keep it simple."}`)
	w := deliver(r, "ping", ping, realtime.Sign(ping, "s3cret"))
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"ok": true, "message": "pong"}`, w.Body.String())

	require.Zero(t, hub.Total())
}

func TestWebhook_ListSince(t *testing.T) {
	hub := realtime.NewHub(10)
	r := webhookRouter("", hub, nil)
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, deliver(r, "push", []byte(`{"ref": "refs/heads/main"}`), "").Code)
	}

	w := doJSON(r, http.MethodGet, "/api/webhooks/github?since=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Status        string           `json:"status"`
		TotalReceived int64            `json:"totalReceived"`
		Buffered      int              `json:"buffered"`
		Events        []realtime.Event `json:"events"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "active", resp.Status)
	require.Equal(t, int64(3), resp.TotalReceived)
	require.Equal(t, 3, resp.Buffered)
	require.Len(t, resp.Events, 2)

	require.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodGet, "/api/webhooks/github?since=abc", nil).Code)
}

func TestEventsStream_ReplaysThenStreamsLive(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := realtime.NewHub(10)
	hub.Publish("push", "", map[string]any{"ref": "refs/heads/main"})
	hub.Publish("issues", "opened", nil)

	h := NewEventsHandler(hub, 50*time.Millisecond)
	r := gin.New()
	r.GET("/api/events/github", h.Stream)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events/github?since=1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream;charset=utf-8", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readUntil := func(prefix string) string {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, prefix) {
				return strings.TrimSpace(line)
			}
		}
	}

	require.Equal(t, "id:2", strings.ReplaceAll(readUntil("id:"), " ", ""))
	require.Contains(t, readUntil("event:"), "issues")

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)
	hub.Publish("pull_request", "closed", nil)
	require.Equal(t, "id:3", strings.ReplaceAll(readUntil("id:"), " ", ""))

	require.Equal(t, ": heartbeat", readUntil(":"))

	cancel()
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestEventsStream_EmptyBacklogSameContentType(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := realtime.NewHub(10)
	r := gin.New()
	r.GET("/api/events/github", NewEventsHandler(hub, time.Second).Stream)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events/github?since=0", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream;charset=utf-8", resp.Header.Get("Content-Type"))
}
