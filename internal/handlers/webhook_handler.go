package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"ops-dashboard-api/internal/metrics"
	"ops-dashboard-api/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// maxWebhookBody matches GitHub's 25 MB payload cap.
const maxWebhookBody = 25 << 20

// Invalidator drops the cached views a webhook event makes outdated.
// *dashboard.Service implements it.
type Invalidator interface {
	InvalidateFor(eventType string) []string
}

// WebhookHandler receives GitHub webhook deliveries, records them on the
// event hub and expires the affected cached views.
type WebhookHandler struct {
	secret      string
	hub         *realtime.Hub
	invalidator Invalidator
	logger      *logrus.Logger
}

// NewWebhookHandler builds a WebhookHandler. An empty secret accepts
// unsigned deliveries; invalidator may be nil.
func NewWebhookHandler(secret string, hub *realtime.Hub, invalidator Invalidator, logger *logrus.Logger) *WebhookHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &WebhookHandler{secret: secret, hub: hub, invalidator: invalidator, logger: logger}
}

// Receive handles POST /api/webhooks/github
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	eventType := headerOr(c, "X-GitHub-Event", "unknown")
	delivery := headerOr(c, "X-GitHub-Delivery", "unknown")
	log := h.logger.WithFields(logrus.Fields{"event": eventType, "delivery": delivery})

	if !realtime.VerifySignature(body, c.GetHeader("X-Hub-Signature-256"), h.secret) {
		log.Warn("webhook signature mismatch")
		metrics.WebhookEvent(eventType, "bad_signature")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		return
	}

	if eventType == "ping" {
		c.JSON(http.StatusOK, gin.H{"ok": true, "message": "pong"})
		return
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		metrics.WebhookEvent(eventType, "bad_payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	action, _ := payload["action"].(string)
	evt := h.hub.Publish(eventType, action, realtime.Summarize(eventType, payload))

	var invalidated []string
	if h.invalidator != nil {
		invalidated = h.invalidator.InvalidateFor(eventType)
	}

	metrics.WebhookEvent(eventType, "accepted")
	log.WithFields(logrus.Fields{
		"action":      action,
		"event_id":    evt.ID,
		"invalidated": invalidated,
	}).Info("webhook received")

	c.JSON(http.StatusOK, gin.H{"ok": true, "eventId": evt.ID})
}

// List handles GET /api/webhooks/github?since=N
func (h *WebhookHandler) List(c *gin.Context) {
	since, ok := sinceParam(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":        "active",
		"totalReceived": h.hub.Total(),
		"buffered":      h.hub.Buffered(),
		"events":        h.hub.Replay(since),
	})
}

func headerOr(c *gin.Context, name, fallback string) string {
	if v := c.GetHeader(name); v != "" {
		return v
	}
	return fallback
}

// sinceParam parses the optional since cursor. It writes the 400 itself
// when the value is not an integer.
func sinceParam(c *gin.Context) (*int64, bool) {
	raw, present := c.GetQuery("since")
	if !present || raw == "" {
		return nil, true
	}
	since, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "since must be an integer"})
		return nil, false
	}
	return &since, true
}
