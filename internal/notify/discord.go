package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// StatusChange describes a task moving between board columns.
type StatusChange struct {
	TaskID    string
	TaskTitle string
	OldStatus string
	NewStatus string
	AgentName string
}

var statusLabels = map[string]string{
	"planning":    "📋 기획",
	"inbox":       "📥 수신함",
	"assigned":    "📌 배정",
	"in_progress": "🔨 진행중",
	"testing":     "🧪 테스트",
	"review":      "🔍 검토",
	"done":        "✅ 완료",
}

var statusColors = map[string]int{
	"planning":    0x9333ea,
	"inbox":       0xec4899,
	"assigned":    0xeab308,
	"in_progress": 0x3b82f6,
	"testing":     0x06b6d4,
	"review":      0xa855f7,
	"done":        0x22c55e,
}

const defaultColor = 0x6b7280

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields"`
	Footer      struct {
		Text string `json:"text"`
	} `json:"footer"`
	Timestamp string `json:"timestamp"`
}

type webhookMessage struct {
	Embeds []embed `json:"embeds"`
}

// Discord posts task status changes to a Discord channel webhook. A Discord
// with no URL does nothing.
type Discord struct {
	url        string
	httpClient *http.Client
	now        func() time.Time
}

func NewDiscord(url string) *Discord {
	return &Discord{
		url:        url,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		now:        time.Now,
	}
}

// Enabled reports whether a webhook URL is configured.
func (d *Discord) Enabled() bool {
	return d != nil && d.url != ""
}

// StatusChanged sends the notification. Delivery failures are returned for
// the caller to log; they never affect the task update itself.
func (d *Discord) StatusChanged(ctx context.Context, change StatusChange) error {
	if !d.Enabled() {
		return nil
	}

	payload, err := json.Marshal(webhookMessage{Embeds: []embed{d.statusEmbed(change)}})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("discord webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("discord webhook: status %d", resp.StatusCode)
	}
	return nil
}

func (d *Discord) statusEmbed(change StatusChange) embed {
	agent := change.AgentName
	if agent == "" {
		agent = "미배정"
	}
	color, ok := statusColors[change.NewStatus]
	if !ok {
		color = defaultColor
	}
	e := embed{
		Title:       "📡 태스크 상태 변경",
		Description: fmt.Sprintf("**%s**", change.TaskTitle),
		Color:       color,
		Fields: []embedField{
			{Name: "상태", Value: label(change.OldStatus) + " → " + label(change.NewStatus), Inline: true},
			{Name: "담당자", Value: agent, Inline: true},
		},
		Timestamp: d.now().UTC().Format(time.RFC3339),
	}
	e.Footer.Text = "Task ID: " + change.TaskID
	return e
}

func label(status string) string {
	if l, ok := statusLabels[status]; ok {
		return l
	}
	return status
}
