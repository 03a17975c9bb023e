package handlers

import (
	"net/http"

	"ops-dashboard-api/internal/cache"
	"ops-dashboard-api/internal/dashboard"
	"ops-dashboard-api/internal/github"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// GitHubHandler serves the cached GitHub views. Each view fails on its own,
// so one widget's outage never blanks the others.
type GitHubHandler struct {
	svc    *dashboard.Service
	logger *logrus.Logger
}

func NewGitHubHandler(svc *dashboard.Service, logger *logrus.Logger) *GitHubHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &GitHubHandler{svc: svc, logger: logger}
}

// Get handles GET /api/github?type=board|issues|pulls|pipeline
// type defaults to board; issues take state=open|closed|all (default open).
func (h *GitHubHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	switch viewType := c.DefaultQuery("type", "board"); viewType {
	case "board":
		board, outcome, err := h.svc.Board(ctx)
		h.respond(c, viewType, board, outcome, err)
	case "issues":
		state := c.DefaultQuery("state", "open")
		if !dashboard.IssueStates[state] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid state"})
			return
		}
		issues, outcome, err := h.svc.Issues(ctx, state)
		h.respond(c, viewType, issues, outcome, err)
	case "pulls":
		pulls, outcome, err := h.svc.Pulls(ctx)
		h.respond(c, viewType, pulls, outcome, err)
	case "pipeline":
		items, outcome, err := h.svc.Pipeline(ctx)
		h.respond(c, viewType, items, outcome, err)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown type"})
	}
}

// Status handles GET /api/github/status
func (h *GitHubHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Status())
}

func (h *GitHubHandler) respond(c *gin.Context, view string, body any, outcome cache.Outcome, err error) {
	if err != nil {
		kind := errorKind(err)
		status := errorStatus(kind)
		h.logger.WithFields(logrus.Fields{
			"view":   view,
			"kind":   kind,
			"status": status,
		}).WithError(err).Warn("github view unavailable")
		c.JSON(status, gin.H{"error": err.Error(), "kind": kind})
		return
	}
	c.Header("X-Cache", outcome.String())
	c.JSON(http.StatusOK, body)
}

// errorKind treats failures from outside the client as upstream.
func errorKind(err error) github.Kind {
	if kind := github.KindOf(err); kind != "" {
		return kind
	}
	return github.KindUpstream
}

// errorStatus maps a failure kind to the HTTP status the dashboard shows.
func errorStatus(kind github.Kind) int {
	switch kind {
	case github.KindConfig:
		return http.StatusServiceUnavailable
	case github.KindAuth:
		return http.StatusUnauthorized
	case github.KindRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}
