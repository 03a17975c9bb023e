package dashboard

import (
	"context"
	"fmt"
	"time"

	"ops-dashboard-api/internal/cache"
	"ops-dashboard-api/internal/github"

	"github.com/sirupsen/logrus"
)

// Fresh TTLs per view. The pipeline tree changes rarely and costs one call
// per folder, so it is held longer.
const (
	boardTTL    = time.Minute
	issuesTTL   = time.Minute
	pullsTTL    = time.Minute
	pipelineTTL = 5 * time.Minute
)

// GitHub is the subset of *github.Client the views need.
type GitHub interface {
	GraphQL(ctx context.Context, query string, variables map[string]any, out any) error
	REST(ctx context.Context, path string, out any) error
	RateLimit() github.RateLimitState
}

// Config names the GitHub resources behind the views.
type Config struct {
	Org           string
	Repo          string
	PipelineRepo  string
	ProjectNumber int
	Logger        *logrus.Logger
}

// Service builds dashboard views from GitHub through the SWR cache.
type Service struct {
	gh            GitHub
	cache         *cache.SWR
	org           string
	repo          string
	pipelineRepo  string
	projectNumber int
	logger        *logrus.Logger
}

// NewService wires a Service. An empty PipelineRepo falls back to Repo.
func NewService(gh GitHub, swr *cache.SWR, cfg Config) *Service {
	pipelineRepo := cfg.PipelineRepo
	if pipelineRepo == "" {
		pipelineRepo = cfg.Repo
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		gh:            gh,
		cache:         swr,
		org:           cfg.Org,
		repo:          cfg.Repo,
		pipelineRepo:  pipelineRepo,
		projectNumber: cfg.ProjectNumber,
		logger:        logger,
	}
}

func (s *Service) boardKey() string { return fmt.Sprintf("board-%d", s.projectNumber) }

func issuesKey(state string) string { return "issues-" + state }

const (
	pullsKey    = "pulls"
	pipelineKey = "pipeline"
)

// InvalidateFor marks the views a webhook event of eventType makes outdated.
// It returns the affected keys.
func (s *Service) InvalidateFor(eventType string) []string {
	var keys []string
	switch eventType {
	case "issues", "issue_comment":
		keys = []string{issuesKey("open"), issuesKey("closed"), issuesKey("all"), s.boardKey()}
	case "pull_request", "pull_request_review":
		keys = []string{pullsKey, s.boardKey()}
	case "projects_v2_item":
		keys = []string{s.boardKey()}
	case "push":
		keys = []string{pipelineKey}
	default:
		return nil
	}
	s.cache.Invalidate(keys...)
	s.logger.WithFields(logrus.Fields{"event": eventType, "keys": keys}).Debug("dashboard: invalidated views")
	return keys
}
