package dashboard

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"ops-dashboard-api/internal/cache"
	"ops-dashboard-api/internal/github"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestClassifyStage(t *testing.T) {
	cases := map[string]Stage{
		"01-brainstorm.md":        StageBrainstorm,
		"notes.md":                StageBrainstorm,
		"Trend-Report.md":         StageTrend,
		"stage3-debate.md":        StageResearch,
		"bizplan-v2.md":           StageStrategy,
		"pitch-deck.md":           StageMVP,
		"revenue-model.md":        StageScaleup,
		"research-then-scale.md":  StageScaleup,
		"mvp-strategy-roadmap.md": StageMVP,
		"curriculum.md":           StageMVP,
	}
	for name, want := range cases {
		require.Equal(t, want, ClassifyStage(name), name)
	}
}

func TestStageOrder(t *testing.T) {
	require.Equal(t, 1, StageBrainstorm.Order())
	require.Equal(t, 6, StageScaleup.Order())
	require.Equal(t, 0, Stage("unknown").Order())
}

func TestBuildPipelineItem(t *testing.T) {
	files := []contentEntry{
		{Name: "brainstorm.md", Type: "file", HTMLURL: "u1"},
		{Name: "trend-scan.md", Type: "file", HTMLURL: "u2"},
		{Name: "strategy.md", Type: "file", HTMLURL: "u3"},
		{Name: "gate-1-decision.md", Type: "file", HTMLURL: "g1"},
		{Name: "GATE-3-Decision.md", Type: "file", HTMLURL: "g3"},
		{Name: "gate-notes.md", Type: "file"},
		{Name: "lessons-learned.md", Type: "file"},
		{Name: "data.csv", Type: "file"},
	}

	item := buildPipelineItem("07-ai-tutor-app", files)
	require.Equal(t, "07", item.ID)
	require.Equal(t, "ai tutor app", item.Name)
	require.Len(t, item.Reports, 3)
	require.Equal(t, StageStrategy.Order(), item.LatestStage)

	require.Len(t, item.Gates, 5)
	require.Equal(t, Gate{Gate: 1, Status: "go", File: "gate-1-decision.md", URL: "g1"}, item.Gates[0])
	require.Equal(t, Gate{Gate: 2, Status: "pending"}, item.Gates[1])
	require.Equal(t, "go", item.Gates[2].Status)
	require.Equal(t, "GATE-3-Decision.md", item.Gates[2].File)
	require.Equal(t, "pending", item.Gates[4].Status)
}

func TestBuildPipelineItem_UnnumberedFolder(t *testing.T) {
	item := buildPipelineItem("misc", nil)
	require.Equal(t, "00", item.ID)
	require.Equal(t, "misc", item.Name)
	require.Empty(t, item.Reports)
	require.Zero(t, item.LatestStage)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newGitHubService(t *testing.T, handler http.Handler) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	gh := github.NewClient(github.Config{Token: "t", BaseURL: srv.URL, Logger: quietLogger()})
	swr := cache.New(cache.Config{Logger: quietLogger()}, gh)
	return NewService(gh, swr, Config{Org: "acme", Repo: "ops", ProjectNumber: 1, Logger: quietLogger()})
}

func TestPipeline_FetchesFoldersAndSortsByID(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/ops/contents/pipeline", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_ = json.NewEncoder(w).Encode([]contentEntry{
			{Name: "12-second", Type: "dir"},
			{Name: "README.md", Type: "file"},
			{Name: "03-first", Type: "dir"},
		})
	})
	mux.HandleFunc("/repos/acme/ops/contents/pipeline/12-second", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_ = json.NewEncoder(w).Encode([]contentEntry{{Name: "mvp.md", Type: "file"}})
	})
	mux.HandleFunc("/repos/acme/ops/contents/pipeline/03-first", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		// A single-file response is an object, not a listing.
		_, _ = w.Write([]byte(`{"name":"oops"}`))
	})
	svc := newGitHubService(t, mux)

	items, outcome, err := svc.Pipeline(context.Background())
	require.NoError(t, err)
	require.Equal(t, cache.OutcomeRevalidated, outcome)
	require.Len(t, items, 2)
	require.Equal(t, "03", items[0].ID)
	require.Empty(t, items[0].Reports)
	require.Equal(t, "12", items[1].ID)
	require.Equal(t, StageMVP.Order(), items[1].LatestStage)
	require.Equal(t, int32(3), atomic.LoadInt32(&calls))

	_, outcome, err = svc.Pipeline(context.Background())
	require.NoError(t, err)
	require.Equal(t, cache.OutcomeFresh, outcome)
	require.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestPipeline_NonArrayRootIsEmpty(t *testing.T) {
	svc := newGitHubService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	}))

	items, _, err := svc.Pipeline(context.Background())
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestPipeline_FolderFailureFailsTheView(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/ops/contents/pipeline", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]contentEntry{{Name: "01-a", Type: "dir"}})
	})
	mux.HandleFunc("/repos/acme/ops/contents/pipeline/01-a", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	svc := newGitHubService(t, mux)

	_, outcome, err := svc.Pipeline(context.Background())
	require.Error(t, err)
	require.Equal(t, github.KindUpstream, github.KindOf(err))
	require.Equal(t, cache.OutcomeFailed, outcome)
}
