package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"ops-dashboard-api/internal/cache"

	"golang.org/x/sync/errgroup"
)

// Stage is a step in the stage-gate pipeline, ordered brainstorm (1) through
// scaleup (6).
type Stage string

const (
	StageBrainstorm Stage = "brainstorm"
	StageTrend      Stage = "trend"
	StageResearch   Stage = "research"
	StageStrategy   Stage = "strategy"
	StageMVP        Stage = "mvp"
	StageScaleup    Stage = "scaleup"
)

var stageOrder = map[Stage]int{
	StageBrainstorm: 1,
	StageTrend:      2,
	StageResearch:   3,
	StageStrategy:   4,
	StageMVP:        5,
	StageScaleup:    6,
}

// Order returns the stage's position, 0 for an unknown stage.
func (s Stage) Order() int { return stageOrder[s] }

// Checked in order; the first stage with a matching keyword wins.
var stageKeywords = []struct {
	stage    Stage
	keywords []string
}{
	{StageScaleup, []string{"revenue", "scale", "stage6"}},
	{StageMVP, []string{"pitch", "mvp", "stage5", "execution", "curriculum"}},
	{StageStrategy, []string{"strategy", "roadmap", "bizplan", "stage4"}},
	{StageResearch, []string{"research", "debate", "discussion", "stage3"}},
	{StageTrend, []string{"trend", "stage2"}},
	{StageBrainstorm, []string{"brainstorm", "stage1"}},
}

// ClassifyStage maps a report file name to its stage by keyword.
// Unmatched names are brainstorm.
func ClassifyStage(filename string) Stage {
	name := strings.ToLower(filename)
	for _, sk := range stageKeywords {
		for _, kw := range sk.keywords {
			if strings.Contains(name, kw) {
				return sk.stage
			}
		}
	}
	return StageBrainstorm
}

const gateCount = 5

var (
	gateFile   = regexp.MustCompile(`(?i)^gate-\d+-decision\.md$`)
	folderName = regexp.MustCompile(`^(\d+)-(.+)$`)
)

type Report struct {
	Name  string `json:"name"`
	URL   string `json:"url"`
	Stage Stage  `json:"stage"`
}

type Gate struct {
	Gate   int    `json:"gate"`
	Status string `json:"status"`
	File   string `json:"file"`
	URL    string `json:"url"`
}

// PipelineItem is one pipeline/ folder.
type PipelineItem struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Reports     []Report `json:"reports"`
	Gates       []Gate   `json:"gates"`
	LatestStage int      `json:"latestStage"`
}

// contentEntry is an element of the REST contents API listing.
type contentEntry struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	HTMLURL string `json:"html_url"`
}

// Folder fetches run at most this many at a time.
const pipelineConcurrency = 4

// Pipeline returns the stage-gate tracker built from the pipeline repo's
// pipeline/ folder, cached.
func (s *Service) Pipeline(ctx context.Context) ([]PipelineItem, cache.Outcome, error) {
	return cache.Fetch(ctx, s.cache, pipelineKey, pipelineTTL, s.fetchPipeline)
}

func (s *Service) fetchPipeline(ctx context.Context) ([]PipelineItem, error) {
	dirs, err := s.listContents(ctx, "pipeline")
	if err != nil {
		return nil, err
	}

	var folders []string
	for _, d := range dirs {
		if d.Type == "dir" {
			folders = append(folders, d.Name)
		}
	}

	items := make([]PipelineItem, len(folders))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pipelineConcurrency)
	for i, name := range folders {
		g.Go(func() error {
			files, err := s.listContents(gctx, "pipeline/"+url.PathEscape(name))
			if err != nil {
				return fmt.Errorf("pipeline folder %s: %w", name, err)
			}
			items[i] = buildPipelineItem(name, files)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

// listContents lists a directory of the pipeline repo. A response that is
// not an array (a file, or an error document) is an empty listing.
func (s *Service) listContents(ctx context.Context, dir string) ([]contentEntry, error) {
	path := fmt.Sprintf("/repos/%s/%s/contents/%s", url.PathEscape(s.org), url.PathEscape(s.pipelineRepo), dir)
	var raw json.RawMessage
	if err := s.gh.REST(ctx, path, &raw); err != nil {
		return nil, err
	}
	var entries []contentEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return []contentEntry{}, nil
	}
	return entries, nil
}

func buildPipelineItem(folder string, files []contentEntry) PipelineItem {
	item := PipelineItem{ID: "00", Name: folder, Reports: []Report{}}
	if m := folderName.FindStringSubmatch(folder); m != nil {
		item.ID = m[1]
		item.Name = strings.ReplaceAll(m[2], "-", " ")
	}

	gates := make(map[string]contentEntry)
	for _, f := range files {
		if gateFile.MatchString(f.Name) {
			gates[strings.ToLower(f.Name)] = f
			continue
		}
		if !strings.HasSuffix(f.Name, ".md") || strings.HasPrefix(f.Name, "gate-") || f.Name == "lessons-learned.md" {
			continue
		}
		r := Report{Name: f.Name, URL: f.HTMLURL, Stage: ClassifyStage(f.Name)}
		item.Reports = append(item.Reports, r)
		if n := r.Stage.Order(); n > item.LatestStage {
			item.LatestStage = n
		}
	}

	// A decision file means the gate passed; pivot/kill would need the file body.
	item.Gates = make([]Gate, 0, gateCount)
	for n := 1; n <= gateCount; n++ {
		if f, ok := gates[fmt.Sprintf("gate-%d-decision.md", n)]; ok {
			item.Gates = append(item.Gates, Gate{Gate: n, Status: "go", File: f.Name, URL: f.HTMLURL})
		} else {
			item.Gates = append(item.Gates, Gate{Gate: n, Status: "pending"})
		}
	}
	return item
}
