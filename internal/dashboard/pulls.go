package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"time"

	"ops-dashboard-api/internal/cache"
)

const pullsQuery = `
query($org: String!) {
  organization(login: $org) {
    repositories(first: 10, orderBy: {field: UPDATED_AT, direction: DESC}) {
      nodes {
        name
        pullRequests(first: 20, states: [OPEN, MERGED, CLOSED], orderBy: {field: UPDATED_AT, direction: DESC}) {
          nodes {
            number title state isDraft
            createdAt updatedAt mergedAt closedAt url
            additions deletions changedFiles
            author { login avatarUrl }
            labels(first: 5) { nodes { name color } }
            reviewDecision
            reviews(first: 5) { nodes { author { login } state } }
            headRefName baseRefName
          }
        }
      }
    }
  }
}`

type Review struct {
	Author string `json:"author"`
	State  string `json:"state"`
}

// PullRequest is one PR across the organization's active repositories.
type PullRequest struct {
	Repo           string     `json:"repo"`
	Number         int        `json:"number"`
	Title          string     `json:"title"`
	State          string     `json:"state"`
	IsDraft        bool       `json:"isDraft"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	MergedAt       *time.Time `json:"mergedAt"`
	URL            string     `json:"url"`
	Additions      int        `json:"additions"`
	Deletions      int        `json:"deletions"`
	ChangedFiles   int        `json:"changedFiles"`
	Author         string     `json:"author"`
	AuthorAvatar   string     `json:"authorAvatar"`
	Labels         []Label    `json:"labels"`
	ReviewDecision string     `json:"reviewDecision"`
	Reviews        []Review   `json:"reviews"`
	Branch         string     `json:"branch"`
	BaseBranch     string     `json:"baseBranch"`
}

type pullsData struct {
	Organization *struct {
		Repositories struct {
			Nodes []struct {
				Name         string `json:"name"`
				PullRequests struct {
					Nodes []pullNode `json:"nodes"`
				} `json:"pullRequests"`
			} `json:"nodes"`
		} `json:"repositories"`
	} `json:"organization"`
}

type pullNode struct {
	Number       int        `json:"number"`
	Title        string     `json:"title"`
	State        string     `json:"state"`
	IsDraft      bool       `json:"isDraft"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	MergedAt     *time.Time `json:"mergedAt"`
	URL          string     `json:"url"`
	Additions    int        `json:"additions"`
	Deletions    int        `json:"deletions"`
	ChangedFiles int        `json:"changedFiles"`
	Author       *Person    `json:"author"`
	Labels       struct {
		Nodes []Label `json:"nodes"`
	} `json:"labels"`
	ReviewDecision string `json:"reviewDecision"`
	Reviews        struct {
		Nodes []struct {
			Author *struct {
				Login string `json:"login"`
			} `json:"author"`
			State string `json:"state"`
		} `json:"nodes"`
	} `json:"reviews"`
	HeadRefName string `json:"headRefName"`
	BaseRefName string `json:"baseRefName"`
}

// Pulls returns recent pull requests across the organization, newest update
// first, cached.
func (s *Service) Pulls(ctx context.Context) ([]PullRequest, cache.Outcome, error) {
	return cache.Fetch(ctx, s.cache, pullsKey, pullsTTL, func(ctx context.Context) ([]PullRequest, error) {
		var data pullsData
		if err := s.gh.GraphQL(ctx, pullsQuery, map[string]any{"org": s.org}, &data); err != nil {
			return nil, err
		}
		return flattenPulls(data), nil
	})
}

func flattenPulls(data pullsData) []PullRequest {
	pulls := []PullRequest{}
	if data.Organization == nil {
		return pulls
	}
	for _, repo := range data.Organization.Repositories.Nodes {
		for _, pr := range repo.PullRequests.Nodes {
			out := PullRequest{
				Repo:           repo.Name,
				Number:         pr.Number,
				Title:          pr.Title,
				State:          pr.State,
				IsDraft:        pr.IsDraft,
				CreatedAt:      pr.CreatedAt,
				UpdatedAt:      pr.UpdatedAt,
				MergedAt:       pr.MergedAt,
				URL:            pr.URL,
				Additions:      pr.Additions,
				Deletions:      pr.Deletions,
				ChangedFiles:   pr.ChangedFiles,
				Author:         "unknown",
				Labels:         append([]Label{}, pr.Labels.Nodes...),
				ReviewDecision: pr.ReviewDecision,
				Reviews:        make([]Review, 0, len(pr.Reviews.Nodes)),
				Branch:         pr.HeadRefName,
				BaseBranch:     pr.BaseRefName,
			}
			if pr.Author != nil {
				out.Author = pr.Author.Login
				out.AuthorAvatar = pr.Author.AvatarURL
			}
			for _, r := range pr.Reviews.Nodes {
				review := Review{State: r.State}
				if r.Author != nil {
					review.Author = r.Author.Login
				}
				out.Reviews = append(out.Reviews, review)
			}
			pulls = append(pulls, out)
		}
	}
	sort.SliceStable(pulls, func(i, j int) bool {
		return pulls[i].UpdatedAt.After(pulls[j].UpdatedAt)
	})
	return pulls
}

// IssueStates are the values GitHub accepts for the issues state filter.
var IssueStates = map[string]bool{"open": true, "closed": true, "all": true}

// Issues returns the repository's issues in the given state as GitHub sent
// them, cached per state.
func (s *Service) Issues(ctx context.Context, state string) ([]json.RawMessage, cache.Outcome, error) {
	if !IssueStates[state] {
		return nil, cache.OutcomeFailed, fmt.Errorf("dashboard: invalid issue state %q", state)
	}
	path := fmt.Sprintf("/repos/%s/%s/issues?state=%s&per_page=100",
		url.PathEscape(s.org), url.PathEscape(s.repo), state)
	return cache.Fetch(ctx, s.cache, issuesKey(state), issuesTTL, func(ctx context.Context) ([]json.RawMessage, error) {
		issues := []json.RawMessage{}
		if err := s.gh.REST(ctx, path, &issues); err != nil {
			return nil, err
		}
		return issues, nil
	})
}
