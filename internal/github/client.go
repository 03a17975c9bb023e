package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ops-dashboard-api/internal/metrics"

	"github.com/sirupsen/logrus"
)

const (
	defaultBaseURL = "https://api.github.com"
	defaultTimeout = 10 * time.Second
	apiVersion     = "2022-11-28"

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 16 << 20
)

// Config configures a Client. Only Token matters for correctness; an empty
// token is allowed here and reported on each call instead, because some
// deployments run without GitHub access.
type Config struct {
	Token      string
	BaseURL    string
	HTTPClient *http.Client
	// Timeout bounds every call. Defaults to 10s.
	Timeout time.Duration
	Now     func() time.Time
	Logger  *logrus.Logger
}

// Client talks to the GitHub GraphQL and REST APIs and keeps track of the
// rate limit budget reported by every response.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	rateLimit  *rateLimitTracker
	logger     *logrus.Logger
}

// NewClient builds a Client, filling in defaults for unset fields.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Client{
		token:      cfg.Token,
		baseURL:    baseURL,
		httpClient: httpClient,
		timeout:    timeout,
		rateLimit:  newRateLimitTracker(now),
		logger:     logger,
	}
}

// GraphQLError is one entry of a GraphQL response's top-level errors array.
type GraphQLError struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Path    []any  `json:"path,omitempty"`
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// GraphQL posts query to the GraphQL endpoint and decodes the data member of
// the response into out. Field-level errors in a 200 response are logged and
// recorded but do not fail the call: whatever data came back is still
// decoded, and callers are expected to navigate it defensively.
func (c *Client) GraphQL(ctx context.Context, query string, variables map[string]any, out any) error {
	if variables == nil {
		variables = map[string]any{}
	}
	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return &Error{Kind: KindUpstream, Message: "encoding GraphQL request", Err: err}
	}

	target := shortenQuery(query)
	body, err := c.do(ctx, "graphql", "GraphQL", http.MethodPost, "/graphql", target, payload)
	if err != nil {
		return err
	}

	var resp graphQLResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return c.failDecode("graphql", target, err)
	}

	if len(resp.Errors) > 0 {
		message := resp.Errors[0].Message
		if message == "" {
			message = "GraphQL error"
		}
		c.rateLimit.fail(message)
		c.logger.WithFields(logrus.Fields{
			"query":  target,
			"errors": len(resp.Errors),
			"first":  message,
		}).Error("github: GraphQL response carried errors")
	}

	if out == nil || len(resp.Data) == 0 || string(resp.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return c.failDecode("graphql", target, err)
	}
	return nil
}

// REST performs a GET on path (relative to the API root, e.g.
// "/repos/org/repo/issues?state=open") and decodes the JSON body into out.
func (c *Client) REST(ctx context.Context, path string, out any) error {
	body, err := c.do(ctx, "rest", "REST", http.MethodGet, path, path, nil)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return c.failDecode("rest", path, err)
	}
	return nil
}

// RateLimit returns a copy of the tracked rate limit state.
func (c *Client) RateLimit() RateLimitState {
	return c.rateLimit.snapshot()
}

// Budget reports the remaining calls and the reset time. It lets the cache
// decide whether spending a request is worth it.
func (c *Client) Budget() (int, time.Time) {
	state := c.rateLimit.snapshot()
	return state.Remaining, state.ResetAt
}

// do sends one authenticated request and returns the raw body of a 2xx
// response. The token is checked before anything else so that a missing
// token never reaches the network.
func (c *Client) do(ctx context.Context, api, label, method, path, target string, payload []byte) ([]byte, error) {
	if c.token == "" {
		err := errNoToken()
		c.rateLimit.fail(err.Message)
		metrics.GitHubRequest(api, string(KindConfig))
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, c.failTransport(api, label, target, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.failTransport(api, label, target, err)
	}
	defer resp.Body.Close()

	c.rateLimit.update(resp.Header)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, c.failTransport(api, label, target, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		ghErr := classifyStatus(resp.StatusCode, label, target, body)
		c.rateLimit.fail(fmt.Sprintf("%s %d %s: %s", label, resp.StatusCode, target, truncate(string(body), maxBodyInError)))
		metrics.GitHubRequest(api, string(ghErr.Kind))
		c.logger.WithFields(logrus.Fields{
			"api":    api,
			"status": resp.StatusCode,
			"target": target,
			"kind":   ghErr.Kind,
		}).Warn("github: request failed")
		return nil, ghErr
	}

	metrics.GitHubRequest(api, "ok")
	return body, nil
}

func (c *Client) failTransport(api, label, target string, cause error) error {
	err := &Error{Kind: KindUpstream, Message: label + " request failed", Target: target, Err: cause}
	c.rateLimit.fail(err.Error())
	metrics.GitHubRequest(api, string(KindUpstream))
	c.logger.WithFields(logrus.Fields{"api": api, "target": target}).WithError(cause).Warn("github: transport failure")
	return err
}

func (c *Client) failDecode(api, target string, cause error) error {
	err := &Error{Kind: KindUpstream, Status: http.StatusOK, Message: "malformed JSON response", Target: target, Err: cause}
	c.rateLimit.fail(err.Error())
	return err
}

// shortenQuery collapses whitespace so a query can be used as a log label.
func shortenQuery(query string) string {
	return truncate(strings.Join(strings.Fields(query), " "), 80)
}
