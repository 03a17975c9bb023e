package github

import (
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"
)

// Kind classifies a failed GitHub call by what the caller should do about it.
type Kind string

const (
	// KindConfig means no token is configured. Not retryable, and no
	// request was sent.
	KindConfig Kind = "config"
	// KindAuth means GitHub rejected the token (401). An operator has to
	// replace it; retrying cannot help.
	KindAuth Kind = "auth"
	// KindRateLimit covers 403 and 429. Back off, serve cached data.
	KindRateLimit Kind = "rate_limit"
	// KindUpstream is everything else: other non-2xx statuses, transport
	// failures, timeouts and undecodable bodies.
	KindUpstream Kind = "upstream"
)

// maxBodyInError bounds how much of a response body is kept for diagnostics.
const maxBodyInError = 200

// Error is returned by every failing Client call.
type Error struct {
	Kind Kind
	// Status is the HTTP status code, or 0 when no response was received.
	Status  int
	Message string
	// Target is the REST path or a shortened GraphQL query.
	Target string
	// Body is the response body truncated to maxBodyInError bytes.
	Body string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Target != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Target)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return "github: " + msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of a github error, or "" for any other error.
func KindOf(err error) Kind {
	var ghErr *Error
	if errors.As(err, &ghErr) {
		return ghErr.Kind
	}
	return ""
}

// IsConfig reports whether err is the missing-token error.
func IsConfig(err error) bool { return KindOf(err) == KindConfig }

// IsAuth reports whether err is a 401 from GitHub.
func IsAuth(err error) bool { return KindOf(err) == KindAuth }

// IsRateLimited reports whether err is a 403 or 429 from GitHub.
func IsRateLimited(err error) bool { return KindOf(err) == KindRateLimit }

// errNoToken is shared by every call made without a token.
func errNoToken() *Error {
	return &Error{Kind: KindConfig, Message: "GITHUB_TOKEN not configured"}
}

// classifyStatus turns a non-2xx response into an Error. label names the API
// ("GraphQL" or "REST") in the generic message.
func classifyStatus(status int, label, target string, body []byte) *Error {
	switch status {
	case http.StatusUnauthorized:
		return &Error{Kind: KindAuth, Status: status, Message: "token expired or invalid", Target: target}
	case http.StatusForbidden, http.StatusTooManyRequests:
		return &Error{Kind: KindRateLimit, Status: status, Message: "rate limited", Target: target}
	default:
		return &Error{
			Kind:    KindUpstream,
			Status:  status,
			Message: fmt.Sprintf("GitHub %s error: %d", label, status),
			Target:  target,
			Body:    truncate(string(body), maxBodyInError),
		}
	}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
