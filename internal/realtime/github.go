package realtime

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const signaturePrefix = "sha256="

// VerifySignature checks a GitHub X-Hub-Signature-256 header against the raw
// request body. An empty secret disables verification.
func VerifySignature(body []byte, signature, secret string) bool {
	if secret == "" {
		return true
	}
	if !strings.HasPrefix(signature, signaturePrefix) {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(signature, signaturePrefix))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// Sign returns the X-Hub-Signature-256 value for body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

const maxPushCommits = 5

// Summarize keeps the fields of a webhook payload the dashboard displays.
func Summarize(eventType string, body map[string]any) map[string]any {
	switch eventType {
	case "issues":
		issue := object(body, "issue")
		return map[string]any{
			"number": issue["number"],
			"title":  issue["title"],
			"state":  issue["state"],
			"user":   object(issue, "user")["login"],
			"labels": labelNames(issue["labels"]),
			"url":    issue["html_url"],
		}
	case "pull_request":
		pr := object(body, "pull_request")
		return map[string]any{
			"number": pr["number"],
			"title":  pr["title"],
			"state":  pr["state"],
			"merged": pr["merged"],
			"user":   object(pr, "user")["login"],
			"url":    pr["html_url"],
		}
	case "push":
		commits := []map[string]any{}
		list, _ := body["commits"].([]any)
		for i, c := range list {
			if i == maxPushCommits {
				break
			}
			commit, _ := c.(map[string]any)
			message, _ := commit["message"].(string)
			message, _, _ = strings.Cut(message, "\n")
			commits = append(commits, map[string]any{
				"message": message,
				"author":  object(commit, "author")["name"],
			})
		}
		return map[string]any{
			"ref":     body["ref"],
			"commits": commits,
			"pusher":  object(body, "pusher")["name"],
		}
	case "projects_v2_item":
		return map[string]any{
			"changes":     body["changes"],
			"projectItem": body["projects_v2_item"],
		}
	default:
		return map[string]any{"raw": "unsummarized"}
	}
}

// object returns m[key] as an object, or an empty one. Indexing the result
// is always safe.
func object(m map[string]any, key string) map[string]any {
	if v, ok := m[key].(map[string]any); ok {
		return v
	}
	return map[string]any{}
}

func labelNames(v any) []any {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	names := make([]any, 0, len(list))
	for _, l := range list {
		if label, ok := l.(map[string]any); ok {
			names = append(names, label["name"])
		}
	}
	return names
}
