package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("CACHE_STALE_FACTOR", "")
	t.Setenv("GITHUB_REQUEST_TIMEOUT", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "", cfg.GitHub.Token)
	require.Equal(t, "https://api.github.com", cfg.GitHub.BaseURL)
	require.Equal(t, 10*time.Second, cfg.GitHub.RequestTimeout)
	require.Equal(t, 5.0, cfg.Cache.StaleFactor)
	require.Equal(t, 10, cfg.Cache.LowWaterMark)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghp_test")
	t.Setenv("GITHUB_PROJECT_NUMBER", "7")
	t.Setenv("CACHE_STALE_WINDOW", "5m")
	t.Setenv("CACHE_RATE_LIMIT_LOW_WATER", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "ghp_test", cfg.GitHub.Token)
	require.Equal(t, 7, cfg.GitHub.ProjectNumber)
	require.Equal(t, 5*time.Minute, cfg.Cache.StaleWindow)
	require.Equal(t, 10, cfg.Cache.LowWaterMark)
}
