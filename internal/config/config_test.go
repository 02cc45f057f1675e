package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datahunter/internal/collector/locate"
	"datahunter/pkg/log"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(env(nil))

	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 500*time.Millisecond, cfg.TweetPollInterval)
	assert.Equal(t, 300*time.Millisecond, cfg.ChatPollInterval)
	assert.Equal(t, 20, cfg.PollMaxAttempts)
	assert.Equal(t, 10*time.Minute, cfg.ReplyCacheTTL)
	assert.Equal(t, log.Info, cfg.LogLevel)
	assert.Empty(t, cfg.WatchURLs)
	assert.NoError(t, cfg.Validate())
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"DATAHUB_BASE_URL":       "http://localhost:9000/",
		"PORT":                   "8080",
		"HEADLESS":               "false",
		"LOG_LEVEL":              "debug",
		"WATCH_URLS":             " https://x.com/home , ,https://chatgpt.com/c/abc",
		"TWEET_POLL_INTERVAL_MS": "250",
		"POLL_MAX_ATTEMPTS":      "5",
	}))

	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/", cfg.DatahubBaseURL)
	assert.Equal(t, "8080", cfg.Port)
	assert.False(t, cfg.Headless)
	assert.Equal(t, log.Debug, cfg.LogLevel)
	assert.Equal(t, []string{"https://x.com/home", "https://chatgpt.com/c/abc"}, cfg.WatchURLs)
	assert.Equal(t, 250*time.Millisecond, cfg.TweetPollInterval)
	assert.Equal(t, 5, cfg.PollMaxAttempts)
}

func TestFromEnv_MalformedValues(t *testing.T) {
	_, err := FromEnv(env(map[string]string{
		"HEADLESS":          "sometimes",
		"POLL_MAX_ATTEMPTS": "many",
		"LOG_LEVEL":         "loud",
	}))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "HEADLESS")
	assert.Contains(t, err.Error(), "POLL_MAX_ATTEMPTS")
	assert.Contains(t, err.Error(), "LOG_LEVEL")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"relative hub url", func(c *Config) { c.DatahubBaseURL = "/api" }, "DATAHUB_BASE_URL"},
		{"bad port", func(c *Config) { c.Port = "http" }, "PORT"},
		{"http remote chrome", func(c *Config) { c.ChromeRemoteURL = "http://localhost:9222" }, "CHROME_REMOTE_URL"},
		{"zero attempts", func(c *Config) { c.PollMaxAttempts = 0 }, "POLL_MAX_ATTEMPTS"},
		{"zero submit limit", func(c *Config) { c.SubmitLimitPerMinute = 0 }, "SUBMIT_LIMIT_PER_MINUTE"},
		{"relative watch url", func(c *Config) { c.WatchURLs = []string{"x.com"} }, "WATCH_URLS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := FromEnv(env(nil))
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func writeSelectors(t *testing.T, path, body string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestLoadSelectors_FillsDefaults(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "selectors.yaml")
	writeSelectors(t, path, "chat:\n  busy: '#stop'\n", time.Now())

	// Act
	f, err := LoadSelectors(path, 0)

	// Assert
	require.NoError(t, err)
	defer f.Close()
	got := f.Selectors()
	assert.Equal(t, "#stop", got.Chat.Busy)
	assert.Equal(t, locate.DefaultSelectors().Tweet.Article, got.Tweet.Article)
	assert.Equal(t, locate.DefaultSelectors().Reply.Box, got.Reply.Box)
}

func TestLoadSelectors_Reloads(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "selectors.yaml")
	start := time.Now().Add(-time.Hour)
	writeSelectors(t, path, "reply:\n  box: '#old'\n", start)
	f, err := LoadSelectors(path, 10*time.Millisecond)
	require.NoError(t, err)
	defer f.Close()

	// Act
	writeSelectors(t, path, "reply:\n  box: '#new'\n", start.Add(time.Minute))

	// Assert
	assert.Eventually(t, func() bool {
		return f.Selectors().Reply.Box == "#new"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLoadSelectors_BrokenEditKeepsPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selectors.yaml")
	start := time.Now().Add(-time.Hour)
	writeSelectors(t, path, "reply:\n  box: '#kept'\n", start)
	f, err := LoadSelectors(path, 0)
	require.NoError(t, err)
	defer f.Close()

	writeSelectors(t, path, "reply: [unclosed", start.Add(time.Minute))
	require.True(t, f.changed())
	assert.Error(t, f.reload())

	assert.Equal(t, "#kept", f.Selectors().Reply.Box)
}

func TestLoadSelectors_MissingFile(t *testing.T) {
	_, err := LoadSelectors(filepath.Join(t.TempDir(), "absent.yaml"), 0)

	assert.Error(t, err)
}

func TestLoadSelectors_RepoFileParses(t *testing.T) {
	f, err := LoadSelectors(filepath.Join("..", "..", "config", "selectors.yaml"), 0)

	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, locate.DefaultSelectors(), f.Selectors())
}
