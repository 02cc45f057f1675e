// Package config reads the daemon settings from the environment and the
// selectors from YAML.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"datahunter/pkg/log"
)

// Config holds every setting of the daemon.
type Config struct {
	DatahubBaseURL string
	Port           string

	ChromePath      string
	ChromeRemoteURL string
	Headless        bool

	SelectorsPath string
	StorePath     string
	LogLevel      log.Level
	WatchURLs     []string

	TweetPollInterval time.Duration
	ChatPollInterval  time.Duration
	PollMaxAttempts   int

	ReplyCacheTTL        time.Duration
	SubmitLimitPerMinute int
}

// Defaults.
const (
	DefaultDatahubBaseURL = "https://datahub.example.com/"
	DefaultPort           = "3000"
	DefaultSelectorsPath  = "config/selectors.yaml"
	DefaultStorePath      = "data/datahunter.db"
)

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a config from getenv. Malformed values are errors, absent
// ones take defaults.
func FromEnv(getenv func(string) string) (*Config, error) {
	r := reader{getenv: getenv}

	cfg := &Config{
		DatahubBaseURL:       r.str("DATAHUB_BASE_URL", DefaultDatahubBaseURL),
		Port:                 r.str("PORT", DefaultPort),
		ChromePath:           r.str("CHROME_PATH", ""),
		ChromeRemoteURL:      r.str("CHROME_REMOTE_URL", ""),
		Headless:             r.boolean("HEADLESS", true),
		SelectorsPath:        r.str("SELECTORS_PATH", DefaultSelectorsPath),
		StorePath:            r.str("STORE_PATH", DefaultStorePath),
		WatchURLs:            r.list("WATCH_URLS"),
		TweetPollInterval:    r.millis("TWEET_POLL_INTERVAL_MS", 500*time.Millisecond),
		ChatPollInterval:     r.millis("CHAT_POLL_INTERVAL_MS", 300*time.Millisecond),
		PollMaxAttempts:      r.integer("POLL_MAX_ATTEMPTS", 20),
		ReplyCacheTTL:        time.Duration(r.integer("REPLY_CACHE_TTL_MINUTES", 10)) * time.Minute,
		SubmitLimitPerMinute: r.integer("SUBMIT_LIMIT_PER_MINUTE", 10),
	}

	level, err := log.ParseLevel(r.str("LOG_LEVEL", "info"))
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	cfg.LogLevel = level

	if len(r.errs) > 0 {
		return nil, errors.Join(r.errs...)
	}
	return cfg, nil
}

// Validate reports settings the daemon cannot start with.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.DatahubBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("DATAHUB_BASE_URL must be an absolute http(s) URL, got %q", c.DatahubBaseURL))
	}
	if p, err := strconv.Atoi(c.Port); err != nil || p <= 0 || p > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be a TCP port, got %q", c.Port))
	}
	if c.ChromeRemoteURL != "" && !strings.HasPrefix(c.ChromeRemoteURL, "ws://") && !strings.HasPrefix(c.ChromeRemoteURL, "wss://") {
		errs = append(errs, fmt.Errorf("CHROME_REMOTE_URL must be a websocket URL, got %q", c.ChromeRemoteURL))
	}
	if c.TweetPollInterval <= 0 || c.ChatPollInterval <= 0 {
		errs = append(errs, errors.New("poll intervals must be positive"))
	}
	if c.PollMaxAttempts <= 0 {
		errs = append(errs, errors.New("POLL_MAX_ATTEMPTS must be positive"))
	}
	if c.ReplyCacheTTL <= 0 {
		errs = append(errs, errors.New("REPLY_CACHE_TTL_MINUTES must be positive"))
	}
	if c.SubmitLimitPerMinute <= 0 {
		errs = append(errs, errors.New("SUBMIT_LIMIT_PER_MINUTE must be positive"))
	}
	for _, w := range c.WatchURLs {
		if u, err := url.Parse(w); err != nil || u.Host == "" {
			errs = append(errs, fmt.Errorf("WATCH_URLS entry %q is not an absolute URL", w))
		}
	}
	return errors.Join(errs...)
}

type reader struct {
	getenv func(string) string
	errs   []error
}

func (r *reader) str(key, def string) string {
	if v := strings.TrimSpace(r.getenv(key)); v != "" {
		return v
	}
	return def
}

func (r *reader) integer(key string, def int) int {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (r *reader) millis(key string, def time.Duration) time.Duration {
	n := r.integer(key, -1)
	if n < 0 {
		return def
	}
	return time.Duration(n) * time.Millisecond
}

func (r *reader) boolean(key string, def bool) bool {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func (r *reader) list(key string) []string {
	var out []string
	for _, part := range strings.Split(r.getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
