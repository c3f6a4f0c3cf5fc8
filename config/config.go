package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Queue     QueueConfig
	Proxy     ProxyConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Webhook   WebhookConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the shared Chrome instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: true

	// Bin overrides the Chromium binary path.
	Bin string

	// ViewportWidth/ViewportHeight are the fixed page viewport.
	ViewportWidth  int // default: 1280
	ViewportHeight int // default: 800
}

// ScraperConfig controls per-job scraping behavior.
type ScraperConfig struct {
	// NavigationTimeout is the hard deadline for navigating to the target page.
	NavigationTimeout time.Duration // default: 30s

	// SettleDelay is how long to wait after navigation completes before
	// extraction, to let client-side rendering finish.
	SettleDelay time.Duration // default: 2s
}

// QueueConfig controls the single-worker scrape queue.
type QueueConfig struct {
	// Delay is the fixed pause between consecutive jobs.
	Delay time.Duration // default: 3s
}

// ProxyConfig controls outbound proxy routing for scrape sessions.
// Proxy capability is enabled only when both Server and Username are set.
type ProxyConfig struct {
	Server   string // e.g. "http://proxy.example.com:8080"
	Username string
	Password string
}

// Enabled reports whether proxy routing can be applied to a session.
func (p ProxyConfig) Enabled() bool {
	return p.Server != "" && p.Username != ""
}

// RateLimitConfig controls per-client HTTP rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per client IP.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per client IP.
	Burst int // default: 10
}

// CacheConfig controls the scrape response cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached responses.
	MaxEntries int // default: 500
}

// WebhookConfig controls callback delivery for async scrapes.
type WebhookConfig struct {
	// Secret signs webhook payloads with HMAC-SHA256 when non-empty.
	Secret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("PEEK_HOST", "0.0.0.0"),
			Port: envIntOr("PEEK_PORT", 8080),
			Mode: envOr("PEEK_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:       envBoolOr("PEEK_HEADLESS", true),
			NoSandbox:      envBoolOr("PEEK_NO_SANDBOX", true),
			Bin:            os.Getenv("PEEK_BROWSER_BIN"),
			ViewportWidth:  envIntOr("PEEK_VIEWPORT_WIDTH", 1280),
			ViewportHeight: envIntOr("PEEK_VIEWPORT_HEIGHT", 800),
		},
		Scraper: ScraperConfig{
			NavigationTimeout: envDurationOr("PEEK_NAV_TIMEOUT", 30*time.Second),
			SettleDelay:       envDurationOr("PEEK_SETTLE_DELAY", 2*time.Second),
		},
		Queue: QueueConfig{
			Delay: envMillisOr("PEEK_RATE_LIMIT_DELAY_MS", 3000*time.Millisecond),
		},
		Proxy: ProxyConfig{
			Server:   os.Getenv("PEEK_PROXY_SERVER"),
			Username: os.Getenv("PEEK_PROXY_USERNAME"),
			Password: os.Getenv("PEEK_PROXY_PASSWORD"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("PEEK_RATE_RPS", 5.0),
			Burst:             envIntOr("PEEK_RATE_BURST", 10),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("PEEK_CACHE_MAX_ENTRIES", 500),
		},
		Webhook: WebhookConfig{
			Secret: os.Getenv("PEEK_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("PEEK_LOG_LEVEL", "info"),
			Format: envOr("PEEK_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envMillisOr reads a bare millisecond count (e.g. "3000"), falling back
// to time.ParseDuration syntax (e.g. "3s").
func envMillisOr(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
		return time.Duration(ms) * time.Millisecond
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return fallback
}
