package models

// ScrapeResponse is the body for POST /scrape results.
type ScrapeResponse struct {
	Success bool           `json:"success"`
	Data    *ProfileRecord `json:"data,omitempty"`
	Error   *ErrorDetail   `json:"error,omitempty"`

	// CacheStatus is "hit" or "miss" when the cache was consulted.
	CacheStatus string `json:"cache_status,omitempty"`
}

// AcceptedResponse is the 202 body for async scrapes with a callback URL.
type AcceptedResponse struct {
	Success     bool   `json:"success"`
	Queued      bool   `json:"queued"`
	QueueLength int    `json:"queue_length"`
	CallbackURL string `json:"callback_url"`
}

// QueueStatusResponse is the body for GET /queue.
type QueueStatusResponse struct {
	QueueLength    int  `json:"queue_length"`
	IsProcessing   bool `json:"is_processing"`
	RateLimitDelay int  `json:"rate_limit_delay"`
	ProxyEnabled   bool `json:"proxy_enabled"`
}

// HealthResponse is the body for GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	Uptime      string `json:"uptime"`
	QueueLength int    `json:"queue_length"`
	Version     string `json:"version"`
}

// InfoResponse is the body for GET /.
type InfoResponse struct {
	Service        string   `json:"service"`
	Version        string   `json:"version"`
	QueueLength    int      `json:"queue_length"`
	RateLimitDelay int      `json:"rate_limit_delay"`
	ProxyEnabled   bool     `json:"proxy_enabled"`
	Sections       []string `json:"sections"`
	Endpoints      []string `json:"endpoints"`
}
