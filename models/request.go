package models

// ScrapeRequest is the payload for POST /scrape.
type ScrapeRequest struct {
	// URL is the public profile page to scrape. Required.
	URL string `json:"url" binding:"required"`

	// ExtractSections limits extraction to the named sections.
	// Empty means "all sections".
	ExtractSections []string `json:"extract_sections,omitempty"`

	// UseProxy routes the browser session through the configured proxy.
	// Ignored when no proxy credentials are configured.
	UseProxy bool `json:"use_proxy,omitempty"`

	// WaitTime overrides the post-navigation settle delay, in seconds.
	// 0 means use the configured default.
	WaitTime int `json:"wait_time,omitempty" binding:"omitempty,min=0,max=30"`

	// RetryAttempts is the retry budget for transient failures
	// (navigation timeout, session acquisition). 0 means no retries.
	RetryAttempts int `json:"retry_attempts,omitempty" binding:"omitempty,min=0,max=5"`

	// MaxAge enables the response cache: a cached record younger than
	// this many milliseconds is returned without scraping. 0 disables
	// the cache lookup.
	MaxAge int `json:"max_age,omitempty" binding:"omitempty,min=0"`

	// CallbackURL, when set, makes the scrape asynchronous: the request
	// is acknowledged with 202 and the outcome is delivered to this URL
	// as a signed webhook.
	CallbackURL string `json:"callback_url,omitempty" binding:"omitempty,url"`
}
