// Package profile runs one scrape job end to end: session acquisition,
// navigation, extraction, teardown.
package profile

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/use-agent/peek/browser"
	"github.com/use-agent/peek/config"
	"github.com/use-agent/peek/models"
	"github.com/use-agent/peek/queue"
)

// Orchestrator executes one job at a time against the shared browser
// driver. It is stateless between calls; the scheduler guarantees no two
// invocations overlap.
type Orchestrator struct {
	driver    browser.Driver
	extractor Extractor
	scraper   config.ScraperConfig
	browserC  config.BrowserConfig
	proxy     config.ProxyConfig
}

// NewOrchestrator wires the orchestrator to its collaborators.
func NewOrchestrator(driver browser.Driver, extractor Extractor, cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		driver:    driver,
		extractor: extractor,
		scraper:   cfg.Scraper,
		browserC:  cfg.Browser,
		proxy:     cfg.Proxy,
	}
}

// Run validates the job's target and scrapes it. Transient failures
// (navigation timeout, session acquisition) are retried up to the job's
// retry budget with a fresh session per attempt; an invalid target and
// extraction outcomes are never retried.
func (o *Orchestrator) Run(ctx context.Context, job *queue.Job) (*models.ProfileRecord, error) {
	if !ValidTarget(job.Target) {
		return nil, models.NewScrapeError(
			models.ErrCodeInvalidTarget,
			"target does not look like a public profile URL: "+job.Target,
			nil,
		)
	}

	attempts := job.Retries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		record, err := o.runOnce(ctx, job)
		if err == nil {
			return record, nil
		}
		lastErr = err
		if !retryable(err) {
			return nil, err
		}
		if attempt < attempts {
			slog.Warn("scrape attempt failed, retrying",
				"target", job.Target,
				"attempt", attempt,
				"of", attempts,
				"error", err,
			)
		}
	}
	return nil, lastErr
}

// runOnce performs a single scrape attempt. The session acquired here is
// closed on every exit path by the deferred call; Session.Close is
// idempotent, and this is its only call site per attempt.
func (o *Orchestrator) runOnce(ctx context.Context, job *queue.Job) (*models.ProfileRecord, error) {
	// Proxy routing and credentials travel together: both are applied
	// iff the job opts in and the process has credentials configured.
	useProxy := job.UseProxy && o.proxy.Enabled()
	opts := browser.SessionOptions{}
	if useProxy {
		opts.ProxyServer = o.proxy.Server
	}

	session, err := o.driver.NewSession(ctx, opts)
	if err != nil {
		return nil, asScrapeError(err, models.ErrCodeSessionFailed, "failed to acquire browser session")
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			slog.Warn("session teardown failed", "target", job.Target, "error", closeErr)
		}
	}()

	if err := session.SetViewport(o.browserC.ViewportWidth, o.browserC.ViewportHeight); err != nil {
		return nil, asScrapeError(err, models.ErrCodeSessionFailed, "failed to set viewport")
	}
	if err := session.SetHeaders(spoofedHeaders(job.Target)); err != nil {
		return nil, asScrapeError(err, models.ErrCodeSessionFailed, "failed to set headers")
	}
	if useProxy {
		if err := session.AuthenticateProxy(o.proxy.Username, o.proxy.Password); err != nil {
			// Proxy auth failures are not distinguishable from other
			// session faults at this layer.
			return nil, asScrapeError(err, models.ErrCodeSessionFailed, "failed to register proxy credentials")
		}
	}

	navCtx, cancel := context.WithTimeout(ctx, o.scraper.NavigationTimeout)
	defer cancel()
	if err := session.Navigate(navCtx, job.Target); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, models.NewScrapeError(
				models.ErrCodeNavigationTimeout,
				"navigation did not finish within "+o.scraper.NavigationTimeout.String(),
				err,
			)
		}
		return nil, models.NewScrapeError(models.ErrCodeNavigationFailed, "navigation failed", err)
	}

	// Settle: give client-side rendering a moment before extraction.
	settle := job.Wait
	if settle <= 0 {
		settle = o.scraper.SettleDelay
	}
	select {
	case <-time.After(settle):
	case <-ctx.Done():
		return nil, models.NewScrapeError(models.ErrCodeInternal, "job interrupted", ctx.Err())
	}

	record, err := o.extractor.Extract(ctx, session, job.Sections)
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeExtractionFailed,
			"extraction evaluation failed",
			err,
		)
	}

	record.Meta = models.RecordMeta{
		SourceURL:        job.Target,
		RetrievedAt:      time.Now().UTC(),
		ExtractorVersion: o.extractor.Version(),
	}
	return record, nil
}

// retryable reports whether the failure is worth a fresh session.
func retryable(err error) bool {
	var se *models.ScrapeError
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == models.ErrCodeNavigationTimeout || se.Code == models.ErrCodeSessionFailed
}

// asScrapeError passes typed errors through and wraps everything else
// under the given code.
func asScrapeError(err error, code, msg string) error {
	var se *models.ScrapeError
	if errors.As(err, &se) {
		return se
	}
	return models.NewScrapeError(code, msg, err)
}

// spoofedHeaders is the fixed header set sent with every session: a
// plausible Accept-Language and a search-engine referer derived from the
// target host.
func spoofedHeaders(target string) map[string]string {
	headers := map[string]string{
		"Accept-Language": "en-US,en;q=0.9",
	}
	if u, err := url.Parse(target); err == nil {
		headers["Referer"] = "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname())
	}
	return headers
}
