// Package browser wraps the headless-browser automation driver behind a
// narrow Driver/Session boundary. The rest of the service never touches
// rod directly, so tests can substitute a stub driver.
package browser

import (
	"context"

	"github.com/ysmood/gson"
)

// SessionOptions configures one session at acquisition time.
type SessionOptions struct {
	// ProxyServer routes this session's traffic through the given proxy.
	// Empty means a direct connection. Applied per session so individual
	// jobs can opt in or out of proxy routing.
	ProxyServer string
}

// Driver hands out browser sessions. The process owns exactly one Driver
// backed by one browser; sessions are cheap per-job handles on top of it.
type Driver interface {
	// NewSession opens a fresh, isolated session. The caller owns the
	// session exclusively and must Close it exactly once.
	NewSession(ctx context.Context, opts SessionOptions) (Session, error)

	// Close shuts the underlying browser down. Call once at process exit.
	Close() error
}

// Session is one live handle to a browser page, exclusively owned for the
// duration of one scrape job.
type Session interface {
	// SetViewport fixes the page viewport dimensions.
	SetViewport(width, height int) error

	// SetHeaders installs extra HTTP headers sent with every request.
	SetHeaders(headers map[string]string) error

	// AuthenticateProxy registers proxy credentials. Must be called
	// before Navigate.
	AuthenticateProxy(username, password string) error

	// Navigate loads the URL and waits for the DOM to settle, bounded
	// by the context deadline.
	Navigate(ctx context.Context, url string) error

	// Eval runs a JS function (source form "() => ...") in the page
	// context and returns its result.
	Eval(ctx context.Context, js string) (gson.JSON, error)

	// HTML returns the current rendered page HTML.
	HTML(ctx context.Context) (string, error)

	// Close releases the session. Idempotent.
	Close() error
}
