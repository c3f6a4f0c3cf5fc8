package browser

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/peek/config"
	"github.com/use-agent/peek/models"
	"github.com/ysmood/gson"
)

// RodDriver is the production Driver backed by a single headless Chrome
// process managed through go-rod. It is safe for concurrent use, though
// the scheduler only ever runs one session at a time.
type RodDriver struct {
	browser *rod.Browser
	cfg     config.BrowserConfig
}

// NewRodDriver launches the browser and connects to it. Proxy routing is
// not configured at launch: it is applied per session through the
// session's browser context, so jobs that do not ask for the proxy get a
// direct connection.
func NewRodDriver(cfg config.BrowserConfig) (*RodDriver, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}

	// Determinism and container friendliness: no GPU, no background
	// throttling, no first-run prompts, masked automation features.
	l.Set(flags.Flag("disable-gpu"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeSessionFailed,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeSessionFailed,
			"failed to connect to browser",
			err,
		)
	}

	return &RodDriver{browser: b, cfg: cfg}, nil
}

// NewSession opens an isolated browser context with a single page.
// Context isolation keeps cookies and storage from leaking between jobs,
// and carries the per-session proxy server when one is requested.
func (d *RodDriver) NewSession(ctx context.Context, opts SessionOptions) (Session, error) {
	create := proto.TargetCreateBrowserContext{}
	if opts.ProxyServer != "" {
		create.ProxyServer = opts.ProxyServer
	}
	bctx, err := create.Call(d.browser)
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeSessionFailed,
			"failed to create browser context",
			err,
		)
	}

	target, err := proto.TargetCreateTarget{
		URL:              "about:blank",
		BrowserContextID: bctx.BrowserContextID,
	}.Call(d.browser)
	if err != nil {
		d.disposeContext(bctx.BrowserContextID)
		return nil, models.NewScrapeError(
			models.ErrCodeSessionFailed,
			"failed to open page",
			err,
		)
	}

	page, err := d.browser.PageFromTarget(target.TargetID)
	if err != nil {
		d.disposeContext(bctx.BrowserContextID)
		return nil, models.NewScrapeError(
			models.ErrCodeSessionFailed,
			"failed to attach to page",
			err,
		)
	}

	// Stealth must be injected before navigation to take effect.
	if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
		slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
	}

	return &rodSession{
		browser:   d.browser,
		page:      page,
		contextID: bctx.BrowserContextID,
	}, nil
}

func (d *RodDriver) disposeContext(id proto.BrowserBrowserContextID) {
	if err := (proto.TargetDisposeBrowserContext{BrowserContextID: id}).Call(d.browser); err != nil {
		slog.Warn("failed to dispose browser context", "error", err)
	}
}

// Close kills the browser process.
func (d *RodDriver) Close() error {
	slog.Info("closing browser")
	return d.browser.Close()
}

// rodSession implements Session on top of one browser context + page.
type rodSession struct {
	browser   *rod.Browser
	page      *rod.Page
	contextID proto.BrowserBrowserContextID
	stopAuth  context.CancelFunc
	closeOnce sync.Once
	closeErr  error
}

func (s *rodSession) SetViewport(width, height int) error {
	return s.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
		Mobile:            false,
	})
}

func (s *rodSession) SetHeaders(headers map[string]string) error {
	if len(headers) == 0 {
		return nil
	}
	return proto.NetworkSetExtraHTTPHeaders{
		Headers: toHeadersMap(headers),
	}.Call(s.page)
}

// AuthenticateProxy answers the next proxy auth challenge with the given
// credentials. The handler is scoped to this session: Close cancels it,
// so a session whose navigation never triggers a challenge does not leak
// the waiting goroutine or keep the Fetch domain enabled.
func (s *rodSession) AuthenticateProxy(username, password string) error {
	authCtx, cancel := context.WithCancel(context.Background())
	s.stopAuth = cancel
	wait := s.browser.Context(authCtx).HandleAuth(username, password)
	go func() {
		if err := wait(); err != nil && !errors.Is(err, context.Canceled) {
			slog.Debug("proxy auth handler finished", "error", err)
		}
	}()
	return nil
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return err
	}
	// Best effort: wait for the DOM to stop mutating. SPAs keep the
	// network busy indefinitely, so DOM stability beats network idle.
	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", err)
	}
	return nil
}

func (s *rodSession) Eval(ctx context.Context, js string) (gson.JSON, error) {
	res, err := s.page.Context(ctx).Eval(js)
	if err != nil {
		return gson.New(nil), err
	}
	return res.Value, nil
}

func (s *rodSession) HTML(ctx context.Context) (string, error) {
	return s.page.Context(ctx).HTML()
}

// Close releases the auth handler, the page, and its browser context.
// Idempotent: repeat calls return the first result.
func (s *rodSession) Close() error {
	s.closeOnce.Do(func() {
		if s.stopAuth != nil {
			s.stopAuth()
		}
		if err := s.page.Close(); err != nil {
			slog.Warn("failed to close page", "error", err)
			s.closeErr = err
		}
		// Disposing the context drops its cookies, storage and proxy
		// binding without touching the shared browser.
		err := proto.TargetDisposeBrowserContext{
			BrowserContextID: s.contextID,
		}.Call(s.browser)
		if err != nil && s.closeErr == nil {
			s.closeErr = err
		}
	})
	return s.closeErr
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders
// type (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
