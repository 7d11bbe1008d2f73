// internal/fetch/browser.go
package fetch

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"

	"github.com/trendlens/tokbird/internal/ratelimit"
	"github.com/trendlens/tokbird/internal/session"
)

// overlaySelectors match consent and cookie popups that block clicks on
// the aggregator's pages.
var overlaySelectors = []string{
	"#qc-cmp2-container .qc-cmp2-summary-buttons button[mode=primary]",
	".qc-cmp2-container button[mode=primary]",
	".fc-consent-root .fc-cta-consent",
	"[class*=consent] button",
}

// BrowserOptions configures the rendered-browser fetcher
type BrowserOptions struct {
	Headless   bool
	UserAgent  string
	Proxy      string
	ChromePath string
	Timeout    time.Duration
	SettleWait time.Duration
	Limiter    ratelimit.Limiter
	Session    *session.Data
}

// Browser implements Fetcher with headless Chrome. It renders the page
// so AJAX-driven listings appear exactly as a real visitor sees them,
// and it can keep a tab open to click the load-more control repeatedly.
type Browser struct {
	opts        BrowserOptions
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewBrowser creates the fetcher and its shared Chrome allocator
func NewBrowser(opts BrowserOptions) (*Browser, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.SettleWait <= 0 {
		opts.SettleWait = 500 * time.Millisecond
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.NewShared(0)
	}

	chromePath := opts.ChromePath
	if chromePath == "" {
		chromePath = findChrome()
	}

	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-breakpad", true),
		chromedp.Flag("disable-client-side-phishing-detection", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-hang-monitor", true),
		chromedp.Flag("disable-ipc-flooding-protection", true),
		chromedp.Flag("disable-prompt-on-repost", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("window-size", "1920,1080"),
	}
	if chromePath != "" {
		allocOpts = append([]chromedp.ExecAllocatorOption{chromedp.ExecPath(chromePath)}, allocOpts...)
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
	} else {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Proxy))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)

	return &Browser{
		opts:        opts,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
	}, nil
}

// Name returns the name of this fetcher
func (b *Browser) Name() string {
	return "BrowserFetcher"
}

// Fetch navigates a fresh tab to the URL and returns the rendered HTML
func (b *Browser) Fetch(ctx context.Context, req Request) (*Page, error) {
	tab, err := b.OpenTab(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	defer tab.Close()

	html, err := tab.HTML(ctx)
	if err != nil {
		return nil, err
	}

	return &Page{
		URL:          req.URL,
		StatusCode:   tab.StatusCode(),
		HTML:         html,
		FetchedAt:    time.Now(),
		ResponseTime: time.Since(tab.openedAt).Milliseconds(),
	}, nil
}

// Close shuts down the Chrome allocator
func (b *Browser) Close() {
	b.allocCancel()
}

// Tab is a live browser page used for repeated load-more clicks
type Tab struct {
	url      string
	ctx      context.Context
	cancel   context.CancelFunc
	openedAt time.Time
	status   int64
}

// OpenTab navigates a new tab to the URL, dismisses consent overlays and
// leaves the page live for further interaction.
func (b *Browser) OpenTab(ctx context.Context, urlStr string) (*Tab, error) {
	if err := b.opts.Limiter.Wait(ctx); err != nil {
		return nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(b.allocCtx)

	tab := &Tab{
		url:      urlStr,
		ctx:      tabCtx,
		cancel:   tabCancel,
		openedAt: time.Now(),
	}

	// Capture the status code of the main document
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if resp, ok := ev.(*network.EventResponseReceived); ok {
			if resp.Response.URL == urlStr {
				tab.status = resp.Response.Status
			}
		}
	})

	navCtx, cancel := context.WithTimeout(tabCtx, b.opts.Timeout)
	defer cancel()

	tasks := []chromedp.Action{network.Enable()}

	if cookies := b.sessionCookies(); len(cookies) > 0 {
		tasks = append(tasks, network.SetCookies(cookies))
	}

	tasks = append(tasks,
		chromedp.Navigate(urlStr),
		chromedp.Sleep(b.opts.SettleWait),
	)

	if err := chromedp.Run(navCtx, tasks...); err != nil {
		tabCancel()
		return nil, &NetworkError{URL: urlStr, Err: err}
	}

	tab.dismissOverlays(navCtx)

	log.Debug().
		Str("url", urlStr).
		Int64("status", tab.status).
		Msg("Tab opened")

	return tab, nil
}

// sessionCookies converts persisted cookies to the devtools format
func (b *Browser) sessionCookies() []*network.CookieParam {
	if b.opts.Session == nil {
		return nil
	}
	var cookies []*network.CookieParam
	for _, c := range b.opts.Session.Cookies {
		cookie := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		}
		if c.Expires > 0 {
			t := time.Unix(int64(c.Expires), 0)
			expires := cdp.TimeSinceEpoch(t)
			cookie.Expires = &expires
		}
		switch c.SameSite {
		case "Strict":
			cookie.SameSite = network.CookieSameSiteStrict
		case "Lax":
			cookie.SameSite = network.CookieSameSiteLax
		case "None":
			cookie.SameSite = network.CookieSameSiteNone
		}
		cookies = append(cookies, cookie)
	}
	return cookies
}

// dismissOverlays clicks through known consent popups, best effort
func (t *Tab) dismissOverlays(ctx context.Context) {
	for _, sel := range overlaySelectors {
		clickCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := chromedp.Run(clickCtx, chromedp.Click(sel, chromedp.ByQuery))
		cancel()
		if err == nil {
			log.Debug().Str("selector", sel).Msg("Dismissed overlay")
			return
		}
	}
}

// StatusCode returns the HTTP status of the main document, or 200 when
// the browser never reported one.
func (t *Tab) StatusCode() int {
	if t.status == 0 {
		return 200
	}
	return int(t.status)
}

// HTML returns the current rendered document
func (t *Tab) HTML(ctx context.Context) (string, error) {
	runCtx, cancel := context.WithTimeout(t.ctx, 10*time.Second)
	defer cancel()

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTabGone, err)
	}
	return html, nil
}

// Count returns how many nodes currently match the selector
func (t *Tab) Count(ctx context.Context, selector string) (int, error) {
	runCtx, cancel := context.WithTimeout(t.ctx, 5*time.Second)
	defer cancel()

	var n int
	js := fmt.Sprintf("document.querySelectorAll(%q).length", selector)
	if err := chromedp.Run(runCtx, chromedp.Evaluate(js, &n)); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTabGone, err)
	}
	return n, nil
}

// ClickAndWait clicks the given control and waits until the number of
// nodes matching countSelector grows past prevCount or maxWait elapses.
// Returns the new count; growth of zero with a nil error means the click
// produced no new entries.
func (t *Tab) ClickAndWait(ctx context.Context, clickSelector, countSelector string, prevCount int, maxWait time.Duration) (int, error) {
	clickCtx, cancel := context.WithTimeout(t.ctx, 10*time.Second)
	err := chromedp.Run(clickCtx,
		chromedp.ScrollIntoView(clickSelector, chromedp.ByQuery),
		chromedp.Click(clickSelector, chromedp.ByQuery),
	)
	cancel()
	if err != nil {
		return prevCount, fmt.Errorf("click %q: %w", clickSelector, err)
	}

	deadline := time.Now().Add(maxWait)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return prevCount, ctx.Err()
		case <-time.After(time.Second):
		}

		n, err := t.Count(ctx, countSelector)
		if err != nil {
			return prevCount, err
		}
		if n > prevCount {
			log.Debug().
				Int("before", prevCount).
				Int("after", n).
				Msg("New entries appeared after click")
			return n, nil
		}
	}

	return prevCount, nil
}

// Cookies exports the tab's current cookies for session persistence
func (t *Tab) Cookies(ctx context.Context) ([]session.Cookie, error) {
	runCtx, cancel := context.WithTimeout(t.ctx, 5*time.Second)
	defer cancel()

	var out []session.Cookie
	err := chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := storage.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range cookies {
			out = append(out, session.Cookie{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Expires:  c.Expires,
				HTTPOnly: c.HTTPOnly,
				Secure:   c.Secure,
				SameSite: c.SameSite.String(),
			})
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Close releases the tab
func (t *Tab) Close() {
	t.cancel()
}

// findChrome locates a Chrome or Chromium binary on the host
func findChrome() string {
	var candidates []string
	switch runtime.GOOS {
	case "darwin":
		candidates = []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}
	case "windows":
		candidates = []string{
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		}
	default:
		candidates = []string{
			"google-chrome-stable",
			"google-chrome",
			"chromium-browser",
			"chromium",
		}
	}

	for _, c := range candidates {
		if path, err := exec.LookPath(c); err == nil {
			return path
		}
	}
	return ""
}
