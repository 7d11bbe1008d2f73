// internal/fetch/client.go
package fetch

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/trendlens/tokbird/internal/cache"
	"github.com/trendlens/tokbird/internal/proxy"
	"github.com/trendlens/tokbird/internal/ratelimit"
	"github.com/trendlens/tokbird/internal/retry"
	"github.com/trendlens/tokbird/internal/session"
	"github.com/trendlens/tokbird/internal/urlutil"
	"github.com/trendlens/tokbird/internal/useragent"
)

// ClientOptions configures the HTTP fetcher
type ClientOptions struct {
	Timeout  time.Duration
	Retry    retry.Config
	Limiter  ratelimit.Limiter
	Agents   *useragent.Pool
	Proxies  *proxy.Pool
	Cache    cache.Cache
	CacheTTL time.Duration
	DebugDir string
	Session  *session.Data
}

// Client implements Fetcher over plain HTTP with retry, user-agent
// rotation, optional proxies and the shared request throttle.
type Client struct {
	timeout  time.Duration
	retryCfg retry.Config
	limiter  ratelimit.Limiter
	agents   *useragent.Pool
	proxies  *proxy.Pool
	cache    cache.Cache
	cacheTTL time.Duration
	debugDir string

	direct *http.Client

	mu       sync.Mutex
	byProxy  map[string]*http.Client
	sessData *session.Data
}

// NewClient creates a new HTTP fetcher
func NewClient(opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.DefaultConfig()
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.NewShared(0)
	}
	if opts.Agents == nil {
		opts.Agents = useragent.NewPool()
	}
	if opts.Proxies == nil {
		opts.Proxies = proxy.NewPool(nil)
	}

	c := &Client{
		timeout:  opts.Timeout,
		retryCfg: opts.Retry,
		limiter:  opts.Limiter,
		agents:   opts.Agents,
		proxies:  opts.Proxies,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		debugDir: opts.DebugDir,
		byProxy:  make(map[string]*http.Client),
		sessData: opts.Session,
	}
	c.direct = c.newHTTPClient("")
	return c
}

// Name returns the name of this fetcher
func (c *Client) Name() string {
	return "HTTPClient"
}

// Fetch retrieves a URL with retries, throttling and caching
func (c *Client) Fetch(ctx context.Context, req Request) (*Page, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	if err := urlutil.ValidateURL(req.URL); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	reqID := requestID()

	if method == http.MethodGet && !req.NoCache && c.cache != nil {
		if entry, ok := c.cache.Get(req.URL); ok {
			log.Debug().
				Str("req_id", reqID).
				Str("url", req.URL).
				Msg("Cache hit")
			return &Page{
				URL:        req.URL,
				StatusCode: entry.StatusCode,
				HTML:       entry.HTML,
				FetchedAt:  entry.FetchedAt,
			}, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	var page *Page

	err := retry.WithRetry(ctx, c.retryCfg, func() error {
		p, err := c.attempt(ctx, method, req, reqID)
		if err != nil {
			return err
		}
		page = p
		return nil
	})
	if err != nil {
		log.Warn().
			Str("req_id", reqID).
			Str("url", req.URL).
			Int("max_attempts", c.retryCfg.MaxAttempts).
			Err(err).
			Msg("Fetch failed")
		return nil, err
	}

	page.ResponseTime = time.Since(start).Milliseconds()

	// Parse eagerly; a body goquery can't make sense of is kept for
	// offline inspection but never fails the fetch.
	if _, perr := page.Document(); perr != nil {
		log.Warn().
			Str("req_id", reqID).
			Str("url", req.URL).
			Err(perr).
			Msg("Response body did not parse as HTML")
		saveDebugArtifact(c.debugDir, req.URL, page.HTML)
	}

	if method == http.MethodGet && !req.NoCache && c.cache != nil && page.StatusCode == http.StatusOK {
		_ = c.cache.Set(req.URL, &cache.Entry{
			HTML:       page.HTML,
			StatusCode: page.StatusCode,
			FetchedAt:  page.FetchedAt,
		}, c.cacheTTL)
	}

	log.Debug().
		Str("req_id", reqID).
		Str("url", req.URL).
		Int("status", page.StatusCode).
		Int64("response_time_ms", page.ResponseTime).
		Msg("Fetch completed")

	return page, nil
}

// attempt performs a single HTTP request
func (c *Client) attempt(ctx context.Context, method string, req Request, reqID string) (*Page, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if method == http.MethodPost && req.Form != nil {
		body = strings.NewReader(req.Form.Encode())
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, method, req.URL, body)
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("User-Agent", c.agents.Next())
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.9")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if req.AJAX {
		httpReq.Header.Set("X-Requested-With", "XMLHttpRequest")
	}
	if req.Referer != "" {
		httpReq.Header.Set("Referer", req.Referer)
	}

	proxyURL := c.proxies.Next()
	client := c.clientFor(proxyURL)

	resp, err := client.Do(httpReq)
	if err != nil {
		c.proxies.MarkFailed(proxyURL)
		if attemptCtx.Err() == context.DeadlineExceeded {
			return nil, &NetworkError{URL: req.URL, Err: ErrTimeout}
		}
		return nil, &NetworkError{URL: req.URL, Err: err}
	}
	defer resp.Body.Close()

	c.proxies.MarkHealthy(proxyURL)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{URL: req.URL, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Debug().
			Str("req_id", reqID).
			Str("url", req.URL).
			Int("status", resp.StatusCode).
			Msg("Non-2xx response")
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			URL:        req.URL,
		}
	}

	return &Page{
		URL:        req.URL,
		StatusCode: resp.StatusCode,
		HTML:       string(raw),
		FetchedAt:  time.Now(),
	}, nil
}

// clientFor returns an http.Client routed through the given proxy, or the
// direct client when proxyURL is empty. Clients are reused per proxy so
// keep-alive still works under rotation.
func (c *Client) clientFor(proxyURL string) *http.Client {
	if proxyURL == "" {
		return c.direct
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.byProxy[proxyURL]; ok {
		return client
	}
	client := c.newHTTPClient(proxyURL)
	c.byProxy[proxyURL] = client
	return client
}

func (c *Client) newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DisableCompression:  false,
	}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		} else {
			log.Warn().Str("proxy", proxyURL).Err(err).Msg("Invalid proxy URL, using direct connection")
		}
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   c.timeout,
	}

	// Inject persisted consent cookies so listings render without the popup
	if c.sessData != nil && len(c.sessData.Cookies) > 0 {
		if jar, err := cookiejar.New(nil); err == nil {
			if base, err := url.Parse(c.sessData.BaseURL); err == nil {
				jar.SetCookies(base, c.sessData.HTTPCookies())
				client.Jar = jar
			}
		}
	}

	return client
}

// CloseIdleConnections releases pooled connections on all clients
func (c *Client) CloseIdleConnections() {
	c.direct.CloseIdleConnections()
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, client := range c.byProxy {
		client.CloseIdleConnections()
	}
}

// requestID generates a short id for correlating log lines of one fetch
func requestID() string {
	b := make([]byte, 4)
	rand.Read(b)
	return hex.EncodeToString(b)
}
