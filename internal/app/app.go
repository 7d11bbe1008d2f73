// Package app assembles the runtime pieces the CLI commands share:
// logger, cache, throttle, pools, session and the fetchers.
package app

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/trendlens/tokbird/internal/cache"
	"github.com/trendlens/tokbird/internal/config"
	"github.com/trendlens/tokbird/internal/fetch"
	"github.com/trendlens/tokbird/internal/proxy"
	"github.com/trendlens/tokbird/internal/ratelimit"
	"github.com/trendlens/tokbird/internal/retry"
	"github.com/trendlens/tokbird/internal/session"
	"github.com/trendlens/tokbird/internal/useragent"
)

// Application holds the shared runtime for one invocation
type Application struct {
	Config  *config.Config
	Cache   cache.Cache
	Limiter ratelimit.Limiter
	Agents  *useragent.Pool
	Proxies *proxy.Pool
	Session *session.Data
	Client  *fetch.Client

	browser *fetch.Browser
}

// New wires an application from loaded config
func New(cfg *config.Config) (*Application, error) {
	initLogger(cfg)

	app := &Application{
		Config:  cfg,
		Cache:   cache.NewMemoryCache(cfg.CacheMaxSizeBytes),
		Limiter: ratelimit.NewShared(cfg.Delay),
		Proxies: proxy.NewPool(cfg.Proxies),
	}

	if cfg.UserAgent != "" {
		app.Agents = useragent.NewPool(cfg.UserAgent)
	} else {
		app.Agents = useragent.NewPool()
	}

	sess, err := session.Load(session.DefaultName)
	if err == nil {
		app.Session = sess
		log.Debug().Int("cookies", len(sess.Cookies)).Msg("Loaded saved session")
	}

	retryCfg := retry.DefaultConfig()
	if cfg.MaxRetries > 0 {
		retryCfg.MaxAttempts = cfg.MaxRetries
	}

	app.Client = fetch.NewClient(fetch.ClientOptions{
		Timeout:  cfg.HTTPTimeout,
		Retry:    retryCfg,
		Limiter:  app.Limiter,
		Agents:   app.Agents,
		Proxies:  app.Proxies,
		Cache:    app.Cache,
		CacheTTL: cfg.CacheTTL,
		DebugDir: cfg.DebugDir,
		Session:  app.Session,
	})

	return app, nil
}

// Browser lazily starts the rendered fetcher. Chrome only launches when
// a command actually needs it.
func (a *Application) Browser() (*fetch.Browser, error) {
	if a.browser != nil {
		return a.browser, nil
	}

	ua := ""
	if a.Agents.Size() > 0 {
		ua = a.Agents.Next()
	}
	proxyURL := ""
	if a.Proxies.Size() > 0 {
		proxyURL = a.Proxies.Next()
	}

	b, err := fetch.NewBrowser(fetch.BrowserOptions{
		Headless:   a.Config.BrowserHeadless,
		UserAgent:  ua,
		Proxy:      proxyURL,
		ChromePath: a.Config.ChromePath,
		Timeout:    a.Config.HTTPTimeout * 2,
		SettleWait: config.DefaultSettleWait,
		Limiter:    a.Limiter,
		Session:    a.Session,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", fetch.ErrBrowser, err)
	}
	a.browser = b
	return b, nil
}

// SaveSession persists cookies for later runs, best effort
func (a *Application) SaveSession(cookies []session.Cookie) {
	if len(cookies) == 0 {
		return
	}
	data := &session.Data{
		Name:      session.DefaultName,
		BaseURL:   a.Config.BaseURL,
		Cookies:   cookies,
		CreatedAt: time.Now(),
	}
	if err := session.Save(data); err != nil {
		log.Debug().Err(err).Msg("Session save failed")
		return
	}
	a.Session = data
}

// Close releases held resources
func (a *Application) Close() {
	if a.browser != nil {
		a.browser.Close()
		a.browser = nil
	}
	a.Client.CloseIdleConnections()
	a.Cache.Close()
}

func initLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.JSONLog {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	})
}
