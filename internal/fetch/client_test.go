package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/trendlens/tokbird/internal/cache"
	"github.com/trendlens/tokbird/internal/retry"
	"github.com/trendlens/tokbird/internal/useragent"
)

func fastRetry(attempts int) retry.Config {
	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = attempts
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	return cfg
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{Retry: fastRetry(3)})
	page, err := c.Fetch(context.Background(), Request{URL: srv.URL})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("server saw %d calls, want 3", got)
	}
	if !strings.Contains(page.HTML, "ok") {
		t.Errorf("HTML = %q", page.HTML)
	}
}

func TestClientDoesNotRetryNotFound(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{Retry: fastRetry(3)})
	_, err := c.Fetch(context.Background(), Request{URL: srv.URL})
	if err == nil {
		t.Fatal("want error for 404")
	}
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != 404 {
		t.Fatalf("err = %v, want HTTPError 404", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("server saw %d calls, want 1", got)
	}
}

func TestClientRotatesUserAgents(t *testing.T) {
	var agents []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents = append(agents, r.Header.Get("User-Agent"))
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{
		Retry:  fastRetry(1),
		Agents: useragent.NewPool("agent-one", "agent-two"),
	})
	for i := 0; i < 2; i++ {
		if _, err := c.Fetch(context.Background(), Request{URL: srv.URL, NoCache: true}); err != nil {
			t.Fatal(err)
		}
	}
	if len(agents) != 2 || agents[0] != "agent-one" || agents[1] != "agent-two" {
		t.Errorf("agents = %v", agents)
	}
}

func TestClientAJAXHeaders(t *testing.T) {
	var gotXRW, gotReferer, gotCT string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotXRW = r.Header.Get("X-Requested-With")
		gotReferer = r.Header.Get("Referer")
		gotCT = r.Header.Get("Content-Type")
		r.ParseForm()
		w.Write([]byte("<div></div>"))
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{Retry: fastRetry(1)})
	form := map[string][]string{"hash": {"dance"}}
	_, err := c.Fetch(context.Background(), Request{
		URL:     srv.URL,
		Method:  "POST",
		Form:    form,
		Referer: "https://urlebird.com/hash/dance/",
		AJAX:    true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if gotXRW != "XMLHttpRequest" {
		t.Errorf("X-Requested-With = %q", gotXRW)
	}
	if gotReferer != "https://urlebird.com/hash/dance/" {
		t.Errorf("Referer = %q", gotReferer)
	}
	if gotCT != "application/x-www-form-urlencoded" {
		t.Errorf("Content-Type = %q", gotCT)
	}
}

func TestClientServesFromCache(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte("<html><body>cached</body></html>"))
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{
		Retry:    fastRetry(1),
		Cache:    cache.NewMemoryCache(1 << 20),
		CacheTTL: time.Minute,
	})

	for i := 0; i < 3; i++ {
		page, err := c.Fetch(context.Background(), Request{URL: srv.URL})
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(page.HTML, "cached") {
			t.Errorf("HTML = %q", page.HTML)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("server saw %d calls, want 1", got)
	}
}

func TestSaveDebugArtifact(t *testing.T) {
	dir := t.TempDir()
	saveDebugArtifact(dir, "https://urlebird.com/hash/dance/", "<<< not html >>>")

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d artifacts, want 1", len(entries))
	}
	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "<<< not html >>>" {
		t.Errorf("artifact content = %q", data)
	}
	if !strings.HasSuffix(entries[0].Name(), ".html") {
		t.Errorf("artifact name = %q", entries[0].Name())
	}
}
