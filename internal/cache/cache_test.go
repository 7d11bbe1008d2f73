package cache

import (
	"strings"
	"testing"
	"time"
)

func TestGetSetAndExpiry(t *testing.T) {
	c := NewMemoryCache(1 << 20)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("hit on empty cache")
	}

	c.Set("a", &Entry{HTML: "<html>a</html>", StatusCode: 200}, time.Minute)
	entry, ok := c.Get("a")
	if !ok || entry.HTML != "<html>a</html>" {
		t.Fatalf("Get after Set: ok=%v entry=%+v", ok, entry)
	}
	if c.Hits() != 1 {
		t.Errorf("Hits() = %d, want 1", c.Hits())
	}

	c.Set("b", &Entry{HTML: "b"}, -time.Second)
	if _, ok := c.Get("b"); ok {
		t.Error("expired entry served")
	}
}

func TestLRUEvictionBySize(t *testing.T) {
	// Room for two 100-byte bodies, not three
	c := NewMemoryCache(250)
	body := strings.Repeat("x", 100)

	c.Set("a", &Entry{HTML: body}, time.Minute)
	c.Set("b", &Entry{HTML: body}, time.Minute)
	c.Get("a") // a is now more recently used than b
	c.Set("c", &Entry{HTML: body}, time.Minute)

	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry survived eviction")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("recently used entry evicted")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("new entry missing")
	}
}

func TestOversizedEntrySkipped(t *testing.T) {
	c := NewMemoryCache(10)
	c.Set("big", &Entry{HTML: strings.Repeat("x", 100)}, time.Minute)
	if _, ok := c.Get("big"); ok {
		t.Error("entry bigger than the cache was stored")
	}
}

func TestClear(t *testing.T) {
	c := NewMemoryCache(1 << 20)
	c.Set("a", &Entry{HTML: "a"}, time.Minute)
	c.Clear()
	if _, ok := c.Get("a"); ok {
		t.Error("entry survived Clear")
	}
}
