package proxy

import "testing"

func TestEmptyPoolMeansDirect(t *testing.T) {
	p := NewPool(nil)
	if got := p.Next(); got != "" {
		t.Errorf("Next() = %q, want empty for direct connection", got)
	}
	if p.Size() != 0 {
		t.Errorf("Size() = %d", p.Size())
	}
}

func TestPoolRotation(t *testing.T) {
	p := NewPool([]string{"http://p1:8080", "http://p2:8080"})
	first, second, third := p.Next(), p.Next(), p.Next()
	if first == second {
		t.Error("consecutive proxies should differ")
	}
	if third != first {
		t.Errorf("rotation should wrap, got %q then %q", first, third)
	}
}

func TestFailedProxyIsSkipped(t *testing.T) {
	p := NewPool([]string{"http://p1:8080", "http://p2:8080"})
	p.MarkFailed("http://p1:8080")

	for i := 0; i < 4; i++ {
		if got := p.Next(); got != "http://p2:8080" {
			t.Fatalf("Next() = %q, want the healthy proxy", got)
		}
	}

	p.MarkHealthy("http://p1:8080")
	seen := map[string]bool{}
	for i := 0; i < 4; i++ {
		seen[p.Next()] = true
	}
	if !seen["http://p1:8080"] {
		t.Error("recovered proxy never handed out")
	}
}

func TestAllProxiesFailedStillServes(t *testing.T) {
	p := NewPool([]string{"http://p1:8080"})
	p.MarkFailed("http://p1:8080")
	if got := p.Next(); got == "" {
		t.Error("pool with only failed proxies should still hand one out")
	}
}
