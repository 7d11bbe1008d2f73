package proxy

import (
	"sync"
	"time"
)

// failureCooldown is how long a proxy is skipped after a failure
const failureCooldown = 5 * time.Minute

// Pool manages a list of proxies with rotation and failure tracking
type Pool struct {
	proxies []string
	index   int
	mu      sync.Mutex
	failed  map[string]time.Time
}

// NewPool creates a new proxy Pool. An empty list is valid and means
// direct connections.
func NewPool(proxies []string) *Pool {
	return &Pool{
		proxies: proxies,
		failed:  make(map[string]time.Time),
	}
}

// Next returns the next healthy proxy from the pool, or "" when the pool
// is empty (direct connection).
func (p *Pool) Next() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.proxies) == 0 {
		return ""
	}

	start := p.index
	for {
		proxy := p.proxies[p.index]
		p.index = (p.index + 1) % len(p.proxies)

		if failTime, ok := p.failed[proxy]; ok {
			if time.Since(failTime) < failureCooldown {
				if p.index == start {
					// All proxies are failed; hand out the current one anyway
					return proxy
				}
				continue
			}
			delete(p.failed, proxy)
		}

		return proxy
	}
}

// MarkFailed marks a proxy as failed so it will be skipped for a while
func (p *Pool) MarkFailed(proxy string) {
	if proxy == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed[proxy] = time.Now()
}

// MarkHealthy clears the failure status of a proxy
func (p *Pool) MarkHealthy(proxy string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.failed, proxy)
}

// Size returns the number of proxies in the pool
func (p *Pool) Size() int {
	return len(p.proxies)
}
