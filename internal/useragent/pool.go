package useragent

import "sync"

// defaultAgents is a small set of realistic desktop browser identities.
// Rotation across them makes per-request fingerprints less uniform.
var defaultAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/89.0.4389.82 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.0 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/90.0.4430.212 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:88.0) Gecko/20100101 Firefox/88.0",
}

// Pool hands out user-agent strings round-robin
type Pool struct {
	agents []string
	index  int
	mu     sync.Mutex
}

// NewPool creates a pool from the given agents, or the default set when
// none are provided. A single agent effectively pins the identity.
func NewPool(agents ...string) *Pool {
	if len(agents) == 0 {
		agents = defaultAgents
	}
	return &Pool{agents: agents}
}

// Next returns the next user-agent string from the pool
func (p *Pool) Next() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	agent := p.agents[p.index]
	p.index = (p.index + 1) % len(p.agents)
	return agent
}

// Size returns the number of agents in the pool
func (p *Pool) Size() int {
	return len(p.agents)
}
