package infrastructure

import (
	"math/rand"
	"sync"
	"time"
)

// DefaultUserAgents are desktop browser identities rotated per request
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:122.0) Gecko/20100101 Firefox/122.0",
}

// UserAgentPool picks a random User-Agent from a fixed list
type UserAgentPool struct {
	agents []string

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewUserAgentPool creates a pool; an empty list falls back to DefaultUserAgents
func NewUserAgentPool(agents []string) *UserAgentPool {
	if len(agents) == 0 {
		agents = DefaultUserAgents
	}
	return &UserAgentPool{
		agents: agents,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Pick returns one User-Agent
func (p *UserAgentPool) Pick() string {
	if p == nil {
		return ""
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.agents[p.rnd.Intn(len(p.agents))]
}

// Len returns the pool size
func (p *UserAgentPool) Len() int {
	return len(p.agents)
}
