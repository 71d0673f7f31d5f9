package http

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	writeRequestsPerMinute = 60
	staleWindowAfter       = 10 * time.Minute
	limiterSweepInterval   = 5 * time.Minute
)

// rateLimiter caps write traffic per client IP. Parsing an expense costs a
// model call, so only POSTs are limited; reads are unmetered.
type rateLimiter struct {
	mu      sync.Mutex
	windows map[string]*requestWindow

	stopSweep chan struct{}
	stopOnce  sync.Once
}

// requestWindow tracks one client's request count. The window restarts after
// a minute of silence rather than on fixed boundaries.
type requestWindow struct {
	lastSeen time.Time
	count    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		windows:   make(map[string]*requestWindow),
		stopSweep: make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

func (rl *rateLimiter) sweepLoop() {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stopSweep:
			return
		}
	}
}

// sweep drops clients quiet long enough that their window no longer matters.
func (rl *rateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-staleWindowAfter)
	for ip, w := range rl.windows {
		if w.lastSeen.Before(cutoff) {
			delete(rl.windows, ip)
		}
	}
}

// stop shuts down the background sweep goroutine.
func (rl *rateLimiter) stop() {
	rl.stopOnce.Do(func() { close(rl.stopSweep) })
}

// allow records one write request from ip and reports whether it fits the
// per-minute budget.
func (rl *rateLimiter) allow(ip string, metrics *securityMetrics) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w, ok := rl.windows[ip]
	if !ok || now.Sub(w.lastSeen) > time.Minute {
		rl.windows[ip] = &requestWindow{lastSeen: now, count: 1}
		return true
	}

	w.count++
	w.lastSeen = now
	if w.count > writeRequestsPerMinute {
		if metrics != nil {
			atomic.AddInt64(&metrics.rateLimitHits, 1)
		}
		return false
	}
	return true
}
