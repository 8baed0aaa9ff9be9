package observability

import (
	"strconv"
	"sync"
	"time"
)

// routeStats accumulates per-route request outcomes.
type routeStats struct {
	count       int64
	totalTimeNS int64
}

// Metrics keeps in-memory counters for the portal API: request volume and
// latency per route/status, and error volume per failure code.
type Metrics struct {
	mu       sync.Mutex
	requests map[string]*routeStats
	failures map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requests: make(map[string]*routeStats),
		failures: make(map[string]int64),
	}
}

// RecordRequest counts a completed request and its latency.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := method + " " + path + " " + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	stats, ok := m.requests[key]
	if !ok {
		stats = &routeStats{}
		m.requests[key] = stats
	}
	stats.count++
	stats.totalTimeNS += duration.Nanoseconds()
}

// RecordError counts a request that ended in an error envelope, keyed by the
// failure code so transition conflicts and payment gates show up separately.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[method+" "+path+" "+code]++
}
