package metrics

import (
	"sync"
	"time"
)

const windowSize = 100

// Monitor tracks in-process request counters: totals, errors and a rolling
// latency window. Safe for concurrent use.
type Monitor struct {
	mu            sync.Mutex
	totalRequests int64
	errors        int64
	durations     []time.Duration
	startTime     time.Time
}

type Summary struct {
	UptimeSeconds         int64   `json:"uptime_seconds"`
	TotalRequests         int64   `json:"total_requests"`
	AverageResponseTimeMs int64   `json:"average_response_time_ms"`
	Errors                int64   `json:"errors"`
	ErrorRate             float64 `json:"error_rate"`
}

func NewMonitor() *Monitor {
	return &Monitor{
		durations: make([]time.Duration, 0, windowSize),
		startTime: time.Now(),
	}
}

func (m *Monitor) RecordRequest(d time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalRequests++
	if !success {
		m.errors++
	}
	m.durations = append(m.durations, d)
	if len(m.durations) > windowSize {
		m.durations = m.durations[1:]
	}
}

func (m *Monitor) Summary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	var avg time.Duration
	if len(m.durations) > 0 {
		var total time.Duration
		for _, d := range m.durations {
			total += d
		}
		avg = total / time.Duration(len(m.durations))
	}

	var errorRate float64
	if m.totalRequests > 0 {
		errorRate = float64(m.errors) / float64(m.totalRequests) * 100
	}

	return Summary{
		UptimeSeconds:         int64(time.Since(m.startTime).Seconds()),
		TotalRequests:         m.totalRequests,
		AverageResponseTimeMs: avg.Milliseconds(),
		Errors:                m.errors,
		ErrorRate:             errorRate,
	}
}
