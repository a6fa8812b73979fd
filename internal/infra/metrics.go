package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	ticksProcessed  atomic.Uint64
	ticksDropped    atomic.Uint64
	triggersFired   atomic.Uint64
	reconnects      atomic.Uint64
	persistFailures atomic.Uint64
	errorsTotal     atomic.Uint64

	// Latency tracking
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	activeClients atomic.Int32
	feedConnected atomic.Int32 // 1 = connected, 0 = down
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordTick records one evaluated tick with its processing latency.
func (m *Metrics) RecordTick(latencyNs int64) {
	m.ticksProcessed.Add(1)
	m.latencySumNs.Add(latencyNs)
	m.latencyCount.Add(1)
}

// RecordDroppedTick records a tick discarded because the inbox was full.
func (m *Metrics) RecordDroppedTick() {
	m.ticksDropped.Add(1)
}

// RecordTrigger records a fired trade transition.
func (m *Metrics) RecordTrigger() {
	m.triggersFired.Add(1)
}

// RecordReconnect records a feed reconnect attempt.
func (m *Metrics) RecordReconnect() {
	m.reconnects.Add(1)
}

// RecordPersistFailure records a transition that could not be persisted.
func (m *Metrics) RecordPersistFailure() {
	m.persistFailures.Add(1)
}

// RecordError records an error occurrence.
func (m *Metrics) RecordError() {
	m.errorsTotal.Add(1)
}

// IncrementClients increments active notification clients by 1.
func (m *Metrics) IncrementClients() {
	m.activeClients.Add(1)
}

// DecrementClients decrements active notification clients by 1.
func (m *Metrics) DecrementClients() {
	m.activeClients.Add(-1)
}

// SetFeedConnected sets the feed connection gauge.
func (m *Metrics) SetFeedConnected(connected bool) {
	if connected {
		m.feedConnected.Store(1)
	} else {
		m.feedConnected.Store(0)
	}
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	TicksProcessed  uint64    `json:"ticks_processed"`
	TicksDropped    uint64    `json:"ticks_dropped"`
	TriggersFired   uint64    `json:"triggers_fired"`
	Reconnects      uint64    `json:"reconnects"`
	PersistFailures uint64    `json:"persist_failures"`
	ErrorsTotal     uint64    `json:"errors_total"`
	AvgLatencyNs    int64     `json:"avg_latency_ns"`
	ActiveClients   int32     `json:"active_clients"`
	FeedConnected   bool      `json:"feed_connected"`
	Timestamp       time.Time `json:"timestamp"`
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		TicksProcessed:  m.ticksProcessed.Load(),
		TicksDropped:    m.ticksDropped.Load(),
		TriggersFired:   m.triggersFired.Load(),
		Reconnects:      m.reconnects.Load(),
		PersistFailures: m.persistFailures.Load(),
		ErrorsTotal:     m.errorsTotal.Load(),
		AvgLatencyNs:    avgLatency,
		ActiveClients:   m.activeClients.Load(),
		FeedConnected:   m.feedConnected.Load() == 1,
		Timestamp:       time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.ticksProcessed.Store(0)
	m.ticksDropped.Store(0)
	m.triggersFired.Store(0)
	m.reconnects.Store(0)
	m.persistFailures.Store(0)
	m.errorsTotal.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.activeClients.Store(0)
	m.feedConnected.Store(0)
}
