package authgate

import "sync/atomic"

// MetricID defines a public type used by authgate APIs.
//
// MetricID instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricID uint16

const (
	// MetricLoginSuccess is an exported constant or variable used by the recovery engine.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure is an exported constant or variable used by the recovery engine.
	MetricLoginFailure
	// MetricLoginRateLimited is an exported constant or variable used by the recovery engine.
	MetricLoginRateLimited
	// MetricResetRequestSent is an exported constant or variable used by the recovery engine.
	MetricResetRequestSent
	// MetricResetRequestInvalidUser is an exported constant or variable used by the recovery engine.
	MetricResetRequestInvalidUser
	// MetricResetRequestThrottled is an exported constant or variable used by the recovery engine.
	MetricResetRequestThrottled
	// MetricResetCompleted is an exported constant or variable used by the recovery engine.
	MetricResetCompleted
	// MetricResetInvalidToken is an exported constant or variable used by the recovery engine.
	MetricResetInvalidToken
	// MetricEmailVerified is an exported constant or variable used by the recovery engine.
	MetricEmailVerified
	// MetricMailEnqueueFailed is an exported constant or variable used by the recovery engine.
	MetricMailEnqueueFailed

	metricCount
)

// MetricsConfig defines a public type used by authgate APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled bool
}

// MetricsSnapshot is a point-in-time copy of all engine counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// Metrics holds lock-free counters, one per MetricID.
type Metrics struct {
	enabled  bool
	counters [metricCount]atomic.Uint64
}

// NewMetrics describes the newmetrics operation and its observable behavior.
//
// NewMetrics does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc describes the inc operation and its observable behavior.
//
// Inc does not mutate shared global state beyond its own counter and can be used concurrently.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricCount {
		return
	}
	m.counters[id].Add(1)
}

// Snapshot describes the snapshot operation and its observable behavior.
//
// Snapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{Counters: make(map[MetricID]uint64, metricCount)}
	if m == nil || !m.enabled {
		return snap
	}
	for id := MetricID(0); id < metricCount; id++ {
		snap.Counters[id] = m.counters[id].Load()
	}
	return snap
}
