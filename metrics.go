package goToken

import (
	"sync/atomic"
	"time"
)

// MetricID identifies an engine counter or histogram.
type MetricID uint16

const (
	// MetricEncodeSuccess counts tokens produced by Encode and the issuing helpers.
	MetricEncodeSuccess MetricID = iota
	// MetricEncodeFailure counts encode attempts rejected for algorithm or key problems.
	MetricEncodeFailure
	// MetricDecodeSuccess counts tokens that passed every decode stage.
	MetricDecodeSuccess
	// MetricDecodeMalformed counts tokens rejected by the structural stage.
	MetricDecodeMalformed
	// MetricDecodeUnsupportedAlgorithm counts header algorithm mismatches.
	MetricDecodeUnsupportedAlgorithm
	// MetricDecodeMissingKey counts decodes attempted without key material.
	MetricDecodeMissingKey
	// MetricDecodeInvalidSignature counts signature verification failures.
	MetricDecodeInvalidSignature
	// MetricDecodeExpired counts tokens rejected after exp.
	MetricDecodeExpired
	// MetricDecodeNotYetValid counts tokens rejected before nbf.
	MetricDecodeNotYetValid
	// MetricDecodeClaimRejected counts missing or mismatched aud, iss or custom claims.
	MetricDecodeClaimRejected
	// MetricDecodeRevoked counts tokens whose jti is in the registry.
	MetricDecodeRevoked
	// MetricRevocationBackendError counts registry lookups that failed.
	MetricRevocationBackendError
	// MetricRevokeSuccess counts jti values newly added to the registry.
	MetricRevokeSuccess
	// MetricRevokeNoop counts revocations of an already revoked jti.
	MetricRevokeNoop
	// MetricTokenExtended counts successful ExtendExpiration calls.
	MetricTokenExtended
	// MetricKeyRotation counts completed key rotations.
	MetricKeyRotation
	// MetricTokensReencoded counts tracked tokens re-signed during rotation.
	MetricTokensReencoded
	// MetricTokensDropped counts tracked tokens discarded during rotation.
	MetricTokensDropped
	// MetricDecodeLatency is the decode latency histogram.
	MetricDecodeLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters and the decode latency histogram.
//
// A nil or disabled Metrics accepts every call and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter and histogram.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics allocates a Metrics set configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are being recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is being recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc increments counter id by one.
func (m *Metrics) Inc(id MetricID) {
	m.Add(id, 1)
}

// Add increments counter id by n.
func (m *Metrics) Add(id MetricID, n uint64) {
	if m == nil || !m.enabled || id >= metricIDCount || n == 0 {
		return
	}
	atomic.AddUint64(&m.counters[id].value, n)
}

// Observe records d in the histogram for id. Only MetricDecodeLatency carries a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricDecodeLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and, when enabled, the latency histogram.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricDecodeLatency].buckets[i])
		}
		s.Histograms[MetricDecodeLatency] = buckets
	}

	return s
}

// Histogram upper bounds in microseconds; the last bucket is unbounded.
var latencyBoundsMicros = [histBucketCount - 1]int64{50, 100, 250, 500, 1000, 2500, 10000}

func bucketIndex(d time.Duration) int {
	us := d.Microseconds()
	for i, bound := range latencyBoundsMicros {
		if us <= bound {
			return i
		}
	}
	return histBucketCount - 1
}
