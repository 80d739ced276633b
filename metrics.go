package qmps

import (
	"sort"
	"sync"
	"time"
)

type timeWindow struct {
	duration time.Duration
	count    int
}

/*
Metrics counts what a State did over its lifetime. It is safe to update
from shot workers while the dispatcher reads it.
*/
type Metrics struct {
	mu sync.RWMutex

	OpCounts     map[OpType]int64
	SkippedOps   int64
	TotalOpTime  time.Duration
	OpCount      int64
	SampleCalls  map[SampleAlgorithm]int64
	ShotsSampled int64
	ShotJobs     int64
	FailedShots  int64

	AverageOpLatency time.Duration
	P95OpLatency     time.Duration
	P99OpLatency     time.Duration

	// MaxBondDimension is the largest bond seen after any operation.
	MaxBondDimension int

	latencyWindows []timeWindow
	windowSize     int
}

func newMetrics() *Metrics {
	return &Metrics{
		OpCounts:       make(map[OpType]int64),
		SampleCalls:    make(map[SampleAlgorithm]int64),
		latencyWindows: make([]timeWindow, 0, 1000),
		windowSize:     1000,
	}
}

func (m *Metrics) recordOp(opType OpType, startTime time.Time, bondDim int) {
	duration := time.Since(startTime)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.OpCounts[opType]++
	m.TotalOpTime += duration
	m.OpCount++
	m.MaxBondDimension = max(m.MaxBondDimension, bondDim)

	m.updateLatencyPercentiles(duration)
}

func (m *Metrics) recordSkip() {
	m.mu.Lock()
	m.SkippedOps++
	m.mu.Unlock()
}

func (m *Metrics) recordSample(alg SampleAlgorithm, shots int) {
	m.mu.Lock()
	m.SampleCalls[alg]++
	m.ShotsSampled += int64(shots)
	m.mu.Unlock()
}

func (m *Metrics) recordShot(success bool) {
	m.mu.Lock()
	m.ShotJobs++
	if !success {
		m.FailedShots++
	}
	m.mu.Unlock()
}

func (m *Metrics) updateLatencyPercentiles(duration time.Duration) {
	m.AverageOpLatency = (m.AverageOpLatency*time.Duration(m.OpCount-1) + duration) / time.Duration(m.OpCount)

	m.latencyWindows = append(m.latencyWindows, timeWindow{
		duration: duration,
		count:    1,
	})

	if len(m.latencyWindows) > m.windowSize {
		m.latencyWindows = m.latencyWindows[1:]
	}

	sorted := make([]time.Duration, 0, len(m.latencyWindows))
	for _, w := range m.latencyWindows {
		for i := 0; i < w.count; i++ {
			sorted = append(sorted, w.duration)
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	if len(sorted) > 0 {
		p95Index := min(int(float64(len(sorted))*0.95), len(sorted)-1)
		p99Index := min(int(float64(len(sorted))*0.99), len(sorted)-1)

		m.P95OpLatency = sorted[p95Index]
		m.P99OpLatency = sorted[p99Index]
	}
}

// ExportMetrics flattens the counters into a map for result metadata.
func (m *Metrics) ExportMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ops := make(map[string]int64, len(m.OpCounts))
	for t, n := range m.OpCounts {
		ops[t.String()] = n
	}

	samples := make(map[string]int64, len(m.SampleCalls))
	for alg, n := range m.SampleCalls {
		samples[alg.String()] = n
	}

	return map[string]interface{}{
		"op_counts":          ops,
		"op_count":           m.OpCount,
		"skipped_ops":        m.SkippedOps,
		"sample_calls":       samples,
		"shots_sampled":      m.ShotsSampled,
		"shot_jobs":          m.ShotJobs,
		"failed_shots":       m.FailedShots,
		"avg_latency_us":     m.AverageOpLatency.Microseconds(),
		"p95_latency_us":     m.P95OpLatency.Microseconds(),
		"p99_latency_us":     m.P99OpLatency.Microseconds(),
		"max_bond_dimension": m.MaxBondDimension,
	}
}
