// Package monitor collects runtime metrics and raises operational alerts.
package monitor

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// SystemMetrics tracks counters and latencies for one engine run.
type SystemMetrics struct {
	// Latency histograms
	DecisionLatency *LatencyHistogram
	DBLatency       *LatencyHistogram
	APILatency      *LatencyHistogram

	// Counters
	ticksProcessed   uint64
	signalsGenerated uint64
	actionsEmitted   uint64
	fillsApplied     uint64
	actionsRejected  uint64
	errorsCount      uint64
	apiRequests      uint64
	apiErrors        uint64
}

// LatencyHistogram tracks latency samples with a sliding window. Stats are
// computed lazily and cached until the next Record.
type LatencyHistogram struct {
	mu          sync.Mutex
	samples     []float64
	maxSize     int
	dirty       bool
	cachedStats LatencyStats
}

func NewSystemMetrics() *SystemMetrics {
	return &SystemMetrics{
		DecisionLatency: NewLatencyHistogram(1000),
		DBLatency:       NewLatencyHistogram(1000),
		APILatency:      NewLatencyHistogram(1000),
	}
}

func NewLatencyHistogram(size int) *LatencyHistogram {
	if size <= 0 {
		size = 1000
	}
	return &LatencyHistogram{
		samples: make([]float64, 0, size),
		maxSize: size,
		dirty:   true,
	}
}

// Record adds a latency sample in milliseconds.
func (h *LatencyHistogram) Record(latencyMs float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.samples) >= h.maxSize {
		h.samples = h.samples[1:]
	}
	h.samples = append(h.samples, latencyMs)
	h.dirty = true
}

// RecordDuration converts duration to ms and records.
func (h *LatencyHistogram) RecordDuration(d time.Duration) {
	h.Record(float64(d.Nanoseconds()) / 1e6)
}

// Stats returns min, max, avg and percentiles over the current window.
func (h *LatencyHistogram) Stats() LatencyStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.dirty && h.cachedStats.Count > 0 {
		return h.cachedStats
	}

	n := len(h.samples)
	if n == 0 {
		return LatencyStats{}
	}

	sorted := make([]float64, n)
	copy(sorted, h.samples)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	h.cachedStats = LatencyStats{
		Min:   sorted[0],
		Max:   sorted[n-1],
		Avg:   sum / float64(n),
		P50:   sorted[n/2],
		P95:   sorted[int(float64(n)*0.95)],
		P99:   sorted[int(float64(n)*0.99)],
		Count: n,
	}
	h.dirty = false

	return h.cachedStats
}

// LatencyStats holds computed latency statistics.
type LatencyStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Count int     `json:"count"`
}

func (m *SystemMetrics) IncrementTicks() { atomic.AddUint64(&m.ticksProcessed, 1) }

func (m *SystemMetrics) IncrementSignals() { atomic.AddUint64(&m.signalsGenerated, 1) }

func (m *SystemMetrics) IncrementActions() { atomic.AddUint64(&m.actionsEmitted, 1) }

func (m *SystemMetrics) IncrementFills() { atomic.AddUint64(&m.fillsApplied, 1) }

func (m *SystemMetrics) IncrementRejections() { atomic.AddUint64(&m.actionsRejected, 1) }

func (m *SystemMetrics) IncrementErrors() { atomic.AddUint64(&m.errorsCount, 1) }

func (m *SystemMetrics) IncrementAPI() { atomic.AddUint64(&m.apiRequests, 1) }

func (m *SystemMetrics) IncrementAPIErrors() { atomic.AddUint64(&m.apiErrors, 1) }

// MetricsSnapshot is a point-in-time view, shaped for the status API.
type MetricsSnapshot struct {
	DecisionLatency  LatencyStats `json:"decision_latency"`
	DBLatency        LatencyStats `json:"db_latency"`
	APILatency       LatencyStats `json:"api_latency"`
	TicksProcessed   uint64       `json:"ticks_processed"`
	SignalsGenerated uint64       `json:"signals_generated"`
	ActionsEmitted   uint64       `json:"actions_emitted"`
	FillsApplied     uint64       `json:"fills_applied"`
	ActionsRejected  uint64       `json:"actions_rejected"`
	ErrorsCount      uint64       `json:"errors_count"`
	APIRequests      uint64       `json:"api_requests"`
	APIErrors        uint64       `json:"api_errors"`
	GoroutineCount   int          `json:"goroutine_count"`
	HeapAlloc        uint64       `json:"heap_alloc_bytes"`
	Timestamp        time.Time    `json:"timestamp"`
}

// GetSnapshot returns a point-in-time metrics snapshot.
func (m *SystemMetrics) GetSnapshot() MetricsSnapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return MetricsSnapshot{
		DecisionLatency:  m.DecisionLatency.Stats(),
		DBLatency:        m.DBLatency.Stats(),
		APILatency:       m.APILatency.Stats(),
		TicksProcessed:   atomic.LoadUint64(&m.ticksProcessed),
		SignalsGenerated: atomic.LoadUint64(&m.signalsGenerated),
		ActionsEmitted:   atomic.LoadUint64(&m.actionsEmitted),
		FillsApplied:     atomic.LoadUint64(&m.fillsApplied),
		ActionsRejected:  atomic.LoadUint64(&m.actionsRejected),
		ErrorsCount:      atomic.LoadUint64(&m.errorsCount),
		APIRequests:      atomic.LoadUint64(&m.apiRequests),
		APIErrors:        atomic.LoadUint64(&m.apiErrors),
		GoroutineCount:   runtime.NumGoroutine(),
		HeapAlloc:        memStats.HeapAlloc,
		Timestamp:        time.Now(),
	}
}

// Timer measures one operation into a histogram.
type Timer struct {
	start     time.Time
	histogram *LatencyHistogram
}

func NewTimer(h *LatencyHistogram) *Timer {
	return &Timer{start: time.Now(), histogram: h}
}

// Stop records elapsed time and returns it.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	if t.histogram != nil {
		t.histogram.RecordDuration(elapsed)
	}
	return elapsed
}
