package metrics

import (
	"math"
	"sort"
	"sync"
)

// Histogram tracks a value distribution across fixed buckets. Safe for
// concurrent use.
type Histogram struct {
	mu      sync.RWMutex
	bounds  []float64 // upper bounds, ascending
	counts  []uint64  // per-bucket counts, last is overflow
	sum     float64
	count   uint64
	min     float64
	max     float64
}

// DefaultLatencyBuckets covers handshakes and record operations, in
// milliseconds.
var DefaultLatencyBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000}

// NewHistogram creates a histogram with the given upper bounds. The bounds
// are copied and sorted.
func NewHistogram(bounds []float64) *Histogram {
	b := make([]float64, len(bounds))
	copy(b, bounds)
	sort.Float64s(b)

	return &Histogram{
		bounds: b,
		counts: make([]uint64, len(b)+1),
		min:    math.MaxFloat64,
		max:    -math.MaxFloat64,
	}
}

// Observe records one value.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	idx := sort.SearchFloat64s(h.bounds, v)
	h.counts[idx]++

	h.sum += v
	h.count++
	if v < h.min {
		h.min = v
	}
	if v > h.max {
		h.max = v
	}
}

// BucketCount pairs a bucket's upper bound with its cumulative count.
type BucketCount struct {
	UpperBound float64 `json:"le"`
	Count      uint64  `json:"count"`
}

// Summary is a point-in-time view of the distribution.
type Summary struct {
	Count   uint64        `json:"count"`
	Sum     float64       `json:"sum"`
	Min     float64       `json:"min"`
	Max     float64       `json:"max"`
	Mean    float64       `json:"mean"`
	Buckets []BucketCount `json:"buckets"`
}

// Summary returns the current distribution.
func (h *Histogram) Summary() Summary {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.count == 0 {
		return Summary{Buckets: make([]BucketCount, 0)}
	}

	buckets := make([]BucketCount, len(h.bounds)+1)
	var cumulative uint64
	for i, bound := range h.bounds {
		cumulative += h.counts[i]
		buckets[i] = BucketCount{UpperBound: bound, Count: cumulative}
	}
	cumulative += h.counts[len(h.bounds)]
	buckets[len(h.bounds)] = BucketCount{UpperBound: math.Inf(1), Count: cumulative}

	return Summary{
		Count:   h.count,
		Sum:     h.sum,
		Min:     h.min,
		Max:     h.max,
		Mean:    h.sum / float64(h.count),
		Buckets: buckets,
	}
}

// Quantile estimates the q-th quantile (0 < q <= 1) by linear interpolation
// between bucket boundaries.
func (h *Histogram) Quantile(q float64) float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.count == 0 || q <= 0 || q > 1 {
		return 0
	}

	rank := q * float64(h.count)
	var cumulative uint64
	for i, c := range h.counts {
		cumulative += c
		if float64(cumulative) < rank {
			continue
		}
		if i == 0 {
			return h.bounds[0] / 2
		}
		if i >= len(h.bounds) {
			return h.max
		}
		lower := h.bounds[i-1]
		upper := h.bounds[i]
		prev := cumulative - c
		fraction := (rank - float64(prev)) / float64(c)
		return lower + fraction*(upper-lower)
	}
	return h.max
}

// Reset clears all recorded data.
func (h *Histogram) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := range h.counts {
		h.counts[i] = 0
	}
	h.sum = 0
	h.count = 0
	h.min = math.MaxFloat64
	h.max = -math.MaxFloat64
}

// Count returns the number of observations.
func (h *Histogram) Count() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Mean returns the mean of all observations, 0 when empty.
func (h *Histogram) Mean() float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.count == 0 {
		return 0
	}
	return h.sum / float64(h.count)
}
