// Package stats tracks resolve latencies and hit rates over a rolling
// window.
package stats

import (
	"sort"
	"sync"
	"time"
)

type sample struct {
	timestamp time.Time
	duration  time.Duration
	found     bool
}

// Snapshot is a point-in-time aggregate of resolve samples.
type Snapshot struct {
	Count    int     `json:"count"`
	Found    int     `json:"found"`
	NotFound int     `json:"not_found"`
	MinUs    int64   `json:"min_us"`
	MaxUs    int64   `json:"max_us"`
	AvgUs    float64 `json:"avg_us"`
	P50Us    float64 `json:"p50_us"`
	P95Us    float64 `json:"p95_us"`
	P99Us    float64 `json:"p99_us"`
}

// Recorder keeps resolve samples younger than maxAge.
type Recorder struct {
	mu      sync.Mutex
	samples []sample
	maxAge  time.Duration
	now     func() time.Time
}

func NewRecorder(maxAge time.Duration) *Recorder {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Recorder{
		samples: make([]sample, 0, 256),
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// Record adds one resolve call.
func (r *Recorder) Record(d time.Duration, found bool) {
	if d < 0 {
		d = 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.pruneLocked(now)
	r.samples = append(r.samples, sample{timestamp: now, duration: d, found: found})
}

func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked(r.now())
	if len(r.samples) == 0 {
		return Snapshot{}
	}

	values := make([]int64, 0, len(r.samples))
	var sum int64
	found := 0
	for _, s := range r.samples {
		us := s.duration.Microseconds()
		values = append(values, us)
		sum += us
		if s.found {
			found++
		}
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	return Snapshot{
		Count:    len(values),
		Found:    found,
		NotFound: len(values) - found,
		MinUs:    values[0],
		MaxUs:    values[len(values)-1],
		AvgUs:    float64(sum) / float64(len(values)),
		P50Us:    percentile(values, 50),
		P95Us:    percentile(values, 95),
		P99Us:    percentile(values, 99),
	}
}

func (r *Recorder) pruneLocked(now time.Time) {
	cutoff := now.Add(-r.maxAge)
	writeIdx := 0
	for _, s := range r.samples {
		if !s.timestamp.Before(cutoff) {
			r.samples[writeIdx] = s
			writeIdx++
		}
	}
	r.samples = r.samples[:writeIdx]
}

// percentile interpolates linearly between the two nearest ranks.
func percentile(sorted []int64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sorted[0])
	}
	if pct >= 100 {
		return float64(sorted[len(sorted)-1])
	}

	index := (float64(len(sorted)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sorted) {
		return float64(sorted[lower])
	}
	weight := index - float64(lower)
	lo := float64(sorted[lower])
	hi := float64(sorted[upper])
	return lo + (hi-lo)*weight
}
