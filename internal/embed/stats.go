package embed

import (
	"slices"
	"sync"
	"time"
)

type call struct {
	at     time.Time
	took   time.Duration
	texts  int
	failed bool
}

// StatsSnapshot aggregates the embedding calls still inside the window.
// Latency fields cover successful calls only.
type StatsSnapshot struct {
	Calls  int     `json:"calls"`
	Failed int     `json:"failed"`
	Texts  int     `json:"texts"`
	MinMs  int64   `json:"min_ms"`
	MaxMs  int64   `json:"max_ms"`
	AvgMs  float64 `json:"avg_ms"`
	P50Ms  float64 `json:"p50_ms"`
	P95Ms  float64 `json:"p95_ms"`
	P99Ms  float64 `json:"p99_ms"`
}

// Stats keeps a rolling window of embedding calls. Safe for concurrent use.
type Stats struct {
	mu     sync.Mutex
	calls  []call
	window time.Duration
	now    func() time.Time
}

func NewStats(window time.Duration) *Stats {
	if window <= 0 {
		window = time.Hour
	}
	return &Stats{
		calls:  make([]call, 0, 256),
		window: window,
		now:    time.Now,
	}
}

// Observe records one batch call of n texts.
func (s *Stats) Observe(took time.Duration, n int, err error) {
	if took < 0 {
		took = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneLocked(now)
	s.calls = append(s.calls, call{at: now, took: took, texts: n, failed: err != nil})
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(s.now())
	var snap StatsSnapshot
	ms := make([]int64, 0, len(s.calls))
	var sum int64
	for _, c := range s.calls {
		snap.Calls++
		if c.failed {
			snap.Failed++
			continue
		}
		snap.Texts += c.texts
		ms = append(ms, c.took.Milliseconds())
		sum += c.took.Milliseconds()
	}
	if len(ms) == 0 {
		return snap
	}
	slices.Sort(ms)

	snap.MinMs = ms[0]
	snap.MaxMs = ms[len(ms)-1]
	snap.AvgMs = float64(sum) / float64(len(ms))
	snap.P50Ms = percentile(ms, 50)
	snap.P95Ms = percentile(ms, 95)
	snap.P99Ms = percentile(ms, 99)
	return snap
}

func (s *Stats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	s.calls = slices.DeleteFunc(s.calls, func(c call) bool { return c.at.Before(cutoff) })
}

// percentile interpolates linearly between the closest ranks.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}
	rank := float64(len(sorted)-1) * pct / 100
	lo := int(rank)
	if lo+1 >= len(sorted) {
		return float64(sorted[lo])
	}
	frac := rank - float64(lo)
	return float64(sorted[lo]) + float64(sorted[lo+1]-sorted[lo])*frac
}
