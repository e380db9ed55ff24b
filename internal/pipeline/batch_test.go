package pipeline

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunBatch_RespectsLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	items := make([]int, 20)

	err := RunBatch(context.Background(), items, 3, func(context.Context, int) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Positive(t, peak.Load())
}

func TestRunBatch_EveryItemRuns(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]bool{}
	items := []string{"a", "b", "c", "d"}

	err := RunBatch(context.Background(), items, 0, func(_ context.Context, s string) {
		mu.Lock()
		seen[s] = true
		mu.Unlock()
	})
	require.NoError(t, err)
	assert.Len(t, seen, len(items))
}

func TestRunBatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	err := RunBatch(ctx, []int{1, 2, 3}, 1, func(context.Context, int) { calls.Add(1) })
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls.Load())
}

func TestSummary(t *testing.T) {
	var s Summary
	for _, st := range []JobStatus{StatusCompleted, StatusCompleted, StatusSkipped, StatusFailed} {
		s.Add(st)
	}
	total, ok, skipped, failed := s.Counts()
	assert.Equal(t, 4, total)
	assert.Equal(t, 2, ok)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 1, failed)
	assert.Equal(t, "4 total, 2 succeeded, 1 skipped, 1 failed", s.String())

	var buf bytes.Buffer
	s.Log(slog.New(slog.NewTextHandler(&buf, nil)), "structure")
	assert.Contains(t, buf.String(), "step=structure")
	assert.Contains(t, buf.String(), "succeeded=2")
}
