package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// RunBatch calls fn for every item with at most limit calls in flight. One
// item failing never stops the others, so fn reports its own errors; RunBatch
// only returns ctx's error if it was cancelled.
func RunBatch[T any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, item T)) error {
	if limit <= 0 {
		limit = 1
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			fn(ctx, item)
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

// Summary counts the outcomes of one step.
type Summary struct {
	mu        sync.Mutex
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Add counts one finished job by status.
func (s *Summary) Add(status JobStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Total++
	switch status {
	case StatusCompleted:
		s.Succeeded++
	case StatusSkipped:
		s.Skipped++
	default:
		s.Failed++
	}
}

// Counts returns a copy of the counters.
func (s *Summary) Counts() (total, succeeded, skipped, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Total, s.Succeeded, s.Skipped, s.Failed
}

func (s *Summary) String() string {
	total, ok, skipped, failed := s.Counts()
	return fmt.Sprintf("%d total, %d succeeded, %d skipped, %d failed", total, ok, skipped, failed)
}

// Log writes the summary for step at info level.
func (s *Summary) Log(log *slog.Logger, step string) {
	total, ok, skipped, failed := s.Counts()
	log.Info("step summary",
		"step", step,
		"total", total,
		"succeeded", ok,
		"skipped", skipped,
		"failed", failed,
	)
}
