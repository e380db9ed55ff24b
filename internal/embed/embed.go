// Package embed turns chunks into vectors with a hosted embedding model.
package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/rticorpus/internal/chunker"
)

// ErrCountMismatch is returned when a model answers with a different number of
// vectors than texts sent.
var ErrCountMismatch = errors.New("embedding count mismatch")

// Embedder maps texts to vectors, one per text, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Record is one embedded chunk.
type Record struct {
	SourceFile string    `json:"source_file"`
	ChunkIndex int       `json:"chunk_index"`
	Text       string    `json:"text"`
	Vector     []float32 `json:"vector"`
}

// Options control EmbedChunks.
type Options struct {
	BatchSize   int // texts per call; defaults to 4
	Concurrency int // calls in flight; defaults to 1
	Stats       *Stats
	Log         *slog.Logger
}

// EmbedChunks embeds chunks in batches and returns records in chunk order.
// The first failing batch cancels the rest.
func EmbedChunks(ctx context.Context, e Embedder, chunks []chunker.Chunk, opts Options) ([]Record, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 4
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	log := opts.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	records := make([]Record, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for start := 0; start < len(chunks); start += opts.BatchSize {
		end := min(start+opts.BatchSize, len(chunks))
		batch := chunks[start:end]
		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.Text
			}

			t0 := time.Now()
			vecs, err := e.Embed(gctx, texts)
			if err == nil && len(vecs) != len(texts) {
				err = fmt.Errorf("%w: sent %d, got %d", ErrCountMismatch, len(texts), len(vecs))
			}
			if opts.Stats != nil {
				opts.Stats.Observe(time.Since(t0), len(texts), err)
			}
			if err != nil {
				return fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
			}

			for i, c := range batch {
				records[start+i] = Record{
					SourceFile: c.Source,
					ChunkIndex: c.Index,
					Text:       c.Text,
					Vector:     vecs[i],
				}
			}
			log.Debug("embedded batch", "first", start, "size", len(batch))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}
