// Package chunker splits text into fixed-size, overlapping word windows for
// embedding.
package chunker

import (
	"errors"
	"fmt"
	"iter"
	"strings"
)

// ErrInvalidConfig is returned when the window would not advance.
var ErrInvalidConfig = errors.New("invalid chunk config")

// Config controls chunking behavior.
type Config struct {
	ChunkSize int // Words per chunk.
	Overlap   int // Words shared by consecutive chunks.
}

// DefaultConfig returns the corpus defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize: 200,
		Overlap:   20,
	}
}

// Validate rejects configs whose step (ChunkSize - Overlap) is not positive.
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size %d must be positive", ErrInvalidConfig, c.ChunkSize)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("%w: overlap %d must not be negative", ErrInvalidConfig, c.Overlap)
	}
	if c.Overlap >= c.ChunkSize {
		return fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", ErrInvalidConfig, c.Overlap, c.ChunkSize)
	}
	return nil
}

// Step is how far the window start advances between chunks.
func (c Config) Step() int { return c.ChunkSize - c.Overlap }

// Chunk is one window of a source text.
type Chunk struct {
	Source string `json:"source_file"`
	Index  int    `json:"chunk_index"`
	Text   string `json:"text"`
}

// Split returns the word windows of text. The last window may be shorter
// than ChunkSize; empty or whitespace-only text yields no windows.
func Split(text string, size, overlap int) ([]string, error) {
	cfg := Config{ChunkSize: size, Overlap: overlap}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var out []string
	for w := range windows(strings.Fields(text), cfg) {
		out = append(out, w)
	}
	return out, nil
}

// Windows returns a restartable sequence over the windows of text. cfg must
// already be valid.
func Windows(text string, cfg Config) iter.Seq[string] {
	words := strings.Fields(text)
	return windows(words, cfg)
}

func windows(words []string, cfg Config) iter.Seq[string] {
	return func(yield func(string) bool) {
		step := cfg.Step()
		if step <= 0 {
			return
		}
		for start := 0; start < len(words); start += step {
			end := min(start+cfg.ChunkSize, len(words))
			if !yield(strings.Join(words[start:end], " ")) {
				return
			}
		}
	}
}

// ChunkSource chunks text and tags every window with its source and a
// 0-based index.
func ChunkSource(source, text string, cfg Config) ([]Chunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var chunks []Chunk
	for w := range Windows(text, cfg) {
		chunks = append(chunks, Chunk{Source: source, Index: len(chunks), Text: w})
	}
	return chunks, nil
}
