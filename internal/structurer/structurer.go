// Package structurer turns the fragment stream of a case page into a
// structured schema.Document.
package structurer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dgallion1/rticorpus/internal/fragment"
	"github.com/dgallion1/rticorpus/internal/schema"
)

// ErrNoTitle is returned when the page has no title fragment.
var ErrNoTitle = errors.New("title fragment not found")

// ExtractionError reports a source that could not be structured.
type ExtractionError struct {
	Source string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %v", e.Source, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Structurer classifies fragments into schema lines.
type Structurer struct {
	vocab Vocabulary
	rules []rule
	log   *slog.Logger
}

// New creates a Structurer. A nil logger discards output.
func New(v Vocabulary, log *slog.Logger) *Structurer {
	v = v.withDefaults()
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Structurer{vocab: v, rules: classificationRules(v), log: log}
}

// Vocabulary returns the vocabulary in use.
func (s *Structurer) Vocabulary() Vocabulary { return s.vocab }

// Structure walks frags in order. Fragments before the title are ignored and
// the walk stops at the sentinel or the end of the stream.
func (s *Structurer) Structure(source string, frags []fragment.Fragment) (schema.Document, error) {
	doc := schema.Document{Source: source}
	st := &state{}
	sentinelSeen := false

	for _, f := range frags {
		if st.titleSeen && f.ID == s.vocab.SentinelID {
			sentinelSeen = true
			break
		}
		if f.Empty() {
			continue
		}

		rules := s.rules
		if !st.titleSeen {
			rules = rules[:1]
		}
		for _, r := range rules {
			if r.Match(st, f) {
				doc.Lines = append(doc.Lines, r.Emit(st, f)...)
				break
			}
		}
		if f.Kind == fragment.KindParagraph || f.Kind == fragment.KindSpan {
			st.expectDate = false
		}
	}

	if !st.titleSeen {
		return schema.Document{}, &ExtractionError{Source: source, Err: ErrNoTitle}
	}
	s.log.LogAttrs(context.Background(), slog.LevelDebug, "structured document",
		slog.String("source", source),
		slog.Int("lines", len(doc.Lines)),
		slog.Bool("sentinel", sentinelSeen),
	)
	return doc, nil
}

// StructureHTML flattens an HTML page and structures it.
func (s *Structurer) StructureHTML(source string, r io.Reader) (schema.Document, error) {
	frags, err := fragment.FromHTML(r)
	if err != nil {
		return schema.Document{}, &ExtractionError{Source: source, Err: err}
	}
	return s.Structure(source, frags)
}
