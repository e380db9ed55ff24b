package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// TextLine is one structured document in a JSONL file.
type TextLine struct {
	Text string `json:"text"`
}

// JSONLWriter writes one JSON object per line.
type JSONLWriter struct {
	w     *bufio.Writer
	enc   *json.Encoder
	count int
}

func NewJSONLWriter(w io.Writer) *JSONLWriter {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	return &JSONLWriter{w: bw, enc: enc}
}

// Write encodes v on its own line.
func (j *JSONLWriter) Write(v any) error {
	if err := j.enc.Encode(v); err != nil {
		return fmt.Errorf("write jsonl: %w", err)
	}
	j.count++
	return nil
}

// WriteText writes a structured document as {"text": ...}.
func (j *JSONLWriter) WriteText(text string) error {
	return j.Write(TextLine{Text: text})
}

// Count is the number of lines written.
func (j *JSONLWriter) Count() int { return j.count }

// Flush must be called once writing is done.
func (j *JSONLWriter) Flush() error {
	return j.w.Flush()
}

// ReadJSONL decodes every non-blank line of r into a T.
func ReadJSONL[T any](r io.Reader) ([]T, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var out []T
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var v T
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("jsonl line %d: %w", line, err)
		}
		out = append(out, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read jsonl: %w", err)
	}
	return out, nil
}
