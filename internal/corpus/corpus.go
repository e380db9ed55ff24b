// Package corpus gathers cleaned text from disk and prepares it for
// embedding.
package corpus

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-shiori/go-readability"
	"golang.org/x/text/unicode/norm"

	"github.com/dgallion1/rticorpus/internal/chunker"
	"github.com/dgallion1/rticorpus/internal/schema"
)

// Document is one unit of source text.
type Document struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

// Normalize applies NFKC, drops carriage returns, turns tabs into spaces and
// trims trailing spaces from every line.
func Normalize(text string) string {
	text = norm.NFKC.String(text)
	text = strings.ReplaceAll(text, "\r", "")
	text = strings.ReplaceAll(text, "\t", " ")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	return strings.Join(lines, "\n")
}

// ReadableText extracts the main article text of a page that does not follow
// the case page markup.
func ReadableText(r io.Reader, pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	article, err := readability.FromReader(r, u)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}
	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return "", fmt.Errorf("readability: no article text in %s", pageURL)
	}
	return Normalize(text), nil
}

// Loader reads documents from a directory.
type Loader struct {
	log *slog.Logger
}

func NewLoader(log *slog.Logger) *Loader {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Loader{log: log}
}

// LoadDir reads .txt, .md, .html and .csv files in dir, sorted by name. A .txt
// file is one document, a .md structured case is flattened to plain text, a
// saved .html page is reduced to its readable article text, and each row of a
// .csv file's Content (or content) column is a document. Other files are
// ignored; unreadable files are logged and skipped.
func (l *Loader) LoadDir(ctx context.Context, dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var docs []Document
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return docs, err
		}
		path := filepath.Join(dir, name)
		var got []Document
		switch strings.ToLower(filepath.Ext(name)) {
		case ".txt":
			got, err = loadText(path, name)
		case ".md", ".markdown":
			got, err = loadMarkdown(path, name)
		case ".html", ".htm":
			got, err = loadHTML(path, name)
		case ".csv":
			got, err = loadCSV(path, name)
		default:
			continue
		}
		if err != nil {
			l.log.Warn("skipping corpus file", "file", name, "error", err)
			continue
		}
		l.log.Info("loaded corpus file", "file", name, "documents", len(got))
		docs = append(docs, got...)
	}
	return docs, nil
}

func loadText(path, name string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return []Document{{Source: name, Text: Normalize(string(data))}}, nil
}

func loadMarkdown(path, name string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return []Document{{Source: name, Text: Normalize(schema.StripMarkup(string(data)))}}, nil
}

func loadHTML(path, name string) ([]Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	text, err := ReadableText(f, (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String())
	if err != nil {
		return nil, err
	}
	return []Document{{Source: name, Text: text}}, nil
}

func loadCSV(path, name string) ([]Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f, name)
}

// ReadCSV returns one document per row of the Content (or content) column.
// Empty cells are skipped; every document carries source as its Source.
func ReadCSV(r io.Reader, source string) ([]Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	col := -1
	for _, want := range []string{"Content", "content"} {
		for i, h := range records[0] {
			if strings.TrimPrefix(strings.TrimSpace(h), "\ufeff") == want {
				col = i
				break
			}
		}
		if col >= 0 {
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("parse csv: no Content column")
	}

	var docs []Document
	for _, row := range records[1:] {
		if col >= len(row) || strings.TrimSpace(row[col]) == "" {
			continue
		}
		docs = append(docs, Document{Source: source, Text: Normalize(row[col])})
	}
	return docs, nil
}

// BuildChunks chunks every document. Chunk indexes run per source, so rows of
// one CSV file share a single index sequence.
func BuildChunks(docs []Document, cfg chunker.Config) ([]chunker.Chunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	next := make(map[string]int)
	var out []chunker.Chunk
	for _, d := range docs {
		for w := range chunker.Windows(d.Text, cfg) {
			out = append(out, chunker.Chunk{Source: d.Source, Index: next[d.Source], Text: w})
			next[d.Source]++
		}
	}
	return out, nil
}
