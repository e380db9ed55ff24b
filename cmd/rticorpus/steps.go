package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/rticorpus/internal/chunker"
	"github.com/dgallion1/rticorpus/internal/corpus"
	"github.com/dgallion1/rticorpus/internal/embed"
	"github.com/dgallion1/rticorpus/internal/fetch"
	"github.com/dgallion1/rticorpus/internal/guide"
	"github.com/dgallion1/rticorpus/internal/listing"
	"github.com/dgallion1/rticorpus/internal/pipeline"
	"github.com/dgallion1/rticorpus/internal/schema"
	"github.com/dgallion1/rticorpus/internal/store"
	"github.com/dgallion1/rticorpus/internal/structurer"
)

func (a *app) newClient() *fetch.Client {
	return fetch.NewClient(a.cfg.Fetch(), a.log)
}

// links crawls the configured listing pages into a CSV of case entries.
func (a *app) links(ctx context.Context, out string) error {
	client := a.newClient()
	defer client.Close()

	c := &listing.Crawler{
		Getter: client,
		Base:   a.cfg.BaseURL,
		Wait: func(ctx context.Context) error {
			return fetch.Sleep(ctx, a.cfg.RequestDelay)
		},
		Log: a.log,
	}
	entries, err := c.Crawl(ctx, a.cfg.ListingStartPage, a.cfg.ListingEndPage)
	if err != nil {
		return fmt.Errorf("crawl listing: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("crawl listing pages %d..%d: %w", a.cfg.ListingStartPage, a.cfg.ListingEndPage, listing.ErrNoEntries)
	}

	if err := writeFile(out, func(w io.Writer) error { return listing.WriteCSV(w, entries) }); err != nil {
		return err
	}
	a.log.Info("wrote case links", "entries", len(entries), "path", out)
	return nil
}

// scrape fetches and structures every linked case page. Results go to the
// content CSV, the structured JSONL and the case table.
func (a *app) scrape(ctx context.Context, in, csvOut, jsonlOut string) (*pipeline.Summary, error) {
	entries, err := readEntries(in)
	if err != nil {
		return nil, err
	}

	db, err := store.Open(ctx, a.cfg.DBPath, a.log)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	client := a.newClient()
	defer client.Close()

	worker := pipeline.NewWorker(client, structurer.New(a.vocab, a.log), schema.NewParser(a.anchors), db, a.log)

	summary := &pipeline.Summary{}
	rows := make([]listing.Scraped, len(entries))
	indexes := make([]int, len(entries))
	for i := range indexes {
		indexes[i] = i
	}
	err = pipeline.RunBatch(ctx, indexes, a.cfg.WorkerCount, func(ctx context.Context, i int) {
		rows[i].Entry = entries[i]
		if !entries[i].HasLink() {
			summary.Add(pipeline.StatusSkipped)
			return
		}
		job := pipeline.NewJob(entries[i].Link)
		worker.Process(ctx, job)
		snap := job.Snapshot()
		rows[i].Content = snap.Structured
		summary.Add(snap.Status)
	})
	if err != nil {
		return summary, err
	}

	if err := writeFile(csvOut, func(w io.Writer) error { return listing.WriteContentCSV(w, rows) }); err != nil {
		return summary, err
	}
	err = writeFile(jsonlOut, func(w io.Writer) error {
		jw := store.NewJSONLWriter(w)
		for _, r := range rows {
			if r.Content == "" {
				continue
			}
			if err := jw.WriteText(r.Content); err != nil {
				return err
			}
		}
		return jw.Flush()
	})
	if err != nil {
		return summary, err
	}
	summary.Log(a.log, "scrape")
	return summary, nil
}

func readEntries(path string) ([]listing.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open links: %w", err)
	}
	defer f.Close()
	entries, err := listing.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return entries, nil
}

// structureFiles structures local HTML case pages. With outDir empty the
// documents are written to w separated by a blank line.
func (a *app) structureFiles(paths []string, outDir string, w io.Writer) (*pipeline.Summary, error) {
	s := structurer.New(a.vocab, a.log)
	summary := &pipeline.Summary{}

	for _, path := range paths {
		doc, err := structureFile(s, path)
		if err != nil {
			a.log.Warn("page skipped", "path", path, "error", err)
			summary.Add(pipeline.StatusSkipped)
			continue
		}
		text := doc.String()
		if outDir == "" {
			if _, err := fmt.Fprintf(w, "%s\n\n", text); err != nil {
				return summary, err
			}
		} else {
			name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".md"
			err := writeFile(filepath.Join(outDir, name), func(w io.Writer) error {
				_, err := io.WriteString(w, text)
				return err
			})
			if err != nil {
				return summary, err
			}
		}
		summary.Add(pipeline.StatusCompleted)
	}
	summary.Log(a.log, "structure")
	return summary, nil
}

func structureFile(s *structurer.Structurer, path string) (schema.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return schema.Document{}, err
	}
	defer f.Close()
	return s.StructureHTML(path, f)
}

// clean turns structured documents into instruction/response records.
// Documents missing an anchor are logged and dropped.
func (a *app) clean(in, out string) (*pipeline.Summary, error) {
	f, err := os.Open(in)
	if err != nil {
		return nil, fmt.Errorf("open structured cases: %w", err)
	}
	docs, err := store.ReadJSONL[store.TextLine](f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", in, err)
	}

	p := schema.NewParser(a.anchors)
	summary := &pipeline.Summary{}
	err = writeFile(out, func(w io.Writer) error {
		jw := store.NewJSONLWriter(w)
		for i, d := range docs {
			rec, err := p.ParseText(d.Text)
			if err != nil {
				a.log.Warn("malformed record skipped", "line", i+1, "error", err)
				summary.Add(pipeline.StatusSkipped)
				continue
			}
			if err := jw.Write(rec); err != nil {
				return err
			}
			summary.Add(pipeline.StatusCompleted)
		}
		return jw.Flush()
	})
	if err != nil {
		return summary, err
	}
	summary.Log(a.log, "clean")
	return summary, nil
}

func (a *app) extractor() *guide.Extractor {
	return &guide.Extractor{FallbackPdftotext: a.cfg.PDFFallbackPdftotext}
}

// guideText extracts and cleans a guide document into plain text.
func (a *app) guideText(ctx context.Context, in, out string) error {
	footer, err := a.cfg.FooterPattern()
	if err != nil {
		return err
	}
	raw, err := a.extractor().ExtractFile(ctx, in)
	if err != nil {
		return err
	}
	text := guide.Clean(raw, footer)
	if text == "" {
		return fmt.Errorf("guide %s: no text after cleaning", in)
	}
	err = writeFile(out, func(w io.Writer) error {
		_, err := io.WriteString(w, text)
		return err
	})
	if err != nil {
		return err
	}
	a.log.Info("wrote cleaned guide", "path", out, "bytes", len(text))
	return nil
}

// faq pulls numbered question/answer pairs out of a guide into a CSV.
func (a *app) faq(ctx context.Context, in, out string) error {
	raw, err := a.extractor().ExtractFile(ctx, in)
	if err != nil {
		return err
	}
	faqs := guide.ExtractFAQs(raw)
	if len(faqs) == 0 {
		return fmt.Errorf("faq %s: no questions found", in)
	}
	if err := writeFile(out, func(w io.Writer) error { return guide.WriteFAQCSV(w, faqs) }); err != nil {
		return err
	}
	a.log.Info("wrote faqs", "count", len(faqs), "path", out)
	return nil
}

// chunk splits every document under dir into word windows.
func (a *app) chunk(ctx context.Context, dir, out string) (int, error) {
	docs, err := corpus.NewLoader(a.log).LoadDir(ctx, dir)
	if err != nil {
		return 0, err
	}
	chunks, err := corpus.BuildChunks(docs, a.cfg.Chunking())
	if err != nil {
		return 0, err
	}
	err = writeFile(out, func(w io.Writer) error {
		jw := store.NewJSONLWriter(w)
		for _, c := range chunks {
			if err := jw.Write(c); err != nil {
				return err
			}
		}
		return jw.Flush()
	})
	if err != nil {
		return 0, err
	}
	a.log.Info("wrote chunks", "documents", len(docs), "chunks", len(chunks), "path", out)
	return len(chunks), nil
}

// embedChunks embeds the chunks file with e and stores the vectors.
func (a *app) embedChunks(ctx context.Context, e embed.Embedder, in string, concurrency int) (int, error) {
	f, err := os.Open(in)
	if err != nil {
		return 0, fmt.Errorf("open chunks: %w", err)
	}
	chunks, err := store.ReadJSONL[chunker.Chunk](f)
	f.Close()
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", in, err)
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	stats := embed.NewStats(24 * time.Hour)
	records, err := embed.EmbedChunks(ctx, e, chunks, embed.Options{
		BatchSize:   a.cfg.EmbeddingBatchSize,
		Concurrency: concurrency,
		Stats:       stats,
		Log:         a.log,
	})
	snap := stats.Snapshot()
	a.log.Info("embedding calls", "calls", snap.Calls, "failed", snap.Failed, "p50_ms", snap.P50Ms, "p95_ms", snap.P95Ms)
	if err != nil {
		return 0, err
	}

	db, err := store.Open(ctx, a.cfg.DBPath, a.log)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	if err := db.SaveRecords(ctx, records); err != nil {
		return 0, err
	}
	a.log.Info("stored embeddings", "records", len(records), "db", a.cfg.DBPath)
	return len(records), nil
}

// gemini opens the configured embedding backend.
func (a *app) gemini(ctx context.Context) (*embed.Gemini, error) {
	if a.cfg.GeminiAPIKey == "" {
		return nil, errors.New("RTI_GEMINI_API_KEY is not set")
	}
	return embed.NewGemini(ctx, a.cfg.GeminiAPIKey, a.cfg.EmbeddingModel, a.log)
}
