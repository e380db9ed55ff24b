package pipeline

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/dgallion1/rticorpus/internal/schema"
	"github.com/dgallion1/rticorpus/internal/store"
	"github.com/dgallion1/rticorpus/internal/structurer"
)

// Fetcher downloads a case page.
type Fetcher interface {
	GetWithRetry(ctx context.Context, url string) ([]byte, error)
}

// CaseSaver persists the outcome of a job.
type CaseSaver interface {
	SaveCase(ctx context.Context, c store.Case) error
}

// Worker processes a single case job.
type Worker struct {
	fetch      Fetcher
	structurer *structurer.Structurer
	parser     *schema.Parser
	cases      CaseSaver
	log        *slog.Logger
}

// NewWorker creates a worker. cases may be nil when nothing is persisted.
func NewWorker(fetch Fetcher, s *structurer.Structurer, p *schema.Parser, cases CaseSaver, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Worker{
		fetch:      fetch,
		structurer: s,
		parser:     p,
		cases:      cases,
		log:        log,
	}
}

// Process fetches, structures and parses the job's page. Failures end the job
// in StatusFailed (fetch) or StatusSkipped (page or schema problems); they are
// never returned.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "url", job.URL)

	// Phase 1: Fetch
	job.SetStatus(StatusFetching, "fetching")
	body, err := w.fetch.GetWithRetry(ctx, job.URL)
	if err != nil {
		log.Error("fetch failed", "error", err)
		job.AddError("fetch: " + err.Error())
		job.SetStatus(StatusFailed, "fetching")
		w.save(ctx, log, job, store.Case{Source: job.URL, Status: store.CaseFailed, Error: err.Error()})
		return
	}

	// Phase 2: Structure
	job.SetStatus(StatusStructuring, "structuring")
	doc, err := w.structurer.StructureHTML(job.URL, bytes.NewReader(body))
	if err != nil {
		log.Warn("page skipped", "error", err)
		job.AddError("structure: " + err.Error())
		job.SetStatus(StatusSkipped, "structuring")
		w.save(ctx, log, job, store.Case{Source: job.URL, Status: store.CaseSkipped, Error: err.Error()})
		return
	}
	job.SetStructured(doc)
	structured := doc.String()
	log.Info("structured case", "title", doc.Title(), "lines", len(doc.Lines))

	// Phase 3: Parse
	job.SetStatus(StatusParsing, "parsing")
	rec, err := w.parser.Parse(doc)
	if err != nil {
		log.Warn("malformed case skipped", "error", err)
		job.AddError("parse: " + err.Error())
		job.SetStatus(StatusSkipped, "parsing")
		w.save(ctx, log, job, store.Case{Source: job.URL, Structured: structured, Status: store.CaseStructured, Error: err.Error()})
		return
	}
	job.SetRecord(rec)

	w.save(ctx, log, job, store.Case{
		Source:      job.URL,
		Structured:  structured,
		Instruction: rec.Instruction,
		Response:    rec.Response,
		Status:      store.CaseParsed,
	})
	job.SetStatus(StatusCompleted, "done")
	log.Info("case completed")
}

func (w *Worker) save(ctx context.Context, log *slog.Logger, job *Job, c store.Case) {
	if w.cases == nil {
		return
	}
	if err := w.cases.SaveCase(ctx, c); err != nil {
		log.Error("persist case failed", "error", err)
		job.AddError("persist: " + err.Error())
	}
}
