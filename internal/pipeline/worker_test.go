package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/rticorpus/internal/schema"
	"github.com/dgallion1/rticorpus/internal/store"
	"github.com/dgallion1/rticorpus/internal/structurer"
)

const casePage = `<html><body>
<h1 style="background-color:#FFCC00">Can the PIO deny copies?</h1>
<span class="innerArticle_span" style="background-color:#FFCC00">5 March 2021</span>
<p><span style="color:#ff0000">Background</span></p>
<p>The appellant asked for copies of the register.</p>
<p><span style="color:#ff0000">View of CIC</span></p>
<p>Inspection must be offered.</p>
<p>Citation: C v. D</p>
<div id="article-end"></div>
</body></html>`

const noHoldingPage = `<html><body>
<h1 style="background-color:#FFCC00">Untitled dispute</h1>
<p><span style="color:#ff0000">Background</span></p>
<p>Only the facts are known.</p>
</body></html>`

const noTitlePage = `<html><body><p>Nothing to see.</p></body></html>`

type fakeFetcher map[string]string

func (f fakeFetcher) GetWithRetry(_ context.Context, url string) ([]byte, error) {
	body, ok := f[url]
	if !ok {
		return nil, errors.New("status 404")
	}
	return []byte(body), nil
}

type memCases struct {
	mu    sync.Mutex
	saved []store.Case
	err   error
}

func (m *memCases) SaveCase(_ context.Context, c store.Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, c)
	return m.err
}

func (m *memCases) last(t *testing.T) store.Case {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.saved)
	return m.saved[len(m.saved)-1]
}

func newTestWorker(cases CaseSaver) *Worker {
	fetch := fakeFetcher{
		"ok":         casePage,
		"no-holding": noHoldingPage,
		"no-title":   noTitlePage,
	}
	return NewWorker(fetch, structurer.New(structurer.DefaultVocabulary(), nil),
		schema.NewParser(schema.DefaultAnchors()), cases, nil)
}

func TestWorker_Completed(t *testing.T) {
	cases := &memCases{}
	job := NewJob("ok")
	newTestWorker(cases).Process(context.Background(), job)

	snap := job.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, "Can the PIO deny copies?", snap.Title)
	require.NotNil(t, snap.Record)
	assert.Equal(t, "Inspection must be offered.", snap.Record.Response)
	assert.Contains(t, snap.Record.Instruction, "Background:\nThe appellant asked for copies of the register.")
	assert.Empty(t, snap.Errors)

	saved := cases.last(t)
	assert.Equal(t, store.CaseParsed, saved.Status)
	assert.Equal(t, snap.Structured, saved.Structured)
	assert.Equal(t, snap.Record.Response, saved.Response)
}

func TestWorker_FetchFailed(t *testing.T) {
	cases := &memCases{}
	job := NewJob("missing")
	newTestWorker(cases).Process(context.Background(), job)

	snap := job.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, "fetching", snap.Phase)
	require.Len(t, snap.Errors, 1)
	assert.Contains(t, snap.Errors[0], "status 404")
	assert.Equal(t, store.CaseFailed, cases.last(t).Status)
}

func TestWorker_NoTitleSkipped(t *testing.T) {
	cases := &memCases{}
	job := NewJob("no-title")
	newTestWorker(cases).Process(context.Background(), job)

	snap := job.Snapshot()
	assert.Equal(t, StatusSkipped, snap.Status)
	assert.Equal(t, "structuring", snap.Phase)
	assert.Empty(t, snap.Structured)
	assert.Equal(t, store.CaseSkipped, cases.last(t).Status)
}

func TestWorker_MalformedCaseKeepsStructured(t *testing.T) {
	cases := &memCases{}
	job := NewJob("no-holding")
	newTestWorker(cases).Process(context.Background(), job)

	snap := job.Snapshot()
	assert.Equal(t, StatusSkipped, snap.Status)
	assert.Equal(t, "parsing", snap.Phase)
	assert.Nil(t, snap.Record)
	assert.Contains(t, snap.Structured, "# Untitled dispute")
	require.Len(t, snap.Errors, 1)
	assert.Contains(t, snap.Errors[0], "View of CIC")

	saved := cases.last(t)
	assert.Equal(t, store.CaseStructured, saved.Status)
	assert.NotEmpty(t, saved.Error)
	assert.Equal(t, snap.Structured, saved.Structured)
}

func TestWorker_PersistErrorRecorded(t *testing.T) {
	cases := &memCases{err: errors.New("disk full")}
	job := NewJob("ok")
	newTestWorker(cases).Process(context.Background(), job)

	snap := job.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	require.Len(t, snap.Errors, 1)
	assert.Equal(t, "persist: disk full", snap.Errors[0])
}

func TestWorker_NilSaver(t *testing.T) {
	job := NewJob("ok")
	newTestWorker(nil).Process(context.Background(), job)
	assert.Equal(t, StatusCompleted, job.Snapshot().Status)
}

func TestOrchestrator_ProcessesSubmittedJobs(t *testing.T) {
	o := NewOrchestrator(Options{WorkerCount: 2, MaxQueueSize: 10}, newTestWorker(nil), nil)
	o.Start(context.Background())
	defer o.Stop()

	ok := NewJob("ok")
	bad := NewJob("missing")
	require.NoError(t, o.Submit(ok))
	require.NoError(t, o.Submit(bad))

	require.Eventually(t, func() bool {
		return o.GetJob(ok.ID).Snapshot().Status.Terminal() &&
			o.GetJob(bad.ID).Snapshot().Status.Terminal()
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, StatusCompleted, o.GetJob(ok.ID).Snapshot().Status)
	assert.Equal(t, StatusFailed, o.GetJob(bad.ID).Snapshot().Status)
	assert.Nil(t, o.GetJob("unknown"))
}

func TestOrchestrator_QueueFull(t *testing.T) {
	// Not started, so nothing drains the queue.
	o := NewOrchestrator(Options{WorkerCount: 1, MaxQueueSize: 1}, newTestWorker(nil), nil)

	require.NoError(t, o.Submit(NewJob("ok")))
	assert.Equal(t, 1, o.QueueDepth())

	overflow := NewJob("ok")
	err := o.Submit(overflow)
	require.Error(t, err)
	snap := o.GetJob(overflow.ID).Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, []string{"queue full"}, snap.Errors)
	assert.Equal(t, 2, o.JobCount())
}
