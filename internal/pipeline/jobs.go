package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/rticorpus/internal/schema"
)

// JobStatus represents the state of a case job.
type JobStatus string

const (
	StatusQueued      JobStatus = "queued"
	StatusFetching    JobStatus = "fetching"
	StatusStructuring JobStatus = "structuring"
	StatusParsing     JobStatus = "parsing"
	StatusCompleted   JobStatus = "completed"
	StatusFailed      JobStatus = "failed"
	StatusSkipped     JobStatus = "skipped"
)

// Terminal reports whether no further transitions will happen.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusSkipped
}

// Job tracks one case page through fetch, structure and parse.
type Job struct {
	mu sync.Mutex

	ID  string `json:"job_id"`
	URL string `json:"url"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`
	Title  string    `json:"title"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	structured string
	record     *schema.CaseRecord
	errors     []string
}

// NewJob creates a queued job for url.
func NewJob(url string) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		URL:       url,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes finished jobs not touched within the TTL. Jobs still in
// flight are kept however old they are.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := job.Status.Terminal() && now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.UpdatedAt = time.Now()
}

// SetStructured records the structured document and its title.
func (j *Job) SetStructured(doc schema.Document) {
	text := doc.String()
	j.mu.Lock()
	defer j.mu.Unlock()
	j.structured = text
	j.Title = doc.Title()
	j.ContentHash = ContentHashHex([]byte(text))
	j.UpdatedAt = time.Now()
}

// SetRecord records the parsed training record.
func (j *Job) SetRecord(rec schema.CaseRecord) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.record = &rec
	j.UpdatedAt = time.Now()
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string             `json:"job_id"`
	URL         string             `json:"url"`
	Status      JobStatus          `json:"status"`
	Phase       string             `json:"phase"`
	Title       string             `json:"title,omitempty"`
	ContentHash string             `json:"content_hash,omitempty"`
	Structured  string             `json:"structured,omitempty"`
	Record      *schema.CaseRecord `json:"record,omitempty"`
	Errors      []string           `json:"errors"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := make([]string, len(j.errors))
	copy(errs, j.errors)
	var rec *schema.CaseRecord
	if j.record != nil {
		r := *j.record
		rec = &r
	}
	return JobSnapshot{
		ID:          j.ID,
		URL:         j.URL,
		Status:      j.Status,
		Phase:       j.Phase,
		Title:       j.Title,
		ContentHash: j.ContentHash,
		Structured:  j.structured,
		Record:      rec,
		Errors:      errs,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
