package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/rticorpus/internal/pipeline"
	"github.com/dgallion1/rticorpus/internal/store"
)

type submitCasesRequest struct {
	URLs []string `json:"urls"`
}

type submitResult struct {
	URL     string             `json:"url"`
	JobID   string             `json:"job_id,omitempty"`
	Status  pipeline.JobStatus `json:"status,omitempty"`
	PollURL string             `json:"poll_url,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// handleSubmitCases queues one job per case page URL. A bad URL or a full
// queue is reported on that entry without rejecting the rest.
func (s *Server) handleSubmitCases(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req submitCasesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.URLs) == 0 {
		jsonError(w, "at least one url is required", http.StatusBadRequest)
		return
	}

	results := make([]submitResult, 0, len(req.URLs))
	for _, raw := range req.URLs {
		if err := validateCaseURL(raw); err != nil {
			results = append(results, submitResult{URL: raw, Error: err.Error()})
			continue
		}

		job := pipeline.NewJob(raw)
		if err := s.orchestrator.Submit(job); err != nil {
			results = append(results, submitResult{URL: raw, JobID: job.ID, Status: pipeline.StatusFailed, Error: err.Error()})
			continue
		}
		results = append(results, submitResult{
			URL:     raw,
			JobID:   job.ID,
			Status:  pipeline.StatusQueued,
			PollURL: fmt.Sprintf("/api/cases/%s", job.ID),
		})
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"jobs": results})
}

func (s *Server) handleCaseStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

// handleListCases lists stored cases, optionally filtered by ?status=.
func (s *Server) handleListCases(w http.ResponseWriter, r *http.Request) {
	if s.cases == nil {
		jsonError(w, "case store not configured", http.StatusServiceUnavailable)
		return
	}
	status := r.URL.Query().Get("status")
	switch status {
	case "", store.CaseStructured, store.CaseParsed, store.CaseSkipped, store.CaseFailed:
	default:
		jsonError(w, fmt.Sprintf("unknown status %q", status), http.StatusBadRequest)
		return
	}

	cases, err := s.cases.Cases(r.Context(), status)
	if err != nil {
		s.log.Error("list cases failed", "status", status, "error", err)
		jsonError(w, "list cases failed", http.StatusInternalServerError)
		return
	}
	if cases == nil {
		cases = []store.Case{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(cases), "cases": cases})
}

func validateCaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("url has no host")
	}
	return nil
}
