package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dgallion1/rticorpus/internal/chunker"
	"github.com/dgallion1/rticorpus/internal/schema"
	"github.com/dgallion1/rticorpus/internal/structurer"
)

type structureResponse struct {
	Source     string             `json:"source"`
	Title      string             `json:"title"`
	Structured string             `json:"structured"`
	Record     *schema.CaseRecord `json:"record,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// handleStructure turns a posted case page into its structured text and, when
// the anchors are all present, its training record. ?format=html returns a
// rendered preview instead of JSON.
func (s *Server) handleStructure(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	source := r.URL.Query().Get("source")
	if source == "" {
		source = "request"
	}
	doc, err := s.structurer.StructureHTML(source, r.Body)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			jsonError(w, fmt.Sprintf("body exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return
		}
		if errors.Is(err, structurer.ErrNoTitle) {
			jsonError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		jsonError(w, "failed to read page: "+err.Error(), http.StatusBadRequest)
		return
	}
	structured := doc.String()

	if r.URL.Query().Get("format") == "html" {
		out, err := schema.RenderHTML(structured)
		if err != nil {
			jsonError(w, "render failed: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, out)
		return
	}

	resp := structureResponse{Source: source, Title: doc.Title(), Structured: structured}
	if rec, err := s.parser.Parse(doc); err != nil {
		resp.Error = err.Error()
	} else {
		resp.Record = &rec
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleParse splits a structured text body into a training record.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes))
	if err != nil {
		jsonError(w, "failed to read body: "+err.Error(), http.StatusRequestEntityTooLarge)
		return
	}

	rec, err := s.parser.ParseText(string(data))
	if err != nil {
		var se *schema.SchemaError
		if errors.As(err, &se) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error":   err.Error(),
				"anchor":  se.Anchor,
				"snippet": se.Snippet,
			})
			return
		}
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type chunkRequest struct {
	Source    string `json:"source"`
	Text      string `json:"text"`
	ChunkSize *int   `json:"chunk_size,omitempty"`
	Overlap   *int   `json:"overlap,omitempty"`
}

// config applies the request's overrides to base.
func (req chunkRequest) config(base chunker.Config) chunker.Config {
	if req.ChunkSize != nil {
		base.ChunkSize = *req.ChunkSize
	}
	if req.Overlap != nil {
		base.Overlap = *req.Overlap
	}
	return base
}

// handleChunk splits posted text into overlapping word windows. Omitted sizes
// fall back to the configured chunking.
func (s *Server) handleChunk(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	var req chunkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Source == "" {
		req.Source = "request"
	}

	cfg := req.config(s.cfg.Chunking())
	chunks, err := chunker.ChunkSource(req.Source, req.Text, cfg)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if chunks == nil {
		chunks = []chunker.Chunk{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"source":     req.Source,
		"chunk_size": cfg.ChunkSize,
		"overlap":    cfg.Overlap,
		"chunks":     chunks,
	})
}
