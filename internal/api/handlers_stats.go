package api

import (
	"encoding/json"
	"net/http"

	"github.com/dgallion1/rticorpus/internal/chunker"
	"github.com/dgallion1/rticorpus/internal/embed"
)

// handleEmbed chunks the posted text, embeds every chunk and stores the
// records when a record store is configured.
func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	if s.embedder == nil {
		jsonError(w, "embedding backend not configured", http.StatusServiceUnavailable)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	var req chunkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Source == "" {
		jsonError(w, "source is required", http.StatusBadRequest)
		return
	}

	chunks, err := chunker.ChunkSource(req.Source, req.Text, req.config(s.cfg.Chunking()))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	records, err := embed.EmbedChunks(r.Context(), s.embedder, chunks, embed.Options{
		BatchSize: s.cfg.EmbeddingBatchSize,
		Stats:     s.embedStats,
		Log:       s.log,
	})
	if err != nil {
		s.log.Error("embed failed", "source", req.Source, "error", err)
		jsonError(w, "embed failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	stored := false
	if s.records != nil && len(records) > 0 {
		if err := s.records.SaveRecords(r.Context(), records); err != nil {
			jsonError(w, "store failed: "+err.Error(), http.StatusInternalServerError)
			return
		}
		stored = true
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"source": req.Source,
		"chunks": len(records),
		"stored": stored,
	})
}

// handleListChunks lists stored chunks, optionally for one ?source=.
// Vectors are left out unless ?vectors=true.
func (s *Server) handleListChunks(w http.ResponseWriter, r *http.Request) {
	if s.records == nil {
		jsonError(w, "record store not configured", http.StatusServiceUnavailable)
		return
	}
	source := r.URL.Query().Get("source")
	records, err := s.records.ListRecords(r.Context(), source)
	if err != nil {
		s.log.Error("list chunks failed", "source", source, "error", err)
		jsonError(w, "list chunks failed", http.StatusInternalServerError)
		return
	}
	if r.URL.Query().Get("vectors") != "true" {
		for i := range records {
			records[i].Vector = nil
		}
	}
	if records == nil {
		records = []embed.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(records), "chunks": records})
}

func (s *Server) handleEmbedStats(w http.ResponseWriter, r *http.Request) {
	if s.embedStats == nil {
		jsonError(w, "embedding stats unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"model": s.cfg.EmbeddingModel,
		"stats": s.embedStats.Snapshot(),
	})
}
