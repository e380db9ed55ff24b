package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/rticorpus/internal/config"
	"github.com/dgallion1/rticorpus/internal/embed"
	"github.com/dgallion1/rticorpus/internal/pipeline"
	"github.com/dgallion1/rticorpus/internal/schema"
	"github.com/dgallion1/rticorpus/internal/store"
	"github.com/dgallion1/rticorpus/internal/structurer"
)

// Server is the HTTP API server for rticorpus.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	structurer   *structurer.Structurer
	parser       *schema.Parser
	embedStats   *embed.Stats
	embedder     embed.Embedder
	records      RecordStore
	cases        CaseLister
	log          *slog.Logger
	cfg          config.Config
}

// RecordStore persists and lists embedded chunks.
type RecordStore interface {
	SaveRecords(ctx context.Context, records []embed.Record) error
	ListRecords(ctx context.Context, source string) ([]embed.Record, error)
}

// CaseLister lists stored cases by status.
type CaseLister interface {
	Cases(ctx context.Context, status string) ([]store.Case, error)
}

// Deps are the components the handlers call into. The embedding fields may be
// nil when no embedding backend is configured; Records and Cases may be nil
// when nothing is persisted.
type Deps struct {
	Orchestrator *pipeline.Orchestrator
	Structurer   *structurer.Structurer
	Parser       *schema.Parser
	EmbedStats   *embed.Stats
	Embedder     embed.Embedder
	Records      RecordStore
	Cases        CaseLister
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, log *slog.Logger, cfg config.Config) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		orchestrator: deps.Orchestrator,
		structurer:   deps.Structurer,
		parser:       deps.Parser,
		embedStats:   deps.EmbedStats,
		embedder:     deps.Embedder,
		records:      deps.Records,
		cases:        deps.Cases,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/structure", s.handleStructure)
		r.Post("/api/parse", s.handleParse)
		r.Post("/api/chunk", s.handleChunk)

		r.Post("/api/cases", s.handleSubmitCases)
		r.Get("/api/cases", s.handleListCases)
		r.Get("/api/cases/{jobID}", s.handleCaseStatus)

		r.Post("/api/embed", s.handleEmbed)
		r.Get("/api/chunks", s.handleListChunks)
		r.Get("/api/stats/embed", s.handleEmbedStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if s.orchestrator != nil {
		resp["queue_depth"] = s.orchestrator.QueueDepth()
		resp["jobs"] = s.orchestrator.JobCount()
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
