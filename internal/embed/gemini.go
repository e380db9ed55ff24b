package embed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "text-embedding-004"

// Gemini embeds texts with the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
	log    *slog.Logger
}

func NewGemini(ctx context.Context, apiKey, model string, log *slog.Logger, opts ...option.ClientOption) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key not configured")
	}
	if model == "" {
		model = DefaultModel
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	opts = append(opts, option.WithAPIKey(apiKey))
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gemini{client: client, model: model, log: log}, nil
}

// Embed sends texts in one batch request.
func (g *Gemini) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	g.log.DebugContext(ctx, "embedding batch", "model", g.model, "texts", len(texts))

	em := g.client.EmbeddingModel(g.model)
	b := em.NewBatch()
	for _, t := range texts {
		b.AddContent(genai.Text(t))
	}
	res, err := em.BatchEmbedContents(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("gemini batch embed: %w", err)
	}

	out := make([][]float32, 0, len(res.Embeddings))
	for _, e := range res.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, fmt.Errorf("gemini batch embed: empty embedding received")
		}
		out = append(out, e.Values)
	}
	return out, nil
}

// Close releases the client.
func (g *Gemini) Close() error {
	return g.client.Close()
}
