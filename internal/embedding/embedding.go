// Package embedding wraps the text-embedding provider and owns the vector
// math the rest of the pipeline relies on.
//
// BuildEmbeddingText defines the canonical text an event is embedded from.
// Its field ordering is load-bearing: the similarity index compares vectors
// produced by this function, and drift in the construction rule silently
// degrades similarity quality for every stored embedding.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/MattB543/asheville-event-feed-sub002/internal/llm"
	"github.com/MattB543/asheville-event-feed-sub002/internal/types"
)

// ErrDimensionMismatch is returned when comparing vectors of different
// lengths. This is a programmer error and is never silently coerced.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Separator joins the fields of the canonical embedding text.
const Separator = " | "

// Config holds embedding service configuration.
type Config struct {
	APIKey     string        // if empty, read from OPENAI_API_KEY
	Model      string        // embedding model (default: text-embedding-3-small)
	Dimensions int           // expected vector length (default: types.EmbeddingDimensions)
	MaxRetries int           // retries per call (default: 3)
	Backoff    time.Duration // initial retry backoff (default: 1s)
	RateLimit  rate.Limit    // provider calls per second (default: 10)
	Burst      int           // rate limiter burst (default: 5)
}

// DefaultConfig returns the default embedding configuration.
func DefaultConfig() *Config {
	return &Config{
		Model:      string(openai.SmallEmbedding3),
		Dimensions: types.EmbeddingDimensions,
		MaxRetries: 3,
		Backoff:    time.Second,
		RateLimit:  10,
		Burst:      5,
	}
}

// embedder is the provider call, extracted for testing.
type embedder interface {
	CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// Service computes embeddings via the provider. Construct once at startup
// and pass explicitly into each component.
type Service struct {
	client     embedder
	model      openai.EmbeddingModel
	dimensions int
	maxRetries int
	backoff    time.Duration
	limiter    *rate.Limiter
}

// NewService creates an embedding service.
func NewService(cfg *Config) (*Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY not set")
		}
	}

	defaults := DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = defaults.Dimensions
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.Backoff == 0 {
		cfg.Backoff = defaults.Backoff
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaults.RateLimit
	}
	if cfg.Burst == 0 {
		cfg.Burst = defaults.Burst
	}

	return &Service{
		client:     openai.NewClient(apiKey),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.Backoff,
		limiter:    rate.NewLimiter(cfg.RateLimit, cfg.Burst),
	}, nil
}

// Dimensions returns the expected vector length.
func (s *Service) Dimensions() int {
	return s.dimensions
}

// Embed computes the embedding vector for the given text. Text must be
// non-empty. A provider failure returns a nil vector and an error; callers
// must treat that as "retry later", not as a permanent failure.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("embedding text must be non-empty")
	}

	var lastErr error
	backoff := s.backoff

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: s.model,
		})
		if err == nil {
			if len(resp.Data) == 0 {
				return nil, fmt.Errorf("embedding provider returned no data")
			}
			vec := resp.Data[0].Embedding
			if len(vec) != s.dimensions {
				return nil, fmt.Errorf("provider returned %d dimensions, expected %d: %w",
					len(vec), s.dimensions, ErrDimensionMismatch)
			}
			return vec, nil
		}

		lastErr = err
		if !llm.IsRetriable(err) || attempt == s.maxRetries {
			break
		}

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("embedding call failed: %w", lastErr)
}

// BuildEmbeddingText concatenates the event fields that define its semantic
// identity, in fixed order, skipping empty fields.
func BuildEmbeddingText(title, summary string, tags []string, organizer string) string {
	parts := make([]string, 0, 4)
	if strings.TrimSpace(title) != "" {
		parts = append(parts, strings.TrimSpace(title))
	}
	if strings.TrimSpace(summary) != "" {
		parts = append(parts, strings.TrimSpace(summary))
	}
	if joined := strings.TrimSpace(strings.Join(tags, ", ")); joined != "" {
		parts = append(parts, joined)
	}
	if strings.TrimSpace(organizer) != "" {
		parts = append(parts, strings.TrimSpace(organizer))
	}
	return strings.Join(parts, Separator)
}

// CosineSimilarity returns the cosine of the angle between a and b, in
// [-1, 1]. Vectors of different lengths fail with ErrDimensionMismatch.
// A zero vector yields similarity 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("%w: empty vectors", ErrDimensionMismatch)
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Guard against floating-point drift outside [-1, 1].
	if sim > 1 {
		sim = 1
	} else if sim < -1 {
		sim = -1
	}
	return sim, nil
}
