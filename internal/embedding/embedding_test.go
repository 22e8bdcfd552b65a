package embedding

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/MattB543/asheville-event-feed-sub002/internal/types"
)

type fakeEmbedder struct {
	responses []openai.EmbeddingResponse
	errs      []error
	calls     int
}

func (f *fakeEmbedder) CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return openai.EmbeddingResponse{}, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return openai.EmbeddingResponse{}, errors.New("no scripted response")
}

func newTestService(client embedder, dims int) *Service {
	return &Service{
		client:     client,
		model:      openai.SmallEmbedding3,
		dimensions: dims,
		maxRetries: 2,
		backoff:    time.Millisecond,
		limiter:    rate.NewLimiter(rate.Inf, 1),
	}
}

func responseWith(vec []float32) openai.EmbeddingResponse {
	return openai.EmbeddingResponse{Data: []openai.Embedding{{Embedding: vec}}}
}

func TestEmbed(t *testing.T) {
	vec := make([]float32, types.EmbeddingDimensions)
	vec[0] = 1

	t.Run("success", func(t *testing.T) {
		svc := newTestService(&fakeEmbedder{responses: []openai.EmbeddingResponse{responseWith(vec)}}, types.EmbeddingDimensions)
		got, err := svc.Embed(context.Background(), "jazz on the patio")
		require.NoError(t, err)
		assert.Equal(t, vec, got)
	})

	t.Run("empty text rejected without provider call", func(t *testing.T) {
		fake := &fakeEmbedder{}
		svc := newTestService(fake, types.EmbeddingDimensions)
		_, err := svc.Embed(context.Background(), "   ")
		require.Error(t, err)
		assert.Zero(t, fake.calls)
	})

	t.Run("retries transient provider errors", func(t *testing.T) {
		fake := &fakeEmbedder{
			errs:      []error{errors.New("503 service unavailable"), nil},
			responses: []openai.EmbeddingResponse{{}, responseWith(vec)},
		}
		svc := newTestService(fake, types.EmbeddingDimensions)
		got, err := svc.Embed(context.Background(), "text")
		require.NoError(t, err)
		assert.Equal(t, vec, got)
		assert.Equal(t, 2, fake.calls)
	})

	t.Run("does not retry permanent errors", func(t *testing.T) {
		fake := &fakeEmbedder{errs: []error{errors.New("401 unauthorized")}}
		svc := newTestService(fake, types.EmbeddingDimensions)
		_, err := svc.Embed(context.Background(), "text")
		require.Error(t, err)
		assert.Equal(t, 1, fake.calls)
	})

	t.Run("wrong dimensionality fails loudly", func(t *testing.T) {
		svc := newTestService(&fakeEmbedder{responses: []openai.EmbeddingResponse{responseWith([]float32{1, 2, 3})}}, types.EmbeddingDimensions)
		_, err := svc.Embed(context.Background(), "text")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})
}

func TestBuildEmbeddingText(t *testing.T) {
	t.Run("all fields in fixed order", func(t *testing.T) {
		got := BuildEmbeddingText("Sunset Jazz", "Trio on the patio.", []string{"live music", "beer"}, "Twin Leaf")
		assert.Equal(t, "Sunset Jazz | Trio on the patio. | live music, beer | Twin Leaf", got)
	})

	t.Run("empty fields skipped, no dangling separators", func(t *testing.T) {
		got := BuildEmbeddingText("Sunset Jazz", "", nil, "Twin Leaf")
		assert.Equal(t, "Sunset Jazz | Twin Leaf", got)
	})

	t.Run("title only", func(t *testing.T) {
		assert.Equal(t, "Sunset Jazz", BuildEmbeddingText("Sunset Jazz", "", nil, ""))
	})

	t.Run("deterministic", func(t *testing.T) {
		a := BuildEmbeddingText("T", "S", []string{"x", "y"}, "O")
		b := BuildEmbeddingText("T", "S", []string{"x", "y"}, "O")
		assert.Equal(t, a, b)
	})
}

func TestCosineSimilarity(t *testing.T) {
	t.Run("identical vectors", func(t *testing.T) {
		v := []float32{1, 2, 3}
		sim, err := CosineSimilarity(v, v)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, sim, 1e-9)
	})

	t.Run("orthogonal vectors", func(t *testing.T) {
		sim, err := CosineSimilarity([]float32{1, 0}, []float32{0, 1})
		require.NoError(t, err)
		assert.InDelta(t, 0.0, sim, 1e-9)
	})

	t.Run("opposite vectors", func(t *testing.T) {
		sim, err := CosineSimilarity([]float32{1, 0}, []float32{-1, 0})
		require.NoError(t, err)
		assert.InDelta(t, -1.0, sim, 1e-9)
	})

	t.Run("symmetric", func(t *testing.T) {
		a := []float32{0.3, -0.7, 0.2}
		b := []float32{0.9, 0.1, -0.4}
		ab, err := CosineSimilarity(a, b)
		require.NoError(t, err)
		ba, err := CosineSimilarity(b, a)
		require.NoError(t, err)
		assert.Equal(t, ab, ba)
	})

	t.Run("scale invariant", func(t *testing.T) {
		a := []float32{1, 2, 3}
		b := []float32{10, 20, 30}
		sim, err := CosineSimilarity(a, b)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, sim, 1e-6)
	})

	t.Run("zero vector yields zero", func(t *testing.T) {
		sim, err := CosineSimilarity([]float32{0, 0}, []float32{1, 1})
		require.NoError(t, err)
		assert.Zero(t, sim)
	})

	t.Run("dimension mismatch errors", func(t *testing.T) {
		_, err := CosineSimilarity([]float32{1}, []float32{1, 2})
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("empty vectors error", func(t *testing.T) {
		_, err := CosineSimilarity(nil, nil)
		assert.Error(t, err)
	})

	t.Run("result clamped to unit range", func(t *testing.T) {
		v := make([]float32, 512)
		for i := range v {
			v[i] = 0.1
		}
		sim, err := CosineSimilarity(v, v)
		require.NoError(t, err)
		assert.LessOrEqual(t, sim, 1.0)
		assert.False(t, math.IsNaN(sim))
	})
}
