package scoring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrichHappyPath(t *testing.T) {
	model := &scriptedModel{response: `{
		"tags": ["Live Music", " beer ", "outdoors"],
		"summary": "Jazz trio on the brewery patio."
	}`}
	enricher := NewEnricher(model, DefaultEnricherConfig())

	tags, summary, err := enricher.Enrich(context.Background(), sampleEvent())
	require.NoError(t, err)
	assert.Equal(t, []string{"live music", "beer", "outdoors"}, tags, "tags come back lower-cased and trimmed")
	assert.Equal(t, "Jazz trio on the brewery patio.", summary)
}

func TestEnrichCapsTags(t *testing.T) {
	model := &scriptedModel{response: `{
		"tags": ["a", "b", "c", "d", "e", "f", "g", "h"],
		"summary": "s"
	}`}
	cfg := DefaultEnricherConfig()
	cfg.MaxTags = 3
	enricher := NewEnricher(model, cfg)

	tags, _, err := enricher.Enrich(context.Background(), sampleEvent())
	require.NoError(t, err)
	assert.Len(t, tags, 3)
}

func TestEnrichFallbacks(t *testing.T) {
	t.Run("empty summary falls back to title", func(t *testing.T) {
		model := &scriptedModel{response: `{"tags": ["food"], "summary": "  "}`}
		enricher := NewEnricher(model, DefaultEnricherConfig())
		_, summary, err := enricher.Enrich(context.Background(), sampleEvent())
		require.NoError(t, err)
		assert.Equal(t, sampleEvent().Title, summary)
	})

	t.Run("no usable tags yields sentinel", func(t *testing.T) {
		model := &scriptedModel{response: `{"tags": ["", "  "], "summary": "s"}`}
		enricher := NewEnricher(model, DefaultEnricherConfig())
		tags, _, err := enricher.Enrich(context.Background(), sampleEvent())
		require.NoError(t, err)
		assert.Equal(t, []string{SentinelTag}, tags)
	})
}

func TestEnrichUnparseableResponse(t *testing.T) {
	model := &scriptedModel{response: "no json here"}
	enricher := NewEnricher(model, DefaultEnricherConfig())
	_, _, err := enricher.Enrich(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unparseable")
}

func TestSentinelEnrichment(t *testing.T) {
	event := sampleEvent()
	tags, summary := SentinelEnrichment(event)
	assert.Equal(t, []string{SentinelTag}, tags)
	assert.Equal(t, event.Title, summary)
}
