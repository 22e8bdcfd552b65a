package scoring

import (
	"context"
	"fmt"
	"strings"

	"github.com/MattB543/asheville-event-feed-sub002/internal/llm"
	"github.com/MattB543/asheville-event-feed-sub002/internal/types"
)

// SentinelTag marks events whose enrichment permanently failed. Persisting
// it takes the row out of the needs-work predicate so it is not rediscovered
// forever.
const SentinelTag = "unclassified"

// EnricherConfig holds enrichment configuration.
type EnricherConfig struct {
	MaxTags   int // cap on generated tags (default: 6)
	MaxTokens int // completion budget per call (default: 800)
}

// DefaultEnricherConfig returns the default enrichment configuration.
func DefaultEnricherConfig() EnricherConfig {
	return EnricherConfig{
		MaxTags:   6,
		MaxTokens: 800,
	}
}

// Enricher generates tags and a one-paragraph summary for an event. The
// summary later becomes part of the canonical embedding text, so it aims to
// capture what the event is rather than how the listing was written.
type Enricher struct {
	llm    ModelClient
	config EnricherConfig
}

// NewEnricher creates a tag/summary enricher.
func NewEnricher(client ModelClient, cfg EnricherConfig) *Enricher {
	if cfg.MaxTags == 0 {
		cfg = DefaultEnricherConfig()
	}
	return &Enricher{llm: client, config: cfg}
}

// enrichmentResponse is the JSON shape the model is asked to return.
type enrichmentResponse struct {
	Tags    []string `json:"tags"`
	Summary string   `json:"summary"`
}

// Enrich returns tags and a summary for the event. Tags come back
// lower-cased and capped; an empty model summary falls back to the title so
// downstream embedding text is never empty.
func (e *Enricher) Enrich(ctx context.Context, event *types.Event) (tags []string, summary string, err error) {
	prompt := e.buildEnrichmentPrompt(event)

	result, err := e.llm.Complete(ctx, enrichmentSystemPrompt, prompt, "tag_summary",
		llm.GetSimpleTaskModel(), e.config.MaxTokens)
	if err != nil {
		return nil, "", fmt.Errorf("enrichment call failed: %w", err)
	}

	parsed := llm.Parse[enrichmentResponse](result.Text, "enrichment response")
	if !parsed.Success {
		return nil, "", fmt.Errorf("unparseable enrichment response: %s (response: %s)",
			parsed.Error, llm.TruncateForLog(result.Text, 200))
	}

	for _, tag := range parsed.Data.Tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
		if len(tags) == e.config.MaxTags {
			break
		}
	}
	if len(tags) == 0 {
		tags = []string{SentinelTag}
	}

	summary = strings.TrimSpace(parsed.Data.Summary)
	if summary == "" {
		summary = event.Title
	}
	return tags, summary, nil
}

// SentinelEnrichment is the placeholder persisted on unrecoverable failure
// (e.g. a content-policy rejection) so the row stops re-entering the queue.
func SentinelEnrichment(event *types.Event) (tags []string, summary string) {
	return []string{SentinelTag}, event.Title
}

const enrichmentSystemPrompt = `You classify events for a local events feed. You write neutral, factual summaries; never copy marketing copy verbatim. Respond with ONLY raw JSON.`

func (e *Enricher) buildEnrichmentPrompt(event *types.Event) string {
	return fmt.Sprintf(`EVENT:
Title: %s
Date: %s
Location: %s
Organizer: %s
Price: %s
Description: %s

TASK:
1. Choose up to %d short lowercase tags describing the event's category and
   vibe (e.g. "live music", "outdoors", "family", "comedy", "food").
2. Write a 1-2 sentence factual summary of what the event is.

OUTPUT FORMAT (JSON only, no markdown):
{
  "tags": ["tag1", "tag2"],
  "summary": "..."
}`,
		event.Title, event.StartTime.Format("Mon Jan 2 15:04"), event.Location,
		event.Organizer, event.Price, llm.TruncateForLog(event.Description, 800),
		e.config.MaxTags)
}
