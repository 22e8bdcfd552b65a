// Package scoring produces multi-dimension quality scores for events using
// the chat model, with retrieved similar events as grounding context. It
// also hosts the tag/summary enricher, which shares the same model client.
package scoring

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/MattB543/asheville-event-feed-sub002/internal/llm"
	"github.com/MattB543/asheville-event-feed-sub002/internal/types"
)

// Config holds scorer configuration.
type Config struct {
	// FallbackDimension is substituted for any unparseable dimension so one
	// bad field never voids the whole score. Default: 5 (mid-scale).
	FallbackDimension int

	// RecurringDimension is the value assigned to each primary dimension of
	// a recurring event, which bypasses the model entirely. Default: 1.
	RecurringDimension int

	// MaxTokens is the completion budget per scoring call. Default: 1500.
	MaxTokens int

	// MaxSimilarContext caps how many similar events are included in the
	// prompt. Default: 5.
	MaxSimilarContext int
}

// DefaultConfig returns the default scorer configuration.
func DefaultConfig() Config {
	return Config{
		FallbackDimension:  5,
		RecurringDimension: 1,
		MaxTokens:          1500,
		MaxSimilarContext:  5,
	}
}

// ModelClient is the chat-model capability the scorer needs.
type ModelClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt, operation, model string, maxTokens int) (*llm.Result, error)
}

// Scorer scores event quality with the chat model.
type Scorer struct {
	llm    ModelClient
	config Config
}

// NewScorer creates a quality scorer.
func NewScorer(client ModelClient, cfg Config) *Scorer {
	if cfg.MaxTokens == 0 {
		cfg = DefaultConfig()
	}
	return &Scorer{llm: client, config: cfg}
}

// RecurringScore returns the fixed low score assigned to recurring events
// without consulting the model.
func (s *Scorer) RecurringScore() *types.ScoreRecord {
	d := s.config.RecurringDimension
	return &types.ScoreRecord{
		Total:            d * 3,
		Rarity:           d,
		Uniqueness:       d,
		Magnitude:        d,
		LocalFlavor:      1,
		SocialAffordance: 1,
		Reason:           "recurring event (weekly/daily series); scored without model review",
	}
}

// Score asks the model to score the event across five dimensions, using the
// similar events as context to calibrate rarity. Out-of-range or
// non-numeric model output is clamped or replaced with the fallback value.
// A malformed or empty response yields (nil, error); the caller must apply a
// documented fallback rather than leave the event unscored indefinitely.
func (s *Scorer) Score(ctx context.Context, event *types.Event, similar []*types.Event) (*types.ScoreRecord, error) {
	prompt := s.buildScoringPrompt(event, similar)

	result, err := s.llm.Complete(ctx, scoringSystemPrompt, prompt, "quality_score", "", s.config.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("scoring call failed: %w", err)
	}

	parsed := llm.Parse[map[string]any](result.Text, "quality score response")
	if !parsed.Success || len(parsed.Data) == 0 {
		return nil, fmt.Errorf("unusable score response: %s (response: %s)",
			parsed.Error, llm.TruncateForLog(result.Text, 200))
	}
	raw := parsed.Data

	fallback := s.config.FallbackDimension
	rarity := dimension(raw, []string{"rarity", "urgency"}, 0, 10, fallback)
	uniqueness := dimension(raw, []string{"uniqueness", "unique", "novelty"}, 0, 10, fallback)
	magnitude := dimension(raw, []string{"magnitude", "production"}, 0, 10, fallback)
	localFlavor := dimension(raw, []string{"local_flavor", "localFlavor", "local"}, 1, 10, fallback)
	social := dimension(raw, []string{"social_affordance", "socialAffordance", "social"}, 1, 10, fallback)

	reason := ""
	for _, key := range []string{"reason", "justification", "reasoning"} {
		if v, ok := raw[key].(string); ok && v != "" {
			reason = v
			break
		}
	}

	return &types.ScoreRecord{
		Total:            rarity + uniqueness + magnitude,
		Rarity:           rarity,
		Uniqueness:       uniqueness,
		Magnitude:        magnitude,
		LocalFlavor:      localFlavor,
		SocialAffordance: social,
		Reason:           reason,
	}, nil
}

// FallbackScore is the documented fallback persisted when the model cannot
// produce a usable score at all, so the event exits the needs-work queue.
func (s *Scorer) FallbackScore(reason string) *types.ScoreRecord {
	f := s.config.FallbackDimension
	return &types.ScoreRecord{
		Total:            f * 3,
		Rarity:           f,
		Uniqueness:       f,
		Magnitude:        f,
		LocalFlavor:      f,
		SocialAffordance: f,
		Reason:           "fallback score: " + reason,
	}
}

// dimension extracts the first present key, coerces it to an int, clamps it
// to [min, max], and falls back to the mid-scale value when the field is
// missing or unparseable.
func dimension(raw map[string]any, keys []string, min, max, fallback int) int {
	for _, key := range keys {
		v, ok := raw[key]
		if !ok {
			continue
		}
		n, ok := coerceInt(v)
		if !ok {
			// Present but unparseable ("N/A", etc.) — substitute, don't fail.
			return fallback
		}
		if n < min {
			return min
		}
		if n > max {
			return max
		}
		return n
	}
	return fallback
}

func coerceInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return int(parsed), true
	default:
		return 0, false
	}
}

const scoringSystemPrompt = `You score events for a local events feed in Asheville, NC. You judge how worth surfacing an event is, not how polished its listing reads. Be skeptical of marketing language. Respond with ONLY raw JSON.`

func (s *Scorer) buildScoringPrompt(event *types.Event, similar []*types.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, `EVENT:
Title: %s
Date: %s
Location: %s
Organizer: %s
Price: %s
Tags: %s
Summary: %s
Description: %s
`,
		event.Title, event.StartTime.Format("Mon Jan 2 15:04"), event.Location,
		event.Organizer, event.Price, strings.Join(event.Tags, ", "), event.Summary,
		llm.TruncateForLog(event.Description, 600))

	if len(similar) > 0 {
		limit := s.config.MaxSimilarContext
		if len(similar) < limit {
			limit = len(similar)
		}
		b.WriteString("\nSIMILAR UPCOMING EVENTS (for calibration: many near-identical upcoming events mean this one is not rare):\n")
		for _, sim := range similar[:limit] {
			fmt.Fprintf(&b, "- %s (%s, %s)\n", sim.Title, sim.StartTime.Format("Jan 2"), sim.Organizer)
		}
	}

	b.WriteString(`
TASK:
Score the event on five dimensions.

Primary (each 0-10, summed into the headline score):
- rarity: how hard is it to catch this again soon? One-night touring acts score high; things that happen monthly score low. Use the similar-events list.
- uniqueness: how novel is the experience compared to the typical local calendar?
- magnitude: scale and production value of the event.

Secondary (each 1-10, used for alternate rankings only):
- local_flavor: how distinctly of-this-place the event is.
- social_affordance: how easy it is to attend solo or meet people.

OUTPUT FORMAT (JSON only, no markdown):
{
  "rarity": 0-10,
  "uniqueness": 0-10,
  "magnitude": 0-10,
  "local_flavor": 1-10,
  "social_affordance": 1-10,
  "reason": "One or two sentences justifying the primary scores"
}`)
	return b.String()
}
