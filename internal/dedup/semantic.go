package dedup

import (
	"context"
	"fmt"
	"strings"

	"github.com/MattB543/asheville-event-feed-sub002/internal/llm"
	"github.com/MattB543/asheville-event-feed-sub002/internal/types"
)

// semanticJudgment is the JSON shape the model is asked to return for one
// day's events.
type semanticJudgment struct {
	RemoveIDs []string `json:"remove_ids"`
	Reasoning string   `json:"reasoning,omitempty"`
}

// judgeDay asks the model which of one day's events are same-occurrence
// duplicates that fingerprinting missed (title paraphrases, listings from
// different sources). It returns the verified list of IDs to remove plus
// token usage.
func (e *Engine) judgeDay(ctx context.Context, day string, events []*types.Event) ([]string, int64, error) {
	prompt := buildSemanticPrompt(day, events)

	result, err := e.llm.Complete(ctx, semanticSystemPrompt, prompt, "semantic_dedup",
		llm.GetSimpleTaskModel(), e.config.MaxTokens)
	if err != nil {
		return nil, 0, fmt.Errorf("model call for %s failed: %w", day, err)
	}

	parsed := llm.Parse[semanticJudgment](result.Text, "semantic dedup judgment")
	if !parsed.Success {
		return nil, result.TotalTokens(), fmt.Errorf("unparseable judgment for %s: %s (response: %s)",
			day, parsed.Error, llm.TruncateForLog(result.Text, 200))
	}

	// Only accept IDs that actually exist in the day's candidate set. The
	// model occasionally invents or mangles IDs; those are dropped, never
	// guessed at.
	known := make(map[string]bool, len(events))
	for _, ev := range events {
		known[ev.ID] = true
	}
	removeIDs := make([]string, 0, len(parsed.Data.RemoveIDs))
	for _, id := range parsed.Data.RemoveIDs {
		if known[id] {
			removeIDs = append(removeIDs, id)
		} else {
			fmt.Printf("semantic dedup: ignoring unknown event id %q for %s\n", id, day)
		}
	}

	// Refuse to wipe the whole day; a judgment that removes everything is
	// a misread of the task.
	if len(removeIDs) >= len(events) {
		return nil, result.TotalTokens(), fmt.Errorf("judgment for %s would remove all %d events", day, len(events))
	}

	return removeIDs, result.TotalTokens(), nil
}

const semanticSystemPrompt = `You identify duplicate event listings for a local events feed. Two listings are duplicates only when they describe the SAME real-world occurrence: same happening, same venue, same date and time. Paraphrased titles, different source sites, or differently detailed descriptions do not make separate occurrences. Different showtimes, different days of a series, or different venues are NOT duplicates.`

func buildSemanticPrompt(day string, events []*types.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "EVENTS ON %s:\n", day)
	for i, ev := range events {
		fmt.Fprintf(&b, `
[%d] ID: %s
    Title: %s
    Time: %s
    Location: %s
    Organizer: %s
    Price: %s
    Description: %s
`,
			i+1, ev.ID, ev.Title, ev.StartTime.Format("15:04"), ev.Location,
			ev.Organizer, ev.Price, llm.TruncateForLog(ev.Description, 300))
	}

	b.WriteString(`
TASK:
Find groups of listings above that describe the same real-world occurrence.
For each group, keep the listing with the most complete information and list
the IDs of the others for removal.

OUTPUT FORMAT (JSON only, no markdown):
{
  "remove_ids": ["id1", "id2"],
  "reasoning": "Brief explanation of each group found"
}

If there are no duplicates, return {"remove_ids": []}.

IMPORTANT: Respond with ONLY raw JSON. Do NOT wrap it in markdown code fences.`)
	return b.String()
}
