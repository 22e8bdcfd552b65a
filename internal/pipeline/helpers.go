package pipeline

import (
	"strings"

	"github.com/MattB543/asheville-event-feed-sub002/internal/embedding"
	"github.com/MattB543/asheville-event-feed-sub002/internal/llm"
	"github.com/MattB543/asheville-event-feed-sub002/internal/scoring"
	"github.com/MattB543/asheville-event-feed-sub002/internal/types"
)

// DefaultIsPermanent classifies content-policy rejections and malformed
// model responses as permanent: both get a persisted placeholder so the row
// stops re-entering the queue. Transient provider failures stay retriable.
func DefaultIsPermanent(err error) bool {
	if err == nil {
		return false
	}
	if llm.IsContentPolicy(err) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "unparseable") ||
		strings.Contains(msg, "unusable") ||
		strings.Contains(msg, "returned no score")
}

// buildEmbeddingText assembles the canonical embedding text for an event.
func buildEmbeddingText(event *types.Event) string {
	return embedding.BuildEmbeddingText(event.Title, event.Summary, event.Tags, event.Organizer)
}

// sentinelEnrichment is the placeholder persisted for permanently
// unenrichable events.
func sentinelEnrichment(event *types.Event) (tags []string, summary string) {
	return scoring.SentinelEnrichment(event)
}
