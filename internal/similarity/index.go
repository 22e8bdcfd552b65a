// Package similarity answers nearest-neighbor queries over the embeddings
// stored alongside events. The store has no native vector index, so the
// index fetches embedding-bearing candidate rows and ranks them in-process.
package similarity

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/MattB543/asheville-event-feed-sub002/internal/embedding"
	"github.com/MattB543/asheville-event-feed-sub002/internal/types"
)

// ErrNoEmbedding is returned when a query-by-ID references an event that has
// no stored embedding yet. Querying before the embedding pass has run is a
// contract error, not an empty result.
var ErrNoEmbedding = errors.New("event has no embedding")

// OrderBy selects the result ordering.
type OrderBy int

const (
	// OrderBySimilarity ranks results by similarity, descending (default).
	OrderBySimilarity OrderBy = iota
	// OrderByStartTime orders results by start time, ascending, for
	// date-grouped display.
	OrderByStartTime
)

// SearchOptions configures a nearest-neighbor query.
type SearchOptions struct {
	Limit         int        // max results (default: 10)
	MinSimilarity float64    // hard floor; results below it are dropped, not ranked lower
	ExcludeIDs    []string   // event IDs to omit from results
	After         *time.Time // only events starting at or after this instant
	Before        *time.Time // only events starting before this instant
	OrderBy       OrderBy
}

// Match is one ranked result.
type Match struct {
	Event      *types.Event
	Similarity float64
}

// EventSource is the storage capability the index needs.
type EventSource interface {
	GetEvent(ctx context.Context, id string) (*types.Event, error)
	ListEvents(ctx context.Context, filter types.EventFilter) ([]*types.Event, error)
}

// Index performs nearest-neighbor queries against stored embeddings.
type Index struct {
	store EventSource
}

// NewIndex creates a similarity index over the given store.
func NewIndex(store EventSource) *Index {
	return &Index{store: store}
}

// NearestToEvent finds events most similar to the given event. The query
// event itself is always excluded from results.
func (ix *Index) NearestToEvent(ctx context.Context, eventID string, opts SearchOptions) ([]Match, error) {
	event, err := ix.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch query event %s: %w", eventID, err)
	}
	if event == nil {
		return nil, fmt.Errorf("event %s not found", eventID)
	}
	if !event.HasEmbedding() {
		return nil, fmt.Errorf("event %s: %w", eventID, ErrNoEmbedding)
	}

	opts.ExcludeIDs = append(opts.ExcludeIDs, eventID)
	return ix.NearestToVector(ctx, event.Embedding, opts)
}

// NearestToVector finds events most similar to the given vector. Events
// without embeddings are never returned.
func (ix *Index) NearestToVector(ctx context.Context, vector []float32, opts SearchOptions) ([]Match, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector is empty: %w", ErrNoEmbedding)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	candidates, err := ix.store.ListEvents(ctx, types.EventFilter{
		HasEmbedding: true,
		StartAfter:   opts.After,
		StartBefore:  opts.Before,
		ExcludeIDs:   opts.ExcludeIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candidates: %w", err)
	}

	matches := make([]Match, 0, len(candidates))
	for _, cand := range candidates {
		sim, err := embedding.CosineSimilarity(vector, cand.Embedding)
		if err != nil {
			// Dimension mismatch means corrupt data or a programmer error;
			// fail loudly rather than skipping the row.
			return nil, fmt.Errorf("candidate %s: %w", cand.ID, err)
		}
		if sim < opts.MinSimilarity {
			continue
		}
		matches = append(matches, Match{Event: cand, Similarity: sim})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	if opts.OrderBy == OrderByStartTime {
		sort.Slice(matches, func(i, j int) bool {
			return matches[i].Event.StartTime.Before(matches[j].Event.StartTime)
		})
	}
	return matches, nil
}
