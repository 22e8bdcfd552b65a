package similarity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MattB543/asheville-event-feed-sub002/internal/types"
)

// fakeSource serves a fixed event set and applies the filter fields the
// index relies on.
type fakeSource struct {
	events []*types.Event
}

func (f *fakeSource) GetEvent(ctx context.Context, id string) (*types.Event, error) {
	for _, e := range f.events {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, nil
}

func (f *fakeSource) ListEvents(ctx context.Context, filter types.EventFilter) ([]*types.Event, error) {
	var out []*types.Event
	for _, e := range f.events {
		if filter.HasEmbedding && !e.HasEmbedding() {
			continue
		}
		if filter.StartAfter != nil && e.StartTime.Before(*filter.StartAfter) {
			continue
		}
		if filter.StartBefore != nil && !e.StartTime.Before(*filter.StartBefore) {
			continue
		}
		excluded := false
		for _, id := range filter.ExcludeIDs {
			if e.ID == id {
				excluded = true
			}
		}
		if excluded {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// vec builds a unit-ish 3-dim embedding; the index never checks global
// dimensionality, only pairwise consistency.
func vec(x, y, z float32) []float32 { return []float32{x, y, z} }

func embeddedEvent(id string, start time.Time, embedding []float32) *types.Event {
	return &types.Event{
		ID:        id,
		Title:     "Event " + id,
		Summary:   "summary",
		StartTime: start,
		Embedding: embedding,
	}
}

func TestNearestToVectorRanking(t *testing.T) {
	now := time.Now()
	src := &fakeSource{events: []*types.Event{
		embeddedEvent("exact", now, vec(1, 0, 0)),
		embeddedEvent("close", now, vec(0.9, 0.1, 0)),
		embeddedEvent("far", now, vec(0, 1, 0)),
		{ID: "unembedded", Title: "no vector", StartTime: now},
	}}
	ix := NewIndex(src)

	matches, err := ix.NearestToVector(context.Background(), vec(1, 0, 0), SearchOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, matches, 3, "events without embeddings are never returned")
	assert.Equal(t, "exact", matches[0].Event.ID)
	assert.Equal(t, "close", matches[1].Event.ID)
	assert.Equal(t, "far", matches[2].Event.ID)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-9)
}

func TestNearestToVectorMinSimilarityIsHardFloor(t *testing.T) {
	now := time.Now()
	src := &fakeSource{events: []*types.Event{
		embeddedEvent("close", now, vec(1, 0, 0)),
		embeddedEvent("far", now, vec(0, 1, 0)),
	}}
	ix := NewIndex(src)

	matches, err := ix.NearestToVector(context.Background(), vec(1, 0, 0),
		SearchOptions{Limit: 10, MinSimilarity: 0.5})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "close", matches[0].Event.ID)
}

func TestNearestToVectorLimit(t *testing.T) {
	now := time.Now()
	src := &fakeSource{events: []*types.Event{
		embeddedEvent("a", now, vec(1, 0, 0)),
		embeddedEvent("b", now, vec(0.9, 0.1, 0)),
		embeddedEvent("c", now, vec(0.8, 0.2, 0)),
	}}
	ix := NewIndex(src)

	matches, err := ix.NearestToVector(context.Background(), vec(1, 0, 0), SearchOptions{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestNearestToVectorOrderByStartTime(t *testing.T) {
	now := time.Now()
	src := &fakeSource{events: []*types.Event{
		embeddedEvent("later", now.Add(48*time.Hour), vec(1, 0, 0)),
		embeddedEvent("sooner", now.Add(24*time.Hour), vec(0.9, 0.1, 0)),
	}}
	ix := NewIndex(src)

	matches, err := ix.NearestToVector(context.Background(), vec(1, 0, 0),
		SearchOptions{Limit: 10, OrderBy: OrderByStartTime})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "sooner", matches[0].Event.ID)
	assert.Equal(t, "later", matches[1].Event.ID)
}

func TestNearestToVectorDimensionMismatchFailsLoudly(t *testing.T) {
	src := &fakeSource{events: []*types.Event{
		embeddedEvent("bad", time.Now(), []float32{1, 0}),
	}}
	ix := NewIndex(src)

	_, err := ix.NearestToVector(context.Background(), vec(1, 0, 0), SearchOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}

func TestNearestToEvent(t *testing.T) {
	now := time.Now()
	src := &fakeSource{events: []*types.Event{
		embeddedEvent("query", now, vec(1, 0, 0)),
		embeddedEvent("twin", now, vec(1, 0, 0)),
	}}
	ix := NewIndex(src)

	t.Run("excludes self", func(t *testing.T) {
		matches, err := ix.NearestToEvent(context.Background(), "query", SearchOptions{Limit: 10})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "twin", matches[0].Event.ID)
	})

	t.Run("unembedded query event errors", func(t *testing.T) {
		src.events = append(src.events, &types.Event{ID: "raw", Title: "raw", StartTime: now})
		_, err := ix.NearestToEvent(context.Background(), "raw", SearchOptions{})
		assert.ErrorIs(t, err, ErrNoEmbedding)
	})

	t.Run("missing event errors", func(t *testing.T) {
		_, err := ix.NearestToEvent(context.Background(), "ghost", SearchOptions{})
		assert.Error(t, err)
	})
}

func TestNearestToVectorEmptyQuery(t *testing.T) {
	ix := NewIndex(&fakeSource{})
	_, err := ix.NearestToVector(context.Background(), nil, SearchOptions{})
	assert.ErrorIs(t, err, ErrNoEmbedding)
}
