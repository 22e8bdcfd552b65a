package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MattB543/asheville-event-feed-sub002/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func makeEvent(id string, start time.Time) *types.Event {
	return &types.Event{
		ID:          id,
		Title:       "Event " + id,
		Description: "description for " + id,
		Location:    "Twin Leaf Brewery",
		Organizer:   "Twin Leaf",
		StartTime:   start,
	}
}

func testVector() []float32 {
	vec := make([]float32, types.EmbeddingDimensions)
	for i := range vec {
		vec[i] = float32(i%7) * 0.25
	}
	return vec
}

func TestCreateAndGetEvent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	start := time.Date(2026, 9, 4, 19, 0, 0, 0, time.UTC)
	event := makeEvent("evt-1", start)
	require.NoError(t, store.CreateEvent(ctx, event))

	got, err := store.GetEvent(ctx, "evt-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Event evt-1", got.Title)
	assert.True(t, got.StartTime.Equal(start))
	assert.Nil(t, got.Tags, "derived fields start null")
	assert.Empty(t, got.Summary)
	assert.False(t, got.HasEmbedding())
	assert.Nil(t, got.Score)
}

func TestGetEventNotFound(t *testing.T) {
	store := newTestStore(t)
	got, err := store.GetEvent(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCreateEventIdempotentOnReplay(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	event := makeEvent("evt-1", time.Now().Add(time.Hour))
	require.NoError(t, store.CreateEvent(ctx, event))

	replay := makeEvent("evt-1", time.Now().Add(time.Hour))
	replay.Title = "Changed Title"
	require.NoError(t, store.CreateEvent(ctx, replay), "re-ingest must not error")

	got, err := store.GetEvent(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, "Event evt-1", got.Title, "replay must not overwrite")
}

func TestCreateEventRejectsInvalid(t *testing.T) {
	store := newTestStore(t)
	event := makeEvent("evt-1", time.Now())
	event.Title = ""
	assert.Error(t, store.CreateEvent(context.Background(), event))
}

func TestSetEnrichmentOnlyWhenNull(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateEvent(ctx, makeEvent("evt-1", time.Now().Add(time.Hour))))

	require.NoError(t, store.SetEnrichment(ctx, "evt-1", []string{"live music", "beer"}, "Jazz on the patio."))
	got, err := store.GetEvent(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"live music", "beer"}, got.Tags)
	assert.Equal(t, "Jazz on the patio.", got.Summary)

	// A second writer loses silently; the first value stands.
	require.NoError(t, store.SetEnrichment(ctx, "evt-1", []string{"other"}, "Other summary."))
	got, err = store.GetEvent(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, "Jazz on the patio.", got.Summary)
}

func TestSetEmbeddingRoundTripAndGuard(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateEvent(ctx, makeEvent("evt-1", time.Now().Add(time.Hour))))

	vec := testVector()
	require.NoError(t, store.SetEmbedding(ctx, "evt-1", vec))

	got, err := store.GetEvent(ctx, "evt-1")
	require.NoError(t, err)
	require.True(t, got.HasEmbedding())
	assert.Equal(t, vec, got.Embedding)

	// Second write is a no-op.
	other := testVector()
	other[0] = 99
	require.NoError(t, store.SetEmbedding(ctx, "evt-1", other))
	got, err = store.GetEvent(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, vec[0], got.Embedding[0])
}

func TestSetEmbeddingRejectsWrongDimensions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateEvent(ctx, makeEvent("evt-1", time.Now().Add(time.Hour))))
	assert.Error(t, store.SetEmbedding(ctx, "evt-1", []float32{1, 2, 3}))
}

func TestSetScoreOnlyWhenNull(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateEvent(ctx, makeEvent("evt-1", time.Now().Add(time.Hour))))

	score := &types.ScoreRecord{Total: 18, Rarity: 7, Uniqueness: 5, Magnitude: 6,
		LocalFlavor: 8, SocialAffordance: 4, Reason: "one-off festival"}
	require.NoError(t, store.SetScore(ctx, "evt-1", score))

	got, err := store.GetEvent(ctx, "evt-1")
	require.NoError(t, err)
	require.NotNil(t, got.Score)
	assert.Equal(t, 18, got.Score.Total)
	assert.Equal(t, "one-off festival", got.Score.Reason)

	low := &types.ScoreRecord{Total: 3, Rarity: 1, Uniqueness: 1, Magnitude: 1,
		LocalFlavor: 1, SocialAffordance: 1}
	require.NoError(t, store.SetScore(ctx, "evt-1", low))
	got, err = store.GetEvent(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, 18, got.Score.Total, "existing score must not be overwritten")
}

func TestSetScoreRejectsInconsistent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateEvent(ctx, makeEvent("evt-1", time.Now().Add(time.Hour))))

	bad := &types.ScoreRecord{Total: 30, Rarity: 7, Uniqueness: 5, Magnitude: 6,
		LocalFlavor: 8, SocialAffordance: 4}
	assert.Error(t, store.SetScore(ctx, "evt-1", bad))
}

func TestListEventsFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		require.NoError(t, store.CreateEvent(ctx, makeEvent(fmt.Sprintf("evt-%d", i), base.AddDate(0, 0, i))))
	}
	require.NoError(t, store.SetEnrichment(ctx, "evt-0", []string{"music"}, "s0"))
	require.NoError(t, store.SetEnrichment(ctx, "evt-1", []string{"music"}, "s1"))
	require.NoError(t, store.SetEmbedding(ctx, "evt-0", testVector()))

	t.Run("missing summary", func(t *testing.T) {
		events, err := store.ListEvents(ctx, types.EventFilter{MissingSummary: true})
		require.NoError(t, err)
		assert.Len(t, events, 2)
	})

	t.Run("missing embedding with summary", func(t *testing.T) {
		events, err := store.ListEvents(ctx, types.EventFilter{MissingEmbedding: true, HasSummary: true})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "evt-1", events[0].ID)
	})

	t.Run("missing score with embedding", func(t *testing.T) {
		events, err := store.ListEvents(ctx, types.EventFilter{MissingScore: true, HasEmbedding: true})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "evt-0", events[0].ID)
	})

	t.Run("time window", func(t *testing.T) {
		after := base.AddDate(0, 0, 1)
		before := base.AddDate(0, 0, 3)
		events, err := store.ListEvents(ctx, types.EventFilter{StartAfter: &after, StartBefore: &before})
		require.NoError(t, err)
		assert.Len(t, events, 2) // evt-1 and evt-2; StartBefore is exclusive
	})

	t.Run("exclude IDs", func(t *testing.T) {
		events, err := store.ListEvents(ctx, types.EventFilter{ExcludeIDs: []string{"evt-0", "evt-2"}})
		require.NoError(t, err)
		assert.Len(t, events, 2)
	})

	t.Run("limit and order by start time", func(t *testing.T) {
		events, err := store.ListEvents(ctx, types.EventFilter{OrderByStartTime: true, Limit: 2})
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, "evt-0", events[0].ID)
		assert.Equal(t, "evt-1", events[1].ID)
	})
}

func TestDeleteEvents(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, store.CreateEvent(ctx, makeEvent(fmt.Sprintf("evt-%d", i), time.Now().Add(time.Hour))))
	}

	n, err := store.DeleteEvents(ctx, []string{"evt-0", "evt-2", "missing"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	count, err := store.CountEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	n, err = store.DeleteEvents(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpdateDescription(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateEvent(ctx, makeEvent("evt-1", time.Now().Add(time.Hour))))

	require.NoError(t, store.UpdateDescription(ctx, "evt-1", "much longer merged description"))
	got, err := store.GetEvent(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, "much longer merged description", got.Description)
}

func TestSignalLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateEvent(ctx, makeEvent("evt-1", time.Now().Add(time.Hour))))

	sig := &types.Signal{ID: "sig-1", UserID: "u1", EventID: "evt-1",
		Type: types.SignalFavorite, Active: true}
	require.NoError(t, store.CreateSignal(ctx, sig))

	// Replay is a no-op, mirroring event ingestion.
	require.NoError(t, store.CreateSignal(ctx, sig))

	signals, err := store.GetSignalsByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.True(t, signals[0].Active)
	assert.Equal(t, types.SignalFavorite, signals[0].Type)

	require.NoError(t, store.DeactivateSignal(ctx, "sig-1"))
	signals, err = store.GetSignalsByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.False(t, signals[0].Active, "deactivation flips the flag, never deletes")

	assert.Error(t, store.DeactivateSignal(ctx, "missing"))
}

func TestSignalRequiresEvent(t *testing.T) {
	store := newTestStore(t)
	sig := &types.Signal{ID: "sig-1", UserID: "u1", EventID: "ghost",
		Type: types.SignalHide, Active: true}
	assert.Error(t, store.CreateSignal(context.Background(), sig))
}

func TestDeleteEventCascadesSignals(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateEvent(ctx, makeEvent("evt-1", time.Now().Add(time.Hour))))
	require.NoError(t, store.CreateSignal(ctx, &types.Signal{
		ID: "sig-1", UserID: "u1", EventID: "evt-1", Type: types.SignalFavorite, Active: true}))

	_, err := store.DeleteEvents(ctx, []string{"evt-1"})
	require.NoError(t, err)

	signals, err := store.GetSignalsByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, signals)
}
