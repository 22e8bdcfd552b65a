package recurrence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MattB543/asheville-event-feed-sub002/internal/types"
)

type fakeStore struct {
	events []*types.Event
}

func (f *fakeStore) ListEvents(ctx context.Context, filter types.EventFilter) ([]*types.Event, error) {
	var out []*types.Event
	for _, e := range f.events {
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
		if !excluded {
			out = append(out, e)
		}
	}
	return out, nil
}

func occurrence(id, title, location, organizer string, start time.Time) *types.Event {
	return &types.Event{ID: id, Title: title, Location: location, Organizer: organizer, StartTime: start}
}

func TestIsRecurringWeeklySeries(t *testing.T) {
	base := time.Date(2026, 9, 3, 21, 0, 0, 0, time.UTC)
	store := &fakeStore{events: []*types.Event{
		occurrence("e1", "Trivia Night", "Twin Leaf Brewery", "", base),
		occurrence("e2", "Trivia Night", "Twin Leaf Brewery", "", base.AddDate(0, 0, 7)),
		occurrence("e3", "Trivia Night", "Twin Leaf Brewery", "", base.AddDate(0, 0, 14)),
	}}
	d := NewDetector(store, DefaultConfig())

	decision, err := d.IsRecurring(context.Background(), "Trivia Night", "Twin Leaf Brewery", "", "e1", base)
	require.NoError(t, err)
	assert.True(t, decision.IsRecurring)
	assert.Equal(t, 2, decision.MatchCount, "match count excludes the queried event")
}

func TestIsRecurringSingleOccurrence(t *testing.T) {
	base := time.Date(2026, 9, 3, 21, 0, 0, 0, time.UTC)
	store := &fakeStore{events: []*types.Event{
		occurrence("e1", "Album Release Show", "The Orange Peel", "", base),
	}}
	d := NewDetector(store, DefaultConfig())

	decision, err := d.IsRecurring(context.Background(), "Album Release Show", "The Orange Peel", "", "e1", base)
	require.NoError(t, err)
	assert.False(t, decision.IsRecurring)
	assert.Zero(t, decision.MatchCount)
}

func TestIsRecurringRequiresSharedVenueOrOrganizer(t *testing.T) {
	base := time.Date(2026, 9, 3, 21, 0, 0, 0, time.UTC)
	store := &fakeStore{events: []*types.Event{
		occurrence("e1", "Trivia Night", "Twin Leaf Brewery", "", base),
		// Same title at a different venue with a different organizer is a
		// different series.
		occurrence("e2", "Trivia Night", "Burial Beer Co", "Burial", base.AddDate(0, 0, 7)),
	}}
	d := NewDetector(store, DefaultConfig())

	decision, err := d.IsRecurring(context.Background(), "Trivia Night", "Twin Leaf Brewery", "", "e1", base)
	require.NoError(t, err)
	assert.False(t, decision.IsRecurring)
}

func TestIsRecurringMatchesOnOrganizerAlone(t *testing.T) {
	base := time.Date(2026, 9, 3, 21, 0, 0, 0, time.UTC)
	store := &fakeStore{events: []*types.Event{
		occurrence("e1", "Sound Bath", "", "Asheville Wellness Collective", base),
		occurrence("e2", "Sound Bath", "", "Asheville Wellness Collective", base.AddDate(0, 0, 7)),
	}}
	d := NewDetector(store, DefaultConfig())

	decision, err := d.IsRecurring(context.Background(), "Sound Bath", "", "Asheville Wellness Collective", "e1", base)
	require.NoError(t, err)
	assert.True(t, decision.IsRecurring)
}

func TestIsRecurringTitleOnlyNeedsHigherBar(t *testing.T) {
	base := time.Date(2026, 9, 3, 21, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("two title-only appearances are not enough", func(t *testing.T) {
		store := &fakeStore{events: []*types.Event{
			occurrence("e1", "Open Mic", "", "", base),
			occurrence("e2", "Open Mic", "", "", base.AddDate(0, 0, 7)),
		}}
		d := NewDetector(store, DefaultConfig())
		decision, err := d.IsRecurring(ctx, "Open Mic", "", "", "e1", base)
		require.NoError(t, err)
		assert.False(t, decision.IsRecurring)
		assert.Equal(t, 1, decision.MatchCount)
	})

	t.Run("three title-only appearances qualify", func(t *testing.T) {
		store := &fakeStore{events: []*types.Event{
			occurrence("e1", "Open Mic", "", "", base),
			occurrence("e2", "Open Mic", "", "", base.AddDate(0, 0, 7)),
			occurrence("e3", "Open Mic", "", "", base.AddDate(0, 0, 14)),
		}}
		d := NewDetector(store, DefaultConfig())
		decision, err := d.IsRecurring(ctx, "Open Mic", "", "", "e1", base)
		require.NoError(t, err)
		assert.True(t, decision.IsRecurring)
		assert.Equal(t, 2, decision.MatchCount)
	})
}

func TestIsRecurringIgnoresOccurrencesOutsideWindow(t *testing.T) {
	base := time.Date(2026, 9, 3, 21, 0, 0, 0, time.UTC)
	store := &fakeStore{events: []*types.Event{
		occurrence("e1", "Harvest Festival", "Pack Square", "", base),
		// Last year's run is outside the window and must not count.
		occurrence("e2", "Harvest Festival", "Pack Square", "", base.AddDate(-1, 0, 0)),
	}}
	d := NewDetector(store, DefaultConfig())

	decision, err := d.IsRecurring(context.Background(), "Harvest Festival", "Pack Square", "", "e1", base)
	require.NoError(t, err)
	assert.False(t, decision.IsRecurring)
	assert.Zero(t, decision.MatchCount)
}

func TestIsRecurringNormalizesTitles(t *testing.T) {
	base := time.Date(2026, 9, 3, 21, 0, 0, 0, time.UTC)
	store := &fakeStore{events: []*types.Event{
		occurrence("e1", "Trivia  Night", "Twin Leaf Brewery", "", base),
		occurrence("e2", "TRIVIA NIGHT", "twin leaf brewery", "", base.AddDate(0, 0, 7)),
	}}
	d := NewDetector(store, DefaultConfig())

	decision, err := d.IsRecurring(context.Background(), "trivia night", "Twin Leaf Brewery", "", "e1", base)
	require.NoError(t, err)
	assert.True(t, decision.IsRecurring)
}

func TestIsRecurringEmptyTitle(t *testing.T) {
	d := NewDetector(&fakeStore{}, DefaultConfig())
	decision, err := d.IsRecurring(context.Background(), "  ", "loc", "org", "e1", time.Now())
	require.NoError(t, err)
	assert.False(t, decision.IsRecurring)
}
