// Package recurrence classifies events as daily/weekly recurring by looking
// for repeated title+venue/organizer occurrences in a window around the
// event's start date.
//
// The detector exists purely as a cost-control gate: recurring events get a
// fixed low score without ever reaching the expensive model-backed scorer.
package recurrence

import (
	"context"
	"fmt"
	"time"

	"github.com/MattB543/asheville-event-feed-sub002/internal/dedup"
	"github.com/MattB543/asheville-event-feed-sub002/internal/types"
)

// Config holds detector configuration. The occurrence thresholds are
// heuristic constants with no derivation beyond tuning; keep them here
// rather than hardcoded at call sites.
type Config struct {
	// WindowBefore/WindowAfter bound the search window around the event's
	// start date. Defaults: 4 weeks before, 8 weeks after.
	WindowBefore time.Duration
	WindowAfter  time.Duration

	// MinOccurrences is how many occurrences (including the event itself)
	// mark a series as recurring when a location or organizer is known.
	// Default: 2.
	MinOccurrences int

	// MinOccurrencesTitleOnly applies when neither location nor organizer
	// is known; title-only matching is weak, so the bar is higher.
	// Default: 3.
	MinOccurrencesTitleOnly int
}

// DefaultConfig returns the default detector configuration.
func DefaultConfig() Config {
	return Config{
		WindowBefore:            4 * 7 * 24 * time.Hour,
		WindowAfter:             8 * 7 * 24 * time.Hour,
		MinOccurrences:          2,
		MinOccurrencesTitleOnly: 3,
	}
}

// Decision is the outcome of a recurrence check. MatchCount counts other
// occurrences in the window, excluding the queried event itself.
type Decision struct {
	IsRecurring bool `json:"is_recurring"`
	MatchCount  int  `json:"match_count"`
}

// Store is the storage capability the detector needs.
type Store interface {
	ListEvents(ctx context.Context, filter types.EventFilter) ([]*types.Event, error)
}

// Detector decides whether an event is part of a recurring series.
type Detector struct {
	store  Store
	config Config
}

// NewDetector creates a recurrence detector.
func NewDetector(store Store, cfg Config) *Detector {
	if cfg.MinOccurrences == 0 {
		cfg = DefaultConfig()
	}
	return &Detector{store: store, config: cfg}
}

// IsRecurring searches the window around startDate for other events sharing
// the normalized title and the same location or organizer. excludeID keeps
// the event from matching itself.
func (d *Detector) IsRecurring(ctx context.Context, title, location, organizer, excludeID string, startDate time.Time) (*Decision, error) {
	normTitle := dedup.NormalizeText(title)
	if normTitle == "" {
		return &Decision{}, nil
	}
	normLocation := dedup.NormalizeText(location)
	normOrganizer := dedup.NormalizeText(organizer)

	after := startDate.Add(-d.config.WindowBefore)
	before := startDate.Add(d.config.WindowAfter)

	var exclude []string
	if excludeID != "" {
		exclude = []string{excludeID}
	}
	candidates, err := d.store.ListEvents(ctx, types.EventFilter{
		StartAfter:  &after,
		StartBefore: &before,
		ExcludeIDs:  exclude,
	})
	if err != nil {
		return nil, fmt.Errorf("recurrence window fetch failed: %w", err)
	}

	titleOnly := normLocation == "" && normOrganizer == ""

	matches := 0
	for _, cand := range candidates {
		if dedup.NormalizeText(cand.Title) != normTitle {
			continue
		}
		if titleOnly {
			matches++
			continue
		}
		// Attributed match: same venue or same organizer.
		if (normLocation != "" && dedup.NormalizeText(cand.Location) == normLocation) ||
			(normOrganizer != "" && dedup.NormalizeText(cand.Organizer) == normOrganizer) {
			matches++
		}
	}

	threshold := d.config.MinOccurrences
	if titleOnly {
		threshold = d.config.MinOccurrencesTitleOnly
	}

	// matches excludes the event itself; thresholds count occurrences.
	return &Decision{
		IsRecurring: matches+1 >= threshold,
		MatchCount:  matches,
	}, nil
}
