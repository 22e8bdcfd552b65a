// Package types defines the core domain types shared across the event
// pipeline: events, quality scores, user interaction signals, and taste
// profiles.
package types

import (
	"fmt"
	"strings"
	"time"
)

// EmbeddingDimensions is the fixed dimensionality of event embeddings.
// All stored vectors must have this length; comparing vectors of different
// lengths is a programmer error and fails loudly.
const EmbeddingDimensions = 1536

// Event represents a single scraped event as it moves through the pipeline.
//
// The identity (ID) is immutable. Content fields are filled in by successive
// idempotent pipeline passes: tagging/summarization, embedding, scoring.
// A nil Embedding means "not yet processed"; the same applies to a nil Score.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location,omitempty"`
	Organizer   string    `json:"organizer,omitempty"`
	Price       string    `json:"price,omitempty"`
	StartTime   time.Time `json:"start_time"`
	SourceURL   string    `json:"source_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Derived fields, nil/empty until the corresponding pass has run.
	Tags      []string     `json:"tags,omitempty"`
	Summary   string       `json:"summary,omitempty"`
	Embedding []float32    `json:"embedding,omitempty"`
	Score     *ScoreRecord `json:"score,omitempty"`
}

// ScoreRecord holds the multi-dimension quality score for an event.
//
// Total is the sum of the three primary dimensions (Rarity, Uniqueness,
// Magnitude), each 0-10. LocalFlavor and SocialAffordance (1-10) are computed
// for alternate rankings but deliberately excluded from Total.
type ScoreRecord struct {
	Total            int    `json:"total"`
	Rarity           int    `json:"rarity"`
	Uniqueness       int    `json:"uniqueness"`
	Magnitude        int    `json:"magnitude"`
	LocalFlavor      int    `json:"local_flavor"`
	SocialAffordance int    `json:"social_affordance"`
	Reason           string `json:"reason,omitempty"`
}

// Validate checks the score record's internal consistency.
func (s *ScoreRecord) Validate() error {
	for _, d := range []struct {
		name     string
		val      int
		min, max int
	}{
		{"rarity", s.Rarity, 0, 10},
		{"uniqueness", s.Uniqueness, 0, 10},
		{"magnitude", s.Magnitude, 0, 10},
		{"local_flavor", s.LocalFlavor, 1, 10},
		{"social_affordance", s.SocialAffordance, 1, 10},
	} {
		if d.val < d.min || d.val > d.max {
			return fmt.Errorf("%s out of range: %d (must be %d-%d)", d.name, d.val, d.min, d.max)
		}
	}
	if want := s.Rarity + s.Uniqueness + s.Magnitude; s.Total != want {
		return fmt.Errorf("total %d does not equal rarity+uniqueness+magnitude (%d)", s.Total, want)
	}
	return nil
}

// Validate checks that the event satisfies its field invariants:
// score is set iff all sub-dimensions are set (enforced via ScoreRecord),
// and an embedding may only exist once a summary does.
func (e *Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("event ID is required")
	}
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("event title is required")
	}
	if e.StartTime.IsZero() {
		return fmt.Errorf("event start time is required")
	}
	if e.Embedding != nil {
		if len(e.Embedding) != EmbeddingDimensions {
			return fmt.Errorf("embedding has %d dimensions, expected %d", len(e.Embedding), EmbeddingDimensions)
		}
		if e.Summary == "" {
			return fmt.Errorf("embedding set before summary")
		}
	}
	if e.Score != nil {
		if err := e.Score.Validate(); err != nil {
			return fmt.Errorf("invalid score: %w", err)
		}
	}
	return nil
}

// HasEmbedding reports whether the embedding pass has run for this event.
func (e *Event) HasEmbedding() bool {
	return len(e.Embedding) > 0
}

// NeedsEnrichment reports whether the tag/summary pass still has to run.
func (e *Event) NeedsEnrichment() bool {
	return e.Summary == "" || len(e.Tags) == 0
}
