package dedup

import "time"

// Config holds configuration for the deduplication engine.
type Config struct {
	// StartTimeRounding is the bucket size applied to start times when
	// building fingerprints, so listings that disagree by a few minutes
	// still collide. Default: 30 minutes.
	StartTimeRounding time.Duration

	// SemanticWindowDays is how many days ahead the semantic tier examines,
	// one model call per day. Default: 11.
	SemanticWindowDays int

	// MaxEventsPerDay caps how many events are sent to the model for a
	// single day. Days larger than this are truncated, not skipped.
	// Default: 60.
	MaxEventsPerDay int

	// MinEventsForSemantic is the minimum number of same-day events before
	// the model is consulted; a single event can't have a same-day
	// duplicate. Default: 2.
	MinEventsForSemantic int

	// MaxTokens is the completion budget for one semantic judgment.
	// Default: 2000.
	MaxTokens int

	// DryRun reports what both tiers would remove without deleting anything
	// or touching descriptions.
	DryRun bool
}

// DefaultConfig returns the default deduplication configuration.
func DefaultConfig() Config {
	return Config{
		StartTimeRounding:    30 * time.Minute,
		SemanticWindowDays:   11,
		MaxEventsPerDay:      60,
		MinEventsForSemantic: 2,
		MaxTokens:            2000,
	}
}

// Result reports what one dedup pass did. Per-day semantic failures are
// counted, not escalated; a failed day yields zero removals for that day.
type Result struct {
	FingerprintGroups  int      `json:"fingerprint_groups"`  // duplicate groups found by the fingerprint tier
	FingerprintRemoved int      `json:"fingerprint_removed"` // events deleted by the fingerprint tier
	SemanticRemoved    int      `json:"semantic_removed"`    // events deleted by the semantic tier
	DaysProcessed      int      `json:"days_processed"`      // days the semantic tier completed
	DaysFailed         int      `json:"days_failed"`         // days whose model call or parse failed
	TokensUsed         int64    `json:"tokens_used"`         // total model tokens across semantic calls
	Errors             []string `json:"errors,omitempty"`    // per-day error descriptions
}

// Removed returns total events removed across both tiers.
func (r *Result) Removed() int {
	return r.FingerprintRemoved + r.SemanticRemoved
}
