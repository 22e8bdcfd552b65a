package types

import "time"

// EventFilter selects a bounded page of events for a pipeline pass.
//
// The Missing* predicates implement the "needs work" queries: each pass
// fetches only rows still missing the field it produces, which is what makes
// reprocessing idempotent.
type EventFilter struct {
	MissingSummary   bool // summary/tags not yet generated
	MissingEmbedding bool // embedding not yet computed
	MissingScore     bool // quality score not yet assigned
	HasSummary       bool // summary must exist (embedding pass precondition)
	HasEmbedding     bool // embedding must exist (similarity/centroid queries)

	StartAfter  *time.Time // events starting at or after this instant
	StartBefore *time.Time // events starting before this instant
	ExcludeIDs  []string   // event IDs to omit

	OrderByStartTime bool // order by start_time ascending (default: created_at)
	Limit            int  // max rows to return (0 = backend default)
}
