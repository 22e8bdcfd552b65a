// Package dedup removes duplicate event listings in two tiers: a cheap
// deterministic fingerprint tier that catches most duplicates, then an
// LLM-assisted semantic tier for near-duplicates that differ in text but not
// in eventhood.
//
// The engine is stateless between passes; every run recomputes from the full
// table. The fingerprint tier is pure computation and never fails; semantic
// failures are per-day and logged, not escalated.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/MattB543/asheville-event-feed-sub002/internal/llm"
	"github.com/MattB543/asheville-event-feed-sub002/internal/types"
)

// Store is the storage capability the engine needs.
type Store interface {
	ListEvents(ctx context.Context, filter types.EventFilter) ([]*types.Event, error)
	DeleteEvents(ctx context.Context, ids []string) (int, error)
	UpdateDescription(ctx context.Context, id string, description string) error
}

// ModelClient is the chat-model capability the semantic tier needs.
type ModelClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt, operation, model string, maxTokens int) (*llm.Result, error)
}

// Engine runs deduplication passes over the event table.
type Engine struct {
	store  Store
	llm    ModelClient
	config Config
	now    func() time.Time
}

// NewEngine creates a deduplication engine.
func NewEngine(store Store, client ModelClient, cfg Config) *Engine {
	if cfg.StartTimeRounding == 0 {
		cfg = DefaultConfig()
	}
	return &Engine{
		store:  store,
		llm:    client,
		config: cfg,
		now:    time.Now,
	}
}

// Run executes one full dedup pass: fingerprint tier first (cheap, catches
// most duplicates), then the semantic tier over the rolling window.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	result := &Result{}

	if err := e.runFingerprintTier(ctx, result); err != nil {
		// Store-level failure; propagate. Partial per-row deletes that
		// already committed stay committed.
		return result, err
	}

	e.runSemanticTier(ctx, result)
	return result, nil
}

// runFingerprintTier groups the full table by fingerprint and collapses each
// group onto its earliest-created survivor, merging the longest description
// in before deleting the rest.
func (e *Engine) runFingerprintTier(ctx context.Context, result *Result) error {
	events, err := e.store.ListEvents(ctx, types.EventFilter{})
	if err != nil {
		return fmt.Errorf("fingerprint tier: failed to fetch events: %w", err)
	}

	groups := GroupByFingerprint(events, e.config.StartTimeRounding)
	result.FingerprintGroups = len(groups)

	for _, group := range groups {
		if e.config.DryRun {
			result.FingerprintRemoved += len(group.Remove)
			continue
		}
		if group.MergedDescription != group.Survivor.Description {
			if err := e.store.UpdateDescription(ctx, group.Survivor.ID, group.MergedDescription); err != nil {
				return fmt.Errorf("fingerprint tier: failed to merge description into %s: %w", group.Survivor.ID, err)
			}
		}

		ids := make([]string, len(group.Remove))
		for i, ev := range group.Remove {
			ids[i] = ev.ID
		}
		removed, err := e.store.DeleteEvents(ctx, ids)
		if err != nil {
			return fmt.Errorf("fingerprint tier: failed to delete duplicates of %s: %w", group.Survivor.ID, err)
		}
		result.FingerprintRemoved += removed
	}
	return nil
}

// runSemanticTier walks the rolling window one day at a time and asks the
// model for same-occurrence duplicates. A failed day yields zero removals
// for that day, never a pass abort.
func (e *Engine) runSemanticTier(ctx context.Context, result *Result) {
	today := e.now().UTC().Truncate(24 * time.Hour)

	for i := 0; i < e.config.SemanticWindowDays; i++ {
		dayStart := today.AddDate(0, 0, i)
		dayEnd := dayStart.AddDate(0, 0, 1)
		day := dayStart.Format("2006-01-02")

		events, err := e.store.ListEvents(ctx, types.EventFilter{
			StartAfter:       &dayStart,
			StartBefore:      &dayEnd,
			OrderByStartTime: true,
		})
		if err != nil {
			result.DaysFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: fetch failed: %v", day, err))
			continue
		}
		if len(events) < e.config.MinEventsForSemantic {
			result.DaysProcessed++
			continue
		}
		if len(events) > e.config.MaxEventsPerDay {
			events = events[:e.config.MaxEventsPerDay]
		}

		removeIDs, tokens, err := e.judgeDay(ctx, day, events)
		result.TokensUsed += tokens
		if err != nil {
			result.DaysFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", day, err))
			continue
		}

		if e.config.DryRun {
			result.SemanticRemoved += len(removeIDs)
			result.DaysProcessed++
			continue
		}
		if len(removeIDs) > 0 {
			removed, err := e.store.DeleteEvents(ctx, removeIDs)
			if err != nil {
				result.DaysFailed++
				result.Errors = append(result.Errors, fmt.Sprintf("%s: delete failed: %v", day, err))
				continue
			}
			result.SemanticRemoved += removed
		}
		result.DaysProcessed++
	}
}
