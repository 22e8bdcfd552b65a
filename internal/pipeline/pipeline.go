// Package pipeline drives the enrichment, embedding, and scoring passes
// over the full event set in rate-limited chunks with per-item failure
// isolation. Each pass fetches bounded pages of a "needs work" predicate
// and repeats until the predicate returns no rows.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/MattB543/asheville-event-feed-sub002/internal/dedup"
	"github.com/MattB543/asheville-event-feed-sub002/internal/recurrence"
	"github.com/MattB543/asheville-event-feed-sub002/internal/similarity"
	"github.com/MattB543/asheville-event-feed-sub002/internal/storage"
	"github.com/MattB543/asheville-event-feed-sub002/internal/types"
)

// Config holds orchestrator configuration.
type Config struct {
	PageSize   int           // rows fetched per needs-work page (default: 200)
	ChunkSize  int           // concurrent items per chunk (default: 10)
	ChunkDelay time.Duration // pause between chunks for provider rate limits (default: 1s)
	PassBudget time.Duration // wall-clock budget per pass (default: 15m)
	MaxPages   int           // safety cap on pages per pass (default: 50)

	// Scoring context retrieval.
	SimilarLimit         int     // similar events fetched as scoring context (default: 5)
	SimilarMinSimilarity float64 // floor for scoring context (default: 0.78)
	SimilarWindowDays    int     // how far ahead to look for similar events (default: 60)
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		PageSize:             200,
		ChunkSize:            10,
		ChunkDelay:           time.Second,
		PassBudget:           15 * time.Minute,
		MaxPages:             50,
		SimilarLimit:         5,
		SimilarMinSimilarity: 0.78,
		SimilarWindowDays:    60,
	}
}

// PassStats is the small stats record every pass returns instead of
// throwing on partial failure.
type PassStats struct {
	Processed int           `json:"processed"`        // items attempted
	Succeeded int           `json:"succeeded"`        // items whose field was persisted
	Failed    int           `json:"failed"`           // transient failures, left for the next pass
	Fallback  int           `json:"fallback"`         // permanent failures persisted as placeholders
	Skipped   int           `json:"skipped"`          // items bypassed (e.g. recurring short-circuit)
	Truncated bool          `json:"truncated"`        // pass stopped on wall-clock budget
	Duration  time.Duration `json:"duration"`
	Errors    []string      `json:"errors,omitempty"`
}

// Embedder is the embedding capability the orchestrator needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EnrichService generates tags and a summary for one event.
type EnrichService interface {
	Enrich(ctx context.Context, event *types.Event) (tags []string, summary string, err error)
}

// ScoreService scores one event, with fixed values for recurring events and
// a documented fallback for permanently unscorable ones.
type ScoreService interface {
	Score(ctx context.Context, event *types.Event, similar []*types.Event) (*types.ScoreRecord, error)
	RecurringScore() *types.ScoreRecord
	FallbackScore(reason string) *types.ScoreRecord
}

// RecurrenceChecker gates scoring on recurrence detection.
type RecurrenceChecker interface {
	IsRecurring(ctx context.Context, title, location, organizer, excludeID string, startDate time.Time) (*recurrence.Decision, error)
}

// Searcher retrieves similar events as scoring context.
type Searcher interface {
	NearestToVector(ctx context.Context, vector []float32, opts similarity.SearchOptions) ([]similarity.Match, error)
}

// DedupRunner runs one full deduplication pass.
type DedupRunner interface {
	Run(ctx context.Context) (*dedup.Result, error)
}

// IsPermanent classifies an item error as unrecoverable for pipeline
// purposes: the item gets a persisted placeholder instead of re-entering
// the queue forever.
type IsPermanent func(error) bool

// Orchestrator wires the pipeline components together and drives the
// passes. Construct once at startup with concrete services.
type Orchestrator struct {
	store       storage.Storage
	dedup       DedupRunner
	enricher    EnrichService
	embedder    Embedder
	scorer      ScoreService
	recurrence  RecurrenceChecker
	searcher    Searcher
	isPermanent IsPermanent
	config      Config
	limiter     *rate.Limiter
	now         func() time.Time
}

// New creates an orchestrator.
func New(store storage.Storage, dedupEngine DedupRunner, enricher EnrichService,
	embedder Embedder, scorer ScoreService, detector RecurrenceChecker,
	searcher Searcher, isPermanent IsPermanent, cfg Config) *Orchestrator {
	if cfg.PageSize == 0 {
		cfg = DefaultConfig()
	}
	return &Orchestrator{
		store:       store,
		dedup:       dedupEngine,
		enricher:    enricher,
		embedder:    embedder,
		scorer:      scorer,
		recurrence:  detector,
		searcher:    searcher,
		isPermanent: isPermanent,
		config:      cfg,
		limiter:     rate.NewLimiter(rate.Every(cfg.ChunkDelay), 1),
		now:         time.Now,
	}
}

// RunDedupPass removes duplicates. It runs before the other passes so they
// do not waste model calls on rows about to be deleted.
func (o *Orchestrator) RunDedupPass(ctx context.Context) (*dedup.Result, error) {
	return o.dedup.Run(ctx)
}

// RunTagSummaryPass generates tags and summaries for events missing them.
func (o *Orchestrator) RunTagSummaryPass(ctx context.Context) (*PassStats, error) {
	return o.runPass(ctx, "tag_summary",
		types.EventFilter{MissingSummary: true},
		o.enrichOne)
}

// RunEmbeddingPass computes embeddings for events that have a summary but
// no vector yet. Embeddings must exist before scoring and before centroid
// computation.
func (o *Orchestrator) RunEmbeddingPass(ctx context.Context) (*PassStats, error) {
	return o.runPass(ctx, "embedding",
		types.EventFilter{MissingEmbedding: true, HasSummary: true},
		o.embedOne)
}

// RunScoringPass scores embedded events that have no score yet, using
// similar upcoming events as context and short-circuiting recurring ones.
func (o *Orchestrator) RunScoringPass(ctx context.Context) (*PassStats, error) {
	return o.runPass(ctx, "scoring",
		types.EventFilter{MissingScore: true, HasEmbedding: true},
		o.scoreOne)
}

// itemOutcome classifies one item's result within a chunk.
type itemOutcome int

const (
	outcomeSucceeded itemOutcome = iota
	outcomeFailed                // transient; row stays in the needs-work predicate
	outcomeFallback              // permanent; placeholder persisted
	outcomeSkipped
)

// runPass drives one needs-work predicate to empty: bounded pages, fixed
// concurrent chunks, a rate-limit pause between chunks, and a wall-clock
// budget that stops new chunks but drains in-flight ones.
func (o *Orchestrator) runPass(ctx context.Context, name string, filter types.EventFilter,
	processItem func(context.Context, *types.Event) (itemOutcome, error)) (*PassStats, error) {

	start := o.now()
	deadline := start.Add(o.config.PassBudget)
	stats := &PassStats{}
	filter.Limit = o.config.PageSize

	// Transiently-failed rows stay in the needs-work predicate, so later
	// page fetches would return them again. Excluding them keeps each item
	// to one attempt per pass; they wait for the next scheduled pass.
	attempted := filter.ExcludeIDs

	for page := 0; page < o.config.MaxPages; page++ {
		pageFilter := filter
		pageFilter.ExcludeIDs = attempted
		events, err := o.store.ListEvents(ctx, pageFilter)
		if err != nil {
			// Pass-level failure: the store is unreachable. Report upward;
			// per-item writes already committed stay committed.
			stats.Duration = o.now().Sub(start)
			return stats, fmt.Errorf("%s pass: page fetch failed: %w", name, err)
		}
		if len(events) == 0 {
			break
		}

		pageSucceeded := 0
		for chunkStart := 0; chunkStart < len(events); chunkStart += o.config.ChunkSize {
			if o.now().After(deadline) {
				stats.Truncated = true
				break
			}
			if err := o.limiter.Wait(ctx); err != nil {
				stats.Duration = o.now().Sub(start)
				return stats, fmt.Errorf("%s pass: %w", name, err)
			}

			chunkEnd := chunkStart + o.config.ChunkSize
			if chunkEnd > len(events) {
				chunkEnd = len(events)
			}
			chunk := events[chunkStart:chunkEnd]

			outcomes := make([]itemOutcome, len(chunk))
			errs := make([]error, len(chunk))

			// Items in a chunk run concurrently; each failure is caught at
			// the item boundary and never aborts its siblings.
			var g errgroup.Group
			for i, event := range chunk {
				i, event := i, event
				g.Go(func() error {
					outcomes[i], errs[i] = o.processWithRecover(ctx, processItem, event)
					return nil
				})
			}
			_ = g.Wait()

			for i := range chunk {
				stats.Processed++
				switch outcomes[i] {
				case outcomeSucceeded:
					stats.Succeeded++
					pageSucceeded++
				case outcomeFallback:
					stats.Fallback++
					pageSucceeded++
					stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", chunk[i].ID, errs[i]))
				case outcomeFailed:
					stats.Failed++
					attempted = append(attempted, chunk[i].ID)
					stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", chunk[i].ID, errs[i]))
				case outcomeSkipped:
					stats.Skipped++
					pageSucceeded++
				}
			}
		}

		if stats.Truncated {
			break
		}
		// A page where nothing left the predicate usually means the
		// provider is down; stop instead of burning through the backlog
		// one failure at a time.
		if pageSucceeded == 0 {
			break
		}
	}

	stats.Duration = o.now().Sub(start)
	fmt.Printf("%s pass: processed=%d succeeded=%d failed=%d fallback=%d skipped=%d truncated=%v duration=%v\n",
		name, stats.Processed, stats.Succeeded, stats.Failed, stats.Fallback, stats.Skipped,
		stats.Truncated, stats.Duration.Round(time.Millisecond))
	return stats, nil
}

// processWithRecover converts item panics into errors so a single bad row
// cannot take down its chunk.
func (o *Orchestrator) processWithRecover(ctx context.Context,
	processItem func(context.Context, *types.Event) (itemOutcome, error),
	event *types.Event) (outcome itemOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = outcomeFailed
			err = fmt.Errorf("panic processing %s: %v", event.ID, r)
		}
	}()
	return processItem(ctx, event)
}

// enrichOne generates and persists tags and a summary for one event.
func (o *Orchestrator) enrichOne(ctx context.Context, event *types.Event) (itemOutcome, error) {
	tags, summary, err := o.enricher.Enrich(ctx, event)
	if err != nil {
		if o.isPermanent != nil && o.isPermanent(err) {
			// Persist the sentinel so the row exits the needs-work
			// predicate instead of failing forever.
			tags, summary = sentinelEnrichment(event)
			if setErr := o.store.SetEnrichment(ctx, event.ID, tags, summary); setErr != nil {
				return outcomeFailed, setErr
			}
			return outcomeFallback, err
		}
		return outcomeFailed, err
	}
	if err := o.store.SetEnrichment(ctx, event.ID, tags, summary); err != nil {
		return outcomeFailed, err
	}
	return outcomeSucceeded, nil
}

// embedOne computes and persists the embedding for one event. Provider
// failure leaves the row pending; there is no placeholder vector.
func (o *Orchestrator) embedOne(ctx context.Context, event *types.Event) (itemOutcome, error) {
	text := buildEmbeddingText(event)
	vec, err := o.embedder.Embed(ctx, text)
	if err != nil || vec == nil {
		return outcomeFailed, fmt.Errorf("embed failed: %w", err)
	}
	if err := o.store.SetEmbedding(ctx, event.ID, vec); err != nil {
		return outcomeFailed, err
	}
	return outcomeSucceeded, nil
}

// scoreOne scores one event, short-circuiting recurring events with the
// fixed score and falling back to mid-scale on permanent failure.
func (o *Orchestrator) scoreOne(ctx context.Context, event *types.Event) (itemOutcome, error) {
	decision, err := o.recurrence.IsRecurring(ctx, event.Title, event.Location,
		event.Organizer, event.ID, event.StartTime)
	if err != nil {
		return outcomeFailed, fmt.Errorf("recurrence check failed: %w", err)
	}
	if decision.IsRecurring {
		if err := o.store.SetScore(ctx, event.ID, o.scorer.RecurringScore()); err != nil {
			return outcomeFailed, err
		}
		return outcomeSkipped, nil
	}

	similar, err := o.similarContext(ctx, event)
	if err != nil {
		return outcomeFailed, err
	}

	score, err := o.scorer.Score(ctx, event, similar)
	if err != nil || score == nil {
		if err == nil {
			err = fmt.Errorf("scorer returned no score")
		}
		if o.isPermanent != nil && o.isPermanent(err) {
			if setErr := o.store.SetScore(ctx, event.ID, o.scorer.FallbackScore(err.Error())); setErr != nil {
				return outcomeFailed, setErr
			}
			return outcomeFallback, err
		}
		return outcomeFailed, err
	}

	if err := o.store.SetScore(ctx, event.ID, score); err != nil {
		return outcomeFailed, err
	}
	return outcomeSucceeded, nil
}

// similarContext fetches similar upcoming events for rarity calibration.
func (o *Orchestrator) similarContext(ctx context.Context, event *types.Event) ([]*types.Event, error) {
	after := o.now()
	before := after.AddDate(0, 0, o.config.SimilarWindowDays)
	matches, err := o.searcher.NearestToVector(ctx, event.Embedding, similarity.SearchOptions{
		Limit:         o.config.SimilarLimit,
		MinSimilarity: o.config.SimilarMinSimilarity,
		ExcludeIDs:    []string{event.ID},
		After:         &after,
		Before:        &before,
	})
	if err != nil {
		return nil, fmt.Errorf("similar-context fetch failed: %w", err)
	}
	similar := make([]*types.Event, len(matches))
	for i, m := range matches {
		similar[i] = m.Event
	}
	return similar, nil
}
