// Package taste personalizes the feed per user by collapsing interaction
// signals into two mean embedding vectors (positive and negative centroids)
// and scoring new events by vector arithmetic against them.
package taste

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MattB543/asheville-event-feed-sub002/internal/embedding"
	"github.com/MattB543/asheville-event-feed-sub002/internal/types"
)

// Config holds personalization configuration. The TTL and tier cutoffs are
// heuristic tuning targets; keep them configurable.
type Config struct {
	// RetentionWindow excludes signals older than this from centroid
	// computation regardless of their active flag. Default: 12 months.
	RetentionWindow time.Duration

	// CentroidTTL bounds how long a cached centroid may be served before a
	// synchronous recompute. Default: 1 hour.
	CentroidTTL time.Duration

	// GreatThreshold and GoodThreshold are the tier cutoffs. Scores at or
	// below GoodThreshold are not surfaced via personalization at all.
	// Defaults: 0.90 and 0.85.
	GreatThreshold float64
	GoodThreshold  float64
}

// DefaultConfig returns the default personalization configuration.
func DefaultConfig() Config {
	return Config{
		RetentionWindow: 365 * 24 * time.Hour,
		CentroidTTL:     time.Hour,
		GreatThreshold:  0.90,
		GoodThreshold:   0.85,
	}
}

// Store is the storage capability the engine needs.
type Store interface {
	GetEvent(ctx context.Context, id string) (*types.Event, error)
	GetSignalsByUser(ctx context.Context, userID string) ([]*types.Signal, error)
	CreateSignal(ctx context.Context, signal *types.Signal) error
	DeactivateSignal(ctx context.Context, id string) error
}

// Engine computes, caches, and applies per-user taste centroids.
type Engine struct {
	store  Store
	config Config
	now    func() time.Time

	mu    sync.Mutex
	cache map[string]*types.TasteProfile
}

// NewEngine creates a personalization engine.
func NewEngine(store Store, cfg Config) *Engine {
	if cfg.RetentionWindow == 0 {
		cfg = DefaultConfig()
	}
	return &Engine{
		store:  store,
		config: cfg,
		now:    time.Now,
		cache:  make(map[string]*types.TasteProfile),
	}
}

// GetCentroids returns the user's taste profile, recomputing synchronously
// when the cached copy is missing or stale. A partial or estimated read is
// never served.
func (e *Engine) GetCentroids(ctx context.Context, userID string) (*types.TasteProfile, error) {
	e.mu.Lock()
	cached, ok := e.cache[userID]
	e.mu.Unlock()

	if ok && e.now().Sub(cached.CentroidUpdatedAt) < e.config.CentroidTTL {
		return cached, nil
	}
	return e.recompute(ctx, userID)
}

// Invalidate drops the cached centroids for a user. Any mutation to the
// user's signal list must call this so the next read recomputes.
func (e *Engine) Invalidate(userID string) {
	e.mu.Lock()
	delete(e.cache, userID)
	e.mu.Unlock()
}

// RecordSignal stores a new interaction signal and invalidates the user's
// cached centroids.
func (e *Engine) RecordSignal(ctx context.Context, signal *types.Signal) error {
	if err := e.store.CreateSignal(ctx, signal); err != nil {
		return err
	}
	e.Invalidate(signal.UserID)
	return nil
}

// DeactivateSignal flips a signal inactive and invalidates the user's
// cached centroids.
func (e *Engine) DeactivateSignal(ctx context.Context, userID, signalID string) error {
	if err := e.store.DeactivateSignal(ctx, signalID); err != nil {
		return err
	}
	e.Invalidate(userID)
	return nil
}

// recompute rebuilds both centroids from currently active, in-window
// signals and refreshes the cache.
func (e *Engine) recompute(ctx context.Context, userID string) (*types.TasteProfile, error) {
	signals, err := e.store.GetSignalsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch signals for %s: %w", userID, err)
	}

	cutoff := e.now().Add(-e.config.RetentionWindow)
	profile := &types.TasteProfile{
		UserID:            userID,
		CentroidUpdatedAt: e.now(),
	}

	var posIDs, negIDs []string
	for _, sig := range signals {
		if !sig.Active || sig.CreatedAt.Before(cutoff) {
			continue
		}
		if sig.Type.IsPositive() {
			profile.PositiveSignals = append(profile.PositiveSignals, sig)
			posIDs = append(posIDs, sig.EventID)
		} else {
			profile.NegativeSignals = append(profile.NegativeSignals, sig)
			negIDs = append(negIDs, sig.EventID)
		}
	}

	if profile.PositiveCentroid, err = e.centroidOf(ctx, posIDs); err != nil {
		return nil, err
	}
	if profile.NegativeCentroid, err = e.centroidOf(ctx, negIDs); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[userID] = profile
	e.mu.Unlock()
	return profile, nil
}

// centroidOf computes the per-dimension arithmetic mean of the referenced
// events' embeddings, skipping events that have none. Returns nil when no
// embeddings are available.
func (e *Engine) centroidOf(ctx context.Context, eventIDs []string) ([]float32, error) {
	var sum []float64
	count := 0

	for _, id := range eventIDs {
		event, err := e.store.GetEvent(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch event %s: %w", id, err)
		}
		if event == nil || !event.HasEmbedding() {
			continue
		}
		if sum == nil {
			sum = make([]float64, len(event.Embedding))
		}
		if len(event.Embedding) != len(sum) {
			return nil, fmt.Errorf("event %s: %w: %d vs %d",
				id, embedding.ErrDimensionMismatch, len(event.Embedding), len(sum))
		}
		for i, v := range event.Embedding {
			sum[i] += float64(v)
		}
		count++
	}

	if count == 0 {
		return nil, nil
	}
	centroid := make([]float32, len(sum))
	for i, v := range sum {
		centroid[i] = float32(v / float64(count))
	}
	return centroid, nil
}

// Score computes the personalization score for an event embedding. With no
// positive centroid there is no personalization signal and the score is 0.
// With only a positive centroid the score is cosine similarity to it. With
// both, the score is positive similarity minus negative similarity: negative
// signals actively suppress, not merely fail to boost.
func Score(eventEmbedding, positive, negative []float32) (float64, error) {
	if len(positive) == 0 {
		return 0, nil
	}
	posSim, err := embedding.CosineSimilarity(eventEmbedding, positive)
	if err != nil {
		return 0, err
	}
	if len(negative) == 0 {
		return posSim, nil
	}
	negSim, err := embedding.CosineSimilarity(eventEmbedding, negative)
	if err != nil {
		return 0, err
	}
	return posSim - negSim, nil
}

// Tier buckets a personalization score. Events below the good threshold are
// not surfaced via personalization at all; the cutoff is hard, not a ranked
// tail.
func (e *Engine) Tier(score float64) types.Tier {
	switch {
	case score > e.config.GreatThreshold:
		return types.TierGreat
	case score > e.config.GoodThreshold:
		return types.TierGood
	default:
		return types.TierNone
	}
}

// ScoreEventForUser scores one event against a user's centroids and returns
// the score and tier. Absent centroids degrade to score 0 (neutral
// ranking), never an error.
func (e *Engine) ScoreEventForUser(ctx context.Context, userID string, event *types.Event) (float64, types.Tier, error) {
	if !event.HasEmbedding() {
		return 0, types.TierNone, nil
	}
	profile, err := e.GetCentroids(ctx, userID)
	if err != nil {
		return 0, types.TierNone, err
	}
	score, err := Score(event.Embedding, profile.PositiveCentroid, profile.NegativeCentroid)
	if err != nil {
		return 0, types.TierNone, err
	}
	return score, e.Tier(score), nil
}

// FindNearestLikedEvent returns the user's active positively-signaled event
// most similar to the target, for "why this was recommended" pointers. It
// has no effect on scoring. Returns (nil, 0, nil) when the user has no
// liked events with embeddings.
func (e *Engine) FindNearestLikedEvent(ctx context.Context, userID string, target *types.Event) (*types.Event, float64, error) {
	if !target.HasEmbedding() {
		return nil, 0, fmt.Errorf("target event %s has no embedding", target.ID)
	}

	profile, err := e.GetCentroids(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	var best *types.Event
	bestSim := -2.0
	for _, sig := range profile.PositiveSignals {
		liked, err := e.store.GetEvent(ctx, sig.EventID)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to fetch liked event %s: %w", sig.EventID, err)
		}
		if liked == nil || !liked.HasEmbedding() {
			continue
		}
		sim, err := embedding.CosineSimilarity(target.Embedding, liked.Embedding)
		if err != nil {
			return nil, 0, err
		}
		if sim > bestSim {
			best = liked
			bestSim = sim
		}
	}
	if best == nil {
		return nil, 0, nil
	}
	return best, bestSim, nil
}
