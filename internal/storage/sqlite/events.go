package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/MattB543/asheville-event-feed-sub002/internal/types"
)

const eventColumns = `id, title, description, location, organizer, price, start_time,
	source_url, tags, summary, embedding, score_total, score_rarity, score_uniqueness,
	score_magnitude, score_local_flavor, score_social_affordance, score_reason,
	created_at, updated_at`

// CreateEvent inserts an event. The insert is an idempotent upsert on ID:
// re-ingesting the same event is a no-op rather than an error, which lets
// scrapers replay their output safely.
func (s *Store) CreateEvent(ctx context.Context, event *types.Event) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now

	tagsJSON, err := marshalTags(event.Tags)
	if err != nil {
		return err
	}

	var scoreArgs [7]interface{}
	if event.Score != nil {
		sc := event.Score
		scoreArgs = [7]interface{}{sc.Total, sc.Rarity, sc.Uniqueness, sc.Magnitude, sc.LocalFlavor, sc.SocialAffordance, sc.Reason}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (id, title, description, location, organizer, price, start_time,
			source_url, tags, summary, embedding, score_total, score_rarity, score_uniqueness,
			score_magnitude, score_local_flavor, score_social_affordance, score_reason,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		event.ID, event.Title, event.Description, event.Location, event.Organizer,
		event.Price, event.StartTime.UTC(), event.SourceURL, tagsJSON, nullString(event.Summary),
		encodeEmbedding(event.Embedding),
		scoreArgs[0], scoreArgs[1], scoreArgs[2], scoreArgs[3], scoreArgs[4], scoreArgs[5], scoreArgs[6],
		event.CreatedAt, event.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert event %s: %w", event.ID, err)
	}
	return nil
}

// GetEvent fetches a single event by ID. Returns (nil, nil) if not found.
func (s *Store) GetEvent(ctx context.Context, id string) (*types.Event, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	event, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event %s: %w", id, err)
	}
	return event, nil
}

// ListEvents returns a bounded page of events matching the filter.
func (s *Store) ListEvents(ctx context.Context, filter types.EventFilter) ([]*types.Event, error) {
	var conds []string
	var args []interface{}

	if filter.MissingSummary {
		conds = append(conds, "(summary IS NULL OR tags IS NULL)")
	}
	if filter.MissingEmbedding {
		conds = append(conds, "embedding IS NULL")
	}
	if filter.MissingScore {
		conds = append(conds, "score_total IS NULL")
	}
	if filter.HasSummary {
		conds = append(conds, "summary IS NOT NULL")
	}
	if filter.HasEmbedding {
		conds = append(conds, "embedding IS NOT NULL")
	}
	if filter.StartAfter != nil {
		conds = append(conds, "start_time >= ?")
		args = append(args, filter.StartAfter.UTC())
	}
	if filter.StartBefore != nil {
		conds = append(conds, "start_time < ?")
		args = append(args, filter.StartBefore.UTC())
	}
	if len(filter.ExcludeIDs) > 0 {
		placeholders := strings.Repeat("?,", len(filter.ExcludeIDs))
		conds = append(conds, fmt.Sprintf("id NOT IN (%s)", placeholders[:len(placeholders)-1]))
		for _, id := range filter.ExcludeIDs {
			args = append(args, id)
		}
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if filter.OrderByStartTime {
		query += " ORDER BY start_time ASC"
	} else {
		query += " ORDER BY created_at ASC"
	}
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*types.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// DeleteEvents removes events by ID list and returns the number deleted.
func (s *Store) DeleteEvents(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM events WHERE id IN (%s)", placeholders[:len(placeholders)-1]), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// CountEvents returns the total number of events.
func (s *Store) CountEvents(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// SetEnrichment stores tags and summary only if the row is still missing them.
// The set-if-null guard keeps concurrent passes idempotent.
func (s *Store) SetEnrichment(ctx context.Context, id string, tags []string, summary string) error {
	tagsJSON, err := marshalTags(tags)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE events SET tags = ?, summary = ?, updated_at = ?
		WHERE id = ? AND (summary IS NULL OR tags IS NULL)`,
		tagsJSON, summary, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set enrichment for %s: %w", id, err)
	}
	return nil
}

// SetEmbedding stores the embedding only if the row does not have one yet.
func (s *Store) SetEmbedding(ctx context.Context, id string, embedding []float32) error {
	if len(embedding) != types.EmbeddingDimensions {
		return fmt.Errorf("embedding has %d dimensions, expected %d", len(embedding), types.EmbeddingDimensions)
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE events SET embedding = ?, updated_at = ?
		WHERE id = ? AND embedding IS NULL`,
		encodeEmbedding(embedding), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set embedding for %s: %w", id, err)
	}
	return nil
}

// SetScore stores the score record only if the row is unscored.
func (s *Store) SetScore(ctx context.Context, id string, score *types.ScoreRecord) error {
	if err := score.Validate(); err != nil {
		return fmt.Errorf("invalid score for %s: %w", id, err)
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE events SET score_total = ?, score_rarity = ?, score_uniqueness = ?,
			score_magnitude = ?, score_local_flavor = ?, score_social_affordance = ?,
			score_reason = ?, updated_at = ?
		WHERE id = ? AND score_total IS NULL`,
		score.Total, score.Rarity, score.Uniqueness, score.Magnitude,
		score.LocalFlavor, score.SocialAffordance, score.Reason, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set score for %s: %w", id, err)
	}
	return nil
}

// UpdateDescription overwrites the description unconditionally.
func (s *Store) UpdateDescription(ctx context.Context, id string, description string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE events SET description = ?, updated_at = ? WHERE id = ?`,
		description, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update description for %s: %w", id, err)
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanEvent.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row scanner) (*types.Event, error) {
	var e types.Event
	var tagsJSON, summary, reason sql.NullString
	var embedding []byte
	var total, rarity, uniq, mag, flavor, social sql.NullInt64

	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Location, &e.Organizer,
		&e.Price, &e.StartTime, &e.SourceURL, &tagsJSON, &summary, &embedding,
		&total, &rarity, &uniq, &mag, &flavor, &social, &reason,
		&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &e.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags for %s: %w", e.ID, err)
		}
	}
	if summary.Valid {
		e.Summary = summary.String
	}
	if e.Embedding, err = decodeEmbedding(embedding); err != nil {
		return nil, fmt.Errorf("failed to decode embedding for %s: %w", e.ID, err)
	}
	if total.Valid {
		e.Score = &types.ScoreRecord{
			Total:            int(total.Int64),
			Rarity:           int(rarity.Int64),
			Uniqueness:       int(uniq.Int64),
			Magnitude:        int(mag.Int64),
			LocalFlavor:      int(flavor.Int64),
			SocialAffordance: int(social.Int64),
			Reason:           reason.String,
		}
	}
	return &e, nil
}

func marshalTags(tags []string) (interface{}, error) {
	if tags == nil {
		return nil, nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tags: %w", err)
	}
	return string(data), nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
