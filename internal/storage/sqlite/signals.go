package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/MattB543/asheville-event-feed-sub002/internal/types"
)

// CreateSignal records a user interaction signal.
func (s *Store) CreateSignal(ctx context.Context, signal *types.Signal) error {
	if err := signal.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if signal.CreatedAt.IsZero() {
		signal.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO signals (id, user_id, event_id, type, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		signal.ID, signal.UserID, signal.EventID, string(signal.Type),
		boolToInt(signal.Active), signal.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert signal %s: %w", signal.ID, err)
	}
	return nil
}

// DeactivateSignal flips a signal's active flag off. Signals are never
// hard-deleted.
func (s *Store) DeactivateSignal(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE signals SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate signal %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("signal %s not found", id)
	}
	return nil
}

// GetSignalsByUser returns all of a user's signals, active or not, newest
// first. Retention filtering is the caller's concern.
func (s *Store) GetSignalsByUser(ctx context.Context, userID string) ([]*types.Signal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, event_id, type, active, created_at
		FROM signals WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list signals for %s: %w", userID, err)
	}
	defer rows.Close()

	var signals []*types.Signal
	for rows.Next() {
		var sig types.Signal
		var typ string
		var active int
		if err := rows.Scan(&sig.ID, &sig.UserID, &sig.EventID, &typ, &active, &sig.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		sig.Type = types.SignalType(typ)
		sig.Active = active != 0
		signals = append(signals, &sig)
	}
	return signals, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
