package types

import (
	"fmt"
	"time"
)

// SignalType identifies the kind of user interaction a signal records.
type SignalType string

const (
	// Positive signals.
	SignalFavorite    SignalType = "favorite"
	SignalCalendarAdd SignalType = "calendar_add"
	SignalShare       SignalType = "share"
	SignalViewSource  SignalType = "view_source"

	// SignalHide is the implicit negative signal.
	SignalHide SignalType = "hide"
)

// IsPositive reports whether the signal type contributes to the positive
// taste centroid. Everything that is not a hide is positive.
func (t SignalType) IsPositive() bool {
	return t != SignalHide
}

// Valid reports whether the signal type is one of the known kinds.
func (t SignalType) Valid() bool {
	switch t {
	case SignalFavorite, SignalCalendarAdd, SignalShare, SignalViewSource, SignalHide:
		return true
	}
	return false
}

// Signal is a timestamped, typed interaction between a user and an event.
//
// Signals are never hard-deleted; deactivation flips the Active flag. A signal
// older than the retention window is excluded from centroid computation
// regardless of Active.
type Signal struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	EventID   string     `json:"event_id"`
	Type      SignalType `json:"type"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
}

// Validate checks the signal's required fields.
func (s *Signal) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("signal ID is required")
	}
	if s.UserID == "" {
		return fmt.Errorf("signal user ID is required")
	}
	if s.EventID == "" {
		return fmt.Errorf("signal event ID is required")
	}
	if !s.Type.Valid() {
		return fmt.Errorf("unknown signal type: %q", s.Type)
	}
	return nil
}

// TasteProfile holds a user's cached taste centroids and the raw signals they
// were derived from.
//
// A cached centroid is valid only while now - CentroidUpdatedAt is below the
// freshness TTL; otherwise it must be recomputed from currently active,
// in-window signals before use.
type TasteProfile struct {
	UserID            string    `json:"user_id"`
	PositiveCentroid  []float32 `json:"positive_centroid,omitempty"`
	NegativeCentroid  []float32 `json:"negative_centroid,omitempty"`
	CentroidUpdatedAt time.Time `json:"centroid_updated_at"`

	PositiveSignals []*Signal `json:"positive_signals,omitempty"`
	NegativeSignals []*Signal `json:"negative_signals,omitempty"`
}

// Tier is a discrete personalization bucket derived from a continuous
// similarity score via fixed thresholds.
type Tier string

const (
	TierGreat Tier = "great"
	TierGood  Tier = "good"
	TierNone  Tier = ""
)
