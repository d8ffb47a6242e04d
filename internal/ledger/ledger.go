// Package ledger is the append-only record of evaluated transactions. It
// feeds the per-user history used by the amount rule, the velocity counter,
// and the audit log.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/anikabisht/Trace-Bank/internal/idgen"
	"github.com/anikabisht/Trace-Bank/internal/metrics"
)

// Capacity limits.
const (
	// MaxUserHistory caps per-user history; the oldest entry is evicted.
	MaxUserHistory = 50
	// MaxGlobalEntries caps the global sequence used for audit and velocity.
	MaxGlobalEntries = 1000
	// VelocityWindow is how many recent global entries velocity counts over.
	VelocityWindow = 100
)

// ErrNilEntry is returned when appending a nil entry.
var ErrNilEntry = errors.New("ledger: nil entry")

// Entry is one evaluated transaction. Entries are immutable once appended.
type Entry struct {
	ID               string    `json:"transaction_id"`
	UserID           string    `json:"user_id"`
	Amount           float64   `json:"amount"`
	Currency         string    `json:"currency"`
	MerchantCategory string    `json:"merchant_category"`
	Scenario         string    `json:"scenario"`
	RiskScore        float64   `json:"risk_score"`
	RiskLevel        string    `json:"risk_level"`
	Decision         string    `json:"decision"`
	Location         string    `json:"location"` // "City, Country"
	GPSEnabled       bool      `json:"gps_enabled"`
	DeviceID         string    `json:"device_id"`
	IPAddress        string    `json:"ip_address"`
	CreatedAt        time.Time `json:"created_at"`
}

// UserStats summarizes a user's history.
type UserStats struct {
	UserID        string  `json:"user_id"`
	Count         int     `json:"count"`
	AverageAmount float64 `json:"average_amount"`
	Approved      int     `json:"approved"`
	Declined      int     `json:"declined"`
	PendingReview int     `json:"pending_review"`
}

// Store persists entries. Implementations must return deep copies so
// callers cannot mutate stored state.
type Store interface {
	// Append stores the entry. The caller assigns ID and CreatedAt.
	Append(ctx context.Context, e *Entry) error
	// History returns the user's entries in insertion order. Unknown users
	// get an empty slice, not an error.
	History(ctx context.Context, userID string) ([]*Entry, error)
	// RecentGlobal returns up to n of the most recent entries, newest first.
	RecentGlobal(ctx context.Context, n int) ([]*Entry, error)
	// CountUserInRecent counts the user's entries among the most recent
	// window entries.
	CountUserInRecent(ctx context.Context, userID string, window int) (int, error)
}

// Ledger wraps a Store, assigning identifiers and timestamps and deriving
// statistics.
type Ledger struct {
	store Store
}

// New creates a ledger over the given store.
func New(store Store) *Ledger {
	return &Ledger{store: store}
}

// Record assigns the entry's ID and timestamp and appends it.
func (l *Ledger) Record(ctx context.Context, e *Entry) error {
	if e == nil {
		return ErrNilEntry
	}
	if e.ID == "" {
		e.ID = idgen.Transaction(e.UserID)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if err := l.store.Append(ctx, e); err != nil {
		return err
	}
	metrics.LedgerEntriesTotal.Inc()
	return nil
}

// History returns the user's entries in insertion order.
func (l *Ledger) History(ctx context.Context, userID string) ([]*Entry, error) {
	return l.store.History(ctx, userID)
}

// HistoryAmounts returns just the amounts from the user's history, oldest
// first, for the amount risk rule.
func (l *Ledger) HistoryAmounts(ctx context.Context, userID string) ([]float64, error) {
	entries, err := l.store.History(ctx, userID)
	if err != nil {
		return nil, err
	}
	amounts := make([]float64, len(entries))
	for i, e := range entries {
		amounts[i] = e.Amount
	}
	return amounts, nil
}

// Velocity counts the user's entries among the most recent VelocityWindow
// global entries.
func (l *Ledger) Velocity(ctx context.Context, userID string) (int, error) {
	return l.store.CountUserInRecent(ctx, userID, VelocityWindow)
}

// RecentGlobal returns up to n of the most recent entries, newest first.
func (l *Ledger) RecentGlobal(ctx context.Context, n int) ([]*Entry, error) {
	return l.store.RecentGlobal(ctx, n)
}

// Stats computes summary statistics over the user's history.
func (l *Ledger) Stats(ctx context.Context, userID string) (UserStats, error) {
	entries, err := l.store.History(ctx, userID)
	if err != nil {
		return UserStats{}, err
	}

	stats := UserStats{UserID: userID, Count: len(entries)}
	var sum float64
	for _, e := range entries {
		sum += e.Amount
		switch e.Decision {
		case "APPROVED":
			stats.Approved++
		case "DECLINED":
			stats.Declined++
		case "PENDING_REVIEW":
			stats.PendingReview++
		}
	}
	if stats.Count > 0 {
		stats.AverageAmount = sum / float64(stats.Count)
	}
	return stats, nil
}
