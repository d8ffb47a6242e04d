package ledger

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore implements Store on a transactions table. The FIFO caps are
// enforced at read time: History and RecentGlobal return the newest rows
// within the cap instead of deleting older ones.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed ledger store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the transactions table. cmd/migrate via goose is the
// normal path; this covers fresh development databases.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS transactions (
			id                VARCHAR(16) PRIMARY KEY,
			user_id           VARCHAR(64) NOT NULL,
			amount            NUMERIC(20,2) NOT NULL,
			currency          VARCHAR(8) NOT NULL,
			merchant_category VARCHAR(64) NOT NULL,
			scenario          VARCHAR(32) NOT NULL,
			risk_score        NUMERIC(5,1) NOT NULL,
			risk_level        VARCHAR(32) NOT NULL,
			decision          VARCHAR(20) NOT NULL,
			location          VARCHAR(128) NOT NULL,
			gps_enabled       BOOLEAN NOT NULL DEFAULT FALSE,
			device_id         VARCHAR(64) NOT NULL,
			ip_address        VARCHAR(64) NOT NULL,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id, created_at);
		CREATE INDEX IF NOT EXISTS idx_transactions_created ON transactions(created_at DESC);
	`)
	return err
}

// Append inserts the entry.
func (p *PostgresStore) Append(ctx context.Context, e *Entry) error {
	if e == nil {
		return ErrNilEntry
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO transactions
			(id, user_id, amount, currency, merchant_category, scenario,
			 risk_score, risk_level, decision, location, gps_enabled,
			 device_id, ip_address, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, e.ID, e.UserID, e.Amount, e.Currency, e.MerchantCategory, e.Scenario,
		e.RiskScore, e.RiskLevel, e.Decision, e.Location, e.GPSEnabled,
		e.DeviceID, e.IPAddress, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// History returns the user's newest MaxUserHistory entries in insertion
// order.
func (p *PostgresStore) History(ctx context.Context, userID string) ([]*Entry, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, amount, currency, merchant_category, scenario,
		       risk_score, risk_level, decision, location, gps_enabled,
		       device_id, ip_address, created_at
		FROM (
			SELECT * FROM transactions
			WHERE user_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC, id ASC
	`, userID, MaxUserHistory)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanEntries(rows)
}

// RecentGlobal returns up to n recent entries, newest first, within the
// global cap.
func (p *PostgresStore) RecentGlobal(ctx context.Context, n int) ([]*Entry, error) {
	if n > MaxGlobalEntries {
		n = MaxGlobalEntries
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, amount, currency, merchant_category, scenario,
		       risk_score, risk_level, decision, location, gps_enabled,
		       device_id, ip_address, created_at
		FROM transactions
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, n)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanEntries(rows)
}

// CountUserInRecent counts the user's entries among the most recent window
// entries.
func (p *PostgresStore) CountUserInRecent(ctx context.Context, userID string, window int) (int, error) {
	var count int
	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM (
			SELECT user_id FROM transactions
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) recent
		WHERE user_id = $1
	`, userID, window).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count recent: %w", err)
	}
	return count, nil
}

func scanEntries(rows *sql.Rows) ([]*Entry, error) {
	out := []*Entry{}
	for rows.Next() {
		e := &Entry{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Currency,
			&e.MerchantCategory, &e.Scenario, &e.RiskScore, &e.RiskLevel,
			&e.Decision, &e.Location, &e.GPSEnabled, &e.DeviceID,
			&e.IPAddress, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
