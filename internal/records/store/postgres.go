package store

import (
	"context"
	"database/sql"
	"fmt"

	"pacwatch/internal/records"
)

// PostgresStore keeps ledger rows in a table instead of a CSV object.
// Save replaces the full row set in one transaction, which preserves the
// whole-ledger read/write contract the object backends have: a reader in
// another process sees either the old ledger or the new one, never a mix.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const createLedgerTable = `
CREATE TABLE IF NOT EXISTS independent_expenditures (
	cmteid   TEXT NOT NULL,
	pacshort TEXT NOT NULL,
	suppopp  TEXT NOT NULL,
	candname TEXT NOT NULL,
	district TEXT NOT NULL,
	amount   NUMERIC NOT NULL,
	note     TEXT NOT NULL,
	party    TEXT NOT NULL,
	payee    TEXT NOT NULL,
	date     DATE NOT NULL,
	origin   TEXT NOT NULL,
	source   TEXT NOT NULL,
	seen_at  TIMESTAMPTZ
)`

// EnsureSchema creates the ledger table when it is missing.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, createLedgerTable); err != nil {
		return fmt.Errorf("ensure ledger table: %w", err)
	}
	return nil
}

func (p *PostgresStore) Load(ctx context.Context) ([]records.Expenditure, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT cmteid, pacshort, suppopp, candname, district, amount,
		       note, party, payee, date, origin, source, seen_at
		FROM independent_expenditures
		ORDER BY date, seen_at, pacshort`)
	if err != nil {
		return nil, fmt.Errorf("load ledger rows: %w", err)
	}
	defer rows.Close()

	var ledger []records.Expenditure
	for rows.Next() {
		var e records.Expenditure
		var seenAt sql.NullTime
		if err := rows.Scan(
			&e.CommitteeID, &e.PAC, &e.Stance, &e.Candidate, &e.District,
			&e.Amount, &e.Note, &e.Party, &e.Payee, &e.Date,
			&e.Origin, &e.Source, &seenAt,
		); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		if seenAt.Valid {
			e.SeenAt = seenAt.Time
		}
		ledger = append(ledger, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load ledger rows: %w", err)
	}
	return ledger, nil
}

func (p *PostgresStore) Save(ctx context.Context, ledger []records.Expenditure) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM independent_expenditures`); err != nil {
		return fmt.Errorf("clear ledger rows: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO independent_expenditures
			(cmteid, pacshort, suppopp, candname, district, amount,
			 note, party, payee, date, origin, source, seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`)
	if err != nil {
		return fmt.Errorf("prepare ledger insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range ledger {
		seenAt := sql.NullTime{Time: e.SeenAt, Valid: !e.SeenAt.IsZero()}
		if _, err := stmt.ExecContext(ctx,
			e.CommitteeID, e.PAC, e.Stance, e.Candidate, e.District,
			e.Amount, e.Note, e.Party, e.Payee, e.Date,
			e.Origin, e.Source, seenAt,
		); err != nil {
			return fmt.Errorf("insert ledger row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger save: %w", err)
	}
	return nil
}
