package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/krungthon/corebank/internal/ledger"
)

// JournalEntry is one archived transaction row.
type JournalEntry struct {
	ID            int64           `json:"id"`
	AccountNumber string          `json:"account_number"`
	Kind          string          `json:"kind"`
	Origin        string          `json:"origin"`
	Amount        decimal.Decimal `json:"amount"`
	Delta         decimal.Decimal `json:"delta"`
	Balance       decimal.Decimal `json:"balance"`
	Rendered      string          `json:"rendered"`
	RecordedAt    time.Time       `json:"recorded_at"`
}

// ArchiveService journals every committed transaction to Postgres. The
// in-memory account history stays authoritative; the journal is the durable,
// queryable copy statements are built from.
type ArchiveService struct {
	db *sql.DB
}

func NewArchiveService(db *sql.DB) *ArchiveService {
	return &ArchiveService{db: db}
}

// Record appends one transaction to the journal.
func (s *ArchiveService) Record(ctx context.Context, accountNumber string, tx ledger.Transaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transaction_journal
			(account_number, kind, origin, amount, delta, balance, rendered, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		accountNumber, string(tx.Kind()), tx.Origin(),
		tx.Amount().String(), tx.Delta().String(), tx.Balance().String(),
		tx.String(), tx.Time())
	return err
}

// RecordPair journals both legs of a transfer atomically.
func (s *ArchiveService) RecordPair(ctx context.Context, srcNumber string, srcTx ledger.Transaction, dstNumber string, dstTx ledger.Transaction) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbTx.Rollback()

	const stmt = `
		INSERT INTO transaction_journal
			(account_number, kind, origin, amount, delta, balance, rendered, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if _, err := dbTx.ExecContext(ctx, stmt,
		srcNumber, string(srcTx.Kind()), srcTx.Origin(),
		srcTx.Amount().String(), srcTx.Delta().String(), srcTx.Balance().String(),
		srcTx.String(), srcTx.Time()); err != nil {
		return err
	}
	if _, err := dbTx.ExecContext(ctx, stmt,
		dstNumber, string(dstTx.Kind()), dstTx.Origin(),
		dstTx.Amount().String(), dstTx.Delta().String(), dstTx.Balance().String(),
		dstTx.String(), dstTx.Time()); err != nil {
		return err
	}

	return dbTx.Commit()
}

// History returns the journal rows for one account, oldest first.
func (s *ArchiveService) History(ctx context.Context, accountNumber string) ([]JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_number, kind, origin, amount, delta, balance, rendered, recorded_at
		FROM transaction_journal
		WHERE account_number = $1
		ORDER BY recorded_at, id`,
		accountNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []JournalEntry
	for rows.Next() {
		var e JournalEntry
		var amount, delta, balance string
		if err := rows.Scan(&e.ID, &e.AccountNumber, &e.Kind, &e.Origin,
			&amount, &delta, &balance, &e.Rendered, &e.RecordedAt); err != nil {
			return nil, err
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		if e.Delta, err = decimal.NewFromString(delta); err != nil {
			return nil, err
		}
		if e.Balance, err = decimal.NewFromString(balance); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
