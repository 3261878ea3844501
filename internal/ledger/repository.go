package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dokanhq/dokan/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for ledger statements and
// standalone ledger transactions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx wraps the callback in a repeatable-read transaction exposing the
// transactional ledger operations.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, Tx) error) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTx(tx))
	})
}

// List returns company-scoped entries, newest first, for statement views.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Entry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT id, company_id, party_id, account, doc_type, doc_id, date, txn_id, txn_type, description, debit, credit, created_at
FROM ledger_entries
WHERE company_id=$1
  AND ($2::bigint = 0 OR party_id=$2)
  AND ($3::text = '' OR txn_type=$3)
  AND date BETWEEN COALESCE(NULLIF($4::timestamptz, '0001-01-01T00:00:00Z'), '-infinity') AND COALESCE(NULLIF($5::timestamptz, '0001-01-01T00:00:00Z'), 'infinity')
ORDER BY date DESC, id DESC
LIMIT $6 OFFSET $7`,
		filter.CompanyID, filter.PartyID, string(filter.TxnType), filter.From, filter.To, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := []Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var entry Entry
	var docType *string
	var docID *int64
	var account, txnType string
	var date, createdAt time.Time
	if err := row.Scan(&entry.ID, &entry.CompanyID, &entry.PartyID, &account, &docType, &docID,
		&date, &entry.TxnID, &txnType, &entry.Description, &entry.Debit, &entry.Credit, &createdAt); err != nil {
		return Entry{}, err
	}
	entry.Account = Account(account)
	entry.TxnType = TxnType(txnType)
	entry.Date = date
	entry.CreatedAt = createdAt
	if docType != nil && docID != nil {
		entry.Source = &SourceRef{DocType: DocType(*docType), DocID: *docID}
	}
	return entry, nil
}
