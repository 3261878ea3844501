package payments

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dokanhq/dokan/internal/platform/db"
	"github.com/dokanhq/dokan/internal/settlement"
)

// Repository provides PostgreSQL backed persistence for payments.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type settlementOps = settlement.Tx

// txRepo composes the settlement and ledger transaction surfaces with the
// payment rows.
type txRepo struct {
	settlementOps
	tx pgx.Tx
}

// WithTx runs fn inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{settlementOps: settlement.NewTx(tx), tx: tx})
	})
}

// GetPayment loads one payment.
func (r *Repository) GetPayment(ctx context.Context, companyID, paymentID int64) (Payment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE company_id=$1 AND id=$2`, companyID, paymentID)
	return scanPayment(row)
}

// ListPayments lists payments newest first.
func (r *Repository) ListPayments(ctx context.Context, filter ListFilter) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+paymentColumns+` FROM payments
WHERE company_id=$1
  AND ($2::bigint = 0 OR party_id=$2)
  AND ($3::text = '' OR payment_type=$3)
  AND ($4::text = '' OR method=$4)
  AND ($5::text = '' OR status=$5)
  AND ($6::timestamptz IS NULL OR date >= $6)
  AND ($7::timestamptz IS NULL OR date <= $7)
ORDER BY date DESC, id DESC
LIMIT $8 OFFSET $9`,
		filter.CompanyID, filter.PartyID, string(filter.Type), string(filter.Method),
		string(filter.Status), nullTime(filter.From), nullTime(filter.To), filter.Limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	payments := []Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
