package sales

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dokanhq/dokan/internal/platform/db"
	"github.com/dokanhq/dokan/internal/settlement"
	"github.com/dokanhq/dokan/internal/stock"
)

// Repository provides PostgreSQL backed persistence for sales documents.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type settlementOps = settlement.Tx

type stockOps = stock.Tx

// txRepo composes the settlement, ledger and stock transaction surfaces with
// the sales document rows.
type txRepo struct {
	settlementOps
	stockOps
	tx pgx.Tx
}

// WithTx runs fn inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{settlementOps: settlement.NewTx(tx), stockOps: stock.NewTx(tx), tx: tx})
	})
}

// GetOrder loads one order with its items.
func (r *Repository) GetOrder(ctx context.Context, companyID, orderID int64) (Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM sales_orders WHERE company_id=$1 AND id=$2`, companyID, orderID)
	order, err := scanOrder(row)
	if err != nil {
		return Order{}, err
	}
	order.Items, err = queryItems(ctx, r.pool, "sales_order_items", "order_id", order.ID)
	if err != nil {
		return Order{}, err
	}
	return order, nil
}

// ListOrders lists orders without items, newest first.
func (r *Repository) ListOrders(ctx context.Context, filter ListFilter) ([]Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM sales_orders
WHERE company_id=$1
  AND ($2::bigint = 0 OR party_id=$2)
  AND ($3::text = '' OR status=$3)
  AND ($4::text = '' OR payment_status=$4)
ORDER BY invoice_date DESC, id DESC
LIMIT $5 OFFSET $6`,
		filter.CompanyID, filter.PartyID, string(filter.Status), string(filter.PaymentStatus), filter.Limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	orders := []Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// GetReturn loads one return with its items.
func (r *Repository) GetReturn(ctx context.Context, companyID, returnID int64) (Return, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+returnColumns+` FROM sales_returns WHERE company_id=$1 AND id=$2`, companyID, returnID)
	ret, err := scanReturn(row)
	if err != nil {
		return Return{}, err
	}
	ret.Items, err = queryItems(ctx, r.pool, "sales_return_items", "return_id", ret.ID)
	if err != nil {
		return Return{}, err
	}
	return ret, nil
}

// ListReturns lists returns, optionally for one order.
func (r *Repository) ListReturns(ctx context.Context, companyID, orderID int64, limit, offset int) ([]Return, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+returnColumns+` FROM sales_returns
WHERE company_id=$1 AND ($2::bigint = 0 OR sales_order_id=$2)
ORDER BY return_date DESC, id DESC
LIMIT $3 OFFSET $4`, companyID, orderID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	returns := []Return{}
	for rows.Next() {
		ret, err := scanReturn(rows)
		if err != nil {
			return nil, err
		}
		returns = append(returns, ret)
	}
	return returns, rows.Err()
}
