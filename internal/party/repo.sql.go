package party

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dokanhq/dokan/internal/ledger"
	"github.com/dokanhq/dokan/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for parties.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// txRepo composes the ledger operations with party-row access so balance
// work runs in one transaction.
type txRepo struct {
	ledger.Tx
	tx pgx.Tx
}

// WithTx runs fn inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{Tx: ledger.NewTx(tx), tx: tx})
	})
}

const partyColumns = `id, company_id, name, phone, email, address, is_customer, is_supplier, opening_balance, balance, is_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParty(row rowScanner) (Party, error) {
	var p Party
	err := row.Scan(&p.ID, &p.CompanyID, &p.Name, &p.Phone, &p.Email, &p.Address,
		&p.IsCustomer, &p.IsSupplier, &p.OpeningBalance, &p.Balance, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Party{}, ErrNotFound
	}
	if err != nil {
		return Party{}, err
	}
	return p, nil
}

func (r *Repository) Create(ctx context.Context, p Party) (Party, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO parties
  (company_id, name, phone, email, address, is_customer, is_supplier, opening_balance, balance, is_active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
RETURNING id`,
		p.CompanyID, p.Name, p.Phone, p.Email, p.Address, p.IsCustomer, p.IsSupplier,
		p.OpeningBalance, p.Balance, p.IsActive, p.CreatedAt, p.UpdatedAt).Scan(&p.ID)
	if err != nil {
		return Party{}, err
	}
	return p, nil
}

func (r *Repository) Update(ctx context.Context, p Party) (Party, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE parties
SET name=$3, phone=$4, email=$5, address=$6, is_customer=$7, is_supplier=$8, is_active=$9, updated_at=$10
WHERE company_id=$1 AND id=$2`,
		p.CompanyID, p.ID, p.Name, p.Phone, p.Email, p.Address, p.IsCustomer, p.IsSupplier, p.IsActive, p.UpdatedAt)
	if err != nil {
		return Party{}, err
	}
	if tag.RowsAffected() == 0 {
		return Party{}, ErrNotFound
	}
	return p, nil
}

func (r *Repository) Get(ctx context.Context, companyID, partyID int64) (Party, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+partyColumns+` FROM parties WHERE company_id=$1 AND id=$2`, companyID, partyID)
	return scanParty(row)
}

func (r *Repository) List(ctx context.Context, companyID int64, role string, limit, offset int) ([]Party, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+partyColumns+` FROM parties
WHERE company_id=$1
  AND ($2 = '' OR ($2 = 'customer' AND is_customer) OR ($2 = 'supplier' AND is_supplier))
ORDER BY name
LIMIT $3 OFFSET $4`, companyID, role, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	parties := []Party{}
	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, err
		}
		parties = append(parties, p)
	}
	return parties, rows.Err()
}

func (t *txRepo) GetParty(ctx context.Context, companyID, partyID int64) (Party, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+partyColumns+` FROM parties WHERE company_id=$1 AND id=$2 FOR UPDATE`, companyID, partyID)
	return scanParty(row)
}

func (t *txRepo) SetOpeningBalance(ctx context.Context, companyID, partyID int64, amount decimal.Decimal) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE parties SET opening_balance=$3, updated_at=NOW() WHERE company_id=$1 AND id=$2`,
		companyID, partyID, amount)
	return err
}
