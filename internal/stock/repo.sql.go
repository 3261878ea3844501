package stock

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/dokanhq/dokan/internal/catalog"
)

// pgxTx implements Tx on a live pgx transaction.
type pgxTx struct {
	tx pgx.Tx
}

// NewTx adapts a pgx transaction to the stock Tx interface.
func NewTx(tx pgx.Tx) Tx {
	return &pgxTx{tx: tx}
}

func (t *pgxTx) GetProduct(ctx context.Context, companyID, productID int64) (catalog.Product, error) {
	var p catalog.Product
	err := t.tx.QueryRow(ctx, `SELECT id, company_id, name, sku, unit_id, purchase_price, selling_price, track_stock, is_active, created_at, updated_at
FROM products WHERE company_id=$1 AND id=$2`, companyID, productID).
		Scan(&p.ID, &p.CompanyID, &p.Name, &p.SKU, &p.UnitID, &p.PurchasePrice,
			&p.SellingPrice, &p.TrackStock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	if err != nil {
		return catalog.Product{}, err
	}
	return p, nil
}

func (t *pgxTx) GetUnit(ctx context.Context, companyID, unitID int64) (catalog.Unit, error) {
	var u catalog.Unit
	err := t.tx.QueryRow(ctx, `SELECT id, company_id, name, symbol, base_unit_id, conversion_factor, created_at
FROM units WHERE company_id=$1 AND id=$2`, companyID, unitID).
		Scan(&u.ID, &u.CompanyID, &u.Name, &u.Symbol, &u.BaseUnitID, &u.ConversionFactor, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Unit{}, catalog.ErrUnitNotFound
	}
	if err != nil {
		return catalog.Unit{}, err
	}
	return u, nil
}

// LockLevel locks the product's level row, creating a zero row first if the
// product has never moved.
func (t *pgxTx) LockLevel(ctx context.Context, companyID, productID int64) (decimal.Decimal, error) {
	if _, err := t.tx.Exec(ctx,
		`INSERT INTO stock_levels (company_id, product_id, quantity, updated_at) VALUES ($1,$2,0,NOW())
ON CONFLICT (company_id, product_id) DO NOTHING`,
		companyID, productID); err != nil {
		return decimal.Zero, err
	}
	var qty decimal.Decimal
	err := t.tx.QueryRow(ctx,
		`SELECT quantity FROM stock_levels WHERE company_id=$1 AND product_id=$2 FOR UPDATE`,
		companyID, productID).Scan(&qty)
	return qty, err
}

func (t *pgxTx) SetLevel(ctx context.Context, companyID, productID int64, qty decimal.Decimal) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE stock_levels SET quantity=$3, updated_at=NOW() WHERE company_id=$1 AND product_id=$2`,
		companyID, productID, qty)
	return err
}

func (t *pgxTx) InsertMovement(ctx context.Context, m Movement) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO stock_movements
  (company_id, product_id, type, quantity, doc_type, doc_id, note, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		m.CompanyID, m.ProductID, string(m.Type), m.Quantity, m.DocType, m.DocID, m.Note, m.CreatedAt)
	return err
}
