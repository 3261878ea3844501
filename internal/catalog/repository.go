package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dokanhq/dokan/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for the catalog.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) CreateProduct(ctx context.Context, p Product) (Product, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO products
  (company_id, name, sku, unit_id, purchase_price, selling_price, track_stock, is_active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
RETURNING id`,
		p.CompanyID, p.Name, p.SKU, p.UnitID, p.PurchasePrice, p.SellingPrice,
		p.TrackStock, p.IsActive, p.CreatedAt, p.UpdatedAt).Scan(&p.ID)
	if isUniqueViolation(err) {
		return Product{}, httpx.ErrDuplicate
	}
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *Repository) UpdateProduct(ctx context.Context, p Product) (Product, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE products
SET name=$3, purchase_price=$4, selling_price=$5, track_stock=$6, is_active=$7, updated_at=$8
WHERE company_id=$1 AND id=$2`,
		p.CompanyID, p.ID, p.Name, p.PurchasePrice, p.SellingPrice, p.TrackStock, p.IsActive, p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	if tag.RowsAffected() == 0 {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}

func (r *Repository) GetProduct(ctx context.Context, companyID, productID int64) (Product, error) {
	var p Product
	err := r.pool.QueryRow(ctx, `SELECT id, company_id, name, sku, unit_id, purchase_price, selling_price, track_stock, is_active, created_at, updated_at
FROM products WHERE company_id=$1 AND id=$2`, companyID, productID).
		Scan(&p.ID, &p.CompanyID, &p.Name, &p.SKU, &p.UnitID, &p.PurchasePrice,
			&p.SellingPrice, &p.TrackStock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrProductNotFound
	}
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *Repository) ListProducts(ctx context.Context, companyID int64, limit, offset int) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, company_id, name, sku, unit_id, purchase_price, selling_price, track_stock, is_active, created_at, updated_at
FROM products WHERE company_id=$1 ORDER BY name LIMIT $2 OFFSET $3`, companyID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	products := []Product{}
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.Name, &p.SKU, &p.UnitID, &p.PurchasePrice,
			&p.SellingPrice, &p.TrackStock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *Repository) CreateUnit(ctx context.Context, u Unit) (Unit, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO units
  (company_id, name, symbol, base_unit_id, conversion_factor, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING id`,
		u.CompanyID, u.Name, u.Symbol, u.BaseUnitID, u.ConversionFactor, u.CreatedAt).Scan(&u.ID)
	if isUniqueViolation(err) {
		return Unit{}, httpx.ErrDuplicate
	}
	if err != nil {
		return Unit{}, err
	}
	return u, nil
}

func (r *Repository) GetUnit(ctx context.Context, companyID, unitID int64) (Unit, error) {
	var u Unit
	err := r.pool.QueryRow(ctx, `SELECT id, company_id, name, symbol, base_unit_id, conversion_factor, created_at
FROM units WHERE company_id=$1 AND id=$2`, companyID, unitID).
		Scan(&u.ID, &u.CompanyID, &u.Name, &u.Symbol, &u.BaseUnitID, &u.ConversionFactor, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Unit{}, ErrUnitNotFound
	}
	if err != nil {
		return Unit{}, err
	}
	return u, nil
}

func (r *Repository) ListUnits(ctx context.Context, companyID int64) ([]Unit, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, company_id, name, symbol, base_unit_id, conversion_factor, created_at
FROM units WHERE company_id=$1 ORDER BY name`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	units := []Unit{}
	for rows.Next() {
		var u Unit
		if err := rows.Scan(&u.ID, &u.CompanyID, &u.Name, &u.Symbol, &u.BaseUnitID, &u.ConversionFactor, &u.CreatedAt); err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
