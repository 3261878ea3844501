package sales

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/dokanhq/dokan/internal/party"
	"github.com/dokanhq/dokan/internal/settlement"
	"github.com/dokanhq/dokan/internal/shared"
)

const orderColumns = `id, company_id, party_id, invoice_number, status, payment_status, invoice_date, subtotal, discount_amount, tax_amount, grand_total, paid_amount, notes, created_at, updated_at`

const returnColumns = `id, company_id, sales_order_id, party_id, return_number, status, return_date, grand_total, notes, created_at, updated_at`

const itemColumns = `id, product_id, product_name, unit_id, quantity, unit_price, line_total`

type rowScanner interface {
	Scan(dest ...any) error
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func scanOrder(row rowScanner) (Order, error) {
	var o Order
	var status, paymentStatus string
	err := row.Scan(&o.ID, &o.CompanyID, &o.PartyID, &o.InvoiceNumber, &status, &paymentStatus,
		&o.InvoiceDate, &o.Subtotal, &o.DiscountAmount, &o.TaxAmount, &o.GrandTotal,
		&o.PaidAmount, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	o.Status = OrderStatus(status)
	o.PaymentStatus = settlement.PaymentStatus(paymentStatus)
	return o, nil
}

func scanReturn(row rowScanner) (Return, error) {
	var ret Return
	var status string
	err := row.Scan(&ret.ID, &ret.CompanyID, &ret.OrderID, &ret.PartyID, &ret.ReturnNumber,
		&status, &ret.ReturnDate, &ret.GrandTotal, &ret.Notes, &ret.CreatedAt, &ret.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Return{}, ErrNotFound
	}
	if err != nil {
		return Return{}, err
	}
	ret.Status = ReturnStatus(status)
	return ret, nil
}

func queryItems(ctx context.Context, q querier, table, fk string, parentID int64) ([]Item, error) {
	rows, err := q.Query(ctx, `SELECT `+itemColumns+` FROM `+table+` WHERE `+fk+`=$1 ORDER BY id`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Item{}
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.ProductID, &item.ProductName, &item.UnitID,
			&item.Quantity, &item.UnitPrice, &item.LineTotal); err != nil {
			return nil, err
		}
		item.OrderID = parentID
		items = append(items, item)
	}
	return items, rows.Err()
}

func (t *txRepo) NextDocumentNumber(ctx context.Context, companyID int64, docType shared.DocumentType) (string, error) {
	return shared.NextDocumentNumber(ctx, t.tx, companyID, docType, time.Now())
}

func (t *txRepo) GetParty(ctx context.Context, companyID, partyID int64) (party.Party, error) {
	var p party.Party
	err := t.tx.QueryRow(ctx, `SELECT id, company_id, name, phone, email, address, is_customer, is_supplier, opening_balance, balance, is_active, created_at, updated_at
FROM parties WHERE company_id=$1 AND id=$2`, companyID, partyID).
		Scan(&p.ID, &p.CompanyID, &p.Name, &p.Phone, &p.Email, &p.Address, &p.IsCustomer,
			&p.IsSupplier, &p.OpeningBalance, &p.Balance, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return party.Party{}, party.ErrNotFound
	}
	if err != nil {
		return party.Party{}, err
	}
	return p, nil
}

func (t *txRepo) InsertOrder(ctx context.Context, o Order) (Order, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO sales_orders
  (company_id, party_id, invoice_number, status, payment_status, invoice_date, subtotal, discount_amount, tax_amount, grand_total, paid_amount, notes, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
RETURNING id`,
		o.CompanyID, o.PartyID, o.InvoiceNumber, string(o.Status), string(o.PaymentStatus),
		o.InvoiceDate, o.Subtotal, o.DiscountAmount, o.TaxAmount, o.GrandTotal,
		o.PaidAmount, o.Notes, o.CreatedAt, o.UpdatedAt).Scan(&o.ID)
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

func (t *txRepo) ReplaceItems(ctx context.Context, orderID int64, items []Item) ([]Item, error) {
	if _, err := t.tx.Exec(ctx, `DELETE FROM sales_order_items WHERE order_id=$1`, orderID); err != nil {
		return nil, err
	}
	out := make([]Item, 0, len(items))
	for _, item := range items {
		item.OrderID = orderID
		err := t.tx.QueryRow(ctx, `INSERT INTO sales_order_items
  (order_id, product_id, product_name, unit_id, quantity, unit_price, line_total)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id`,
			orderID, item.ProductID, item.ProductName, item.UnitID,
			item.Quantity, item.UnitPrice, item.LineTotal).Scan(&item.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (t *txRepo) GetOrderForUpdate(ctx context.Context, companyID, orderID int64) (Order, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM sales_orders WHERE company_id=$1 AND id=$2 FOR UPDATE`, companyID, orderID)
	order, err := scanOrder(row)
	if err != nil {
		return Order{}, err
	}
	order.Items, err = queryItems(ctx, t.tx, "sales_order_items", "order_id", order.ID)
	if err != nil {
		return Order{}, err
	}
	return order, nil
}

func (t *txRepo) UpdateOrderTotals(ctx context.Context, o Order) error {
	_, err := t.tx.Exec(ctx, `UPDATE sales_orders
SET invoice_date=$3, subtotal=$4, discount_amount=$5, tax_amount=$6, grand_total=$7, paid_amount=$8, notes=$9, updated_at=$10
WHERE company_id=$1 AND id=$2`,
		o.CompanyID, o.ID, o.InvoiceDate, o.Subtotal, o.DiscountAmount, o.TaxAmount,
		o.GrandTotal, o.PaidAmount, o.Notes, o.UpdatedAt)
	return err
}

func (t *txRepo) SetOrderStatus(ctx context.Context, companyID, orderID int64, status OrderStatus, updatedAt time.Time) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE sales_orders SET status=$3, updated_at=$4 WHERE company_id=$1 AND id=$2`,
		companyID, orderID, string(status), updatedAt)
	return err
}

func (t *txRepo) CancelInvoicePayments(ctx context.Context, companyID, orderID int64) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE payments SET status='cancelled', updated_at=NOW() WHERE company_id=$1 AND sales_order_id=$2 AND status='completed'`,
		companyID, orderID)
	return err
}

func (t *txRepo) HasActiveReturns(ctx context.Context, companyID, orderID int64) (bool, error) {
	var active bool
	err := t.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM sales_returns WHERE company_id=$1 AND sales_order_id=$2 AND status <> 'cancelled')`,
		companyID, orderID).Scan(&active)
	return active, err
}

func (t *txRepo) InsertReturn(ctx context.Context, ret Return) (Return, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO sales_returns
  (company_id, sales_order_id, party_id, return_number, status, return_date, grand_total, notes, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
RETURNING id`,
		ret.CompanyID, ret.OrderID, ret.PartyID, ret.ReturnNumber, string(ret.Status),
		ret.ReturnDate, ret.GrandTotal, ret.Notes, ret.CreatedAt, ret.UpdatedAt).Scan(&ret.ID)
	if err != nil {
		return Return{}, err
	}
	return ret, nil
}

func (t *txRepo) ReplaceReturnItems(ctx context.Context, returnID int64, items []Item) ([]Item, error) {
	if _, err := t.tx.Exec(ctx, `DELETE FROM sales_return_items WHERE return_id=$1`, returnID); err != nil {
		return nil, err
	}
	out := make([]Item, 0, len(items))
	for _, item := range items {
		item.OrderID = returnID
		err := t.tx.QueryRow(ctx, `INSERT INTO sales_return_items
  (return_id, product_id, product_name, unit_id, quantity, unit_price, line_total)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id`,
			returnID, item.ProductID, item.ProductName, item.UnitID,
			item.Quantity, item.UnitPrice, item.LineTotal).Scan(&item.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (t *txRepo) GetReturnForUpdate(ctx context.Context, companyID, returnID int64) (Return, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+returnColumns+` FROM sales_returns WHERE company_id=$1 AND id=$2 FOR UPDATE`, companyID, returnID)
	ret, err := scanReturn(row)
	if err != nil {
		return Return{}, err
	}
	ret.Items, err = queryItems(ctx, t.tx, "sales_return_items", "return_id", ret.ID)
	if err != nil {
		return Return{}, err
	}
	return ret, nil
}

func (t *txRepo) SetReturnStatus(ctx context.Context, companyID, returnID int64, status ReturnStatus, updatedAt time.Time) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE sales_returns SET status=$3, updated_at=$4 WHERE company_id=$1 AND id=$2`,
		companyID, returnID, string(status), updatedAt)
	return err
}

// SumReturnedQuantities totals live return lines per product in base units.
func (t *txRepo) SumReturnedQuantities(ctx context.Context, companyID, orderID int64) (map[int64]decimal.Decimal, error) {
	rows, err := t.tx.Query(ctx, `SELECT i.product_id,
  COALESCE(SUM(i.quantity * CASE WHEN u.base_unit_id IS NULL THEN 1 ELSE u.conversion_factor END), 0)
FROM sales_return_items i
JOIN sales_returns r ON r.id = i.return_id
JOIN units u ON u.id = i.unit_id
WHERE r.company_id=$1 AND r.sales_order_id=$2 AND r.status <> 'cancelled'
GROUP BY i.product_id`, companyID, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sums := map[int64]decimal.Decimal{}
	for rows.Next() {
		var productID int64
		var qty decimal.Decimal
		if err := rows.Scan(&productID, &qty); err != nil {
			return nil, err
		}
		sums[productID] = qty
	}
	return sums, rows.Err()
}
