package settlement

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/dokanhq/dokan/internal/ledger"
)

// pgxTx implements the settlement Tx surface on a live pgx transaction,
// composing the ledger operations by embedding.
type pgxTx struct {
	ledger.Tx
	tx pgx.Tx
}

// NewTx adapts a pgx transaction to the settlement Tx interface.
func NewTx(tx pgx.Tx) Tx {
	return &pgxTx{Tx: ledger.NewTx(tx), tx: tx}
}

// NewStatusTx adapts a pgx transaction to the status-only surface.
func NewStatusTx(tx pgx.Tx) StatusTx {
	return &pgxTx{Tx: ledger.NewTx(tx), tx: tx}
}

func invoiceTable(kind InvoiceKind) string {
	if kind == KindPurchase {
		return "purchase_orders"
	}
	return "sales_orders"
}

// realizedStatus is the document state in which an invoice participates in
// settlement: delivered sales, completed purchases.
func realizedStatus(kind InvoiceKind) string {
	if kind == KindPurchase {
		return "completed"
	}
	return "delivered"
}

func (t *pgxTx) GetInvoice(ctx context.Context, companyID int64, kind InvoiceKind, invoiceID int64) (Invoice, error) {
	return t.queryInvoice(ctx, kind, `SELECT id, company_id, party_id, invoice_number, grand_total, paid_amount, payment_status, invoice_date, created_at
FROM `+invoiceTable(kind)+` WHERE company_id=$1 AND id=$2`, companyID, invoiceID)
}

func (t *pgxTx) LockInvoice(ctx context.Context, companyID int64, kind InvoiceKind, invoiceID int64) (Invoice, error) {
	return t.queryInvoice(ctx, kind, `SELECT id, company_id, party_id, invoice_number, grand_total, paid_amount, payment_status, invoice_date, created_at
FROM `+invoiceTable(kind)+` WHERE company_id=$1 AND id=$2 FOR UPDATE`, companyID, invoiceID)
}

func (t *pgxTx) queryInvoice(ctx context.Context, kind InvoiceKind, sql string, args ...any) (Invoice, error) {
	var inv Invoice
	var status string
	err := t.tx.QueryRow(ctx, sql, args...).Scan(&inv.ID, &inv.CompanyID, &inv.PartyID,
		&inv.Number, &inv.GrandTotal, &inv.PaidAmount, &status, &inv.InvoiceDate, &inv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, ErrInvoiceNotFound
	}
	if err != nil {
		return Invoice{}, err
	}
	inv.Kind = kind
	inv.Status = PaymentStatus(status)
	return inv, nil
}

// LockCandidates returns the party's realized, not fully settled invoices in
// first-in-first-out order. Rows are locked so concurrent payments serialize
// per invoice.
func (t *pgxTx) LockCandidates(ctx context.Context, companyID, partyID int64, kind InvoiceKind) ([]Invoice, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, company_id, party_id, invoice_number, grand_total, paid_amount, payment_status, invoice_date, created_at
FROM `+invoiceTable(kind)+`
WHERE company_id=$1 AND party_id=$2 AND status=$3 AND payment_status NOT IN ($4, $5)
ORDER BY invoice_date, created_at, id
FOR UPDATE`,
		companyID, partyID, realizedStatus(kind), string(StatusPaid), string(StatusOverpaid))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	invoices := []Invoice{}
	for rows.Next() {
		var inv Invoice
		var status string
		if err := rows.Scan(&inv.ID, &inv.CompanyID, &inv.PartyID, &inv.Number,
			&inv.GrandTotal, &inv.PaidAmount, &status, &inv.InvoiceDate, &inv.CreatedAt); err != nil {
			return nil, err
		}
		inv.Kind = kind
		inv.Status = PaymentStatus(status)
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (t *pgxTx) SumCompletedReturns(ctx context.Context, companyID int64, kind InvoiceKind, invoiceID int64) (decimal.Decimal, error) {
	table, column := "sales_returns", "sales_order_id"
	if kind == KindPurchase {
		table, column = "purchase_returns", "purchase_order_id"
	}
	var sum decimal.Decimal
	err := t.tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(grand_total), 0) FROM `+table+` WHERE company_id=$1 AND `+column+`=$2 AND status='completed'`,
		companyID, invoiceID).Scan(&sum)
	return sum, err
}

func (t *pgxTx) SumCompletedCashPayments(ctx context.Context, companyID int64, kind InvoiceKind, invoiceID int64) (decimal.Decimal, error) {
	column := "sales_order_id"
	if kind == KindPurchase {
		column = "purchase_order_id"
	}
	var sum decimal.Decimal
	err := t.tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE company_id=$1 AND `+column+`=$2 AND method='cash' AND status='completed'`,
		companyID, invoiceID).Scan(&sum)
	return sum, err
}

func (t *pgxTx) SetInvoicePayment(ctx context.Context, companyID int64, kind InvoiceKind, invoiceID int64, paid decimal.Decimal, status PaymentStatus) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE `+invoiceTable(kind)+` SET paid_amount=$3, payment_status=$4, updated_at=NOW() WHERE company_id=$1 AND id=$2`,
		companyID, invoiceID, paid, string(status))
	return err
}

func (t *pgxTx) InsertCashPayment(ctx context.Context, p CashPayment) (int64, error) {
	paymentType := "received"
	saleCol, purchaseCol := &p.InvoiceID, (*int64)(nil)
	if p.Kind == KindPurchase {
		paymentType = "made"
		saleCol, purchaseCol = nil, &p.InvoiceID
	}
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO payments
  (company_id, party_id, payment_type, method, status, amount, date, sales_order_id, purchase_order_id, notes, created_at, updated_at)
VALUES ($1,$2,$3,'cash','completed',$4,$5,$6,$7,$8,NOW(),NOW())
RETURNING id`,
		p.CompanyID, p.PartyID, paymentType, p.Amount, p.Date, saleCol, purchaseCol, p.Notes).Scan(&id)
	return id, err
}
