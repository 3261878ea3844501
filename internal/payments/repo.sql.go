package payments

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dokanhq/dokan/internal/party"
)

const paymentColumns = `id, company_id, payment_type, party_id, sales_order_id, purchase_order_id, method, status, amount, date, reference, notes, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (Payment, error) {
	var p Payment
	var paymentType, method, status string
	err := row.Scan(&p.ID, &p.CompanyID, &paymentType, &p.PartyID, &p.SaleID, &p.PurchaseID,
		&method, &status, &p.Amount, &p.Date, &p.Reference, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Payment{}, ErrNotFound
	}
	if err != nil {
		return Payment{}, err
	}
	p.Type = Type(paymentType)
	p.Method = Method(method)
	p.Status = Status(status)
	return p, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
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

func (t *txRepo) InsertPayment(ctx context.Context, p Payment) (Payment, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO payments
  (company_id, payment_type, party_id, sales_order_id, purchase_order_id, method, status, amount, date, reference, notes, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
RETURNING id`,
		p.CompanyID, string(p.Type), p.PartyID, p.SaleID, p.PurchaseID, string(p.Method),
		string(p.Status), p.Amount, p.Date, p.Reference, p.Notes, p.CreatedAt, p.UpdatedAt).Scan(&p.ID)
	if err != nil {
		return Payment{}, err
	}
	return p, nil
}

func (t *txRepo) GetPaymentForUpdate(ctx context.Context, companyID, paymentID int64) (Payment, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE company_id=$1 AND id=$2 FOR UPDATE`, companyID, paymentID)
	return scanPayment(row)
}

func (t *txRepo) UpdatePayment(ctx context.Context, p Payment) error {
	_, err := t.tx.Exec(ctx, `UPDATE payments
SET method=$3, status=$4, amount=$5, date=$6, reference=$7, notes=$8, updated_at=$9
WHERE company_id=$1 AND id=$2`,
		p.CompanyID, p.ID, string(p.Method), string(p.Status), p.Amount, p.Date,
		p.Reference, p.Notes, p.UpdatedAt)
	return err
}

func (t *txRepo) DeletePayment(ctx context.Context, companyID, paymentID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM payments WHERE company_id=$1 AND id=$2`, companyID, paymentID)
	return err
}

// DeleteLedgerForTxn removes the ledger rows one payment posted, keyed by the
// payment's transaction id rather than its source document so invoice-linked
// rows can be removed without touching the invoice's own rows.
func (t *txRepo) DeleteLedgerForTxn(ctx context.Context, companyID int64, txnID string) (int64, error) {
	tag, err := t.tx.Exec(ctx, `DELETE FROM ledger_entries WHERE company_id=$1 AND txn_id=$2`, companyID, txnID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
