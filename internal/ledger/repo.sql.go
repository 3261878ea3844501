package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// pgxTx implements Tx on top of a live pgx transaction.
type pgxTx struct {
	tx pgx.Tx
}

// NewTx adapts a pgx transaction to the ledger Tx interface so other modules
// can compose ledger postings into their own transactional repositories.
func NewTx(tx pgx.Tx) Tx {
	return &pgxTx{tx: tx}
}

func (t *pgxTx) InsertEntry(ctx context.Context, entry Entry) (Entry, error) {
	var docType *string
	var docID *int64
	if entry.Source != nil {
		dt := string(entry.Source.DocType)
		docType = &dt
		docID = &entry.Source.DocID
	}
	err := t.tx.QueryRow(ctx, `INSERT INTO ledger_entries
  (company_id, party_id, account, doc_type, doc_id, date, txn_id, txn_type, description, debit, credit, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
RETURNING id`,
		entry.CompanyID, entry.PartyID, string(entry.Account), docType, docID,
		entry.Date, entry.TxnID, string(entry.TxnType), entry.Description,
		entry.Debit, entry.Credit, entry.CreatedAt).Scan(&entry.ID)
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (t *pgxTx) DeleteForSource(ctx context.Context, companyID int64, ref SourceRef) (int64, error) {
	tag, err := t.tx.Exec(ctx,
		`DELETE FROM ledger_entries WHERE company_id=$1 AND doc_type=$2 AND doc_id=$3`,
		companyID, string(ref.DocType), ref.DocID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *pgxTx) SumPartyEntries(ctx context.Context, companyID, partyID int64) (PartySums, error) {
	var sums PartySums
	err := t.tx.QueryRow(ctx, `SELECT
  COALESCE(SUM(debit), 0),
  COALESCE(SUM(credit), 0),
  COALESCE(BOOL_OR(txn_type=$3), FALSE)
FROM ledger_entries
WHERE company_id=$1 AND party_id=$2 AND account=$4`,
		companyID, partyID, string(TxnOpeningBalance), string(AccountParty)).
		Scan(&sums.Debit, &sums.Credit, &sums.HasOpening)
	if err != nil {
		return PartySums{}, err
	}
	return sums, nil
}

func (t *pgxTx) GetPartyOpeningBalance(ctx context.Context, companyID, partyID int64) (decimal.Decimal, error) {
	var opening decimal.Decimal
	err := t.tx.QueryRow(ctx,
		`SELECT COALESCE(opening_balance, 0) FROM parties WHERE company_id=$1 AND id=$2`,
		companyID, partyID).Scan(&opening)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return opening, nil
}

func (t *pgxTx) SetPartyBalance(ctx context.Context, companyID, partyID int64, balance decimal.Decimal) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE parties SET balance=$3, updated_at=NOW() WHERE company_id=$1 AND id=$2`,
		companyID, partyID, balance)
	return err
}

func (t *pgxTx) FindOpeningEntry(ctx context.Context, companyID, partyID int64) (*Entry, error) {
	row := t.tx.QueryRow(ctx, `SELECT id, company_id, party_id, account, doc_type, doc_id, date, txn_id, txn_type, description, debit, credit, created_at
FROM ledger_entries
WHERE company_id=$1 AND party_id=$2 AND txn_type=$3
ORDER BY id LIMIT 1`,
		companyID, partyID, string(TxnOpeningBalance))
	entry, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (t *pgxTx) UpdateOpeningEntry(ctx context.Context, entryID int64, debit, credit decimal.Decimal, description string) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE ledger_entries SET debit=$2, credit=$3, description=$4 WHERE id=$1`,
		entryID, debit, credit, description)
	return err
}

func (t *pgxTx) DeleteOpeningEntries(ctx context.Context, companyID, partyID int64) error {
	_, err := t.tx.Exec(ctx,
		`DELETE FROM ledger_entries WHERE company_id=$1 AND party_id=$2 AND txn_type=$3`,
		companyID, partyID, string(TxnOpeningBalance))
	return err
}
