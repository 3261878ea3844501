package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// DocumentType identifies a numbered document series.
type DocumentType string

const (
	DocumentTypeSale           DocumentType = "SALES_ORDER"
	DocumentTypePurchase       DocumentType = "PURCHASE_ORDER"
	DocumentTypeSaleReturn     DocumentType = "SALES_RETURN"
	DocumentTypePurchaseReturn DocumentType = "PURCHASE_RETURN"
)

var documentPrefixes = map[DocumentType]string{
	DocumentTypeSale:           "INV",
	DocumentTypePurchase:       "PINV",
	DocumentTypeSaleReturn:     "SRN",
	DocumentTypePurchaseReturn: "PRN",
}

// FormatDocumentNumber renders a document number as PREFIX-YEAR-NNNNN.
func FormatDocumentNumber(docType DocumentType, year int, seq int64) string {
	prefix, ok := documentPrefixes[docType]
	if !ok {
		prefix = "DOC"
	}
	return fmt.Sprintf("%s-%d-%05d", prefix, year, seq)
}

// NextDocumentNumber allocates the next number in the per-company, per-year
// series. The counter row is locked with SELECT ... FOR UPDATE so concurrent
// requests never produce the same number.
func NextDocumentNumber(ctx context.Context, tx pgx.Tx, companyID int64, docType DocumentType, now time.Time) (string, error) {
	year := now.Year()
	var next int64
	err := tx.QueryRow(ctx,
		`SELECT next_number FROM document_sequences WHERE company_id=$1 AND document_type=$2 AND current_year=$3 FOR UPDATE`,
		companyID, string(docType), year).Scan(&next)
	switch {
	case err == pgx.ErrNoRows:
		next = 1
		if _, err := tx.Exec(ctx,
			`INSERT INTO document_sequences (company_id, document_type, current_year, next_number) VALUES ($1,$2,$3,2)`,
			companyID, string(docType), year); err != nil {
			return "", fmt.Errorf("shared: create sequence: %w", err)
		}
	case err != nil:
		return "", fmt.Errorf("shared: lock sequence: %w", err)
	default:
		if _, err := tx.Exec(ctx,
			`UPDATE document_sequences SET next_number=next_number+1 WHERE company_id=$1 AND document_type=$2 AND current_year=$3`,
			companyID, string(docType), year); err != nil {
			return "", fmt.Errorf("shared: advance sequence: %w", err)
		}
	}
	return FormatDocumentNumber(docType, year, next), nil
}
