// Package party manages customers and suppliers and their running balances.
package party

import (
	"time"

	"github.com/shopspring/decimal"
)

// Party is a customer, a supplier, or both. Balance is the cached ledger
// position: positive means the party owes on invoices, negative means they
// hold an advance.
type Party struct {
	ID             int64           `json:"id"`
	CompanyID      int64           `json:"company_id"`
	Name           string          `json:"name"`
	Phone          string          `json:"phone,omitempty"`
	Email          string          `json:"email,omitempty"`
	Address        string          `json:"address,omitempty"`
	IsCustomer     bool            `json:"is_customer"`
	IsSupplier     bool            `json:"is_supplier"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Balance        decimal.Decimal `json:"balance"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
