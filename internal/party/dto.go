package party

import "github.com/shopspring/decimal"

// CreateRequest is the payload for registering a party.
type CreateRequest struct {
	Name           string          `json:"name" validate:"required,min=1,max=200"`
	Phone          string          `json:"phone" validate:"omitempty,max=32"`
	Email          string          `json:"email" validate:"omitempty,email"`
	Address        string          `json:"address" validate:"omitempty,max=500"`
	IsCustomer     bool            `json:"is_customer"`
	IsSupplier     bool            `json:"is_supplier"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// UpdateRequest is the payload for editing a party.
type UpdateRequest struct {
	Name       string `json:"name" validate:"required,min=1,max=200"`
	Phone      string `json:"phone" validate:"omitempty,max=32"`
	Email      string `json:"email" validate:"omitempty,email"`
	Address    string `json:"address" validate:"omitempty,max=500"`
	IsCustomer bool   `json:"is_customer"`
	IsSupplier bool   `json:"is_supplier"`
	IsActive   *bool  `json:"is_active"`
}

// OpeningBalanceRequest adjusts the party's configured opening balance.
type OpeningBalanceRequest struct {
	Amount decimal.Decimal `json:"amount"`
}
