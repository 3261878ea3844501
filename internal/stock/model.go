// Package stock tracks per-product on-hand quantities and their movements.
package stock

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementType marks the direction of a stock movement.
type MovementType string

const (
	MovementIn  MovementType = "in"
	MovementOut MovementType = "out"
)

// Movement is one immutable stock change, always expressed in the product's
// base unit.
type Movement struct {
	ID        int64           `json:"id"`
	CompanyID int64           `json:"company_id"`
	ProductID int64           `json:"product_id"`
	Type      MovementType    `json:"type"`
	Quantity  decimal.Decimal `json:"quantity"`
	DocType   string          `json:"doc_type"`
	DocID     int64           `json:"doc_id"`
	Note      string          `json:"note,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Level is the current on-hand quantity of a product in base units.
type Level struct {
	CompanyID int64           `json:"company_id"`
	ProductID int64           `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Item is one line of a stock operation, in the unit it was recorded in.
type Item struct {
	ProductID int64
	UnitID    int64
	Quantity  decimal.Decimal
}

// Ref ties a stock operation back to the document that caused it.
type Ref struct {
	DocType string
	DocID   int64
}
