// Package catalog manages products and their units of measure.
package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Unit is a unit of measure. Derived units convert to their base unit by a
// fixed factor, e.g. a carton of 12 pieces.
type Unit struct {
	ID               int64           `json:"id"`
	CompanyID        int64           `json:"company_id"`
	Name             string          `json:"name"`
	Symbol           string          `json:"symbol"`
	BaseUnitID       *int64          `json:"base_unit_id,omitempty"`
	ConversionFactor decimal.Decimal `json:"conversion_factor"`
	CreatedAt        time.Time       `json:"created_at"`
}

// ToBase converts a quantity expressed in this unit to the base unit.
func (u Unit) ToBase(qty decimal.Decimal) decimal.Decimal {
	if u.BaseUnitID == nil || u.ConversionFactor.IsZero() {
		return qty
	}
	return qty.Mul(u.ConversionFactor)
}

// Product is a sellable or purchasable item tracked in stock.
type Product struct {
	ID            int64           `json:"id"`
	CompanyID     int64           `json:"company_id"`
	Name          string          `json:"name"`
	SKU           string          `json:"sku"`
	UnitID        int64           `json:"unit_id"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	TrackStock    bool            `json:"track_stock"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
