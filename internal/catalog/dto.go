package catalog

import "github.com/shopspring/decimal"

// CreateProductRequest is the payload for registering a product.
type CreateProductRequest struct {
	Name          string          `json:"name" validate:"required,min=1,max=200"`
	SKU           string          `json:"sku" validate:"required,min=1,max=64"`
	UnitID        int64           `json:"unit_id" validate:"required,gt=0"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	TrackStock    *bool           `json:"track_stock"`
}

// UpdateProductRequest is the payload for editing a product.
type UpdateProductRequest struct {
	Name          string          `json:"name" validate:"required,min=1,max=200"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	TrackStock    *bool           `json:"track_stock"`
	IsActive      *bool           `json:"is_active"`
}

// CreateUnitRequest is the payload for registering a unit of measure.
type CreateUnitRequest struct {
	Name             string          `json:"name" validate:"required,min=1,max=100"`
	Symbol           string          `json:"symbol" validate:"required,min=1,max=16"`
	BaseUnitID       *int64          `json:"base_unit_id"`
	ConversionFactor decimal.Decimal `json:"conversion_factor"`
}
