package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/dokanhq/dokan/internal/platform/httpx"
)

var (
	// ErrProductNotFound indicates the product does not exist in the company.
	ErrProductNotFound = errors.New("catalog: product not found")
	// ErrUnitNotFound indicates the unit does not exist in the company.
	ErrUnitNotFound = errors.New("catalog: unit not found")
	// ErrInvalidConversion indicates a derived unit without a positive factor.
	ErrInvalidConversion = errors.New("catalog: derived unit requires a positive conversion factor")
)

// RepositoryPort is the persistence surface the catalog service needs.
type RepositoryPort interface {
	CreateProduct(ctx context.Context, p Product) (Product, error)
	UpdateProduct(ctx context.Context, p Product) (Product, error)
	GetProduct(ctx context.Context, companyID, productID int64) (Product, error)
	ListProducts(ctx context.Context, companyID int64, limit, offset int) ([]Product, error)
	CreateUnit(ctx context.Context, u Unit) (Unit, error)
	GetUnit(ctx context.Context, companyID, unitID int64) (Unit, error)
	ListUnits(ctx context.Context, companyID int64) ([]Unit, error)
}

// Service implements product and unit management.
type Service struct {
	repo     RepositoryPort
	validate *validator.Validate
	now      func() time.Time
}

// NewService constructs a Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, validate: validator.New(), now: time.Now}
}

// CreateProduct registers a product after checking its unit exists.
func (s *Service) CreateProduct(ctx context.Context, companyID int64, req CreateProductRequest) (Product, error) {
	if err := s.validate.Struct(req); err != nil {
		return Product{}, errors.Join(httpx.ErrValidation, err)
	}
	if _, err := s.repo.GetUnit(ctx, companyID, req.UnitID); err != nil {
		return Product{}, err
	}
	trackStock := true
	if req.TrackStock != nil {
		trackStock = *req.TrackStock
	}
	now := s.now()
	return s.repo.CreateProduct(ctx, Product{
		CompanyID:     companyID,
		Name:          req.Name,
		SKU:           req.SKU,
		UnitID:        req.UnitID,
		PurchasePrice: req.PurchasePrice,
		SellingPrice:  req.SellingPrice,
		TrackStock:    trackStock,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
}

// UpdateProduct edits mutable product fields.
func (s *Service) UpdateProduct(ctx context.Context, companyID, productID int64, req UpdateProductRequest) (Product, error) {
	if err := s.validate.Struct(req); err != nil {
		return Product{}, errors.Join(httpx.ErrValidation, err)
	}
	product, err := s.repo.GetProduct(ctx, companyID, productID)
	if err != nil {
		return Product{}, err
	}
	product.Name = req.Name
	product.PurchasePrice = req.PurchasePrice
	product.SellingPrice = req.SellingPrice
	if req.TrackStock != nil {
		product.TrackStock = *req.TrackStock
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
	product.UpdatedAt = s.now()
	return s.repo.UpdateProduct(ctx, product)
}

// GetProduct loads one product.
func (s *Service) GetProduct(ctx context.Context, companyID, productID int64) (Product, error) {
	return s.repo.GetProduct(ctx, companyID, productID)
}

// ListProducts lists company products.
func (s *Service) ListProducts(ctx context.Context, companyID int64, limit, offset int) ([]Product, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListProducts(ctx, companyID, limit, offset)
}

// CreateUnit registers a unit of measure. A derived unit must name an
// existing base unit and carry a positive conversion factor.
func (s *Service) CreateUnit(ctx context.Context, companyID int64, req CreateUnitRequest) (Unit, error) {
	if err := s.validate.Struct(req); err != nil {
		return Unit{}, errors.Join(httpx.ErrValidation, err)
	}
	factor := req.ConversionFactor
	if req.BaseUnitID != nil {
		if !factor.IsPositive() {
			return Unit{}, errors.Join(httpx.ErrValidation, ErrInvalidConversion)
		}
		if _, err := s.repo.GetUnit(ctx, companyID, *req.BaseUnitID); err != nil {
			return Unit{}, err
		}
	} else {
		factor = decimal.NewFromInt(1)
	}
	return s.repo.CreateUnit(ctx, Unit{
		CompanyID:        companyID,
		Name:             req.Name,
		Symbol:           req.Symbol,
		BaseUnitID:       req.BaseUnitID,
		ConversionFactor: factor,
		CreatedAt:        s.now(),
	})
}

// ListUnits lists company units.
func (s *Service) ListUnits(ctx context.Context, companyID int64) ([]Unit, error) {
	return s.repo.ListUnits(ctx, companyID)
}
