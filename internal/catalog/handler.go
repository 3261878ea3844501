package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dokanhq/dokan/internal/platform/httpx"
	"github.com/dokanhq/dokan/internal/shared"
)

// Handler serves catalog endpoints.
type Handler struct {
	svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func respondCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrUnitNotFound):
		httpx.RespondError(w, errors.Join(httpx.ErrNotFound, err))
	default:
		httpx.RespondError(w, err)
	}
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	companyID, ok := shared.CompanyFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req CreateProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	product, err := h.svc.CreateProduct(r.Context(), companyID, req)
	if err != nil {
		respondCatalogError(w, err)
		return
	}
	httpx.Created(w, "product created", product)
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	companyID, ok := shared.CompanyFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	productID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var req UpdateProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	product, err := h.svc.UpdateProduct(r.Context(), companyID, productID, req)
	if err != nil {
		respondCatalogError(w, err)
		return
	}
	httpx.OK(w, "product updated", product)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	companyID, ok := shared.CompanyFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	productID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	product, err := h.svc.GetProduct(r.Context(), companyID, productID)
	if err != nil {
		respondCatalogError(w, err)
		return
	}
	httpx.OK(w, "product", product)
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	companyID, ok := shared.CompanyFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	products, err := h.svc.ListProducts(r.Context(), companyID, limit, offset)
	if err != nil {
		respondCatalogError(w, err)
		return
	}
	httpx.OK(w, "products", products)
}

func (h *Handler) CreateUnit(w http.ResponseWriter, r *http.Request) {
	companyID, ok := shared.CompanyFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req CreateUnitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	unit, err := h.svc.CreateUnit(r.Context(), companyID, req)
	if err != nil {
		respondCatalogError(w, err)
		return
	}
	httpx.Created(w, "unit created", unit)
}

func (h *Handler) ListUnits(w http.ResponseWriter, r *http.Request) {
	companyID, ok := shared.CompanyFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	units, err := h.svc.ListUnits(r.Context(), companyID)
	if err != nil {
		respondCatalogError(w, err)
		return
	}
	httpx.OK(w, "units", units)
}
