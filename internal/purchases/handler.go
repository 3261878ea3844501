package purchases

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dokanhq/dokan/internal/party"
	"github.com/dokanhq/dokan/internal/platform/httpx"
	"github.com/dokanhq/dokan/internal/settlement"
	"github.com/dokanhq/dokan/internal/shared"
)

// Handler serves purchase endpoints.
type Handler struct {
	svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func respondPurchasesError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, party.ErrNotFound), errors.Is(err, settlement.ErrInvoiceNotFound):
		httpx.RespondError(w, errors.Join(httpx.ErrNotFound, err))
	default:
		httpx.RespondError(w, err)
	}
}

func requestScope(r *http.Request) (int64, int64, error) {
	companyID, ok := shared.CompanyFromContext(r.Context())
	if !ok {
		return 0, 0, httpx.ErrUnauthorized
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, 0, httpx.ErrValidation
	}
	return companyID, id, nil
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	companyID, ok := shared.CompanyFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req CreateOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	order, err := h.svc.Create(r.Context(), companyID, req)
	if err != nil {
		respondPurchasesError(w, err)
		return
	}
	httpx.Created(w, "purchase order created", order)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	companyID, orderID, err := requestScope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req UpdateOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	order, err := h.svc.Update(r.Context(), companyID, orderID, req)
	if err != nil {
		respondPurchasesError(w, err)
		return
	}
	httpx.OK(w, "purchase order updated", order)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	companyID, orderID, err := requestScope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	order, err := h.svc.Get(r.Context(), companyID, orderID)
	if err != nil {
		respondPurchasesError(w, err)
		return
	}
	httpx.OK(w, "purchase order", order)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	companyID, ok := shared.CompanyFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	q := r.URL.Query()
	filter := ListFilter{CompanyID: companyID}
	filter.PartyID, _ = strconv.ParseInt(q.Get("party_id"), 10, 64)
	filter.Status = OrderStatus(q.Get("status"))
	filter.PaymentStatus = settlement.PaymentStatus(q.Get("payment_status"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))
	orders, err := h.svc.List(r.Context(), filter)
	if err != nil {
		respondPurchasesError(w, err)
		return
	}
	httpx.OK(w, "purchase orders", orders)
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	companyID, orderID, err := requestScope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	order, err := h.svc.Complete(r.Context(), companyID, orderID)
	if err != nil {
		respondPurchasesError(w, err)
		return
	}
	httpx.OK(w, "purchase order completed", order)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	companyID, orderID, err := requestScope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	order, err := h.svc.Cancel(r.Context(), companyID, orderID)
	if err != nil {
		respondPurchasesError(w, err)
		return
	}
	httpx.OK(w, "purchase order cancelled", order)
}

func (h *Handler) CreateReturn(w http.ResponseWriter, r *http.Request) {
	companyID, ok := shared.CompanyFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req CreateReturnRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	ret, err := h.svc.CreateReturn(r.Context(), companyID, req)
	if err != nil {
		respondPurchasesError(w, err)
		return
	}
	httpx.Created(w, "purchase return created", ret)
}

func (h *Handler) GetReturn(w http.ResponseWriter, r *http.Request) {
	companyID, returnID, err := requestScope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ret, err := h.svc.GetReturn(r.Context(), companyID, returnID)
	if err != nil {
		respondPurchasesError(w, err)
		return
	}
	httpx.OK(w, "purchase return", ret)
}

func (h *Handler) ListReturns(w http.ResponseWriter, r *http.Request) {
	companyID, ok := shared.CompanyFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	q := r.URL.Query()
	orderID, _ := strconv.ParseInt(q.Get("order_id"), 10, 64)
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	returns, err := h.svc.ListReturns(r.Context(), companyID, orderID, limit, offset)
	if err != nil {
		respondPurchasesError(w, err)
		return
	}
	httpx.OK(w, "purchase returns", returns)
}

func (h *Handler) CompleteReturn(w http.ResponseWriter, r *http.Request) {
	companyID, returnID, err := requestScope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ret, err := h.svc.CompleteReturn(r.Context(), companyID, returnID)
	if err != nil {
		respondPurchasesError(w, err)
		return
	}
	httpx.OK(w, "purchase return completed", ret)
}

func (h *Handler) CancelReturn(w http.ResponseWriter, r *http.Request) {
	companyID, returnID, err := requestScope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ret, err := h.svc.CancelReturn(r.Context(), companyID, returnID)
	if err != nil {
		respondPurchasesError(w, err)
		return
	}
	httpx.OK(w, "purchase return cancelled", ret)
}
