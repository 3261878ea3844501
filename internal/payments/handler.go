package payments

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dokanhq/dokan/internal/party"
	"github.com/dokanhq/dokan/internal/platform/httpx"
	"github.com/dokanhq/dokan/internal/settlement"
	"github.com/dokanhq/dokan/internal/shared"
)

// Handler serves payment endpoints.
type Handler struct {
	svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func respondPaymentsError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, party.ErrNotFound), errors.Is(err, settlement.ErrInvoiceNotFound):
		httpx.RespondError(w, errors.Join(httpx.ErrNotFound, err))
	case errors.Is(err, settlement.ErrInvalidAmount):
		httpx.RespondError(w, errors.Join(httpx.ErrValidation, err))
	default:
		httpx.RespondError(w, err)
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, forced Type) {
	companyID, ok := shared.CompanyFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if forced != "" {
		req.Type = forced
	}
	result, err := h.svc.Create(r.Context(), companyID, req)
	if err != nil {
		respondPaymentsError(w, err)
		return
	}
	httpx.Created(w, "payment recorded", result)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, "")
}

// CreateCustomer is the convenience surface for collecting from a customer.
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, TypeReceived)
}

// CreateSupplier is the convenience surface for paying a supplier.
func (h *Handler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, TypeMade)
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

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	companyID, paymentID, err := requestScope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.svc.Get(r.Context(), companyID, paymentID)
	if err != nil {
		respondPaymentsError(w, err)
		return
	}
	httpx.OK(w, "payment", p)
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
	filter.Type = Type(q.Get("payment_type"))
	filter.Method = Method(q.Get("method"))
	filter.Status = Status(q.Get("status"))
	if from := q.Get("from"); from != "" {
		filter.From, _ = time.Parse(time.DateOnly, from)
	}
	if to := q.Get("to"); to != "" {
		filter.To, _ = time.Parse(time.DateOnly, to)
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))
	payments, err := h.svc.List(r.Context(), filter)
	if err != nil {
		respondPaymentsError(w, err)
		return
	}
	httpx.OK(w, "payments", payments)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	companyID, paymentID, err := requestScope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req UpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.svc.Update(r.Context(), companyID, paymentID, req)
	if err != nil {
		respondPaymentsError(w, err)
		return
	}
	httpx.OK(w, "payment updated", p)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	companyID, paymentID, err := requestScope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.svc.Delete(r.Context(), companyID, paymentID); err != nil {
		respondPaymentsError(w, err)
		return
	}
	httpx.OK(w, "payment deleted", nil)
}
