package party

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dokanhq/dokan/internal/ledger"
	"github.com/dokanhq/dokan/internal/platform/httpx"
	"github.com/dokanhq/dokan/internal/shared"
)

// StatementPort reads ledger entries for the party statement endpoint.
type StatementPort interface {
	List(ctx context.Context, filter ledger.ListFilter) ([]ledger.Entry, error)
}

// Handler serves party endpoints.
type Handler struct {
	svc        *Service
	statements StatementPort
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, statements StatementPort) *Handler {
	return &Handler{svc: svc, statements: statements}
}

func respondPartyError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		httpx.RespondError(w, errors.Join(httpx.ErrNotFound, err))
		return
	}
	httpx.RespondError(w, err)
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
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.svc.Create(r.Context(), companyID, req)
	if err != nil {
		respondPartyError(w, err)
		return
	}
	httpx.Created(w, "party created", p)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	companyID, partyID, err := requestScope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req UpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.svc.Update(r.Context(), companyID, partyID, req)
	if err != nil {
		respondPartyError(w, err)
		return
	}
	httpx.OK(w, "party updated", p)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	companyID, partyID, err := requestScope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.svc.Get(r.Context(), companyID, partyID)
	if err != nil {
		respondPartyError(w, err)
		return
	}
	httpx.OK(w, "party", p)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	companyID, ok := shared.CompanyFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	parties, err := h.svc.List(r.Context(), companyID, q.Get("role"), limit, offset)
	if err != nil {
		respondPartyError(w, err)
		return
	}
	httpx.OK(w, "parties", parties)
}

func (h *Handler) SetOpeningBalance(w http.ResponseWriter, r *http.Request) {
	companyID, partyID, err := requestScope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req OpeningBalanceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.svc.SetOpeningBalance(r.Context(), companyID, partyID, req.Amount)
	if err != nil {
		respondPartyError(w, err)
		return
	}
	httpx.OK(w, "opening balance updated", p)
}

func (h *Handler) RecomputeBalance(w http.ResponseWriter, r *http.Request) {
	companyID, partyID, err := requestScope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	balance, err := h.svc.RecomputeBalance(r.Context(), companyID, partyID)
	if err != nil {
		respondPartyError(w, err)
		return
	}
	httpx.OK(w, "balance recomputed", map[string]any{"party_id": partyID, "balance": balance})
}

// Statement returns the party's ledger entries, newest first.
func (h *Handler) Statement(w http.ResponseWriter, r *http.Request) {
	companyID, partyID, err := requestScope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if _, err := h.svc.Get(r.Context(), companyID, partyID); err != nil {
		respondPartyError(w, err)
		return
	}

	filter := ledger.ListFilter{CompanyID: companyID, PartyID: partyID}
	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			httpx.RespondError(w, httpx.ErrValidation)
			return
		}
		filter.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			httpx.RespondError(w, httpx.ErrValidation)
			return
		}
		filter.To = t
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	entries, err := h.statements.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, "party ledger", entries)
}
