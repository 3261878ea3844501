package ledger

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dokanhq/dokan/internal/platform/httpx"
	"github.com/dokanhq/dokan/internal/shared"
)

// Handler serves ledger statement endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler constructs a Handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// List returns company-scoped ledger entries filtered by query parameters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	companyID, ok := shared.CompanyFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	filter := ListFilter{CompanyID: companyID}
	q := r.URL.Query()
	if v := q.Get("party_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.RespondError(w, httpx.ErrValidation)
			return
		}
		filter.PartyID = id
	}
	filter.TxnType = TxnType(q.Get("txn_type"))
	if v := q.Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.RespondError(w, httpx.ErrValidation)
			return
		}
		filter.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.RespondError(w, httpx.ErrValidation)
			return
		}
		filter.To = t
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	entries, err := h.repo.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, "ledger entries", entries)
}
