package reports

import (
	"net/http"
	"time"

	"github.com/dokanhq/dokan/internal/platform/httpx"
	"github.com/dokanhq/dokan/internal/shared"
)

// Handler serves report endpoints.
type Handler struct {
	svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	companyID, ok := shared.CompanyFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	q := r.URL.Query()
	var from, to time.Time
	if v := q.Get("from"); v != "" {
		from, _ = time.Parse(time.DateOnly, v)
	}
	if v := q.Get("to"); v != "" {
		to, _ = time.Parse(time.DateOnly, v)
	}
	dashboard, err := h.svc.Dashboard(r.Context(), companyID, from, to)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, "dashboard", dashboard)
}

func (h *Handler) Invalidate(w http.ResponseWriter, r *http.Request) {
	if _, ok := shared.CompanyFromContext(r.Context()); !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	if err := h.svc.Invalidate(r.Context()); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, "report cache invalidated", nil)
}
