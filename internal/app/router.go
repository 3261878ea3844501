package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dokanhq/dokan/internal/catalog"
	"github.com/dokanhq/dokan/internal/ledger"
	"github.com/dokanhq/dokan/internal/observability"
	"github.com/dokanhq/dokan/internal/party"
	"github.com/dokanhq/dokan/internal/payments"
	"github.com/dokanhq/dokan/internal/platform/httpx"
	"github.com/dokanhq/dokan/internal/purchases"
	"github.com/dokanhq/dokan/internal/reports"
	"github.com/dokanhq/dokan/internal/sales"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics
	Pool    *pgxpool.Pool

	PartyHandler     *party.Handler
	CatalogHandler   *catalog.Handler
	LedgerHandler    *ledger.Handler
	SalesHandler     *sales.Handler
	PurchasesHandler *purchases.Handler
	PaymentsHandler  *payments.Handler
	ReportsHandler   *reports.Handler
}

// NewRouter assembles the HTTP surface. Everything under /api is tenant
// scoped; health and metrics are not.
func NewRouter(p RouterParams) chi.Router {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{Logger: p.Logger, Config: p.Config, Metrics: p.Metrics}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if p.Pool != nil {
			if err := p.Pool.Ping(ctx); err != nil {
				httpx.Problem(w, http.StatusServiceUnavailable, "unavailable", "database unreachable")
				return
			}
		}
		httpx.OK(w, "ok", nil)
	})
	if p.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", p.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(TenantMiddleware(p.Logger))
		r.Mount("/parties", party.Routes(p.PartyHandler))
		r.Mount("/catalog", catalog.Routes(p.CatalogHandler))
		r.Mount("/ledger", ledger.Routes(p.LedgerHandler))
		r.Mount("/sales", sales.Routes(p.SalesHandler))
		r.Mount("/purchases", purchases.Routes(p.PurchasesHandler))
		r.Mount("/payments", payments.Routes(p.PaymentsHandler))
		r.Mount("/reports", reports.Routes(p.ReportsHandler))
	})

	return r
}
