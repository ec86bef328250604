package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/biznooks/biznooks/internal/fx"
	"github.com/biznooks/biznooks/internal/invoice"
	"github.com/biznooks/biznooks/internal/ledger"
	"github.com/biznooks/biznooks/internal/rates"
	"github.com/biznooks/biznooks/internal/reports"
	"github.com/biznooks/biznooks/internal/webhook"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	LedgerHandler  *ledger.Handler
	RatesHandler   *rates.Handler
	InvoiceHandler *invoice.Handler
	WebhookHandler *webhook.Handler
	FXHandler      *fx.Handler
	ReportsHandler *reports.Handler
}

// NewRouter constructs the chi.Router with Biznooks defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/ledger", params.LedgerHandler.MountRoutes)
	r.Route("/fxrates", params.RatesHandler.MountRoutes)
	r.Route("/invoices", params.InvoiceHandler.MountRoutes)
	r.Route("/webhook", params.WebhookHandler.MountRoutes)
	r.Route("/fx", params.FXHandler.MountRoutes)
	r.Route("/reports", params.ReportsHandler.MountRoutes)

	return r
}
