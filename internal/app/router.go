package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/weavetrack/weavetrack/internal/lots"
	"github.com/weavetrack/weavetrack/internal/masterdata"
	"github.com/weavetrack/weavetrack/internal/observability"
	"github.com/weavetrack/weavetrack/internal/orders"
	reporthttp "github.com/weavetrack/weavetrack/internal/reports/http"
	"github.com/weavetrack/weavetrack/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	MasterDataHandler *masterdata.Handler
	OrdersHandler     *orders.Handler
	LotsHandler       *lots.Handler
	ReportsHandler    *reporthttp.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with weavetrack defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.MasterDataHandler != nil {
		r.Route("/masterdata", params.MasterDataHandler.MountRoutes)
	}
	if params.OrdersHandler != nil {
		r.Route("/orders", params.OrdersHandler.MountRoutes)
	}
	if params.LotsHandler != nil {
		r.Route("/lots", params.LotsHandler.MountRoutes)
	}
	if params.ReportsHandler != nil {
		r.Route("/reports", params.ReportsHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	return r
}
