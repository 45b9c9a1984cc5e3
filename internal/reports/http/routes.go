package reporthttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes registers report endpoints. CSV exports share a tighter
// per-IP limit than the JSON views.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Get("/design-wise", h.handleDesignWise)
	r.Get("/beam-summary", h.handleBeamSummary)
	r.Get("/allocation-summary", h.handleAllocationSummary)
	r.Group(func(gr chi.Router) {
		gr.Use(exportLimiter())
		gr.Get("/lot-register", h.handleLotRegister)
		gr.Get("/partywise", h.handlePartyWise)
	})
}

func exportLimiter() func(http.Handler) http.Handler {
	return httprate.Limit(30, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)
}
