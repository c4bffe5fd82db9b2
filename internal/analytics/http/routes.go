package analytichttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/odyssey-erp/odyssey-receivables/internal/analytics"
)

// MountRoutes registers the report endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(h.exportLimit, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Get("/"+string(analytics.ReportReceivables)+".xlsx", h.handleWorkbook(analytics.ReportReceivables))
	r.Get("/"+string(analytics.ReportInvoices)+".xlsx", h.handleWorkbook(analytics.ReportInvoices))
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		if h.pdf != nil {
			gr.Get("/"+string(analytics.ReportReceivables)+".pdf", h.handlePDF)
		}
		if h.exports != nil {
			gr.Post("/exports", h.handleSubmitExport)
		}
	})
	if h.exports != nil {
		r.Get("/exports/{id}", h.handleGetExport)
	}
}

func rateLimitKey(r *http.Request) (string, error) {
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
