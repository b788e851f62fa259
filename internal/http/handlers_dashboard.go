package http

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/shopspring/decimal"

	"folio/internal/charts"
	"folio/internal/core"
	"folio/internal/dashboard"
	flog "folio/internal/log"
)

var templateFuncs = template.FuncMap{
	"money": func(d decimal.Decimal, currency string) string {
		return core.FormatMoney(d, currency)
	},
	"pct": func(d decimal.Decimal) string {
		return d.StringFixed(2) + " %"
	},
	"typeLabel": func(t core.AccountType) string {
		return t.Label()
	},
	"platformLabel": core.PlatformLabel,
	"positive": func(d decimal.Decimal) bool {
		return !d.IsNegative()
	},
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storeContext(r)
	defer cancel()
	summary, err := s.portfolio.Summary(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// writePNG renders into a buffer first so that a rendering failure can still
// be reported as a JSON error.
func writePNG(w http.ResponseWriter, r *http.Request, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleHistoryChart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storeContext(r)
	defer cancel()
	summary, err := s.portfolio.Summary(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	currency, err := s.portfolio.Currency(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePNG(w, r, func(buf *bytes.Buffer) error {
		return charts.History(buf, summary.History, currency)
	})
}

func (s *Server) handleAllocationChart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storeContext(r)
	defer cancel()
	summary, err := s.portfolio.Summary(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePNG(w, r, func(buf *bytes.Buffer) error {
		return charts.Allocation(buf, summary.Allocation)
	})
}

type dashboardPage struct {
	Currency string
	Summary  dashboard.Summary
}

func (s *Server) handleDashboardPage(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		flog.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded", flog.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	ctx, cancel := s.storeContext(r)
	defer cancel()
	summary, err := s.portfolio.Summary(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	currency, err := s.portfolio.Currency(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "dashboard.html", dashboardPage{Currency: currency, Summary: summary}); err != nil {
		flog.FromContext(ctx).ErrorContext(ctx, "Dashboard template execution failed",
			flog.FieldError, err, flog.FieldOperation, flog.OpRender)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
