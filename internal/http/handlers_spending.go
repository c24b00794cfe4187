package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"receipts/internal/chart"
	"receipts/internal/core"
	"receipts/internal/export"
	applog "receipts/internal/log"
)

// spendingQuery reads ?period=, ?dimension= and ?id=, writing a 400 when
// any of them is malformed.
func spendingQuery(w http.ResponseWriter, r *http.Request) (core.Dimension, core.Period, bool) {
	p, err := parsePeriod(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return core.Dimension{}, 0, false
	}
	dim, err := parseDimension(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return core.Dimension{}, 0, false
	}
	return dim, p, true
}

// totalsKind reads ?by=, which must name an entity kind.
func totalsKind(w http.ResponseWriter, r *http.Request) (core.DimensionKind, bool) {
	kind, err := core.ParseDimensionKind(r.URL.Query().Get("by"))
	if err == nil && kind == core.AllSpending {
		err = errors.New("by must name an entity kind: shop, product, category, producer or variant")
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return kind, true
}

func (s *Server) handleSpendingReport(w http.ResponseWriter, r *http.Request) {
	dim, p, ok := spendingQuery(w, r)
	if !ok {
		return
	}
	report, err := s.spending.Report(r.Context(), dim, p)
	if err != nil {
		writeInternal(w, r, "spending report failed", err)
		return
	}
	writeJSON(w, http.StatusOK, reportOf(report, s.spending.Location()))
}

func (s *Server) handleSpendingTotal(w http.ResponseWriter, r *http.Request) {
	dim, err := parseDimension(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	total, err := s.spending.Total(r.Context(), dim)
	if err != nil {
		writeInternal(w, r, "spending total failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"dimension": dimensionOfView(dim),
		"total":     total.String(),
	})
}

func (s *Server) handleSpendingTotals(w http.ResponseWriter, r *http.Request) {
	kind, ok := totalsKind(w, r)
	if !ok {
		return
	}
	totals, err := s.spending.Totals(r.Context(), kind)
	if err != nil {
		writeInternal(w, r, "spending totals failed", err)
		return
	}
	writeJSON(w, http.StatusOK, viewList(totals, entityTotalOf))
}

func (s *Server) handleSpendingChart(w http.ResponseWriter, r *http.Request) {
	dim, p, ok := spendingQuery(w, r)
	if !ok {
		return
	}
	buckets, err := s.spending.Buckets(r.Context(), dim, p)
	if err != nil {
		writeInternal(w, r, "spending chart failed", err)
		return
	}

	loc := s.spending.Location()
	if p == core.Day {
		loc = time.UTC
	}
	cfg, err := chart.SeriesConfig(fmt.Sprintf("Spending per %s (%s)", p, dim), buckets, p, loc)
	s.writeChart(w, r, cfg, err)
}

func (s *Server) handleTotalsChart(w http.ResponseWriter, r *http.Request) {
	kind, ok := totalsKind(w, r)
	if !ok {
		return
	}
	totals, err := s.spending.Totals(r.Context(), kind)
	if err != nil {
		writeInternal(w, r, "totals chart failed", err)
		return
	}
	cfg, err := chart.TotalsConfig("Spending by "+kind.String(), totals)
	s.writeChart(w, r, cfg, err)
}

// writeChart answers {"url": ...}. ?short=true, or the server default,
// asks QuickChart for a short link.
func (s *Server) writeChart(w http.ResponseWriter, r *http.Request, cfg string, err error) {
	if errors.Is(err, chart.ErrNoData) {
		writeError(w, http.StatusNotFound, "no spending to chart")
		return
	}
	if err != nil {
		writeInternal(w, r, "chart config failed", err)
		return
	}

	short := s.shortCharts
	if raw := r.URL.Query().Get("short"); raw != "" {
		short = raw == "true" || raw == "1"
	}

	var url string
	if short {
		url, err = chart.ShortURL(cfg)
		if err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Short chart URL failed, falling back to inline URL",
				applog.FieldError, err.Error())
			short = false
		}
	}
	if !short {
		url, err = chart.URL(cfg)
		if err != nil {
			writeInternal(w, r, "chart url failed", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) handlePriceHistory(w http.ResponseWriter, r *http.Request) {
	productID, ok := idOnly(w, r)
	if !ok {
		return
	}
	points, err := s.spending.PriceHistory(r.Context(), productID)
	if err != nil {
		writeInternal(w, r, "price history failed", err)
		return
	}
	loc := s.spending.Location()
	writeJSON(w, http.StatusOK, viewList(points, func(p core.PricePoint) pricePointView {
		return pricePointOf(p, loc)
	}))
}

type writeTracker struct {
	w     io.Writer
	wrote bool
}

func (t *writeTracker) Write(p []byte) (int, error) {
	t.wrote = true
	return t.w.Write(p)
}

// handleExportCSV streams every item as CSV. Once the first byte is out
// a failure can only be logged.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="receipts.csv"`)

	out := &writeTracker{w: w}
	summary, err := export.WriteCSV(r.Context(), out, s.repo, s.spending.Location())
	if err != nil && !out.wrote {
		writeInternal(w, r, "CSV export failed", err)
		return
	}

	logger := applog.FromContext(r.Context()).WithComponent(applog.ComponentExport)
	if err != nil {
		logger.ErrorContext(r.Context(), "CSV export failed midway", applog.FieldError, err.Error())
		return
	}
	logger.InfoContext(r.Context(), "CSV export served", "items", summary.Items, "bytes", summary.Bytes)
}
