package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"condo-cloud/internal/observability/metrics"
	reportapp "condo-cloud/internal/reporting/application"
	reporting "condo-cloud/internal/reporting/domain"
)

// ReportHandler serves financial report endpoints.
type ReportHandler struct {
	service *reportapp.ReportService
}

// NewReportHandler constructs a handler.
func NewReportHandler(service *reportapp.ReportService) (*ReportHandler, error) {
	if service == nil {
		return nil, errors.New("report handler: nil service")
	}
	return &ReportHandler{service: service}, nil
}

// ServeHTTP handles routes under /api/v1/reports.
func (h *ReportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/reports/")
	switch path {
	case "income":
		h.handleIncome(w, r)
	case "expense":
		h.handleExpense(w, r)
	case "balance":
		h.handleBalance(w, r)
	case "unit":
		h.handleUnit(w, r)
	case "roster":
		h.handleRoster(w, r)
	case "balance/export.pdf":
		h.handleBalanceExportPDF(w, r)
	case "balance/export.xlsx":
		h.handleBalanceExportXLSX(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *ReportHandler) handleIncome(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	report, err := h.service.Income(r.Context(), rng)
	if err != nil {
		respondReportError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(report)
}

func (h *ReportHandler) handleExpense(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	report, err := h.service.Expense(r.Context(), rng)
	if err != nil {
		respondReportError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(report)
}

func (h *ReportHandler) handleBalance(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	report, err := h.service.Balance(r.Context(), rng)
	if err != nil {
		respondReportError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(report)
}

func (h *ReportHandler) handleUnit(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	unitID := r.URL.Query().Get("unit_id")
	if unitID == "" {
		http.Error(w, "unit_id required", http.StatusBadRequest)
		return
	}
	report, err := h.service.Unit(r.Context(), rng, unitID)
	if err != nil {
		respondReportError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(report)
}

// handleRoster serves the roster-wide settlement rate. It reflects current
// allocation state, so no date range applies.
func (h *ReportHandler) handleRoster(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Roster(r.Context())
	if err != nil {
		respondReportError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(summary)
}

func (h *ReportHandler) handleBalanceExportPDF(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveExport("pdf", result, time.Since(start))
	}()

	rng, ok := h.parseRange(w, r)
	if !ok {
		result = metrics.ResultError
		return
	}
	report, err := h.service.Balance(r.Context(), rng)
	if err != nil {
		result = metrics.ResultError
		respondReportError(w, err)
		return
	}
	income, err := h.service.Income(r.Context(), rng)
	if err != nil {
		result = metrics.ResultError
		respondReportError(w, err)
		return
	}
	expense, err := h.service.Expense(r.Context(), rng)
	if err != nil {
		result = metrics.ResultError
		respondReportError(w, err)
		return
	}
	data, err := BuildBalancePDF(report, income, expense)
	if err != nil {
		result = metrics.ResultError
		http.Error(w, "export pdf error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *ReportHandler) handleBalanceExportXLSX(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveExport("xlsx", result, time.Since(start))
	}()

	rng, ok := h.parseRange(w, r)
	if !ok {
		result = metrics.ResultError
		return
	}
	report, err := h.service.Balance(r.Context(), rng)
	if err != nil {
		result = metrics.ResultError
		respondReportError(w, err)
		return
	}
	income, err := h.service.Income(r.Context(), rng)
	if err != nil {
		result = metrics.ResultError
		respondReportError(w, err)
		return
	}
	expense, err := h.service.Expense(r.Context(), rng)
	if err != nil {
		result = metrics.ResultError
		respondReportError(w, err)
		return
	}
	data, err := BuildBalanceXLSX(report, income, expense)
	if err != nil {
		result = metrics.ResultError
		http.Error(w, "export xlsx error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// parseRange reads from/to query params into a validated window.
func (h *ReportHandler) parseRange(w http.ResponseWriter, r *http.Request) (reporting.DateRange, bool) {
	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		http.Error(w, "invalid from", http.StatusBadRequest)
		return reporting.DateRange{}, false
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		http.Error(w, "invalid to", http.StatusBadRequest)
		return reporting.DateRange{}, false
	}
	// Make the upper bound cover the whole day so a payment verified at
	// any time on the end date is included.
	to = to.Add(24*time.Hour - time.Nanosecond)
	rng, err := reporting.NewDateRange(from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return reporting.DateRange{}, false
	}
	return rng, true
}

func respondReportError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, reporting.ErrInvalidDateRange) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.Error(w, err.Error(), http.StatusBadRequest)
}
