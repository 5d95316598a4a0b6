package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"condo-cloud/internal/audit"
	"condo-cloud/internal/auth"
	chargeapp "condo-cloud/internal/billing/application"
	billing "condo-cloud/internal/billing/domain"
	"condo-cloud/internal/money"
	"condo-cloud/internal/observability/metrics"
)

// ChargeHandler handles charge and payment APIs.
type ChargeHandler struct {
	service     *chargeapp.ChargeService
	unitChecker auth.UnitBuildingChecker
	auditLogger audit.Logger
}

// NewChargeHandler constructs a handler.
func NewChargeHandler(service *chargeapp.ChargeService, unitChecker auth.UnitBuildingChecker, auditLogger audit.Logger) (*ChargeHandler, error) {
	if service == nil {
		return nil, errors.New("charge handler: nil service")
	}
	return &ChargeHandler{service: service, unitChecker: unitChecker, auditLogger: auditLogger}, nil
}

// ServeHTTP handles routes under /api/v1/charges and /api/v1/payments.
func (h *ChargeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/api/v1/charges" {
		switch r.Method {
		case http.MethodPost:
			h.handleCreate(w, r)
			return
		case http.MethodGet:
			h.handleList(w, r)
			return
		}
	}
	if strings.HasPrefix(path, "/api/v1/charges/") {
		rest := strings.TrimPrefix(path, "/api/v1/charges/")
		h.handleChargeByID(w, r, rest)
		return
	}
	if path == "/api/v1/payments" && r.Method == http.MethodPost {
		h.handleSubmitPayment(w, r)
		return
	}
	if strings.HasPrefix(path, "/api/v1/payments/") {
		rest := strings.TrimPrefix(path, "/api/v1/payments/")
		h.handlePaymentByID(w, r, rest)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

type chargeItemRequest struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Amount   int64  `json:"amount"`
	Method   string `json:"method,omitempty"`
}

type createChargeRequest struct {
	Title          string              `json:"title"`
	TotalAmount    int64               `json:"total_amount"`
	Method         string              `json:"method"`
	DueDate        string              `json:"due_date"`
	PeriodStart    string              `json:"period_start,omitempty"`
	PeriodEnd      string              `json:"period_end,omitempty"`
	LateFeePercent float64             `json:"late_fee_percent,omitempty"`
	Items          []chargeItemRequest `json:"items,omitempty"`
}

func (h *ChargeHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createChargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		http.Error(w, "invalid due_date", http.StatusBadRequest)
		return
	}
	periodStart, err := parseOptionalDate(req.PeriodStart)
	if err != nil {
		http.Error(w, "invalid period_start", http.StatusBadRequest)
		return
	}
	periodEnd, err := parseOptionalDate(req.PeriodEnd)
	if err != nil {
		http.Error(w, "invalid period_end", http.StatusBadRequest)
		return
	}

	charge := &billing.Charge{
		Title:          req.Title,
		TotalAmount:    req.TotalAmount,
		Method:         billing.DistributionMethod(req.Method),
		DueDate:        dueDate,
		PeriodStart:    periodStart,
		PeriodEnd:      periodEnd,
		LateFeePercent: req.LateFeePercent,
	}
	for _, item := range req.Items {
		charge.Items = append(charge.Items, billing.ChargeItem{
			Title:    item.Title,
			Category: item.Category,
			Amount:   item.Amount,
			Method:   billing.DistributionMethod(item.Method),
		})
	}
	created, err := h.service.CreateCharge(r.Context(), charge)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(chargeResponse(created))
	h.logAudit(r, "", created.ID, "charge.create", map[string]any{
		"title":        created.Title,
		"total_amount": created.TotalAmount,
		"method":       created.Method,
	})
}

func (h *ChargeHandler) handleList(w http.ResponseWriter, r *http.Request) {
	charges, err := h.service.List(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	resp := make([]map[string]any, 0, len(charges))
	for i := range charges {
		resp = append(resp, chargeResponse(&charges[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *ChargeHandler) handleChargeByID(w http.ResponseWriter, r *http.Request, rest string) {
	if rest == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	if len(parts) == 1 && r.Method == http.MethodGet {
		h.handleGet(w, r, id)
		return
	}
	if len(parts) == 2 {
		switch parts[1] {
		case "issue":
			if r.Method == http.MethodPost {
				h.handleIssue(w, r, id)
				return
			}
		case "cancel":
			if r.Method == http.MethodPost {
				h.handleCancel(w, r, id)
				return
			}
		case "payments":
			if r.Method == http.MethodGet {
				h.handlePayments(w, r, id)
				return
			}
		case "export.pdf":
			if r.Method == http.MethodGet {
				h.handleExportPDF(w, r, id)
				return
			}
		case "export.xlsx":
			if r.Method == http.MethodGet {
				h.handleExportXLSX(w, r, id)
				return
			}
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *ChargeHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	charge, allocations, progress, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	resp := map[string]any{
		"charge":      chargeResponse(charge),
		"progress":    progress,
		"allocations": allocationResponses(allocations),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

type issueChargeRequest struct {
	CustomWeights map[string]float64 `json:"custom_weights,omitempty"`
	CustomAmounts map[string]int64   `json:"custom_amounts,omitempty"`
}

func (h *ChargeHandler) handleIssue(w http.ResponseWriter, r *http.Request, id string) {
	var req issueChargeRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	var custom *billing.CustomSplit
	if len(req.CustomWeights) > 0 || len(req.CustomAmounts) > 0 {
		custom = &billing.CustomSplit{Weights: req.CustomWeights, Amounts: req.CustomAmounts}
	}
	charge, allocations, err := h.service.Issue(r.Context(), id, custom)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	resp := map[string]any{
		"charge":      chargeResponse(charge),
		"allocations": allocationResponses(allocations),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
	h.logAudit(r, "", charge.ID, "charge.issue", map[string]any{
		"unit_count":   len(allocations),
		"total_amount": charge.EffectiveTotal(),
	})
}

func (h *ChargeHandler) handleCancel(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Reason string `json:"reason"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	charge, err := h.service.Cancel(r.Context(), id, req.Reason)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(chargeResponse(charge))
	h.logAudit(r, "", charge.ID, "charge.cancel", map[string]any{
		"reason": req.Reason,
	})
}

func (h *ChargeHandler) handlePayments(w http.ResponseWriter, r *http.Request, id string) {
	payments, err := h.service.Payments(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	resp := make([]map[string]any, 0, len(payments))
	for i := range payments {
		resp = append(resp, paymentResponse(&payments[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

type submitPaymentRequest struct {
	ChargeID  string `json:"charge_id"`
	UnitID    string `json:"unit_id"`
	Amount    int64  `json:"amount"`
	Method    string `json:"method"`
	Reference string `json:"reference,omitempty"`
}

func (h *ChargeHandler) handleSubmitPayment(w http.ResponseWriter, r *http.Request) {
	var req submitPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	buildingID := auth.BuildingIDFromContext(r.Context())
	if buildingID != "" {
		if err := ensureUnitBuilding(r, h.unitChecker, buildingID, req.UnitID); err != nil {
			respondBuildingError(w, err)
			return
		}
	}
	payment := &billing.Payment{
		ChargeID:  req.ChargeID,
		UnitID:    req.UnitID,
		Amount:    req.Amount,
		Method:    billing.PaymentMethod(req.Method),
		Reference: req.Reference,
	}
	created, err := h.service.SubmitPayment(r.Context(), payment)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(paymentResponse(created))
	h.logAudit(r, created.UnitID, created.ID, "payment.submit", map[string]any{
		"charge_id": created.ChargeID,
		"amount":    created.Amount,
		"method":    created.Method,
	})
}

func (h *ChargeHandler) handlePaymentByID(w http.ResponseWriter, r *http.Request, rest string) {
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || r.Method != http.MethodPost {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	id := parts[0]
	switch parts[1] {
	case "verify":
		outcome, err := h.service.VerifyPayment(r.Context(), id)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		resp := map[string]any{
			"payment_id":   id,
			"unit_status":  outcome.Status,
			"new_paid_sum": outcome.NewPaidSum,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
		h.logAudit(r, "", id, "payment.verify", map[string]any{
			"unit_status":  outcome.Status,
			"new_paid_sum": outcome.NewPaidSum,
		})
	case "reject":
		if err := h.service.RejectPayment(r.Context(), id); err != nil {
			respondServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"payment_id": id, "status": billing.PaymentStatusRejected})
		h.logAudit(r, "", id, "payment.reject", nil)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *ChargeHandler) handleExportPDF(w http.ResponseWriter, r *http.Request, id string) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveExport("pdf", result, time.Since(start))
	}()

	charge, allocations, progress, err := h.service.Get(r.Context(), id)
	if err != nil {
		result = metrics.ResultError
		respondServiceError(w, err)
		return
	}
	data, err := BuildChargePDF(charge, allocations, progress)
	if err != nil {
		result = metrics.ResultError
		http.Error(w, "export pdf error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	h.logAudit(r, "", charge.ID, "charge.export", map[string]any{"format": "pdf"})
}

func (h *ChargeHandler) handleExportXLSX(w http.ResponseWriter, r *http.Request, id string) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveExport("xlsx", result, time.Since(start))
	}()

	charge, allocations, progress, err := h.service.Get(r.Context(), id)
	if err != nil {
		result = metrics.ResultError
		respondServiceError(w, err)
		return
	}
	data, err := BuildChargeXLSX(charge, allocations, progress)
	if err != nil {
		result = metrics.ResultError
		http.Error(w, "export xlsx error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	h.logAudit(r, "", charge.ID, "charge.export", map[string]any{"format": "xlsx"})
}

func (h *ChargeHandler) logAudit(r *http.Request, unitID, resourceID, action string, meta map[string]any) {
	if h.auditLogger == nil {
		return
	}
	buildingID := auth.BuildingIDFromContext(r.Context())
	if buildingID == "" {
		return
	}
	payload, _ := json.Marshal(meta)
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		BuildingID:   buildingID,
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: resourceTypeForAction(action),
		ResourceID:   resourceID,
		UnitID:       unitID,
		Metadata:     payload,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}

func resourceTypeForAction(action string) string {
	if strings.HasPrefix(action, "payment.") {
		return "payment"
	}
	return "charge"
}

func chargeResponse(charge *billing.Charge) map[string]any {
	resp := map[string]any{
		"id":               charge.ID,
		"building_id":      charge.BuildingID,
		"title":            charge.Title,
		"total_amount":     charge.TotalAmount,
		"effective_total":  charge.EffectiveTotal(),
		"method":           charge.Method,
		"due_date":         charge.DueDate.Format("2006-01-02"),
		"late_fee_percent": charge.LateFeePercent,
		"status":           charge.Status,
		"created_at":       charge.CreatedAt,
	}
	if !charge.PeriodStart.IsZero() {
		resp["period_start"] = charge.PeriodStart.Format("2006-01-02")
	}
	if !charge.PeriodEnd.IsZero() {
		resp["period_end"] = charge.PeriodEnd.Format("2006-01-02")
	}
	if !charge.IssuedAt.IsZero() {
		resp["issued_at"] = charge.IssuedAt
	}
	if !charge.CancelledAt.IsZero() {
		resp["cancelled_at"] = charge.CancelledAt
	}
	if len(charge.Items) > 0 {
		items := make([]map[string]any, 0, len(charge.Items))
		for _, item := range charge.Items {
			items = append(items, map[string]any{
				"id":       item.ID,
				"title":    item.Title,
				"category": item.Category,
				"amount":   item.Amount,
				"method":   item.Method,
			})
		}
		resp["items"] = items
	}
	return resp
}

func allocationResponses(allocations []billing.Allocation) []map[string]any {
	resp := make([]map[string]any, 0, len(allocations))
	for _, alloc := range allocations {
		resp = append(resp, map[string]any{
			"unit_id":  alloc.UnitID,
			"amount":   alloc.Amount,
			"status":   alloc.Status,
			"paid_sum": alloc.PaidSum,
		})
	}
	return resp
}

func paymentResponse(payment *billing.Payment) map[string]any {
	resp := map[string]any{
		"id":         payment.ID,
		"charge_id":  payment.ChargeID,
		"unit_id":    payment.UnitID,
		"amount":     payment.Amount,
		"method":     payment.Method,
		"status":     payment.Status,
		"reference":  payment.Reference,
		"created_at": payment.CreatedAt,
	}
	if !payment.VerifiedAt.IsZero() {
		resp["verified_at"] = payment.VerifiedAt
	}
	return resp
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty date")
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func parseOptionalDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return parseDate(value)
}

func ensureUnitBuilding(r *http.Request, checker auth.UnitBuildingChecker, buildingID, unitID string) error {
	if checker == nil || buildingID == "" || unitID == "" {
		return nil
	}
	return checker.EnsureUnitBuilding(r.Context(), buildingID, unitID)
}

func respondBuildingError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, auth.ErrBuildingMismatch) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if errors.Is(err, auth.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	http.Error(w, "building check failed", http.StatusInternalServerError)
}

func respondServiceError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, billing.ErrChargeNotFound),
		errors.Is(err, billing.ErrPaymentNotFound),
		errors.Is(err, billing.ErrAllocationNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, billing.ErrOverpayment),
		errors.Is(err, billing.ErrChargeNotDraft),
		errors.Is(err, billing.ErrChargeNotIssued),
		errors.Is(err, billing.ErrChargeCancelled):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, money.ErrInvalidAmount),
		errors.Is(err, money.ErrNoRecipients),
		errors.Is(err, billing.ErrAllocationMismatch),
		errors.Is(err, billing.ErrUnknownDistributionMethod):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, auth.ErrBuildingMismatch):
		http.Error(w, "forbidden", http.StatusForbidden)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}
