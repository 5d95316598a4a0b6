package interfaces

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"condo-cloud/internal/audit"
	"condo-cloud/internal/auth"
	expenses "condo-cloud/internal/expenses/domain"
)

// ExpenseHandler handles expense APIs.
type ExpenseHandler struct {
	repo        expenses.Repository
	auditLogger audit.Logger
	buildingID  string
}

// NewExpenseHandler constructs a handler.
func NewExpenseHandler(repo expenses.Repository, auditLogger audit.Logger, buildingID string) (*ExpenseHandler, error) {
	if repo == nil {
		return nil, errors.New("expense handler: nil repo")
	}
	if buildingID == "" {
		return nil, errors.New("expense handler: empty building id")
	}
	return &ExpenseHandler{repo: repo, auditLogger: auditLogger, buildingID: buildingID}, nil
}

// ServeHTTP handles /api/v1/expenses.
func (h *ExpenseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/v1/expenses" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	switch r.Method {
	case http.MethodPost:
		h.handleCreate(w, r)
	case http.MethodGet:
		h.handleList(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *ExpenseHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category    string `json:"category"`
		Vendor      string `json:"vendor"`
		Description string `json:"description"`
		Amount      int64  `json:"amount"`
		IncurredOn  string `json:"incurred_on"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	incurredOn, err := time.Parse("2006-01-02", req.IncurredOn)
	if err != nil {
		http.Error(w, "invalid incurred_on", http.StatusBadRequest)
		return
	}
	expense := &expenses.Expense{
		ID:          newExpenseID(),
		BuildingID:  h.buildingID,
		Category:    req.Category,
		Vendor:      req.Vendor,
		Description: req.Description,
		Amount:      req.Amount,
		IncurredOn:  incurredOn.UTC(),
		CreatedAt:   time.Now().UTC(),
	}
	if err := expense.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.repo.Create(r.Context(), expense); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(expense)
	h.logAudit(r, expense.ID, map[string]any{
		"category": expense.Category,
		"amount":   expense.Amount,
	})
}

func (h *ExpenseHandler) handleList(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	list, err := h.repo.ListInRange(r.Context(), h.buildingID, from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if list == nil {
		list = []expenses.Expense{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

// parseRange reads from/to query params, defaulting to the last 90 days.
func parseRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -90)
	to := now
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid from")
		}
		from = parsed.UTC()
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid to")
		}
		to = parsed.UTC()
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, errors.New("to before from")
	}
	return from, to, nil
}

func (h *ExpenseHandler) logAudit(r *http.Request, expenseID string, meta map[string]any) {
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
		Action:       "expense.create",
		ResourceType: "expense",
		ResourceID:   expenseID,
		Metadata:     payload,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}

func newExpenseID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return "exp-" + hex.EncodeToString(buf)
}
