package apihttp

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"
)

const timeLayout = time.RFC3339

// PaymentsHandler serves raw payment ledger queries.
type PaymentsHandler struct {
	db         *sql.DB
	buildingID string
}

// NewPaymentsHandler constructs a PaymentsHandler.
func NewPaymentsHandler(db *sql.DB, buildingID string) *PaymentsHandler {
	return &PaymentsHandler{db: db, buildingID: buildingID}
}

// ServeHTTP handles GET /api/v1/payments.
func (h *PaymentsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.db == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}
	if h.buildingID == "" {
		http.Error(w, "building_id is required", http.StatusServiceUnavailable)
		return
	}

	from, err := parseTimeQuery(r, "from")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	to, err := parseTimeQuery(r, "to")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !to.After(from) {
		http.Error(w, "to must be after from", http.StatusBadRequest)
		return
	}
	status := r.URL.Query().Get("status")
	unitID := r.URL.Query().Get("unit_id")

	rows, err := queryPayments(r.Context(), h.db, h.buildingID, status, unitID, from, to)
	if err != nil {
		http.Error(w, "query payments error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rows)
}

// ExportPaymentsCSVHandler serves payment ledger CSV exports.
type ExportPaymentsCSVHandler struct {
	db         *sql.DB
	buildingID string
}

// NewExportPaymentsCSVHandler constructs a ExportPaymentsCSVHandler.
func NewExportPaymentsCSVHandler(db *sql.DB, buildingID string) *ExportPaymentsCSVHandler {
	return &ExportPaymentsCSVHandler{db: db, buildingID: buildingID}
}

// ServeHTTP handles GET /api/v1/exports/payments.csv.
func (h *ExportPaymentsCSVHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.db == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}
	if h.buildingID == "" {
		http.Error(w, "building_id is required", http.StatusServiceUnavailable)
		return
	}

	from, err := parseTimeQuery(r, "from")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	to, err := parseTimeQuery(r, "to")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !to.After(from) {
		http.Error(w, "to must be after from", http.StatusBadRequest)
		return
	}

	rows, err := queryPayments(r.Context(), h.db, h.buildingID, r.URL.Query().Get("status"), r.URL.Query().Get("unit_id"), from, to)
	if err != nil {
		http.Error(w, "query payments error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	writer := csv.NewWriter(w)
	_ = writer.Write([]string{
		"payment_id",
		"charge_id",
		"charge_title",
		"unit_id",
		"amount",
		"method",
		"status",
		"reference",
		"created_at",
		"verified_at",
	})
	for _, row := range rows {
		_ = writer.Write([]string{
			row.ID,
			row.ChargeID,
			row.ChargeTitle,
			row.UnitID,
			formatInt64(row.Amount),
			row.Method,
			row.Status,
			row.Reference,
			formatTime(row.CreatedAt),
			formatTimePtr(row.VerifiedAt),
		})
	}
	writer.Flush()
}

type paymentRow struct {
	ID          string     `json:"id"`
	ChargeID    string     `json:"charge_id"`
	ChargeTitle string     `json:"charge_title"`
	UnitID      string     `json:"unit_id"`
	Amount      int64      `json:"amount"`
	Method      string     `json:"method"`
	Status      string     `json:"status"`
	Reference   string     `json:"reference"`
	CreatedAt   time.Time  `json:"created_at"`
	VerifiedAt  *time.Time `json:"verified_at"`
}

func queryPayments(ctx context.Context, db *sql.DB, buildingID, status, unitID string, from, to time.Time) ([]paymentRow, error) {
	query := `
SELECT
	p.id,
	p.charge_id,
	c.title,
	p.unit_id,
	p.amount,
	p.method,
	p.status,
	p.reference,
	p.created_at,
	p.verified_at
FROM payments p
JOIN charges c ON c.id = p.charge_id
WHERE c.building_id = $1
	AND p.created_at >= $2
	AND p.created_at < $3`
	args := []any{buildingID, from.UTC(), to.UTC()}
	if status != "" {
		args = append(args, status)
		query += "\n\tAND p.status = $" + strconv.Itoa(len(args))
	}
	if unitID != "" {
		args = append(args, unitID)
		query += "\n\tAND p.unit_id = $" + strconv.Itoa(len(args))
	}
	query += "\nORDER BY p.created_at ASC, p.id ASC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []paymentRow
	for rows.Next() {
		var row paymentRow
		var verifiedAt sql.NullTime
		if err := rows.Scan(
			&row.ID,
			&row.ChargeID,
			&row.ChargeTitle,
			&row.UnitID,
			&row.Amount,
			&row.Method,
			&row.Status,
			&row.Reference,
			&row.CreatedAt,
			&verifiedAt,
		); err != nil {
			return nil, err
		}
		row.CreatedAt = row.CreatedAt.UTC()
		if verifiedAt.Valid {
			t := verifiedAt.Time.UTC()
			row.VerifiedAt = &t
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func parseTimeQuery(r *http.Request, key string) (time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return time.Time{}, errors.New(key + " is required")
	}
	parsed, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, errors.New(key + " must be RFC3339")
	}
	return parsed.UTC(), nil
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(timeLayout)
}

func formatTimePtr(value *time.Time) string {
	if value == nil {
		return ""
	}
	return formatTime(*value)
}

func formatInt64(value int64) string {
	return strconv.FormatInt(value, 10)
}
