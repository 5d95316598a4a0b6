package interfaces

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"condo-cloud/internal/audit"
	"condo-cloud/internal/auth"
	masterdata "condo-cloud/internal/masterdata/domain"
)

// UnitHandler handles unit roster APIs.
type UnitHandler struct {
	repo        masterdata.UnitRepository
	auditLogger audit.Logger
	buildingID  string
}

// NewUnitHandler constructs a handler.
func NewUnitHandler(repo masterdata.UnitRepository, auditLogger audit.Logger, buildingID string) (*UnitHandler, error) {
	if repo == nil {
		return nil, errors.New("unit handler: nil repo")
	}
	if buildingID == "" {
		return nil, errors.New("unit handler: empty building id")
	}
	return &UnitHandler{repo: repo, auditLogger: auditLogger, buildingID: buildingID}, nil
}

// ServeHTTP handles routes under /api/v1/units.
func (h *UnitHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/units")
	rest = strings.Trim(rest, "/")
	switch {
	case rest == "" && r.Method == http.MethodGet:
		h.handleList(w, r)
	case rest == "" && r.Method == http.MethodPost:
		h.handleSave(w, r, "")
	case rest != "" && r.Method == http.MethodGet:
		h.handleGet(w, r, rest)
	case rest != "" && r.Method == http.MethodPut:
		h.handleSave(w, r, rest)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *UnitHandler) handleList(w http.ResponseWriter, r *http.Request) {
	units, err := h.repo.ListByBuilding(r.Context(), h.buildingID)
	if err != nil {
		http.Error(w, "list units error", http.StatusInternalServerError)
		return
	}
	if units == nil {
		units = []masterdata.Unit{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(unitResponses(units))
}

func (h *UnitHandler) handleGet(w http.ResponseWriter, r *http.Request, unitID string) {
	unit, err := h.repo.Get(r.Context(), unitID)
	if err != nil {
		http.Error(w, "get unit error", http.StatusInternalServerError)
		return
	}
	if unit == nil || unit.BuildingID != h.buildingID {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(unitResponse(*unit))
}

func (h *UnitHandler) handleSave(w http.ResponseWriter, r *http.Request, unitID string) {
	var req struct {
		Number      string  `json:"number"`
		FloorAreaM2 float64 `json:"floor_area_m2"`
		Coefficient float64 `json:"coefficient"`
		Occupants   int     `json:"occupants"`
		Status      string  `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	now := time.Now().UTC()
	created := false
	var unit *masterdata.Unit
	if unitID == "" {
		created = true
		unit = &masterdata.Unit{
			ID:         newUnitID(),
			BuildingID: h.buildingID,
			CreatedAt:  now,
		}
	} else {
		existing, err := h.repo.Get(r.Context(), unitID)
		if err != nil {
			http.Error(w, "get unit error", http.StatusInternalServerError)
			return
		}
		if existing == nil || existing.BuildingID != h.buildingID {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		unit = existing
	}

	unit.Number = req.Number
	unit.FloorAreaM2 = req.FloorAreaM2
	unit.Coefficient = req.Coefficient
	unit.Occupants = req.Occupants
	if req.Status != "" {
		unit.Status = masterdata.UnitStatus(req.Status)
	} else if unit.Status == "" {
		unit.Status = masterdata.UnitStatusOccupied
	}
	unit.UpdatedAt = now

	if err := unit.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.repo.Save(r.Context(), unit); err != nil {
		http.Error(w, "save unit error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if created {
		w.WriteHeader(http.StatusCreated)
	}
	_ = json.NewEncoder(w).Encode(unitResponse(*unit))

	action := "unit.update"
	if created {
		action = "unit.create"
	}
	h.logAudit(r, action, unit.ID, map[string]any{
		"number": unit.Number,
		"status": string(unit.Status),
	})
}

func unitResponse(unit masterdata.Unit) map[string]any {
	return map[string]any{
		"id":            unit.ID,
		"building_id":   unit.BuildingID,
		"number":        unit.Number,
		"floor_area_m2": unit.FloorAreaM2,
		"coefficient":   unit.Coefficient,
		"occupants":     unit.Occupants,
		"status":        string(unit.Status),
		"created_at":    unit.CreatedAt,
		"updated_at":    unit.UpdatedAt,
	}
}

func unitResponses(units []masterdata.Unit) []map[string]any {
	out := make([]map[string]any, 0, len(units))
	for _, unit := range units {
		out = append(out, unitResponse(unit))
	}
	return out
}

func (h *UnitHandler) logAudit(r *http.Request, action, unitID string, meta map[string]any) {
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
		ResourceType: "unit",
		ResourceID:   unitID,
		UnitID:       unitID,
		Metadata:     payload,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}

func newUnitID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return "unit-" + hex.EncodeToString(buf)
}
