package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	masterdata "condo-cloud/internal/masterdata/domain"
)

// UnitRepository is an in-memory roster for tests.
type UnitRepository struct {
	mu   sync.RWMutex
	data map[string]masterdata.Unit
}

// NewUnitRepository constructs a repository.
func NewUnitRepository() *UnitRepository {
	return &UnitRepository{data: make(map[string]masterdata.Unit)}
}

// Get loads a unit by id.
func (r *UnitRepository) Get(ctx context.Context, id string) (*masterdata.Unit, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	unit, ok := r.data[id]
	if !ok {
		return nil, nil
	}
	copied := unit
	return &copied, nil
}

// ListByBuilding returns units for a building ordered by id.
func (r *UnitRepository) ListByBuilding(ctx context.Context, buildingID string) ([]masterdata.Unit, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var units []masterdata.Unit
	for _, unit := range r.data {
		if unit.BuildingID == buildingID {
			units = append(units, unit)
		}
	}
	sort.Slice(units, func(i, j int) bool { return units[i].ID < units[j].ID })
	return units, nil
}

// Save upserts a unit.
func (r *UnitRepository) Save(ctx context.Context, unit *masterdata.Unit) error {
	_ = ctx
	if unit == nil {
		return errors.New("unit repo: nil unit")
	}
	if err := unit.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.data[unit.ID] = *unit
	r.mu.Unlock()
	return nil
}
