package masterdata

import (
	"context"
	"errors"
	"time"
)

// UnitStatus describes occupancy of a unit.
type UnitStatus string

const (
	UnitStatusVacant   UnitStatus = "vacant"
	UnitStatusOccupied UnitStatus = "occupied"
)

// Unit represents a single apartment or commercial unit in the roster.
// Units are long-lived reference data; charges reference them by id.
type Unit struct {
	ID          string
	BuildingID  string
	Number      string
	FloorAreaM2 float64
	Coefficient float64
	Occupants   int
	Status      UnitStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks unit invariants.
func (u Unit) Validate() error {
	if u.ID == "" {
		return errors.New("unit: empty id")
	}
	if u.BuildingID == "" {
		return errors.New("unit: empty building id")
	}
	if u.Number == "" {
		return errors.New("unit: empty number")
	}
	if u.FloorAreaM2 < 0 {
		return errors.New("unit: negative floor area")
	}
	if u.Coefficient < 0 {
		return errors.New("unit: negative coefficient")
	}
	if u.Occupants < 0 {
		return errors.New("unit: negative occupants")
	}
	switch u.Status {
	case UnitStatusVacant, UnitStatusOccupied:
	default:
		return errors.New("unit: invalid status")
	}
	return nil
}

// UnitRepository manages unit persistence.
type UnitRepository interface {
	Get(ctx context.Context, id string) (*Unit, error)
	ListByBuilding(ctx context.Context, buildingID string) ([]Unit, error)
	Save(ctx context.Context, unit *Unit) error
}
