package auth

import (
	"context"
	"database/sql"
	"errors"

	masterdatarepo "condo-cloud/internal/masterdata/infrastructure/postgres"
)

var (
	// ErrBuildingMismatch indicates the resource belongs to a different building.
	ErrBuildingMismatch = errors.New("building mismatch")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("resource not found")
)

// UnitBuildingChecker validates unit ownership against a building.
type UnitBuildingChecker interface {
	EnsureUnitBuilding(ctx context.Context, buildingID, unitID string) error
}

// UnitChecker checks unit ownership using masterdata.
type UnitChecker struct {
	repo *masterdatarepo.UnitRepository
}

// NewUnitChecker constructs a UnitChecker.
func NewUnitChecker(db *sql.DB) *UnitChecker {
	if db == nil {
		return nil
	}
	return &UnitChecker{repo: masterdatarepo.NewUnitRepository(db)}
}

// EnsureUnitBuilding verifies the unit belongs to the building.
func (c *UnitChecker) EnsureUnitBuilding(ctx context.Context, buildingID, unitID string) error {
	if c == nil || c.repo == nil {
		return nil
	}
	if buildingID == "" || unitID == "" {
		return nil
	}
	unit, err := c.repo.Get(ctx, unitID)
	if err != nil {
		return err
	}
	if unit == nil {
		return ErrNotFound
	}
	if unit.BuildingID != buildingID {
		return ErrBuildingMismatch
	}
	return nil
}
