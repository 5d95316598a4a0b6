package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	masterdata "condo-cloud/internal/masterdata/domain"
)

const defaultUnitsTable = "units"

// UnitRepository is a Postgres implementation for units.
type UnitRepository struct {
	db    *sql.DB
	table string
}

// NewUnitRepository constructs a repository.
func NewUnitRepository(db *sql.DB, opts ...UnitOption) *UnitRepository {
	repo := &UnitRepository{db: db, table: defaultUnitsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// UnitOption configures the repository.
type UnitOption func(*UnitRepository)

// WithUnitTable overrides the default table name.
func WithUnitTable(table string) UnitOption {
	return func(repo *UnitRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Get loads a unit by id.
func (r *UnitRepository) Get(ctx context.Context, id string) (*masterdata.Unit, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("unit repo: nil db")
	}
	if id == "" {
		return nil, errors.New("unit repo: empty id")
	}

	query := fmt.Sprintf(`
SELECT id, building_id, number, floor_area_m2, coefficient, occupants, status, created_at, updated_at
FROM %s
WHERE id = $1
LIMIT 1`, r.table)

	var unit masterdata.Unit
	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&unit.ID,
		&unit.BuildingID,
		&unit.Number,
		&unit.FloorAreaM2,
		&unit.Coefficient,
		&unit.Occupants,
		&unit.Status,
		&unit.CreatedAt,
		&unit.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	unit.CreatedAt = unit.CreatedAt.UTC()
	unit.UpdatedAt = unit.UpdatedAt.UTC()
	return &unit, nil
}

// ListByBuilding returns the roster for a building ordered by unit id.
func (r *UnitRepository) ListByBuilding(ctx context.Context, buildingID string) ([]masterdata.Unit, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("unit repo: nil db")
	}
	if buildingID == "" {
		return nil, errors.New("unit repo: empty building id")
	}

	query := fmt.Sprintf(`
SELECT id, building_id, number, floor_area_m2, coefficient, occupants, status, created_at, updated_at
FROM %s
WHERE building_id = $1
ORDER BY id ASC`, r.table)

	rows, err := r.db.QueryContext(ctx, query, buildingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []masterdata.Unit
	for rows.Next() {
		var unit masterdata.Unit
		if err := rows.Scan(
			&unit.ID,
			&unit.BuildingID,
			&unit.Number,
			&unit.FloorAreaM2,
			&unit.Coefficient,
			&unit.Occupants,
			&unit.Status,
			&unit.CreatedAt,
			&unit.UpdatedAt,
		); err != nil {
			return nil, err
		}
		unit.CreatedAt = unit.CreatedAt.UTC()
		unit.UpdatedAt = unit.UpdatedAt.UTC()
		units = append(units, unit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return units, nil
}

// Save upserts a unit.
func (r *UnitRepository) Save(ctx context.Context, unit *masterdata.Unit) error {
	if r == nil || r.db == nil {
		return errors.New("unit repo: nil db")
	}
	if unit == nil {
		return errors.New("unit repo: nil unit")
	}
	if err := unit.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	building_id,
	number,
	floor_area_m2,
	coefficient,
	occupants,
	status
) VALUES (
	$1, $2, $3, $4, $5, $6, $7
)
ON CONFLICT (id)
DO UPDATE SET
	building_id = EXCLUDED.building_id,
	number = EXCLUDED.number,
	floor_area_m2 = EXCLUDED.floor_area_m2,
	coefficient = EXCLUDED.coefficient,
	occupants = EXCLUDED.occupants,
	status = EXCLUDED.status,
	updated_at = NOW()`, r.table)

	_, err := r.db.ExecContext(
		ctx,
		query,
		unit.ID,
		unit.BuildingID,
		unit.Number,
		unit.FloorAreaM2,
		unit.Coefficient,
		unit.Occupants,
		unit.Status,
	)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if unit.CreatedAt.IsZero() {
		unit.CreatedAt = now
	}
	unit.UpdatedAt = now
	return nil
}
