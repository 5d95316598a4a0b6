package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	billing "condo-cloud/internal/billing/domain"
)

// ChargeRepository persists charges, items and allocations.
type ChargeRepository struct {
	db *sql.DB
}

// NewChargeRepository constructs a repository.
func NewChargeRepository(db *sql.DB) *ChargeRepository {
	return &ChargeRepository{db: db}
}

// Create inserts a charge with its items in one transaction.
func (r *ChargeRepository) Create(ctx context.Context, charge *billing.Charge) error {
	if r == nil || r.db == nil {
		return errors.New("charge repo: nil db")
	}
	if charge == nil {
		return errors.New("charge repo: nil charge")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO charges (
	id, building_id, title, total_amount, method, due_date,
	period_start, period_end, late_fee_percent, status, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		charge.ID, charge.BuildingID, charge.Title, charge.TotalAmount, charge.Method, charge.DueDate,
		nullableTime(charge.PeriodStart), nullableTime(charge.PeriodEnd), charge.LateFeePercent, charge.Status, charge.CreatedAt,
	)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	for _, item := range charge.Items {
		_, err := tx.ExecContext(ctx, `
INSERT INTO charge_items (id, charge_id, title, category, amount, method)
VALUES ($1,$2,$3,$4,$5,$6)`,
			item.ID, charge.ID, item.Title, item.Category, item.Amount, string(item.Method))
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// GetByID fetches a charge with its items.
func (r *ChargeRepository) GetByID(ctx context.Context, id string) (*billing.Charge, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("charge repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, building_id, title, total_amount, method, due_date,
	period_start, period_end, late_fee_percent, status,
	created_at, issued_at, cancelled_at
FROM charges
WHERE id = $1
LIMIT 1`, id)
	charge, err := scanCharge(row)
	if err != nil || charge == nil {
		return charge, err
	}
	items, err := r.listItems(ctx, charge.ID)
	if err != nil {
		return nil, err
	}
	charge.Items = items
	return charge, nil
}

// ListByBuilding lists charges for a building, newest first.
func (r *ChargeRepository) ListByBuilding(ctx context.Context, buildingID string) ([]billing.Charge, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("charge repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, building_id, title, total_amount, method, due_date,
	period_start, period_end, late_fee_percent, status,
	created_at, issued_at, cancelled_at
FROM charges
WHERE building_id = $1
ORDER BY created_at DESC, id ASC`, buildingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []billing.Charge
	for rows.Next() {
		charge, err := scanCharge(rows)
		if err != nil {
			return nil, err
		}
		if charge != nil {
			result = append(result, *charge)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *ChargeRepository) listItems(ctx context.Context, chargeID string) ([]billing.ChargeItem, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, charge_id, title, category, amount, method
FROM charge_items
WHERE charge_id = $1
ORDER BY id ASC`, chargeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []billing.ChargeItem
	for rows.Next() {
		var item billing.ChargeItem
		var method string
		if err := rows.Scan(&item.ID, &item.ChargeID, &item.Title, &item.Category, &item.Amount, &method); err != nil {
			return nil, err
		}
		item.Method = billing.DistributionMethod(method)
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// MarkIssued marks a charge issued.
func (r *ChargeRepository) MarkIssued(ctx context.Context, id string, issuedAt time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("charge repo: nil db")
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE charges
SET status = $1, issued_at = $2
WHERE id = $3`, billing.ChargeStatusIssued, issuedAt, id)
	if err != nil {
		return err
	}
	return requireRow(res, billing.ErrChargeNotFound)
}

// MarkCancelled marks a charge cancelled.
func (r *ChargeRepository) MarkCancelled(ctx context.Context, id string, cancelledAt time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("charge repo: nil db")
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE charges
SET status = $1, cancelled_at = $2
WHERE id = $3`, billing.ChargeStatusCancelled, cancelledAt, id)
	if err != nil {
		return err
	}
	return requireRow(res, billing.ErrChargeNotFound)
}

// SaveAllocations inserts the allocations for a charge in one transaction.
func (r *ChargeRepository) SaveAllocations(ctx context.Context, allocations []billing.Allocation) error {
	if r == nil || r.db == nil {
		return errors.New("charge repo: nil db")
	}
	if len(allocations) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, alloc := range allocations {
		_, err := tx.ExecContext(ctx, `
INSERT INTO allocations (charge_id, unit_id, amount, status, paid_sum)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (charge_id, unit_id) DO UPDATE SET
	amount = EXCLUDED.amount,
	status = EXCLUDED.status,
	paid_sum = EXCLUDED.paid_sum`,
			alloc.ChargeID, alloc.UnitID, alloc.Amount, alloc.Status, alloc.PaidSum)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// ListAllocations returns allocations for a charge ordered by unit.
func (r *ChargeRepository) ListAllocations(ctx context.Context, chargeID string) ([]billing.Allocation, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("charge repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT charge_id, unit_id, amount, status, paid_sum
FROM allocations
WHERE charge_id = $1
ORDER BY unit_id ASC`, chargeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAllocations(rows)
}

// ListOpenAllocations returns outstanding allocations of issued charges.
func (r *ChargeRepository) ListOpenAllocations(ctx context.Context, buildingID string) ([]billing.Allocation, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("charge repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT a.charge_id, a.unit_id, a.amount, a.status, a.paid_sum
FROM allocations a
JOIN charges c ON c.id = a.charge_id
WHERE c.building_id = $1 AND c.status = $2 AND a.paid_sum < a.amount
ORDER BY a.charge_id ASC, a.unit_id ASC`, buildingID, billing.ChargeStatusIssued)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAllocations(rows)
}

// UpdateAllocationStatus sets the unit status of one allocation.
func (r *ChargeRepository) UpdateAllocationStatus(ctx context.Context, chargeID, unitID string, status billing.UnitChargeStatus) error {
	if r == nil || r.db == nil {
		return errors.New("charge repo: nil db")
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE allocations
SET status = $1
WHERE charge_id = $2 AND unit_id = $3`, status, chargeID, unitID)
	if err != nil {
		return err
	}
	return requireRow(res, billing.ErrAllocationNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCharge(row rowScanner) (*billing.Charge, error) {
	var charge billing.Charge
	var periodStart sql.NullTime
	var periodEnd sql.NullTime
	var issuedAt sql.NullTime
	var cancelledAt sql.NullTime
	err := row.Scan(
		&charge.ID,
		&charge.BuildingID,
		&charge.Title,
		&charge.TotalAmount,
		&charge.Method,
		&charge.DueDate,
		&periodStart,
		&periodEnd,
		&charge.LateFeePercent,
		&charge.Status,
		&charge.CreatedAt,
		&issuedAt,
		&cancelledAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if periodStart.Valid {
		charge.PeriodStart = periodStart.Time.UTC()
	}
	if periodEnd.Valid {
		charge.PeriodEnd = periodEnd.Time.UTC()
	}
	if issuedAt.Valid {
		charge.IssuedAt = issuedAt.Time.UTC()
	}
	if cancelledAt.Valid {
		charge.CancelledAt = cancelledAt.Time.UTC()
	}
	charge.DueDate = charge.DueDate.UTC()
	charge.CreatedAt = charge.CreatedAt.UTC()
	return &charge, nil
}

func collectAllocations(rows *sql.Rows) ([]billing.Allocation, error) {
	var result []billing.Allocation
	for rows.Next() {
		var alloc billing.Allocation
		if err := rows.Scan(&alloc.ChargeID, &alloc.UnitID, &alloc.Amount, &alloc.Status, &alloc.PaidSum); err != nil {
			return nil, err
		}
		result = append(result, alloc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func requireRow(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound
	}
	return nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
