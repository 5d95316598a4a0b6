package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	expenses "condo-cloud/internal/expenses/domain"
)

const defaultExpensesTable = "expenses"

// ExpenseRepository is a Postgres implementation for expenses.
type ExpenseRepository struct {
	db *sql.DB
}

// NewExpenseRepository constructs a repository.
func NewExpenseRepository(db *sql.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// Create inserts an expense.
func (r *ExpenseRepository) Create(ctx context.Context, expense *expenses.Expense) error {
	if r == nil || r.db == nil {
		return errors.New("expense repo: nil db")
	}
	if expense == nil {
		return errors.New("expense repo: nil expense")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO expenses (id, building_id, category, vendor, description, amount, incurred_on, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		expense.ID, expense.BuildingID, expense.Category, expense.Vendor,
		expense.Description, expense.Amount, expense.IncurredOn, expense.CreatedAt)
	return err
}

// GetByID fetches an expense.
func (r *ExpenseRepository) GetByID(ctx context.Context, id string) (*expenses.Expense, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("expense repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, building_id, category, vendor, description, amount, incurred_on, created_at
FROM expenses
WHERE id = $1
LIMIT 1`, id)

	var expense expenses.Expense
	err := row.Scan(
		&expense.ID,
		&expense.BuildingID,
		&expense.Category,
		&expense.Vendor,
		&expense.Description,
		&expense.Amount,
		&expense.IncurredOn,
		&expense.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	expense.IncurredOn = expense.IncurredOn.UTC()
	expense.CreatedAt = expense.CreatedAt.UTC()
	return &expense, nil
}

// ListInRange returns expenses incurred inside [from, to].
func (r *ExpenseRepository) ListInRange(ctx context.Context, buildingID string, from, to time.Time) ([]expenses.Expense, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("expense repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, building_id, category, vendor, description, amount, incurred_on, created_at
FROM expenses
WHERE building_id = $1 AND incurred_on >= $2 AND incurred_on <= $3
ORDER BY incurred_on ASC, id ASC`, buildingID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []expenses.Expense
	for rows.Next() {
		var expense expenses.Expense
		if err := rows.Scan(
			&expense.ID,
			&expense.BuildingID,
			&expense.Category,
			&expense.Vendor,
			&expense.Description,
			&expense.Amount,
			&expense.IncurredOn,
			&expense.CreatedAt,
		); err != nil {
			return nil, err
		}
		expense.IncurredOn = expense.IncurredOn.UTC()
		expense.CreatedAt = expense.CreatedAt.UTC()
		result = append(result, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
