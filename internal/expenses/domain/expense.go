package expenses

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidExpense flags a structurally invalid expense.
var ErrInvalidExpense = errors.New("expenses: invalid expense")

// Expense is money spent by the building management.
type Expense struct {
	ID          string    `json:"id"`
	BuildingID  string    `json:"building_id"`
	Category    string    `json:"category"`
	Vendor      string    `json:"vendor,omitempty"`
	Description string    `json:"description,omitempty"`
	Amount      int64     `json:"amount"`
	IncurredOn  time.Time `json:"incurred_on"`
	CreatedAt   time.Time `json:"created_at"`
}

// Validate checks expense invariants.
func (e Expense) Validate() error {
	if e.ID == "" {
		return errors.New("expenses: empty id")
	}
	if e.BuildingID == "" {
		return errors.New("expenses: empty building id")
	}
	if e.Category == "" {
		return errors.New("expenses: empty category")
	}
	if e.Amount <= 0 {
		return ErrInvalidExpense
	}
	if e.IncurredOn.IsZero() {
		return errors.New("expenses: incurred_on required")
	}
	return nil
}

// Repository persists expenses.
type Repository interface {
	Create(ctx context.Context, expense *Expense) error
	GetByID(ctx context.Context, id string) (*Expense, error)
	// ListInRange returns expenses incurred inside the inclusive [from, to]
	// window, ordered by incurred date then id.
	ListInRange(ctx context.Context, buildingID string, from, to time.Time) ([]Expense, error)
}
