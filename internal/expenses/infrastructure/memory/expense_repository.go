package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	expenses "condo-cloud/internal/expenses/domain"
)

// ExpenseRepository is an in-memory store for expenses.
type ExpenseRepository struct {
	mu    sync.RWMutex
	items map[string]expenses.Expense
}

// NewExpenseRepository constructs a repository.
func NewExpenseRepository() *ExpenseRepository {
	return &ExpenseRepository{items: make(map[string]expenses.Expense)}
}

// Create stores an expense.
func (r *ExpenseRepository) Create(ctx context.Context, expense *expenses.Expense) error {
	_ = ctx
	if expense == nil {
		return errors.New("expense repo: nil expense")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[expense.ID]; exists {
		return errors.New("expense repo: duplicate id")
	}
	r.items[expense.ID] = *expense
	return nil
}

// GetByID loads an expense.
func (r *ExpenseRepository) GetByID(ctx context.Context, id string) (*expenses.Expense, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	expense, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	copied := expense
	return &copied, nil
}

// ListInRange returns expenses incurred inside [from, to].
func (r *ExpenseRepository) ListInRange(ctx context.Context, buildingID string, from, to time.Time) ([]expenses.Expense, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []expenses.Expense
	for _, expense := range r.items {
		if expense.BuildingID != buildingID {
			continue
		}
		if expense.IncurredOn.Before(from) || expense.IncurredOn.After(to) {
			continue
		}
		result = append(result, expense)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].IncurredOn.Equal(result[j].IncurredOn) {
			return result[i].IncurredOn.Before(result[j].IncurredOn)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}
