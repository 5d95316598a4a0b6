package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	billing "condo-cloud/internal/billing/domain"
)

// ChargeRepository is an in-memory store for charges and allocations.
type ChargeRepository struct {
	mu          sync.RWMutex
	charges     map[string]billing.Charge
	allocations map[string][]billing.Allocation
}

// NewChargeRepository constructs a repository.
func NewChargeRepository() *ChargeRepository {
	return &ChargeRepository{
		charges:     make(map[string]billing.Charge),
		allocations: make(map[string][]billing.Allocation),
	}
}

// Create stores a charge.
func (r *ChargeRepository) Create(ctx context.Context, charge *billing.Charge) error {
	_ = ctx
	if charge == nil {
		return errors.New("charge repo: nil charge")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.charges[charge.ID]; exists {
		return errors.New("charge repo: duplicate id")
	}
	r.charges[charge.ID] = *charge
	return nil
}

// GetByID loads a charge.
func (r *ChargeRepository) GetByID(ctx context.Context, id string) (*billing.Charge, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	charge, ok := r.charges[id]
	if !ok {
		return nil, nil
	}
	copied := charge
	copied.Items = append([]billing.ChargeItem(nil), charge.Items...)
	return &copied, nil
}

// ListByBuilding returns charges for a building ordered by id.
func (r *ChargeRepository) ListByBuilding(ctx context.Context, buildingID string) ([]billing.Charge, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var charges []billing.Charge
	for _, charge := range r.charges {
		if charge.BuildingID == buildingID {
			charges = append(charges, charge)
		}
	}
	sort.Slice(charges, func(i, j int) bool { return charges[i].ID < charges[j].ID })
	return charges, nil
}

// MarkIssued moves a charge to issued.
func (r *ChargeRepository) MarkIssued(ctx context.Context, id string, issuedAt time.Time) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	charge, ok := r.charges[id]
	if !ok {
		return billing.ErrChargeNotFound
	}
	charge.Status = billing.ChargeStatusIssued
	charge.IssuedAt = issuedAt
	r.charges[id] = charge
	return nil
}

// MarkCancelled moves a charge to cancelled.
func (r *ChargeRepository) MarkCancelled(ctx context.Context, id string, cancelledAt time.Time) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	charge, ok := r.charges[id]
	if !ok {
		return billing.ErrChargeNotFound
	}
	charge.Status = billing.ChargeStatusCancelled
	charge.CancelledAt = cancelledAt
	r.charges[id] = charge
	return nil
}

// SaveAllocations stores the allocations for a charge.
func (r *ChargeRepository) SaveAllocations(ctx context.Context, allocations []billing.Allocation) error {
	_ = ctx
	if len(allocations) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	chargeID := allocations[0].ChargeID
	r.allocations[chargeID] = append([]billing.Allocation(nil), allocations...)
	return nil
}

// ListAllocations returns allocations for a charge ordered by unit id.
func (r *ChargeRepository) ListAllocations(ctx context.Context, chargeID string) ([]billing.Allocation, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	allocations := append([]billing.Allocation(nil), r.allocations[chargeID]...)
	sort.Slice(allocations, func(i, j int) bool { return allocations[i].UnitID < allocations[j].UnitID })
	return allocations, nil
}

// ListOpenAllocations returns outstanding allocations of issued charges.
func (r *ChargeRepository) ListOpenAllocations(ctx context.Context, buildingID string) ([]billing.Allocation, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var open []billing.Allocation
	for chargeID, allocations := range r.allocations {
		charge, ok := r.charges[chargeID]
		if !ok || charge.BuildingID != buildingID || charge.Status != billing.ChargeStatusIssued {
			continue
		}
		for _, alloc := range allocations {
			if alloc.PaidSum < alloc.Amount {
				open = append(open, alloc)
			}
		}
	}
	sort.Slice(open, func(i, j int) bool {
		if open[i].ChargeID != open[j].ChargeID {
			return open[i].ChargeID < open[j].ChargeID
		}
		return open[i].UnitID < open[j].UnitID
	})
	return open, nil
}

// UpdateAllocationStatus sets the unit status for one allocation.
func (r *ChargeRepository) UpdateAllocationStatus(ctx context.Context, chargeID, unitID string, status billing.UnitChargeStatus) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	allocations, ok := r.allocations[chargeID]
	if !ok {
		return billing.ErrAllocationNotFound
	}
	for i := range allocations {
		if allocations[i].UnitID == unitID {
			allocations[i].Status = status
			return nil
		}
	}
	return billing.ErrAllocationNotFound
}

// addVerified applies a verified amount under the repository lock so the
// overpayment guard and the write are atomic.
func (r *ChargeRepository) addVerified(chargeID, unitID string, amount int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	allocations, ok := r.allocations[chargeID]
	if !ok {
		return 0, billing.ErrAllocationNotFound
	}
	for i := range allocations {
		if allocations[i].UnitID != unitID {
			continue
		}
		newSum := allocations[i].PaidSum + amount
		if newSum > allocations[i].Amount {
			return 0, billing.ErrOverpayment
		}
		allocations[i].PaidSum = newSum
		return newSum, nil
	}
	return 0, billing.ErrAllocationNotFound
}

// PaymentRepository is an in-memory store for payments.
type PaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]billing.Payment
	charges  *ChargeRepository
}

// NewPaymentRepository constructs a repository bound to a charge store.
func NewPaymentRepository(charges *ChargeRepository) *PaymentRepository {
	return &PaymentRepository{
		payments: make(map[string]billing.Payment),
		charges:  charges,
	}
}

// Create stores a payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *billing.Payment) error {
	_ = ctx
	if payment == nil {
		return errors.New("payment repo: nil payment")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.payments[payment.ID]; exists {
		return errors.New("payment repo: duplicate id")
	}
	r.payments[payment.ID] = *payment
	return nil
}

// GetByID loads a payment.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*billing.Payment, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	payment, ok := r.payments[id]
	if !ok {
		return nil, nil
	}
	copied := payment
	return &copied, nil
}

// ListByCharge returns payments for a charge ordered by creation time.
func (r *PaymentRepository) ListByCharge(ctx context.Context, chargeID string) ([]billing.Payment, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var payments []billing.Payment
	for _, payment := range r.payments {
		if payment.ChargeID == chargeID {
			payments = append(payments, payment)
		}
	}
	sort.Slice(payments, func(i, j int) bool {
		if !payments[i].CreatedAt.Equal(payments[j].CreatedAt) {
			return payments[i].CreatedAt.Before(payments[j].CreatedAt)
		}
		return payments[i].ID < payments[j].ID
	})
	return payments, nil
}

// ListVerifiedInRange returns verified payments inside [from, to].
func (r *PaymentRepository) ListVerifiedInRange(ctx context.Context, buildingID string, from, to time.Time) ([]billing.Payment, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var payments []billing.Payment
	for _, payment := range r.payments {
		if payment.Status != billing.PaymentStatusVerified {
			continue
		}
		if payment.VerifiedAt.Before(from) || payment.VerifiedAt.After(to) {
			continue
		}
		if r.charges != nil {
			charge, _ := r.charges.GetByID(ctx, payment.ChargeID)
			if charge == nil || charge.BuildingID != buildingID {
				continue
			}
		}
		payments = append(payments, payment)
	}
	sort.Slice(payments, func(i, j int) bool {
		if !payments[i].VerifiedAt.Equal(payments[j].VerifiedAt) {
			return payments[i].VerifiedAt.Before(payments[j].VerifiedAt)
		}
		return payments[i].ID < payments[j].ID
	})
	return payments, nil
}

// ApplyVerified marks the payment verified and bumps the allocation paid
// sum atomically with respect to other verifiers.
func (r *PaymentRepository) ApplyVerified(ctx context.Context, paymentID string, verifiedAt time.Time) (int64, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	payment, ok := r.payments[paymentID]
	if !ok {
		return 0, billing.ErrPaymentNotFound
	}
	if payment.Status == billing.PaymentStatusVerified {
		return 0, errors.New("payment repo: already verified")
	}
	if r.charges == nil {
		return 0, errors.New("payment repo: nil charge store")
	}
	newSum, err := r.charges.addVerified(payment.ChargeID, payment.UnitID, payment.Amount)
	if err != nil {
		return 0, err
	}
	payment.Status = billing.PaymentStatusVerified
	payment.VerifiedAt = verifiedAt
	r.payments[paymentID] = payment
	return newSum, nil
}

// MarkRejected marks a payment rejected.
func (r *PaymentRepository) MarkRejected(ctx context.Context, paymentID string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	payment, ok := r.payments[paymentID]
	if !ok {
		return billing.ErrPaymentNotFound
	}
	payment.Status = billing.PaymentStatusRejected
	r.payments[paymentID] = payment
	return nil
}
