package billing

import (
	"context"
	"time"
)

// ChargeRepository persists charges and their allocations.
type ChargeRepository interface {
	Create(ctx context.Context, charge *Charge) error
	GetByID(ctx context.Context, id string) (*Charge, error)
	ListByBuilding(ctx context.Context, buildingID string) ([]Charge, error)
	MarkIssued(ctx context.Context, id string, issuedAt time.Time) error
	MarkCancelled(ctx context.Context, id string, cancelledAt time.Time) error
	SaveAllocations(ctx context.Context, allocations []Allocation) error
	ListAllocations(ctx context.Context, chargeID string) ([]Allocation, error)
	// ListOpenAllocations returns allocations of issued charges with an
	// outstanding balance across the building.
	ListOpenAllocations(ctx context.Context, buildingID string) ([]Allocation, error)
	UpdateAllocationStatus(ctx context.Context, chargeID, unitID string, status UnitChargeStatus) error
}

// PaymentRepository persists payments and owns the atomic paid-sum update.
type PaymentRepository interface {
	Create(ctx context.Context, payment *Payment) error
	GetByID(ctx context.Context, id string) (*Payment, error)
	ListByCharge(ctx context.Context, chargeID string) ([]Payment, error)
	ListVerifiedInRange(ctx context.Context, buildingID string, from, to time.Time) ([]Payment, error)
	// ApplyVerified marks the payment verified and adds its amount to the
	// allocation paid sum in one statement, guarded so the sum can never
	// exceed the allocation amount; returns the new paid sum or
	// ErrOverpayment. This is the compare-and-set the lifecycle contract
	// requires at the persistence boundary.
	ApplyVerified(ctx context.Context, paymentID string, verifiedAt time.Time) (int64, error)
	MarkRejected(ctx context.Context, paymentID string) error
}
