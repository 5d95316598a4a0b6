package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	billing "condo-cloud/internal/billing/domain"
	masterdata "condo-cloud/internal/masterdata/domain"
	"condo-cloud/internal/observability/metrics"
)

// Clock supplies the current time; injected so lifecycle decisions stay
// replayable in tests.
type Clock interface {
	Now() time.Time
}

// Publisher delivers domain events.
type Publisher interface {
	Publish(ctx context.Context, event any) error
}

// UnitSource reads the unit roster.
type UnitSource interface {
	ListByBuilding(ctx context.Context, buildingID string) ([]masterdata.Unit, error)
}

// ChargeService handles charge and payment workflows for one building.
type ChargeService struct {
	charges    billing.ChargeRepository
	payments   billing.PaymentRepository
	units      UnitSource
	publisher  Publisher
	clock      Clock
	buildingID string
	cfg        Config
}

// NewChargeService constructs a service.
func NewChargeService(charges billing.ChargeRepository, payments billing.PaymentRepository, units UnitSource, publisher Publisher, clock Clock, buildingID string, cfg Config) (*ChargeService, error) {
	if charges == nil {
		return nil, errors.New("charge service: nil charge repo")
	}
	if payments == nil {
		return nil, errors.New("charge service: nil payment repo")
	}
	if units == nil {
		return nil, errors.New("charge service: nil unit source")
	}
	if clock == nil {
		return nil, errors.New("charge service: nil clock")
	}
	if buildingID == "" {
		return nil, errors.New("charge service: empty building id")
	}
	return &ChargeService{
		charges:    charges,
		payments:   payments,
		units:      units,
		publisher:  publisher,
		clock:      clock,
		buildingID: buildingID,
		cfg:        cfg,
	}, nil
}

// CreateCharge stores a new draft charge.
func (s *ChargeService) CreateCharge(ctx context.Context, charge *billing.Charge) (*billing.Charge, error) {
	if charge == nil {
		return nil, errors.New("charge service: nil charge")
	}
	if charge.ID == "" {
		charge.ID = newID("chg")
	}
	if charge.BuildingID == "" {
		charge.BuildingID = s.buildingID
	}
	if charge.Method == "" {
		charge.Method = billing.DistributionMethod(s.cfg.DefaultMethod)
	}
	if charge.LateFeePercent == 0 {
		charge.LateFeePercent = s.cfg.LateFeePercent
	}
	charge.Status = billing.ChargeStatusDraft
	charge.CreatedAt = s.clock.Now()
	for i := range charge.Items {
		if charge.Items[i].ID == "" {
			charge.Items[i].ID = newID("item")
		}
		charge.Items[i].ChargeID = charge.ID
	}
	if err := charge.Validate(); err != nil {
		return nil, err
	}
	if err := s.charges.Create(ctx, charge); err != nil {
		return nil, err
	}
	return charge, nil
}

// Issue computes allocations for a draft charge and marks it issued.
// Allocation is computed exactly once; re-issuing requires a new charge.
func (s *ChargeService) Issue(ctx context.Context, chargeID string, custom *billing.CustomSplit) (*billing.Charge, []billing.Allocation, error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveChargeIssue(result, time.Since(start))
	}()

	charge, err := s.charges.GetByID(ctx, chargeID)
	if err != nil {
		result = metrics.ResultError
		return nil, nil, err
	}
	if charge == nil {
		result = metrics.ResultError
		return nil, nil, billing.ErrChargeNotFound
	}
	if charge.Status == billing.ChargeStatusCancelled {
		result = metrics.ResultError
		return nil, nil, billing.ErrChargeCancelled
	}
	if charge.Status != billing.ChargeStatusDraft {
		result = metrics.ResultError
		return nil, nil, billing.ErrChargeNotDraft
	}

	units, err := s.units.ListByBuilding(ctx, charge.BuildingID)
	if err != nil {
		result = metrics.ResultError
		return nil, nil, err
	}
	allocations, err := billing.ComputeAllocations(*charge, units, custom)
	if err != nil {
		result = metrics.ResultError
		return nil, nil, err
	}

	if err := s.charges.SaveAllocations(ctx, allocations); err != nil {
		result = metrics.ResultError
		return nil, nil, err
	}
	issuedAt := s.clock.Now()
	if err := s.charges.MarkIssued(ctx, charge.ID, issuedAt); err != nil {
		result = metrics.ResultError
		return nil, nil, err
	}
	charge.Status = billing.ChargeStatusIssued
	charge.IssuedAt = issuedAt

	s.publish(ctx, ChargeIssued{
		ChargeID:    charge.ID,
		BuildingID:  charge.BuildingID,
		TotalAmount: charge.EffectiveTotal(),
		UnitCount:   len(allocations),
		DueDate:     charge.DueDate,
		OccurredAt:  issuedAt,
	})
	return charge, allocations, nil
}

// Cancel voids a charge. Cancelled is terminal; cancelling twice is a no-op.
func (s *ChargeService) Cancel(ctx context.Context, chargeID, reason string) (*billing.Charge, error) {
	charge, err := s.charges.GetByID(ctx, chargeID)
	if err != nil {
		return nil, err
	}
	if charge == nil {
		return nil, billing.ErrChargeNotFound
	}
	if charge.Status == billing.ChargeStatusCancelled {
		return charge, nil
	}
	cancelledAt := s.clock.Now()
	if err := s.charges.MarkCancelled(ctx, charge.ID, cancelledAt); err != nil {
		return nil, err
	}
	charge.Status = billing.ChargeStatusCancelled
	charge.CancelledAt = cancelledAt

	s.publish(ctx, ChargeCancelled{
		ChargeID:   charge.ID,
		BuildingID: charge.BuildingID,
		Reason:     reason,
		OccurredAt: cancelledAt,
	})
	return charge, nil
}

// Get returns a charge with its allocations and derived progress.
func (s *ChargeService) Get(ctx context.Context, chargeID string) (*billing.Charge, []billing.Allocation, billing.ChargeProgress, error) {
	charge, err := s.charges.GetByID(ctx, chargeID)
	if err != nil {
		return nil, nil, "", err
	}
	if charge == nil {
		return nil, nil, "", billing.ErrChargeNotFound
	}
	allocations, err := s.charges.ListAllocations(ctx, chargeID)
	if err != nil {
		return nil, nil, "", err
	}
	return charge, allocations, billing.DeriveChargeProgress(allocations), nil
}

// List returns all charges for the service's building.
func (s *ChargeService) List(ctx context.Context) ([]billing.Charge, error) {
	return s.charges.ListByBuilding(ctx, s.buildingID)
}

// SubmitPayment records a pending payment against an allocation.
// Residents submit online payments; managers enter cash/check manually.
func (s *ChargeService) SubmitPayment(ctx context.Context, payment *billing.Payment) (*billing.Payment, error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObservePaymentRecord(result, time.Since(start))
	}()

	if payment == nil {
		result = metrics.ResultError
		return nil, errors.New("charge service: nil payment")
	}
	if payment.ID == "" {
		payment.ID = newID("pay")
	}
	payment.Status = billing.PaymentStatusPending
	payment.CreatedAt = s.clock.Now()
	if err := payment.Validate(); err != nil {
		result = metrics.ResultError
		return nil, err
	}

	charge, err := s.charges.GetByID(ctx, payment.ChargeID)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	if charge == nil {
		result = metrics.ResultError
		return nil, billing.ErrChargeNotFound
	}
	if charge.Status == billing.ChargeStatusCancelled {
		result = metrics.ResultError
		return nil, billing.ErrChargeCancelled
	}
	if charge.Status != billing.ChargeStatusIssued {
		result = metrics.ResultError
		return nil, billing.ErrChargeNotIssued
	}

	if err := s.payments.Create(ctx, payment); err != nil {
		result = metrics.ResultError
		return nil, err
	}
	return payment, nil
}

// VerifyPayment confirms a pending payment and applies it to the
// allocation. The paid-sum check-and-write happens in one repository
// statement, so two concurrent verifications can never jointly exceed the
// allocation amount. Verifying an already-verified payment is a no-op.
func (s *ChargeService) VerifyPayment(ctx context.Context, paymentID string) (billing.PaymentOutcome, error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObservePaymentVerify(result, time.Since(start))
	}()

	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		result = metrics.ResultError
		return billing.PaymentOutcome{}, err
	}
	if payment == nil {
		result = metrics.ResultError
		return billing.PaymentOutcome{}, billing.ErrPaymentNotFound
	}

	alloc, err := s.findAllocation(ctx, payment.ChargeID, payment.UnitID)
	if err != nil {
		result = metrics.ResultError
		return billing.PaymentOutcome{}, err
	}

	if payment.Status == billing.PaymentStatusVerified {
		return billing.PaymentOutcome{Status: alloc.Status, NewPaidSum: alloc.PaidSum}, nil
	}
	if payment.Status == billing.PaymentStatusRejected {
		result = metrics.ResultError
		return billing.PaymentOutcome{}, errors.New("charge service: payment already rejected")
	}

	// Pure pre-check against the freshly read paid sum; the repository
	// re-checks under the same guard atomically.
	verified := *payment
	verified.Status = billing.PaymentStatusVerified
	if _, err := billing.RecordPayment(*alloc, alloc.PaidSum, verified); err != nil {
		result = metrics.ResultError
		return billing.PaymentOutcome{}, err
	}

	verifiedAt := s.clock.Now()
	newSum, err := s.payments.ApplyVerified(ctx, payment.ID, verifiedAt)
	if err != nil {
		result = metrics.ResultError
		return billing.PaymentOutcome{}, err
	}
	status := billing.StatusForPaidSum(alloc.Amount, newSum)
	if err := s.charges.UpdateAllocationStatus(ctx, payment.ChargeID, payment.UnitID, status); err != nil {
		result = metrics.ResultError
		return billing.PaymentOutcome{}, err
	}

	s.publish(ctx, PaymentVerified{
		PaymentID:  payment.ID,
		ChargeID:   payment.ChargeID,
		UnitID:     payment.UnitID,
		BuildingID: s.buildingID,
		Amount:     payment.Amount,
		NewStatus:  string(status),
		NewPaidSum: newSum,
		OccurredAt: verifiedAt,
	})
	return billing.PaymentOutcome{Status: status, NewPaidSum: newSum}, nil
}

// RejectPayment marks a pending payment rejected.
func (s *ChargeService) RejectPayment(ctx context.Context, paymentID string) error {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return err
	}
	if payment == nil {
		return billing.ErrPaymentNotFound
	}
	if payment.Status == billing.PaymentStatusVerified {
		return errors.New("charge service: cannot reject a verified payment")
	}
	return s.payments.MarkRejected(ctx, paymentID)
}

// ExpireOverdue sweeps issued charges past their due date and marks unpaid
// allocations overdue. Safe to run repeatedly; returns how many allocations
// transitioned.
func (s *ChargeService) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	charges, err := s.charges.ListByBuilding(ctx, s.buildingID)
	if err != nil {
		return 0, err
	}
	deadline := func(c billing.Charge) time.Time {
		return c.DueDate.AddDate(0, 0, s.cfg.GraceDays)
	}

	transitioned := 0
	for _, charge := range charges {
		if charge.Status != billing.ChargeStatusIssued {
			continue
		}
		if !now.After(deadline(charge)) {
			continue
		}
		allocations, err := s.charges.ListAllocations(ctx, charge.ID)
		if err != nil {
			return transitioned, err
		}
		for _, alloc := range allocations {
			next := billing.ExpireIfOverdue(alloc.Status, deadline(charge), now)
			if next == alloc.Status {
				continue
			}
			if err := s.charges.UpdateAllocationStatus(ctx, charge.ID, alloc.UnitID, next); err != nil {
				return transitioned, err
			}
			transitioned++
			s.publish(ctx, AllocationOverdue{
				ChargeID:    charge.ID,
				UnitID:      alloc.UnitID,
				BuildingID:  charge.BuildingID,
				Amount:      alloc.Amount,
				Outstanding: alloc.Amount - alloc.PaidSum,
				DueDate:     charge.DueDate,
				OccurredAt:  now,
			})
		}
	}
	return transitioned, nil
}

// Payments returns all payments recorded against a charge.
func (s *ChargeService) Payments(ctx context.Context, chargeID string) ([]billing.Payment, error) {
	return s.payments.ListByCharge(ctx, chargeID)
}

func (s *ChargeService) findAllocation(ctx context.Context, chargeID, unitID string) (*billing.Allocation, error) {
	allocations, err := s.charges.ListAllocations(ctx, chargeID)
	if err != nil {
		return nil, err
	}
	for i := range allocations {
		if allocations[i].UnitID == unitID {
			return &allocations[i], nil
		}
	}
	return nil, billing.ErrAllocationNotFound
}

func (s *ChargeService) publish(ctx context.Context, event any) {
	if s.publisher == nil {
		return
	}
	_ = s.publisher.Publish(ctx, event)
}

func newID(prefix string) string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return prefix + "-" + hex.EncodeToString(buf)
}
