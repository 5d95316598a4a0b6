package billing

import "time"

// UnitChargeStatus is the per-unit payment state for a charge.
type UnitChargeStatus string

const (
	UnitChargeStatusPending       UnitChargeStatus = "pending"
	UnitChargeStatusPartiallyPaid UnitChargeStatus = "partially_paid"
	UnitChargeStatusPaid          UnitChargeStatus = "paid"
	UnitChargeStatusOverdue       UnitChargeStatus = "overdue"
)

// ChargeProgress is the derived charge-level status across all units.
type ChargeProgress string

const (
	ProgressIssued        ChargeProgress = "issued"
	ProgressPartiallyPaid ChargeProgress = "partially_paid"
	ProgressPaid          ChargeProgress = "paid"
	ProgressOverdue       ChargeProgress = "overdue"
)

// PaymentOutcome is the result of applying a verified payment.
type PaymentOutcome struct {
	Status     UnitChargeStatus
	NewPaidSum int64
}

// RecordPayment applies one payment against an allocation given a
// consistently-read current paid sum. The caller owns making the read and
// the subsequent write atomic per allocation (single writer or
// compare-and-set at the persistence boundary); this function only decides.
//
// Non-verified payments leave the allocation untouched. A verified payment
// that would push the paid sum above the allocation amount fails with
// ErrOverpayment and changes nothing.
func RecordPayment(alloc Allocation, currentPaidSum int64, payment Payment) (PaymentOutcome, error) {
	if payment.Amount <= 0 || currentPaidSum < 0 {
		return PaymentOutcome{}, ErrInvalidAmount
	}
	if payment.Status != PaymentStatusVerified {
		return PaymentOutcome{Status: alloc.Status, NewPaidSum: currentPaidSum}, nil
	}
	newSum := currentPaidSum + payment.Amount
	if newSum > alloc.Amount {
		return PaymentOutcome{}, ErrOverpayment
	}
	return PaymentOutcome{Status: StatusForPaidSum(alloc.Amount, newSum), NewPaidSum: newSum}, nil
}

// StatusForPaidSum recomputes a unit status from its paid sum.
func StatusForPaidSum(amount, paidSum int64) UnitChargeStatus {
	switch {
	case paidSum >= amount && amount > 0:
		return UnitChargeStatusPaid
	case amount == 0:
		return UnitChargeStatusPaid
	case paidSum > 0:
		return UnitChargeStatusPartiallyPaid
	default:
		return UnitChargeStatusPending
	}
}

// ExpireIfOverdue transitions pending/partially_paid to overdue once now is
// past the due date. Idempotent: paid and overdue never change again here.
func ExpireIfOverdue(status UnitChargeStatus, dueDate time.Time, now time.Time) UnitChargeStatus {
	if status == UnitChargeStatusPaid || status == UnitChargeStatusOverdue {
		return status
	}
	if now.After(dueDate) {
		return UnitChargeStatusOverdue
	}
	return status
}

// DeriveChargeProgress computes the charge-level status from its unit
// allocations. Paid only when every unit is paid; overdue as soon as any
// unit is overdue; partially paid once any verified money has arrived.
func DeriveChargeProgress(allocations []Allocation) ChargeProgress {
	if len(allocations) == 0 {
		return ProgressIssued
	}
	allPaid := true
	anyOverdue := false
	anyMoney := false
	for _, alloc := range allocations {
		if alloc.Status != UnitChargeStatusPaid {
			allPaid = false
		}
		if alloc.Status == UnitChargeStatusOverdue {
			anyOverdue = true
		}
		if alloc.PaidSum > 0 {
			anyMoney = true
		}
	}
	switch {
	case allPaid:
		return ProgressPaid
	case anyOverdue:
		return ProgressOverdue
	case anyMoney:
		return ProgressPartiallyPaid
	default:
		return ProgressIssued
	}
}
