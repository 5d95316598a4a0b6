package billing

import (
	"errors"

	"condo-cloud/internal/money"
)

var (
	// ErrInvalidAmount mirrors the money package error for convenience.
	ErrInvalidAmount = money.ErrInvalidAmount
	// ErrNoRecipients mirrors the money package error for convenience.
	ErrNoRecipients = money.ErrNoRecipients

	// ErrUnknownDistributionMethod is returned for an unrecognized method.
	ErrUnknownDistributionMethod = errors.New("billing: unknown distribution method")
	// ErrAllocationMismatch is returned when explicit custom amounts do not
	// sum to the charge total.
	ErrAllocationMismatch = errors.New("billing: custom amounts do not sum to charge total")
	// ErrOverpayment is returned when a verified payment would push a unit's
	// paid sum above its allocation.
	ErrOverpayment = errors.New("billing: payment exceeds allocation amount")
	// ErrChargeNotDraft is returned when issuing a non-draft charge.
	ErrChargeNotDraft = errors.New("billing: charge is not a draft")
	// ErrChargeNotIssued is returned when paying against an unissued charge.
	ErrChargeNotIssued = errors.New("billing: charge is not issued")
	// ErrChargeCancelled is returned for operations on a cancelled charge.
	ErrChargeCancelled = errors.New("billing: charge is cancelled")
	// ErrChargeNotFound is returned when a charge does not exist.
	ErrChargeNotFound = errors.New("billing: charge not found")
	// ErrAllocationNotFound is returned when a (charge, unit) allocation does not exist.
	ErrAllocationNotFound = errors.New("billing: allocation not found")
	// ErrPaymentNotFound is returned when a payment does not exist.
	ErrPaymentNotFound = errors.New("billing: payment not found")
)
