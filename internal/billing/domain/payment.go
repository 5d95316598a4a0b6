package billing

import (
	"errors"
	"time"
)

// PaymentMethod is how money was received.
type PaymentMethod string

const (
	PaymentMethodOnline     PaymentMethod = "online"
	PaymentMethodCardToCard PaymentMethod = "card_to_card"
	PaymentMethodCash       PaymentMethod = "cash"
	PaymentMethodCheck      PaymentMethod = "check"
)

// ParsePaymentMethod validates a payment method string.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	switch PaymentMethod(value) {
	case PaymentMethodOnline, PaymentMethodCardToCard, PaymentMethodCash, PaymentMethodCheck:
		return PaymentMethod(value), nil
	default:
		return "", errors.New("billing: unknown payment method")
	}
}

// PaymentStatus is the verification state of a payment. Only verified
// payments count toward paid sums and collected totals.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusVerified PaymentStatus = "verified"
	PaymentStatusRejected PaymentStatus = "rejected"
)

// Payment records money received against one (charge, unit) allocation.
// Multiple payments may apply to one allocation; their verified sum must
// never exceed the allocation amount.
type Payment struct {
	ID         string
	ChargeID   string
	UnitID     string
	Amount     int64
	Method     PaymentMethod
	Status     PaymentStatus
	Reference  string
	CreatedAt  time.Time
	VerifiedAt time.Time
}

// Validate checks payment invariants.
func (p Payment) Validate() error {
	if p.ID == "" {
		return errors.New("billing: empty payment id")
	}
	if p.ChargeID == "" {
		return errors.New("billing: payment missing charge id")
	}
	if p.UnitID == "" {
		return errors.New("billing: payment missing unit id")
	}
	if p.Amount <= 0 {
		return ErrInvalidAmount
	}
	if _, err := ParsePaymentMethod(string(p.Method)); err != nil {
		return err
	}
	switch p.Status {
	case PaymentStatusPending, PaymentStatusVerified, PaymentStatusRejected:
	default:
		return errors.New("billing: unknown payment status")
	}
	return nil
}
