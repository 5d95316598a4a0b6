package billing

import (
	"errors"
	"time"
)

// DistributionMethod selects how a charge total is split across units.
type DistributionMethod string

const (
	DistributionEqual       DistributionMethod = "equal"
	DistributionArea        DistributionMethod = "area"
	DistributionCoefficient DistributionMethod = "coefficient"
	DistributionResidents   DistributionMethod = "residents"
	DistributionCustom      DistributionMethod = "custom"
)

// ParseDistributionMethod validates a method string.
func ParseDistributionMethod(value string) (DistributionMethod, error) {
	switch DistributionMethod(value) {
	case DistributionEqual, DistributionArea, DistributionCoefficient, DistributionResidents, DistributionCustom:
		return DistributionMethod(value), nil
	default:
		return "", ErrUnknownDistributionMethod
	}
}

// ChargeStatus is the stored workflow status of a charge.
// Progress (partially_paid, paid, overdue) is derived from allocations,
// never stored; see DeriveChargeProgress.
type ChargeStatus string

const (
	ChargeStatusDraft     ChargeStatus = "draft"
	ChargeStatusIssued    ChargeStatus = "issued"
	ChargeStatusCancelled ChargeStatus = "cancelled"
)

// Charge is a single billing event against the whole building.
// Amount and method are immutable once allocations exist; corrections
// require cancelling and issuing a new charge.
type Charge struct {
	ID             string
	BuildingID     string
	Title          string
	TotalAmount    int64
	Method         DistributionMethod
	DueDate        time.Time
	PeriodStart    time.Time
	PeriodEnd      time.Time
	LateFeePercent float64
	Status         ChargeStatus
	Items          []ChargeItem
	CreatedAt      time.Time
	IssuedAt       time.Time
	CancelledAt    time.Time
}

// ChargeItem is a named sub-amount within a charge. A zero-value Method
// inherits the charge method.
type ChargeItem struct {
	ID       string
	ChargeID string
	Title    string
	Category string
	Amount   int64
	Method   DistributionMethod
}

// EffectiveTotal returns the amount to allocate: the item sum when items
// are present, the charge total otherwise.
func (c Charge) EffectiveTotal() int64 {
	if len(c.Items) == 0 {
		return c.TotalAmount
	}
	var sum int64
	for _, item := range c.Items {
		sum += item.Amount
	}
	return sum
}

// Validate checks charge invariants.
func (c Charge) Validate() error {
	if c.ID == "" {
		return errors.New("charge: empty id")
	}
	if c.BuildingID == "" {
		return errors.New("charge: empty building id")
	}
	if c.Title == "" {
		return errors.New("charge: empty title")
	}
	if c.TotalAmount < 0 {
		return ErrInvalidAmount
	}
	if _, err := ParseDistributionMethod(string(c.Method)); err != nil {
		return err
	}
	if c.DueDate.IsZero() {
		return errors.New("charge: due date required")
	}
	if !c.PeriodStart.IsZero() && !c.PeriodEnd.IsZero() && c.PeriodEnd.Before(c.PeriodStart) {
		return errors.New("charge: period end before start")
	}
	if c.LateFeePercent < 0 {
		return errors.New("charge: negative late fee")
	}
	var itemSum int64
	for _, item := range c.Items {
		if item.Amount < 0 {
			return ErrInvalidAmount
		}
		if item.Method != "" {
			if _, err := ParseDistributionMethod(string(item.Method)); err != nil {
				return err
			}
		}
		itemSum += item.Amount
	}
	if len(c.Items) > 0 && c.TotalAmount != 0 && itemSum != c.TotalAmount {
		return ErrAllocationMismatch
	}
	return nil
}
