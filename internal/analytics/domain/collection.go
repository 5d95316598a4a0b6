package analytics

import (
	billing "condo-cloud/internal/billing/domain"
)

// CollectionStats summarizes how much of one charge has been collected.
type CollectionStats struct {
	ChargeID           string  `json:"charge_id"`
	TotalAmount        int64   `json:"total_amount"`
	CollectedAmount    int64   `json:"collected_amount"`
	OutstandingAmount  int64   `json:"outstanding_amount"`
	PaidUnits          int     `json:"paid_units"`
	PartiallyPaidUnits int     `json:"partially_paid_units"`
	PendingUnits       int     `json:"pending_units"`
	OverdueUnits       int     `json:"overdue_units"`
	CollectionRate     float64 `json:"collection_rate"`
}

// AggregateCollection folds a charge's allocations into collection stats.
// The rate is a percentage clamped to [0, 100]; a charge with a zero total
// reports a rate of 0.
func AggregateCollection(chargeID string, allocations []billing.Allocation) CollectionStats {
	stats := CollectionStats{ChargeID: chargeID}
	for _, alloc := range allocations {
		stats.TotalAmount += alloc.Amount
		stats.CollectedAmount += alloc.PaidSum
		switch alloc.Status {
		case billing.UnitChargeStatusPaid:
			stats.PaidUnits++
		case billing.UnitChargeStatusPartiallyPaid:
			stats.PartiallyPaidUnits++
		case billing.UnitChargeStatusOverdue:
			stats.OverdueUnits++
		default:
			stats.PendingUnits++
		}
	}
	stats.OutstandingAmount = stats.TotalAmount - stats.CollectedAmount
	if stats.TotalAmount > 0 {
		rate := float64(stats.CollectedAmount) / float64(stats.TotalAmount) * 100
		if rate < 0 {
			rate = 0
		}
		if rate > 100 {
			rate = 100
		}
		stats.CollectionRate = rate
	}
	return stats
}
