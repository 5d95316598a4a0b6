package analytics

import (
	"testing"

	billing "condo-cloud/internal/billing/domain"
)

func TestAggregateCollection(t *testing.T) {
	allocations := []billing.Allocation{
		{ChargeID: "chg-1", UnitID: "unit-001", Amount: 400_000, PaidSum: 400_000, Status: billing.UnitChargeStatusPaid},
		{ChargeID: "chg-1", UnitID: "unit-002", Amount: 300_000, PaidSum: 100_000, Status: billing.UnitChargeStatusPartiallyPaid},
		{ChargeID: "chg-1", UnitID: "unit-003", Amount: 200_000, PaidSum: 0, Status: billing.UnitChargeStatusPending},
		{ChargeID: "chg-1", UnitID: "unit-004", Amount: 100_000, PaidSum: 0, Status: billing.UnitChargeStatusOverdue},
	}

	stats := AggregateCollection("chg-1", allocations)
	if stats.TotalAmount != 1_000_000 {
		t.Fatalf("total: want 1000000, got %d", stats.TotalAmount)
	}
	if stats.CollectedAmount != 500_000 {
		t.Fatalf("collected: want 500000, got %d", stats.CollectedAmount)
	}
	if stats.OutstandingAmount != 500_000 {
		t.Fatalf("outstanding: want 500000, got %d", stats.OutstandingAmount)
	}
	if stats.CollectionRate != 50 {
		t.Fatalf("rate: want 50, got %v", stats.CollectionRate)
	}
	if stats.PaidUnits != 1 || stats.PartiallyPaidUnits != 1 || stats.PendingUnits != 1 || stats.OverdueUnits != 1 {
		t.Fatalf("unit counts wrong: %+v", stats)
	}
}

func TestAggregateCollection_ZeroTotal(t *testing.T) {
	stats := AggregateCollection("chg-1", []billing.Allocation{
		{ChargeID: "chg-1", UnitID: "unit-001", Amount: 0, PaidSum: 0, Status: billing.UnitChargeStatusPaid},
	})
	if stats.CollectionRate != 0 {
		t.Fatalf("zero total must report rate 0, got %v", stats.CollectionRate)
	}
}

func TestAggregateCollection_FullyCollectedClamped(t *testing.T) {
	stats := AggregateCollection("chg-1", []billing.Allocation{
		{ChargeID: "chg-1", UnitID: "unit-001", Amount: 100, PaidSum: 100, Status: billing.UnitChargeStatusPaid},
	})
	if stats.CollectionRate != 100 {
		t.Fatalf("want rate 100, got %v", stats.CollectionRate)
	}
}

func TestAggregateCollection_Empty(t *testing.T) {
	stats := AggregateCollection("chg-1", nil)
	if stats.TotalAmount != 0 || stats.CollectionRate != 0 {
		t.Fatalf("empty allocations must be all zero, got %+v", stats)
	}
}
