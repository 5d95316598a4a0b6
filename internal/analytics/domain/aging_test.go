package analytics

import (
	"testing"
	"time"

	billing "condo-cloud/internal/billing/domain"
)

func agingFixture(now time.Time, daysAgo int, chargeID string) billing.Charge {
	return billing.Charge{
		ID:      chargeID,
		Status:  billing.ChargeStatusIssued,
		DueDate: now.AddDate(0, 0, -daysAgo),
	}
}

func TestAgeDebts_BucketBoundaries(t *testing.T) {
	now := time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)
	charges := []billing.Charge{
		agingFixture(now, 30, "chg-30"),
		agingFixture(now, 31, "chg-31"),
		agingFixture(now, 60, "chg-60"),
		agingFixture(now, 61, "chg-61"),
		agingFixture(now, 90, "chg-90"),
		agingFixture(now, 91, "chg-91"),
	}
	// One unit per charge so each boundary is observed in isolation.
	allocations := []billing.Allocation{
		{ChargeID: "chg-30", UnitID: "unit-030", Amount: 100, Status: billing.UnitChargeStatusOverdue},
		{ChargeID: "chg-31", UnitID: "unit-031", Amount: 200, Status: billing.UnitChargeStatusOverdue},
		{ChargeID: "chg-60", UnitID: "unit-060", Amount: 400, Status: billing.UnitChargeStatusOverdue},
		{ChargeID: "chg-61", UnitID: "unit-061", Amount: 800, Status: billing.UnitChargeStatusOverdue},
		{ChargeID: "chg-90", UnitID: "unit-090", Amount: 1600, Status: billing.UnitChargeStatusOverdue},
		{ChargeID: "chg-91", UnitID: "unit-091", Amount: 3200, Status: billing.UnitChargeStatusOverdue},
	}

	report := AgeDebts(charges, allocations, now, 0)

	// Exactly 30 days is still current, exactly 60 is 31-60, exactly 90 is 61-90.
	if report.Current.Amount != 100 || report.Current.Count != 1 {
		t.Fatalf("current: want 100/1, got %+v", report.Current)
	}
	if report.Days31To60.Amount != 200+400 || report.Days31To60.Count != 2 {
		t.Fatalf("31-60: want 600/2, got %+v", report.Days31To60)
	}
	if report.Days61To90.Amount != 800+1600 || report.Days61To90.Count != 2 {
		t.Fatalf("61-90: want 2400/2, got %+v", report.Days61To90)
	}
	if report.Over90.Amount != 3200 || report.Over90.Count != 1 {
		t.Fatalf("90+: want 3200/1, got %+v", report.Over90)
	}
	if report.TotalOutstanding != 6300 {
		t.Fatalf("total: want 6300, got %d", report.TotalOutstanding)
	}
}

func TestAgeDebts_UnitAgedByOldestUnpaidCharge(t *testing.T) {
	now := time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)
	charges := []billing.Charge{
		agingFixture(now, 95, "chg-old"),
		agingFixture(now, 5, "chg-new"),
	}
	allocations := []billing.Allocation{
		{ChargeID: "chg-old", UnitID: "unit-001", Amount: 100, Status: billing.UnitChargeStatusOverdue},
		{ChargeID: "chg-new", UnitID: "unit-001", Amount: 900, Status: billing.UnitChargeStatusOverdue},
	}

	report := AgeDebts(charges, allocations, now, 0)

	// The unit's entire balance ages with its oldest unpaid charge and the
	// unit counts exactly once.
	if report.Over90.Amount != 1000 || report.Over90.Count != 1 {
		t.Fatalf("90+: want 1000/1, got %+v", report.Over90)
	}
	if report.Current.Amount != 0 || report.Current.Count != 0 {
		t.Fatalf("current must stay empty, got %+v", report.Current)
	}
	if report.TotalOutstanding != 1000 {
		t.Fatalf("total: want 1000, got %d", report.TotalOutstanding)
	}
	if len(report.TopDebtors) != 1 || report.TopDebtors[0].OldestDays != 95 {
		t.Fatalf("debtor must carry the oldest age, got %+v", report.TopDebtors)
	}
}

func TestAgeDebts_NotYetDueIsCurrent(t *testing.T) {
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	charges := []billing.Charge{{ID: "chg-1", Status: billing.ChargeStatusIssued, DueDate: now.AddDate(0, 0, 10)}}
	allocations := []billing.Allocation{
		{ChargeID: "chg-1", UnitID: "unit-001", Amount: 500, Status: billing.UnitChargeStatusPending},
	}

	report := AgeDebts(charges, allocations, now, 0)
	if report.Current.Amount != 500 || report.Current.Count != 1 {
		t.Fatalf("future due date must land in current, got %+v", report.Current)
	}
}

func TestAgeDebts_PartialPaymentReducesOutstanding(t *testing.T) {
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	charges := []billing.Charge{agingFixture(now, 45, "chg-1")}
	allocations := []billing.Allocation{
		{ChargeID: "chg-1", UnitID: "unit-001", Amount: 1000, PaidSum: 400, Status: billing.UnitChargeStatusPartiallyPaid},
		{ChargeID: "chg-1", UnitID: "unit-002", Amount: 1000, PaidSum: 1000, Status: billing.UnitChargeStatusPaid},
	}

	report := AgeDebts(charges, allocations, now, 0)
	if report.TotalOutstanding != 600 {
		t.Fatalf("paid portion must not age: want 600, got %d", report.TotalOutstanding)
	}
	if report.Days31To60.Count != 1 {
		t.Fatalf("want one aged unit, got %d", report.Days31To60.Count)
	}
}

func TestAgeDebts_TopDebtorsOrderAndLimit(t *testing.T) {
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	charges := []billing.Charge{agingFixture(now, 10, "chg-1")}
	allocations := []billing.Allocation{
		{ChargeID: "chg-1", UnitID: "unit-003", Amount: 300, Status: billing.UnitChargeStatusOverdue},
		{ChargeID: "chg-1", UnitID: "unit-001", Amount: 500, Status: billing.UnitChargeStatusOverdue},
		{ChargeID: "chg-1", UnitID: "unit-002", Amount: 500, Status: billing.UnitChargeStatusOverdue},
		{ChargeID: "chg-1", UnitID: "unit-004", Amount: 100, Status: billing.UnitChargeStatusOverdue},
	}

	report := AgeDebts(charges, allocations, now, 3)
	if len(report.TopDebtors) != 3 {
		t.Fatalf("want 3 debtors, got %d", len(report.TopDebtors))
	}
	// Equal balances break ties by unit id ascending.
	want := []string{"unit-001", "unit-002", "unit-003"}
	for i, unitID := range want {
		if report.TopDebtors[i].UnitID != unitID {
			t.Fatalf("debtor %d: want %s, got %s", i, unitID, report.TopDebtors[i].UnitID)
		}
	}
}

func TestAgeDebts_Deterministic(t *testing.T) {
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	charges := []billing.Charge{agingFixture(now, 70, "chg-1"), agingFixture(now, 20, "chg-2")}
	allocations := []billing.Allocation{
		{ChargeID: "chg-1", UnitID: "unit-002", Amount: 700, Status: billing.UnitChargeStatusOverdue},
		{ChargeID: "chg-2", UnitID: "unit-001", Amount: 900, Status: billing.UnitChargeStatusOverdue},
		{ChargeID: "chg-1", UnitID: "unit-001", Amount: 100, PaidSum: 50, Status: billing.UnitChargeStatusPartiallyPaid},
	}

	first := AgeDebts(charges, allocations, now, 10)
	second := AgeDebts(charges, allocations, now, 10)
	if len(first.TopDebtors) != len(second.TopDebtors) {
		t.Fatalf("debtor count changed between runs")
	}
	for i := range first.TopDebtors {
		if first.TopDebtors[i] != second.TopDebtors[i] {
			t.Fatalf("debtor %d differs between runs", i)
		}
	}
	if first.TotalOutstanding != second.TotalOutstanding {
		t.Fatalf("totals differ between runs")
	}
}
