package reporting

import (
	"errors"
	"reflect"
	"testing"
	"time"

	billing "condo-cloud/internal/billing/domain"
	expenses "condo-cloud/internal/expenses/domain"
)

func mustRange(t *testing.T, from, to time.Time) DateRange {
	t.Helper()
	rng, err := NewDateRange(from, to)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	return rng
}

func day(d int) time.Time {
	return time.Date(2026, time.April, d, 0, 0, 0, 0, time.UTC)
}

func verified(id, unitID string, amount int64, method billing.PaymentMethod, verifiedAt time.Time) billing.Payment {
	return billing.Payment{
		ID:         id,
		ChargeID:   "chg-1",
		UnitID:     unitID,
		Amount:     amount,
		Method:     method,
		Status:     billing.PaymentStatusVerified,
		VerifiedAt: verifiedAt,
	}
}

func TestNewDateRange_Invalid(t *testing.T) {
	if _, err := NewDateRange(day(10), day(5)); !errors.Is(err, ErrInvalidDateRange) {
		t.Fatalf("want ErrInvalidDateRange, got %v", err)
	}
	if _, err := NewDateRange(time.Time{}, day(5)); !errors.Is(err, ErrInvalidDateRange) {
		t.Fatalf("zero from: want ErrInvalidDateRange, got %v", err)
	}
	// Single-day windows are valid; both bounds are inclusive.
	rng, err := NewDateRange(day(5), day(5))
	if err != nil {
		t.Fatalf("single day range: %v", err)
	}
	if !rng.Contains(day(5)) {
		t.Fatalf("single day range must contain its own day")
	}
}

func TestBuildIncomeReport(t *testing.T) {
	rng := mustRange(t, day(1), day(30))
	payments := []billing.Payment{
		verified("pay-1", "unit-001", 300_000, billing.PaymentMethodOnline, day(5)),
		verified("pay-2", "unit-002", 200_000, billing.PaymentMethodCash, day(10)),
		verified("pay-3", "unit-001", 100_000, billing.PaymentMethodOnline, day(30)),
		// Outside the window and non-verified payments must not count.
		verified("pay-4", "unit-003", 999_999, billing.PaymentMethodOnline, day(1).AddDate(0, -1, 0)),
		{ID: "pay-5", ChargeID: "chg-1", UnitID: "unit-001", Amount: 50_000, Method: billing.PaymentMethodCash, Status: billing.PaymentStatusPending, CreatedAt: day(7)},
	}

	report := BuildIncomeReport(rng, payments, 1)
	if report.TotalIncome != 600_000 {
		t.Fatalf("total: want 600000, got %d", report.TotalIncome)
	}
	if report.PaymentCount != 3 {
		t.Fatalf("count: want 3, got %d", report.PaymentCount)
	}
	if report.AveragePayment != 200_000 {
		t.Fatalf("average: want 200000, got %d", report.AveragePayment)
	}
	wantMethods := []MethodBreakdown{
		{Method: "cash", Amount: 200_000, Count: 1},
		{Method: "online", Amount: 400_000, Count: 2},
	}
	if !reflect.DeepEqual(report.ByMethod, wantMethods) {
		t.Fatalf("by method: want %+v, got %+v", wantMethods, report.ByMethod)
	}
	wantUnits := []UnitBreakdown{
		{UnitID: "unit-001", Amount: 400_000, Count: 2},
		{UnitID: "unit-002", Amount: 200_000, Count: 1},
	}
	if !reflect.DeepEqual(report.ByUnit, wantUnits) {
		t.Fatalf("by unit: want %+v, got %+v", wantUnits, report.ByUnit)
	}
	// Top units rank by amount and honor the cap.
	wantTop := []UnitBreakdown{{UnitID: "unit-001", Amount: 400_000, Count: 2}}
	if !reflect.DeepEqual(report.TopUnits, wantTop) {
		t.Fatalf("top units: want %+v, got %+v", wantTop, report.TopUnits)
	}
}

func TestBuildIncomeReport_Idempotent(t *testing.T) {
	rng := mustRange(t, day(1), day(30))
	payments := []billing.Payment{
		verified("pay-2", "unit-002", 200_000, billing.PaymentMethodCash, day(10)),
		verified("pay-1", "unit-001", 300_000, billing.PaymentMethodOnline, day(5)),
	}
	first := BuildIncomeReport(rng, payments, 5)
	second := BuildIncomeReport(rng, payments, 5)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("report differs between runs:\n%+v\n%+v", first, second)
	}
}

func TestBuildExpenseReport(t *testing.T) {
	rng := mustRange(t, day(1), day(30))
	list := []expenses.Expense{
		{ID: "exp-1", BuildingID: "bld-a", Category: "maintenance", Vendor: "cleanco", Amount: 150_000, IncurredOn: day(3)},
		{ID: "exp-2", BuildingID: "bld-a", Category: "utilities", Vendor: "citypower", Amount: 80_000, IncurredOn: day(12)},
		{ID: "exp-3", BuildingID: "bld-a", Category: "maintenance", Vendor: "cleanco", Amount: 50_000, IncurredOn: day(30)},
		{ID: "exp-4", BuildingID: "bld-a", Category: "misc", Vendor: "cleanco", Amount: 999, IncurredOn: day(30).AddDate(0, 1, 0)},
	}

	report := BuildExpenseReport(rng, list, 2)
	if report.TotalExpense != 280_000 {
		t.Fatalf("total: want 280000, got %d", report.TotalExpense)
	}
	want := []CategoryBreakdown{
		{Category: "maintenance", Amount: 200_000, Count: 2},
		{Category: "utilities", Amount: 80_000, Count: 1},
	}
	if !reflect.DeepEqual(report.ByCategory, want) {
		t.Fatalf("by category: want %+v, got %+v", want, report.ByCategory)
	}
	wantVendors := []VendorBreakdown{
		{Vendor: "citypower", Amount: 80_000, Count: 1},
		{Vendor: "cleanco", Amount: 200_000, Count: 2},
	}
	if !reflect.DeepEqual(report.ByVendor, wantVendors) {
		t.Fatalf("by vendor: want %+v, got %+v", wantVendors, report.ByVendor)
	}
	// Largest expenses rank by amount and honor the cap; exp-4 is outside
	// the window and exp-3 falls off the top two.
	if len(report.Largest) != 2 || report.Largest[0].ID != "exp-1" || report.Largest[1].ID != "exp-2" {
		t.Fatalf("largest: want [exp-1 exp-2], got %+v", report.Largest)
	}
	if report.Largest[0].Amount != 150_000 || report.Largest[0].Vendor != "cleanco" {
		t.Fatalf("largest line: got %+v", report.Largest[0])
	}
}

func TestBuildBalanceReport(t *testing.T) {
	rng := mustRange(t, day(1), day(30))
	payments := []billing.Payment{
		verified("pay-1", "unit-001", 500_000, billing.PaymentMethodOnline, day(5)),
	}
	list := []expenses.Expense{
		{ID: "exp-1", BuildingID: "bld-a", Category: "maintenance", Amount: 200_000, IncurredOn: day(8)},
	}

	report := BuildBalanceReport(rng, payments, list, 1_000_000)
	if report.Net != 300_000 {
		t.Fatalf("net: want 300000, got %d", report.Net)
	}
	if report.ProfitMargin != 60 {
		t.Fatalf("margin: want 60, got %v", report.ProfitMargin)
	}
	if report.FundBalance != 1_300_000 {
		t.Fatalf("fund: want 1300000, got %d", report.FundBalance)
	}
}

func TestBuildBalanceReport_ZeroIncome(t *testing.T) {
	rng := mustRange(t, day(1), day(30))
	list := []expenses.Expense{
		{ID: "exp-1", BuildingID: "bld-a", Category: "maintenance", Amount: 200_000, IncurredOn: day(8)},
	}

	report := BuildBalanceReport(rng, nil, list, 0)
	if report.ProfitMargin != 0 {
		t.Fatalf("zero income must report margin 0, got %v", report.ProfitMargin)
	}
	if report.Net != -200_000 {
		t.Fatalf("net: want -200000, got %d", report.Net)
	}
}

func TestBuildUnitReport(t *testing.T) {
	rng := mustRange(t, day(1), day(30))
	payments := []billing.Payment{
		verified("pay-1", "unit-001", 300_000, billing.PaymentMethodOnline, day(5)),
		verified("pay-2", "unit-002", 200_000, billing.PaymentMethodCash, day(6)),
	}
	allocations := []billing.Allocation{
		{ChargeID: "chg-2", UnitID: "unit-001", Amount: 500_000, PaidSum: 300_000, Status: billing.UnitChargeStatusPartiallyPaid},
		{ChargeID: "chg-1", UnitID: "unit-001", Amount: 100_000, PaidSum: 100_000, Status: billing.UnitChargeStatusPaid},
		{ChargeID: "chg-1", UnitID: "unit-002", Amount: 100_000, PaidSum: 0, Status: billing.UnitChargeStatusPending},
	}

	report := BuildUnitReport(rng, "unit-001", payments, allocations)
	if report.TotalPaid != 300_000 || report.PaymentCount != 1 {
		t.Fatalf("paid: want 300000/1, got %d/%d", report.TotalPaid, report.PaymentCount)
	}
	if report.Outstanding != 200_000 {
		t.Fatalf("outstanding: want 200000, got %d", report.Outstanding)
	}
	if len(report.Lines) != 2 || report.Lines[0].ChargeID != "chg-1" || report.Lines[1].ChargeID != "chg-2" {
		t.Fatalf("lines must be sorted by charge id, got %+v", report.Lines)
	}
	// 400k paid of 600k allocated across both charges.
	if report.PaymentRate < 66.6 || report.PaymentRate > 66.7 {
		t.Fatalf("payment rate: want ~66.67, got %v", report.PaymentRate)
	}
}

func TestBuildRosterSummary(t *testing.T) {
	allocations := []billing.Allocation{
		{ChargeID: "chg-1", UnitID: "unit-001", Amount: 100_000, PaidSum: 100_000, Status: billing.UnitChargeStatusPaid},
		{ChargeID: "chg-2", UnitID: "unit-001", Amount: 50_000, PaidSum: 50_000, Status: billing.UnitChargeStatusPaid},
		{ChargeID: "chg-1", UnitID: "unit-002", Amount: 100_000, PaidSum: 40_000, Status: billing.UnitChargeStatusPartiallyPaid},
	}
	// unit-003 has no allocations and owes nothing.
	summary := BuildRosterSummary([]string{"unit-001", "unit-002", "unit-003"}, allocations)

	if summary.TotalUnits != 3 || summary.SettledUnits != 2 || summary.UnsettledUnits != 1 {
		t.Fatalf("counts: got %+v", summary)
	}
	if summary.SettledRate < 66.6 || summary.SettledRate > 66.7 {
		t.Fatalf("settled rate: want ~66.67, got %v", summary.SettledRate)
	}
}

func TestBuildRosterSummary_EmptyRoster(t *testing.T) {
	summary := BuildRosterSummary(nil, nil)
	if summary.TotalUnits != 0 || summary.SettledRate != 0 {
		t.Fatalf("empty roster must report zero rate, got %+v", summary)
	}
}
