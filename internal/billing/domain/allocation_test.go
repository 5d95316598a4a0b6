package billing

import (
	"errors"
	"testing"
	"time"

	masterdata "condo-cloud/internal/masterdata/domain"
	"condo-cloud/internal/money"
)

func testUnits() []masterdata.Unit {
	return []masterdata.Unit{
		{ID: "unit-001", BuildingID: "bld-1", Number: "1", FloorAreaM2: 100, Coefficient: 1.0, Occupants: 2, Status: masterdata.UnitStatusOccupied},
		{ID: "unit-002", BuildingID: "bld-1", Number: "2", FloorAreaM2: 50, Coefficient: 1.5, Occupants: 0, Status: masterdata.UnitStatusVacant},
		{ID: "unit-003", BuildingID: "bld-1", Number: "3", FloorAreaM2: 75, Coefficient: 0.5, Occupants: 4, Status: masterdata.UnitStatusOccupied},
	}
}

func testCharge(total int64, method DistributionMethod) Charge {
	return Charge{
		ID:          "chg-1",
		BuildingID:  "bld-1",
		Title:       "monthly maintenance",
		TotalAmount: total,
		Method:      method,
		DueDate:     time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC),
		Status:      ChargeStatusDraft,
	}
}

func sumAllocations(allocs []Allocation) int64 {
	var sum int64
	for _, a := range allocs {
		sum += a.Amount
	}
	return sum
}

func TestComputeAllocations_AreaScenario(t *testing.T) {
	units := []masterdata.Unit{
		{ID: "unit-a", BuildingID: "bld-1", Number: "1", FloorAreaM2: 100, Status: masterdata.UnitStatusOccupied},
		{ID: "unit-b", BuildingID: "bld-1", Number: "2", FloorAreaM2: 50, Status: masterdata.UnitStatusOccupied},
	}
	allocs, err := ComputeAllocations(testCharge(300_000, DistributionArea), units, nil)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if allocs[0].Amount != 200_000 || allocs[1].Amount != 100_000 {
		t.Fatalf("want {200000, 100000}, got {%d, %d}", allocs[0].Amount, allocs[1].Amount)
	}
}

func TestComputeAllocations_SumInvariantAllMethods(t *testing.T) {
	units := testUnits()
	methods := []DistributionMethod{DistributionEqual, DistributionArea, DistributionCoefficient, DistributionResidents}
	for _, method := range methods {
		allocs, err := ComputeAllocations(testCharge(1_000_001, method), units, nil)
		if err != nil {
			t.Fatalf("method %s: %v", method, err)
		}
		if got := sumAllocations(allocs); got != 1_000_001 {
			t.Fatalf("method %s: sum %d != 1000001", method, got)
		}
	}
}

func TestComputeAllocations_EqualRemainderToLowestID(t *testing.T) {
	// Pass units out of order; the engine must still give the extra minor
	// unit to the lowest unit id.
	units := testUnits()
	units[0], units[2] = units[2], units[0]
	allocs, err := ComputeAllocations(testCharge(100, DistributionEqual), units, nil)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if allocs[0].UnitID != "unit-001" || allocs[0].Amount != 34 {
		t.Fatalf("want unit-001=34, got %s=%d", allocs[0].UnitID, allocs[0].Amount)
	}
	if allocs[1].Amount != 33 || allocs[2].Amount != 33 {
		t.Fatalf("want 33/33 for the rest, got %d/%d", allocs[1].Amount, allocs[2].Amount)
	}
}

func TestComputeAllocations_Deterministic(t *testing.T) {
	units := testUnits()
	charge := testCharge(999_999, DistributionCoefficient)
	first, err := ComputeAllocations(charge, units, nil)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	second, err := ComputeAllocations(charge, units, nil)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("allocation %d differs between runs", i)
		}
	}
}

func TestComputeAllocations_ResidentsNoOccupants(t *testing.T) {
	units := []masterdata.Unit{
		{ID: "unit-a", BuildingID: "bld-1", Number: "1", Occupants: 0, Status: masterdata.UnitStatusVacant},
		{ID: "unit-b", BuildingID: "bld-1", Number: "2", Occupants: 0, Status: masterdata.UnitStatusVacant},
	}
	_, err := ComputeAllocations(testCharge(10_000, DistributionResidents), units, nil)
	if !errors.Is(err, money.ErrNoRecipients) {
		t.Fatalf("want ErrNoRecipients, got %v", err)
	}
}

func TestComputeAllocations_CustomAmounts(t *testing.T) {
	units := testUnits()
	custom := &CustomSplit{Amounts: map[string]int64{
		"unit-001": 500_000,
		"unit-002": 300_000,
		"unit-003": 200_000,
	}}
	allocs, err := ComputeAllocations(testCharge(1_000_000, DistributionCustom), units, custom)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if allocs[0].Amount != 500_000 || allocs[1].Amount != 300_000 || allocs[2].Amount != 200_000 {
		t.Fatalf("unexpected amounts: %+v", allocs)
	}
}

func TestComputeAllocations_CustomAmountsMismatch(t *testing.T) {
	units := testUnits()
	custom := &CustomSplit{Amounts: map[string]int64{
		"unit-001": 500_000,
		"unit-002": 300_000,
		"unit-003": 100_000,
	}}
	_, err := ComputeAllocations(testCharge(1_000_000, DistributionCustom), units, custom)
	if !errors.Is(err, ErrAllocationMismatch) {
		t.Fatalf("want ErrAllocationMismatch, got %v", err)
	}
}

func TestComputeAllocations_CustomUnknownUnit(t *testing.T) {
	units := testUnits()
	custom := &CustomSplit{Amounts: map[string]int64{
		"unit-001": 1_000_000,
		"unit-999": 0,
	}}
	_, err := ComputeAllocations(testCharge(1_000_000, DistributionCustom), units, custom)
	if !errors.Is(err, ErrAllocationMismatch) {
		t.Fatalf("want ErrAllocationMismatch, got %v", err)
	}
}

func TestComputeAllocations_ItemsPerMethod(t *testing.T) {
	units := testUnits()
	charge := testCharge(0, DistributionEqual)
	charge.TotalAmount = 0
	charge.Items = []ChargeItem{
		{ID: "item-1", ChargeID: "chg-1", Title: "elevator maintenance", Category: "maintenance", Amount: 90_000},
		{ID: "item-2", ChargeID: "chg-1", Title: "cleaning", Category: "services", Amount: 225_000, Method: DistributionArea},
	}
	allocs, err := ComputeAllocations(charge, units, nil)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if got := sumAllocations(allocs); got != 315_000 {
		t.Fatalf("item sum %d != 315000", got)
	}
	// equal item: 30000 each; area item: 225000 over 100/50/75 -> 100000/50000/75000
	want := []int64{130_000, 80_000, 105_000}
	for i := range want {
		if allocs[i].Amount != want[i] {
			t.Fatalf("unit %s: want %d, got %d", allocs[i].UnitID, want[i], allocs[i].Amount)
		}
	}
}

func TestComputeAllocations_NegativeTotal(t *testing.T) {
	_, err := ComputeAllocations(testCharge(-1, DistributionEqual), testUnits(), nil)
	if !errors.Is(err, money.ErrInvalidAmount) {
		t.Fatalf("want ErrInvalidAmount, got %v", err)
	}
}
