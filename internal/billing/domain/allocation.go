package billing

import (
	"sort"

	masterdata "condo-cloud/internal/masterdata/domain"
	"condo-cloud/internal/money"
)

// Allocation is the computed owed amount for one (unit, charge) pair.
// The amount never changes after issue; only Status and PaidSum move.
type Allocation struct {
	ChargeID string
	UnitID   string
	Amount   int64
	Status   UnitChargeStatus
	PaidSum  int64
}

// CustomSplit carries caller-supplied weights or absolute amounts per unit
// id for the custom distribution method. When Amounts is set it wins and
// must sum to the charge total exactly; no rounding step applies.
type CustomSplit struct {
	Weights map[string]float64
	Amounts map[string]int64
}

// ComputeAllocations splits a charge across the unit roster. It is a pure
// function of its inputs: the same charge, roster snapshot and custom split
// always produce identical allocations, including remainder placement. The
// sum of the returned amounts equals the charge total exactly.
func ComputeAllocations(charge Charge, units []masterdata.Unit, custom *CustomSplit) ([]Allocation, error) {
	total := charge.EffectiveTotal()
	if total < 0 {
		return nil, ErrInvalidAmount
	}

	// Sort a copy by unit id so remainder ties always land on the lowest id.
	roster := append([]masterdata.Unit(nil), units...)
	sort.Slice(roster, func(i, j int) bool { return roster[i].ID < roster[j].ID })

	sums := make([]int64, len(roster))
	if len(charge.Items) == 0 {
		shares, err := splitOnce(total, charge.Method, roster, custom)
		if err != nil {
			return nil, err
		}
		sums = shares
	} else {
		for _, item := range charge.Items {
			method := item.Method
			if method == "" {
				method = charge.Method
			}
			shares, err := splitOnce(item.Amount, method, roster, custom)
			if err != nil {
				return nil, err
			}
			for i, share := range shares {
				sums[i] += share
			}
		}
	}

	allocations := make([]Allocation, len(roster))
	for i, unit := range roster {
		allocations[i] = Allocation{
			ChargeID: charge.ID,
			UnitID:   unit.ID,
			Amount:   sums[i],
			Status:   UnitChargeStatusPending,
		}
	}
	return allocations, nil
}

func splitOnce(total int64, method DistributionMethod, roster []masterdata.Unit, custom *CustomSplit) ([]int64, error) {
	if method == DistributionCustom {
		return splitCustom(total, roster, custom)
	}
	weights := make([]float64, len(roster))
	for i, unit := range roster {
		switch method {
		case DistributionEqual:
			weights[i] = 1
		case DistributionArea:
			weights[i] = unit.FloorAreaM2
		case DistributionCoefficient:
			weights[i] = unit.Coefficient
		case DistributionResidents:
			weights[i] = float64(unit.Occupants)
		default:
			return nil, ErrUnknownDistributionMethod
		}
	}
	return money.ProportionalSplit(total, weights)
}

func splitCustom(total int64, roster []masterdata.Unit, custom *CustomSplit) ([]int64, error) {
	if custom == nil || (len(custom.Amounts) == 0 && len(custom.Weights) == 0) {
		return nil, ErrAllocationMismatch
	}
	if len(custom.Amounts) > 0 {
		if total < 0 {
			return nil, ErrInvalidAmount
		}
		known := make(map[string]struct{}, len(roster))
		shares := make([]int64, len(roster))
		var sum int64
		for i, unit := range roster {
			known[unit.ID] = struct{}{}
			amount := custom.Amounts[unit.ID]
			if amount < 0 {
				return nil, ErrInvalidAmount
			}
			shares[i] = amount
			sum += amount
		}
		for unitID := range custom.Amounts {
			if _, ok := known[unitID]; !ok {
				return nil, ErrAllocationMismatch
			}
		}
		if sum != total {
			return nil, ErrAllocationMismatch
		}
		return shares, nil
	}

	weights := make([]float64, len(roster))
	for i, unit := range roster {
		weights[i] = custom.Weights[unit.ID]
	}
	return money.ProportionalSplit(total, weights)
}
