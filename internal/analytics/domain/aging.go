package analytics

import (
	"sort"
	"time"

	billing "condo-cloud/internal/billing/domain"
)

// Aging bucket boundaries in days overdue. Buckets are half-open on the
// lower edge: a debt exactly 30 days overdue is still current, exactly 60
// falls in the 31-60 bucket, and so on.
const (
	agingCurrentMax = 30
	agingMidMax     = 60
	agingLateMax    = 90
)

// AgingBucket is one band of the aging report.
type AgingBucket struct {
	Label  string `json:"label"`
	Amount int64  `json:"amount"`
	Count  int    `json:"count"`
}

// Debtor is one unit's outstanding balance.
type Debtor struct {
	UnitID      string `json:"unit_id"`
	Outstanding int64  `json:"outstanding"`
	OldestDays  int    `json:"oldest_days"`
}

// AgingReport breaks outstanding debt into fixed age bands.
type AgingReport struct {
	AsOf             time.Time   `json:"as_of"`
	TotalOutstanding int64       `json:"total_outstanding"`
	Current          AgingBucket `json:"current"`
	Days31To60       AgingBucket `json:"days_31_60"`
	Days61To90       AgingBucket `json:"days_61_90"`
	Over90           AgingBucket `json:"over_90"`
	TopDebtors       []Debtor    `json:"top_debtors"`
}

// AgeDebts buckets each unit's whole outstanding balance by the age of that
// unit's oldest unpaid charge at now. A unit with several open charges lands
// in exactly one bucket and counts once; units not yet due count as current.
// Output ordering is deterministic for identical inputs.
func AgeDebts(charges []billing.Charge, allocations []billing.Allocation, now time.Time, topDebtors int) AgingReport {
	report := AgingReport{
		AsOf:       now,
		Current:    AgingBucket{Label: "0-30"},
		Days31To60: AgingBucket{Label: "31-60"},
		Days61To90: AgingBucket{Label: "61-90"},
		Over90:     AgingBucket{Label: "90+"},
	}

	dueDates := make(map[string]time.Time, len(charges))
	for _, charge := range charges {
		dueDates[charge.ID] = charge.DueDate
	}

	type debtorAgg struct {
		outstanding int64
		oldestDays  int
	}
	byUnit := make(map[string]*debtorAgg)

	for _, alloc := range allocations {
		outstanding := alloc.Amount - alloc.PaidSum
		if outstanding <= 0 {
			continue
		}
		due, ok := dueDates[alloc.ChargeID]
		if !ok {
			continue
		}
		days := daysOverdue(due, now)

		agg := byUnit[alloc.UnitID]
		if agg == nil {
			agg = &debtorAgg{}
			byUnit[alloc.UnitID] = agg
		}
		agg.outstanding += outstanding
		if days > agg.oldestDays {
			agg.oldestDays = days
		}
	}

	debtors := make([]Debtor, 0, len(byUnit))
	for unitID, agg := range byUnit {
		debtors = append(debtors, Debtor{UnitID: unitID, Outstanding: agg.outstanding, OldestDays: agg.oldestDays})
	}
	sort.Slice(debtors, func(i, j int) bool {
		if debtors[i].Outstanding != debtors[j].Outstanding {
			return debtors[i].Outstanding > debtors[j].Outstanding
		}
		return debtors[i].UnitID < debtors[j].UnitID
	})

	for _, debtor := range debtors {
		report.TotalOutstanding += debtor.Outstanding
		bucket := &report.Current
		switch {
		case debtor.OldestDays <= agingCurrentMax:
			bucket = &report.Current
		case debtor.OldestDays <= agingMidMax:
			bucket = &report.Days31To60
		case debtor.OldestDays <= agingLateMax:
			bucket = &report.Days61To90
		default:
			bucket = &report.Over90
		}
		bucket.Amount += debtor.Outstanding
		bucket.Count++
	}

	if topDebtors > 0 && len(debtors) > topDebtors {
		debtors = debtors[:topDebtors]
	}
	report.TopDebtors = debtors
	return report
}

// daysOverdue is the number of whole days elapsed since the due date,
// floored, and never negative.
func daysOverdue(due, now time.Time) int {
	if !now.After(due) {
		return 0
	}
	return int(now.Sub(due).Hours() / 24)
}
