package reporting

import (
	"errors"
	"sort"
	"time"

	billing "condo-cloud/internal/billing/domain"
	expenses "condo-cloud/internal/expenses/domain"
)

// ErrInvalidDateRange flags a report window whose end precedes its start.
var ErrInvalidDateRange = errors.New("reporting: invalid date range")

// DateRange is an inclusive [From, To] report window.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// NewDateRange validates a report window.
func NewDateRange(from, to time.Time) (DateRange, error) {
	if from.IsZero() || to.IsZero() {
		return DateRange{}, ErrInvalidDateRange
	}
	if to.Before(from) {
		return DateRange{}, ErrInvalidDateRange
	}
	return DateRange{From: from.UTC(), To: to.UTC()}, nil
}

// Contains reports whether t falls inside the window, bounds included.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}

// MethodBreakdown is income grouped by payment method.
type MethodBreakdown struct {
	Method string `json:"method"`
	Amount int64  `json:"amount"`
	Count  int    `json:"count"`
}

// UnitBreakdown is income grouped by unit.
type UnitBreakdown struct {
	UnitID string `json:"unit_id"`
	Amount int64  `json:"amount"`
	Count  int    `json:"count"`
}

// IncomeReport aggregates verified payments inside a window.
type IncomeReport struct {
	Range          DateRange         `json:"range"`
	TotalIncome    int64             `json:"total_income"`
	PaymentCount   int               `json:"payment_count"`
	AveragePayment int64             `json:"average_payment"`
	ByMethod       []MethodBreakdown `json:"by_method"`
	ByUnit         []UnitBreakdown   `json:"by_unit"`
	TopUnits       []UnitBreakdown   `json:"top_units"`
}

// BuildIncomeReport folds verified payments into an income report. Only
// verified payments whose verification time falls inside the window count.
// TopUnits ranks units by paid amount descending, truncated to topN when
// topN is positive. Breakdowns are sorted so identical inputs produce
// byte-identical output.
func BuildIncomeReport(rng DateRange, payments []billing.Payment, topN int) IncomeReport {
	report := IncomeReport{Range: rng}
	byMethod := make(map[string]*MethodBreakdown)
	byUnit := make(map[string]*UnitBreakdown)

	for _, payment := range payments {
		if payment.Status != billing.PaymentStatusVerified {
			continue
		}
		if !rng.Contains(payment.VerifiedAt) {
			continue
		}
		report.TotalIncome += payment.Amount
		report.PaymentCount++

		method := string(payment.Method)
		mb := byMethod[method]
		if mb == nil {
			mb = &MethodBreakdown{Method: method}
			byMethod[method] = mb
		}
		mb.Amount += payment.Amount
		mb.Count++

		ub := byUnit[payment.UnitID]
		if ub == nil {
			ub = &UnitBreakdown{UnitID: payment.UnitID}
			byUnit[payment.UnitID] = ub
		}
		ub.Amount += payment.Amount
		ub.Count++
	}

	if report.PaymentCount > 0 {
		report.AveragePayment = report.TotalIncome / int64(report.PaymentCount)
	}
	report.ByMethod = make([]MethodBreakdown, 0, len(byMethod))
	for _, mb := range byMethod {
		report.ByMethod = append(report.ByMethod, *mb)
	}
	sort.Slice(report.ByMethod, func(i, j int) bool { return report.ByMethod[i].Method < report.ByMethod[j].Method })

	report.ByUnit = make([]UnitBreakdown, 0, len(byUnit))
	for _, ub := range byUnit {
		report.ByUnit = append(report.ByUnit, *ub)
	}
	sort.Slice(report.ByUnit, func(i, j int) bool { return report.ByUnit[i].UnitID < report.ByUnit[j].UnitID })

	report.TopUnits = append([]UnitBreakdown(nil), report.ByUnit...)
	sort.Slice(report.TopUnits, func(i, j int) bool {
		if report.TopUnits[i].Amount != report.TopUnits[j].Amount {
			return report.TopUnits[i].Amount > report.TopUnits[j].Amount
		}
		return report.TopUnits[i].UnitID < report.TopUnits[j].UnitID
	})
	if topN > 0 && len(report.TopUnits) > topN {
		report.TopUnits = report.TopUnits[:topN]
	}
	return report
}

// CategoryBreakdown is spending grouped by expense category.
type CategoryBreakdown struct {
	Category string `json:"category"`
	Amount   int64  `json:"amount"`
	Count    int    `json:"count"`
}

// VendorBreakdown is spending grouped by vendor.
type VendorBreakdown struct {
	Vendor string `json:"vendor"`
	Amount int64  `json:"amount"`
	Count  int    `json:"count"`
}

// ExpenseLine is one expense inside the largest-expenses ranking.
type ExpenseLine struct {
	ID         string    `json:"id"`
	Category   string    `json:"category"`
	Vendor     string    `json:"vendor,omitempty"`
	Amount     int64     `json:"amount"`
	IncurredOn time.Time `json:"incurred_on"`
}

// ExpenseReport aggregates expenses inside a window.
type ExpenseReport struct {
	Range        DateRange           `json:"range"`
	TotalExpense int64               `json:"total_expense"`
	ExpenseCount int                 `json:"expense_count"`
	ByCategory   []CategoryBreakdown `json:"by_category"`
	ByVendor     []VendorBreakdown   `json:"by_vendor"`
	Largest      []ExpenseLine       `json:"largest"`
}

// BuildExpenseReport folds expenses into an expense report. Largest ranks
// in-window expenses by amount descending, truncated to topN when topN is
// positive.
func BuildExpenseReport(rng DateRange, list []expenses.Expense, topN int) ExpenseReport {
	report := ExpenseReport{Range: rng}
	byCategory := make(map[string]*CategoryBreakdown)
	byVendor := make(map[string]*VendorBreakdown)

	for _, expense := range list {
		if !rng.Contains(expense.IncurredOn) {
			continue
		}
		report.TotalExpense += expense.Amount
		report.ExpenseCount++
		report.Largest = append(report.Largest, ExpenseLine{
			ID:         expense.ID,
			Category:   expense.Category,
			Vendor:     expense.Vendor,
			Amount:     expense.Amount,
			IncurredOn: expense.IncurredOn,
		})

		cb := byCategory[expense.Category]
		if cb == nil {
			cb = &CategoryBreakdown{Category: expense.Category}
			byCategory[expense.Category] = cb
		}
		cb.Amount += expense.Amount
		cb.Count++

		vb := byVendor[expense.Vendor]
		if vb == nil {
			vb = &VendorBreakdown{Vendor: expense.Vendor}
			byVendor[expense.Vendor] = vb
		}
		vb.Amount += expense.Amount
		vb.Count++
	}

	report.ByCategory = make([]CategoryBreakdown, 0, len(byCategory))
	for _, cb := range byCategory {
		report.ByCategory = append(report.ByCategory, *cb)
	}
	sort.Slice(report.ByCategory, func(i, j int) bool { return report.ByCategory[i].Category < report.ByCategory[j].Category })

	report.ByVendor = make([]VendorBreakdown, 0, len(byVendor))
	for _, vb := range byVendor {
		report.ByVendor = append(report.ByVendor, *vb)
	}
	sort.Slice(report.ByVendor, func(i, j int) bool { return report.ByVendor[i].Vendor < report.ByVendor[j].Vendor })

	sort.Slice(report.Largest, func(i, j int) bool {
		if report.Largest[i].Amount != report.Largest[j].Amount {
			return report.Largest[i].Amount > report.Largest[j].Amount
		}
		return report.Largest[i].ID < report.Largest[j].ID
	})
	if topN > 0 && len(report.Largest) > topN {
		report.Largest = report.Largest[:topN]
	}
	return report
}

// BalanceReport nets income against expenses for a window.
type BalanceReport struct {
	Range        DateRange `json:"range"`
	TotalIncome  int64     `json:"total_income"`
	TotalExpense int64     `json:"total_expense"`
	Net          int64     `json:"net"`
	ProfitMargin float64   `json:"profit_margin"`
	FundBalance  int64     `json:"fund_balance"`
}

// BuildBalanceReport nets the window. ProfitMargin is net over income as a
// percentage and reports 0 when income is zero. FundBalance adds the net to
// the externally supplied opening balance.
func BuildBalanceReport(rng DateRange, payments []billing.Payment, list []expenses.Expense, openingBalance int64) BalanceReport {
	income := BuildIncomeReport(rng, payments, 0)
	expense := BuildExpenseReport(rng, list, 0)

	report := BalanceReport{
		Range:        rng,
		TotalIncome:  income.TotalIncome,
		TotalExpense: expense.TotalExpense,
		Net:          income.TotalIncome - expense.TotalExpense,
		FundBalance:  openingBalance + income.TotalIncome - expense.TotalExpense,
	}
	if report.TotalIncome > 0 {
		report.ProfitMargin = float64(report.Net) / float64(report.TotalIncome) * 100
	}
	return report
}

// UnitLine is one allocation of a unit inside a unit report.
type UnitLine struct {
	ChargeID    string `json:"charge_id"`
	Amount      int64  `json:"amount"`
	PaidSum     int64  `json:"paid_sum"`
	Outstanding int64  `json:"outstanding"`
	Status      string `json:"status"`
}

// UnitReport summarizes one unit's position. PaymentRate is the paid share
// of everything allocated to the unit, as a percentage.
type UnitReport struct {
	Range        DateRange  `json:"range"`
	UnitID       string     `json:"unit_id"`
	TotalPaid    int64      `json:"total_paid"`
	PaymentCount int        `json:"payment_count"`
	Outstanding  int64      `json:"outstanding"`
	PaymentRate  float64    `json:"payment_rate"`
	Lines        []UnitLine `json:"lines"`
}

// BuildUnitReport summarizes payments and open allocations for one unit.
// Lines are sorted by charge id.
func BuildUnitReport(rng DateRange, unitID string, payments []billing.Payment, allocations []billing.Allocation) UnitReport {
	report := UnitReport{Range: rng, UnitID: unitID}

	for _, payment := range payments {
		if payment.UnitID != unitID {
			continue
		}
		if payment.Status != billing.PaymentStatusVerified {
			continue
		}
		if !rng.Contains(payment.VerifiedAt) {
			continue
		}
		report.TotalPaid += payment.Amount
		report.PaymentCount++
	}

	var allocated, paid int64
	for _, alloc := range allocations {
		if alloc.UnitID != unitID {
			continue
		}
		outstanding := alloc.Amount - alloc.PaidSum
		if outstanding < 0 {
			outstanding = 0
		}
		allocated += alloc.Amount
		paid += alloc.PaidSum
		report.Outstanding += outstanding
		report.Lines = append(report.Lines, UnitLine{
			ChargeID:    alloc.ChargeID,
			Amount:      alloc.Amount,
			PaidSum:     alloc.PaidSum,
			Outstanding: outstanding,
			Status:      string(alloc.Status),
		})
	}
	if allocated > 0 {
		rate := float64(paid) / float64(allocated) * 100
		if rate < 0 {
			rate = 0
		}
		if rate > 100 {
			rate = 100
		}
		report.PaymentRate = rate
	}
	sort.Slice(report.Lines, func(i, j int) bool { return report.Lines[i].ChargeID < report.Lines[j].ChargeID })
	return report
}

// RosterSummary is the settlement picture across the whole unit roster.
// SettledRate is the share of units with nothing outstanding, as a
// percentage over all roster units.
type RosterSummary struct {
	TotalUnits     int     `json:"total_units"`
	SettledUnits   int     `json:"settled_units"`
	UnsettledUnits int     `json:"unsettled_units"`
	SettledRate    float64 `json:"settled_rate"`
}

// BuildRosterSummary counts settled units against the roster. A unit with
// no allocations owes nothing and counts as settled.
func BuildRosterSummary(unitIDs []string, allocations []billing.Allocation) RosterSummary {
	outstanding := make(map[string]int64, len(unitIDs))
	for _, alloc := range allocations {
		owed := alloc.Amount - alloc.PaidSum
		if owed > 0 {
			outstanding[alloc.UnitID] += owed
		}
	}

	summary := RosterSummary{TotalUnits: len(unitIDs)}
	for _, unitID := range unitIDs {
		if outstanding[unitID] > 0 {
			summary.UnsettledUnits++
		} else {
			summary.SettledUnits++
		}
	}
	if summary.TotalUnits > 0 {
		summary.SettledRate = float64(summary.SettledUnits) / float64(summary.TotalUnits) * 100
	}
	return summary
}
