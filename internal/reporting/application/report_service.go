package application

import (
	"context"
	"errors"
	"time"

	billing "condo-cloud/internal/billing/domain"
	expenses "condo-cloud/internal/expenses/domain"
	masterdata "condo-cloud/internal/masterdata/domain"
	"condo-cloud/internal/observability/metrics"
	reporting "condo-cloud/internal/reporting/domain"
)

// ReportService builds financial reports for one building.
type ReportService struct {
	payments   billing.PaymentRepository
	charges    billing.ChargeRepository
	expenses   expenses.Repository
	units      masterdata.UnitRepository
	buildingID string
	cfg        Config
}

// NewReportService constructs a service.
func NewReportService(payments billing.PaymentRepository, charges billing.ChargeRepository, expenseRepo expenses.Repository, units masterdata.UnitRepository, buildingID string, cfg Config) (*ReportService, error) {
	if payments == nil {
		return nil, errors.New("report service: nil payment repo")
	}
	if charges == nil {
		return nil, errors.New("report service: nil charge repo")
	}
	if expenseRepo == nil {
		return nil, errors.New("report service: nil expense repo")
	}
	if units == nil {
		return nil, errors.New("report service: nil unit repo")
	}
	if buildingID == "" {
		return nil, errors.New("report service: empty building id")
	}
	return &ReportService{
		payments:   payments,
		charges:    charges,
		expenses:   expenseRepo,
		units:      units,
		buildingID: buildingID,
		cfg:        cfg,
	}, nil
}

// Income builds an income report for the window.
func (s *ReportService) Income(ctx context.Context, rng reporting.DateRange) (reporting.IncomeReport, error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveReportBuild("income", result, time.Since(start))
	}()

	payments, err := s.payments.ListVerifiedInRange(ctx, s.buildingID, rng.From, rng.To)
	if err != nil {
		result = metrics.ResultError
		return reporting.IncomeReport{}, err
	}
	return reporting.BuildIncomeReport(rng, payments, s.cfg.TopN), nil
}

// Expense builds an expense report for the window.
func (s *ReportService) Expense(ctx context.Context, rng reporting.DateRange) (reporting.ExpenseReport, error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveReportBuild("expense", result, time.Since(start))
	}()

	list, err := s.expenses.ListInRange(ctx, s.buildingID, rng.From, rng.To)
	if err != nil {
		result = metrics.ResultError
		return reporting.ExpenseReport{}, err
	}
	return reporting.BuildExpenseReport(rng, list, s.cfg.TopN), nil
}

// Balance nets income against expenses for the window.
func (s *ReportService) Balance(ctx context.Context, rng reporting.DateRange) (reporting.BalanceReport, error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveReportBuild("balance", result, time.Since(start))
	}()

	payments, err := s.payments.ListVerifiedInRange(ctx, s.buildingID, rng.From, rng.To)
	if err != nil {
		result = metrics.ResultError
		return reporting.BalanceReport{}, err
	}
	list, err := s.expenses.ListInRange(ctx, s.buildingID, rng.From, rng.To)
	if err != nil {
		result = metrics.ResultError
		return reporting.BalanceReport{}, err
	}
	return reporting.BuildBalanceReport(rng, payments, list, s.cfg.OpeningBalance), nil
}

// Unit summarizes one unit's payments and outstanding allocations.
func (s *ReportService) Unit(ctx context.Context, rng reporting.DateRange, unitID string) (reporting.UnitReport, error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveReportBuild("unit", result, time.Since(start))
	}()

	if unitID == "" {
		result = metrics.ResultError
		return reporting.UnitReport{}, errors.New("report service: empty unit id")
	}
	payments, err := s.payments.ListVerifiedInRange(ctx, s.buildingID, rng.From, rng.To)
	if err != nil {
		result = metrics.ResultError
		return reporting.UnitReport{}, err
	}

	allocations, err := s.issuedAllocations(ctx)
	if err != nil {
		result = metrics.ResultError
		return reporting.UnitReport{}, err
	}
	return reporting.BuildUnitReport(rng, unitID, payments, allocations), nil
}

// Roster reports how much of the unit roster is fully settled right now.
func (s *ReportService) Roster(ctx context.Context) (reporting.RosterSummary, error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveReportBuild("roster", result, time.Since(start))
	}()

	units, err := s.units.ListByBuilding(ctx, s.buildingID)
	if err != nil {
		result = metrics.ResultError
		return reporting.RosterSummary{}, err
	}
	allocations, err := s.issuedAllocations(ctx)
	if err != nil {
		result = metrics.ResultError
		return reporting.RosterSummary{}, err
	}

	unitIDs := make([]string, 0, len(units))
	for _, unit := range units {
		unitIDs = append(unitIDs, unit.ID)
	}
	return reporting.BuildRosterSummary(unitIDs, allocations), nil
}

// issuedAllocations collects the allocations of every issued charge in the
// building.
func (s *ReportService) issuedAllocations(ctx context.Context) ([]billing.Allocation, error) {
	charges, err := s.charges.ListByBuilding(ctx, s.buildingID)
	if err != nil {
		return nil, err
	}
	var allocations []billing.Allocation
	for _, charge := range charges {
		if charge.Status != billing.ChargeStatusIssued {
			continue
		}
		chargeAllocs, err := s.charges.ListAllocations(ctx, charge.ID)
		if err != nil {
			return nil, err
		}
		allocations = append(allocations, chargeAllocs...)
	}
	return allocations, nil
}
