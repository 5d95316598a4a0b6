package application

import (
	"context"
	"errors"
	"os"
	"strconv"
	"time"

	analytics "condo-cloud/internal/analytics/domain"
	billing "condo-cloud/internal/billing/domain"
	"condo-cloud/internal/observability/metrics"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// Service computes collection stats and debt aging for one building.
type Service struct {
	charges    billing.ChargeRepository
	clock      Clock
	buildingID string
	topDebtors int
}

// NewService constructs the analytics service. The top debtor list length
// comes from ANALYTICS_TOP_DEBTORS, defaulting to 10.
func NewService(charges billing.ChargeRepository, clock Clock, buildingID string) (*Service, error) {
	if charges == nil {
		return nil, errors.New("analytics service: nil charge repo")
	}
	if clock == nil {
		return nil, errors.New("analytics service: nil clock")
	}
	if buildingID == "" {
		return nil, errors.New("analytics service: empty building id")
	}
	topDebtors := 10
	if value := os.Getenv("ANALYTICS_TOP_DEBTORS"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			topDebtors = parsed
		}
	}
	return &Service{charges: charges, clock: clock, buildingID: buildingID, topDebtors: topDebtors}, nil
}

// Collection returns collection stats for one charge.
func (s *Service) Collection(ctx context.Context, chargeID string) (analytics.CollectionStats, error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveReportBuild("collection", result, time.Since(start))
	}()

	charge, err := s.charges.GetByID(ctx, chargeID)
	if err != nil {
		result = metrics.ResultError
		return analytics.CollectionStats{}, err
	}
	if charge == nil {
		result = metrics.ResultError
		return analytics.CollectionStats{}, billing.ErrChargeNotFound
	}
	allocations, err := s.charges.ListAllocations(ctx, chargeID)
	if err != nil {
		result = metrics.ResultError
		return analytics.CollectionStats{}, err
	}
	return analytics.AggregateCollection(chargeID, allocations), nil
}

// Aging builds the debt aging report as of the given time. A zero asOf
// uses the injected clock.
func (s *Service) Aging(ctx context.Context, asOf time.Time) (analytics.AgingReport, error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveReportBuild("aging", result, time.Since(start))
	}()

	if asOf.IsZero() {
		asOf = s.clock.Now()
	}
	charges, err := s.charges.ListByBuilding(ctx, s.buildingID)
	if err != nil {
		result = metrics.ResultError
		return analytics.AgingReport{}, err
	}
	open, err := s.charges.ListOpenAllocations(ctx, s.buildingID)
	if err != nil {
		result = metrics.ResultError
		return analytics.AgingReport{}, err
	}
	return analytics.AgeDebts(charges, open, asOf, s.topDebtors), nil
}
