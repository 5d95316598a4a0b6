package integration_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	billingapp "condo-cloud/internal/billing/application"
	billing "condo-cloud/internal/billing/domain"
	billingrepo "condo-cloud/internal/billing/infrastructure/postgres"
	masterdata "condo-cloud/internal/masterdata/domain"
	masterdatarepo "condo-cloud/internal/masterdata/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type sweepClock struct {
	now time.Time
}

func (c *sweepClock) Now() time.Time { return c.now }

func TestChargeLifecycle_Postgres(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := applyBillingMigrations(db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	ctx := context.Background()
	buildingID := "bldg-itest"

	_, _ = db.ExecContext(ctx, "DELETE FROM payments WHERE charge_id IN (SELECT id FROM charges WHERE building_id = $1)", buildingID)
	_, _ = db.ExecContext(ctx, "DELETE FROM allocations WHERE charge_id IN (SELECT id FROM charges WHERE building_id = $1)", buildingID)
	_, _ = db.ExecContext(ctx, "DELETE FROM charge_items WHERE charge_id IN (SELECT id FROM charges WHERE building_id = $1)", buildingID)
	_, _ = db.ExecContext(ctx, "DELETE FROM charges WHERE building_id = $1", buildingID)
	_, _ = db.ExecContext(ctx, "DELETE FROM units WHERE building_id = $1", buildingID)

	units := masterdatarepo.NewUnitRepository(db)
	for _, unit := range []masterdata.Unit{
		{ID: "itest-unit-1", BuildingID: buildingID, Number: "1A", FloorAreaM2: 75, Coefficient: 1, Occupants: 2, Status: masterdata.UnitStatusOccupied},
		{ID: "itest-unit-2", BuildingID: buildingID, Number: "2A", FloorAreaM2: 95, Coefficient: 1, Occupants: 4, Status: masterdata.UnitStatusOccupied},
		{ID: "itest-unit-3", BuildingID: buildingID, Number: "3A", FloorAreaM2: 110, Coefficient: 1.2, Occupants: 1, Status: masterdata.UnitStatusOccupied},
	} {
		u := unit
		u.CreatedAt = time.Now().UTC()
		u.UpdatedAt = u.CreatedAt
		if err := units.Save(ctx, &u); err != nil {
			t.Fatalf("seed unit: %v", err)
		}
	}

	charges := billingrepo.NewChargeRepository(db)
	payments := billingrepo.NewPaymentRepository(db)
	clock := &sweepClock{now: time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)}
	cfg := billingapp.Config{
		Currency:      "IRR",
		DefaultMethod: string(billing.DistributionArea),
		GraceDays:     2,
	}
	service, err := billingapp.NewChargeService(charges, payments, units, nil, clock, buildingID, cfg)
	if err != nil {
		t.Fatalf("charge service: %v", err)
	}

	due := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	charge, err := service.CreateCharge(ctx, &billing.Charge{
		Title:       "august maintenance",
		TotalAmount: 280_000,
		DueDate:     due,
		Items: []billing.ChargeItem{
			{Title: "cleaning", Category: "services", Amount: 180_000},
			{Title: "elevator", Category: "maintenance", Amount: 100_000, Method: billing.DistributionEqual},
		},
	})
	if err != nil {
		t.Fatalf("create charge: %v", err)
	}

	issued, allocations, err := service.Issue(ctx, charge.ID, nil)
	if err != nil {
		t.Fatalf("issue charge: %v", err)
	}
	if issued.Status != billing.ChargeStatusIssued {
		t.Fatalf("expected issued, got %s", issued.Status)
	}
	var sum int64
	for _, alloc := range allocations {
		sum += alloc.Amount
	}
	if sum != 280_000 {
		t.Fatalf("allocation sum mismatch: %d", sum)
	}

	// Re-reading through the repository must match what Issue returned.
	stored, err := charges.ListAllocations(ctx, charge.ID)
	if err != nil {
		t.Fatalf("list allocations: %v", err)
	}
	if len(stored) != len(allocations) {
		t.Fatalf("allocation count mismatch: %d != %d", len(stored), len(allocations))
	}

	target := stored[0]
	payment, err := service.SubmitPayment(ctx, &billing.Payment{
		ChargeID:  charge.ID,
		UnitID:    target.UnitID,
		Amount:    target.Amount,
		Method:    billing.PaymentMethodOnline,
		Reference: "ref-itest-1",
	})
	if err != nil {
		t.Fatalf("submit payment: %v", err)
	}
	outcome, err := service.VerifyPayment(ctx, payment.ID)
	if err != nil {
		t.Fatalf("verify payment: %v", err)
	}
	if outcome.Status != billing.UnitChargeStatusPaid {
		t.Fatalf("expected paid, got %s", outcome.Status)
	}
	if outcome.NewPaidSum != target.Amount {
		t.Fatalf("paid sum mismatch: %d", outcome.NewPaidSum)
	}

	// The guarded update must refuse anything beyond the allocation amount.
	over, err := service.SubmitPayment(ctx, &billing.Payment{
		ChargeID: charge.ID,
		UnitID:   target.UnitID,
		Amount:   1,
		Method:   billing.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("submit overpayment: %v", err)
	}
	if _, err := service.VerifyPayment(ctx, over.ID); !errors.Is(err, billing.ErrOverpayment) {
		t.Fatalf("expected ErrOverpayment, got %v", err)
	}

	// Sweep past due date plus grace; unpaid units become overdue.
	transitioned, err := service.ExpireOverdue(ctx, due.AddDate(0, 0, 3))
	if err != nil {
		t.Fatalf("expire overdue: %v", err)
	}
	if transitioned != len(stored)-1 {
		t.Fatalf("expected %d transitions, got %d", len(stored)-1, transitioned)
	}

	open, err := charges.ListOpenAllocations(ctx, buildingID)
	if err != nil {
		t.Fatalf("list open allocations: %v", err)
	}
	for _, alloc := range open {
		if alloc.UnitID == target.UnitID {
			t.Fatalf("settled unit must not be open")
		}
		if alloc.Status != billing.UnitChargeStatusOverdue {
			t.Fatalf("open allocation must be overdue, got %s", alloc.Status)
		}
	}

	verified, err := payments.ListVerifiedInRange(ctx, buildingID, clock.now.AddDate(0, 0, -1), clock.now.AddDate(0, 0, 30))
	if err != nil {
		t.Fatalf("list verified: %v", err)
	}
	if len(verified) != 1 || verified[0].ID != payment.ID {
		t.Fatalf("verified payment ledger mismatch: %+v", verified)
	}
}

func applyBillingMigrations(db *sql.DB) error {
	root := projectRoot()
	files := []string{
		filepath.Join(root, "migrations", "001_masterdata.sql"),
		filepath.Join(root, "migrations", "002_billing.sql"),
	}
	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if _, err := db.Exec(string(content)); err != nil {
			return err
		}
	}
	return nil
}

func projectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	return filepath.Clean(filepath.Join(dir, "..", "..", ".."))
}
