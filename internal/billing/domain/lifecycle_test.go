package billing

import (
	"errors"
	"testing"
	"time"
)

func verifiedPayment(amount int64) Payment {
	return Payment{
		ID:       "pay-1",
		ChargeID: "chg-1",
		UnitID:   "unit-001",
		Amount:   amount,
		Method:   PaymentMethodOnline,
		Status:   PaymentStatusVerified,
	}
}

func TestRecordPayment_Overpayment(t *testing.T) {
	alloc := Allocation{ChargeID: "chg-1", UnitID: "unit-001", Amount: 1_000_000, Status: UnitChargeStatusPartiallyPaid}
	_, err := RecordPayment(alloc, 900_000, verifiedPayment(200_000))
	if !errors.Is(err, ErrOverpayment) {
		t.Fatalf("want ErrOverpayment, got %v", err)
	}
}

func TestRecordPayment_PartialThenPaid(t *testing.T) {
	alloc := Allocation{ChargeID: "chg-1", UnitID: "unit-001", Amount: 1_000_000, Status: UnitChargeStatusPending}

	outcome, err := RecordPayment(alloc, 0, verifiedPayment(400_000))
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if outcome.Status != UnitChargeStatusPartiallyPaid || outcome.NewPaidSum != 400_000 {
		t.Fatalf("want partially_paid/400000, got %s/%d", outcome.Status, outcome.NewPaidSum)
	}

	outcome, err = RecordPayment(alloc, 400_000, verifiedPayment(600_000))
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if outcome.Status != UnitChargeStatusPaid || outcome.NewPaidSum != 1_000_000 {
		t.Fatalf("want paid/1000000, got %s/%d", outcome.Status, outcome.NewPaidSum)
	}
}

func TestRecordPayment_PendingPaymentNoEffect(t *testing.T) {
	alloc := Allocation{ChargeID: "chg-1", UnitID: "unit-001", Amount: 1_000_000, Status: UnitChargeStatusPending}
	payment := verifiedPayment(400_000)
	payment.Status = PaymentStatusPending

	outcome, err := RecordPayment(alloc, 0, payment)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if outcome.Status != UnitChargeStatusPending || outcome.NewPaidSum != 0 {
		t.Fatalf("pending payment must not move state, got %s/%d", outcome.Status, outcome.NewPaidSum)
	}
}

func TestExpireIfOverdue_Idempotent(t *testing.T) {
	due := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	after := due.AddDate(0, 0, 5)

	status := ExpireIfOverdue(UnitChargeStatusPending, due, after)
	if status != UnitChargeStatusOverdue {
		t.Fatalf("want overdue, got %s", status)
	}
	if again := ExpireIfOverdue(status, due, after.AddDate(0, 0, 1)); again != UnitChargeStatusOverdue {
		t.Fatalf("repeated expire changed status to %s", again)
	}
	if paid := ExpireIfOverdue(UnitChargeStatusPaid, due, after); paid != UnitChargeStatusPaid {
		t.Fatalf("paid must stay terminal, got %s", paid)
	}
}

func TestExpireIfOverdue_BeforeDueDate(t *testing.T) {
	due := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	status := ExpireIfOverdue(UnitChargeStatusPartiallyPaid, due, due.Add(-time.Hour))
	if status != UnitChargeStatusPartiallyPaid {
		t.Fatalf("want partially_paid, got %s", status)
	}
}

func TestDeriveChargeProgress(t *testing.T) {
	paid := Allocation{Amount: 100, PaidSum: 100, Status: UnitChargeStatusPaid}
	pending := Allocation{Amount: 100, Status: UnitChargeStatusPending}
	partial := Allocation{Amount: 100, PaidSum: 40, Status: UnitChargeStatusPartiallyPaid}
	overdue := Allocation{Amount: 100, Status: UnitChargeStatusOverdue}

	if got := DeriveChargeProgress([]Allocation{paid, paid}); got != ProgressPaid {
		t.Fatalf("all paid: want paid, got %s", got)
	}
	if got := DeriveChargeProgress([]Allocation{paid, overdue}); got != ProgressOverdue {
		t.Fatalf("any overdue: want overdue, got %s", got)
	}
	if got := DeriveChargeProgress([]Allocation{paid, partial}); got != ProgressPartiallyPaid {
		t.Fatalf("some money: want partially_paid, got %s", got)
	}
	if got := DeriveChargeProgress([]Allocation{pending, pending}); got != ProgressIssued {
		t.Fatalf("no money: want issued, got %s", got)
	}
	if got := DeriveChargeProgress(nil); got != ProgressIssued {
		t.Fatalf("no allocations: want issued, got %s", got)
	}
}

func TestStatusForPaidSum_ZeroAmount(t *testing.T) {
	if got := StatusForPaidSum(0, 0); got != UnitChargeStatusPaid {
		t.Fatalf("zero allocation is immediately paid, got %s", got)
	}
}
