package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	billing "condo-cloud/internal/billing/domain"
	masterdata "condo-cloud/internal/masterdata/domain"
)

type stubChargeReader struct {
	charge      *billing.Charge
	allocations []billing.Allocation
}

func (s stubChargeReader) GetByID(_ context.Context, _ string) (*billing.Charge, error) {
	return s.charge, nil
}

func (s stubChargeReader) ListAllocations(_ context.Context, _ string) ([]billing.Allocation, error) {
	return s.allocations, nil
}

type stubUnitReader struct {
	unit *masterdata.Unit
}

func (s stubUnitReader) Get(_ context.Context, _ string) (*masterdata.Unit, error) {
	return s.unit, nil
}

func TestWebhookChannelPayload(t *testing.T) {
	payloadCh := make(chan webhookPayload, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var payload webhookPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		payloadCh <- payload
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	channel, err := NewWebhookChannel(server.URL)
	if err != nil {
		t.Fatalf("new webhook channel: %v", err)
	}
	tpl, err := NewTemplate("")
	if err != nil {
		t.Fatalf("new template: %v", err)
	}

	charge := &billing.Charge{
		ID:      "chg-1",
		Title:   "Monthly Maintenance",
		DueDate: time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC),
	}
	unit := &masterdata.Unit{ID: "unit-1", Number: "12B"}

	reminder, err := NewReminder(
		stubChargeReader{charge: charge},
		stubUnitReader{unit: unit},
		channel,
		tpl,
	)
	if err != nil {
		t.Fatalf("new reminder: %v", err)
	}

	reminder.Notify(context.Background(), DebtEvent{
		Type:        "overdue",
		ChargeID:    "chg-1",
		UnitID:      "unit-1",
		Amount:      120_000,
		Outstanding: 80_000,
		DueDate:     charge.DueDate,
	})

	select {
	case payload := <-payloadCh:
		if payload.MsgType != "text" {
			t.Fatalf("expected msgtype text, got %s", payload.MsgType)
		}
		content := payload.Text.Content
		checks := []string{
			"[Debt Overdue]",
			"Unit: 12B",
			"Charge: Monthly Maintenance",
			"Amount: 1200.00",
			"Outstanding: 800.00",
			"Due Date: 2026-08-10",
			"Current Status: overdue",
			"Suggestion:",
		}
		for _, expected := range checks {
			if !strings.Contains(content, expected) {
				t.Fatalf("expected content to include %q, got %s", expected, content)
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for webhook payload")
	}
}

type recordingChannel struct {
	mu       sync.Mutex
	contents []string
}

func (r *recordingChannel) Send(_ context.Context, content string) error {
	r.mu.Lock()
	r.contents = append(r.contents, content)
	r.mu.Unlock()
	return nil
}

func (r *recordingChannel) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.contents)
}

func (r *recordingChannel) Latest() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.contents) == 0 {
		return ""
	}
	return r.contents[len(r.contents)-1]
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Add(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestReminderCooldown(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)}
	channel := &recordingChannel{}
	tpl, err := NewTemplate("")
	if err != nil {
		t.Fatalf("new template: %v", err)
	}
	charge := &billing.Charge{ID: "chg-1", Title: "Maintenance", DueDate: clock.Now()}
	unit := &masterdata.Unit{ID: "unit-1", Number: "3A"}
	event := DebtEvent{ChargeID: "chg-1", UnitID: "unit-1", Amount: 50_000, Outstanding: 50_000}

	reminder, err := NewReminder(
		stubChargeReader{charge: charge},
		stubUnitReader{unit: unit},
		channel,
		tpl,
		WithClock(clock),
		WithCooldown(10*time.Minute),
	)
	if err != nil {
		t.Fatalf("new reminder: %v", err)
	}

	reminder.Notify(context.Background(), event)
	reminder.Notify(context.Background(), event)
	if got := channel.Count(); got != 1 {
		t.Fatalf("expected 1 reminder during cooldown, got %d", got)
	}

	clock.Add(11 * time.Minute)
	reminder.Notify(context.Background(), event)
	if got := channel.Count(); got != 2 {
		t.Fatalf("expected 2 reminders after cooldown, got %d", got)
	}
}

func TestReminderDedupeWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 8, 20, 11, 0, 0, 0, time.UTC)}
	channel := &recordingChannel{}
	tpl, err := NewTemplate("")
	if err != nil {
		t.Fatalf("new template: %v", err)
	}
	charge := &billing.Charge{ID: "chg-2", Title: "Repairs", DueDate: clock.Now()}
	unit := &masterdata.Unit{ID: "unit-2", Number: "4C"}
	event := DebtEvent{ChargeID: "chg-2", UnitID: "unit-2", Amount: 70_000, Outstanding: 70_000}

	reminder, err := NewReminder(
		stubChargeReader{charge: charge},
		stubUnitReader{unit: unit},
		channel,
		tpl,
		WithClock(clock),
		WithDedupeWindow(30*time.Minute),
	)
	if err != nil {
		t.Fatalf("new reminder: %v", err)
	}

	reminder.Notify(context.Background(), event)
	clock.Add(5 * time.Minute)
	reminder.Notify(context.Background(), event)
	if got := channel.Count(); got != 1 {
		t.Fatalf("expected 1 reminder during dedupe window, got %d", got)
	}

	event.Outstanding = 40_000
	reminder.Notify(context.Background(), event)
	if got := channel.Count(); got != 2 {
		t.Fatalf("expected reminder when content changes, got %d", got)
	}
}

func TestReminderEscalation(t *testing.T) {
	channel := &recordingChannel{}
	tpl, err := NewTemplate("")
	if err != nil {
		t.Fatalf("new template: %v", err)
	}
	charge := &billing.Charge{ID: "chg-3", Title: "Maintenance", DueDate: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)}
	unit := &masterdata.Unit{ID: "unit-3", Number: "7D"}
	allocations := []billing.Allocation{
		{ChargeID: "chg-3", UnitID: "unit-3", Amount: 90_000, PaidSum: 0, Status: billing.UnitChargeStatusOverdue},
	}

	reminder, err := NewReminder(
		stubChargeReader{charge: charge, allocations: allocations},
		stubUnitReader{unit: unit},
		channel,
		tpl,
		WithEscalation(20*time.Millisecond),
		WithRequestTimeout(200*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("new reminder: %v", err)
	}

	reminder.Notify(context.Background(), DebtEvent{
		Type:        "overdue",
		ChargeID:    "chg-3",
		UnitID:      "unit-3",
		Amount:      90_000,
		Outstanding: 90_000,
	})

	deadline := time.After(300 * time.Millisecond)
	for {
		if channel.Count() >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("expected escalation reminder, got %d", channel.Count())
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}

	if !strings.Contains(channel.Latest(), "Escalated") {
		t.Fatalf("expected escalated reminder content, got %s", channel.Latest())
	}
}

func TestReminderEscalationCancelledOnSettle(t *testing.T) {
	channel := &recordingChannel{}
	charge := &billing.Charge{ID: "chg-4", Title: "Maintenance", DueDate: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)}
	allocations := []billing.Allocation{
		{ChargeID: "chg-4", UnitID: "unit-4", Amount: 10_000, PaidSum: 0, Status: billing.UnitChargeStatusOverdue},
	}

	reminder, err := NewReminder(
		stubChargeReader{charge: charge, allocations: allocations},
		stubUnitReader{},
		channel,
		nil,
		WithEscalation(30*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("new reminder: %v", err)
	}

	reminder.Notify(context.Background(), DebtEvent{
		ChargeID:    "chg-4",
		UnitID:      "unit-4",
		Amount:      10_000,
		Outstanding: 10_000,
	})
	reminder.CancelEscalation("chg-4", "unit-4")

	time.Sleep(100 * time.Millisecond)
	if got := channel.Count(); got != 1 {
		t.Fatalf("expected no escalation after cancel, got %d reminders", got)
	}
}
