package notify

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	billing "condo-cloud/internal/billing/domain"
	masterdata "condo-cloud/internal/masterdata/domain"
)

// ChargeReader loads charge and allocation state.
type ChargeReader interface {
	GetByID(ctx context.Context, id string) (*billing.Charge, error)
	ListAllocations(ctx context.Context, chargeID string) ([]billing.Allocation, error)
}

// UnitReader loads unit metadata.
type UnitReader interface {
	Get(ctx context.Context, id string) (*masterdata.Unit, error)
}

// Clock provides time for scheduling.
type Clock interface {
	Now() time.Time
}

// DebtEvent describes an overdue allocation to remind on.
type DebtEvent struct {
	Type        string
	ChargeID    string
	UnitID      string
	Amount      int64
	Outstanding int64
	DueDate     time.Time
}

type sendRecord struct {
	at   time.Time
	hash string
}

// Reminder sends debt reminders via a channel and handles escalation for
// debts that stay unpaid.
type Reminder struct {
	charges        ChargeReader
	units          UnitReader
	channel        Channel
	template       *Template
	escalation     time.Duration
	clock          Clock
	mu             sync.Mutex
	timers         map[string]*time.Timer
	sent           map[string]sendRecord
	cooldown       time.Duration
	dedupeWindow   time.Duration
	requestTimeout time.Duration
}

// Option configures the reminder.
type Option func(*Reminder)

// WithEscalation configures the delay before an unpaid debt is re-notified.
func WithEscalation(after time.Duration) Option {
	return func(r *Reminder) {
		if after > 0 {
			r.escalation = after
		}
	}
}

// WithClock overrides the default clock.
func WithClock(clock Clock) Option {
	return func(r *Reminder) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithRequestTimeout overrides the default timeout for escalation checks.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(r *Reminder) {
		if timeout > 0 {
			r.requestTimeout = timeout
		}
	}
}

// WithCooldown sets a minimum interval between reminders for the same debt and event.
func WithCooldown(interval time.Duration) Option {
	return func(r *Reminder) {
		if interval > 0 {
			r.cooldown = interval
		}
	}
}

// WithDedupeWindow suppresses identical reminders within the window.
func WithDedupeWindow(window time.Duration) Option {
	return func(r *Reminder) {
		if window > 0 {
			r.dedupeWindow = window
		}
	}
}

// NewReminder constructs a debt reminder.
func NewReminder(charges ChargeReader, units UnitReader, channel Channel, template *Template, opts ...Option) (*Reminder, error) {
	if charges == nil {
		return nil, errors.New("debt reminder: nil charge reader")
	}
	if channel == nil {
		return nil, errors.New("debt reminder: nil channel")
	}
	if template == nil {
		defaultTemplate, err := NewTemplate("")
		if err != nil {
			return nil, err
		}
		template = defaultTemplate
	}
	r := &Reminder{
		charges:        charges,
		units:          units,
		channel:        channel,
		template:       template,
		escalation:     0,
		clock:          systemClock{},
		timers:         make(map[string]*time.Timer),
		sent:           make(map[string]sendRecord),
		requestTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Notify sends a reminder for an overdue debt and schedules escalation.
func (r *Reminder) Notify(ctx context.Context, event DebtEvent) {
	if r == nil || r.channel == nil {
		return
	}
	if event.Type == "" {
		event.Type = "overdue"
	}
	charge, unit := r.lookup(ctx, event)
	r.dispatch(ctx, event, charge, unit)
	if event.Type == "overdue" {
		r.scheduleEscalation(event)
	}
}

// CancelEscalation stops the pending escalation for a debt, typically after
// the allocation has been settled.
func (r *Reminder) CancelEscalation(chargeID, unitID string) {
	if r == nil || chargeID == "" || unitID == "" {
		return
	}
	key := debtKey(chargeID, unitID)
	r.mu.Lock()
	timer := r.timers[key]
	delete(r.timers, key)
	r.mu.Unlock()
	if timer != nil {
		timer.Stop()
	}
}

// Close stops all pending escalation timers.
func (r *Reminder) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	timers := r.timers
	r.timers = make(map[string]*time.Timer)
	r.mu.Unlock()
	for _, timer := range timers {
		if timer != nil {
			timer.Stop()
		}
	}
}

func (r *Reminder) lookup(ctx context.Context, event DebtEvent) (*billing.Charge, *masterdata.Unit) {
	var charge *billing.Charge
	if r.charges != nil {
		c, err := r.charges.GetByID(ctx, event.ChargeID)
		if err == nil {
			charge = c
		}
	}
	var unit *masterdata.Unit
	if r.units != nil {
		u, err := r.units.Get(ctx, event.UnitID)
		if err == nil {
			unit = u
		}
	}
	return charge, unit
}

func (r *Reminder) dispatch(ctx context.Context, event DebtEvent, charge *billing.Charge, unit *masterdata.Unit) {
	data := buildTemplateData(event, charge, unit)
	content, err := r.template.Render(data)
	if err != nil {
		return
	}
	if !r.shouldSend(event, content) {
		return
	}
	if err := r.channel.Send(ctx, content); err != nil {
		return
	}
	r.markSent(event, content)
}

func (r *Reminder) scheduleEscalation(event DebtEvent) {
	if r == nil || r.escalation <= 0 || event.ChargeID == "" || event.UnitID == "" {
		return
	}
	key := debtKey(event.ChargeID, event.UnitID)
	r.mu.Lock()
	if existing, ok := r.timers[key]; ok {
		if existing != nil {
			existing.Stop()
		}
	}
	timer := time.AfterFunc(r.escalation, func() {
		r.runEscalation(event)
	})
	r.timers[key] = timer
	r.mu.Unlock()
}

func (r *Reminder) runEscalation(event DebtEvent) {
	if r == nil || event.ChargeID == "" || event.UnitID == "" {
		return
	}
	key := debtKey(event.ChargeID, event.UnitID)
	r.mu.Lock()
	delete(r.timers, key)
	r.mu.Unlock()

	ctx := context.Background()
	if r.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.requestTimeout)
		defer cancel()
	}

	allocations, err := r.charges.ListAllocations(ctx, event.ChargeID)
	if err != nil {
		return
	}
	for _, alloc := range allocations {
		if alloc.UnitID != event.UnitID {
			continue
		}
		if alloc.Status != billing.UnitChargeStatusOverdue || alloc.PaidSum >= alloc.Amount {
			return
		}
		escalated := event
		escalated.Type = "escalated"
		escalated.Outstanding = alloc.Amount - alloc.PaidSum
		charge, unit := r.lookup(ctx, escalated)
		r.dispatch(ctx, escalated, charge, unit)
		return
	}
}

func buildTemplateData(event DebtEvent, charge *billing.Charge, unit *masterdata.Unit) TemplateData {
	unitName := event.UnitID
	if unit != nil && unit.Number != "" {
		unitName = unit.Number
	}
	chargeName := event.ChargeID
	status := string(billing.UnitChargeStatusOverdue)
	dueDate := event.DueDate
	if charge != nil {
		if charge.Title != "" {
			chargeName = charge.Title
		}
		if dueDate.IsZero() {
			dueDate = charge.DueDate
		}
	}
	dueText := ""
	if !dueDate.IsZero() {
		dueText = dueDate.UTC().Format("2006-01-02")
	}

	return TemplateData{
		Unit:        unitName,
		UnitID:      event.UnitID,
		Charge:      chargeName,
		ChargeID:    event.ChargeID,
		Amount:      formatMinor(event.Amount),
		Outstanding: formatMinor(event.Outstanding),
		DueDate:     dueText,
		Status:      status,
		Suggestion:  suggestionFor(event),
		Event:       event.Type,
		EventLabel:  eventLabel(event.Type),
	}
}

func eventLabel(event string) string {
	switch event {
	case "overdue":
		return "Overdue"
	case "escalated":
		return "Escalated"
	default:
		return event
	}
}

func suggestionFor(event DebtEvent) string {
	if event.Type == "escalated" {
		return "Contact the resident directly to arrange payment."
	}
	return "Send a payment reminder to the resident."
}

func formatMinor(value int64) string {
	return fmt.Sprintf("%d.%02d", value/100, abs64(value%100))
}

func abs64(value int64) int64 {
	if value < 0 {
		return -value
	}
	return value
}

func (r *Reminder) shouldSend(event DebtEvent, content string) bool {
	if r == nil {
		return false
	}
	if r.cooldown <= 0 && r.dedupeWindow <= 0 {
		return true
	}
	key := reminderKey(event)
	now := r.clock.Now().UTC()
	hash := hashContent(content)

	r.mu.Lock()
	record, ok := r.sent[key]
	r.mu.Unlock()
	if !ok {
		return true
	}
	if r.cooldown > 0 && now.Sub(record.at) < r.cooldown {
		return false
	}
	if r.dedupeWindow > 0 && record.hash == hash && now.Sub(record.at) < r.dedupeWindow {
		return false
	}
	return true
}

func (r *Reminder) markSent(event DebtEvent, content string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.sent[reminderKey(event)] = sendRecord{
		at:   r.clock.Now().UTC(),
		hash: hashContent(content),
	}
	r.mu.Unlock()
}

func debtKey(chargeID, unitID string) string {
	return chargeID + "|" + unitID
}

func reminderKey(event DebtEvent) string {
	return debtKey(event.ChargeID, event.UnitID) + "|" + event.Type
}

func hashContent(content string) string {
	sum := sha1.Sum([]byte(content))
	return hex.EncodeToString(sum[:8])
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
