package application

import "time"

// ChargeIssued is published after allocations are persisted for a charge.
type ChargeIssued struct {
	ChargeID    string    `json:"charge_id"`
	BuildingID  string    `json:"building_id"`
	TotalAmount int64     `json:"total_amount"`
	UnitCount   int       `json:"unit_count"`
	DueDate     time.Time `json:"due_date"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// PaymentVerified is published after a payment passes manager verification
// and the allocation paid sum has been updated.
type PaymentVerified struct {
	PaymentID  string    `json:"payment_id"`
	ChargeID   string    `json:"charge_id"`
	UnitID     string    `json:"unit_id"`
	BuildingID string    `json:"building_id"`
	Amount     int64     `json:"amount"`
	NewStatus  string    `json:"new_status"`
	NewPaidSum int64     `json:"new_paid_sum"`
	OccurredAt time.Time `json:"occurred_at"`
}

// AllocationOverdue is published when the overdue sweep transitions an
// allocation past its payment deadline.
type AllocationOverdue struct {
	ChargeID    string    `json:"charge_id"`
	UnitID      string    `json:"unit_id"`
	BuildingID  string    `json:"building_id"`
	Amount      int64     `json:"amount"`
	Outstanding int64     `json:"outstanding"`
	DueDate     time.Time `json:"due_date"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// ChargeCancelled is published when a charge is voided by a manager.
type ChargeCancelled struct {
	ChargeID   string    `json:"charge_id"`
	BuildingID string    `json:"building_id"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}
