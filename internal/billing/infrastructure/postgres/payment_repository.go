package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	billing "condo-cloud/internal/billing/domain"
)

// PaymentRepository persists payments and applies verified amounts to
// allocations.
type PaymentRepository struct {
	db *sql.DB
}

// NewPaymentRepository constructs a repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a pending payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *billing.Payment) error {
	if r == nil || r.db == nil {
		return errors.New("payment repo: nil db")
	}
	if payment == nil {
		return errors.New("payment repo: nil payment")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO payments (id, charge_id, unit_id, amount, method, status, reference, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		payment.ID, payment.ChargeID, payment.UnitID, payment.Amount,
		payment.Method, payment.Status, payment.Reference, payment.CreatedAt)
	return err
}

// GetByID fetches a payment.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*billing.Payment, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("payment repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, charge_id, unit_id, amount, method, status, reference, created_at, verified_at
FROM payments
WHERE id = $1
LIMIT 1`, id)
	return scanPayment(row)
}

// ListByCharge lists payments for a charge in submission order.
func (r *PaymentRepository) ListByCharge(ctx context.Context, chargeID string) ([]billing.Payment, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("payment repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, charge_id, unit_id, amount, method, status, reference, created_at, verified_at
FROM payments
WHERE charge_id = $1
ORDER BY created_at ASC, id ASC`, chargeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPayments(rows)
}

// ListVerifiedInRange returns verified payments with verified_at inside
// the inclusive [from, to] window.
func (r *PaymentRepository) ListVerifiedInRange(ctx context.Context, buildingID string, from, to time.Time) ([]billing.Payment, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("payment repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT p.id, p.charge_id, p.unit_id, p.amount, p.method, p.status, p.reference, p.created_at, p.verified_at
FROM payments p
JOIN charges c ON c.id = p.charge_id
WHERE c.building_id = $1 AND p.status = $2 AND p.verified_at >= $3 AND p.verified_at <= $4
ORDER BY p.verified_at ASC, p.id ASC`, buildingID, billing.PaymentStatusVerified, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPayments(rows)
}

// ApplyVerified marks the payment verified and adds its amount to the
// allocation paid sum. The allocation update is a guarded compare-and-set
// so concurrent verifications can never push the paid sum past the
// allocation amount.
func (r *PaymentRepository) ApplyVerified(ctx context.Context, paymentID string, verifiedAt time.Time) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("payment repo: nil db")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	var chargeID, unitID string
	var amount int64
	var status string
	err = tx.QueryRowContext(ctx, `
SELECT charge_id, unit_id, amount, status
FROM payments
WHERE id = $1
FOR UPDATE`, paymentID).Scan(&chargeID, &unitID, &amount, &status)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return 0, billing.ErrPaymentNotFound
		}
		return 0, err
	}
	if billing.PaymentStatus(status) != billing.PaymentStatusPending {
		_ = tx.Rollback()
		return 0, errors.New("payment repo: payment not pending")
	}

	var newSum int64
	err = tx.QueryRowContext(ctx, `
UPDATE allocations
SET paid_sum = paid_sum + $1
WHERE charge_id = $2 AND unit_id = $3 AND paid_sum + $1 <= amount
RETURNING paid_sum`, amount, chargeID, unitID).Scan(&newSum)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return 0, r.classifyGuardMiss(ctx, chargeID, unitID)
		}
		return 0, err
	}

	_, err = tx.ExecContext(ctx, `
UPDATE payments
SET status = $1, verified_at = $2
WHERE id = $3`, billing.PaymentStatusVerified, verifiedAt, paymentID)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return newSum, nil
}

// classifyGuardMiss tells a missing allocation apart from a rejected
// overpayment after the guarded update matched no row.
func (r *PaymentRepository) classifyGuardMiss(ctx context.Context, chargeID, unitID string) error {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
SELECT EXISTS (SELECT 1 FROM allocations WHERE charge_id = $1 AND unit_id = $2)`, chargeID, unitID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return billing.ErrAllocationNotFound
	}
	return billing.ErrOverpayment
}

// MarkRejected marks a payment rejected.
func (r *PaymentRepository) MarkRejected(ctx context.Context, paymentID string) error {
	if r == nil || r.db == nil {
		return errors.New("payment repo: nil db")
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE payments
SET status = $1
WHERE id = $2`, billing.PaymentStatusRejected, paymentID)
	if err != nil {
		return err
	}
	return requireRow(res, billing.ErrPaymentNotFound)
}

func scanPayment(row rowScanner) (*billing.Payment, error) {
	var payment billing.Payment
	var verifiedAt sql.NullTime
	err := row.Scan(
		&payment.ID,
		&payment.ChargeID,
		&payment.UnitID,
		&payment.Amount,
		&payment.Method,
		&payment.Status,
		&payment.Reference,
		&payment.CreatedAt,
		&verifiedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if verifiedAt.Valid {
		payment.VerifiedAt = verifiedAt.Time.UTC()
	}
	payment.CreatedAt = payment.CreatedAt.UTC()
	return &payment, nil
}

func collectPayments(rows *sql.Rows) ([]billing.Payment, error) {
	var result []billing.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		if payment != nil {
			result = append(result, *payment)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
