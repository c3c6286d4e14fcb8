package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/2001Abhinav/job-posting-platform/internal/domain"
)

func scanPayment(row scanner) (domain.Payment, error) {
	var (
		p      domain.Payment
		status string
	)
	err := row.Scan(
		&p.ID,
		&p.JobID,
		&p.EmployerID,
		&p.GatewayOrderID,
		&p.GatewayPaymentID,
		&p.Amount,
		&p.Currency,
		&status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return domain.Payment{}, err
	}
	p.Status = domain.PaymentStatus(status)
	return p, nil
}

func scanPayments(rows *sql.Rows) ([]domain.Payment, error) {
	defer rows.Close()

	result := []domain.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// InsertPayment inserts a new payment record.
func (s *Store) InsertPayment(ctx context.Context, p domain.Payment) error {
	_, err := s.db.ExecContext(ctx, queryInsertPayment,
		p.ID,
		p.JobID,
		p.EmployerID,
		p.GatewayOrderID,
		p.GatewayPaymentID,
		p.Amount,
		p.Currency,
		string(p.Status),
		p.CreatedAt,
		p.UpdatedAt,
	)
	return err
}

func (s *Store) GetPayment(ctx context.Context, id uuid.UUID) (domain.Payment, error) {
	p, err := scanPayment(s.db.QueryRowContext(ctx, queryGetPayment, id))
	if err != nil {
		return domain.Payment{}, notFound(err)
	}
	return p, nil
}

// SetPaymentOrder records the gateway order id on a pending payment.
func (s *Store) SetPaymentOrder(ctx context.Context, id uuid.UUID, orderID string, now time.Time) error {
	ok, err := execOne(ctx, s.db, querySetPaymentOrder, id, orderID, now)
	if err != nil {
		return err
	}
	if !ok {
		return s.deniedOrMissing(ctx, s.db, id)
	}
	return nil
}

// CompletePayment marks a pending payment completed and activates its job,
// both in one transaction. It returns domain.ErrTransitionDenied when the
// payment is no longer pending and domain.ErrConflict when the job, or the
// gateway payment, already has another completed payment. The returned flag is false when the job
// was not draft anymore and so was left unchanged.
func (s *Store) CompletePayment(ctx context.Context, id, jobID uuid.UUID, gatewayPaymentID string, expiresAt, now time.Time) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	ok, err := execOne(ctx, tx, queryCompletePayment, id, gatewayPaymentID, now)
	if err != nil {
		if isUniqueViolation(err) {
			return false, domain.ErrConflict
		}
		return false, err
	}
	if !ok {
		return false, s.deniedOrMissing(ctx, tx, id)
	}

	activated, err := execOne(ctx, tx, queryActivateJob, jobID, gatewayPaymentID, expiresAt, now)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return activated, nil
}

// FailPayment marks a pending payment failed and records the failure on its
// draft job, in one transaction. The job stays draft.
func (s *Store) FailPayment(ctx context.Context, id, jobID uuid.UUID, gatewayPaymentID string, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ok, err := execOne(ctx, tx, queryFailPayment, id, gatewayPaymentID, now)
	if err != nil {
		return err
	}
	if !ok {
		return s.deniedOrMissing(ctx, tx, id)
	}

	if _, err := tx.ExecContext(ctx, queryMarkJobPaymentFailed, jobID, now); err != nil {
		return err
	}
	return tx.Commit()
}

// ListPaymentsByEmployer returns an employer's payments, newest first.
func (s *Store) ListPaymentsByEmployer(ctx context.Context, employerID string) ([]domain.Payment, error) {
	rows, err := s.db.QueryContext(ctx, queryListPaymentsByEmployer, employerID)
	if err != nil {
		return nil, err
	}
	return scanPayments(rows)
}

// ListCompletedDraftPayments returns completed payments whose job is still
// draft, oldest first.
func (s *Store) ListCompletedDraftPayments(ctx context.Context, limit int) ([]domain.Payment, error) {
	rows, err := s.db.QueryContext(ctx, queryListCompletedDraftPayments, limit)
	if err != nil {
		return nil, err
	}
	return scanPayments(rows)
}

// ListOrphanedPayments returns pending payments created before olderThan,
// oldest first.
func (s *Store) ListOrphanedPayments(ctx context.Context, olderThan time.Time, limit int) ([]domain.Payment, error) {
	rows, err := s.db.QueryContext(ctx, queryListOrphanedPayments, olderThan, limit)
	if err != nil {
		return nil, err
	}
	return scanPayments(rows)
}

func (s *Store) CountOrphanedPayments(ctx context.Context, olderThan time.Time) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, queryCountOrphanedPayments, olderThan).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// deniedOrMissing distinguishes a conditional update that matched nothing
// because the row is gone from one denied by the row's current status.
func (s *Store) deniedOrMissing(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}, id uuid.UUID) error {
	var status string
	err := q.QueryRowContext(ctx, queryGetPaymentStatus, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	return domain.ErrTransitionDenied
}
