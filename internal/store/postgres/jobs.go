package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/2001Abhinav/job-posting-platform/internal/domain"
)

func scanJob(row scanner) (domain.Job, error) {
	var (
		job           domain.Job
		status        string
		paymentStatus string
		expiresAt     sql.NullTime
	)
	err := row.Scan(
		&job.ID,
		&job.Title,
		&job.Company,
		&job.Location,
		&job.Salary,
		&job.Type,
		&job.Experience,
		&job.Description,
		&job.Skills,
		&job.Email,
		&job.EmployerID,
		&status,
		&paymentStatus,
		&job.PaymentID,
		&job.CreatedAt,
		&job.UpdatedAt,
		&expiresAt,
	)
	if err != nil {
		return domain.Job{}, err
	}
	job.Status = domain.JobStatus(status)
	job.PaymentStatus = domain.PaymentStatus(paymentStatus)
	if expiresAt.Valid {
		t := expiresAt.Time
		job.ExpiresAt = &t
	}
	return job, nil
}

func scanJobs(rows *sql.Rows) ([]domain.Job, error) {
	defer rows.Close()

	result := []domain.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// InsertJob inserts a new job.
func (s *Store) InsertJob(ctx context.Context, job domain.Job) error {
	var expiresAt sql.NullTime
	if job.ExpiresAt != nil {
		expiresAt = sql.NullTime{Time: *job.ExpiresAt, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, queryInsertJob,
		job.ID,
		job.Title,
		job.Company,
		job.Location,
		job.Salary,
		job.Type,
		job.Experience,
		job.Description,
		job.Skills,
		job.Email,
		job.EmployerID,
		string(job.Status),
		string(job.PaymentStatus),
		job.PaymentID,
		job.CreatedAt,
		job.UpdatedAt,
		expiresAt,
	)
	return err
}

// GetJob returns a job that has not been deleted.
func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (domain.Job, error) {
	job, err := scanJob(s.db.QueryRowContext(ctx, queryGetJob, id))
	if err != nil {
		return domain.Job{}, notFound(err)
	}
	return job, nil
}

// UpdateJobContent writes the employer-editable fields of job.
// Status and payment columns are never touched.
func (s *Store) UpdateJobContent(ctx context.Context, job domain.Job) error {
	ok, err := execOne(ctx, s.db, queryUpdateJobContent,
		job.ID,
		job.Title,
		job.Company,
		job.Location,
		job.Salary,
		job.Type,
		job.Experience,
		job.Description,
		job.Skills,
		job.Email,
		job.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

// SoftDeleteJob marks a job owned by employerID as deleted.
func (s *Store) SoftDeleteJob(ctx context.Context, id uuid.UUID, employerID string, now time.Time) error {
	ok, err := execOne(ctx, s.db, querySoftDeleteJob, id, employerID, now)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

// ListJobs returns one page of jobs matching f and the total match count.
// Both reads run in one read-only REPEATABLE READ transaction so the page
// and the count come from the same snapshot.
func (s *Store) ListJobs(ctx context.Context, f domain.JobFilter) (domain.JobPage, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return domain.JobPage{}, err
	}
	defer tx.Rollback()

	where, args := buildJobFilter(f)

	var total int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM jobs WHERE "+where, args...).Scan(&total); err != nil {
		return domain.JobPage{}, fmt.Errorf("count jobs: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM jobs WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		jobColumns, where, len(args)+1, len(args)+2)
	rows, err := tx.QueryContext(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return domain.JobPage{}, fmt.Errorf("list jobs: %w", err)
	}
	jobs, err := scanJobs(rows)
	if err != nil {
		return domain.JobPage{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.JobPage{}, err
	}
	return domain.JobPage{Jobs: jobs, Total: total}, nil
}

// ListJobsByEmployer returns every non-deleted job of an employer.
func (s *Store) ListJobsByEmployer(ctx context.Context, employerID string) ([]domain.Job, error) {
	rows, err := s.db.QueryContext(ctx, queryListJobsByEmployer, employerID)
	if err != nil {
		return nil, err
	}
	return scanJobs(rows)
}

// ActivateJob moves a draft job to active. It reports false when the job
// is not draft (already active, expired, deleted or missing).
func (s *Store) ActivateJob(ctx context.Context, jobID uuid.UUID, gatewayPaymentID string, expiresAt, now time.Time) (bool, error) {
	return execOne(ctx, s.db, queryActivateJob, jobID, gatewayPaymentID, expiresAt, now)
}

// ExpireJobs moves up to limit active jobs whose listing period ended
// before now to expired, returning how many were moved.
func (s *Store) ExpireJobs(ctx context.Context, now time.Time, limit int) (int, error) {
	res, err := s.db.ExecContext(ctx, queryExpireJobs, now, limit)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
