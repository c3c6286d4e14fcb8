package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/2001Abhinav/job-posting-platform/internal/domain"
)

func scanApplication(row scanner) (domain.Application, error) {
	var (
		a      domain.Application
		status string
	)
	err := row.Scan(
		&a.ID,
		&a.JobID,
		&a.ApplicantID,
		&a.Name,
		&a.Email,
		&a.Phone,
		&a.ResumeURL,
		&a.CoverLetter,
		&status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return domain.Application{}, err
	}
	a.Status = domain.ApplicationStatus(status)
	return a, nil
}

func scanApplications(rows *sql.Rows) ([]domain.Application, error) {
	defer rows.Close()

	result := []domain.Application{}
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// InsertApplication inserts a new application.
// Returns domain.ErrConflict if the applicant already applied to the job.
func (s *Store) InsertApplication(ctx context.Context, a domain.Application) error {
	_, err := s.db.ExecContext(ctx, queryInsertApplication,
		a.ID,
		a.JobID,
		a.ApplicantID,
		a.Name,
		a.Email,
		a.Phone,
		a.ResumeURL,
		a.CoverLetter,
		string(a.Status),
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) GetApplication(ctx context.Context, id uuid.UUID) (domain.Application, error) {
	a, err := scanApplication(s.db.QueryRowContext(ctx, queryGetApplication, id))
	if err != nil {
		return domain.Application{}, notFound(err)
	}
	return a, nil
}

func (s *Store) ListApplicationsByJob(ctx context.Context, jobID uuid.UUID) ([]domain.Application, error) {
	rows, err := s.db.QueryContext(ctx, queryListApplicationsByJob, jobID)
	if err != nil {
		return nil, err
	}
	return scanApplications(rows)
}

func (s *Store) ListApplicationsByApplicant(ctx context.Context, applicantID string) ([]domain.Application, error) {
	rows, err := s.db.QueryContext(ctx, queryListApplicationsByApplicant, applicantID)
	if err != nil {
		return nil, err
	}
	return scanApplications(rows)
}

func (s *Store) UpdateApplicationStatus(ctx context.Context, id uuid.UUID, status domain.ApplicationStatus, now time.Time) (domain.Application, error) {
	a, err := scanApplication(s.db.QueryRowContext(ctx, queryUpdateApplicationStatus, id, string(status), now))
	if err != nil {
		return domain.Application{}, notFound(err)
	}
	return a, nil
}

// DashboardStats aggregates an employer's listing, application and
// spending figures in a single query.
func (s *Store) DashboardStats(ctx context.Context, employerID string) (domain.DashboardStats, error) {
	var st domain.DashboardStats
	err := s.db.QueryRowContext(ctx, queryDashboardStats, employerID).Scan(
		&st.ActiveJobs,
		&st.TotalApplications,
		&st.PendingReview,
		&st.TotalSpent,
	)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	return st, nil
}
