package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/2001Abhinav/job-posting-platform/internal/domain"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ListQuery is a public job search. Page is 1-based.
type ListQuery struct {
	Search     string
	Location   string
	Type       string
	Experience string
	Page       int
	Limit      int
}

// JobList is one page of search results.
type JobList struct {
	Jobs       []domain.Job
	Total      int
	Page       int
	TotalPages int
}

// ApplicationInput is a job seeker's application.
type ApplicationInput struct {
	JobID       uuid.UUID
	Name        string
	Email       string
	Phone       string
	ResumeURL   string
	CoverLetter string
}

// SyncUser stores the latest profile of an authenticated identity.
func (s *Service) SyncUser(ctx context.Context, id domain.Identity) (domain.User, error) {
	if err := requireCaller(id); err != nil {
		return domain.User{}, err
	}
	u := domain.UserFromIdentity(id)
	now := s.now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	out, err := s.store.UpsertUser(ctx, u)
	if err != nil {
		return domain.User{}, fmt.Errorf("upsert user: %w", err)
	}
	return out, nil
}

func (s *Service) CurrentUser(ctx context.Context, caller domain.Identity) (domain.User, error) {
	if err := requireCaller(caller); err != nil {
		return domain.User{}, err
	}
	return s.store.GetUser(ctx, caller.Subject)
}

// GetJob returns a non-deleted job. A draft is visible only to its
// employer, who pays for it from the details page; anyone else gets
// domain.ErrNotFound. caller may be the zero identity.
func (s *Service) GetJob(ctx context.Context, caller domain.Identity, id uuid.UUID) (domain.Job, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return domain.Job{}, err
	}
	if job.Status == domain.JobStatusDraft && !job.OwnedBy(caller.Subject) {
		return domain.Job{}, domain.ErrNotFound
	}
	return job, nil
}

// ListJobs searches active jobs.
func (s *Service) ListJobs(ctx context.Context, q ListQuery) (JobList, error) {
	page, limit, err := normalizePage(q.Page, q.Limit)
	if err != nil {
		return JobList{}, err
	}

	result, err := s.store.ListJobs(ctx, domain.JobFilter{
		Search:     q.Search,
		Location:   q.Location,
		Type:       q.Type,
		Experience: q.Experience,
		Status:     domain.JobStatusActive,
		Limit:      limit,
		Offset:     (page - 1) * limit,
	})
	if err != nil {
		return JobList{}, fmt.Errorf("list jobs: %w", err)
	}

	return JobList{
		Jobs:       result.Jobs,
		Total:      result.Total,
		Page:       page,
		TotalPages: totalPages(result.Total, limit),
	}, nil
}

// ListEmployerJobs returns every non-deleted job of employerID, which must
// be the caller.
func (s *Service) ListEmployerJobs(ctx context.Context, caller domain.Identity, employerID string) ([]domain.Job, error) {
	if err := requireSelf(caller, employerID); err != nil {
		return nil, err
	}
	return s.store.ListJobsByEmployer(ctx, employerID)
}

// UpdateJob edits the content of the caller's job. Status and payment
// fields cannot be changed here.
func (s *Service) UpdateJob(ctx context.Context, caller domain.Identity, id uuid.UUID, fields domain.JobFields) (domain.Job, error) {
	job, err := s.ownedJob(ctx, caller, id)
	if err != nil {
		return domain.Job{}, err
	}

	fields.Apply(&job)
	trimJob(&job)
	if job.Type == "" {
		job.Type = domain.DefaultJobType
	}
	if job.Experience == "" {
		job.Experience = domain.DefaultExperience
	}
	if err := validateJob(job); err != nil {
		return domain.Job{}, err
	}

	job.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateJobContent(ctx, job); err != nil {
		return domain.Job{}, fmt.Errorf("update job: %w", err)
	}
	return job, nil
}

// DeleteJob soft-deletes the caller's job.
func (s *Service) DeleteJob(ctx context.Context, caller domain.Identity, id uuid.UUID) error {
	job, err := s.ownedJob(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := s.store.SoftDeleteJob(ctx, job.ID, caller.Subject, s.now().UTC()); err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	log.Info().Str("component", "workflow").Str("job_id", job.ID.String()).Msg("job deleted")
	return nil
}

// CreateApplication files the caller's application to an active job.
func (s *Service) CreateApplication(ctx context.Context, caller domain.Identity, in ApplicationInput) (domain.Application, error) {
	if err := requireCaller(caller); err != nil {
		return domain.Application{}, err
	}

	job, err := s.store.GetJob(ctx, in.JobID)
	if err != nil {
		return domain.Application{}, fmt.Errorf("load job: %w", err)
	}
	if !job.IsPublic() {
		return domain.Application{}, domain.ErrNotFound
	}

	now := s.now().UTC()
	a := domain.Application{
		ID:          uuid.New(),
		JobID:       job.ID,
		ApplicantID: caller.Subject,
		Name:        strings.TrimSpace(in.Name),
		Email:       strings.TrimSpace(in.Email),
		Phone:       strings.TrimSpace(in.Phone),
		ResumeURL:   strings.TrimSpace(in.ResumeURL),
		CoverLetter: strings.TrimSpace(in.CoverLetter),
		Status:      domain.ApplicationStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := validateApplication(a); err != nil {
		return domain.Application{}, err
	}

	if err := s.store.InsertApplication(ctx, a); err != nil {
		return domain.Application{}, fmt.Errorf("insert application: %w", err)
	}
	return a, nil
}

// GetApplication returns an application to its applicant or the job's employer.
func (s *Service) GetApplication(ctx context.Context, caller domain.Identity, id uuid.UUID) (domain.Application, error) {
	if err := requireCaller(caller); err != nil {
		return domain.Application{}, err
	}
	a, err := s.store.GetApplication(ctx, id)
	if err != nil {
		return domain.Application{}, err
	}
	if a.ApplicantID == caller.Subject {
		return a, nil
	}
	job, err := s.store.GetJob(ctx, a.JobID)
	if err != nil || !job.OwnedBy(caller.Subject) {
		return domain.Application{}, domain.ErrForbidden
	}
	return a, nil
}

// ListJobApplications returns the applications to the caller's job.
func (s *Service) ListJobApplications(ctx context.Context, caller domain.Identity, jobID uuid.UUID) ([]domain.Application, error) {
	job, err := s.ownedJob(ctx, caller, jobID)
	if err != nil {
		return nil, err
	}
	return s.store.ListApplicationsByJob(ctx, job.ID)
}

// ListUserApplications returns the applications filed by userID, which
// must be the caller.
func (s *Service) ListUserApplications(ctx context.Context, caller domain.Identity, userID string) ([]domain.Application, error) {
	if err := requireSelf(caller, userID); err != nil {
		return nil, err
	}
	return s.store.ListApplicationsByApplicant(ctx, userID)
}

// UpdateApplicationStatus lets the job's employer review an application.
func (s *Service) UpdateApplicationStatus(ctx context.Context, caller domain.Identity, id uuid.UUID, status domain.ApplicationStatus) (domain.Application, error) {
	if err := requireCaller(caller); err != nil {
		return domain.Application{}, err
	}
	if !status.Valid() {
		return domain.Application{}, domain.Invalid("status", "must be one of pending, reviewed, shortlisted, rejected")
	}

	a, err := s.store.GetApplication(ctx, id)
	if err != nil {
		return domain.Application{}, err
	}
	job, err := s.store.GetJob(ctx, a.JobID)
	if err != nil || !job.OwnedBy(caller.Subject) {
		return domain.Application{}, domain.ErrForbidden
	}

	return s.store.UpdateApplicationStatus(ctx, id, status, s.now().UTC())
}

// ListUserPayments returns the payments made by userID, which must be the caller.
func (s *Service) ListUserPayments(ctx context.Context, caller domain.Identity, userID string) ([]domain.Payment, error) {
	if err := requireSelf(caller, userID); err != nil {
		return nil, err
	}
	return s.store.ListPaymentsByEmployer(ctx, userID)
}

// Dashboard summarises the caller's listings.
func (s *Service) Dashboard(ctx context.Context, caller domain.Identity) (domain.DashboardStats, error) {
	if err := requireCaller(caller); err != nil {
		return domain.DashboardStats{}, err
	}
	return s.store.DashboardStats(ctx, caller.Subject)
}

func (s *Service) ownedJob(ctx context.Context, caller domain.Identity, id uuid.UUID) (domain.Job, error) {
	if err := requireCaller(caller); err != nil {
		return domain.Job{}, err
	}
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return domain.Job{}, err
	}
	if !job.OwnedBy(caller.Subject) {
		return domain.Job{}, domain.ErrForbidden
	}
	return job, nil
}

func requireSelf(caller domain.Identity, userID string) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if caller.Subject != userID {
		return domain.ErrForbidden
	}
	return nil
}

func trimJob(j *domain.Job) {
	for _, f := range []*string{
		&j.Title, &j.Company, &j.Location, &j.Salary, &j.Type,
		&j.Experience, &j.Description, &j.Skills, &j.Email,
	} {
		*f = strings.TrimSpace(*f)
	}
}

// normalizePage applies defaults and bounds to a 1-based page request.
func normalizePage(page, limit int) (int, int, error) {
	switch {
	case page < 0:
		return 0, 0, domain.Invalid("page", "must be positive")
	case page == 0:
		page = 1
	}
	switch {
	case limit < 0:
		return 0, 0, domain.Invalid("limit", "must be positive")
	case limit == 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}
	return page, limit, nil
}

func totalPages(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
