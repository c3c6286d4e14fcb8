package domain

import (
	"time"

	"github.com/google/uuid"
)

type ApplicationStatus string

const (
	ApplicationStatusPending     ApplicationStatus = "pending"
	ApplicationStatusReviewed    ApplicationStatus = "reviewed"
	ApplicationStatusShortlisted ApplicationStatus = "shortlisted"
	ApplicationStatusRejected    ApplicationStatus = "rejected"
)

// Valid reports whether s is one of the known application statuses.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationStatusPending, ApplicationStatusReviewed,
		ApplicationStatusShortlisted, ApplicationStatusRejected:
		return true
	}
	return false
}

type Application struct {
	ID uuid.UUID

	JobID       uuid.UUID
	ApplicantID string

	Name        string `validate:"required"`
	Email       string `validate:"required,email"`
	Phone       string
	ResumeURL   string
	CoverLetter string

	Status ApplicationStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DashboardStats is the read-only summary shown to an employer.
// TotalSpent is in minor currency units, the same unit payments are stored in.
type DashboardStats struct {
	ActiveJobs        int
	TotalApplications int
	PendingReview     int
	TotalSpent        int64
}
