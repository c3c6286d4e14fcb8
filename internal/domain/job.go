package domain

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusDraft   JobStatus = "draft"
	JobStatusActive  JobStatus = "active"
	JobStatusExpired JobStatus = "expired"
	JobStatusDeleted JobStatus = "deleted"
)

// Defaults applied when a job is created without a type or experience level.
const (
	DefaultJobType    = "Full-time"
	DefaultExperience = "Mid Level"
)

// Job is a listing posted by an employer. It is publicly listable only
// while Status is JobStatusActive.
type Job struct {
	ID uuid.UUID

	Title       string `validate:"required"`
	Company     string `validate:"required"`
	Location    string `validate:"required"`
	Salary      string
	Type        string
	Experience  string
	Description string `validate:"required"`
	Skills      string
	Email       string `validate:"required,email"`

	EmployerID string

	Status        JobStatus
	PaymentStatus PaymentStatus
	PaymentID     string // gateway payment id, set on activation

	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt *time.Time
}

// IsPublic reports whether the job may appear in public listings.
func (j Job) IsPublic() bool {
	return j.Status == JobStatusActive
}

// OwnedBy reports whether the given user is the job's employer.
func (j Job) OwnedBy(userID string) bool {
	return userID != "" && j.EmployerID == userID
}

// JobFields holds the employer-editable content of a job. Nil pointers are
// left untouched on update.
type JobFields struct {
	Title       *string
	Company     *string
	Location    *string
	Salary      *string
	Type        *string
	Experience  *string
	Description *string
	Skills      *string
	Email       *string
}

// Apply copies every non-nil field onto the job.
func (f JobFields) Apply(j *Job) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&j.Title, f.Title)
	set(&j.Company, f.Company)
	set(&j.Location, f.Location)
	set(&j.Salary, f.Salary)
	set(&j.Type, f.Type)
	set(&j.Experience, f.Experience)
	set(&j.Description, f.Description)
	set(&j.Skills, f.Skills)
	set(&j.Email, f.Email)
}

// JobFilter selects a page of jobs.
type JobFilter struct {
	Search     string
	Location   string
	Type       string
	Experience string

	// Status is matched exactly when set. An empty Status with an empty
	// EmployerID means active only; with an EmployerID it means every
	// status except deleted.
	Status     JobStatus
	EmployerID string

	Limit  int
	Offset int
}

// EffectiveStatus returns the status a filter resolves to, or "" for
// "any non-deleted status".
func (f JobFilter) EffectiveStatus() JobStatus {
	if f.Status != "" {
		return f.Status
	}
	if f.EmployerID != "" {
		return ""
	}
	return JobStatusActive
}

// JobPage is one page of a filtered job listing.
type JobPage struct {
	Jobs  []Job
	Total int
}
