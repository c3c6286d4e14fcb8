// Package workflow implements the job board: draft jobs, payment-gated
// activation and the marketplace operations around them.
package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/2001Abhinav/job-posting-platform/internal/domain"
	"github.com/2001Abhinav/job-posting-platform/internal/gateway"
)

// Store is the persistence the workflow needs. Implementations return
// domain.ErrNotFound for missing rows and domain.ErrTransitionDenied when a
// conditional payment update matched a row in the wrong status.
type Store interface {
	UpsertUser(ctx context.Context, u domain.User) (domain.User, error)
	GetUser(ctx context.Context, id string) (domain.User, error)

	InsertJob(ctx context.Context, job domain.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (domain.Job, error)
	UpdateJobContent(ctx context.Context, job domain.Job) error
	SoftDeleteJob(ctx context.Context, id uuid.UUID, employerID string, now time.Time) error
	ListJobs(ctx context.Context, f domain.JobFilter) (domain.JobPage, error)
	ListJobsByEmployer(ctx context.Context, employerID string) ([]domain.Job, error)

	InsertPayment(ctx context.Context, p domain.Payment) error
	GetPayment(ctx context.Context, id uuid.UUID) (domain.Payment, error)
	SetPaymentOrder(ctx context.Context, id uuid.UUID, orderID string, now time.Time) error
	CompletePayment(ctx context.Context, id, jobID uuid.UUID, gatewayPaymentID string, expiresAt, now time.Time) (bool, error)
	FailPayment(ctx context.Context, id, jobID uuid.UUID, gatewayPaymentID string, now time.Time) error
	ListPaymentsByEmployer(ctx context.Context, employerID string) ([]domain.Payment, error)

	InsertApplication(ctx context.Context, a domain.Application) error
	GetApplication(ctx context.Context, id uuid.UUID) (domain.Application, error)
	ListApplicationsByJob(ctx context.Context, jobID uuid.UUID) ([]domain.Application, error)
	ListApplicationsByApplicant(ctx context.Context, applicantID string) ([]domain.Application, error)
	UpdateApplicationStatus(ctx context.Context, id uuid.UUID, status domain.ApplicationStatus, now time.Time) (domain.Application, error)

	DashboardStats(ctx context.Context, employerID string) (domain.DashboardStats, error)
}

// PaymentGateway is the subset of the payment processor client the
// activation flow uses.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, req gateway.OrderRequest) (gateway.Order, error)
	FetchPayment(ctx context.Context, gatewayPaymentID string) (gateway.RemotePayment, error)
	VerifySignature(orderID, paymentID, signature string) bool
	KeyID() string
}

// MetricsSink records workflow outcomes. Methods must not block.
type MetricsSink interface {
	JobCreated()
	PaymentOrderCreated(amount int64)
	PaymentVerification(outcome string)
}

type Config struct {
	// Currency is the ISO 4217 code every order is placed in.
	Currency string

	// PostingFee in minor units, used when an order request has no amount.
	PostingFee int64

	// EnforceFee rejects any client amount other than PostingFee.
	EnforceFee bool

	// ListingDuration is how long a job stays active after payment.
	ListingDuration time.Duration
}

type Service struct {
	config  Config
	store   Store
	gateway PaymentGateway
	metrics MetricsSink // optional
	now     func() time.Time
}

func New(cfg Config, store Store, gw PaymentGateway) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	if cfg.PostingFee <= 0 {
		cfg.PostingFee = 100
	}
	if cfg.ListingDuration <= 0 {
		cfg.ListingDuration = 30 * 24 * time.Hour
	}
	return &Service{
		config:  cfg,
		store:   store,
		gateway: gw,
		now:     time.Now,
	}
}

// WithMetrics attaches a metrics sink.
func (s *Service) WithMetrics(sink MetricsSink) *Service {
	s.metrics = sink
	return s
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) observeVerification(outcome string) {
	if s.metrics != nil {
		s.metrics.PaymentVerification(outcome)
	}
}

// requireCaller rejects anonymous identities.
func requireCaller(caller domain.Identity) error {
	if caller.Subject == "" {
		return domain.ErrUnauthenticated
	}
	return nil
}
