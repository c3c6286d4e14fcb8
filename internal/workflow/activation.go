package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/2001Abhinav/job-posting-platform/internal/domain"
	"github.com/2001Abhinav/job-posting-platform/internal/gateway"
	"github.com/2001Abhinav/job-posting-platform/internal/metrics"
)

// JobInput is the content of a new job posting.
type JobInput struct {
	Title       string
	Company     string
	Location    string
	Salary      string
	Type        string
	Experience  string
	Description string
	Skills      string
	Email       string
}

// CreateJob stores a new draft job for the caller. Drafts are not listed
// publicly until a payment for them is verified.
func (s *Service) CreateJob(ctx context.Context, caller domain.Identity, in JobInput) (domain.Job, error) {
	if err := requireCaller(caller); err != nil {
		return domain.Job{}, err
	}

	job := domain.Job{
		ID:          uuid.New(),
		Title:       in.Title,
		Company:     in.Company,
		Location:    in.Location,
		Salary:      in.Salary,
		Type:        in.Type,
		Experience:  in.Experience,
		Description: in.Description,
		Skills:      in.Skills,
		Email:       in.Email,

		EmployerID:    caller.Subject,
		Status:        domain.JobStatusDraft,
		PaymentStatus: domain.PaymentStatusPending,
	}
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

	now := s.now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now

	if err := s.store.InsertJob(ctx, job); err != nil {
		return domain.Job{}, fmt.Errorf("insert job: %w", err)
	}
	if s.metrics != nil {
		s.metrics.JobCreated()
	}

	log.Info().Str("component", "workflow").Str("job_id", job.ID.String()).
		Str("employer_id", job.EmployerID).Msg("draft job created")
	return job, nil
}

// CreatePaymentOrder opens a gateway order for the caller's draft job.
// amount is in minor units; 0 selects the configured posting fee.
//
// The pending payment is stored before the gateway is called, so a
// gateway failure leaves it pending for the reconciler to report.
func (s *Service) CreatePaymentOrder(ctx context.Context, caller domain.Identity, jobID uuid.UUID, amount int64) (domain.PaymentOrder, error) {
	if err := requireCaller(caller); err != nil {
		return domain.PaymentOrder{}, err
	}

	switch {
	case amount < 0:
		return domain.PaymentOrder{}, domain.Invalid("amount", "must not be negative")
	case amount == 0:
		amount = s.config.PostingFee
	case s.config.EnforceFee && amount != s.config.PostingFee:
		return domain.PaymentOrder{}, domain.Invalid("amount", fmt.Sprintf("must equal the posting fee of %d", s.config.PostingFee))
	}

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return domain.PaymentOrder{}, fmt.Errorf("load job: %w", err)
	}
	if !job.OwnedBy(caller.Subject) {
		return domain.PaymentOrder{}, domain.ErrForbidden
	}
	if job.Status != domain.JobStatusDraft {
		return domain.PaymentOrder{}, fmt.Errorf("job is %s: %w", job.Status, domain.ErrConflict)
	}

	now := s.now().UTC()
	payment := domain.Payment{
		ID:         uuid.New(),
		JobID:      job.ID,
		EmployerID: caller.Subject,
		Amount:     amount,
		Currency:   s.config.Currency,
		Status:     domain.PaymentStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.InsertPayment(ctx, payment); err != nil {
		return domain.PaymentOrder{}, fmt.Errorf("insert payment: %w", err)
	}

	order, err := s.gateway.CreateOrder(ctx, gateway.OrderRequest{
		Amount:   amount,
		Currency: s.config.Currency,
		Receipt:  receipt(job.ID, payment.ID),
		Notes: map[string]string{
			"jobId":      job.ID.String(),
			"employerId": caller.Subject,
			"paymentId":  payment.ID.String(),
		},
	})
	if err != nil {
		log.Warn().Err(err).Str("component", "workflow").Str("job_id", job.ID.String()).
			Str("payment_id", payment.ID.String()).Msg("gateway order failed, payment left pending")
		return domain.PaymentOrder{}, err
	}

	if err := s.store.SetPaymentOrder(ctx, payment.ID, order.ID, s.now().UTC()); err != nil {
		return domain.PaymentOrder{}, fmt.Errorf("record order: %w", err)
	}
	if s.metrics != nil {
		s.metrics.PaymentOrderCreated(amount)
	}

	out := domain.PaymentOrder{
		OrderID:   order.ID,
		Amount:    order.Amount,
		Currency:  order.Currency,
		KeyID:     s.gateway.KeyID(),
		PaymentID: payment.ID,
	}
	if out.Amount == 0 {
		out.Amount = amount
	}
	if out.Currency == "" {
		out.Currency = s.config.Currency
	}

	log.Info().Str("component", "workflow").Str("job_id", job.ID.String()).
		Str("payment_id", payment.ID.String()).Str("order_id", order.ID).
		Int64("amount", amount).Msg("payment order created")
	return out, nil
}

// VerifyPayment confirms a checkout result and, when the gateway reports
// the payment captured, activates the job. The client-reported outcome is
// never trusted: the signature is checked and the payment status is
// fetched from the gateway.
//
// Verifying an already completed payment again with the same gateway
// payment id returns it unchanged.
func (s *Service) VerifyPayment(ctx context.Context, caller domain.Identity, c domain.PaymentConfirmation) (domain.Payment, error) {
	if err := requireCaller(caller); err != nil {
		return domain.Payment{}, err
	}

	payment, err := s.store.GetPayment(ctx, c.PaymentID)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("load payment: %w", err)
	}
	if payment.EmployerID != caller.Subject {
		return domain.Payment{}, domain.ErrForbidden
	}

	c.GatewayPaymentID = strings.TrimSpace(c.GatewayPaymentID)
	c.GatewayOrderID = strings.TrimSpace(c.GatewayOrderID)
	c.Signature = strings.TrimSpace(c.Signature)
	switch {
	case c.GatewayPaymentID == "":
		return domain.Payment{}, domain.Invalid("razorpayPaymentId", "required")
	case c.GatewayOrderID == "":
		return domain.Payment{}, domain.Invalid("razorpayOrderId", "required")
	case c.Signature == "":
		return domain.Payment{}, domain.Invalid("razorpaySignature", "required")
	}

	if payment.GatewayOrderID == "" {
		return domain.Payment{}, domain.Invalid("paymentId", "no order was recorded for this payment")
	}
	if payment.GatewayOrderID != c.GatewayOrderID {
		return domain.Payment{}, domain.Invalid("razorpayOrderId", "does not match the order issued for this payment")
	}

	if !s.gateway.VerifySignature(c.GatewayOrderID, c.GatewayPaymentID, c.Signature) {
		s.observeVerification(metrics.OutcomeInvalidSignature)
		log.Warn().Str("component", "workflow").Str("payment_id", payment.ID.String()).
			Msg("payment signature mismatch")
		return domain.Payment{}, domain.ErrInvalidSignature
	}

	if payment.Status.IsTerminal() {
		return s.resolveSettled(payment, c.GatewayPaymentID)
	}

	remote, err := s.gateway.FetchPayment(ctx, c.GatewayPaymentID)
	if err != nil {
		s.observeVerification(metrics.OutcomeGatewayError)
		log.Warn().Err(err).Str("component", "workflow").Str("payment_id", payment.ID.String()).
			Msg("gateway payment fetch failed, payment left pending")
		return domain.Payment{}, err
	}

	if reason := captureMismatch(remote, payment, c.GatewayOrderID); reason != "" {
		return s.fail(ctx, payment, c.GatewayPaymentID, reason)
	}
	return s.complete(ctx, payment, c.GatewayPaymentID)
}

func (s *Service) complete(ctx context.Context, payment domain.Payment, gatewayPaymentID string) (domain.Payment, error) {
	now := s.now().UTC()
	expiresAt := now.Add(s.config.ListingDuration)

	activated, err := s.store.CompletePayment(ctx, payment.ID, payment.JobID, gatewayPaymentID, expiresAt, now)
	switch {
	case errors.Is(err, domain.ErrTransitionDenied):
		// Another verification settled it first.
		current, getErr := s.store.GetPayment(ctx, payment.ID)
		if getErr != nil {
			return domain.Payment{}, fmt.Errorf("reload payment: %w", getErr)
		}
		return s.resolveSettled(current, gatewayPaymentID)
	case errors.Is(err, domain.ErrConflict):
		s.observeVerification(metrics.OutcomeConflict)
		return domain.Payment{}, fmt.Errorf("job %s or gateway payment %s already has a completed payment: %w", payment.JobID, gatewayPaymentID, domain.ErrConflict)
	case err != nil:
		return domain.Payment{}, fmt.Errorf("complete payment: %w", err)
	}

	if !activated {
		log.Warn().Str("component", "workflow").Str("payment_id", payment.ID.String()).
			Str("job_id", payment.JobID.String()).Msg("payment completed but job was no longer draft")
	}

	payment.Status = domain.PaymentStatusCompleted
	payment.GatewayPaymentID = gatewayPaymentID
	payment.UpdatedAt = now
	s.observeVerification(metrics.OutcomeCompleted)

	log.Info().Str("component", "workflow").Str("payment_id", payment.ID.String()).
		Str("job_id", payment.JobID.String()).Str("gateway_payment_id", gatewayPaymentID).
		Msg("payment verified, job activated")
	return payment, nil
}

func (s *Service) fail(ctx context.Context, payment domain.Payment, gatewayPaymentID, reason string) (domain.Payment, error) {
	err := s.store.FailPayment(ctx, payment.ID, payment.JobID, gatewayPaymentID, s.now().UTC())
	if errors.Is(err, domain.ErrTransitionDenied) {
		current, getErr := s.store.GetPayment(ctx, payment.ID)
		if getErr != nil {
			return domain.Payment{}, fmt.Errorf("reload payment: %w", getErr)
		}
		return s.resolveSettled(current, gatewayPaymentID)
	}
	if err != nil {
		return domain.Payment{}, fmt.Errorf("fail payment: %w", err)
	}

	s.observeVerification(metrics.OutcomeNotCaptured)
	log.Info().Str("component", "workflow").Str("payment_id", payment.ID.String()).
		Str("job_id", payment.JobID.String()).Str("reason", reason).Msg("payment not captured")
	return domain.Payment{}, fmt.Errorf("%s: %w", reason, domain.ErrPaymentNotCaptured)
}

// resolveSettled answers a verification for a payment that is no longer pending.
func (s *Service) resolveSettled(p domain.Payment, gatewayPaymentID string) (domain.Payment, error) {
	switch p.Status {
	case domain.PaymentStatusCompleted:
		if p.GatewayPaymentID == gatewayPaymentID {
			s.observeVerification(metrics.OutcomeDuplicate)
			return p, nil
		}
		s.observeVerification(metrics.OutcomeConflict)
		return domain.Payment{}, fmt.Errorf("payment already completed with a different gateway payment: %w", domain.ErrConflict)
	case domain.PaymentStatusPending:
		return domain.Payment{}, fmt.Errorf("payment still pending: %w", domain.ErrConflict)
	default:
		s.observeVerification(metrics.OutcomeNotCaptured)
		return domain.Payment{}, fmt.Errorf("payment is %s: %w", p.Status, domain.ErrPaymentNotCaptured)
	}
}

// captureMismatch returns why remote does not settle p, or "" when it does.
func captureMismatch(remote gateway.RemotePayment, p domain.Payment, orderID string) string {
	switch {
	case !remote.IsCaptured():
		return fmt.Sprintf("gateway status %q", remote.Status)
	case remote.OrderID != "" && remote.OrderID != orderID:
		return "gateway order id mismatch"
	case remote.Amount != p.Amount:
		return fmt.Sprintf("gateway amount %d, expected %d", remote.Amount, p.Amount)
	}
	return ""
}

// receipt stays within the gateway's 40 character limit; notes carry the
// full ids.
func receipt(jobID, paymentID uuid.UUID) string {
	return "job_" + jobID.String()[:8] + "_pay_" + paymentID.String()[:8]
}
