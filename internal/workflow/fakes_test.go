package workflow

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2001Abhinav/job-posting-platform/internal/domain"
	"github.com/2001Abhinav/job-posting-platform/internal/gateway"
)

// fakeStore is an in-memory Store with the same conditional-update
// semantics as the Postgres store.
type fakeStore struct {
	mu           sync.Mutex
	users        map[string]domain.User
	jobs         map[uuid.UUID]domain.Job
	payments     map[uuid.UUID]domain.Payment
	applications map[uuid.UUID]domain.Application

	// beforeComplete runs inside CompletePayment before the conditional
	// update, with the lock released. Used to simulate a concurrent verify.
	beforeComplete func()

	insertPaymentErr error
	completeCalls    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:        make(map[string]domain.User),
		jobs:         make(map[uuid.UUID]domain.Job),
		payments:     make(map[uuid.UUID]domain.Payment),
		applications: make(map[uuid.UUID]domain.Application),
	}
}

func (f *fakeStore) UpsertUser(ctx context.Context, u domain.User) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.users[u.ID]; ok {
		u.CreatedAt = existing.CreatedAt
	}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeStore) GetUser(ctx context.Context, id string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) InsertJob(ctx context.Context, job domain.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[job.ID] = job
	return nil
}

func (f *fakeStore) GetJob(ctx context.Context, id uuid.UUID) (domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok || job.Status == domain.JobStatusDeleted {
		return domain.Job{}, domain.ErrNotFound
	}
	return job, nil
}

func (f *fakeStore) UpdateJobContent(ctx context.Context, job domain.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.jobs[job.ID]
	if !ok || cur.Status == domain.JobStatusDeleted {
		return domain.ErrNotFound
	}
	job.Status = cur.Status
	job.PaymentStatus = cur.PaymentStatus
	job.PaymentID = cur.PaymentID
	job.ExpiresAt = cur.ExpiresAt
	f.jobs[job.ID] = job
	return nil
}

func (f *fakeStore) SoftDeleteJob(ctx context.Context, id uuid.UUID, employerID string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok || job.EmployerID != employerID || job.Status == domain.JobStatusDeleted {
		return domain.ErrNotFound
	}
	job.Status = domain.JobStatusDeleted
	job.UpdatedAt = now
	f.jobs[id] = job
	return nil
}

func (f *fakeStore) ListJobs(ctx context.Context, filter domain.JobFilter) (domain.JobPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	status := filter.EffectiveStatus()
	contains := func(s, sub string) bool {
		return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
	}

	var matched []domain.Job
	for _, j := range f.jobs {
		switch {
		case status != "" && j.Status != status:
			continue
		case status == "" && j.Status == domain.JobStatusDeleted:
			continue
		case filter.EmployerID != "" && j.EmployerID != filter.EmployerID:
			continue
		case filter.Search != "" && !contains(j.Title, filter.Search) && !contains(j.Company, filter.Search) && !contains(j.Description, filter.Search):
			continue
		case filter.Location != "" && !contains(j.Location, filter.Location):
			continue
		case filter.Type != "" && j.Type != filter.Type:
			continue
		case filter.Experience != "" && j.Experience != filter.Experience:
			continue
		}
		matched = append(matched, j)
	}
	sort.Slice(matched, func(a, b int) bool { return matched[a].CreatedAt.After(matched[b].CreatedAt) })

	page := domain.JobPage{Jobs: []domain.Job{}, Total: len(matched)}
	if filter.Offset < len(matched) {
		end := filter.Offset + filter.Limit
		if end > len(matched) {
			end = len(matched)
		}
		page.Jobs = matched[filter.Offset:end]
	}
	return page, nil
}

func (f *fakeStore) ListJobsByEmployer(ctx context.Context, employerID string) ([]domain.Job, error) {
	page, err := f.ListJobs(ctx, domain.JobFilter{EmployerID: employerID, Limit: 1 << 30})
	return page.Jobs, err
}

func (f *fakeStore) InsertPayment(ctx context.Context, p domain.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertPaymentErr != nil {
		return f.insertPaymentErr
	}
	f.payments[p.ID] = p
	return nil
}

func (f *fakeStore) GetPayment(ctx context.Context, id uuid.UUID) (domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return domain.Payment{}, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) SetPaymentOrder(ctx context.Context, id uuid.UUID, orderID string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return domain.ErrNotFound
	}
	if p.Status != domain.PaymentStatusPending {
		return domain.ErrTransitionDenied
	}
	p.GatewayOrderID = orderID
	p.UpdatedAt = now
	f.payments[id] = p
	return nil
}

func (f *fakeStore) CompletePayment(ctx context.Context, id, jobID uuid.UUID, gatewayPaymentID string, expiresAt, now time.Time) (bool, error) {
	if f.beforeComplete != nil {
		hook := f.beforeComplete
		f.beforeComplete = nil
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.completeCalls++

	p, ok := f.payments[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if p.Status != domain.PaymentStatusPending {
		return false, domain.ErrTransitionDenied
	}
	for _, other := range f.payments {
		if other.ID == id || other.Status != domain.PaymentStatusCompleted {
			continue
		}
		if other.JobID == jobID || other.GatewayPaymentID == gatewayPaymentID {
			return false, domain.ErrConflict
		}
	}

	p.Status = domain.PaymentStatusCompleted
	p.GatewayPaymentID = gatewayPaymentID
	p.UpdatedAt = now
	f.payments[id] = p

	job, ok := f.jobs[jobID]
	if !ok || job.Status != domain.JobStatusDraft {
		return false, nil
	}
	job.Status = domain.JobStatusActive
	job.PaymentStatus = domain.PaymentStatusCompleted
	job.PaymentID = gatewayPaymentID
	job.ExpiresAt = &expiresAt
	job.UpdatedAt = now
	f.jobs[jobID] = job
	return true, nil
}

func (f *fakeStore) FailPayment(ctx context.Context, id, jobID uuid.UUID, gatewayPaymentID string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return domain.ErrNotFound
	}
	if p.Status != domain.PaymentStatusPending {
		return domain.ErrTransitionDenied
	}
	p.Status = domain.PaymentStatusFailed
	p.GatewayPaymentID = gatewayPaymentID
	p.UpdatedAt = now
	f.payments[id] = p

	if job, ok := f.jobs[jobID]; ok && job.Status == domain.JobStatusDraft {
		job.PaymentStatus = domain.PaymentStatusFailed
		job.UpdatedAt = now
		f.jobs[jobID] = job
	}
	return nil
}

func (f *fakeStore) ListPaymentsByEmployer(ctx context.Context, employerID string) ([]domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Payment{}
	for _, p := range f.payments {
		if p.EmployerID == employerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertApplication(ctx context.Context, a domain.Application) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, other := range f.applications {
		if other.JobID == a.JobID && other.ApplicantID == a.ApplicantID {
			return domain.ErrConflict
		}
	}
	f.applications[a.ID] = a
	return nil
}

func (f *fakeStore) GetApplication(ctx context.Context, id uuid.UUID) (domain.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.applications[id]
	if !ok {
		return domain.Application{}, domain.ErrNotFound
	}
	return a, nil
}

func (f *fakeStore) ListApplicationsByJob(ctx context.Context, jobID uuid.UUID) ([]domain.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Application{}
	for _, a := range f.applications {
		if a.JobID == jobID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) ListApplicationsByApplicant(ctx context.Context, applicantID string) ([]domain.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Application{}
	for _, a := range f.applications {
		if a.ApplicantID == applicantID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateApplicationStatus(ctx context.Context, id uuid.UUID, status domain.ApplicationStatus, now time.Time) (domain.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.applications[id]
	if !ok {
		return domain.Application{}, domain.ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = now
	f.applications[id] = a
	return a, nil
}

func (f *fakeStore) DashboardStats(ctx context.Context, employerID string) (domain.DashboardStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var st domain.DashboardStats
	for _, j := range f.jobs {
		if j.EmployerID == employerID && j.Status == domain.JobStatusActive {
			st.ActiveJobs++
		}
	}
	for _, a := range f.applications {
		j, ok := f.jobs[a.JobID]
		if !ok || j.EmployerID != employerID || j.Status == domain.JobStatusDeleted {
			continue
		}
		st.TotalApplications++
		if a.Status == domain.ApplicationStatusPending {
			st.PendingReview++
		}
	}
	for _, p := range f.payments {
		if p.EmployerID == employerID && p.Status == domain.PaymentStatusCompleted {
			st.TotalSpent += p.Amount
		}
	}
	return st, nil
}

func (f *fakeStore) job(id uuid.UUID) domain.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jobs[id]
}

func (f *fakeStore) payment(id uuid.UUID) domain.Payment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.payments[id]
}

var _ Store = (*fakeStore)(nil)

// fakeGateway signs with a real HMAC secret and serves payments from a map.
type fakeGateway struct {
	mu        sync.Mutex
	secret    string
	orders    []gateway.OrderRequest
	remote    map[string]gateway.RemotePayment
	createErr error
	fetchErr  error
	fetches   int
	nextOrder int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{secret: "S", remote: make(map[string]gateway.RemotePayment)}
}

func (g *fakeGateway) CreateOrder(ctx context.Context, req gateway.OrderRequest) (gateway.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return gateway.Order{}, g.createErr
	}
	g.orders = append(g.orders, req)
	g.nextOrder++
	return gateway.Order{
		ID:       "order_" + strconv.Itoa(g.nextOrder),
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
	}, nil
}

func (g *fakeGateway) FetchPayment(ctx context.Context, id string) (gateway.RemotePayment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetches++
	if g.fetchErr != nil {
		return gateway.RemotePayment{}, g.fetchErr
	}
	p, ok := g.remote[id]
	if !ok {
		return gateway.RemotePayment{}, &gateway.APIError{Operation: gateway.OpFetchPayment, StatusCode: 400}
	}
	return p, nil
}

func (g *fakeGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return gateway.VerifySignature(g.secret, orderID, paymentID, signature)
}

func (g *fakeGateway) KeyID() string { return "rzp_test_key" }

func (g *fakeGateway) capture(paymentID, orderID string, amount int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.remote[paymentID] = gateway.RemotePayment{
		ID: paymentID, OrderID: orderID, Amount: amount, Currency: "INR",
		Status: gateway.RemoteStatusCaptured, Captured: true,
	}
}

func (g *fakeGateway) setStatus(paymentID, orderID string, amount int64, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.remote[paymentID] = gateway.RemotePayment{
		ID: paymentID, OrderID: orderID, Amount: amount, Currency: "INR", Status: status,
	}
}

var _ PaymentGateway = (*fakeGateway)(nil)

type fakeMetrics struct {
	mu            sync.Mutex
	jobsCreated   int
	orders        int
	verifications map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{verifications: make(map[string]int)}
}

func (m *fakeMetrics) JobCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobsCreated++
}

func (m *fakeMetrics) PaymentOrderCreated(amount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders++
}

func (m *fakeMetrics) PaymentVerification(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifications[outcome]++
}
