package api

import (
	"time"

	"github.com/2001Abhinav/job-posting-platform/internal/domain"
	"github.com/2001Abhinav/job-posting-platform/internal/workflow"
)

// JobRequest is the body of POST and PUT /api/jobs. On update, omitted
// fields are left unchanged.
type JobRequest struct {
	Title       *string `json:"title"`
	Company     *string `json:"company"`
	Location    *string `json:"location"`
	Salary      *string `json:"salary"`
	Type        *string `json:"type"`
	Experience  *string `json:"experience"`
	Description *string `json:"description"`
	Skills      *string `json:"skills"`
	Email       *string `json:"email"`
}

func (r JobRequest) input() workflow.JobInput {
	return workflow.JobInput{
		Title:       deref(r.Title),
		Company:     deref(r.Company),
		Location:    deref(r.Location),
		Salary:      deref(r.Salary),
		Type:        deref(r.Type),
		Experience:  deref(r.Experience),
		Description: deref(r.Description),
		Skills:      deref(r.Skills),
		Email:       deref(r.Email),
	}
}

func (r JobRequest) fields() domain.JobFields {
	return domain.JobFields{
		Title:       r.Title,
		Company:     r.Company,
		Location:    r.Location,
		Salary:      r.Salary,
		Type:        r.Type,
		Experience:  r.Experience,
		Description: r.Description,
		Skills:      r.Skills,
		Email:       r.Email,
	}
}

type JobResponse struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Company       string  `json:"company"`
	Location      string  `json:"location"`
	Salary        string  `json:"salary"`
	Type          string  `json:"type"`
	Experience    string  `json:"experience"`
	Description   string  `json:"description"`
	Skills        string  `json:"skills"`
	Email         string  `json:"email"`
	EmployerID    string  `json:"employerId"`
	Status        string  `json:"status"`
	PaymentStatus string  `json:"paymentStatus"`
	PaymentID     *string `json:"paymentId"`
	CreatedAt     string  `json:"createdAt"`
	UpdatedAt     string  `json:"updatedAt"`
	ExpiresAt     *string `json:"expiresAt"`
}

type ListJobsResponse struct {
	Jobs       []JobResponse `json:"jobs"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	TotalPages int           `json:"totalPages"`
}

type ApplicationRequest struct {
	JobID       string `json:"jobId"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	ResumeURL   string `json:"resumeUrl"`
	CoverLetter string `json:"coverLetter"`
}

type ApplicationStatusRequest struct {
	Status string `json:"status"`
}

type ApplicationResponse struct {
	ID          string `json:"id"`
	JobID       string `json:"jobId"`
	ApplicantID string `json:"applicantId"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	ResumeURL   string `json:"resumeUrl"`
	CoverLetter string `json:"coverLetter"`
	Status      string `json:"status"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

// CreateOrderRequest carries the amount in minor units. Zero selects the
// configured posting fee.
type CreateOrderRequest struct {
	JobID  string `json:"jobId"`
	Amount int64  `json:"amount"`
}

type CreateOrderResponse struct {
	OrderID   string `json:"orderId"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	KeyID     string `json:"keyId"`
	PaymentID string `json:"paymentId"`
}

// VerifyPaymentRequest is what the checkout widget returns to the client.
type VerifyPaymentRequest struct {
	PaymentID         string `json:"paymentId"`
	RazorpayPaymentID string `json:"razorpayPaymentId"`
	RazorpayOrderID   string `json:"razorpayOrderId"`
	RazorpaySignature string `json:"razorpaySignature"`
}

type VerifyPaymentResponse struct {
	Success bool            `json:"success"`
	Payment PaymentResponse `json:"payment"`
}

type PaymentResponse struct {
	ID                string  `json:"id"`
	JobID             string  `json:"jobId"`
	EmployerID        string  `json:"employerId"`
	RazorpayOrderID   *string `json:"razorpayOrderId"`
	RazorpayPaymentID *string `json:"razorpayPaymentId"`
	Amount            int64   `json:"amount"`
	Currency          string  `json:"currency"`
	Status            string  `json:"status"`
	CreatedAt         string  `json:"createdAt"`
	UpdatedAt         string  `json:"updatedAt"`
}

type UserResponse struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	ProfileImageURL string `json:"profileImageUrl"`
	CreatedAt       string `json:"createdAt"`
	UpdatedAt       string `json:"updatedAt"`
}

// DashboardResponse reports TotalSpent in minor units.
type DashboardResponse struct {
	ActiveJobs        int   `json:"activeJobs"`
	TotalApplications int   `json:"totalApplications"`
	PendingReview     int   `json:"pendingReview"`
	TotalSpent        int64 `json:"totalSpent"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func toJobResponse(j domain.Job) JobResponse {
	resp := JobResponse{
		ID:            j.ID.String(),
		Title:         j.Title,
		Company:       j.Company,
		Location:      j.Location,
		Salary:        j.Salary,
		Type:          j.Type,
		Experience:    j.Experience,
		Description:   j.Description,
		Skills:        j.Skills,
		Email:         j.Email,
		EmployerID:    j.EmployerID,
		Status:        string(j.Status),
		PaymentStatus: string(j.PaymentStatus),
		PaymentID:     optional(j.PaymentID),
		CreatedAt:     formatTime(j.CreatedAt),
		UpdatedAt:     formatTime(j.UpdatedAt),
	}
	if j.ExpiresAt != nil {
		s := formatTime(*j.ExpiresAt)
		resp.ExpiresAt = &s
	}
	return resp
}

func toJobResponses(jobs []domain.Job) []JobResponse {
	out := make([]JobResponse, len(jobs))
	for i, j := range jobs {
		out[i] = toJobResponse(j)
	}
	return out
}

func toApplicationResponse(a domain.Application) ApplicationResponse {
	return ApplicationResponse{
		ID:          a.ID.String(),
		JobID:       a.JobID.String(),
		ApplicantID: a.ApplicantID,
		Name:        a.Name,
		Email:       a.Email,
		Phone:       a.Phone,
		ResumeURL:   a.ResumeURL,
		CoverLetter: a.CoverLetter,
		Status:      string(a.Status),
		CreatedAt:   formatTime(a.CreatedAt),
		UpdatedAt:   formatTime(a.UpdatedAt),
	}
}

func toApplicationResponses(apps []domain.Application) []ApplicationResponse {
	out := make([]ApplicationResponse, len(apps))
	for i, a := range apps {
		out[i] = toApplicationResponse(a)
	}
	return out
}

func toPaymentResponse(p domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:                p.ID.String(),
		JobID:             p.JobID.String(),
		EmployerID:        p.EmployerID,
		RazorpayOrderID:   optional(p.GatewayOrderID),
		RazorpayPaymentID: optional(p.GatewayPaymentID),
		Amount:            p.Amount,
		Currency:          p.Currency,
		Status:            string(p.Status),
		CreatedAt:         formatTime(p.CreatedAt),
		UpdatedAt:         formatTime(p.UpdatedAt),
	}
}

func toPaymentResponses(payments []domain.Payment) []PaymentResponse {
	out := make([]PaymentResponse, len(payments))
	for i, p := range payments {
		out[i] = toPaymentResponse(p)
	}
	return out
}

func toUserResponse(u domain.User) UserResponse {
	return UserResponse{
		ID:              u.ID,
		Email:           u.Email,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		ProfileImageURL: u.ProfileImageURL,
		CreatedAt:       formatTime(u.CreatedAt),
		UpdatedAt:       formatTime(u.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
