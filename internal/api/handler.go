package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/2001Abhinav/job-posting-platform/internal/domain"
	"github.com/2001Abhinav/job-posting-platform/internal/workflow"
)

// Service is the application behaviour exposed over HTTP.
type Service interface {
	SyncUser(ctx context.Context, id domain.Identity) (domain.User, error)
	CurrentUser(ctx context.Context, caller domain.Identity) (domain.User, error)

	CreateJob(ctx context.Context, caller domain.Identity, in workflow.JobInput) (domain.Job, error)
	GetJob(ctx context.Context, caller domain.Identity, id uuid.UUID) (domain.Job, error)
	ListJobs(ctx context.Context, q workflow.ListQuery) (workflow.JobList, error)
	ListEmployerJobs(ctx context.Context, caller domain.Identity, employerID string) ([]domain.Job, error)
	UpdateJob(ctx context.Context, caller domain.Identity, id uuid.UUID, fields domain.JobFields) (domain.Job, error)
	DeleteJob(ctx context.Context, caller domain.Identity, id uuid.UUID) error

	CreateApplication(ctx context.Context, caller domain.Identity, in workflow.ApplicationInput) (domain.Application, error)
	GetApplication(ctx context.Context, caller domain.Identity, id uuid.UUID) (domain.Application, error)
	ListJobApplications(ctx context.Context, caller domain.Identity, jobID uuid.UUID) ([]domain.Application, error)
	ListUserApplications(ctx context.Context, caller domain.Identity, userID string) ([]domain.Application, error)
	UpdateApplicationStatus(ctx context.Context, caller domain.Identity, id uuid.UUID, status domain.ApplicationStatus) (domain.Application, error)

	CreatePaymentOrder(ctx context.Context, caller domain.Identity, jobID uuid.UUID, amount int64) (domain.PaymentOrder, error)
	VerifyPayment(ctx context.Context, caller domain.Identity, c domain.PaymentConfirmation) (domain.Payment, error)
	ListUserPayments(ctx context.Context, caller domain.Identity, userID string) ([]domain.Payment, error)
	Dashboard(ctx context.Context, caller domain.Identity) (domain.DashboardStats, error)
}

var _ Service = (*workflow.Service)(nil)

// HealthChecker provides database health status for the /health endpoint.
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// LeaderStatus reports whether this instance runs the background duties.
type LeaderStatus interface {
	IsLeader() bool
}

// Options configures session handling.
type Options struct {
	SessionCookie string
	SecureCookie  bool
}

type Handler struct {
	svc          Service
	auth         Authenticator
	db           HealthChecker
	leader       LeaderStatus
	metrics      MetricsSink
	cookieName   string
	secureCookie bool
}

func NewHandler(svc Service, auth Authenticator, opts Options) *Handler {
	name := opts.SessionCookie
	if name == "" {
		name = "sid"
	}
	return &Handler{svc: svc, auth: auth, cookieName: name, secureCookie: opts.SecureCookie}
}

// WithHealthChecker sets the database health checker for verbose /health responses.
func (h *Handler) WithHealthChecker(db HealthChecker) *Handler {
	h.db = db
	return h
}

// WithLeaderStatus adds the election role to verbose /health responses.
func (h *Handler) WithLeaderStatus(l LeaderStatus) *Handler {
	h.leader = l
	return h
}

// WithMetrics enables per-request HTTP metrics.
func (h *Handler) WithMetrics(sink MetricsSink) *Handler {
	h.metrics = sink
	return h
}

// Router builds the gin engine serving every route.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	if h.metrics != nil {
		r.Use(requestMetrics(h.metrics))
	}
	r.Use(limitBody())

	r.NoRoute(func(c *gin.Context) { writeMessage(c, http.StatusNotFound, "Not found") })
	r.GET("/health", h.health)

	api := r.Group("/api")
	api.GET("/login", h.login)
	api.GET("/jobs", h.listJobs)
	api.GET("/jobs/:id", h.optionalAuth(), h.getJob)

	authed := api.Group("", h.requireAuth())
	authed.POST("/logout", h.logout)
	authed.GET("/auth/user", h.currentUser)

	authed.POST("/jobs", h.createJob)
	authed.GET("/jobs/employer/:employerId", h.listEmployerJobs)
	authed.PUT("/jobs/:id", h.updateJob)
	authed.DELETE("/jobs/:id", h.deleteJob)

	authed.POST("/applications", h.createApplication)
	authed.GET("/applications/:id", h.getApplication)
	authed.GET("/applications/job/:jobId", h.listJobApplications)
	authed.GET("/applications/user/:userId", h.listUserApplications)
	authed.PUT("/applications/:id/status", h.updateApplicationStatus)

	authed.POST("/payments/create-order", h.createPaymentOrder)
	authed.POST("/payments/verify", h.verifyPayment)
	authed.GET("/payments/user/:userId", h.listUserPayments)

	authed.GET("/dashboard/stats", h.dashboard)

	return r
}

// HealthResponse represents the /health endpoint response.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

func (h *Handler) health(c *gin.Context) {
	if c.Query("verbose") != "true" || (h.db == nil && h.leader == nil) {
		c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
		return
	}

	resp := HealthResponse{
		Status:     "ok",
		Components: make(map[string]string),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			resp.Status = "degraded"
			resp.Components["database"] = "unhealthy: " + err.Error()
		} else {
			resp.Components["database"] = "healthy"
		}
	}
	if h.leader != nil {
		resp.Components["role"] = "follower"
		if h.leader.IsLeader() {
			resp.Components["role"] = "leader"
		}
	}

	statusCode := http.StatusOK
	if resp.Status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, resp)
}

func (h *Handler) login(c *gin.Context) {
	target := h.auth.LoginURL(c.Query("returnTo"))
	if target == "" {
		writeMessage(c, http.StatusNotImplemented, "Login is not configured")
		return
	}
	c.Redirect(http.StatusFound, target)
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), h.sessionToken(c)); err != nil {
		_ = c.Error(err)
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, "", -1, "/", "", h.secureCookie, true)
	c.Status(http.StatusNoContent)
}

func (h *Handler) currentUser(c *gin.Context) {
	u, err := h.svc.CurrentUser(c.Request.Context(), caller(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(u))
}

func (h *Handler) createJob(c *gin.Context) {
	var req JobRequest
	if !bindJSON(c, &req) {
		return
	}
	job, err := h.svc.CreateJob(c.Request.Context(), caller(c), req.input())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toJobResponse(job))
}

func (h *Handler) listJobs(c *gin.Context) {
	q, err := parseListQuery(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	list, err := h.svc.ListJobs(c.Request.Context(), q)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListJobsResponse{
		Jobs:       toJobResponses(list.Jobs),
		Total:      list.Total,
		Page:       list.Page,
		TotalPages: list.TotalPages,
	})
}

func (h *Handler) getJob(c *gin.Context) {
	id, err := parseID(c.Param("id"), "id")
	if err != nil {
		abortWithError(c, err)
		return
	}
	job, err := h.svc.GetJob(c.Request.Context(), caller(c), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeMessage(c, http.StatusNotFound, "Job not found")
			return
		}
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toJobResponse(job))
}

func (h *Handler) listEmployerJobs(c *gin.Context) {
	jobs, err := h.svc.ListEmployerJobs(c.Request.Context(), caller(c), c.Param("employerId"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toJobResponses(jobs))
}

func (h *Handler) updateJob(c *gin.Context) {
	id, err := parseID(c.Param("id"), "id")
	if err != nil {
		abortWithError(c, err)
		return
	}
	var req JobRequest
	if !bindJSON(c, &req) {
		return
	}
	job, err := h.svc.UpdateJob(c.Request.Context(), caller(c), id, req.fields())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toJobResponse(job))
}

func (h *Handler) deleteJob(c *gin.Context) {
	id, err := parseID(c.Param("id"), "id")
	if err != nil {
		abortWithError(c, err)
		return
	}
	if err := h.svc.DeleteJob(c.Request.Context(), caller(c), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeMessage(c, http.StatusNotFound, "Job not found")
			return
		}
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Job deleted successfully"})
}

func (h *Handler) createApplication(c *gin.Context) {
	var req ApplicationRequest
	if !bindJSON(c, &req) {
		return
	}
	jobID, err := parseID(req.JobID, "jobId")
	if err != nil {
		abortWithError(c, err)
		return
	}
	a, err := h.svc.CreateApplication(c.Request.Context(), caller(c), workflow.ApplicationInput{
		JobID:       jobID,
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		ResumeURL:   req.ResumeURL,
		CoverLetter: req.CoverLetter,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toApplicationResponse(a))
}

func (h *Handler) getApplication(c *gin.Context) {
	id, err := parseID(c.Param("id"), "id")
	if err != nil {
		abortWithError(c, err)
		return
	}
	a, err := h.svc.GetApplication(c.Request.Context(), caller(c), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toApplicationResponse(a))
}

func (h *Handler) listJobApplications(c *gin.Context) {
	jobID, err := parseID(c.Param("jobId"), "jobId")
	if err != nil {
		abortWithError(c, err)
		return
	}
	apps, err := h.svc.ListJobApplications(c.Request.Context(), caller(c), jobID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toApplicationResponses(apps))
}

func (h *Handler) listUserApplications(c *gin.Context) {
	apps, err := h.svc.ListUserApplications(c.Request.Context(), caller(c), c.Param("userId"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toApplicationResponses(apps))
}

func (h *Handler) updateApplicationStatus(c *gin.Context) {
	id, err := parseID(c.Param("id"), "id")
	if err != nil {
		abortWithError(c, err)
		return
	}
	var req ApplicationStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.svc.UpdateApplicationStatus(c.Request.Context(), caller(c), id, domain.ApplicationStatus(req.Status))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toApplicationResponse(a))
}

func (h *Handler) createPaymentOrder(c *gin.Context) {
	var req CreateOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	jobID, err := parseID(req.JobID, "jobId")
	if err != nil {
		abortWithError(c, err)
		return
	}
	order, err := h.svc.CreatePaymentOrder(c.Request.Context(), caller(c), jobID, req.Amount)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, CreateOrderResponse{
		OrderID:   order.OrderID,
		Amount:    order.Amount,
		Currency:  order.Currency,
		KeyID:     order.KeyID,
		PaymentID: order.PaymentID.String(),
	})
}

func (h *Handler) verifyPayment(c *gin.Context) {
	var req VerifyPaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	paymentID, err := parseID(req.PaymentID, "paymentId")
	if err != nil {
		abortWithError(c, err)
		return
	}
	p, err := h.svc.VerifyPayment(c.Request.Context(), caller(c), domain.PaymentConfirmation{
		PaymentID:        paymentID,
		GatewayPaymentID: req.RazorpayPaymentID,
		GatewayOrderID:   req.RazorpayOrderID,
		Signature:        req.RazorpaySignature,
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeMessage(c, http.StatusNotFound, "Payment not found")
			return
		}
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, VerifyPaymentResponse{Success: true, Payment: toPaymentResponse(p)})
}

func (h *Handler) listUserPayments(c *gin.Context) {
	payments, err := h.svc.ListUserPayments(c.Request.Context(), caller(c), c.Param("userId"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaymentResponses(payments))
}

func (h *Handler) dashboard(c *gin.Context) {
	st, err := h.svc.Dashboard(c.Request.Context(), caller(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, DashboardResponse{
		ActiveJobs:        st.ActiveJobs,
		TotalApplications: st.TotalApplications,
		PendingReview:     st.PendingReview,
		TotalSpent:        st.TotalSpent,
	})
}

// bindJSON decodes the request body, writing a 400 or 413 on failure.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(c, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		writeMessage(c, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}
