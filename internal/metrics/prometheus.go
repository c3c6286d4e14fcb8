package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// PrometheusSink implements Sink using Prometheus client library.
// All methods are non-blocking and fire-and-forget.
// Registration errors are logged but never propagated.
type PrometheusSink struct {
	// HTTP metrics
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec

	// Gateway metrics
	gatewayRequestsTotal *prometheus.CounterVec
	gatewayDuration      *prometheus.HistogramVec

	// Workflow metrics
	jobsCreatedTotal         prometheus.Counter
	paymentOrdersTotal       prometheus.Counter
	paymentOrderAmountTotal  prometheus.Counter
	paymentVerificationTotal *prometheus.CounterVec

	// Background metrics
	orphanedPayments         prometheus.Gauge
	activationsRepairedTotal prometheus.Counter
	jobsExpiredTotal         prometheus.Counter
	leaderStatus             prometheus.Gauge
	leaderAcquiredTotal      prometheus.Counter
	leaderLostTotal          *prometheus.CounterVec
}

// NewPrometheusSink creates a new Prometheus metrics sink.
// If registration fails, it logs a warning and returns a functional sink.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{}
	s.initHTTPMetrics(reg)
	s.initGatewayMetrics(reg)
	s.initWorkflowMetrics(reg)
	s.initBackgroundMetrics(reg)
	return s
}

func (s *PrometheusSink) initHTTPMetrics(reg prometheus.Registerer) {
	s.httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobboard_http_requests_total",
		Help: "Total number of HTTP requests handled.",
	}, []string{"method", "route", "code"})
	s.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jobboard_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "route"})

	s.register(reg, s.httpRequestsTotal, "jobboard_http_requests_total")
	s.register(reg, s.httpDuration, "jobboard_http_request_duration_seconds")
}

func (s *PrometheusSink) initGatewayMetrics(reg prometheus.Registerer) {
	s.gatewayRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobboard_gateway_requests_total",
		Help: "Total number of payment gateway requests by operation and status class.",
	}, []string{"operation", "status_class"})
	s.gatewayDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jobboard_gateway_request_duration_seconds",
		Help:    "Payment gateway request latency in seconds.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"operation"})

	s.register(reg, s.gatewayRequestsTotal, "jobboard_gateway_requests_total")
	s.register(reg, s.gatewayDuration, "jobboard_gateway_request_duration_seconds")
}

func (s *PrometheusSink) initWorkflowMetrics(reg prometheus.Registerer) {
	s.jobsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobboard_jobs_created_total",
		Help: "Total number of draft jobs created.",
	})
	s.paymentOrdersTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobboard_payment_orders_total",
		Help: "Total number of gateway orders created.",
	})
	s.paymentOrderAmountTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobboard_payment_order_amount_minor_total",
		Help: "Sum of ordered amounts in minor currency units.",
	})
	s.paymentVerificationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobboard_payment_verifications_total",
		Help: "Total number of payment verifications by outcome.",
	}, []string{"outcome"})

	s.register(reg, s.jobsCreatedTotal, "jobboard_jobs_created_total")
	s.register(reg, s.paymentOrdersTotal, "jobboard_payment_orders_total")
	s.register(reg, s.paymentOrderAmountTotal, "jobboard_payment_order_amount_minor_total")
	s.register(reg, s.paymentVerificationTotal, "jobboard_payment_verifications_total")
}

func (s *PrometheusSink) initBackgroundMetrics(reg prometheus.Registerer) {
	s.orphanedPayments = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "jobboard_orphaned_payments",
		Help: "Pending payments older than the reconcile threshold at the last sweep.",
	})
	s.activationsRepairedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobboard_activations_repaired_total",
		Help: "Jobs activated by the reconciler for already completed payments.",
	})
	s.jobsExpiredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobboard_jobs_expired_total",
		Help: "Active jobs moved to expired by the expiry sweep.",
	})
	s.leaderStatus = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "jobboard_leader_status",
		Help: "1 when this instance holds the background duties lock.",
	})
	s.leaderAcquiredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobboard_leader_acquired_total",
		Help: "Number of times this instance acquired leadership.",
	})
	s.leaderLostTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobboard_leader_lost_total",
		Help: "Number of times this instance lost leadership, by reason.",
	}, []string{"reason"})

	s.register(reg, s.orphanedPayments, "jobboard_orphaned_payments")
	s.register(reg, s.activationsRepairedTotal, "jobboard_activations_repaired_total")
	s.register(reg, s.jobsExpiredTotal, "jobboard_jobs_expired_total")
	s.register(reg, s.leaderStatus, "jobboard_leader_status")
	s.register(reg, s.leaderAcquiredTotal, "jobboard_leader_acquired_total")
	s.register(reg, s.leaderLostTotal, "jobboard_leader_lost_total")
}

// register attempts to register a collector, logging any errors without propagating them.
func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		log.Warn().Err(err).Str("component", "metrics").Str("metric", name).Msg("failed to register collector")
	}
}

func (s *PrometheusSink) HTTPRequestCompleted(method, route string, status int, duration time.Duration) {
	s.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	s.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (s *PrometheusSink) GatewayRequestCompleted(operation, statusClass string, duration time.Duration) {
	s.gatewayRequestsTotal.WithLabelValues(operation, statusClass).Inc()
	if statusClass != StatusClassCircuitOpen {
		s.gatewayDuration.WithLabelValues(operation).Observe(duration.Seconds())
	}
}

func (s *PrometheusSink) JobCreated() {
	s.jobsCreatedTotal.Inc()
}

func (s *PrometheusSink) PaymentOrderCreated(amount int64) {
	s.paymentOrdersTotal.Inc()
	if amount > 0 {
		s.paymentOrderAmountTotal.Add(float64(amount))
	}
}

func (s *PrometheusSink) PaymentVerification(outcome string) {
	s.paymentVerificationTotal.WithLabelValues(outcome).Inc()
}

func (s *PrometheusSink) OrphanedPaymentsUpdate(count int) {
	s.orphanedPayments.Set(float64(count))
}

func (s *PrometheusSink) ActivationsRepaired(count int) {
	s.activationsRepairedTotal.Add(float64(count))
}

func (s *PrometheusSink) JobsExpired(count int) {
	s.jobsExpiredTotal.Add(float64(count))
}

func (s *PrometheusSink) LeaderStatusChanged(isLeader bool) {
	if isLeader {
		s.leaderStatus.Set(1)
		return
	}
	s.leaderStatus.Set(0)
}

func (s *PrometheusSink) LeaderAcquired() {
	s.leaderAcquiredTotal.Inc()
}

func (s *PrometheusSink) LeaderLost(reason string) {
	s.leaderLostTotal.WithLabelValues(reason).Inc()
}

var _ Sink = (*PrometheusSink)(nil)
