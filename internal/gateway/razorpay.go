package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/2001Abhinav/job-posting-platform/internal/circuitbreaker"
	"github.com/2001Abhinav/job-posting-platform/internal/domain"
	"github.com/2001Abhinav/job-posting-platform/internal/metrics"
)

const DefaultBaseURL = "https://api.razorpay.com"

// maxResponseSize caps how much of a gateway response body is read.
const maxResponseSize = 1 << 20

type Config struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Timeout   time.Duration

	// RequestsPerSecond limits outbound calls from this instance; 0 disables.
	RequestsPerSecond float64
}

// Razorpay implements Service against the Razorpay REST API.
type Razorpay struct {
	baseURL   string
	keyID     string
	keySecret string
	timeout   time.Duration

	client  *http.Client
	limiter *rate.Limiter                  // optional
	breaker *circuitbreaker.CircuitBreaker // optional
	metrics MetricsSink                    // optional
}

func NewRazorpay(cfg Config) *Razorpay {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	r := &Razorpay{
		baseURL:   baseURL,
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		timeout:   timeout,
		client:    &http.Client{},
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return r
}

// WithCircuitBreaker guards each gateway operation with cb.
func (r *Razorpay) WithCircuitBreaker(cb *circuitbreaker.CircuitBreaker) *Razorpay {
	r.breaker = cb
	return r
}

// WithMetrics attaches a metrics sink.
func (r *Razorpay) WithMetrics(sink MetricsSink) *Razorpay {
	r.metrics = sink
	return r
}

func (r *Razorpay) KeyID() string {
	return r.keyID
}

func (r *Razorpay) VerifySignature(orderID, paymentID, signature string) bool {
	return VerifySignature(r.keySecret, orderID, paymentID, signature)
}

// CreateOrder creates a remote order for req.Amount minor units.
func (r *Razorpay) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Order{}, fmt.Errorf("marshal order: %w", err)
	}
	var order Order
	if err := r.call(ctx, OpCreateOrder, http.MethodPost, "/v1/orders", body, &order); err != nil {
		return Order{}, err
	}
	if order.ID == "" {
		return Order{}, fmt.Errorf("%w: %s: empty order id", domain.ErrGateway, OpCreateOrder)
	}
	return order, nil
}

// FetchPayment returns the gateway's view of a payment.
func (r *Razorpay) FetchPayment(ctx context.Context, gatewayPaymentID string) (RemotePayment, error) {
	var p RemotePayment
	path := "/v1/payments/" + url.PathEscape(gatewayPaymentID)
	if err := r.call(ctx, OpFetchPayment, http.MethodGet, path, nil, &p); err != nil {
		return RemotePayment{}, err
	}
	return p, nil
}

// call performs one request. Every returned error wraps domain.ErrGateway.
func (r *Razorpay) call(ctx context.Context, op, method, path string, body []byte, out any) error {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %s: rate limit wait: %v", domain.ErrGateway, op, err)
		}
	}

	do := func() error { return r.do(ctx, op, method, path, body, out) }

	var err error
	if r.breaker != nil {
		err = r.breaker.Execute(op, isUpstreamFailure, do)
	} else {
		err = do()
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		if r.metrics != nil {
			r.metrics.GatewayRequestCompleted(op, metrics.StatusClassCircuitOpen, 0)
		}
	}
	return fmt.Errorf("%w: %w", domain.ErrGateway, err)
}

func (r *Razorpay) do(ctx context.Context, op, method, path string, body []byte, out any) error {
	start := time.Now()

	ctxTimeout, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctxTimeout, method, r.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	req.SetBasicAuth(r.keyID, r.keySecret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.observe(op, 0, err, time.Since(start))
		return fmt.Errorf("%s: send: %w", op, err)
	}
	defer resp.Body.Close()
	r.observe(op, resp.StatusCode, nil, time.Since(start))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Operation: op, StatusCode: resp.StatusCode}
		var envelope struct {
			Error struct {
				Code        string `json:"code"`
				Description string `json:"description"`
			} `json:"error"`
		}
		if json.Unmarshal(data, &envelope) == nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Description = envelope.Error.Description
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func (r *Razorpay) observe(op string, statusCode int, err error, d time.Duration) {
	if r.metrics == nil {
		return
	}
	r.metrics.GatewayRequestCompleted(op, metrics.ClassifyStatus(statusCode, err), d)
}

// isUpstreamFailure reports whether err should count against the circuit.
// Requests the gateway rejected as invalid do not.
func isUpstreamFailure(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return true
}

var _ Service = (*Razorpay)(nil)
