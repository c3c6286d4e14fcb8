// Package gateway talks to the external payment processor: it creates
// remote orders, fetches payment status and verifies checkout signatures.
package gateway

import (
	"context"
	"fmt"
	"time"
)

// Operation names, used as circuit breaker keys and metric labels.
const (
	OpCreateOrder  = "orders.create"
	OpFetchPayment = "payments.fetch"
)

// RemoteStatusCaptured is the gateway payment status meaning funds were collected.
const RemoteStatusCaptured = "captured"

type Service interface {
	CreateOrder(ctx context.Context, req OrderRequest) (Order, error)
	FetchPayment(ctx context.Context, gatewayPaymentID string) (RemotePayment, error)
	VerifySignature(orderID, paymentID, signature string) bool
	KeyID() string
}

// MetricsSink records gateway call outcomes. Methods must not block.
type MetricsSink interface {
	GatewayRequestCompleted(operation, statusClass string, duration time.Duration)
}

type OrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type RemotePayment struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Captured bool   `json:"captured"`
}

// IsCaptured reports whether the gateway confirms the funds were collected.
func (p RemotePayment) IsCaptured() bool {
	return p.Status == RemoteStatusCaptured
}

// APIError is a non-2xx response from the gateway.
type APIError struct {
	Operation   string
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s: status %d: %s: %s", e.Operation, e.StatusCode, e.Code, e.Description)
	}
	return fmt.Sprintf("%s: status %d", e.Operation, e.StatusCode)
}

// Retryable reports whether the failure is on the gateway side.
func (e *APIError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
