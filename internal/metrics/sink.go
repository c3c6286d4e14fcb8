package metrics

import (
	"strings"
	"time"
)

// Sink defines the interface for recording metrics.
// All methods are fire-and-forget: implementations MUST NOT block or propagate errors.
type Sink interface {
	// HTTP metrics
	HTTPRequestCompleted(method, route string, status int, duration time.Duration)

	// Gateway metrics
	GatewayRequestCompleted(operation, statusClass string, duration time.Duration)

	// Workflow metrics
	JobCreated()
	PaymentOrderCreated(amount int64)
	PaymentVerification(outcome string)

	// Background duties
	OrphanedPaymentsUpdate(count int)
	ActivationsRepaired(count int)
	JobsExpired(count int)
	LeaderStatusChanged(isLeader bool)
	LeaderAcquired()
	LeaderLost(reason string)
}

// Outcome constants for the PaymentVerification metric.
const (
	OutcomeCompleted        = "completed"
	OutcomeNotCaptured      = "not_captured"
	OutcomeInvalidSignature = "invalid_signature"
	OutcomeGatewayError     = "gateway_error"
	OutcomeDuplicate        = "duplicate"
	OutcomeConflict         = "conflict"
)

// StatusClass constants for the GatewayRequestCompleted metric.
const (
	StatusClass2xx             = "2xx"
	StatusClass4xx             = "4xx"
	StatusClass5xx             = "5xx"
	StatusClassTimeout         = "timeout"
	StatusClassConnectionError = "connection_error"
	StatusClassCircuitOpen     = "circuit_open"
	StatusClassOtherError      = "other_error"
)

// ClassifyStatus maps a status code and error to a status class.
func ClassifyStatus(statusCode int, err error) string {
	if err != nil {
		errStr := strings.ToLower(err.Error())
		if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded") {
			return StatusClassTimeout
		}
		if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host") ||
			strings.Contains(errStr, "network is unreachable") || strings.Contains(errStr, "dial") {
			return StatusClassConnectionError
		}
		return StatusClassOtherError
	}

	switch {
	case statusCode >= 200 && statusCode < 300:
		return StatusClass2xx
	case statusCode >= 400 && statusCode < 500:
		return StatusClass4xx
	case statusCode >= 500:
		return StatusClass5xx
	default:
		return StatusClassOtherError
	}
}
