package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/2001Abhinav/job-posting-platform/internal/domain"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", domain.Invalid("title", "required"), http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("create: %w", domain.Invalid("email", "invalid")), http.StatusBadRequest},
		{"unauthenticated", domain.ErrUnauthenticated, http.StatusUnauthorized},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden},
		{"not found", fmt.Errorf("load job: %w", domain.ErrNotFound), http.StatusNotFound},
		{"conflict", domain.ErrConflict, http.StatusConflict},
		{"invalid signature", domain.ErrInvalidSignature, http.StatusBadRequest},
		{"not captured", fmt.Errorf("authorized: %w", domain.ErrPaymentNotCaptured), http.StatusBadRequest},
		{"gateway", fmt.Errorf("%w: create_order: status 503", domain.ErrGateway), http.StatusBadGateway},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, msg := statusFor(tt.err)
			if got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
			if msg == "" {
				t.Error("message must not be empty")
			}
		})
	}
}

func TestStatusFor_ValidationMessageNamesField(t *testing.T) {
	_, msg := statusFor(domain.Invalid("email", "must be a valid email address"))
	if msg != "email: must be a valid email address" {
		t.Errorf("message = %q", msg)
	}
}

func TestStatusFor_InternalErrorsHideDetail(t *testing.T) {
	_, msg := statusFor(errors.New("pq: password authentication failed"))
	if msg != "Internal server error" {
		t.Errorf("internal detail leaked: %q", msg)
	}
}
