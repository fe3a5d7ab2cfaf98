package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{
			name: "without wrapped error",
			err: &APIError{
				Code:    "TEST_ERROR",
				Message: "something went wrong",
			},
			want: "TEST_ERROR: something went wrong",
		},
		{
			name: "with wrapped error",
			err: &APIError{
				Code:    "TEST_ERROR",
				Message: "something went wrong",
				Err:     errors.New("underlying cause"),
			},
			want: "TEST_ERROR: something went wrong (underlying cause)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *APIError
		wantCode   string
		wantStatus int
		sentinel   error
	}{
		{"not found", NewNotFoundError("product"), "NOT_FOUND", 404, ErrNotFound},
		{"validation", NewValidationError("quantity", "must be at least 1"), "VALIDATION_ERROR", 400, ErrInvalidRequest},
		{"unauthorized", NewUnauthorizedError("token expired"), "UNAUTHORIZED", 401, ErrUnauthorized},
		{"auth required", NewAuthRequiredError("save items"), "AUTH_REQUIRED", 401, ErrAuthRequired},
		{"upstream", NewUpstreamError("shop API", errors.New("connection refused")), "UPSTREAM_ERROR", 502, ErrUpstreamError},
		{"rate limited", NewRateLimitError("shop API"), "RATE_LIMITED", 429, ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.wantCode)
			}
			if tt.err.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", tt.err.StatusCode, tt.wantStatus)
			}
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("error should wrap %v", tt.sentinel)
			}
		})
	}
}

func TestAuthRequiredMessage(t *testing.T) {
	err := NewAuthRequiredError("save items")
	if err.Message != "sign in to save items" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestAPIError_WrappedChain(t *testing.T) {
	wrapped := fmt.Errorf("toggling wishlist: %w", NewAuthRequiredError("save items"))

	var apiErr *APIError
	if !errors.As(wrapped, &apiErr) {
		t.Fatal("errors.As should find APIError in chain")
	}
	if apiErr.StatusCode != 401 {
		t.Errorf("StatusCode = %d, want 401", apiErr.StatusCode)
	}
	if !errors.Is(wrapped, ErrAuthRequired) {
		t.Error("errors.Is should reach ErrAuthRequired through the chain")
	}
}

func TestNewInternalError(t *testing.T) {
	cause := errors.New("disk full")
	err := NewInternalError(cause)
	if err.StatusCode != 500 {
		t.Errorf("StatusCode = %d, want 500", err.StatusCode)
	}
	if !errors.Is(err, cause) {
		t.Error("internal error should wrap its cause")
	}
}
