package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code       Code
		wantStatus int
		retryable  bool
	}{
		{CodeValidation, http.StatusBadRequest, false},
		{CodeNotFound, http.StatusNotFound, false},
		{CodeConflict, http.StatusConflict, false},
		{CodeStateConflict, http.StatusUnprocessableEntity, false},
		{CodePrecondition, http.StatusPreconditionFailed, false},
		{CodeIntegrity, http.StatusInternalServerError, false},
		{CodeDependency, http.StatusServiceUnavailable, true},
	}

	for _, tc := range tests {
		meta := MetadataFor(tc.code)
		if meta.HTTPStatus != tc.wantStatus {
			t.Errorf("%s: status = %d, want %d", tc.code, meta.HTTPStatus, tc.wantStatus)
		}
		if meta.Retryable != tc.retryable {
			t.Errorf("%s: retryable = %v, want %v", tc.code, meta.Retryable, tc.retryable)
		}
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("nope"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unknown code should map to internal, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("socket closed")
	err := Wrap(CodeDependency, cause, "provider call failed")

	if !stdErrors.Is(err, cause) {
		t.Fatal("wrapped error should match its cause")
	}
	if err.Code() != CodeDependency {
		t.Fatalf("code = %s, want %s", err.Code(), CodeDependency)
	}
}

func TestAsFindsTypedErrorInChain(t *testing.T) {
	inner := New(CodeStateConflict, "dispute open")
	wrapped := fmt.Errorf("release failed: %w", inner)

	typed := As(wrapped)
	if typed == nil {
		t.Fatal("expected typed error in chain")
	}
	if typed.Code() != CodeStateConflict {
		t.Fatalf("code = %s, want %s", typed.Code(), CodeStateConflict)
	}
}

func TestReasonRoundTrip(t *testing.T) {
	err := New(CodeStateConflict, "dispute open").WithReason("dispute_open")
	if got := Reason(err); got != "dispute_open" {
		t.Fatalf("Reason = %q, want dispute_open", got)
	}
	if got := Reason(stdErrors.New("plain")); got != "" {
		t.Fatalf("Reason on plain error = %q, want empty", got)
	}
}

func TestReasonSurvivesDetails(t *testing.T) {
	err := New(CodePrecondition, "identity verification is not approved").
		WithReason("identity_not_verified").
		WithDetails(map[string]any{"kyc_status": "pending"})

	if got := Reason(err); got != "identity_not_verified" {
		t.Fatalf("Reason = %q, want identity_not_verified", got)
	}
	details, ok := err.Details().(map[string]any)
	if !ok || details["kyc_status"] != "pending" {
		t.Fatalf("details = %v, want kyc_status pending", err.Details())
	}
}

func TestRetryable(t *testing.T) {
	if Retryable(New(CodeIntegrity, "negative transfer amount")) {
		t.Fatal("integrity errors must halt retries")
	}
	if !Retryable(New(CodeDependency, "provider unavailable")) {
		t.Fatal("dependency errors are retryable")
	}
	if !Retryable(stdErrors.New("unknown")) {
		t.Fatal("untyped errors default to retryable")
	}
}
