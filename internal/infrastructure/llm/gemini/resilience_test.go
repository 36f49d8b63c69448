package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/api/googleapi"

	"github.com/aituberdev/answerd/internal/core/domain"
)

func TestClassifyGeminiError(t *testing.T) {
	cases := []struct {
		name          string
		err           error
		retryable     bool
		recordFailure bool
	}{
		{"canceled context", context.Canceled, false, false},
		{"rate limited", &googleapi.Error{Code: http.StatusTooManyRequests}, true, true},
		{"server error", &googleapi.Error{Code: http.StatusServiceUnavailable}, true, true},
		{"bad request", &googleapi.Error{Code: http.StatusBadRequest}, false, false},
		{"auth failure", &googleapi.Error{Code: http.StatusForbidden}, false, false},
		{"wrapped api error", fmt.Errorf("gemini generate: %w", &googleapi.Error{Code: http.StatusBadGateway}), true, true},
		{"unknown error", errors.New("boom"), false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			class := classifyGeminiError(tc.err)
			if class.Retryable != tc.retryable {
				t.Fatalf("Retryable = %v, want %v", class.Retryable, tc.retryable)
			}
			if class.RecordFailure != tc.recordFailure {
				t.Fatalf("RecordFailure = %v, want %v", class.RecordFailure, tc.recordFailure)
			}
		})
	}
}

func TestWrapTemporaryIfNeeded(t *testing.T) {
	retryable := &googleapi.Error{Code: http.StatusServiceUnavailable}
	if err := wrapTemporaryIfNeeded("generate", retryable); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary kind for a retryable error, got %v", err)
	}

	permanent := &googleapi.Error{Code: http.StatusBadRequest}
	if err := wrapTemporaryIfNeeded("generate", permanent); !domain.IsKind(err, domain.ErrExternalCall) {
		t.Fatalf("expected external-call kind for a permanent error, got %v", err)
	}

	if err := wrapTemporaryIfNeeded("generate", nil); err != nil {
		t.Fatalf("expected nil passthrough, got %v", err)
	}
}
