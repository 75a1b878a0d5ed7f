package backend

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesKind(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"server matches server", newServerError("analyze", 500, "boom"), ErrServer, true},
		{"server is not transport", newServerError("analyze", 500, "boom"), ErrTransport, false},
		{"wrapped precondition", fmt.Errorf("ctx: %w", NewPreconditionError("view", "no")), ErrPrecondition, true},
		{"content type", newContentTypeError("view", "text/html", "application/json"), ErrContentType, true},
		{"transport unwraps cause", newTransportError("analyze", context.Canceled), context.Canceled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.want {
				t.Errorf("errors.Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDiagnostic(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain error", errors.New("disk full"), "disk full"},
		{"server message", newServerError("analyze", 400, "Invalid file type."), "Invalid file type."},
		{"cancelled", newTransportError("analyze", context.Canceled), "request cancelled: context canceled"},
		{"timeout", newTransportError("analyze", context.DeadlineExceeded), "request timed out: context deadline exceeded"},
		{"missing media type", newContentTypeError("view", "text/html", ""), "expected media type text/html, got none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DiagnosticOf(tt.err); got != tt.want {
				t.Errorf("DiagnosticOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRetryableStatuses(t *testing.T) {
	for status, want := range map[int]bool{429: true, 503: true, 500: false, 400: false, 502: false} {
		if got := newServerError("x", status, "").Retryable; got != want {
			t.Errorf("status %d retryable = %v, want %v", status, got, want)
		}
	}
}
