package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error wins", New(ErrInternal, http.StatusTeapot, "brew"), http.StatusTeapot},
		{"wrapped tokenization", fmt.Errorf("building query: %w", ErrTokenization), http.StatusBadRequest},
		{"invalid input", ErrInvalidInput, http.StatusBadRequest},
		{"index read", fmt.Errorf("search: %w", ErrIndexRead), http.StatusServiceUnavailable},
		{"not found", ErrDocumentNotFound, http.StatusNotFound},
		{"deadline", fmt.Errorf("first pass: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := HTTPStatusCode(tc.err); got != tc.want {
				t.Errorf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := Newf(ErrInvalidInput, http.StatusBadRequest, "bad filter %q", "oops")
	if !Is(err, ErrInvalidInput) {
		t.Errorf("expected AppError to unwrap to ErrInvalidInput")
	}
	if err.Error() != `invalid input: bad filter "oops"` {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("segment 3: %w", context.DeadlineExceeded)
	err := Wrap(ErrIndexRead, http.StatusServiceUnavailable, cause)
	if !Is(err, ErrIndexRead) || !Is(err, context.DeadlineExceeded) {
		t.Errorf("expected both sentinel and cause in the chain: %v", err)
	}
	if err.Error() != "index read failed: segment 3: context deadline exceeded" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if HTTPStatusCode(err) != http.StatusServiceUnavailable {
		t.Errorf("expected the explicit status to win, got %d", HTTPStatusCode(err))
	}
}
