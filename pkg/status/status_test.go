package status

import (
	"errors"
	"fmt"
	"testing"
)

func TestSeverityWrapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		wantFatal bool
		wantIs    error
	}{
		{"fatal timeout", NewFatal("read", ErrTimeout), true, ErrTimeout},
		{"recoverable arg", NewRecoverable("volume", ErrInvalidArg), false, ErrInvalidArg},
		{"wrapped fatal", fmt.Errorf("setup: %w", NewFatal("create", ErrNotFound)), true, ErrNotFound},
		{"plain error", ErrInvalidState, false, ErrInvalidState},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsFatal(tt.err); got != tt.wantFatal {
				t.Errorf("IsFatal() = %v, want %v", got, tt.wantFatal)
			}
			if !errors.Is(tt.err, tt.wantIs) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.wantIs)
			}
		})
	}
}

func TestNilStaysNil(t *testing.T) {
	t.Parallel()

	if NewFatal("op", nil) != nil {
		t.Error("NewFatal(nil) should be nil")
	}
	if NewRecoverable("op", nil) != nil {
		t.Error("NewRecoverable(nil) should be nil")
	}
}

func TestReason(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{NewFatal("write", ErrTimeout), "operation timeout"},
		{fmt.Errorf("x: %w", ErrInvalidArg), "input param is invalid"},
		{errors.New("boom"), "boom"},
	}

	for _, tt := range tests {
		tt := tt
		if got := Reason(tt.err); got != tt.want {
			t.Errorf("Reason(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestErrorString(t *testing.T) {
	t.Parallel()

	err := NewFatal("i2s read", ErrTimeout)
	if got, want := err.Error(), "i2s read: operation timeout"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
