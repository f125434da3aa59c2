package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestInitErrorMessageAndUnwrap(t *testing.T) {
	err := NewInitError(StageSwapchain, ErrOutOfMemory)

	if got, want := err.Error(), "init failed: swapchain: out of memory"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrOutOfMemory) {
		t.Error("errors.Is should see through InitError")
	}

	wrapped := fmt.Errorf("boot: %w", err)
	var ie *InitError
	if !errors.As(wrapped, &ie) || ie.Stage != StageSwapchain {
		t.Errorf("errors.As did not recover the stage, got %+v", ie)
	}
}

func TestInitErrorWithoutCause(t *testing.T) {
	err := &InitError{Stage: StageSurface}
	if got, want := err.Error(), "init failed: surface"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"out of date", fmt.Errorf("acquire: %w", ErrSwapchainOutOfDate), false},
		{"suboptimal", ErrSwapchainSuboptimal, false},
		{"booting", ErrSwapchainBooting, false},
		{"device lost", fmt.Errorf("frame 3: %w", ErrDeviceLost), true},
		{"oom", ErrOutOfMemory, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFatal(tt.err); got != tt.want {
				t.Errorf("IsFatal(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
