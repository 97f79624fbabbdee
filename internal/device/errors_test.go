package device

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"
	"time"
)

func TestClassifyTimeout(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"net.OpError timeout", &net.OpError{Op: "dial", Err: os.NewSyscallError("connect", syscall.ETIMEDOUT)}},
		{"deadline exceeded", context.DeadlineExceeded},
		{"wrapped deadline", fmt.Errorf("status: %w", context.DeadlineExceeded)},
		{"i/o timeout", os.ErrDeadlineExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if got.Kind != KindTimeout {
				t.Errorf("Classify(%v).Kind = %v, want KindTimeout", tt.err, got.Kind)
			}
			if got.Message != "device connection timed out - device may be unreachable" {
				t.Errorf("unexpected diagnosis: %q", got.Message)
			}
		})
	}
}

func TestClassifyConnectionRefused(t *testing.T) {
	err := &net.OpError{
		Op:  "dial",
		Net: "tcp",
		Err: os.NewSyscallError("connect", syscall.ECONNREFUSED),
	}

	got := Classify(err)
	if got.Kind != KindRefused {
		t.Errorf("Classify().Kind = %v, want KindRefused", got.Kind)
	}
	if got.Message != "connection refused - device may be offline or wrong IP address" {
		t.Errorf("unexpected diagnosis: %q", got.Message)
	}
}

func TestClassifyDeviceErrorPassesThrough(t *testing.T) {
	devErr := NewDeviceError("json obj data unvalid", "901")

	got := Classify(fmt.Errorf("status failed: %w", devErr))
	if got != devErr {
		t.Errorf("Classify() should return the tagged error unchanged, got %v", got)
	}
	if got.Kind != KindDevice {
		t.Errorf("Kind = %v, want KindDevice", got.Kind)
	}
}

func TestClassifyOther(t *testing.T) {
	err := errors.New("unexpected payload")

	got := Classify(err)
	if got.Kind != KindOther {
		t.Errorf("Classify().Kind = %v, want KindOther", got.Kind)
	}
	// The raw message is surfaced verbatim for unclassified failures.
	if got.Message != "unexpected payload" {
		t.Errorf("Message = %q, want the raw error text", got.Message)
	}
}

func TestOpErrorFormatting(t *testing.T) {
	err := NewDeviceError("device busy", "902")
	want := "device error: device busy (code 902)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestRunnerStopsOnSuccess(t *testing.T) {
	calls := 0
	sleeps := 0

	runner := &Runner{
		Policy: Policy{Attempts: 3, Delay: time.Second},
		Sleep: func(ctx context.Context, d time.Duration) error {
			sleeps++
			return nil
		},
	}

	err := runner.Run(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("op called %d times, want 2", calls)
	}
	if sleeps != 1 {
		t.Errorf("slept %d times, want 1", sleeps)
	}
}

func TestRunnerExhaustion(t *testing.T) {
	for _, attempts := range []int{1, 3, 5} {
		t.Run(fmt.Sprintf("attempts=%d", attempts), func(t *testing.T) {
			calls := 0
			sleeps := 0
			var reported []int

			runner := &Runner{
				Policy: Policy{Attempts: attempts, Delay: time.Second},
				OnAttempt: func(attempt int, err *OpError) {
					reported = append(reported, attempt)
				},
				Sleep: func(ctx context.Context, d time.Duration) error {
					if d != time.Second {
						t.Errorf("sleep delay = %v, want fixed 1s", d)
					}
					sleeps++
					return nil
				},
			}

			failure := &net.OpError{Op: "dial", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}
			err := runner.Run(context.Background(), func(ctx context.Context) error {
				calls++
				return failure
			})

			if err == nil {
				t.Fatal("Run() should fail after exhausting attempts")
			}
			if calls != attempts {
				t.Errorf("op called %d times, want %d", calls, attempts)
			}
			// N consecutive failures sleep exactly N-1 times.
			if sleeps != attempts-1 {
				t.Errorf("slept %d times, want %d", sleeps, attempts-1)
			}
			if len(reported) != attempts {
				t.Errorf("OnAttempt called %d times, want %d", len(reported), attempts)
			}

			var opErr *OpError
			if !errors.As(err, &opErr) || opErr.Kind != KindRefused {
				t.Errorf("terminal error should wrap the last classified failure, got %v", err)
			}
		})
	}
}

func TestRunnerCancelledDuringSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := &Runner{
		Policy: Policy{Attempts: 3, Delay: 10 * time.Millisecond},
	}

	err := runner.Run(ctx, func(ctx context.Context) error {
		return errors.New("transient")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}
