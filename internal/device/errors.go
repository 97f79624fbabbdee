package device

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

// Kind is the category of a failed device operation. The retry runner
// matches on it to pick the diagnosis printed for each attempt.
type Kind int

const (
	// KindTimeout indicates the network call timed out
	KindTimeout Kind = iota
	// KindRefused indicates the device refused the TCP connection
	KindRefused
	// KindDevice indicates a device-reported error (embedded error field
	// in an otherwise successful response)
	KindDevice
	// KindOther indicates any other failure
	KindOther
)

// String returns a human-readable name for the error kind
func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "Timeout"
	case KindRefused:
		return "Connection Refused"
	case KindDevice:
		return "Device Error"
	case KindOther:
		return "Error"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// OpError is the tagged result of a failed device operation. Operations
// return it instead of signalling through panics or sentinel strings,
// and the retry runner pattern-matches on the Kind tag.
type OpError struct {
	Kind    Kind   // Category of error
	Message string // Human-readable error message
	Code    string // Device-reported error code, if any
	Err     error  // Underlying error, if any
}

// Error implements the error interface
func (e *OpError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (code %s)", e.Message, e.Code)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

// Unwrap returns the underlying error for error chain inspection
func (e *OpError) Unwrap() error {
	return e.Err
}

// NewDeviceError creates an OpError for a device-reported failure,
// carrying the device's message and error code verbatim.
func NewDeviceError(message, code string) *OpError {
	return &OpError{
		Kind:    KindDevice,
		Message: fmt.Sprintf("device error: %s", message),
		Code:    code,
	}
}

// Classify analyzes a failure and tags it with a Kind. Transport errors
// are inspected through the error chain; anything already tagged passes
// through unchanged.
func Classify(err error) *OpError {
	if err == nil {
		return nil
	}

	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr
	}

	// Timeouts: deadline exceeded, net.Error timeouts, ETIMEDOUT.
	var netErr net.Error
	if os.IsTimeout(err) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return &OpError{
			Kind:    KindTimeout,
			Message: "device connection timed out - device may be unreachable",
			Err:     err,
		}
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return &OpError{
			Kind:    KindRefused,
			Message: "connection refused - device may be offline or wrong IP address",
			Err:     err,
		}
	}

	return &OpError{
		Kind:    KindOther,
		Message: err.Error(),
		Err:     err,
	}
}

// Troubleshooting returns remediation tips for a classified failure,
// shown in the terminal failure box after retries are exhausted.
func Troubleshooting(err error) []string {
	switch Classify(err).Kind {
	case KindTimeout:
		return []string{
			"Check that the device is powered on",
			"Verify TUYA_DEVICE_IP points at the strip's current address",
			"Try increasing --timeout for a slow network",
		}
	case KindRefused:
		return []string{
			"Verify the device IP address is correct",
			"Check that no other client holds the device's local connection",
			"Power cycle the strip and try again",
		}
	case KindDevice:
		return []string{
			"Verify TUYA_LOCAL_KEY matches the device (re-pairing changes it)",
			"Check TUYA_VERSION matches the device's protocol version",
		}
	default:
		return []string{
			"Run with TUYA_STRIP_LOG_LEVEL=debug for protocol details",
			"Re-run 'tuya-strip setup' if the device was re-paired",
		}
	}
}
