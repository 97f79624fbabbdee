// Package logging provides structured logging for tuya-strip.
//
// This package wraps a zap logger with convenience functions for the
// logging patterns used throughout the CLI. Logging is silent by default
// so that command output stays readable; set TUYA_STRIP_LOG_LEVEL=debug
// to see connection events, frame hex dumps, and retry diagnostics:
//
//	TUYA_STRIP_LOG_LEVEL=debug tuya-strip status
//
// All log output goes to stderr so it never interleaves with the
// structured command output on stdout.
package logging
