// Package device provides the retry wrapper and failure taxonomy for
// device operations.
//
// Every device command runs through a Runner with a bounded fixed-delay
// retry policy. Failures are classified into kinds (timeout, connection
// refused, device-reported, other) so each attempt can be reported with
// a specific human-readable diagnosis, and so callers can choose
// troubleshooting tips for the terminal failure.
package device
