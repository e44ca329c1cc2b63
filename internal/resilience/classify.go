// Package resilience classifies failures and informs the caller's retry
// policy. The pipeline itself never retries; it degrades per item and leaves
// retry decisions to whoever schedules runs.
package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/feedloom/feedloom/internal/feed"
)

// Class is the failure category assigned to an error.
type Class string

// Failure classes. Only Network and Timeout are retry-eligible.
const (
	ClassNetwork    Class = "network"
	ClassTimeout    Class = "timeout"
	ClassParse      Class = "parse"
	ClassValidation Class = "validation"
	ClassUnknown    Class = "unknown"
)

// Classify inspects the error chain, then falls back to message substrings.
func Classify(err error) Class {
	if err == nil {
		return ClassUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ClassTimeout
		}
		return ClassNetwork
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return ClassNetwork
	}

	var valErr *feed.ValidationError
	if errors.As(err, &valErr) {
		return ClassValidation
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
		return ClassTimeout
	case strings.Contains(msg, "connection") || strings.Contains(msg, "refused") ||
		strings.Contains(msg, "no such host") || strings.Contains(msg, "broken pipe"):
		return ClassNetwork
	case strings.Contains(msg, "parse") || strings.Contains(msg, "json") ||
		strings.Contains(msg, "unmarshal") || strings.Contains(msg, "xml"):
		return ClassParse
	case strings.Contains(msg, "validation") || strings.Contains(msg, "invalid") ||
		strings.Contains(msg, "required"):
		return ClassValidation
	default:
		return ClassUnknown
	}
}

// ShouldRetry reports whether a caller may retry the failed operation.
// Parse/validation/unknown failures surface immediately as non-retryable.
func ShouldRetry(err error) bool {
	switch Classify(err) {
	case ClassNetwork, ClassTimeout:
		return true
	default:
		return false
	}
}

// RetryDelay returns the exponential backoff before attempt n: base * 2^n.
// No jitter is applied; callers may add their own.
func RetryDelay(attempt int, base time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if base <= 0 {
		base = 250 * time.Millisecond
	}
	return base << uint(attempt)
}
