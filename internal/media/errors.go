package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Class buckets execution failures for the retry policy.
type Class int

const (
	// ClassTransient failures (timeouts, throttling, flaky upstream)
	// are retried with backoff.
	ClassTransient Class = iota
	// ClassPermanent failures (unsupported or gone content) go
	// terminal immediately.
	ClassPermanent
	// ClassConstraint failures mean resolved metadata exceeded a
	// configured ceiling; terminal, never retried.
	ClassConstraint
)

func (c Class) String() string {
	switch c {
	case ClassPermanent:
		return "permanent"
	case ClassConstraint:
		return "constraint"
	default:
		return "transient"
	}
}

// ExecError is an execution failure tagged with its retry class.
type ExecError struct {
	Class Class
	Msg   string
	Err   error
}

func (e *ExecError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ExecError) Unwrap() error { return e.Err }

// Transient wraps err as a retryable failure.
func Transient(msg string, err error) *ExecError {
	return &ExecError{Class: ClassTransient, Msg: msg, Err: err}
}

// Permanent wraps err as a non-retryable failure.
func Permanent(msg string, err error) *ExecError {
	return &ExecError{Class: ClassPermanent, Msg: msg, Err: err}
}

// Constraint builds a ceiling-violation failure.
func Constraint(msg string) *ExecError {
	return &ExecError{Class: ClassConstraint, Msg: msg}
}

// ClassOf returns the retry class for an execution error. Timeouts and
// anything unclassified count as transient so the retry policy gets a
// chance; only explicitly permanent failures skip it.
func ClassOf(err error) Class {
	var execErr *ExecError
	if errors.As(err, &execErr) {
		return execErr.Class
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}
	return ClassTransient
}

// permanentMarkers are yt-dlp error fragments that no amount of
// retrying will fix.
var permanentMarkers = []string{
	"Unsupported URL",
	"is not a valid URL",
	"Video unavailable",
	"Private video",
	"This video is not available",
	"HTTP Error 404",
	"HTTP Error 410",
	"account associated with this video has been terminated",
}

// classifyToolFailure inspects tool output to decide whether the
// failure is worth retrying. 403/429/5xx and timeouts are treated as
// transient per the upstream behavior of throttled responses.
func classifyToolFailure(err error, output string) *ExecError {
	if errors.Is(err, context.DeadlineExceeded) {
		return Transient("tool invocation timed out", err)
	}
	for _, marker := range permanentMarkers {
		if strings.Contains(output, marker) {
			return Permanent(firstLine(output), err)
		}
	}
	return Transient(firstLine(output), err)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "tool failed without output"
	}
	// Prefer the ERROR: line when present; yt-dlp interleaves progress
	// and diagnostics on the same stream.
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(line, "ERROR:") {
			return strings.TrimSpace(line)
		}
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
