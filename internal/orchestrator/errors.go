package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
)

// Error kinds reported in Failure outcomes.
const (
	KindValidation      = "ValidationError"
	KindInvalidSubject  = "InvalidSubject"
	KindPromptNotFound  = "PromptNotFound"
	KindUnknownProvider = "UnknownProvider"
	KindUpstreamAPI     = "UpstreamAPIError"
	KindPanic           = "Panic"
	KindCanceled        = "Canceled"
	KindError           = "Error"
)

// kinder is implemented by errors that name their own kind.
type kinder interface {
	Kind() string
}

// ErrorKind classifies err for a Failure outcome.
func ErrorKind(err error) string {
	var k kinder
	switch {
	case err == nil:
		return ""
	case errors.As(err, &k):
		return k.Kind()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindError
	}
}

// InvalidSubjectError is returned for a nil or zero Subject.
type InvalidSubjectError struct{}

func (InvalidSubjectError) Error() string {
	return "invalid subject: subjects must be built with profile.NewSubject"
}

// Kind returns KindInvalidSubject.
func (InvalidSubjectError) Kind() string { return KindInvalidSubject }

// Retryable reports false.
func (InvalidSubjectError) Retryable() bool { return false }

// PanicError carries a recovered panic and the stack it was raised on.
type PanicError struct {
	Section string
	Value   any
	Stack   []byte
}

func newPanicError(section string, v any) *PanicError {
	return &PanicError{Section: section, Value: v, Stack: debug.Stack()}
}

func (e *PanicError) Error() string {
	if e.Section != "" {
		return fmt.Sprintf("panic in section %s: %v", e.Section, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// Kind returns KindPanic.
func (e *PanicError) Kind() string { return KindPanic }

// Retryable reports false.
func (e *PanicError) Retryable() bool { return false }

// backtraceLines bounds the stack excerpt kept in a Failure.
const backtraceLines = 12

// backtraceHint returns a short excerpt of the stack behind err, if any.
func backtraceHint(err error) string {
	var pe *PanicError
	if !errors.As(err, &pe) || len(pe.Stack) == 0 {
		return ""
	}
	lines := strings.Split(strings.TrimSpace(string(pe.Stack)), "\n")
	if len(lines) > backtraceLines {
		lines = lines[:backtraceLines]
	}
	return strings.Join(lines, "\n")
}
