package faults

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure for propagation decisions.
type Kind string

const (
	// KindConfig marks missing or invalid configuration and reference data.
	KindConfig Kind = "config"
	// KindInput marks unreadable, empty, or malformed input files.
	KindInput Kind = "input"
	// KindSchema marks inputs missing a required column.
	KindSchema Kind = "schema"
	// KindIO marks filesystem failures.
	KindIO Kind = "io"
	// KindLock marks files held open by another process.
	KindLock Kind = "lock"
	// KindVerify marks copies whose verification failed.
	KindVerify Kind = "verify"
	// KindNotFound marks files that vanished.
	KindNotFound Kind = "not_found"
)

// Error is a classified failure with operation context.
type Error struct {
	Kind    Kind
	Op      string
	Path    string
	Message string
	Err     error
}

// New builds an Error without an underlying cause.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap builds an Error around cause. A nil cause yields an Error without one.
func Wrap(kind Kind, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: cause}
}

// WithPath returns a copy of e annotated with the file it concerns.
func (e *Error) WithPath(path string) *Error {
	clone := *e
	clone.Path = path
	return &clone
}

func (e *Error) Error() string {
	parts := make([]string, 0, 4)
	if op := strings.TrimSpace(e.Op); op != "" {
		parts = append(parts, op)
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if len(parts) == 0 {
		parts = append(parts, string(e.Kind)+" failure")
	}
	text := strings.Join(parts, ": ")
	if e.Path != "" {
		text = fmt.Sprintf("%s (%s)", text, e.Path)
	}
	if e.Err != nil {
		text = text + ": " + e.Err.Error()
	}
	return text
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorKind reports the classification as a plain string.
func (e *Error) ErrorKind() string { return string(e.Kind) }

// KindOf returns the Kind of the first *Error in err's chain, or "" when none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsFatal reports whether err should abort the whole run.
func IsFatal(err error) bool {
	return Is(err, KindConfig)
}
