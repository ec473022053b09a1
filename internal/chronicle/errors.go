package chronicle

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind classifies a chronicle failure.
type Kind int

const (
	// KindValidation is a malformed path or event, detected before any I/O.
	KindValidation Kind = iota + 1
	// KindIO is a filesystem failure while reading or writing a chronicle.
	KindIO
	// KindLockTimeout means the writer lock was not obtained in time.
	KindLockTimeout
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION"
	case KindIO:
		return "IO"
	case KindLockTimeout:
		return "LOCK_TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// Sentinels for errors.Is matching against an *Error's kind.
var (
	ErrValidation  = errors.New("chronicle: validation failed")
	ErrIO          = errors.New("chronicle: io failure")
	ErrLockTimeout = errors.New("chronicle: lock timeout")
)

// Error is the error type returned by every chronicle operation.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Msg  string
	Err  error

	// Set for KindLockTimeout.
	Timeout time.Duration
	Holder  int
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(strings.ToLower(e.Kind.String()))
	if e.Op != "" {
		b.WriteString(" ")
		b.WriteString(e.Op)
	}
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Kind == KindLockTimeout {
		fmt.Fprintf(&b, ": not acquired within %s", e.Timeout)
		if e.Holder > 0 {
			fmt.Fprintf(&b, " (held by pid %d)", e.Holder)
		}
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrIO:
		return e.Kind == KindIO
	case ErrLockTimeout:
		return e.Kind == KindLockTimeout
	}
	return false
}

func validationError(op, path, format string, args ...any) error {
	return &Error{Kind: KindValidation, Op: op, Path: path, Msg: fmt.Sprintf(format, args...)}
}

func ioError(op, path string, err error) error {
	return &Error{Kind: KindIO, Op: op, Path: path, Err: err}
}

// KindOf returns the kind of a chronicle error, or 0 if err is not one.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return 0
}
