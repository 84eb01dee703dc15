// Package rerrors defines the error-kind taxonomy the engine uses to decide
// recovery policy: which faults are fatal at startup, which are logged and
// skipped mid-stream, and which trigger a reconnect.
package rerrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error by the recovery policy it implies.
type Kind int

const (
	// Transport covers TCP refused/reset/timeout. Policy: surface as
	// CONNECTION_FAILED, invoke the reconnect policy.
	Transport Kind = iota
	// Decode covers cipher/compression failures while turning a frame
	// payload back into plaintext. Policy: log with a payload summary,
	// skip the one frame, keep reading.
	Decode
	// Parse covers truncated fields, unknown packet ids, and malformed
	// sub-parser input. Policy: log once, dispatch the raw packet anyway.
	Parse
	// Protocol covers frame-length violations and raw-data under/overrun.
	// Policy: log, reset raw-data mode, keep reading.
	Protocol
	// Application covers a handler panicking or returning an error.
	// Policy: catch, log, continue dispatch to the next handler.
	Application
	// Fatal covers conditions with no auto-recovery: unsupported
	// generation at construction, cache directory not writable at
	// startup.
	Fatal
)

func (k Kind) String() string {
	switch k {
	case Transport:
		return "transport"
	case Decode:
		return "decode"
	case Parse:
		return "parse"
	case Protocol:
		return "protocol"
	case Application:
		return "application"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error is a kinded, wrapped error. Use errors.As to recover the Kind from
// an arbitrary error chain.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap annotates err with a kind and an operation name.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Sentinel errors referenced by name across packages.
var (
	ErrUnsupportedGeneration  = errors.New("protocol generation not implemented")
	ErrCacheDirNotWritable    = errors.New("cache directory not writable")
	ErrConnectTimeout         = errors.New("connect timed out")
	ErrNotConnected           = errors.New("not connected")
	ErrRawDataOverrun         = errors.New("raw-data mode byte count overrun")
	ErrInvalidCompressionType = errors.New("invalid gen-5 compression type")
)
