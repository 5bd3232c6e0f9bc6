// Package fftrackerr defines the error kinds surfaced at the CORE's
// operation boundaries (ingest, identify, open-store).
package fftrackerr

import (
	"errors"
	"fmt"

	"github.com/mdobak/go-xerrors"
)

// Kind identifies one of the error categories the CORE can return.
type Kind int

const (
	// Internal covers unexpected failures always recoverable by restart.
	Internal Kind = iota
	// InvalidAudio marks unreadable or zero-channel input.
	InvalidAudio
	// EmptyAudio marks input too short to yield any frame.
	EmptyAudio
	// SchemaMismatch marks a store header incompatible with the runtime configuration.
	SchemaMismatch
	// StoreCorruption marks a checksum or structural failure in the index or catalog.
	StoreCorruption
	// Cancelled marks an operation aborted by its caller.
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case InvalidAudio:
		return "InvalidAudio"
	case EmptyAudio:
		return "EmptyAudio"
	case SchemaMismatch:
		return "SchemaMismatch"
	case StoreCorruption:
		return "StoreCorruption"
	case Cancelled:
		return "Cancelled"
	default:
		return "Internal"
	}
}

// Error is the CORE's error type. It always carries a Kind so callers can
// branch on category without string matching, and it wraps any non-nil
// underlying cause with a stack trace via go-xerrors, whatever its Kind.
type Error struct {
	Kind Kind
	Op   string
	err  error
}

func (e *Error) Error() string {
	if e.err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.err)
}

func (e *Error) Unwrap() error { return e.err }

// New builds a CORE error of the given kind for operation op, wrapping
// cause with a stack trace when cause is non-nil.
func New(op string, kind Kind, cause error) *Error {
	if cause == nil {
		return &Error{Kind: kind, Op: op}
	}
	return &Error{Kind: kind, Op: op, err: xerrors.New(cause)}
}

// Wrap classifies an arbitrary error as Internal unless it is already an
// *Error, in which case it is returned unchanged.
func Wrap(op string, err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return New(op, Internal, err)
}

// Is reports whether err is a CORE error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
