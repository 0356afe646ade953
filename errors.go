package ipa

import (
	"errors"
	"fmt"
)

// Kind classifies the failure of an archive or extract operation.
type Kind int

const (
	// Unknown is an unclassified I/O failure.
	Unknown Kind = iota
	// NoSuchFile means the archive (or bundle, or output directory) does not exist.
	NoSuchFile
	// CorruptFile means the archive's directory or an entry's metadata or content is unreadable or inconsistent.
	CorruptFile
	// UnknownWrite means the archive could not be created or an entry could not be written.
	UnknownWrite
	// MissingAppBundle means extraction completed but no Payload/*.app bundle was found.
	MissingAppBundle
)

func (k Kind) String() string {
	switch k {
	case NoSuchFile:
		return "no such file"
	case CorruptFile:
		return "corrupt file"
	case UnknownWrite:
		return "unknown write"
	case MissingAppBundle:
		return "missing app bundle"
	default:
		return "unknown"
	}
}

// Sentinel errors that can be tested with errors.Is against any *Error of the same Kind.
var (
	ErrUnknown          = &Error{Kind: Unknown}
	ErrNoSuchFile       = &Error{Kind: NoSuchFile}
	ErrCorruptFile      = &Error{Kind: CorruptFile}
	ErrUnknownWrite     = &Error{Kind: UnknownWrite}
	ErrMissingAppBundle = &Error{Kind: MissingAppBundle}
)

// Error is returned by all operations of Engine.
type Error struct {
	// Kind is the classification of the error.
	Kind Kind
	// Op is the operation that failed, "zip" or "unzip" or "list".
	Op string
	// Path is the archive or bundle path being operated on.
	Path string
	// Err is the underlying cause. Can be nil.
	Err error
}

func (e *Error) Error() string {
	switch {
	case e.Op == "" && e.Err == nil:
		return e.Kind.String()
	case e.Err == nil:
		return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Kind)
	default:
		return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Path, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is returns true if target is an *Error with the same Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}

	return t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or Unknown if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return Unknown
}
