// Package perr defines the single error taxonomy shared by the TLV codec,
// the APDU codec, and the PIV data objects: a tagged error with a Kind that
// callers can switch on, mirroring the teacher's errWrongPIN/apduErr
// typed-error idiom but collapsed to one type since every Kind here maps to
// exactly one textual diagnostic.
package perr

import (
	"errors"
	"fmt"
)

// Kind identifies the class of codec failure.
type Kind int

const (
	// UnsupportedTag: a tag argument is outside the representable range, or
	// a requested tag-length argument is outside {1,2}.
	UnsupportedTag Kind = iota
	// UnsupportedLength: the initial length byte is 0x80 (BER indefinite)
	// or >= 0x84, or an encoded length exceeds 0x00FFFFFF.
	UnsupportedLength
	// UnexpectedEncoding: a decoded tag does not match the expected tag, or
	// a fixed-width read received a value of the wrong length.
	UnexpectedEncoding
	// UnexpectedEnd: the buffer was exhausted before a parse completed.
	UnexpectedEnd
	// NoValidEncoding: no APDU encoding form (short or extended) can
	// represent the requested Nc/Ne.
	NoValidEncoding
	// InvalidSchema: a TLV writer operation was requested while the writer
	// was in an invalid state (e.g. unclosed nested scopes at encode time).
	InvalidSchema
	// InvalidDataTag: a PIV data object was asked to adopt a data tag
	// outside its valid alternate-tag range.
	InvalidDataTag
)

func (k Kind) String() string {
	switch k {
	case UnsupportedTag:
		return "unsupported tag"
	case UnsupportedLength:
		return "unsupported length"
	case UnexpectedEncoding:
		return "unexpected encoding"
	case UnexpectedEnd:
		return "unexpected end of buffer"
	case NoValidEncoding:
		return "no valid encoding"
	case InvalidSchema:
		return "invalid schema"
	case InvalidDataTag:
		return "invalid data tag"
	default:
		return "unknown error"
	}
}

// Error is the concrete error type returned by the throwing form of every
// fallible codec operation. The try-form of the same operation swallows
// this and returns (zero value, false) instead.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
}

// New constructs an *Error. op is normally the package-qualified operation
// name ("tlv.ReadValue", "apdu.Serialize", ...).
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Is reports whether err is, or wraps, a *Error of the given Kind. A Kind
// is not itself an error value, so errors.Is cannot test for one; callers
// use this helper, or errors.As to recover the Kind field directly.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
