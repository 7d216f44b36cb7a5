package midifile

import (
	"errors"
	"fmt"
)

// Sentinel errors for the decode and encode failure modes. Callers match
// them with errors.Is.
var (
	// ErrMalformedHeader indicates an invalid chunk signature or header size
	ErrMalformedHeader = errors.New("malformed header")
	// ErrTruncatedStream indicates a declared chunk length exceeding the remaining bytes
	ErrTruncatedStream = errors.New("truncated stream")
	// ErrUnsupportedFormat indicates an unrecognized SMF format or division
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrInvalidEvent indicates an event field outside the legal 0-127 range
	ErrInvalidEvent = errors.New("invalid event")
)

// DecodeError wraps a decode failure with the byte offset where it occurred
type DecodeError struct {
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("midi decode error at byte %d: %v", e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeError wraps an encode failure with the index of the offending event
type EncodeError struct {
	EventIndex int
	Err        error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("midi encode error at event %d: %v", e.EventIndex, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

func decodeErrf(offset int, sentinel error, format string, args ...interface{}) error {
	return &DecodeError{
		Offset: offset,
		Err:    fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...)),
	}
}
