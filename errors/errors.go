// Package errors defines all exported error sentinels for the fsa library.
//
// This is the single source of truth for error values. Both the top-level
// fsa package and internal packages import from here, ensuring errors.Is
// checks work across package boundaries.
//
// Format errors are reported as one of the specific sentinels below wrapped
// together with ErrFormat, so callers can test either the precise cause or
// the whole family:
//
//	if errors.Is(err, fsaerrors.ErrFormat) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Build errors
var (
	ErrBuilderClosed = errors.New("fsa: builder is finished")
	ErrEmptySequence = errors.New("fsa: empty sequences cannot be added")
	ErrOutOfOrder    = errors.New("fsa: input sequences are not sorted")
)

// Serialization errors
var (
	ErrOffsetOverflow = errors.New("fsa: node offset exceeds the format's address space")
	ErrCountOverflow  = errors.New("fsa: right-language count exceeds the format's count field")
	ErrUnknownFormat  = errors.New("fsa: unknown automaton format")
)

// Open errors
var (
	ErrFormat          = errors.New("fsa: malformed automaton")
	ErrInvalidMagic    = errors.New("fsa: invalid magic number")
	ErrInvalidVersion  = errors.New("fsa: unsupported version")
	ErrTruncatedHeader = errors.New("fsa: header is truncated")
	ErrInvalidHeader   = errors.New("fsa: invalid header field")
	ErrCorrupted       = errors.New("fsa: automaton structure is corrupted")
)

// Query errors
var (
	ErrAutomatonClosed    = errors.New("fsa: automaton is closed")
	ErrUnsupportedFeature = errors.New("fsa: automaton was serialized without the required feature")
	ErrOutOfBounds        = errors.New("fsa: read past the end of the automaton")
)

// Format wraps a specific open-time failure so that it matches both the
// given sentinel and ErrFormat.
func Format(sentinel error, format string, args ...any) error {
	if format == "" {
		return fmt.Errorf("%w: %w", ErrFormat, sentinel)
	}
	return fmt.Errorf("%w: %w: %s", ErrFormat, sentinel, fmt.Sprintf(format, args...))
}

// OutOfBounds describes a read at offset in a buffer of size bytes.
func OutOfBounds(offset, size int) error {
	return fmt.Errorf("%w: offset %d, size %d", ErrOutOfBounds, offset, size)
}
