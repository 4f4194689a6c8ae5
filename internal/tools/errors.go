package tools

import (
	"errors"
	"fmt"
)

// ErrUnknownFormat is returned when an archive's extension is not supported.
var ErrUnknownFormat = errors.New("unknown archive format")

// FetchError reports a failed download.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ChecksumError reports a download whose SHA-256 did not match its pin.
type ChecksumError struct {
	URL      string
	Expected string
	Actual   string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s: expected %s, got %s", e.URL, e.Expected, e.Actual)
}

// ExtractError reports a failed extraction.
type ExtractError struct {
	Archive string
	Err     error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Archive, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// MissingToolError is returned when an operation needs a tool that cannot be
// located. Hint is a user-facing instruction.
type MissingToolError struct {
	Tool string
	Hint string
}

func (e *MissingToolError) Error() string {
	if e.Hint == "" {
		return fmt.Sprintf("%s not found", e.Tool)
	}
	return fmt.Sprintf("%s not found. %s", e.Tool, e.Hint)
}
