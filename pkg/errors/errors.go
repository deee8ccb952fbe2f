package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRequest indicates a body that is not valid multipart/form-data.
	ErrMalformedRequest = errors.New("malformed multipart request")
	// ErrPayloadTooLarge indicates a file field above the configured size cap.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrDirectory indicates the destination directory could not be created.
	ErrDirectory = errors.New("destination directory unavailable")
	// ErrIO indicates a per-file write failure.
	ErrIO         = errors.New("file i/o failed")
	ErrUnroutable = errors.New("not found")
)

// DirectoryError carries the rejected path alongside the cause.
type DirectoryError struct {
	Path string
	Err  error
}

func (e *DirectoryError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %q", ErrDirectory, e.Path)
	}
	return fmt.Sprintf("%s: %q: %v", ErrDirectory, e.Path, e.Err)
}

func (e *DirectoryError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDirectory}
	}
	return []error{ErrDirectory, e.Err}
}

// NewDirectoryError creates a new directory error
func NewDirectoryError(path string, err error) error {
	return &DirectoryError{Path: path, Err: err}
}
