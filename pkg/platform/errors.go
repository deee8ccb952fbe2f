package platform

import "fmt"

// PlatformError represents a failed OS operation
type PlatformError struct {
	Platform  string
	Operation string
	Err       error
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("platform %s: operation %s failed: %v", e.Platform, e.Operation, e.Err)
}

func (e *PlatformError) Unwrap() error {
	return e.Err
}

// NewPlatformError creates a new platform error
func NewPlatformError(platform, operation string, err error) error {
	return &PlatformError{
		Platform:  platform,
		Operation: operation,
		Err:       err,
	}
}
