package platform

import (
	"sync"
)

var (
	currentPlatform Platform
	platformOnce    sync.Once
)

// NewPlatform returns the process-wide OS platform.
func NewPlatform() Platform {
	platformOnce.Do(func() {
		currentPlatform = NewBasePlatform()
	})
	return currentPlatform
}
