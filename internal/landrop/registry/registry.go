// Package registry holds the runtime-mutable destination directory for
// uploads.
package registry

import (
	"strings"
	"sync"

	lderrors "landrop/pkg/errors"
	"landrop/pkg/logger"
	"landrop/pkg/platform"
)

const dirPerm = 0755

// Registry holds the current destination directory. Readers never block
// each other; Set holds the write lock while the new directory is created.
type Registry struct {
	mu       sync.RWMutex
	dir      string
	platform platform.Platform
	logger   *logger.Logger
}

// New creates a registry with no directory set. Call Set before serving.
func New(p platform.Platform, log *logger.Logger) *Registry {
	return &Registry{
		platform: p,
		logger:   log.WithField("component", "dir-registry"),
	}
}

// Get returns the current destination directory.
func (r *Registry) Get() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dir
}

// Set makes path (created with parents if missing) the destination
// directory. On failure the previous directory stays in place and the
// returned error matches errors.ErrDirectory.
func (r *Registry) Set(path string) error {
	if strings.TrimSpace(path) == "" {
		return lderrors.NewDirectoryError(path, nil)
	}

	abs, err := r.platform.Abs(path)
	if err != nil {
		return lderrors.NewDirectoryError(path, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.platform.MkdirAll(abs, dirPerm); err != nil {
		r.logger.Warn("rejected destination directory", "dir", abs, "error", err)
		return lderrors.NewDirectoryError(abs, err)
	}

	info, err := r.platform.Stat(abs)
	if err != nil {
		return lderrors.NewDirectoryError(abs, err)
	}
	if !info.IsDir() {
		return lderrors.NewDirectoryError(abs, nil)
	}

	old := r.dir
	r.dir = abs
	if old != abs {
		r.logger.Info("destination directory changed", "from", old, "to", abs)
	}
	return nil
}

// Ensure recreates the current directory if it was removed from under us.
func (r *Registry) Ensure() (string, error) {
	dir := r.Get()
	if dir == "" {
		return "", lderrors.NewDirectoryError(dir, nil)
	}
	if err := r.platform.MkdirAll(dir, dirPerm); err != nil {
		return "", lderrors.NewDirectoryError(dir, err)
	}
	return dir, nil
}
