package registry_test

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landrop/internal/landrop/registry"
	lderrors "landrop/pkg/errors"
	"landrop/pkg/logger"
	"landrop/pkg/platform"
)

func newRegistry(p platform.Platform) *registry.Registry {
	return registry.New(p, logger.NewWithConfig(logger.Config{Output: &bytes.Buffer{}}))
}

func TestRegistry_SetCreatesDirectory(t *testing.T) {
	reg := newRegistry(platform.NewBasePlatform())
	target := filepath.Join(t.TempDir(), "a", "b", "inbox")

	require.NoError(t, reg.Set(target))

	assert.Equal(t, target, reg.Get())
	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestRegistry_SetMakesPathAbsolute(t *testing.T) {
	reg := newRegistry(platform.NewBasePlatform())
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	require.NoError(t, reg.Set("relative"))

	assert.True(t, filepath.IsAbs(reg.Get()))
	assert.Equal(t, "relative", filepath.Base(reg.Get()))
}

func TestRegistry_FailedSetKeepsPrevious(t *testing.T) {
	mock := platform.NewMockPlatform()
	reg := newRegistry(mock)
	first := t.TempDir()
	require.NoError(t, reg.Set(first))

	mock.ShouldFailMkdir = true
	denied := filepath.Join(t.TempDir(), "denied")
	err := reg.Set(denied)

	require.Error(t, err)
	assert.ErrorIs(t, err, lderrors.ErrDirectory)
	assert.Equal(t, first, reg.Get())

	mkdirs, _ := mock.Calls()
	assert.Equal(t, []string{first, denied}, mkdirs)
}

func TestRegistry_RejectsEmptyAndFilePaths(t *testing.T) {
	reg := newRegistry(platform.NewBasePlatform())
	dir := t.TempDir()
	require.NoError(t, reg.Set(dir))

	assert.ErrorIs(t, reg.Set("  "), lderrors.ErrDirectory)

	file := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	assert.ErrorIs(t, reg.Set(file), lderrors.ErrDirectory)

	// a file blocking a parent component fails in MkdirAll
	assert.ErrorIs(t, reg.Set(filepath.Join(file, "child")), lderrors.ErrDirectory)

	assert.Equal(t, dir, reg.Get())
}

func TestRegistry_EnsureRecreatesRemovedDirectory(t *testing.T) {
	reg := newRegistry(platform.NewBasePlatform())
	target := filepath.Join(t.TempDir(), "inbox")
	require.NoError(t, reg.Set(target))
	require.NoError(t, os.Remove(target))

	dir, err := reg.Ensure()
	require.NoError(t, err)
	assert.Equal(t, target, dir)
	assert.DirExists(t, target)
}

func TestRegistry_EnsureWithoutDirectory(t *testing.T) {
	reg := newRegistry(platform.NewBasePlatform())

	_, err := reg.Ensure()
	assert.ErrorIs(t, err, lderrors.ErrDirectory)
}

func TestRegistry_ConcurrentReadersAndWriters(t *testing.T) {
	reg := newRegistry(platform.NewBasePlatform())
	base := t.TempDir()
	dirs := []string{filepath.Join(base, "one"), filepath.Join(base, "two")}
	require.NoError(t, reg.Set(dirs[0]))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, reg.Set(dirs[i%2]))
		}(i)
		go func() {
			defer wg.Done()
			got := reg.Get()
			assert.Contains(t, dirs, got)
		}()
	}
	wg.Wait()
}
