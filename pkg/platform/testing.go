package platform

import (
	"net"
	"os"
	"path/filepath"
	"sync"
	"syscall"
)

// MockPlatform delegates to the real filesystem and lets tests inject
// failures, a fake working directory and fake interface addresses.
type MockPlatform struct {
	*BasePlatform

	mu sync.Mutex

	// Mock behavior flags
	ShouldFailMkdir bool
	// FailOpenFor makes OpenFile fail for paths whose base name is listed.
	FailOpenFor map[string]bool
	// FailWriteFor makes writes fail for files whose base name is listed.
	FailWriteFor map[string]bool
	// FailSyncFor makes Sync fail for files whose base name is listed.
	FailSyncFor map[string]bool
	// Wd replaces the process working directory when non-empty.
	Wd    string
	Addrs []net.Addr

	// Call tracking
	MkdirCalls []string
	OpenCalls  []string
}

// NewMockPlatform creates a new mock platform for testing
func NewMockPlatform() *MockPlatform {
	return &MockPlatform{
		BasePlatform: NewBasePlatform(),
		FailOpenFor:  make(map[string]bool),
		FailWriteFor: make(map[string]bool),
		FailSyncFor:  make(map[string]bool),
	}
}

func (mp *MockPlatform) MkdirAll(dir string, perm os.FileMode) error {
	mp.mu.Lock()
	mp.MkdirCalls = append(mp.MkdirCalls, dir)
	fail := mp.ShouldFailMkdir
	mp.mu.Unlock()

	if fail {
		return NewPlatformError("mock", "mkdir", os.ErrPermission)
	}
	return mp.BasePlatform.MkdirAll(dir, perm)
}

func (mp *MockPlatform) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	base := filepath.Base(name)

	mp.mu.Lock()
	mp.OpenCalls = append(mp.OpenCalls, name)
	failOpen := mp.FailOpenFor[base]
	failWrite := mp.FailWriteFor[base]
	failSync := mp.FailSyncFor[base]
	mp.mu.Unlock()

	if failOpen {
		return nil, NewPlatformError("mock", "open", os.ErrPermission)
	}

	f, err := mp.BasePlatform.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	if failWrite || failSync {
		return &faultyFile{File: f, failWrite: failWrite, failSync: failSync}, nil
	}
	return f, nil
}

func (mp *MockPlatform) Getwd() (string, error) {
	mp.mu.Lock()
	wd := mp.Wd
	mp.mu.Unlock()

	if wd != "" {
		return wd, nil
	}
	return mp.BasePlatform.Getwd()
}

func (mp *MockPlatform) InterfaceAddrs() ([]net.Addr, error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.Addrs, nil
}

// Calls returns copies of the recorded MkdirAll and OpenFile paths.
func (mp *MockPlatform) Calls() (mkdirs, opens []string) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return append([]string(nil), mp.MkdirCalls...), append([]string(nil), mp.OpenCalls...)
}

type faultyFile struct {
	File
	failWrite bool
	failSync  bool
}

func (f *faultyFile) Write(p []byte) (int, error) {
	if f.failWrite {
		return 0, NewPlatformError("mock", "write", syscall.ENOSPC)
	}
	return f.File.Write(p)
}

func (f *faultyFile) Sync() error {
	if f.failSync {
		return NewPlatformError("mock", "sync", syscall.EIO)
	}
	return f.File.Sync()
}
