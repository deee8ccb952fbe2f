package platform

import (
	"io"
	"net"
	"os"
)

// Platform is the slice of the operating system the service touches. It
// covers the upload filesystem and the host's interface addresses.
type Platform interface {
	MkdirAll(dir string, perm os.FileMode) error
	Stat(name string) (os.FileInfo, error)
	OpenFile(name string, flag int, perm os.FileMode) (File, error)
	Abs(path string) (string, error)
	Getwd() (string, error)
	InterfaceAddrs() ([]net.Addr, error)

	IsNotExist(err error) bool
	IsExist(err error) bool
}

// File is a writable file handle returned by OpenFile.
type File interface {
	io.WriteCloser
	Name() string
	Sync() error
}

// Ensure the OS-backed platform implements Platform
var _ Platform = (*BasePlatform)(nil)
var _ File = (*os.File)(nil)
