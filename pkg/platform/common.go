package platform

import (
	"errors"
	"io/fs"
	"net"
	"os"
	"path/filepath"

	"landrop/pkg/logger"
)

// BasePlatform implements Platform on top of the os and net packages.
type BasePlatform struct {
	logger *logger.Logger
}

// NewBasePlatform creates a new base platform
func NewBasePlatform() *BasePlatform {
	return &BasePlatform{
		logger: logger.WithField("component", "platform"),
	}
}

func (bp *BasePlatform) MkdirAll(dir string, perm os.FileMode) error {
	return os.MkdirAll(dir, perm)
}

func (bp *BasePlatform) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

func (bp *BasePlatform) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	f, err := os.OpenFile(name, flag, perm)
	if err != nil {
		// keep the return a true nil interface on failure
		return nil, err
	}
	return f, nil
}

func (bp *BasePlatform) Abs(path string) (string, error) {
	return filepath.Abs(path)
}

func (bp *BasePlatform) Getwd() (string, error) {
	return os.Getwd()
}

func (bp *BasePlatform) InterfaceAddrs() ([]net.Addr, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, NewPlatformError("base", "interfaces", err)
	}

	var addrs []net.Addr
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		ifaceAddrs, err := iface.Addrs()
		if err != nil {
			bp.logger.Debug("skipping interface", "interface", iface.Name, "error", err)
			continue
		}
		addrs = append(addrs, ifaceAddrs...)
	}
	return addrs, nil
}

func (bp *BasePlatform) IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func (bp *BasePlatform) IsExist(err error) bool {
	return errors.Is(err, fs.ErrExist)
}
