// Package netinfo lists the addresses other devices on the LAN can use to
// reach this host.
package netinfo

import (
	"fmt"
	"net"
	"sort"

	"landrop/pkg/platform"
)

// LANAddresses returns the unique IPv4 addresses of the host's active,
// non-loopback interfaces, sorted. Link-local addresses are omitted
// unless nothing else is available.
func LANAddresses(p platform.Platform) ([]string, error) {
	addrs, err := p.InterfaceAddrs()
	if err != nil {
		return nil, fmt.Errorf("failed to list interface addresses: %w", err)
	}

	seen := make(map[string]bool)
	var routable, linkLocal []string
	for _, addr := range addrs {
		ip := ipOf(addr)
		if ip == nil || ip.IsLoopback() {
			continue
		}
		v4 := ip.To4()
		if v4 == nil {
			continue
		}
		s := v4.String()
		if seen[s] {
			continue
		}
		seen[s] = true
		if v4.IsLinkLocalUnicast() {
			linkLocal = append(linkLocal, s)
		} else {
			routable = append(routable, s)
		}
	}

	out := routable
	if len(out) == 0 {
		out = linkLocal
	}
	sort.Strings(out)
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func ipOf(addr net.Addr) net.IP {
	switch a := addr.(type) {
	case *net.IPNet:
		return a.IP
	case *net.IPAddr:
		return a.IP
	default:
		ip, _, err := net.ParseCIDR(addr.String())
		if err != nil {
			return net.ParseIP(addr.String())
		}
		return ip
	}
}
