package netinfo

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landrop/pkg/platform"
)

func cidr(t *testing.T, s string) net.Addr {
	t.Helper()
	ip, ipnet, err := net.ParseCIDR(s)
	require.NoError(t, err)
	ipnet.IP = ip
	return ipnet
}

func TestLANAddresses(t *testing.T) {
	p := platform.NewMockPlatform()
	p.Addrs = []net.Addr{
		cidr(t, "192.168.1.20/24"),
		cidr(t, "10.0.0.5/8"),
		cidr(t, "127.0.0.1/8"),
		cidr(t, "fe80::1/64"),
		cidr(t, "169.254.3.4/16"),
		&net.IPAddr{IP: net.ParseIP("192.168.1.20")},
	}

	ips, err := LANAddresses(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.5", "192.168.1.20"}, ips)
}

func TestLANAddresses_LinkLocalFallback(t *testing.T) {
	p := platform.NewMockPlatform()
	p.Addrs = []net.Addr{cidr(t, "169.254.3.4/16")}

	ips, err := LANAddresses(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"169.254.3.4"}, ips)
}

func TestLANAddresses_None(t *testing.T) {
	p := platform.NewMockPlatform()

	ips, err := LANAddresses(p)
	require.NoError(t, err)
	assert.NotNil(t, ips)
	assert.Empty(t, ips)
}
