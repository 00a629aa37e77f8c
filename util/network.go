package util

import (
	"fmt"
	"net"
	"strconv"
)

// ResolveAddr builds a host:port string, validating that the host is a
// numeric IP when noDNS is true.
func ResolveAddr(host string, port int, noDNS bool) (string, error) {
	if noDNS {
		if net.ParseIP(host) == nil {
			return "", fmt.Errorf("cannot parse %q as an IP address (DNS disabled with -n)", host)
		}
	}
	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

// FormatAddr returns "host:port".
func FormatAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// PeerString renders a connection endpoint as "host:port", falling back
// to the raw address string for non-TCP addresses.
func PeerString(addr net.Addr) string {
	if addr == nil {
		return "<unknown>"
	}
	if ta, ok := addr.(*net.TCPAddr); ok {
		return FormatAddr(ta.IP.String(), ta.Port)
	}
	return addr.String()
}
