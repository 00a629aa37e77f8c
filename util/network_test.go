package util

import (
	"net"
	"testing"
)

func TestResolveAddr(t *testing.T) {
	tests := []struct {
		host    string
		port    int
		noDNS   bool
		want    string
		wantErr bool
	}{
		{"127.0.0.1", 80, true, "127.0.0.1:80", false},
		{"::1", 443, true, "[::1]:443", false},
		{"example.com", 80, false, "example.com:80", false},
		{"example.com", 80, true, "", true}, // hostname with noDNS
	}

	for _, tt := range tests {
		got, err := ResolveAddr(tt.host, tt.port, tt.noDNS)
		if (err != nil) != tt.wantErr {
			t.Errorf("ResolveAddr(%q,%d,%v) err=%v wantErr=%v",
				tt.host, tt.port, tt.noDNS, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ResolveAddr(%q,%d,%v) = %q, want %q",
				tt.host, tt.port, tt.noDNS, got, tt.want)
		}
	}
}

func TestFormatAddr(t *testing.T) {
	if got := FormatAddr("1.2.3.4", 22); got != "1.2.3.4:22" {
		t.Errorf("got %q, want %q", got, "1.2.3.4:22")
	}
}

func TestPeerString(t *testing.T) {
	tests := []struct {
		name string
		addr net.Addr
		want string
	}{
		{"nil", nil, "<unknown>"},
		{"ipv4", &net.TCPAddr{IP: net.ParseIP("10.0.0.7"), Port: 5150}, "10.0.0.7:5150"},
		{"ipv6", &net.TCPAddr{IP: net.ParseIP("::1"), Port: 9000}, "[::1]:9000"},
		{"unix", &net.UnixAddr{Name: "/tmp/sock", Net: "unix"}, "/tmp/sock"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PeerString(tt.addr); got != tt.want {
				t.Errorf("PeerString = %q, want %q", got, tt.want)
			}
		})
	}
}
