// Package testutil provides loopback servers shared by the relay,
// listener and transport tests.
package testutil

import (
	"io"
	"net"
	"sync"
	"testing"
)

// Server is a loopback TCP server running handler for every accepted
// connection.  It is closed by t.Cleanup.
type Server struct {
	ln       net.Listener
	mu       sync.Mutex
	accepted int
	wg       sync.WaitGroup
}

// NewServer starts a server on 127.0.0.1 with an ephemeral port.
func NewServer(t testing.TB, handler func(net.Conn)) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &Server{ln: ln}

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.accepted++
			s.mu.Unlock()
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				defer c.Close()
				handler(c)
			}()
		}
	}()

	t.Cleanup(func() { ln.Close() })
	return s
}

// Addr returns the server's host:port.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Accepted returns how many connections the server has accepted.
func (s *Server) Accepted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted
}

// Wait blocks until every handler has returned.
func (s *Server) Wait() { s.wg.Wait() }

// Echo copies everything it reads back to the sender.
func Echo(c net.Conn) { io.Copy(c, c) } //nolint:errcheck

// ClosedAddr returns an address on which nothing is listening.
func ClosedAddr(t testing.TB) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}
