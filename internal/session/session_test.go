package session

import (
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tcptap/internal/intercept"
	"tcptap/util"
)

func TestNew(t *testing.T) {
	client, peer := net.Pipe()
	defer peer.Close()

	p := intercept.New()
	s := New(client, "10.0.0.1:80", true, p, nil, util.NewLogger(0))

	assert.Len(t, s.ID, 36)
	assert.Equal(t, "10.0.0.1:80", s.UpstreamAddr)
	assert.True(t, s.ReceiveFirst)
	assert.Same(t, p, s.Pipeline)
	assert.Equal(t, io.Discard, s.Out)
	assert.Equal(t, StateConnecting, s.State())
	assert.Nil(t, s.Upstream)
}

func TestNew_UniqueIDs(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		s := New(nil, "x:1", false, nil, nil, util.NewLogger(0))
		require.False(t, seen[s.ID], "duplicate ID %s", s.ID)
		seen[s.ID] = true
	}
}

func TestClose_IdempotentWithoutUpstream(t *testing.T) {
	client, peer := net.Pipe()
	defer peer.Close()

	s := New(client, "x:1", false, nil, nil, util.NewLogger(0))
	s.Close()
	s.Close()

	assert.Equal(t, StateClosed, s.State())
	_, err := client.Write([]byte("x"))
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestClose_ClosesBoth(t *testing.T) {
	client, cpeer := net.Pipe()
	upstream, upeer := net.Pipe()
	defer cpeer.Close()
	defer upeer.Close()

	s := New(client, "x:1", false, nil, nil, util.NewLogger(0))
	s.Upstream = upstream
	s.Close()

	_, err := upstream.Write([]byte("x"))
	assert.ErrorIs(t, err, io.ErrClosedPipe)
	_, err = client.Write([]byte("x"))
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestSetState_ClosedIsTerminal(t *testing.T) {
	s := New(nil, "x:1", false, nil, nil, util.NewLogger(0))
	s.SetState(StatePrimed)
	assert.Equal(t, StatePrimed, s.State())
	s.SetState(StateRelaying)
	s.Close()
	s.SetState(StateRelaying)
	assert.Equal(t, StateClosed, s.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "primed", StatePrimed.String())
	assert.Equal(t, "relaying", StateRelaying.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "unknown", State(-1).String())
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "abcdefgh", ShortID("abcdefgh-1234"))
	assert.Equal(t, "abc", ShortID("abc"))
}
