package metrics

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tcptap/util"
)

func TestPrometheusCollector(t *testing.T) {
	c := New()
	c.SessionOpened()
	c.SessionOpened()
	c.SessionClosed()
	c.InboundBurst(4)
	c.OutboundBurst(7)
	c.DialFailed()

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewPrometheusCollector(c)))

	families, err := reg.Gather()
	require.NoError(t, err)

	got := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			for _, lp := range m.GetLabel() {
				key += "/" + lp.GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				got[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				got[key] = m.GetGauge().GetValue()
			}
		}
	}

	assert.Equal(t, 1.0, got["tcptap_sessions_active"])
	assert.Equal(t, 2.0, got["tcptap_sessions_total"])
	assert.Equal(t, 4.0, got["tcptap_bytes_total/inbound"])
	assert.Equal(t, 7.0, got["tcptap_bytes_total/outbound"])
	assert.Equal(t, 1.0, got["tcptap_bursts_total/outbound"])
	assert.Equal(t, 1.0, got["tcptap_upstream_dial_failures_total"])
	assert.Equal(t, 0.0, got["tcptap_transform_failures_total"])
}

func TestHandler(t *testing.T) {
	c := New()
	c.InboundBurst(12)
	srv := httptest.NewServer(Handler(c))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `tcptap_bytes_total{direction="inbound"} 12`)

	resp, err = http.Get(srv.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	var snap Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.EqualValues(t, 12, snap.BytesInbound)
}

func TestServe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr, err := Serve(ctx, "127.0.0.1:0", New(), util.NewLogger(0))
	require.NoError(t, err)

	resp, err := http.Get("http://" + addr.String() + "/stats")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServe_BindError(t *testing.T) {
	_, err := Serve(context.Background(), "256.0.0.1:bad", New(), util.NewLogger(0))
	assert.Error(t, err)
}
