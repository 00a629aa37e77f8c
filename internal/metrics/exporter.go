package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tcptap/util"
)

const namespace = "tcptap"

// promCollector exposes a Collector's counters to Prometheus.  Values
// are read at scrape time, so the relay hot path stays atomic-only.
type promCollector struct {
	c *Collector

	sessionsActive *prometheus.Desc
	sessionsTotal  *prometheus.Desc
	bursts         *prometheus.Desc
	bytes          *prometheus.Desc
	dialFailures   *prometheus.Desc
	transformFails *prometheus.Desc
	errors         *prometheus.Desc
}

// NewPrometheusCollector adapts c for registration with a
// prometheus.Registerer.
func NewPrometheusCollector(c *Collector) prometheus.Collector {
	dir := []string{"direction"}
	return &promCollector{
		c: c,
		sessionsActive: prometheus.NewDesc(namespace+"_sessions_active",
			"Relay sessions currently open.", nil, nil),
		sessionsTotal: prometheus.NewDesc(namespace+"_sessions_total",
			"Client connections accepted.", nil, nil),
		bursts: prometheus.NewDesc(namespace+"_bursts_total",
			"Non-empty bursts forwarded.", dir, nil),
		bytes: prometheus.NewDesc(namespace+"_bytes_total",
			"Bytes forwarded after interception.", dir, nil),
		dialFailures: prometheus.NewDesc(namespace+"_upstream_dial_failures_total",
			"Sessions that could not reach the upstream.", nil, nil),
		transformFails: prometheus.NewDesc(namespace+"_transform_failures_total",
			"Sessions ended by a failing interception transform.", nil, nil),
		errors: prometheus.NewDesc(namespace+"_session_errors_total",
			"Sessions that ended with an error.", nil, nil),
	}
}

func (p *promCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- p.sessionsActive
	ch <- p.sessionsTotal
	ch <- p.bursts
	ch <- p.bytes
	ch <- p.dialFailures
	ch <- p.transformFails
	ch <- p.errors
}

func (p *promCollector) Collect(ch chan<- prometheus.Metric) {
	s := p.c.Snapshot()
	gauge := func(d *prometheus.Desc, v int64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(v), labels...)
	}
	counter := func(d *prometheus.Desc, v int64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}

	gauge(p.sessionsActive, s.SessionsActive)
	counter(p.sessionsTotal, s.SessionsTotal)
	counter(p.bursts, s.BurstsInbound, "inbound")
	counter(p.bursts, s.BurstsOutbound, "outbound")
	counter(p.bytes, s.BytesInbound, "inbound")
	counter(p.bytes, s.BytesOutbound, "outbound")
	counter(p.dialFailures, s.DialFailures)
	counter(p.transformFails, s.TransformFailures)
	counter(p.errors, s.ErrorsTotal)
}

// Handler returns an http.Handler serving /metrics (Prometheus text
// format) and /stats (the JSON snapshot).
func Handler(c *Collector) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewPrometheusCollector(c))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/stats", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, c.JSON()+"\n") //nolint:errcheck
	})
	return mux
}

// Serve exposes the collector on addr until ctx is cancelled and
// returns the bound address.  A bind failure is returned immediately;
// later serve errors are logged.
func Serve(ctx context.Context, addr string, c *Collector, logger *util.Logger) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           Handler(c),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server: %v", err)
		}
	}()

	logger.Verbose("metrics on http://%s/metrics", ln.Addr())
	return ln.Addr(), nil
}
