// Package metrics exposes a zmsg server's traffic counters as
// Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Zereker/zmsg"
)

const namespace = "zmsg"

// ServerCollector implements prometheus.Collector on top of a server's
// stats snapshot. Collect reads the counters at scrape time, so the
// collector itself holds no state.
type ServerCollector struct {
	server *zmsg.Server

	activeConns    *prometheus.Desc
	totalConns     *prometheus.Desc
	framesRead     *prometheus.Desc
	framesWritten  *prometheus.Desc
	bytesRead      *prometheus.Desc
	bytesWritten   *prometheus.Desc
	framesDropped  *prometheus.Desc
	protocolErrors *prometheus.Desc
}

var _ prometheus.Collector = (*ServerCollector)(nil)

// NewServerCollector creates a collector reporting on server.
func NewServerCollector(server *zmsg.Server) *ServerCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, nil)
	}

	return &ServerCollector{
		server:         server,
		activeConns:    desc("connections_active", "Connections currently being served."),
		totalConns:     desc("connections_total", "Connections accepted since start."),
		framesRead:     desc("frames_read_total", "Frames decoded from clients."),
		framesWritten:  desc("frames_written_total", "Response frames written to clients."),
		bytesRead:      desc("bytes_read_total", "Bytes read from clients, headers included."),
		bytesWritten:   desc("bytes_written_total", "Bytes written to clients, headers included."),
		framesDropped:  desc("frames_dropped_total", "Frames dropped for lack of a handler."),
		protocolErrors: desc("protocol_errors_total", "Malformed or oversized frames received."),
	}
}

// Register attaches a collector for server to the default registry.
func Register(server *zmsg.Server) {
	prometheus.MustRegister(NewServerCollector(server))
}

func (c *ServerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.activeConns
	ch <- c.totalConns
	ch <- c.framesRead
	ch <- c.framesWritten
	ch <- c.bytesRead
	ch <- c.bytesWritten
	ch <- c.framesDropped
	ch <- c.protocolErrors
}

func (c *ServerCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.server.Stats()

	ch <- prometheus.MustNewConstMetric(c.activeConns, prometheus.GaugeValue, float64(s.ActiveConns))
	ch <- prometheus.MustNewConstMetric(c.totalConns, prometheus.CounterValue, float64(s.TotalConns))
	ch <- prometheus.MustNewConstMetric(c.framesRead, prometheus.CounterValue, float64(s.FramesRead))
	ch <- prometheus.MustNewConstMetric(c.framesWritten, prometheus.CounterValue, float64(s.FramesWritten))
	ch <- prometheus.MustNewConstMetric(c.bytesRead, prometheus.CounterValue, float64(s.BytesRead))
	ch <- prometheus.MustNewConstMetric(c.bytesWritten, prometheus.CounterValue, float64(s.BytesWritten))
	ch <- prometheus.MustNewConstMetric(c.framesDropped, prometheus.CounterValue, float64(s.FramesDropped))
	ch <- prometheus.MustNewConstMetric(c.protocolErrors, prometheus.CounterValue, float64(s.ProtocolErrors))
}
