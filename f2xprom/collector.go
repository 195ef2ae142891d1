// Package f2xprom exports f2x transport and connection metrics to prometheus.
//
//	reg := prometheus.NewRegistry()
//	reg.MustRegister(f2xprom.NewCollector("game", transport.Metrics(), conn.GetMetrics()))
package f2xprom

import (
	"github.com/arloliu/go-f2x/f2x"
	"github.com/arloliu/go-f2x/f2xtcp"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "f2x"

// Collector is a prometheus.Collector reading the atomic metrics of a transport and, optionally,
// of its TCP connection at scrape time.
type Collector struct {
	metrics []prometheus.Collector
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a collector for transport and conn. Either may be nil.
// subsystem is used as the prometheus subsystem, e.g. the game name.
func NewCollector(subsystem string, transport *f2x.TransportMetrics, conn *f2xtcp.ConnectionMetrics) *Collector {
	c := &Collector{}

	if transport != nil {
		c.addCounter(subsystem, "requests_sent_total", "Total number of requests sent.", transport.RequestSendCount.Load)
		c.addCounter(subsystem, "responses_sent_total", "Total number of responses sent to Foundation requests.", transport.ResponseSendCount.Load)
		c.addCounter(subsystem, "send_errors_total", "Total number of frames the raw transport failed to send.", transport.SendErrCount.Load)
		c.addCounter(subsystem, "replies_received_total", "Total number of replies received.", transport.ReplyRecvCount.Load)
		c.addCounter(subsystem, "messages_received_total", "Total number of unsolicited messages received.", transport.MessageRecvCount.Load)
		c.addCounter(subsystem, "status_faults_total", "Total number of received frames with a non-zero status code.", transport.StatusErrCount.Load)
		c.addCounter(subsystem, "decode_faults_total", "Total number of frames that failed decoding.", transport.DecodeErrCount.Load)
		c.addCounter(subsystem, "routing_faults_total", "Total number of frames that could not be dispatched.", transport.RoutingErrCount.Load)
		c.addCounter(subsystem, "transport_faults_total", "Total number of raw transport faults.", transport.FaultCount.Load)
		c.metrics = append(c.metrics, prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "inflight_requests",
				Help:      "Number of requests waiting for a reply.",
			},
			func() float64 { return float64(transport.InflightCount.Load()) },
		))
	}

	if conn != nil {
		c.addCounter(subsystem, "tcp_frames_sent_total", "Total number of frames written to the socket.", conn.FrameSendCount.Load)
		c.addCounter(subsystem, "tcp_frames_received_total", "Total number of frames read from the socket.", conn.FrameRecvCount.Load)
		c.addCounter(subsystem, "tcp_frame_errors_total", "Total number of frame read and write errors.", conn.FrameErrCount.Load)
		c.addCounter(subsystem, "tcp_faults_total", "Total number of connection faults.", conn.FaultCount.Load)
		c.metrics = append(c.metrics, prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "tcp_connect_retries",
				Help:      "Number of failed dial attempts since the last successful connect.",
			},
			func() float64 { return float64(conn.ConnRetryGauge.Load()) },
		))
	}

	return c
}

func (c *Collector) addCounter(subsystem, name, help string, load func() uint64) {
	c.metrics = append(c.metrics, prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		},
		func() float64 { return float64(load()) },
	))
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.metrics {
		m.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, m := range c.metrics {
		m.Collect(ch)
	}
}
