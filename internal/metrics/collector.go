// Package metrics exposes voltgo's client-side counters as a
// prometheus.Collector, following the pull-at-scrape-time shape
// go-tcpinfo's exporter.TCPInfoCollector uses: Collect reads live state
// instead of mirroring it into pre-registered gauges on every update.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Source is the subset of client.Stats the collector reads at scrape
// time. It is an interface so the client package and this package don't
// import each other.
type Source interface {
	Outstanding() int64
	BytesSent() int64
	BytesReceived() int64
	Reconnects() int64
}

// ConnSource reports the number of connections currently flagged
// backpressured, read at scrape time.
type ConnSource interface {
	BackpressuredCount() int
}

// Collector adapts a client.Stats (and optionally a connection pool) to
// prometheus.Collector.
type Collector struct {
	stats Source
	conns ConnSource

	outstanding   *prometheus.Desc
	backpressured *prometheus.Desc
	reconnects    *prometheus.Desc
	bytesSent     *prometheus.Desc
	bytesRecv     *prometheus.Desc
}

// NewCollector builds a Collector reading from stats and, if conns is
// non-nil, the backpressured-connections gauge.
func NewCollector(namespace string, stats Source, conns ConnSource) *Collector {
	return &Collector{
		stats: stats,
		conns: conns,
		outstanding: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "outstanding_requests"),
			"Number of invocations submitted but not yet completed.",
			nil, nil,
		),
		backpressured: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "backpressured_connections"),
			"Number of connections currently reporting backpressure.",
			nil, nil,
		),
		reconnects: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "reconnects_total"),
			"Cumulative number of successful reconnects.",
			nil, nil,
		),
		bytesSent: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "bytes_sent_total"),
			"Cumulative number of request bytes written.",
			nil, nil,
		),
		bytesRecv: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "bytes_received_total"),
			"Cumulative number of response bytes read.",
			nil, nil,
		),
	}
}

func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	descs <- c.outstanding
	descs <- c.backpressured
	descs <- c.reconnects
	descs <- c.bytesSent
	descs <- c.bytesRecv
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.outstanding, prometheus.GaugeValue, float64(c.stats.Outstanding()))
	ch <- prometheus.MustNewConstMetric(c.reconnects, prometheus.CounterValue, float64(c.stats.Reconnects()))
	ch <- prometheus.MustNewConstMetric(c.bytesSent, prometheus.CounterValue, float64(c.stats.BytesSent()))
	ch <- prometheus.MustNewConstMetric(c.bytesRecv, prometheus.CounterValue, float64(c.stats.BytesReceived()))

	if c.conns != nil {
		ch <- prometheus.MustNewConstMetric(c.backpressured, prometheus.GaugeValue, float64(c.conns.BackpressuredCount()))
	}
}
