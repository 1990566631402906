package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/mickamy/voltgo/internal/metrics"
)

type fakeSource struct {
	outstanding, bytesSent, bytesRecv, reconnects int64
}

func (f fakeSource) Outstanding() int64   { return f.outstanding }
func (f fakeSource) BytesSent() int64     { return f.bytesSent }
func (f fakeSource) BytesReceived() int64 { return f.bytesRecv }
func (f fakeSource) Reconnects() int64    { return f.reconnects }

type fakeConns struct{ n int }

func (f fakeConns) BackpressuredCount() int { return f.n }

func TestCollectorReportsLiveValues(t *testing.T) {
	src := fakeSource{outstanding: 3, bytesSent: 100, bytesRecv: 50, reconnects: 2}
	conns := fakeConns{n: 1}
	c := metrics.NewCollector("voltgo_test", src, conns)

	reg := prometheus.NewRegistry()
	if err := reg.Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	values := map[string]float64{}
	for _, fam := range families {
		for _, m := range fam.Metric {
			values[fam.GetName()] = metricValue(m)
		}
	}

	checks := map[string]float64{
		"voltgo_test_outstanding_requests":       3,
		"voltgo_test_backpressured_connections": 1,
		"voltgo_test_reconnects_total":           2,
		"voltgo_test_bytes_sent_total":           100,
		"voltgo_test_bytes_received_total":       50,
	}
	for name, want := range checks {
		got, ok := values[name]
		if !ok {
			t.Errorf("metric %s not gathered", name)
			continue
		}
		if got != want {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}
}

func metricValue(m *dto.Metric) float64 {
	if m.Gauge != nil {
		return m.Gauge.GetValue()
	}
	if m.Counter != nil {
		return m.Counter.GetValue()
	}
	return 0
}
