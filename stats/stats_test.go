package stats

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels prometheus.Labels) float64 {
	t.Helper()
	m, err := vec.GetMetricWith(labels)
	if err != nil {
		t.Fatalf("GetMetricWith(%v): %v", labels, err)
	}
	var pb dto.Metric
	if err := m.Write(&pb); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return pb.GetCounter().GetValue()
}

func TestRegistryCountersAreIndependentByRank(t *testing.T) {
	reg := NewRegistry(prometheus.NewRegistry())
	reg.FramesTotal.WithLabelValues("producer", "0").Inc()
	reg.FramesTotal.WithLabelValues("producer", "0").Inc()
	reg.FramesTotal.WithLabelValues("producer", "1").Inc()

	if got := counterValue(t, reg.FramesTotal, prometheus.Labels{"role": "producer", "rank": "0"}); got != 2 {
		t.Errorf("rank 0 frames_total = %v, want 2", got)
	}
	if got := counterValue(t, reg.FramesTotal, prometheus.Labels{"role": "producer", "rank": "1"}); got != 1 {
		t.Errorf("rank 1 frames_total = %v, want 1", got)
	}
}

func TestNewRegistryRegistersDistinctCounters(t *testing.T) {
	reg := NewRegistry(prometheus.NewRegistry())
	reg.BytesTotal.WithLabelValues("consumer", "0").Add(128)
	reg.ConnectionsTotal.WithLabelValues("consumer", "0").Inc()
	reg.ReleasesTotal.WithLabelValues("consumer", "0").Inc()

	if got := counterValue(t, reg.BytesTotal, prometheus.Labels{"role": "consumer", "rank": "0"}); got != 128 {
		t.Errorf("bytes_total = %v, want 128", got)
	}
	if got := counterValue(t, reg.ConnectionsTotal, prometheus.Labels{"role": "consumer", "rank": "0"}); got != 1 {
		t.Errorf("connections_total = %v, want 1", got)
	}
	if got := counterValue(t, reg.ReleasesTotal, prometheus.Labels{"role": "consumer", "rank": "0"}); got != 1 {
		t.Errorf("releases_total = %v, want 1", got)
	}
}

// TestNewRegistryTwiceAgainstSameRegistererPanics documents that NewRegistry
// is meant to be called once per prometheus.Registerer (MustRegister panics
// on a duplicate metric name) — passing prometheus.NewRegistry() per Peer
// avoids this across tests, matching every call site in producer/consumer.
func TestNewRegistryTwiceAgainstSameRegistererPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewRegistry(reg)
	defer func() {
		if recover() == nil {
			t.Fatal("expected MustRegister to panic on the second NewRegistry against the same Registerer")
		}
	}()
	NewRegistry(reg)
}
