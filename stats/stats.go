// Package stats provides the counters SPEC_FULL.md §4.4 adds to the ambient
// stack: frames, bytes, connections, and releases, tracked with
// github.com/prometheus/client_golang the way aistore/stats tracks its
// coreStats.Tracker map of named counters, simplified here to a handful of
// concrete vectors instead of a generic name->statsValue registry (this
// module has a fixed, small metric set, not a plugin surface for arbitrary
// stats).
package stats

import "github.com/prometheus/client_golang/prometheus"

// Role labels the "role" dimension (producer/consumer) shared by every
// metric below, so a single process that happened to run both could still
// distinguish them.
type Role string

const (
	RoleProducer Role = "producer"
	RoleConsumer Role = "consumer"
)

// Registry bundles the counters one Producer or Consumer Peer updates over
// its lifetime. The zero value is not usable; construct with NewRegistry.
type Registry struct {
	FramesTotal      *prometheus.CounterVec
	BytesTotal       *prometheus.CounterVec
	ConnectionsTotal *prometheus.CounterVec
	ReleasesTotal    *prometheus.CounterVec
}

// NewRegistry creates and registers the module's counters against reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the default
// global registry across parallel test processes.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		FramesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hpcstream",
			Name:      "frames_total",
			Help:      "Frames sent (producer) or received (consumer), by role and rank.",
		}, []string{"role", "rank"}),
		BytesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hpcstream",
			Name:      "bytes_total",
			Help:      "Payload bytes sent or received across all connections, by role and rank.",
		}, []string{"role", "rank"}),
		ConnectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hpcstream",
			Name:      "connections_total",
			Help:      "Connections that reached Streaming, by role and rank.",
		}, []string{"role", "rank"}),
		ReleasesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hpcstream",
			Name:      "releases_total",
			Help:      "Release sentinels observed, by role and rank.",
		}, []string{"role", "rank"}),
	}
	reg.MustRegister(r.FramesTotal, r.BytesTotal, r.ConnectionsTotal, r.ReleasesTotal)
	return r
}
