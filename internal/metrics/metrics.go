// Package metrics exposes the prometheus collectors the connection
// manager, reassembler, and reconnect controller publish to. There is no
// teacher analog for this package — the paysys server carries no metrics
// layer — so it is a pure ambient-stack addition grounded on how
// FairForge-vaultaire and gravitational-teleport register client_golang
// collectors at package scope.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collectors bundles the counters and gauges the engine updates. Callers
// that don't want global registration can build their own registry and
// pass it to NewCollectors.
type Collectors struct {
	DecodeErrors       prometheus.Counter
	ParseErrors        prometheus.Counter
	UnknownPacketIDs   prometheus.Counter
	ReconnectAttempts  prometheus.Counter
	ReconnectSuccesses prometheus.Counter
	DownloadsActive    prometheus.Gauge
	DownloadBytesTotal prometheus.Counter
	PacketsDispatched  prometheus.Counter
}

// NewCollectors creates and registers a Collectors set against reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the default
// global registry across parallel test packages.
func NewCollectors(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reborn_client",
			Name:      "decode_errors_total",
			Help:      "Frames dropped because the codec failed to decode them.",
		}),
		ParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reborn_client",
			Name:      "parse_errors_total",
			Help:      "Inner packets that failed field parsing.",
		}),
		UnknownPacketIDs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reborn_client",
			Name:      "unknown_packet_ids_total",
			Help:      "Inner packets dispatched with no registered handler.",
		}),
		ReconnectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reborn_client",
			Name:      "reconnect_attempts_total",
			Help:      "Reconnect attempts made by the reconnect controller.",
		}),
		ReconnectSuccesses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reborn_client",
			Name:      "reconnect_successes_total",
			Help:      "Reconnect attempts that re-established a connection.",
		}),
		DownloadsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "reborn_client",
			Name:      "downloads_active",
			Help:      "Large-file downloads currently in flight.",
		}),
		DownloadBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reborn_client",
			Name:      "download_bytes_total",
			Help:      "Bytes received across all downloads, counted as each chunk arrives.",
		}),
		PacketsDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reborn_client",
			Name:      "packets_dispatched_total",
			Help:      "Inner packets handed to the dispatcher.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			c.DecodeErrors, c.ParseErrors, c.UnknownPacketIDs,
			c.ReconnectAttempts, c.ReconnectSuccesses,
			c.DownloadsActive, c.DownloadBytesTotal, c.PacketsDispatched,
		)
	}
	return c
}

// Noop returns a Collectors set that is never registered to any registry,
// for callers (and tests) that don't care about metrics wiring.
func Noop() *Collectors {
	return NewCollectors(nil)
}
