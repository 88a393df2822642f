package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "memory_match"

// Collectors holds the Prometheus collectors for game activity.
// It satisfies game.Recorder.
type Collectors struct {
	registry       *prometheus.Registry
	clicks         *prometheus.CounterVec
	resolutions    *prometheus.CounterVec
	roundsWon      prometheus.Counter
	activeSessions prometheus.Gauge
}

// New creates the collectors and registers them on a dedicated registry.
func New() *Collectors {
	c := &Collectors{
		registry: prometheus.NewRegistry(),
		clicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clicks_total",
			Help:      "Card clicks by outcome (flipped, pair_revealed, ignored, invalid).",
		}, []string{"outcome"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Pair resolutions by result (match, mismatch, stale).",
		}, []string{"result"}),
		roundsWon: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_won_total",
			Help:      "Rounds in which every pair was matched.",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently running.",
		}),
	}
	c.registry.MustRegister(
		c.clicks,
		c.resolutions,
		c.roundsWon,
		c.activeSessions,
		collectors.NewGoCollector(),
	)
	return c
}

func (c *Collectors) RecordClick(outcome string)     { c.clicks.WithLabelValues(outcome).Inc() }
func (c *Collectors) RecordResolution(result string) { c.resolutions.WithLabelValues(result).Inc() }
func (c *Collectors) RecordRoundWon()                { c.roundsWon.Inc() }

// SessionStarted and SessionEnded track the active session gauge.
func (c *Collectors) SessionStarted() { c.activeSessions.Inc() }
func (c *Collectors) SessionEnded()   { c.activeSessions.Dec() }

// Handler exposes the registry in the Prometheus text format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
