package app

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "quadenc"

// initMetrics registers the decoder values as prometheus collectors.
// The values are read from the decoder on each scrape.
func (app *App) initMetrics() error {
	collectors := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "position",
			Help:      "Relative position of the encoder in counts.",
		}, func() float64 { return float64(app.decoder.Position()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rate_pps",
			Help:      "Pulse rate estimated from the last edge interval in pulses per second.",
		}, app.decoder.Rate),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edges_total",
			Help:      "Edges processed on channel A and B.",
		}, func() float64 { return float64(app.decoder.Snapshot().Edges) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Edges which changed the position.",
		}, func() float64 { return float64(app.decoder.Snapshot().Transitions) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "illegal_transitions_total",
			Help:      "Transitions where channel A and B changed at once.",
		}, func() float64 { return float64(app.decoder.Snapshot().Illegal) }),
	}

	for _, c := range collectors {
		if err := app.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}
