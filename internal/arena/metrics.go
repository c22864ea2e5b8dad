package arena

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/park285/cheese-connect4/pkg/wire"
)

// Metrics is nil-safe; a nil *Metrics records nothing.
type Metrics struct {
	matchesStarted *prometheus.CounterVec
	matchesEnded   *prometheus.CounterVec
	moves          prometheus.Counter
	rejections     *prometheus.CounterVec
	active         prometheus.Gauge
	waiting        prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{
		matchesStarted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "connect4", Name: "matches_started_total",
			Help: "Matches started, by opponent kind.",
		}, []string{"kind"}),
		matchesEnded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "connect4", Name: "matches_ended_total",
			Help: "Matches ended, by end reason.",
		}, []string{"reason"}),
		moves: f.NewCounter(prometheus.CounterOpts{
			Namespace: "connect4", Name: "moves_total",
			Help: "Discs dropped, human and scripted.",
		}),
		rejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "connect4", Name: "rejections_total",
			Help: "Rejected commands, by reason code.",
		}, []string{"reason"}),
		active: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "connect4", Name: "active_matches",
			Help: "Matches not yet torn down.",
		}),
		waiting: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "connect4", Name: "waiting_players",
			Help: "Participants in the matchmaking slot (0 or 1).",
		}),
	}
	for _, r := range wire.Reasons {
		m.rejections.WithLabelValues(string(r))
	}
	return m
}

func (m *Metrics) matchStarted(scripted bool) {
	if m == nil {
		return
	}
	kind := "human"
	if scripted {
		kind = "scripted"
	}
	m.matchesStarted.WithLabelValues(kind).Inc()
	m.active.Inc()
}

func (m *Metrics) matchEnded(reason string) {
	if m == nil {
		return
	}
	m.matchesEnded.WithLabelValues(reason).Inc()
}

func (m *Metrics) matchRemoved() {
	if m == nil {
		return
	}
	m.active.Dec()
}

func (m *Metrics) moveMade() {
	if m == nil {
		return
	}
	m.moves.Inc()
}

func (m *Metrics) rejected(r wire.Reason) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(string(r)).Inc()
}

func (m *Metrics) setWaiting(n int) {
	if m == nil {
		return
	}
	m.waiting.Set(float64(n))
}
