package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	gamesStartedCounter     *prometheus.CounterVec
	gamesCompletedCounter   *prometheus.CounterVec
	commandsRejectedCounter *prometheus.CounterVec
	staleStepsCounter       prometheus.Counter
	activeSessionsGauge     prometheus.Gauge
}

func (m *metrics) GameStarted(gameType string) {
	m.gamesStartedCounter.WithLabelValues(gameType).Inc()
}

func (m *metrics) GameCompleted(gameType string) {
	m.gamesCompletedCounter.WithLabelValues(gameType).Inc()
}

func (m *metrics) CommandRejected(gameType string, reason string) {
	m.commandsRejectedCounter.WithLabelValues(gameType, reason).Inc()
}

func (m *metrics) StaleStepDropped() {
	m.staleStepsCounter.Inc()
}

func (m *metrics) SetActiveSessions(count int) {
	m.activeSessionsGauge.Set(float64(count))
}

var Metrics = &metrics{
	gamesStartedCounter: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "games_started_total",
		Help: "Total number of games started",
	}, []string{"game_type"}),
	gamesCompletedCounter: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "games_completed_total",
		Help: "Total number of games that reached a terminal state",
	}, []string{"game_type"}),
	commandsRejectedCounter: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commands_rejected_total",
		Help: "Total number of player commands rejected by a game",
	}, []string{"game_type", "reason"}),
	staleStepsCounter: promauto.NewCounter(prometheus.CounterOpts{
		Name: "stale_steps_dropped_total",
		Help: "Total number of delayed steps dropped because the table moved on",
	}),
	activeSessionsGauge: promauto.NewGauge(prometheus.GaugeOpts{
		Name: "active_sessions_count",
		Help: "Count of the sessions held by the game manager",
	}),
}
