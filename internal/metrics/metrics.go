// Package metrics wraps the Prometheus collectors of the game service.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rocketscienceinc/tictactoe-ledger/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-ledger/internal/entity"
)

const (
	ResultAccepted = "accepted"
	ResultError    = "error"

	OutcomeWon = "won"
	OutcomeTie = "tie"
)

// Collector - game metrics on a private registry.
type Collector struct {
	registry *prometheus.Registry

	moves           *prometheus.CounterVec
	gamesStarted    prometheus.Counter
	gamesFinished   *prometheus.CounterVec
	storageDuration *prometheus.HistogramVec
}

func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "tictactoe"
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),
	}

	c.moves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moves_total",
			Help:      "Moves submitted, by result (accepted or the rejection reason)",
		},
		[]string{"result"},
	)

	c.gamesStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_started_total",
			Help:      "Games bound to two players",
		},
	)

	c.gamesFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_finished_total",
			Help:      "Games that reached a terminal state, by outcome",
		},
		[]string{"outcome"},
	)

	c.storageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "storage_duration_seconds",
			Help:      "Latency of record store operations",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	c.registry.MustRegister(c.moves, c.gamesStarted, c.gamesFinished, c.storageDuration)

	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler - exposition endpoint for the private registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordMove counts a move by its result, err is nil for an accepted move.
func (c *Collector) RecordMove(err error) {
	c.moves.WithLabelValues(MoveResult(err)).Inc()
}

func (c *Collector) RecordGameStarted() {
	c.gamesStarted.Inc()
}

// RecordOutcome counts a finished game, active games are ignored.
func (c *Collector) RecordOutcome(state entity.GameState) {
	switch {
	case state.IsTie():
		c.gamesFinished.WithLabelValues(OutcomeTie).Inc()
	case state.Status == entity.StatusWon:
		c.gamesFinished.WithLabelValues(OutcomeWon).Inc()
	}
}

func (c *Collector) ObserveStorage(op string, started time.Time) {
	c.storageDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// MoveResult maps a play error to a low-cardinality label.
func MoveResult(err error) string {
	switch {
	case err == nil:
		return ResultAccepted
	case errors.Is(err, apperror.ErrGameAlreadyOver):
		return "game_already_over"
	case errors.Is(err, apperror.ErrTileOutOfBounds):
		return "tile_out_of_bounds"
	case errors.Is(err, apperror.ErrTileAlreadySet):
		return "tile_already_set"
	case errors.Is(err, apperror.ErrNotPlayersTurn):
		return "not_players_turn"
	case errors.Is(err, apperror.ErrGameIsNotStarted):
		return "game_not_started"
	default:
		return ResultError
	}
}
