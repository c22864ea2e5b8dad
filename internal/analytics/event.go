package analytics

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type EventType string

const (
	EventMatchStart         EventType = "MATCH_START"
	EventMoveMade           EventType = "MOVE_MADE"
	EventMatchEnd           EventType = "MATCH_END"
	EventPlayerDisconnected EventType = "PLAYER_DISCONNECTED"
	EventPlayerReconnected  EventType = "PLAYER_RECONNECTED"
	EventMatchAbandoned     EventType = "MATCH_ABANDONED"
)

// Event is one telemetry record. Unused fields stay zero.
type Event struct {
	Type            EventType `json:"type"`
	MatchID         string    `json:"matchId"`
	Players         []string  `json:"players,omitempty"`
	Player          string    `json:"player,omitempty"`
	Side            int       `json:"side,omitempty"`
	Row             *int      `json:"row,omitempty"`
	Column          *int      `json:"column,omitempty"`
	MoveNumber      int       `json:"moveNumber,omitempty"`
	Winner          string    `json:"winner,omitempty"`
	Reason          string    `json:"reason,omitempty"`
	Scripted        bool      `json:"scripted,omitempty"`
	DurationSeconds int       `json:"durationSeconds,omitempty"`
	At              time.Time `json:"timestamp"`
}

// Sink accepts telemetry events.
type Sink interface {
	RecordEvent(ctx context.Context, e Event) error
}

// LogSink writes events to a logger. Used when no stream is configured.
type LogSink struct {
	Logger *zap.Logger
}

func (s LogSink) RecordEvent(_ context.Context, e Event) error {
	l := s.Logger
	if l == nil {
		l = zap.NewNop()
	}
	l.Info("analytics_event",
		zap.String("type", string(e.Type)),
		zap.String("match_id", e.MatchID),
		zap.String("player", e.Player),
		zap.String("winner", e.Winner),
		zap.String("reason", e.Reason),
	)
	return nil
}
