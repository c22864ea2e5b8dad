package arena

import (
	"context"
	"errors"
	"time"

	"github.com/park285/cheese-connect4/internal/analytics"
	"github.com/park285/cheese-connect4/internal/board"
	"github.com/park285/cheese-connect4/internal/match"
	"github.com/park285/cheese-connect4/pkg/wire"
)

// Notifier delivers outbound frames to a connection. Send must not block;
// the arena calls it while holding match locks.
type Notifier interface {
	Send(conn match.ConnID, msg wire.Message)
}

// ResultRecorder receives every finished, non-abandoned match exactly once.
type ResultRecorder interface {
	RecordMatchResult(ctx context.Context, r match.Result) error
}

// EventSink receives telemetry events in emission order.
type EventSink interface {
	RecordEvent(ctx context.Context, e analytics.Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(conn match.ConnID, msg wire.Message)

func (f NotifierFunc) Send(conn match.ConnID, msg wire.Message) { f(conn, msg) }

var (
	ErrAlreadyInMatch = errors.New("already waiting or playing")
	ErrMatchNotFound  = errors.New("match not found")
	ErrInvalidName    = errors.New("invalid name")
	ErrInvalidRequest = errors.New("invalid request")
	ErrClosed         = errors.New("arena closed")
)

// Config holds the arena timings and the scripted participant identity.
type Config struct {
	MatchmakingTimeout  time.Duration
	GracePeriod         time.Duration
	ScriptedDelay       time.Duration
	ScriptedName        string
	CollaboratorTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MatchmakingTimeout <= 0 {
		c.MatchmakingTimeout = 10 * time.Second
	}
	if c.GracePeriod <= 0 {
		c.GracePeriod = 30 * time.Second
	}
	if c.ScriptedDelay < 0 {
		c.ScriptedDelay = 0
	}
	if c.ScriptedName == "" {
		c.ScriptedName = "AI Bot"
	}
	if c.CollaboratorTimeout <= 0 {
		c.CollaboratorTimeout = 5 * time.Second
	}
	return c
}

// reasonFor maps domain errors to wire reason codes.
func reasonFor(err error) wire.Reason {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, match.ErrNotYourTurn):
		return wire.ReasonNotYourTurn
	case errors.Is(err, board.ErrColumnFull):
		return wire.ReasonColumnFull
	case errors.Is(err, board.ErrInvalidColumn):
		return wire.ReasonInvalidColumn
	case errors.Is(err, match.ErrPaused):
		return wire.ReasonMatchPaused
	case errors.Is(err, ErrAlreadyInMatch):
		return wire.ReasonAlreadyInMatch
	case errors.Is(err, ErrMatchNotFound), errors.Is(err, match.ErrMatchOver),
		errors.Is(err, match.ErrNotParticipant), errors.Is(err, match.ErrNotAway):
		return wire.ReasonMatchNotFound
	default:
		return wire.ReasonInvalidRequest
	}
}
