package match

import (
	"errors"
	"time"

	"github.com/park285/cheese-connect4/internal/board"
)

// ConnID identifies a live transport connection. It changes on reconnect;
// the participant name does not.
type ConnID string

// State is derived from the match fields, never stored.
type State string

const (
	AwaitingFirstMove    State = "AWAITING_FIRST_MOVE"
	InProgress           State = "IN_PROGRESS"
	AwaitingReconnection State = "AWAITING_RECONNECTION"
	Finished             State = "FINISHED"
)

type Outcome string

const (
	OutcomeNone      Outcome = ""
	OutcomeSideOne   Outcome = "side1"
	OutcomeSideTwo   Outcome = "side2"
	OutcomeDraw      Outcome = "draw"
	OutcomeAbandoned Outcome = "abandoned"
)

// EndReason tells clients and storage how a match finished.
type EndReason string

const (
	ReasonNone      EndReason = ""
	ReasonConnect4  EndReason = "connect4"
	ReasonDraw      EndReason = "draw"
	ReasonForfeit   EndReason = "forfeit"
	ReasonAbandoned EndReason = "abandoned"
)

var (
	ErrMatchOver       = errors.New("match is over")
	ErrNotParticipant  = errors.New("not a participant")
	ErrPaused          = errors.New("match paused awaiting reconnection")
	ErrNotYourTurn     = errors.New("not your turn")
	ErrNotScriptedTurn = errors.New("side to move is not scripted")
	ErrNotAway         = errors.New("participant is not awaiting reconnection")
)

type Participant struct {
	Name     string `json:"name"`
	Conn     ConnID `json:"-"`
	Scripted bool   `json:"scripted"`
}

// MoveResult describes an applied move.
type MoveResult struct {
	Side     board.Side
	Position board.Position
	Terminal bool
}

// Result is the record handed to storage once a match is terminal.
type Result struct {
	MatchID         string    `json:"matchId"`
	Player1         string    `json:"player1"`
	Player2         string    `json:"player2"`
	Winner          string    `json:"winner,omitempty"`
	Draw            bool      `json:"draw"`
	Abandoned       bool      `json:"abandoned"`
	Reason          EndReason `json:"reason"`
	Scripted        bool      `json:"scripted"`
	Moves           int       `json:"moves"`
	DurationSeconds int       `json:"durationSeconds"`
	StartedAt       time.Time `json:"startedAt"`
	EndedAt         time.Time `json:"endedAt"`
}

// Loser returns the non-winning participant name, or "" when there is no winner.
func (r Result) Loser() string {
	switch r.Winner {
	case "":
		return ""
	case r.Player1:
		return r.Player2
	default:
		return r.Player1
	}
}
