package match

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/park285/cheese-connect4/internal/board"
	"github.com/park285/cheese-connect4/internal/opponent"
)

// Match is one game between two participants. It is not safe for concurrent
// use; the owner serializes every call.
type Match struct {
	ID        string
	Board     board.Board
	Turn      board.Side
	Outcome   Outcome
	Reason    EndReason
	Moves     int
	LastMove  *board.Position
	StartedAt time.Time
	EndedAt   time.Time

	players [2]Participant
	// pending disconnect per side; zero means connected
	away  [2]uint64
	gen   uint64
	clock clockwork.Clock
}

// New starts a match with p1 on side one, to move first.
func New(id string, p1, p2 Participant, clock clockwork.Clock) *Match {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Match{
		ID:        id,
		Board:     board.Empty(),
		Turn:      board.One,
		players:   [2]Participant{p1, p2},
		StartedAt: clock.Now(),
		clock:     clock,
	}
}

func idx(s board.Side) int { return int(s) - 1 }

func (m *Match) State() State {
	switch {
	case m.Outcome != OutcomeNone:
		return Finished
	case m.Paused():
		return AwaitingReconnection
	case m.Moves == 0:
		return AwaitingFirstMove
	default:
		return InProgress
	}
}

func (m *Match) Terminal() bool { return m.Outcome != OutcomeNone }

// Paused reports whether any participant is inside a grace period.
func (m *Match) Paused() bool { return m.away[0] != 0 || m.away[1] != 0 }

func (m *Match) Away(s board.Side) bool {
	if !s.Valid() {
		return false
	}
	return m.away[idx(s)] != 0
}

func (m *Match) Participant(s board.Side) Participant {
	if !s.Valid() {
		return Participant{}
	}
	return m.players[idx(s)]
}

func (m *Match) Participants() [2]Participant { return m.players }

func (m *Match) SideOf(name string) (board.Side, bool) {
	switch name {
	case "":
		return board.NoSide, false
	case m.players[0].Name:
		return board.One, true
	case m.players[1].Name:
		return board.Two, true
	}
	return board.NoSide, false
}

// Scripted reports whether either seat belongs to the scripted opponent.
func (m *Match) Scripted() bool { return m.players[0].Scripted || m.players[1].Scripted }

// ScriptedToMove reports whether the side to move is scripted and may play now.
func (m *Match) ScriptedToMove() bool {
	return !m.Terminal() && !m.Paused() && m.Participant(m.Turn).Scripted
}

// Move drops a disc for name in column.
func (m *Match) Move(name string, column int) (MoveResult, error) {
	if m.Terminal() {
		return MoveResult{}, ErrMatchOver
	}
	side, ok := m.SideOf(name)
	if !ok {
		return MoveResult{}, ErrNotParticipant
	}
	if m.Paused() {
		return MoveResult{}, ErrPaused
	}
	if side != m.Turn {
		return MoveResult{}, ErrNotYourTurn
	}
	pos, err := m.Board.Apply(column, side)
	if err != nil {
		return MoveResult{}, err
	}
	m.Moves++
	m.LastMove = &pos

	res := MoveResult{Side: side, Position: pos}
	switch {
	case m.Board.IsWinningMove(pos):
		if side == board.One {
			m.finish(OutcomeSideOne, ReasonConnect4)
		} else {
			m.finish(OutcomeSideTwo, ReasonConnect4)
		}
		res.Terminal = true
	case m.Board.IsDraw():
		m.finish(OutcomeDraw, ReasonDraw)
		res.Terminal = true
	default:
		m.Turn = side.Opponent()
	}
	return res, nil
}

// PlayScripted lets the scripted participant move through the same path as
// a human move.
func (m *Match) PlayScripted() (MoveResult, error) {
	if m.Terminal() {
		return MoveResult{}, ErrMatchOver
	}
	p := m.Participant(m.Turn)
	if !p.Scripted {
		return MoveResult{}, ErrNotScriptedTurn
	}
	col, err := opponent.ChooseColumn(m.Board, m.Turn)
	if err != nil {
		return MoveResult{}, fmt.Errorf("scripted move: %w", err)
	}
	return m.Move(p.Name, col)
}

// Disconnect marks name as away and returns the grace token that must be
// presented to ExpireGrace. ok is false when nothing changed.
func (m *Match) Disconnect(name string) (token uint64, ok bool) {
	if m.Terminal() {
		return 0, false
	}
	side, found := m.SideOf(name)
	if !found {
		return 0, false
	}
	i := idx(side)
	if m.players[i].Scripted || m.away[i] != 0 {
		return 0, false
	}
	m.gen++
	m.away[i] = m.gen
	m.players[i].Conn = ""
	return m.gen, true
}

// Reconnect rebinds name to conn, valid only while a grace token is pending.
func (m *Match) Reconnect(name string, conn ConnID) error {
	if m.Terminal() {
		return ErrMatchOver
	}
	side, ok := m.SideOf(name)
	if !ok {
		return ErrNotParticipant
	}
	i := idx(side)
	if m.away[i] == 0 {
		return ErrNotAway
	}
	m.away[i] = 0
	m.players[i].Conn = conn
	return nil
}

// ExpireGrace ends the match when token is still the pending one for name.
// The opponent wins by forfeit; if the opponent is away as well the match is
// abandoned without a winner. It reports whether the match ended.
func (m *Match) ExpireGrace(name string, token uint64) bool {
	if m.Terminal() || token == 0 {
		return false
	}
	side, ok := m.SideOf(name)
	if !ok {
		return false
	}
	i := idx(side)
	if m.away[i] != token {
		return false
	}
	m.away[i] = 0
	other := side.Opponent()
	if m.away[idx(other)] != 0 {
		m.away[idx(other)] = 0
		m.finish(OutcomeAbandoned, ReasonAbandoned)
		return true
	}
	if other == board.One {
		m.finish(OutcomeSideOne, ReasonForfeit)
	} else {
		m.finish(OutcomeSideTwo, ReasonForfeit)
	}
	return true
}

func (m *Match) finish(o Outcome, r EndReason) {
	m.Outcome = o
	m.Reason = r
	m.EndedAt = m.clock.Now()
}

// Winner returns the winning side, or NoSide.
func (m *Match) Winner() board.Side {
	switch m.Outcome {
	case OutcomeSideOne:
		return board.One
	case OutcomeSideTwo:
		return board.Two
	}
	return board.NoSide
}

// Result summarizes a terminal match.
func (m *Match) Result() Result {
	r := Result{
		MatchID:   m.ID,
		Player1:   m.players[0].Name,
		Player2:   m.players[1].Name,
		Draw:      m.Outcome == OutcomeDraw,
		Abandoned: m.Outcome == OutcomeAbandoned,
		Reason:    m.Reason,
		Scripted:  m.Scripted(),
		Moves:     m.Moves,
		StartedAt: m.StartedAt,
		EndedAt:   m.EndedAt,
	}
	if w := m.Winner(); w != board.NoSide {
		r.Winner = m.Participant(w).Name
	}
	end := m.EndedAt
	if end.IsZero() {
		end = m.clock.Now()
	}
	r.DurationSeconds = int(end.Sub(m.StartedAt) / time.Second)
	return r
}
