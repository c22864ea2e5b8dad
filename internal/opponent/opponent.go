package opponent

import (
	"errors"
	"sort"
	"time"

	"github.com/park285/cheese-connect4/internal/board"
)

// Delay is the pause before a scripted move is played.
const Delay = 500 * time.Millisecond

const (
	centerWeight    = 10
	connectWeight   = 50
	givesWinPenalty = 1000
)

var ErrNoLegalMove = errors.New("no legal move")

// Candidate is a scored column. Forced marks an immediate win or block,
// which bypasses scoring.
type Candidate struct {
	Column int
	Score  int
	Forced bool
}

// ChooseColumn picks the column for side. Same input, same answer.
func ChooseColumn(b board.Board, side board.Side) (int, error) {
	c, err := Best(b, side)
	if err != nil {
		return -1, err
	}
	return c.Column, nil
}

// Best returns the chosen candidate with its score.
func Best(b board.Board, side board.Side) (Candidate, error) {
	if !side.Valid() {
		return Candidate{}, board.ErrInvalidSide
	}
	legal := b.LegalColumns()
	if len(legal) == 0 {
		return Candidate{}, ErrNoLegalMove
	}
	if col, ok := winningColumn(b, side, legal); ok {
		return Candidate{Column: col, Forced: true}, nil
	}
	if col, ok := winningColumn(b, side.Opponent(), legal); ok {
		return Candidate{Column: col, Forced: true}, nil
	}
	ranked := Rank(b, side)
	return ranked[0], nil
}

// Rank scores every legal column, highest first; ties keep ascending column order.
func Rank(b board.Board, side board.Side) []Candidate {
	legal := b.LegalColumns()
	out := make([]Candidate, 0, len(legal))
	for _, col := range legal {
		out = append(out, Candidate{Column: col, Score: score(b, col, side)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func winningColumn(b board.Board, side board.Side, legal []int) (int, bool) {
	for _, col := range legal {
		sim := b
		pos, err := sim.Apply(col, side)
		if err != nil {
			continue
		}
		if sim.IsWinningMove(pos) {
			return col, true
		}
	}
	return -1, false
}

func score(b board.Board, col int, side board.Side) int {
	s := (board.Cols - abs(col-board.Cols/2)) * centerWeight

	sim := b
	pos, err := sim.Apply(col, side)
	if err != nil {
		return -givesWinPenalty
	}

	connections := 0
	for _, n := range sim.Contiguous(pos) {
		if n >= 2 {
			connections += n
		}
	}
	s += connections * connectWeight

	// 바로 위 칸에 상대가 두면 이기는 수는 피한다
	if pos.Row > 0 {
		above := sim
		if p2, err := above.Apply(col, side.Opponent()); err == nil && above.IsWinningMove(p2) {
			s -= givesWinPenalty
		}
	}
	return s
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
