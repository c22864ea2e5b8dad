package board

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	Rows      = 6
	Cols      = 7
	WinLength = 4
)

// Side identifies a mark on the board. Zero is an empty cell.
type Side int

const (
	NoSide Side = 0
	One    Side = 1
	Two    Side = 2
)

// Opponent returns the other side. NoSide maps to NoSide.
func (s Side) Opponent() Side {
	switch s {
	case One:
		return Two
	case Two:
		return One
	default:
		return NoSide
	}
}

func (s Side) Valid() bool { return s == One || s == Two }

var (
	ErrInvalidColumn = errors.New("invalid column")
	ErrColumnFull    = errors.New("column is full")
	ErrInvalidSide   = errors.New("invalid side")
)

// Position is a cell coordinate. Row 0 is the top row.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Board is a value type; copying it yields an independent board.
type Board [Rows][Cols]Side

// axes used by the win check and the heuristic: horizontal, vertical, and both diagonals.
var axes = [4][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}}

func Empty() Board { return Board{} }

func (b *Board) inBounds(r, c int) bool {
	return r >= 0 && r < Rows && c >= 0 && c < Cols
}

// At returns the side occupying (row, col), or NoSide when out of range.
func (b *Board) At(row, col int) Side {
	if !b.inBounds(row, col) {
		return NoSide
	}
	return b[row][col]
}

// Apply drops a disc for side into column and returns where it landed.
func (b *Board) Apply(column int, side Side) (Position, error) {
	if column < 0 || column >= Cols {
		return Position{}, fmt.Errorf("%w: %d", ErrInvalidColumn, column)
	}
	if !side.Valid() {
		return Position{}, fmt.Errorf("%w: %d", ErrInvalidSide, side)
	}
	for row := Rows - 1; row >= 0; row-- {
		if b[row][column] == NoSide {
			b[row][column] = side
			return Position{Row: row, Col: column}, nil
		}
	}
	return Position{}, fmt.Errorf("%w: %d", ErrColumnFull, column)
}

// RunLength counts contiguous cells of the side at pos, walking from pos
// (exclusive) in direction (dr, dc).
func (b *Board) RunLength(pos Position, dr, dc int) int {
	side := b.At(pos.Row, pos.Col)
	if side == NoSide {
		return 0
	}
	n := 0
	r, c := pos.Row+dr, pos.Col+dc
	for b.inBounds(r, c) && b[r][c] == side {
		n++
		r += dr
		c += dc
	}
	return n
}

// Contiguous returns, per axis, the length of the line through pos including
// pos itself. Order: horizontal, vertical, diagonal, anti-diagonal.
func (b *Board) Contiguous(pos Position) [4]int {
	var out [4]int
	if b.At(pos.Row, pos.Col) == NoSide {
		return out
	}
	for i, d := range axes {
		out[i] = 1 + b.RunLength(pos, d[0], d[1]) + b.RunLength(pos, -d[0], -d[1])
	}
	return out
}

// IsWinningMove reports whether the disc at lastMove completes a line of
// WinLength or more on any axis.
func (b *Board) IsWinningMove(lastMove Position) bool {
	for _, n := range b.Contiguous(lastMove) {
		if n >= WinLength {
			return true
		}
	}
	return false
}

// IsDraw reports a full top row. Only meaningful after the win check for the
// same move came back false.
func (b *Board) IsDraw() bool {
	for c := 0; c < Cols; c++ {
		if b[0][c] == NoSide {
			return false
		}
	}
	return true
}

func (b *Board) ColumnFull(col int) bool {
	if col < 0 || col >= Cols {
		return true
	}
	return b[0][col] != NoSide
}

// LegalColumns lists columns with at least one empty cell, ascending.
func (b *Board) LegalColumns() []int {
	out := make([]int, 0, Cols)
	for c := 0; c < Cols; c++ {
		if b[0][c] == NoSide {
			out = append(out, c)
		}
	}
	return out
}

// Count returns the number of occupied cells.
func (b *Board) Count() int {
	n := 0
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			if b[r][c] != NoSide {
				n++
			}
		}
	}
	return n
}

// Cells returns the board as rows of ints, the wire representation.
func (b Board) Cells() [][]int {
	out := make([][]int, Rows)
	for r := 0; r < Rows; r++ {
		row := make([]int, Cols)
		for c := 0; c < Cols; c++ {
			row[c] = int(b[r][c])
		}
		out[r] = row
	}
	return out
}

func (b Board) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Cells())
}

func (b *Board) UnmarshalJSON(raw []byte) error {
	var cells [][]int
	if err := json.Unmarshal(raw, &cells); err != nil {
		return err
	}
	nb, err := FromCells(cells)
	if err != nil {
		return err
	}
	*b = nb
	return nil
}

// FromCells is the inverse of Cells.
func FromCells(cells [][]int) (Board, error) {
	var nb Board
	if len(cells) != Rows {
		return nb, fmt.Errorf("board: want %d rows, got %d", Rows, len(cells))
	}
	for r, row := range cells {
		if len(row) != Cols {
			return nb, fmt.Errorf("board: row %d: want %d cols, got %d", r, Cols, len(row))
		}
		for c, v := range row {
			s := Side(v)
			if s != NoSide && !s.Valid() {
				return nb, fmt.Errorf("board: cell (%d,%d): %w", r, c, ErrInvalidSide)
			}
			nb[r][c] = s
		}
	}
	return nb, nil
}

// String renders the board as ASCII rows, top first ('.', 'X', 'O').
func (b Board) String() string {
	out := make([]byte, 0, Rows*(Cols+1))
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			switch b[r][c] {
			case One:
				out = append(out, 'X')
			case Two:
				out = append(out, 'O')
			default:
				out = append(out, '.')
			}
		}
		out = append(out, '\n')
	}
	return string(out)
}
