package opponent

import (
	"errors"
	"testing"

	"github.com/park285/cheese-connect4/internal/board"
)

func build(t *testing.T, moves ...[2]int) board.Board {
	t.Helper()
	b := board.Empty()
	for _, m := range moves {
		if _, err := b.Apply(m[0], board.Side(m[1])); err != nil {
			t.Fatalf("setup Apply(%d,%d): %v", m[0], m[1], err)
		}
	}
	return b
}

func TestChooseColumn_EmptyBoardPrefersCenter(t *testing.T) {
	for _, side := range []board.Side{board.One, board.Two} {
		col, err := ChooseColumn(board.Empty(), side)
		if err != nil {
			t.Fatalf("ChooseColumn: %v", err)
		}
		if col != 3 {
			t.Fatalf("side %d: want center column, got %d", side, col)
		}
	}
}

func TestChooseColumn_WinBeforeBlock(t *testing.T) {
	b := build(t,
		[2]int{0, 1}, [2]int{6, 2},
		[2]int{0, 1}, [2]int{6, 2},
		[2]int{0, 1}, [2]int{6, 2},
	)
	col, err := ChooseColumn(b, board.One)
	if err != nil {
		t.Fatalf("ChooseColumn: %v", err)
	}
	if col != 0 {
		t.Fatalf("side 1 should take its own win in column 0, got %d", col)
	}
	col, err = ChooseColumn(b, board.Two)
	if err != nil {
		t.Fatalf("ChooseColumn: %v", err)
	}
	if col != 6 {
		t.Fatalf("side 2 should take its own win in column 6, got %d", col)
	}
}

func TestChooseColumn_BlocksImmediateThreat(t *testing.T) {
	b := build(t,
		[2]int{0, 1}, [2]int{6, 2},
		[2]int{1, 1}, [2]int{6, 2},
		[2]int{5, 2}, [2]int{6, 2},
	)
	c, err := Best(b, board.One)
	if err != nil {
		t.Fatalf("Best: %v", err)
	}
	if c.Column != 6 || !c.Forced {
		t.Fatalf("expected forced block at column 6, got %+v", c)
	}
}

func TestChooseColumn_AvoidsGivingWinAbove(t *testing.T) {
	// row 4 holds three side-2 discs in columns 0..2; a disc in column 3
	// would let side 2 complete the row right on top of it.
	b := build(t,
		[2]int{0, 1}, [2]int{0, 2},
		[2]int{1, 2}, [2]int{1, 2},
		[2]int{2, 1}, [2]int{2, 2},
	)
	ranked := Rank(b, board.One)
	last := ranked[len(ranked)-1]
	if last.Column != 3 || last.Score != 70+100-1000 {
		t.Fatalf("column 3 should rank last with penalty, got %+v (all %+v)", last, ranked)
	}
	col, err := ChooseColumn(b, board.One)
	if err != nil {
		t.Fatalf("ChooseColumn: %v", err)
	}
	if col != 2 {
		t.Fatalf("want column 2 (tie with 4 goes low), got %d", col)
	}
}

func TestChooseColumn_Deterministic(t *testing.T) {
	b := build(t, [2]int{3, 1}, [2]int{3, 2}, [2]int{2, 1}, [2]int{4, 2})
	first, err := ChooseColumn(b, board.One)
	if err != nil {
		t.Fatalf("ChooseColumn: %v", err)
	}
	for i := 0; i < 50; i++ {
		got, err := ChooseColumn(b, board.One)
		if err != nil || got != first {
			t.Fatalf("iteration %d: got %d (%v), want %d", i, got, err, first)
		}
	}
}

func TestChooseColumn_SkipsFullColumns(t *testing.T) {
	b := board.Empty()
	for i := 0; i < board.Rows; i++ {
		if _, err := b.Apply(3, board.Side(i%2+1)); err != nil {
			t.Fatalf("fill: %v", err)
		}
	}
	col, err := ChooseColumn(b, board.One)
	if err != nil {
		t.Fatalf("ChooseColumn: %v", err)
	}
	if col == 3 || b.ColumnFull(col) {
		t.Fatalf("chose full column %d", col)
	}
}

func TestChooseColumn_FullBoard(t *testing.T) {
	pattern := [board.Cols]board.Side{board.One, board.One, board.Two, board.One, board.One, board.Two, board.One}
	b := board.Empty()
	for c := 0; c < board.Cols; c++ {
		s := pattern[c]
		for r := 0; r < board.Rows; r++ {
			if r == 3 {
				s = s.Opponent()
			}
			if _, err := b.Apply(c, s); err != nil {
				t.Fatalf("fill: %v", err)
			}
		}
	}
	if _, err := ChooseColumn(b, board.Two); !errors.Is(err, ErrNoLegalMove) {
		t.Fatalf("want ErrNoLegalMove, got %v", err)
	}
}
