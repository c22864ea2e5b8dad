package board

import (
	"encoding/json"
	"errors"
	"testing"
)

func mustApply(t *testing.T, b *Board, col int, s Side) Position {
	t.Helper()
	pos, err := b.Apply(col, s)
	if err != nil {
		t.Fatalf("Apply(%d, %d): %v", col, s, err)
	}
	return pos
}

func TestApply_Gravity(t *testing.T) {
	b := Empty()
	for i := 0; i < Rows; i++ {
		pos := mustApply(t, &b, 2, One)
		if pos.Row != Rows-1-i || pos.Col != 2 {
			t.Fatalf("drop %d landed at %+v", i, pos)
		}
	}
	if _, err := b.Apply(2, Two); !errors.Is(err, ErrColumnFull) {
		t.Fatalf("seventh drop: want ErrColumnFull, got %v", err)
	}
	// column-wide fullness: every cell above the landing row is occupied
	for r := 0; r < Rows; r++ {
		if b[r][2] != One {
			t.Fatalf("cell (%d,2) = %d", r, b[r][2])
		}
	}
}

func TestApply_Rejects(t *testing.T) {
	b := Empty()
	if _, err := b.Apply(-1, One); !errors.Is(err, ErrInvalidColumn) {
		t.Fatalf("col -1: %v", err)
	}
	if _, err := b.Apply(Cols, One); !errors.Is(err, ErrInvalidColumn) {
		t.Fatalf("col 7: %v", err)
	}
	if _, err := b.Apply(0, NoSide); !errors.Is(err, ErrInvalidSide) {
		t.Fatalf("side 0: %v", err)
	}
	if b.Count() != 0 {
		t.Fatalf("rejected moves mutated board:\n%s", b)
	}
}

func TestApply_DoesNotAliasCopies(t *testing.T) {
	a := Empty()
	mustApply(t, &a, 0, One)
	c := a
	mustApply(t, &c, 0, Two)
	if a.Count() != 1 || c.Count() != 2 {
		t.Fatalf("copy aliased: a=%d c=%d", a.Count(), c.Count())
	}
}

func TestIsWinningMove_Vertical(t *testing.T) {
	b := Empty()
	var last Position
	for i := 0; i < 4; i++ {
		last = mustApply(t, &b, 3, One)
	}
	if last.Row != 2 || last.Col != 3 {
		t.Fatalf("fourth drop at %+v, want row 2 col 3", last)
	}
	if !b.IsWinningMove(last) {
		t.Fatalf("vertical four not detected:\n%s", b)
	}
}

func TestIsWinningMove_ThreeIsNotEnough(t *testing.T) {
	b := Empty()
	var last Position
	for c := 0; c < 3; c++ {
		last = mustApply(t, &b, c, Two)
	}
	if b.IsWinningMove(last) {
		t.Fatalf("run of three reported as win")
	}
	last = mustApply(t, &b, 3, Two)
	if !b.IsWinningMove(last) {
		t.Fatalf("horizontal four not detected")
	}
}

func TestIsWinningMove_MiddleOfRun(t *testing.T) {
	b := Empty()
	mustApply(t, &b, 0, One)
	mustApply(t, &b, 1, One)
	mustApply(t, &b, 3, One)
	last := mustApply(t, &b, 2, One)
	if !b.IsWinningMove(last) {
		t.Fatalf("gap fill should win")
	}
}

func TestIsWinningMove_Diagonals(t *testing.T) {
	// rising to the right: (5,0) (4,1) (3,2) (2,3)
	b := Empty()
	mustApply(t, &b, 0, One)
	mustApply(t, &b, 1, Two)
	mustApply(t, &b, 1, One)
	mustApply(t, &b, 2, Two)
	mustApply(t, &b, 2, Two)
	mustApply(t, &b, 2, One)
	mustApply(t, &b, 3, Two)
	mustApply(t, &b, 3, Two)
	mustApply(t, &b, 3, Two)
	last := mustApply(t, &b, 3, One)
	if !b.IsWinningMove(last) {
		t.Fatalf("anti-diagonal four not detected:\n%s", b)
	}

	// falling to the right: (2,3) (3,4) (4,5) (5,6)
	b = Empty()
	mustApply(t, &b, 6, Two)
	mustApply(t, &b, 5, One)
	mustApply(t, &b, 5, Two)
	mustApply(t, &b, 4, One)
	mustApply(t, &b, 4, One)
	mustApply(t, &b, 4, Two)
	mustApply(t, &b, 3, One)
	mustApply(t, &b, 3, One)
	mustApply(t, &b, 3, One)
	last = mustApply(t, &b, 3, Two)
	if !b.IsWinningMove(last) {
		t.Fatalf("diagonal four not detected:\n%s", b)
	}
}

func TestIsDraw_FullBoardWithoutFour(t *testing.T) {
	// bottom half per pattern, top half inverted: no line reaches four
	pattern := [Cols]Side{One, One, Two, One, One, Two, One}
	b := Empty()
	for c := 0; c < Cols; c++ {
		s := pattern[c]
		for r := 0; r < Rows; r++ {
			if r == 3 {
				s = s.Opponent()
			}
			pos := mustApply(t, &b, c, s)
			if b.IsWinningMove(pos) {
				t.Fatalf("unexpected win at %+v:\n%s", pos, b)
			}
		}
	}
	if !b.IsDraw() {
		t.Fatalf("full board not a draw:\n%s", b)
	}
	if len(b.LegalColumns()) != 0 {
		t.Fatalf("legal columns on full board: %v", b.LegalColumns())
	}
}

func TestLegalColumns(t *testing.T) {
	b := Empty()
	for i := 0; i < Rows; i++ {
		mustApply(t, &b, 4, Side(i%2+1))
	}
	got := b.LegalColumns()
	want := []int{0, 1, 2, 3, 5, 6}
	if len(got) != len(want) {
		t.Fatalf("LegalColumns=%v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("LegalColumns=%v", got)
		}
	}
	if b.IsDraw() {
		t.Fatalf("partial board reported draw")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	b := Empty()
	mustApply(t, &b, 3, One)
	mustApply(t, &b, 3, Two)
	raw, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var cells [][]int
	if err := json.Unmarshal(raw, &cells); err != nil {
		t.Fatalf("unmarshal cells: %v", err)
	}
	if len(cells) != Rows || len(cells[0]) != Cols || cells[5][3] != 1 || cells[4][3] != 2 {
		t.Fatalf("unexpected cells: %s", raw)
	}
	var back Board
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal board: %v", err)
	}
	if back != b {
		t.Fatalf("round trip mismatch")
	}
	if err := json.Unmarshal([]byte(`[[1]]`), &back); err == nil {
		t.Fatalf("short board accepted")
	}
}
