package msgcat

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/park285/cheese-connect4/pkg/wire"
)

func TestEmbeddedCoversEveryReason(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, r := range wire.Reasons {
		if !c.Has("reject." + string(r)) {
			t.Fatalf("missing message for %s", r)
		}
	}
	got := c.Rejection(wire.ReasonColumnFull, map[string]any{"column": 3})
	if got != "Column 3 is full." {
		t.Fatalf("ColumnFull rendered %q", got)
	}
}

func TestRejectionFallsBackToCode(t *testing.T) {
	c := MustDefault()
	// missing data key makes the template fail
	if got := c.Rejection(wire.ReasonColumnFull, nil); got != string(wire.ReasonColumnFull) {
		t.Fatalf("fallback=%q", got)
	}
	var nilCat *Catalog
	if got := nilCat.Rejection(wire.ReasonNotYourTurn, nil); got != "NotYourTurn" {
		t.Fatalf("nil catalog=%q", got)
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("reject:\n  NotYourTurn: \"Wait.\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Rejection(wire.ReasonNotYourTurn, nil); got != "Wait." {
		t.Fatalf("override not applied: %q", got)
	}

	if err := os.WriteFile(filepath.Join(dir, "b.yml"), []byte("reject:\n  NotYourTurn: \"Again.\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("duplicate override keys accepted")
	}
}
