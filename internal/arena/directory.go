package arena

import (
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/park285/cheese-connect4/internal/board"
	"github.com/park285/cheese-connect4/internal/match"
)

// table wraps a match with its lock and timers.
type table struct {
	mu sync.Mutex
	m  *match.Match

	grace  [2]clockwork.Timer
	bot    clockwork.Timer
	botGen uint64
	// set once the terminal outcome has been announced and recorded
	finished bool
	// guarded by the arena mutex
	removed bool
}

func (t *table) stopGrace(s board.Side) {
	if !s.Valid() {
		return
	}
	i := int(s) - 1
	if t.grace[i] != nil {
		t.grace[i].Stop()
		t.grace[i] = nil
	}
}

// cancelBot invalidates any scheduled scripted move.
func (t *table) cancelBot() {
	t.botGen++
	if t.bot != nil {
		t.bot.Stop()
		t.bot = nil
	}
}

func (t *table) stopTimers() {
	t.stopGrace(board.One)
	t.stopGrace(board.Two)
	t.cancelBot()
}

// Directory indexes connections, names and matches. Guarded by the arena
// mutex.
type Directory struct {
	conns  map[match.ConnID]string
	byName map[string]*table
	byID   map[string]*table
}

func newDirectory() *Directory {
	return &Directory{
		conns:  make(map[match.ConnID]string),
		byName: make(map[string]*table),
		byID:   make(map[string]*table),
	}
}

func (d *Directory) bind(conn match.ConnID, name string) { d.conns[conn] = name }

// unbind removes conn only while it still maps to name.
func (d *Directory) unbind(conn match.ConnID, name string) {
	if conn == "" {
		return
	}
	if cur, ok := d.conns[conn]; ok && cur == name {
		delete(d.conns, conn)
	}
}

func (d *Directory) nameOf(conn match.ConnID) (string, bool) {
	n, ok := d.conns[conn]
	return n, ok
}

func (d *Directory) add(t *table) {
	d.byID[t.m.ID] = t
	for _, p := range t.m.Participants() {
		if p.Scripted {
			continue
		}
		d.byName[p.Name] = t
		if p.Conn != "" {
			d.conns[p.Conn] = p.Name
		}
	}
}

// remove drops every index entry that still points at t. participants is
// read by the caller under the match lock.
func (d *Directory) remove(t *table, id string, participants [2]match.Participant) {
	if d.byID[id] == t {
		delete(d.byID, id)
	}
	for _, p := range participants {
		if p.Scripted {
			continue
		}
		if d.byName[p.Name] == t {
			delete(d.byName, p.Name)
		}
		d.unbind(p.Conn, p.Name)
	}
}

func (d *Directory) matchOf(name string) *table { return d.byName[name] }

func (d *Directory) match(id string) *table { return d.byID[id] }

func (d *Directory) tables() []*table {
	out := make([]*table, 0, len(d.byID))
	for _, t := range d.byID {
		out = append(out, t)
	}
	return out
}

func (d *Directory) Len() int { return len(d.byID) }

func (d *Directory) Connections() int { return len(d.conns) }
