package lobby

import (
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/park285/cheese-connect4/internal/match"
)

var (
	ErrInvalidArgs    = errors.New("invalid arguments")
	ErrAlreadyWaiting = errors.New("already waiting for an opponent")
)

// TickInterval is the spacing of countdown notifications while waiting.
const TickInterval = time.Second

// Entry is the single waiting participant.
type Entry struct {
	Conn  match.ConnID
	Name  string
	Since time.Time
}

// Pairing is the outcome of Join. When Paired is false the entry was parked
// under Ticket until Deadline.
type Pairing struct {
	Paired   bool
	Waiting  Entry
	Arrival  Entry
	Ticket   uint64
	Deadline time.Time
}

// Hooks are invoked from timer goroutines with the ticket they were armed
// for. Implementations must call back into Claim or Tick to validate it.
type Hooks struct {
	Expire func(ticket uint64)
	Tick   func(ticket uint64)
}

type slot struct {
	entry    Entry
	ticket   uint64
	deadline time.Time
	wait     clockwork.Timer
	tick     clockwork.Timer
}

// Queue holds at most one waiting entry.
type Queue struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	timeout time.Duration
	hooks   Hooks
	cur     *slot
	seq     uint64
}

func NewQueue(clock clockwork.Clock, timeout time.Duration, hooks Hooks) *Queue {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Queue{clock: clock, timeout: timeout, hooks: hooks}
}

// Join pairs e with the waiting entry, or parks e when the slot is empty.
func (q *Queue) Join(e Entry) (Pairing, error) {
	if e.Name == "" || e.Conn == "" {
		return Pairing{}, ErrInvalidArgs
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.cur != nil {
		if q.cur.entry.Name == e.Name || q.cur.entry.Conn == e.Conn {
			return Pairing{}, ErrAlreadyWaiting
		}
		waiting := q.cur.entry
		q.clearLocked()
		return Pairing{Paired: true, Waiting: waiting, Arrival: e}, nil
	}

	q.seq++
	now := q.clock.Now()
	e.Since = now
	s := &slot{entry: e, ticket: q.seq, deadline: now.Add(q.timeout)}
	ticket := s.ticket
	if q.hooks.Expire != nil {
		s.wait = q.clock.AfterFunc(q.timeout, func() { q.hooks.Expire(ticket) })
	}
	if q.hooks.Tick != nil && q.timeout > TickInterval {
		s.tick = q.clock.AfterFunc(TickInterval, func() { q.hooks.Tick(ticket) })
	}
	q.cur = s
	return Pairing{Ticket: ticket, Deadline: s.deadline, Arrival: e}, nil
}

// Claim removes the waiting entry if ticket is still current.
func (q *Queue) Claim(ticket uint64) (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cur == nil || q.cur.ticket != ticket {
		return Entry{}, false
	}
	e := q.cur.entry
	q.clearLocked()
	return e, true
}

// Tick reports whole seconds left for ticket and arms the next tick while
// time remains.
func (q *Queue) Tick(ticket uint64) (Entry, int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cur == nil || q.cur.ticket != ticket {
		return Entry{}, 0, false
	}
	left := q.cur.deadline.Sub(q.clock.Now())
	secs := int((left + time.Second - 1) / time.Second)
	if secs <= 0 {
		return q.cur.entry, 0, false
	}
	if secs > 1 && q.hooks.Tick != nil {
		q.cur.tick = q.clock.AfterFunc(TickInterval, func() { q.hooks.Tick(ticket) })
	}
	return q.cur.entry, secs, true
}

// Leave drops the waiting entry owned by conn.
func (q *Queue) Leave(conn match.ConnID) (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cur == nil || q.cur.entry.Conn != conn {
		return Entry{}, false
	}
	e := q.cur.entry
	q.clearLocked()
	return e, true
}

// Waiting returns the parked entry, if any.
func (q *Queue) Waiting() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cur == nil {
		return Entry{}, false
	}
	return q.cur.entry, true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cur == nil {
		return 0
	}
	return 1
}

// Close cancels pending timers and empties the slot.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.clearLocked()
}

func (q *Queue) clearLocked() {
	if q.cur == nil {
		return
	}
	if q.cur.wait != nil {
		q.cur.wait.Stop()
	}
	if q.cur.tick != nil {
		q.cur.tick.Stop()
	}
	q.cur = nil
}
