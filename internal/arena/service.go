package arena

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/park285/cheese-connect4/internal/analytics"
	"github.com/park285/cheese-connect4/internal/board"
	"github.com/park285/cheese-connect4/internal/lobby"
	"github.com/park285/cheese-connect4/internal/match"
	"github.com/park285/cheese-connect4/internal/msgcat"
	"github.com/park285/cheese-connect4/pkg/wire"
)

const eventBuffer = 1024

// Service owns matchmaking, the match directory and every timer. Lock order
// is s.mu before table.mu; code holding a table lock never takes s.mu.
type Service struct {
	mu     sync.Mutex
	cfg    Config
	queue  *lobby.Queue
	dir    *Directory
	closed bool

	clock    clockwork.Clock
	notifier Notifier
	results  ResultRecorder
	events   EventSink
	cat      *msgcat.Catalog
	metrics  *Metrics
	logger   *zap.Logger
	newID    func() string

	// result writes in flight; draining is set by Close before wg.Wait
	wgMu     sync.Mutex
	draining bool
	wg       sync.WaitGroup

	evMu     sync.RWMutex
	evCh     chan analytics.Event
	evClosed bool
	evDone   chan struct{}
}

type Option func(*Service)

func WithClock(c clockwork.Clock) Option { return func(s *Service) { s.clock = c } }

func WithResults(r ResultRecorder) Option { return func(s *Service) { s.results = r } }

func WithEvents(e EventSink) Option { return func(s *Service) { s.events = e } }

func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.logger = l } }

func WithMetrics(m *Metrics) Option { return func(s *Service) { s.metrics = m } }

func WithCatalog(c *msgcat.Catalog) Option { return func(s *Service) { s.cat = c } }

// WithIDGenerator overrides match id generation (uuid by default).
func WithIDGenerator(f func() string) Option { return func(s *Service) { s.newID = f } }

func New(cfg Config, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		cfg:      cfg.withDefaults(),
		dir:      newDirectory(),
		clock:    clockwork.NewRealClock(),
		notifier: notifier,
		logger:   zap.NewNop(),
		newID:    uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	if s.notifier == nil {
		s.notifier = NotifierFunc(func(match.ConnID, wire.Message) {})
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.queue = lobby.NewQueue(s.clock, s.cfg.MatchmakingTimeout, lobby.Hooks{
		Expire: s.onWaitExpired,
		Tick:   s.onCountdown,
	})
	if s.events != nil {
		s.evCh = make(chan analytics.Event, eventBuffer)
		s.evDone = make(chan struct{})
		go s.drainEvents()
	}
	return s
}

// Join parks the participant in the matchmaking slot or pairs it with the
// one already waiting.
func (s *Service) Join(conn match.ConnID, name string) error {
	err := s.join(conn, strings.TrimSpace(name))
	if err != nil {
		s.reject(conn, err, nil)
	}
	return err
}

func (s *Service) join(conn match.ConnID, name string) error {
	if conn == "" {
		return ErrInvalidRequest
	}
	if err := s.validName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, bound := s.dir.nameOf(conn); bound {
		return ErrAlreadyInMatch
	}
	if t := s.dir.matchOf(name); t != nil {
		if !t.done() {
			return ErrAlreadyInMatch
		}
		// finished, teardown not yet run
		s.removeLocked(t)
	}

	p, err := s.queue.Join(lobby.Entry{Conn: conn, Name: name})
	if errors.Is(err, lobby.ErrAlreadyWaiting) {
		return fmt.Errorf("%w: %w", ErrAlreadyInMatch, err)
	}
	if err != nil {
		return err
	}
	if !p.Paired {
		s.dir.bind(conn, name)
		s.metrics.setWaiting(1)
		s.notifier.Send(conn, wire.NewWaiting(seconds(s.cfg.MatchmakingTimeout)))
		s.logger.Info("lobby_wait",
			zap.String("name", name),
			zap.Uint64("ticket", p.Ticket),
			zap.Time("deadline", p.Deadline),
		)
		return nil
	}
	s.metrics.setWaiting(0)
	s.startLocked(
		match.Participant{Name: p.Waiting.Name, Conn: p.Waiting.Conn},
		match.Participant{Name: name, Conn: conn},
	)
	return nil
}

func (s *Service) validName(name string) error {
	switch {
	case name == "":
		return ErrInvalidName
	case len(name) > wire.MaxNameLength:
		return ErrInvalidName
	case strings.EqualFold(name, s.cfg.ScriptedName):
		return ErrInvalidName
	}
	return nil
}

// startLocked creates and announces a match. Caller holds s.mu.
func (s *Service) startLocked(p1, p2 match.Participant) {
	m := match.New(s.newID(), p1, p2, s.clock)
	t := &table{m: m}
	s.dir.add(t)
	s.metrics.matchStarted(m.Scripted())

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, side := range []board.Side{board.One, board.Two} {
		s.sendTo(m.Participant(side), stateMessage(m, side, wire.TypeMatchStarted))
	}
	s.emit(analytics.Event{
		Type:     analytics.EventMatchStart,
		MatchID:  m.ID,
		Players:  []string{p1.Name, p2.Name},
		Scripted: m.Scripted(),
		At:       m.StartedAt,
	})
	s.logger.Info("match_start",
		zap.String("match_id", m.ID),
		zap.String("player1", p1.Name),
		zap.String("player2", p2.Name),
		zap.Bool("scripted", m.Scripted()),
	)
	s.scheduleBotLocked(t)
}

func (s *Service) onWaitExpired(ticket uint64) {
	defer s.guard("wait_expired")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	e, ok := s.queue.Claim(ticket)
	if !ok {
		return
	}
	s.metrics.setWaiting(0)
	s.logger.Info("lobby_promote", zap.String("name", e.Name), zap.Uint64("ticket", ticket))
	s.startLocked(
		match.Participant{Name: e.Name, Conn: e.Conn},
		match.Participant{Name: s.cfg.ScriptedName, Scripted: true},
	)
}

func (s *Service) onCountdown(ticket uint64) {
	defer s.guard("countdown")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	e, secs, ok := s.queue.Tick(ticket)
	if !ok {
		return
	}
	s.notifier.Send(e.Conn, wire.NewCountdownTick(secs))
}

// Move drops a disc for the participant bound to conn.
func (s *Service) Move(conn match.ConnID, column int) error {
	err := s.move(conn, column)
	if err != nil {
		s.reject(conn, err, map[string]any{"column": column})
	}
	return err
}

func (s *Service) move(conn match.ConnID, column int) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	name, ok := s.dir.nameOf(conn)
	var t *table
	if ok {
		t = s.dir.matchOf(name)
	}
	s.mu.Unlock()
	if t == nil {
		return ErrMatchNotFound
	}

	ended, err := s.playHuman(t, name, conn, column)
	if ended {
		s.teardown(t)
	}
	return err
}

func (s *Service) playHuman(t *table, name string, conn match.ConnID, column int) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	side, ok := t.m.SideOf(name)
	if !ok || t.m.Participant(side).Conn != conn {
		return false, ErrMatchNotFound
	}
	res, err := t.m.Move(name, column)
	if err != nil {
		return false, err
	}
	return s.appliedLocked(t, res), nil
}

// appliedLocked broadcasts an applied move and either finishes the match or
// hands the turn on. It reports whether the match ended.
func (s *Service) appliedLocked(t *table, res match.MoveResult) bool {
	m := t.m
	s.metrics.moveMade()
	s.broadcastLocked(t, wire.BoardUpdated{
		Type:     wire.TypeBoardUpdated,
		Board:    m.Board.Cells(),
		Turn:     int(m.Turn),
		LastMove: wire.Position{Row: res.Position.Row, Col: res.Position.Col},
		Side:     int(res.Side),
	})
	row, col := res.Position.Row, res.Position.Col
	s.emit(analytics.Event{
		Type:       analytics.EventMoveMade,
		MatchID:    m.ID,
		Player:     m.Participant(res.Side).Name,
		Side:       int(res.Side),
		Row:        &row,
		Column:     &col,
		MoveNumber: m.Moves,
	})
	if res.Terminal {
		s.finishLocked(t)
		return true
	}
	s.scheduleBotLocked(t)
	return false
}

// scheduleBotLocked arms the scripted reply when the scripted side is to
// move and nobody is away.
func (s *Service) scheduleBotLocked(t *table) {
	if t.finished || !t.m.ScriptedToMove() {
		return
	}
	t.cancelBot()
	gen := t.botGen
	t.bot = s.clock.AfterFunc(s.cfg.ScriptedDelay, func() { s.playScripted(t, gen) })
}

func (s *Service) playScripted(t *table, gen uint64) {
	defer s.guard("scripted_move")
	ended := func() bool {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.botGen != gen || t.finished || !t.m.ScriptedToMove() {
			return false
		}
		t.bot = nil
		res, err := t.m.PlayScripted()
		if err != nil {
			s.logger.Error("scripted_move_error", zap.String("match_id", t.m.ID), zap.Error(err))
			return false
		}
		return s.appliedLocked(t, res)
	}()
	if ended {
		s.teardown(t)
	}
}

// finishLocked announces the terminal state once and hands the result to
// the recorder. Abandoned matches are never recorded.
func (s *Service) finishLocked(t *table) {
	if t.finished {
		return
	}
	t.finished = true
	t.stopTimers()

	m := t.m
	r := m.Result()
	ended := wire.MatchEnded{
		Type:   wire.TypeMatchEnded,
		Board:  m.Board.Cells(),
		Draw:   r.Draw,
		Reason: string(r.Reason),
	}
	if w := m.Winner(); w != board.NoSide {
		name, side := r.Winner, int(w)
		ended.Winner = &name
		ended.WinnerSide = &side
	}
	s.broadcastLocked(t, ended)
	s.metrics.matchEnded(string(r.Reason))
	s.logger.Info("match_end",
		zap.String("match_id", r.MatchID),
		zap.String("winner", r.Winner),
		zap.String("reason", string(r.Reason)),
		zap.Int("moves", r.Moves),
		zap.Int("duration_seconds", r.DurationSeconds),
	)

	if r.Abandoned {
		s.emit(analytics.Event{
			Type:            analytics.EventMatchAbandoned,
			MatchID:         r.MatchID,
			Players:         []string{r.Player1, r.Player2},
			Reason:          string(r.Reason),
			Scripted:        r.Scripted,
			DurationSeconds: r.DurationSeconds,
			At:              r.EndedAt,
		})
		return
	}
	s.emit(analytics.Event{
		Type:            analytics.EventMatchEnd,
		MatchID:         r.MatchID,
		Players:         []string{r.Player1, r.Player2},
		Winner:          r.Winner,
		Reason:          string(r.Reason),
		Scripted:        r.Scripted,
		DurationSeconds: r.DurationSeconds,
		At:              r.EndedAt,
	})
	s.record(r)
}

func (s *Service) record(r match.Result) {
	if s.results == nil {
		return
	}
	s.wgMu.Lock()
	if s.draining {
		s.wgMu.Unlock()
		s.logger.Warn("match_result_dropped", zap.String("match_id", r.MatchID), zap.String("cause", "closed"))
		return
	}
	s.wg.Add(1)
	s.wgMu.Unlock()
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.CollaboratorTimeout)
		defer cancel()
		if err := s.results.RecordMatchResult(ctx, r); err != nil {
			s.logger.Warn("match_result_record_error", zap.String("match_id", r.MatchID), zap.Error(err))
		}
	}()
}

// Disconnect handles a closed connection. Stale connections that no longer
// own a seat are ignored.
func (s *Service) Disconnect(conn match.ConnID) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if e, ok := s.queue.Leave(conn); ok {
		s.dir.unbind(conn, e.Name)
		s.metrics.setWaiting(0)
		s.mu.Unlock()
		s.logger.Info("lobby_leave", zap.String("name", e.Name))
		return
	}
	name, ok := s.dir.nameOf(conn)
	var t *table
	if ok {
		t = s.dir.matchOf(name)
		s.dir.unbind(conn, name)
	}
	s.mu.Unlock()
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	side, ok := t.m.SideOf(name)
	if !ok || t.m.Participant(side).Conn != conn {
		return
	}
	tok, ok := t.m.Disconnect(name)
	if !ok {
		return
	}
	t.cancelBot()
	t.stopGrace(side)
	t.grace[int(side)-1] = s.clock.AfterFunc(s.cfg.GracePeriod, func() { s.expireGrace(t, name, tok) })

	s.sendTo(t.m.Participant(side.Opponent()), wire.NewOpponentDisconnected(seconds(s.cfg.GracePeriod)))
	s.emit(analytics.Event{
		Type:    analytics.EventPlayerDisconnected,
		MatchID: t.m.ID,
		Player:  name,
		Side:    int(side),
	})
	s.logger.Info("player_disconnected",
		zap.String("match_id", t.m.ID),
		zap.String("name", name),
		zap.Duration("grace", s.cfg.GracePeriod),
	)
}

func (s *Service) expireGrace(t *table, name string, token uint64) {
	defer s.guard("grace_expired")
	ended := func() bool {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.finished {
			return false
		}
		side, _ := t.m.SideOf(name)
		if !t.m.ExpireGrace(name, token) {
			return false
		}
		t.grace[int(side)-1] = nil
		s.logger.Info("grace_expired", zap.String("match_id", t.m.ID), zap.String("name", name))
		s.finishLocked(t)
		return true
	}()
	if ended {
		s.teardown(t)
	}
}

// Reconnect restores an away participant onto conn. Either name or matchID
// identifies the seat; with only a match id the single away human is used.
func (s *Service) Reconnect(conn match.ConnID, name, matchID string) error {
	err := s.reconnect(conn, strings.TrimSpace(name), strings.TrimSpace(matchID))
	if err != nil {
		s.reject(conn, err, nil)
	}
	return err
}

func (s *Service) reconnect(conn match.ConnID, name, matchID string) error {
	if conn == "" || (name == "" && matchID == "") {
		return ErrInvalidRequest
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, bound := s.dir.nameOf(conn); bound {
		return ErrAlreadyInMatch
	}
	var t *table
	if matchID != "" {
		t = s.dir.match(matchID)
	} else {
		t = s.dir.matchOf(name)
	}
	if t == nil {
		return ErrMatchNotFound
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return ErrMatchNotFound
	}
	if name == "" {
		if name = awayHuman(t.m); name == "" {
			return ErrMatchNotFound
		}
	}
	side, ok := t.m.SideOf(name)
	if !ok {
		return ErrMatchNotFound
	}
	if err := t.m.Reconnect(name, conn); err != nil {
		return err
	}
	t.stopGrace(side)
	s.dir.bind(conn, name)

	s.notifier.Send(conn, stateMessage(t.m, side, wire.TypeMatchResumed))
	s.sendTo(t.m.Participant(side.Opponent()), wire.NewOpponentReconnected())
	s.emit(analytics.Event{
		Type:    analytics.EventPlayerReconnected,
		MatchID: t.m.ID,
		Player:  name,
		Side:    int(side),
	})
	s.logger.Info("player_reconnected", zap.String("match_id", t.m.ID), zap.String("name", name))
	s.scheduleBotLocked(t)
	return nil
}

// awayHuman returns the only away participant, or "" when none or both are.
func awayHuman(m *match.Match) string {
	name := ""
	for _, side := range []board.Side{board.One, board.Two} {
		if !m.Away(side) {
			continue
		}
		if name != "" {
			return ""
		}
		name = m.Participant(side).Name
	}
	return name
}

// teardown drops the directory entries of a finished match.
func (s *Service) teardown(t *table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(t)
}

func (s *Service) removeLocked(t *table) {
	if t.removed {
		return
	}
	t.removed = true
	t.mu.Lock()
	id, parts := t.m.ID, t.m.Participants()
	t.mu.Unlock()
	s.dir.remove(t, id, parts)
	s.metrics.matchRemoved()
}

func (t *table) done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.finished || t.m.Terminal()
}

// Snapshot is a read-only copy of a live match.
type Snapshot struct {
	ID       string
	Board    board.Board
	Turn     board.Side
	State    match.State
	Outcome  match.Outcome
	Players  [2]match.Participant
	Moves    int
	LastMove *board.Position
}

func (s *Service) Snapshot(matchID string) (Snapshot, bool) {
	s.mu.Lock()
	t := s.dir.match(matchID)
	s.mu.Unlock()
	if t == nil {
		return Snapshot{}, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	snap := Snapshot{
		ID:      t.m.ID,
		Board:   t.m.Board,
		Turn:    t.m.Turn,
		State:   t.m.State(),
		Outcome: t.m.Outcome,
		Players: t.m.Participants(),
		Moves:   t.m.Moves,
	}
	if t.m.LastMove != nil {
		lm := *t.m.LastMove
		snap.LastMove = &lm
	}
	return snap, true
}

// MatchOf returns the id of the live match name is seated in.
func (s *Service) MatchOf(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.dir.matchOf(name)
	if t == nil {
		return "", false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.m.ID, true
}

type Stats struct {
	ActiveMatches int `json:"activeMatches"`
	Waiting       int `json:"waiting"`
	Connections   int `json:"connections"`
}

func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		ActiveMatches: s.dir.Len(),
		Waiting:       s.queue.Len(),
		Connections:   s.dir.Connections(),
	}
}

// Close stops every timer and waits for pending result writes and events.
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.queue.Close()
	tables := s.dir.tables()
	s.mu.Unlock()

	for _, t := range tables {
		t.mu.Lock()
		t.stopTimers()
		t.mu.Unlock()
	}
	s.wgMu.Lock()
	s.draining = true
	s.wgMu.Unlock()
	s.wg.Wait()

	if s.evCh != nil {
		s.evMu.Lock()
		s.evClosed = true
		close(s.evCh)
		s.evMu.Unlock()
		<-s.evDone
	}
}

// emit queues e for the event worker. A full buffer drops the event.
func (s *Service) emit(e analytics.Event) {
	if s.evCh == nil {
		return
	}
	if e.At.IsZero() {
		e.At = s.clock.Now()
	}
	s.evMu.RLock()
	defer s.evMu.RUnlock()
	if s.evClosed {
		return
	}
	select {
	case s.evCh <- e:
	default:
		s.logger.Warn("analytics_event_dropped", zap.String("type", string(e.Type)), zap.String("match_id", e.MatchID))
	}
}

func (s *Service) drainEvents() {
	defer close(s.evDone)
	for e := range s.evCh {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.CollaboratorTimeout)
		if err := s.events.RecordEvent(ctx, e); err != nil {
			s.logger.Warn("analytics_event_error", zap.String("type", string(e.Type)), zap.Error(err))
		}
		cancel()
	}
}

func (s *Service) sendTo(p match.Participant, msg wire.Message) {
	if p.Scripted || p.Conn == "" {
		return
	}
	s.notifier.Send(p.Conn, msg)
}

func (s *Service) broadcastLocked(t *table, msg wire.Message) {
	for _, p := range t.m.Participants() {
		s.sendTo(p, msg)
	}
}

func (s *Service) reject(conn match.ConnID, err error, data map[string]any) {
	reason := reasonFor(err)
	s.metrics.rejected(reason)
	s.logger.Debug("rejected", zap.String("conn", string(conn)), zap.String("reason", string(reason)), zap.Error(err))
	if conn == "" {
		return
	}
	s.notifier.Send(conn, wire.NewRejected(reason, s.cat.Rejection(reason, data)))
}

// guard keeps a panicking timer callback from killing the process.
func (s *Service) guard(op string) {
	if r := recover(); r != nil {
		s.logger.Error("timer_panic", zap.String("op", op), zap.Any("panic", r))
	}
}

func stateMessage(m *match.Match, side board.Side, typ wire.Type) wire.MatchState {
	opp := m.Participant(side.Opponent())
	msg := wire.MatchState{
		Type:             typ,
		MatchID:          m.ID,
		Board:            m.Board.Cells(),
		Turn:             int(m.Turn),
		YourSide:         int(side),
		OpponentName:     opp.Name,
		OpponentScripted: opp.Scripted,
		Moves:            m.Moves,
	}
	if m.LastMove != nil {
		msg.LastMove = &wire.Position{Row: m.LastMove.Row, Col: m.LastMove.Col}
	}
	return msg
}

func seconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}
