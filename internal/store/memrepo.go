package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/park285/cheese-connect4/internal/match"
)

// MemoryRepository is the in-process Repository used when no database is
// configured. Contents are lost on restart.
type MemoryRepository struct {
	mu           sync.RWMutex
	clock        clockwork.Clock
	scriptedName string

	games   []match.Result
	byMatch map[string]struct{}
	players map[string]*Standing
}

func NewMemoryRepository(scriptedName string, clock clockwork.Clock) *MemoryRepository {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryRepository{
		clock:        clock,
		scriptedName: scriptedName,
		byMatch:      make(map[string]struct{}),
		players:      make(map[string]*Standing),
	}
}

func (m *MemoryRepository) Close() error { return nil }

func (m *MemoryRepository) RecordMatchResult(ctx context.Context, r match.Result) error {
	if err := validate(r); err != nil {
		return err
	}
	if r.EndedAt.IsZero() {
		r.EndedAt = m.clock.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.byMatch[r.MatchID]; dup {
		return nil
	}
	m.byMatch[r.MatchID] = struct{}{}
	m.games = append(m.games, r)

	for _, name := range []string{r.Player1, r.Player2} {
		if name == m.scriptedName && r.Scripted {
			continue
		}
		p := m.players[name]
		if p == nil {
			p = &Standing{Username: name}
			m.players[name] = p
		}
		w, l, d := outcomeFor(r, name)
		p.Wins += w
		p.Losses += l
		p.Draws += d
		p.TotalGames++
	}
	return nil
}

func (m *MemoryRepository) FetchLeaderboard(ctx context.Context, limit int) ([]Standing, error) {
	if limit <= 0 {
		limit = 10
	}
	m.mu.RLock()
	items := make([]Standing, 0, len(m.players))
	for _, p := range m.players {
		items = append(items, *p)
	}
	m.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if items[i].Wins != items[j].Wins {
			return items[i].Wins > items[j].Wins
		}
		if items[i].TotalGames != items[j].TotalGames {
			return items[i].TotalGames < items[j].TotalGames
		}
		return items[i].Username < items[j].Username
	})
	if len(items) > limit {
		items = items[:limit]
	}
	for i := range items {
		items[i].Rank = i + 1
	}
	return items, nil
}

func (m *MemoryRepository) FetchStats(ctx context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var st Stats
	st.TotalGames = len(m.games)
	humanGames, humanSecs := 0, 0
	wins := make(map[string]int)
	hours := make(map[int]int)
	since := m.clock.Now().Add(-24 * time.Hour)
	for _, g := range m.games {
		st.TotalMoves += g.Moves
		if !g.Scripted {
			humanGames++
			humanSecs += g.DurationSeconds
		}
		if g.Winner != "" && g.Winner != m.scriptedName {
			wins[g.Winner]++
		}
		if g.EndedAt.After(since) {
			hours[g.EndedAt.UTC().Hour()]++
		}
	}
	if humanGames > 0 {
		st.AverageDuration = (humanSecs + humanGames/2) / humanGames
	}

	for name, n := range wins {
		st.TopWinners = append(st.TopWinners, WinnerCount{Winner: name, Wins: n})
	}
	sort.Slice(st.TopWinners, func(i, j int) bool {
		if st.TopWinners[i].Wins != st.TopWinners[j].Wins {
			return st.TopWinners[i].Wins > st.TopWinners[j].Wins
		}
		return st.TopWinners[i].Winner < st.TopWinners[j].Winner
	})
	if len(st.TopWinners) > 3 {
		st.TopWinners = st.TopWinners[:3]
	}

	for h, n := range hours {
		st.HourlyActivity = append(st.HourlyActivity, HourCount{Hour: h, Count: n})
	}
	sort.Slice(st.HourlyActivity, func(i, j int) bool { return st.HourlyActivity[i].Hour < st.HourlyActivity[j].Hour })
	return st, nil
}
