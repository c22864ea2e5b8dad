package analytics

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestStreamSink_AppendsAndConsumerReads(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()
	sink := NewStreamSink(rdb, "")
	if sink.Stream() != "game-analytics" {
		t.Fatalf("default stream %q", sink.Stream())
	}

	col := 3
	events := []Event{
		{Type: EventMatchStart, MatchID: "m-1", Players: []string{"alice", "bob"}},
		{Type: EventMoveMade, MatchID: "m-1", Player: "alice", Column: &col, MoveNumber: 1},
		{Type: EventMatchEnd, MatchID: "m-1", Winner: "alice", Reason: "connect4"},
	}
	for _, e := range events {
		if err := sink.RecordEvent(ctx, e); err != nil {
			t.Fatalf("RecordEvent: %v", err)
		}
	}
	n, err := rdb.XLen(ctx, "game-analytics").Result()
	if err != nil || n != 3 {
		t.Fatalf("XLEN=%d err=%v", n, err)
	}

	c := NewConsumer(rdb, "game-analytics", "0", nil)
	c.block = 50 * time.Millisecond
	got, err := c.Poll(ctx, 10)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("want 3 events, got %d", len(got))
	}
	if got[1].Type != EventMoveMade || got[1].Column == nil || *got[1].Column != 3 {
		t.Fatalf("move event = %+v", got[1])
	}
	if got[2].Winner != "alice" || got[0].At.IsZero() {
		t.Fatalf("events = %+v", got)
	}

	// cursor advanced: nothing new
	again, err := c.Poll(ctx, 10)
	if err != nil {
		t.Fatalf("Poll again: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("re-read %d events", len(again))
	}
}

func TestConsumer_SkipsUndecodable(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()
	if err := rdb.XAdd(ctx, &redis.XAddArgs{Stream: "s", Values: map[string]any{"payload": "{oops"}}).Err(); err != nil {
		t.Fatalf("XAdd: %v", err)
	}
	if err := NewStreamSink(rdb, "s").RecordEvent(ctx, Event{Type: EventMatchAbandoned, MatchID: "m-9"}); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}
	c := NewConsumer(rdb, "s", "0", nil)
	c.block = 50 * time.Millisecond
	got, err := c.Poll(ctx, 10)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(got) != 1 || got[0].MatchID != "m-9" {
		t.Fatalf("got %+v", got)
	}
}

func TestConsumer_RunStopsOnCancel(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	sink := NewStreamSink(rdb, "s")
	_ = sink.RecordEvent(ctx, Event{Type: EventMatchStart, MatchID: "m-1"})

	c := NewConsumer(rdb, "s", "0", nil)
	c.block = 20 * time.Millisecond
	seen := make(chan Event, 4)
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, func(e Event) { seen <- e }) }()

	select {
	case e := <-seen:
		if e.MatchID != "m-1" {
			t.Fatalf("event %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no event delivered")
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop")
	}
}

func TestNewRedisClient(t *testing.T) {
	mr, _ := newTestRedis(t)
	rdb, err := NewRedisClient(context.Background(), fmt.Sprintf("redis://%s/0", mr.Addr()))
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	_ = rdb.Close()
	if _, err := NewRedisClient(context.Background(), ""); err == nil {
		t.Fatalf("empty url accepted")
	}
}
