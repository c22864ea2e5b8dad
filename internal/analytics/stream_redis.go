package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultStream = "game-analytics"
	// 대략적인 길이 제한; 정확한 trim은 하지 않는다
	defaultMaxLen = 100_000
)

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, rawURL string) (*redis.Client, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// StreamSink appends events to a Redis stream with XADD.
type StreamSink struct {
	rdb    *redis.Client
	stream string
	maxLen int64
}

func NewStreamSink(rdb *redis.Client, stream string) *StreamSink {
	if strings.TrimSpace(stream) == "" {
		stream = defaultStream
	}
	return &StreamSink{rdb: rdb, stream: stream, maxLen: defaultMaxLen}
}

func (s *StreamSink) Stream() string { return s.stream }

func (s *StreamSink) RecordEvent(ctx context.Context, e Event) error {
	if s == nil || s.rdb == nil {
		return nil
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{
			"type":    string(e.Type),
			"matchId": e.MatchID,
			"payload": string(raw),
		},
	}).Err()
}

// Consumer tails a stream from a starting id.
type Consumer struct {
	rdb    *redis.Client
	stream string
	lastID string
	block  time.Duration
	logger *zap.Logger
}

// NewConsumer starts after fromID; "$" means only new entries, "0" replays.
func NewConsumer(rdb *redis.Client, stream, fromID string, logger *zap.Logger) *Consumer {
	if strings.TrimSpace(stream) == "" {
		stream = defaultStream
	}
	if fromID == "" {
		fromID = "$"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{rdb: rdb, stream: stream, lastID: fromID, block: 5 * time.Second, logger: logger}
}

// Poll reads one batch, waiting up to the block interval. It returns an empty
// slice on timeout.
func (c *Consumer) Poll(ctx context.Context, count int64) ([]Event, error) {
	if count <= 0 {
		count = 100
	}
	res, err := c.rdb.XRead(ctx, &redis.XReadArgs{
		Streams: []string{c.stream, c.lastID},
		Count:   count,
		Block:   c.block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []Event
	for _, st := range res {
		for _, msg := range st.Messages {
			c.lastID = msg.ID
			payload, _ := msg.Values["payload"].(string)
			var e Event
			if err := json.Unmarshal([]byte(payload), &e); err != nil {
				c.logger.Warn("analytics_decode_error", zap.String("id", msg.ID), zap.Error(err))
				continue
			}
			out = append(out, e)
		}
	}
	return out, nil
}

// Run polls until ctx is done, handing every event to fn.
func (c *Consumer) Run(ctx context.Context, fn func(Event)) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		events, err := c.Poll(ctx, 100)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Warn("analytics_read_error", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		for _, e := range events {
			fn(e)
		}
	}
}
