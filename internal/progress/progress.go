// Package progress publishes render progress for a run.
package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"audiowave/internal/pkg/errors"
	"audiowave/internal/pkg/logger"
)

// Sink receives progress percentages for a run. Implementations must not
// block the render for long; errors are the caller's to log.
type Sink interface {
	Report(ctx context.Context, runID string, percent float64) error
}

// Reader returns the latest reported percent for a run.
type Reader interface {
	Latest(ctx context.Context, runID string) (float64, error)
}

// Subscriber streams updates for a run as they are reported.
type Subscriber interface {
	Subscribe(ctx context.Context, runID string) (<-chan Update, error)
}

// LogSink writes each update as an info line.
type LogSink struct {
	log *logger.Logger
}

func NewLogSink(log *logger.Logger) *LogSink {
	if log == nil {
		log = logger.NewDefault()
	}
	return &LogSink{log: log.WithComponent("progress")}
}

func (s *LogSink) Report(ctx context.Context, runID string, percent float64) error {
	log := s.log.FromContext(ctx)
	if logger.RunIDFromContext(ctx) == "" {
		log = log.WithRunID(runID)
	}
	log.Info("render progress", "percent", round1(percent))
	return nil
}

const (
	keyPrefix  = "audiowave:progress:"
	defaultTTL = time.Hour
)

// Update is the message published on a run's channel.
type Update struct {
	RunID   string  `json:"run_id"`
	Percent float64 `json:"percent"`
}

// RedisSink stores the latest percent under audiowave:progress:<run id> and
// publishes every update on the channel of the same name.
type RedisSink struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisSink(rdb *redis.Client, ttl time.Duration) *RedisSink {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisSink{rdb: rdb, ttl: ttl}
}

// Key is the Redis key and channel for runID.
func Key(runID string) string {
	return keyPrefix + runID
}

func (s *RedisSink) Report(ctx context.Context, runID string, percent float64) error {
	msg, err := json.Marshal(Update{RunID: runID, Percent: round1(percent)})
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, Key(runID), strconv.FormatFloat(round1(percent), 'f', -1, 64), s.ttl)
	pipe.Publish(ctx, Key(runID), msg)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish progress: %w", err)
	}
	return nil
}

func (s *RedisSink) Latest(ctx context.Context, runID string) (float64, error) {
	v, err := s.rdb.Get(ctx, Key(runID)).Result()
	if err == redis.Nil {
		return 0, errors.NotFound("run", runID)
	}
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.CodeUnavailable, "progress.latest", "progress store unavailable")
	}
	p, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.Wrap(err, "progress.latest", "corrupt progress value")
	}
	return p, nil
}

// Subscribe streams updates for runID until ctx is done.
func (s *RedisSink) Subscribe(ctx context.Context, runID string) (<-chan Update, error) {
	sub := s.rdb.Subscribe(ctx, Key(runID))
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, err
	}

	out := make(chan Update)
	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var u Update
				if json.Unmarshal([]byte(msg.Payload), &u) != nil {
					continue
				}
				select {
				case out <- u:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Multi fans an update out to several sinks, returning the first error.
type Multi []Sink

func (m Multi) Report(ctx context.Context, runID string, percent float64) error {
	var first error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Report(ctx, runID, percent); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func round1(p float64) float64 {
	return float64(int(p*10+0.5)) / 10
}
