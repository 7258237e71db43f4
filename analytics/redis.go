package analytics

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hupe1980/viewflow/core"
	"github.com/hupe1980/viewflow/logging"
	"golang.org/x/time/rate"
)

// Pusher is the subset of *redis.Client used by RedisSink.
type Pusher interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// Compile-time checks.
var (
	_ Pusher       = (*redis.Client)(nil)
	_ core.Tracker = (*RedisSink)(nil)
)

// NewRedisClient connects to addr ("host:port").
func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

// RedisOptions configures a RedisSink.
type RedisOptions struct {
	// Key is the Redis list events are appended to.
	Key string
	// Buffer bounds the number of queued events.
	Buffer int
	// Rate limits pushes per second. Zero or less disables limiting.
	Rate float64
	// Timeout bounds a single push.
	Timeout time.Duration
	Logger  logging.Logger
}

// DefaultRedisOptions provides default configuration values.
var DefaultRedisOptions = RedisOptions{
	Key:     "viewflow:events",
	Buffer:  256,
	Rate:    50,
	Timeout: 2 * time.Second,
}

// RedisSink appends JSON encoded events to a Redis list.
type RedisSink struct {
	client  Pusher
	opts    RedisOptions
	limiter *rate.Limiter

	queue chan Event
	done  chan struct{}

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool

	sent    atomic.Int64
	dropped atomic.Int64
	failed  atomic.Int64
}

// NewRedisSink starts the background worker.
func NewRedisSink(client Pusher, optFns ...func(o *RedisOptions)) *RedisSink {
	opts := DefaultRedisOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Buffer <= 0 {
		opts.Buffer = DefaultRedisOptions.Buffer
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultRedisOptions.Timeout
	}

	limit := rate.Inf
	burst := 1
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
		burst = max(1, int(opts.Rate))
	}

	s := &RedisSink{
		client:  client,
		opts:    opts,
		limiter: rate.NewLimiter(limit, burst),
		queue:   make(chan Event, opts.Buffer),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// Track enqueues the event. When the buffer is full or the sink is closed
// the event is dropped.
func (s *RedisSink) Track(event string, properties map[string]any) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.dropped.Add(1)
		return
	}
	select {
	case s.queue <- newEvent(event, properties):
	default:
		s.dropped.Add(1)
		s.opts.Logger.Warn("Analytics buffer full, dropping event", "event", event)
	}
}

func (s *RedisSink) run() {
	defer close(s.done)
	for ev := range s.queue {
		_ = s.limiter.Wait(context.Background())
		s.push(ev)
	}
}

func (s *RedisSink) push(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		s.failed.Add(1)
		s.opts.Logger.Warn("Analytics event not encodable", "event", ev.Name, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.Timeout)
	defer cancel()
	if err := s.client.RPush(ctx, s.opts.Key, data).Err(); err != nil {
		s.failed.Add(1)
		s.opts.Logger.Warn("Analytics push failed", "event", ev.Name, "error", err)
		return
	}
	s.sent.Add(1)
}

// Close stops accepting events and waits until queued events are pushed or
// ctx is done.
func (s *RedisSink) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.queue)
		s.mu.Unlock()
	})
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats reports sent, dropped and failed counts.
func (s *RedisSink) Stats() (sent, dropped, failed int64) {
	return s.sent.Load(), s.dropped.Load(), s.failed.Load()
}
