package store

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/serroba/ratelimit-go/internal/ratelimit"
)

// DefaultWindow is the sweep delay used when no window is configured.
const DefaultWindow = time.Duration(ratelimit.DefaultWindow) * time.Second

// RateLimitMemoryStore is an in-memory implementation of ratelimit.Store.
//
// A background goroutine evicts records that are expired or have a zero
// count. It wakes up when the earliest live record expires, or after the
// configured window when the store is empty, and re-arms itself after every
// sweep. Call Shutdown to stop it.
type RateLimitMemoryStore struct {
	mu      sync.Mutex
	records map[string]ratelimit.Record
	window  time.Duration
	clock   ratelimit.Clock

	cancel   context.CancelFunc
	done     chan struct{}
	shutdown sync.Once
}

// MemoryOption configures a RateLimitMemoryStore.
type MemoryOption func(*RateLimitMemoryStore)

// WithClock overrides the time source used by the sweeper.
func WithClock(clock ratelimit.Clock) MemoryOption {
	return func(s *RateLimitMemoryStore) { s.clock = clock }
}

// NewRateLimitMemoryStore creates a new in-memory rate limit store and starts its sweeper.
func NewRateLimitMemoryStore(window time.Duration, opts ...MemoryOption) *RateLimitMemoryStore {
	if window <= 0 {
		window = DefaultWindow
	}

	s := &RateLimitMemoryStore{
		records: make(map[string]ratelimit.Record),
		window:  window,
		clock:   time.Now,
		done:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	var ctx context.Context

	ctx, s.cancel = context.WithCancel(context.Background())

	go s.sweepLoop(ctx)

	return s
}

func (s *RateLimitMemoryStore) Get(_ context.Context, key string) (ratelimit.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[key]
	if !ok {
		return ratelimit.Record{}, ratelimit.ErrNotFound
	}

	return record, nil
}

func (s *RateLimitMemoryStore) Set(_ context.Context, key string, record ratelimit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[key] = record

	return nil
}

// Len returns the number of records currently held.
func (s *RateLimitMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.records)
}

// Sweep evicts expired and zero-count records and returns the delay until
// the next sweep is due.
func (s *RateLimitMemoryStore) Sweep() time.Duration {
	now := s.clock().UnixMilli()

	s.mu.Lock()
	defer s.mu.Unlock()

	next := int64(math.MaxInt64)

	for key, record := range s.records {
		if record.Requests == 0 || record.Stale(now) {
			delete(s.records, key)

			continue
		}

		next = min(next, record.Expires-now)
	}

	if next == math.MaxInt64 {
		return s.window
	}

	return time.Duration(next) * time.Millisecond
}

func (s *RateLimitMemoryStore) sweepLoop(ctx context.Context) {
	defer close(s.done)

	timer := time.NewTimer(s.Sweep())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			timer.Reset(s.Sweep())
		}
	}
}

// Shutdown stops the sweeper and waits for it to exit. It is safe to call more than once.
func (s *RateLimitMemoryStore) Shutdown() error {
	s.shutdown.Do(func() {
		s.cancel()
		<-s.done
	})

	return nil
}

// Compile-time check.
var _ ratelimit.Store = (*RateLimitMemoryStore)(nil)
