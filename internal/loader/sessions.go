package loader

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/tphakala/birdobs/internal/logger"
)

// Sessions maps session ids to their Loaders. Idle sessions expire and
// their caches are flushed.
type Sessions struct {
	fetcher  Fetcher
	opts     []Option
	idle     time.Duration
	sessions *cache.Cache
	onCount  atomic.Pointer[func(int)]

	mu       sync.Mutex // serialises get-or-create
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewSessions creates a session registry. cleanup is the interval of the
// expiry sweep; zero disables the sweep goroutine. Loaders are created with opts.
func NewSessions(fetcher Fetcher, idle, cleanup time.Duration, opts ...Option) *Sessions {
	s := &Sessions{
		fetcher:  fetcher,
		opts:     opts,
		idle:     idle,
		sessions: cache.New(idle, 0),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	s.sessions.OnEvicted(func(id string, v any) {
		if l, ok := v.(*Loader); ok {
			l.Flush()
		}
		logger.Global().Module("loader").Debug("session expired", logger.String("session_id", id))
	})

	if cleanup > 0 {
		go s.sweep(cleanup)
	} else {
		close(s.done)
	}
	return s
}

// OnCountChange registers a callback receiving the active session count
func (s *Sessions) OnCountChange(fn func(int)) {
	s.onCount.Store(&fn)
}

func (s *Sessions) sweep(interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sessions.DeleteExpired()
			s.notify()
		case <-s.stop:
			return
		}
	}
}

// Get returns the Loader of session id, creating the session when id is
// empty or unknown. The returned id is the one to hand back to the client.
// Each call extends the session's idle deadline.
func (s *Sessions) Get(id string) (string, *Loader) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		if v, ok := s.sessions.Get(id); ok {
			l := v.(*Loader)
			s.sessions.Set(id, l, cache.DefaultExpiration)
			return id, l
		}
	}
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	l := New(s.fetcher, s.opts...)
	s.sessions.Set(id, l, cache.DefaultExpiration)
	s.notify()
	return id, l
}

// Lookup returns the Loader of an existing session without creating one
func (s *Sessions) Lookup(id string) (*Loader, bool) {
	v, ok := s.sessions.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*Loader), true
}

// Count returns the number of live sessions
func (s *Sessions) Count() int {
	return s.sessions.ItemCount()
}

// InvalidateAll drops dataset from every session, used after imports
func (s *Sessions) InvalidateAll(dataset string) {
	for _, item := range s.sessions.Items() {
		if l, ok := item.Object.(*Loader); ok {
			l.Invalidate(dataset)
		}
	}
}

// Close stops the sweep goroutine and flushes all sessions
func (s *Sessions) Close() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	<-s.done
	for _, item := range s.sessions.Items() {
		if l, ok := item.Object.(*Loader); ok {
			l.Flush()
		}
	}
	s.sessions.Flush()
	s.notify()
}

func (s *Sessions) notify() {
	if fn := s.onCount.Load(); fn != nil {
		(*fn)(s.sessions.ItemCount())
	}
}
