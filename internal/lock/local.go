// Package lock provides per-key exclusive locks for serializing work on one
// order.
package lock

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"golang.org/x/sync/semaphore"
)

// Local locks keys within one process. Unused keys are forgotten.
type Local struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	sem  *semaphore.Weighted
	refs int
}

// NewLocal returns an empty Local.
func NewLocal() *Local {
	return &Local{slots: make(map[string]*slot)}
}

// Lock blocks until key is free or ctx is done. The returned release func is
// safe to call more than once.
func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{sem: semaphore.NewWeighted(1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		l.drop(key, s)
		return nil, errors.Wrapf(err, "acquire %q", key)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.sem.Release(1)
			l.drop(key, s)
		})
	}, nil
}

func (l *Local) drop(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// held reports the number of keys with holders or waiters.
func (l *Local) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
