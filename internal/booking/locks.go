package booking

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// screeningLocks hands out one weighted semaphore per screening key so
// commits for the same screening queue up in process while other
// screenings proceed.  Entries are reference counted and dropped when the
// last holder or waiter leaves.
type screeningLocks struct {
	mu sync.Mutex
	m  map[string]*lockEntry
}

type lockEntry struct {
	sem  *semaphore.Weighted
	refs int
}

func newScreeningLocks() *screeningLocks {
	return &screeningLocks{m: make(map[string]*lockEntry)}
}

// acquire blocks until the key is free or ctx is done.
func (l *screeningLocks) acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.m[key]
	if !ok {
		e = &lockEntry{sem: semaphore.NewWeighted(1)}
		l.m[key] = e
	}
	e.refs++
	l.mu.Unlock()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		l.unref(key, e)
		return nil, err
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			e.sem.Release(1)
			l.unref(key, e)
		})
	}, nil
}

func (l *screeningLocks) unref(key string, e *lockEntry) {
	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.m, key)
	}
	l.mu.Unlock()
}

func (l *screeningLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
