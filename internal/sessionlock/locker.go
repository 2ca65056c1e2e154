// Package sessionlock serializes work per key. Callers holding different keys never block each other.
package sessionlock

import (
	"context"
	"sync"
)

type entry struct {
	// sem has capacity one; holding the token means holding the lock.
	sem     chan struct{}
	waiters int
}

// Locker is a set of mutexes keyed by TKey. Entries are dropped once nobody holds or waits for them, so the set
// stays proportional to the number of in-flight keys.
type Locker[TKey comparable] struct {
	mu      sync.Mutex
	entries map[TKey]*entry
}

func New[TKey comparable]() *Locker[TKey] {
	return &Locker[TKey]{entries: map[TKey]*entry{}}
}

// Lock blocks until the lock for key is acquired or ctx is done. On success the returned function releases the lock;
// it must be called exactly once.
func (l *Locker[TKey]) Lock(ctx context.Context, key TKey) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck // callers inspect context errors directly.
	}

	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.waiters++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-e.sem
				l.release(key, e)
			})
		}, nil
	case <-ctx.Done():
		l.release(key, e)
		return nil, ctx.Err() //nolint:wrapcheck // callers inspect context errors directly.
	}
}

func (l *Locker[TKey]) release(key TKey, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.waiters--
	if e.waiters == 0 {
		delete(l.entries, key)
	}
}

// Len returns the number of keys currently held or awaited.
func (l *Locker[TKey]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
