package service

import (
	"context"
	"sync"
)

// nameLocks serializes runs that share an input name: two runs on N would
// race on N.wav and N-json.txt.
type nameLocks struct {
	mu   sync.Mutex
	held map[string]*nameLock
}

type nameLock struct {
	ch   chan struct{}
	refs int
}

// lock blocks until key is free or ctx is done. The returned func releases
// the lock.
func (l *nameLocks) lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	if l.held == nil {
		l.held = map[string]*nameLock{}
	}
	nl := l.held[key]
	if nl == nil {
		nl = &nameLock{ch: make(chan struct{}, 1)}
		l.held[key] = nl
	}
	nl.refs++
	l.mu.Unlock()

	select {
	case nl.ch <- struct{}{}:
		return func() {
			<-nl.ch
			l.release(key, nl)
		}, nil
	case <-ctx.Done():
		l.release(key, nl)
		return nil, ctx.Err()
	}
}

func (l *nameLocks) release(key string, nl *nameLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	nl.refs--
	if nl.refs == 0 {
		delete(l.held, key)
	}
}
