// Package lock serializes work on a single loan across goroutines and, with
// Redis, across processes.
package lock

import (
	"context"
	"sync"
	"time"

	customError "github.com/segyhp/microloan-engine/pkg/errors"
)

// Locker acquires an exclusive lock on key. The returned unlock func must be
// called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// LoanKey is the lock key for one loan
func LoanKey(loanID string) string {
	return "loan:" + loanID + ":lock"
}

type entry struct {
	ch   chan struct{}
	refs int
}

// KeyedMutex is an in-process Locker. Waiters give up after waitTimeout or
// when ctx ends.
type KeyedMutex struct {
	mu          sync.Mutex
	entries     map[string]*entry
	waitTimeout time.Duration
}

func NewKeyedMutex(waitTimeout time.Duration) *KeyedMutex {
	return &KeyedMutex{
		entries:     make(map[string]*entry),
		waitTimeout: waitTimeout,
	}
}

func (k *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	if k.waitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, k.waitTimeout)
		defer cancel()
	}

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(key, e, false)
		return nil, customError.WrapConcurrencyConflict(key, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() { k.release(key, e, true) })
	}, nil
}

func (k *KeyedMutex) release(key string, e *entry, held bool) {
	if held {
		<-e.ch
	}
	k.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
	k.mu.Unlock()
}
