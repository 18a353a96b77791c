// Fediranker - Fediverse Timeline Ranking and Filtering Engine
// Copyright 2026 R. Calloway (rcalloway)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcalloway/fediranker

package coordinator

import (
	"context"
	"sync"
)

// CancelLock is a single-slot lock whose acquirers evict the current
// holder instead of queueing behind it. Acquire cancels the holder's
// context and then waits for the slot, so at most one scoring pass runs
// at a time and a fresh trigger always wins over a stale one.
type CancelLock struct {
	slot chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewCancelLock creates an unheld lock.
func NewCancelLock() *CancelLock {
	return &CancelLock{slot: make(chan struct{}, 1)}
}

// Acquire evicts the current holder (if any) by cancelling its context,
// then blocks until the slot is free or parent is done. It returns a
// context the next acquirer will cancel, and a release function.
//
// Two concurrent acquirers both evict the holder and then race for the
// slot; the loser's eviction lands on an already-cancelled context,
// which is harmless.
func (l *CancelLock) Acquire(parent context.Context) (context.Context, func(), error) {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.mu.Unlock()

	select {
	case l.slot <- struct{}{}:
	case <-parent.Done():
		return nil, nil, parent.Err()
	}

	ctx, cancel := context.WithCancel(parent)
	l.mu.Lock()
	l.cancel = cancel
	l.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			l.cancel = nil
			l.mu.Unlock()
			cancel()
			<-l.slot
		})
	}
	return ctx, release, nil
}

// TryHeld reports whether the lock is currently held. Intended for
// status reporting only; the answer can be stale by the time it is read.
func (l *CancelLock) TryHeld() bool {
	select {
	case l.slot <- struct{}{}:
		<-l.slot
		return false
	default:
		return true
	}
}
