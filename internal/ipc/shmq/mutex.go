/*
 *
 * Copyright 2026 The boost-log Authors.
 *
 * Distributed under the Boost Software License, Version 1.0.
 * (See accompanying file LICENSE_1_0.txt or copy at
 * http://www.boost.org/LICENSE_1_0.txt)
 *
 */

package shmq

import (
	"math"
	"sync/atomic"
)

// Mutex word states
const (
	mutexFree      = 0 // unlocked
	mutexLocked    = 1 // locked, no waiters
	mutexContended = 2 // locked, at least one waiter may be queued
)

// qmutex is a mutual exclusion lock over a futex word inside the shared
// segment, so holders and waiters may be in different processes. A process
// that terminates while holding the lock leaves the queue jammed; there is
// no recovery for a dead holder.
type qmutex struct {
	w *uint32
}

func (m qmutex) lock() {
	if atomic.CompareAndSwapUint32(m.w, mutexFree, mutexLocked) {
		return
	}
	for {
		// Mark the lock contended before sleeping so the holder knows to
		// wake us on unlock. Swapping from free means we now hold it.
		if atomic.SwapUint32(m.w, mutexContended) == mutexFree {
			return
		}
		futexWait(m.w, mutexContended)
	}
}

func (m qmutex) unlock() {
	if atomic.SwapUint32(m.w, mutexFree) == mutexContended {
		futexWake(m.w, 1)
	}
}

// qcond is a condition variable over a sequence counter and a waiter count
// inside the shared segment. Waiters snapshot the sequence under the queue
// mutex; signalers bump it after changing the guarded state, so a waiter
// that missed the bump fails the futex value check and returns immediately.
type qcond struct {
	seq     *uint32
	waiters *uint32
}

// wait releases m, blocks until the condition is signaled, and reacquires
// m. Callers must re-check their predicate in a loop: wakeups may be
// spurious and another waiter may have consumed the state change first.
func (c qcond) wait(m qmutex) {
	atomic.AddUint32(c.waiters, 1)
	seq := atomic.LoadUint32(c.seq)
	m.unlock()
	futexWait(c.seq, seq)
	m.lock()
	atomic.AddUint32(c.waiters, ^uint32(0))
}

// signal wakes one waiter. The kernel call is skipped when nobody waits.
func (c qcond) signal() {
	atomic.AddUint32(c.seq, 1)
	if atomic.LoadUint32(c.waiters) != 0 {
		futexWake(c.seq, 1)
	}
}

// broadcast wakes every waiter.
func (c qcond) broadcast() {
	atomic.AddUint32(c.seq, 1)
	if atomic.LoadUint32(c.waiters) != 0 {
		futexWake(c.seq, math.MaxInt32)
	}
}
