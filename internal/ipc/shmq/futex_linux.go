//go:build linux

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
	"sync/atomic"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// All futex calls use the non-private opcodes. The futex words live in a
// MAP_SHARED segment and the waiters may belong to other processes; the
// private opcodes only match waiters within a single process. x/sys/unix
// does not export the classic opcode constants, so they are defined here.
const (
	futexWaitOp = 0 // FUTEX_WAIT, shared
	futexWakeOp = 1 // FUTEX_WAKE, shared
)

// futexWait blocks until the value at addr changes from val or another
// process calls futexWake on the same address. Callers must re-check their
// condition after it returns: wakeups may be spurious.
func futexWait(addr *uint32, val uint32) error {
	// Re-check the value before entering the kernel; the waker may have
	// already advanced the sequence.
	if atomic.LoadUint32(addr) != val {
		return nil
	}

	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)), // uaddr
		futexWaitOp,                   // futex_op, shared
		uintptr(val),                  // expected value
		0,                             // timeout: infinite
		0,                             // uaddr2: unused
		0,                             // val3: unused
	)

	switch errno {
	case 0:
		return nil
	case unix.EAGAIN:
		// The value changed before the kernel queued us.
		return nil
	case unix.EINTR:
		// Interrupted by a signal; counts as a wakeup.
		return nil
	}
	return errors.Wrap(errno, "futex wait failed")
}

// futexWake wakes up to n waiters blocked on addr, in any attached process.
// It returns the number of waiters actually woken.
func futexWake(addr *uint32, n int) (int, error) {
	// Wake never blocks, so the raw syscall entry is fine here.
	r1, _, errno := unix.RawSyscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)), // uaddr
		futexWakeOp,                   // futex_op, shared
		uintptr(n),                    // number of waiters to wake
		0,                             // timeout: unused
		0,                             // uaddr2: unused
		0,                             // val3: unused
	)

	if errno != 0 {
		return 0, errors.Wrap(errno, "futex wake failed")
	}
	return int(r1), nil
}
