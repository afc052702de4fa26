//go:build !linux

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

// futexWait is not supported on this platform.
func futexWait(addr *uint32, val uint32) error {
	return ErrUnsupported
}

// futexWake is not supported on this platform.
func futexWake(addr *uint32, n int) (int, error) {
	return 0, ErrUnsupported
}
