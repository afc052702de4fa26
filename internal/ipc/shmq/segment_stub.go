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

func init() {
	unmapMemory = func([]byte) error { return ErrUnsupported }
}

// CreateSegment is not supported on this platform.
func CreateSegment(name string, size uint64) (*Segment, error) {
	return nil, ErrUnsupported
}

// OpenSegment is not supported on this platform.
func OpenSegment(name string) (*Segment, error) {
	return nil, ErrUnsupported
}

// RemoveSegment is not supported on this platform.
func RemoveSegment(name string) error {
	return ErrUnsupported
}

// SegmentExists reports false on platforms without segment support.
func SegmentExists(name string) bool {
	return false
}
