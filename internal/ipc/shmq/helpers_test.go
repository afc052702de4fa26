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
	"fmt"
	"strings"
	"testing"
	"time"
)

// uniqueName derives a queue name from the test name and a timestamp so
// parallel test runs never collide on the shared segment directory.
func uniqueName(t *testing.T) string {
	t.Helper()
	base := strings.ReplaceAll(t.Name(), "/", "-")
	return fmt.Sprintf("%s-%d", base, time.Now().UnixNano())
}

// newTestQueue creates a queue with a unique name and registers cleanup. The
// cleanup both closes the handle and removes the segment, so a test that
// failed mid-teardown cannot leak files into the segment directory.
func newTestQueue(t *testing.T, capacity, blockSize uint32) *Queue {
	t.Helper()

	name := uniqueName(t)
	RemoveSegment(name)

	q, err := CreateQueue(name, capacity, blockSize)
	if err != nil {
		t.Fatalf("Failed to create test queue %s: %v", name, err)
	}

	t.Cleanup(func() {
		if q != nil {
			q.Close()
		}
		RemoveSegment(name)
	})

	return q
}

// patternPayload builds a payload of n distinct, position-dependent bytes so
// copy bugs (wrong offset, wrong wrap) corrupt the comparison.
func patternPayload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + n)
	}
	return b
}

// dequeueBytes pops one message and returns its payload as a fresh slice.
func dequeueBytes(t *testing.T, q *Queue, block bool) ([]byte, bool) {
	t.Helper()
	var out []byte
	ok, err := q.Dequeue(block, func(head, tail []byte) {
		out = append(out, head...)
		out = append(out, tail...)
	})
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	return out, ok
}
