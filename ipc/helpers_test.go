/*
 *
 * Copyright 2026 The boost-log Authors.
 *
 * Distributed under the Boost Software License, Version 1.0.
 * (See accompanying file LICENSE_1_0.txt or copy at
 * http://www.boost.org/LICENSE_1_0.txt)
 *
 */

package ipc

import (
	"fmt"
	"runtime"
	"strings"
	"testing"
	"time"
)

// requireLinux skips on platforms without the shared-memory backend.
func requireLinux(t *testing.T) {
	t.Helper()
	if runtime.GOOS != "linux" {
		t.Skip("shared memory queues are linux-only")
	}
}

// uniqueName derives a queue name from the test name and a timestamp so
// parallel test runs never collide on the shared segment directory.
func uniqueName(t *testing.T) string {
	t.Helper()
	base := strings.ReplaceAll(t.Name(), "/", "-")
	return fmt.Sprintf("%s-%d", base, time.Now().UnixNano())
}

// newTestMQ creates a queue with a unique name and registers cleanup.
func newTestMQ(t *testing.T, capacity, blockSize uint32, policy OverflowPolicy) *MessageQueue {
	t.Helper()
	requireLinux(t)

	name := uniqueName(t)
	Remove(name)

	q, err := Create(name, capacity, blockSize, policy)
	if err != nil {
		t.Fatalf("Failed to create test queue %s: %v", name, err)
	}

	t.Cleanup(func() {
		q.Close()
		Remove(name)
	})

	return q
}
