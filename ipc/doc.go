/*
 *
 * Copyright 2026 The boost-log Authors.
 *
 * Distributed under the Boost Software License, Version 1.0.
 * (See accompanying file LICENSE_1_0.txt or copy at
 * http://www.boost.org/LICENSE_1_0.txt)
 *
 */

// Package ipc provides a reliable bounded FIFO message queue over named
// shared memory, for exchanging variable-length binary messages between
// unrelated processes without a broker.
//
// A queue lives in a memory segment named at creation time. Its storage is
// a circular arena of fixed-size blocks; each message occupies a contiguous
// (wrapping) run of blocks and is delivered exactly once, in FIFO order.
// Every process works through its own MessageQueue handle, opened with
// Create, Open or OpenOrCreate; the segment is removed when the last handle
// in any process closes.
//
// Send and Receive block while the queue is full or empty. Stop interrupts
// the blocked calls of every attached process, making them return Aborted,
// and Reset re-arms them; operations that do not need to wait keep working
// while a queue is stopped. A handle's OverflowPolicy chooses between
// waiting for room and failing fast with ErrQueueFull.
//
// Synchronization lives inside the segment itself, so it spans processes.
// One caveat follows from that: a process that terminates while inside a
// queue operation can leave the shared lock held, jamming the queue for
// everyone. Stop queues before shutting down, and keep Close away from
// concurrently blocked calls on the same handle.
//
// Queues require Linux; on other platforms constructors fail with
// ErrUnsupported.
package ipc
