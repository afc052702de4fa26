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
	"github.com/pkg/errors"

	"github.com/val-verde/boost-log/internal/ipc/shmq"
)

// Errors reported by queue operations. Queue-full on TrySend, queue-empty
// on TryReceive and interrupted-by-stop are not errors; they come back as
// ordinary return values.
var (
	// ErrNotOpen is returned by operations on a closed or never-opened
	// handle.
	ErrNotOpen = errors.New("message queue is not open")

	// ErrQueueFull is returned by Send on an ErrorOnOverflow handle when
	// the queue lacks room for the message.
	ErrQueueFull = errors.New("message queue is full")

	// ErrBufferTooShort is returned by Receive and TryReceive when the
	// caller's buffer cannot hold the message. The message is still
	// consumed; the prefix that fits is copied.
	ErrBufferTooShort = errors.New("receive buffer too short for message")

	// ErrExists is returned by Create when the name is already in use.
	ErrExists = shmq.ErrExists

	// ErrNotFound is returned by Open when no queue has the given name.
	ErrNotFound = shmq.ErrNotFound

	// ErrBadName is returned for empty names or names containing path
	// separators or NUL bytes.
	ErrBadName = shmq.ErrBadName

	// ErrBlockSize is returned when the block size is not a power of two
	// of at least 8 bytes.
	ErrBlockSize = shmq.ErrBlockSize

	// ErrCapacity is returned when the capacity is zero blocks.
	ErrCapacity = shmq.ErrCapacity

	// ErrMessageTooLarge is returned when a message cannot fit in the
	// queue even when it is completely empty.
	ErrMessageTooLarge = shmq.ErrMessageTooLarge

	// ErrUnsupported is returned on platforms without shared memory queue
	// support.
	ErrUnsupported = shmq.ErrUnsupported
)

// MessageQueue is a process-local handle to a named interprocess message
// queue. Handles are not duplicated or shared between processes; every
// participant opens its own.
//
// Send, TrySend, Receive, TryReceive, Stop, Reset and Clear may be called
// concurrently from any number of goroutines, and interleave safely with
// the same operations in other attached processes. Close must not run
// concurrently with other methods on the same handle.
type MessageQueue struct {
	q      *shmq.Queue
	policy OverflowPolicy
}

// Create creates a brand-new queue named name, sized at capacity blocks of
// blockSize bytes each, and returns an open handle bound to policy. The
// block size must be a power of two of at least 8 bytes. Create fails with
// ErrExists when the name is already in use.
func Create(name string, capacity, blockSize uint32, policy OverflowPolicy) (*MessageQueue, error) {
	q, err := shmq.CreateQueue(name, capacity, blockSize)
	if err != nil {
		return nil, err
	}
	return &MessageQueue{q: q, policy: policy}, nil
}

// Open attaches to an existing queue. It fails with ErrNotFound when no
// queue has the given name.
func Open(name string, policy OverflowPolicy) (*MessageQueue, error) {
	q, err := shmq.OpenQueue(name)
	if err != nil {
		return nil, err
	}
	return &MessageQueue{q: q, policy: policy}, nil
}

// OpenOrCreate opens the named queue, creating it first when it does not
// exist. When the queue already exists the capacity and blockSize arguments
// are ignored; the existing geometry applies and is queryable through
// Capacity and BlockSize. The policy always applies to the new handle.
func OpenOrCreate(name string, capacity, blockSize uint32, policy OverflowPolicy) (*MessageQueue, error) {
	q, err := shmq.OpenOrCreateQueue(name, capacity, blockSize)
	if err != nil {
		return nil, err
	}
	return &MessageQueue{q: q, policy: policy}, nil
}

// Remove force-deletes the named queue's backing segment. Attached handles
// keep working against their mapping; new opens fail with ErrNotFound.
// Intended for cleaning up after crashed processes.
func Remove(name string) error {
	return shmq.RemoveSegment(name)
}

// Exists reports whether a queue with the given name currently exists.
func Exists(name string) bool {
	return shmq.SegmentExists(name)
}

// Send enqueues payload as one message. With BlockOnOverflow it waits for
// room and returns Aborted when Stop interrupts the wait; with
// ErrorOnOverflow it fails with ErrQueueFull instead of waiting. A send
// that finds room succeeds even while the queue is stopped. On error the
// result is Aborted.
func (q *MessageQueue) Send(payload []byte) (OperationResult, error) {
	if q.q == nil {
		return Aborted, ErrNotOpen
	}

	if q.policy == ErrorOnOverflow {
		ok, err := q.q.Enqueue(payload, false)
		if err != nil {
			return Aborted, err
		}
		if !ok {
			return Aborted, errors.Wrapf(ErrQueueFull, "queue %q", q.q.Name())
		}
		return Succeeded, nil
	}

	ok, err := q.q.Enqueue(payload, true)
	if err != nil {
		return Aborted, err
	}
	if !ok {
		return Aborted, nil
	}
	return Succeeded, nil
}

// TrySend enqueues payload without waiting. It returns false when the queue
// lacks room for the message, whatever the handle's overflow policy.
func (q *MessageQueue) TrySend(payload []byte) (bool, error) {
	if q.q == nil {
		return false, ErrNotOpen
	}
	return q.q.Enqueue(payload, false)
}

// Receive dequeues the oldest message into buf and returns the number of
// bytes copied. It waits while the queue is empty and returns Aborted when
// Stop interrupts the wait; a receive that finds data succeeds even while
// the queue is stopped. When buf cannot hold the message, the message is
// still consumed, the prefix that fits is copied, and the call reports
// ErrBufferTooShort alongside the Succeeded result.
func (q *MessageQueue) Receive(buf []byte) (OperationResult, int, error) {
	return q.receive(buf, true)
}

// TryReceive is the non-blocking Receive: it returns false when the queue
// is empty, whether or not the queue is stopped. Buffer handling matches
// Receive.
func (q *MessageQueue) TryReceive(buf []byte) (bool, int, error) {
	res, n, err := q.receive(buf, false)
	return res == Succeeded, n, err
}

func (q *MessageQueue) receive(buf []byte, block bool) (OperationResult, int, error) {
	if q.q == nil {
		return Aborted, 0, ErrNotOpen
	}

	var copied, total int
	ok, err := q.q.Dequeue(block, func(head, tail []byte) {
		copied = copy(buf, head)
		copied += copy(buf[copied:], tail)
		total = len(head) + len(tail)
	})
	if err != nil {
		return Aborted, 0, err
	}
	if !ok {
		return Aborted, 0, nil
	}
	if total > len(buf) {
		return Succeeded, copied, errors.Wrapf(ErrBufferTooShort, "message size %d, buffer size %d", total, len(buf))
	}
	return Succeeded, copied, nil
}

// ReceiveAppend dequeues the oldest message, appends it to dst and returns
// the extended slice; existing contents of dst are preserved. The blocking
// and stop behavior match Receive.
func (q *MessageQueue) ReceiveAppend(dst []byte) (OperationResult, []byte, error) {
	return q.receiveAppend(dst, true)
}

// TryReceiveAppend is the non-blocking ReceiveAppend: it returns false and
// dst unchanged when the queue is empty.
func (q *MessageQueue) TryReceiveAppend(dst []byte) (bool, []byte, error) {
	res, out, err := q.receiveAppend(dst, false)
	return res == Succeeded, out, err
}

func (q *MessageQueue) receiveAppend(dst []byte, block bool) (OperationResult, []byte, error) {
	if q.q == nil {
		return Aborted, dst, ErrNotOpen
	}

	out := dst
	ok, err := q.q.Dequeue(block, func(head, tail []byte) {
		out = append(out, head...)
		out = append(out, tail...)
	})
	if err != nil {
		return Aborted, dst, err
	}
	if !ok {
		return Aborted, dst, nil
	}
	return Succeeded, out, nil
}

// Stop interrupts every blocked Send and Receive on this queue in every
// attached process; the interrupted calls return Aborted. Stop returns
// once the stop flag is set and the wakeups are posted, without waiting
// for the interrupted calls to finish. Stopping a closed handle or an
// already stopped queue is a no-op.
func (q *MessageQueue) Stop() {
	if q.q != nil {
		q.q.Stop()
	}
}

// Reset re-arms blocking operations after a Stop. Resetting a closed
// handle or a running queue is a no-op.
func (q *MessageQueue) Reset() {
	if q.q != nil {
		q.q.Reset()
	}
}

// Clear discards every message currently in the queue and wakes blocked
// senders. Operations already in flight complete against either the
// pre-clear or the post-clear state.
func (q *MessageQueue) Clear() error {
	if q.q == nil {
		return ErrNotOpen
	}
	q.q.Clear()
	return nil
}

// Close detaches the handle. The queue itself lives on until the last
// handle in any process closes; then its segment is removed. Close is
// idempotent: closing a closed handle returns nil.
func (q *MessageQueue) Close() error {
	if q.q == nil {
		return nil
	}
	err := q.q.Close()
	q.q = nil
	return err
}

// IsOpen reports whether the handle is attached to a queue.
func (q *MessageQueue) IsOpen() bool {
	return q.q != nil
}

// Name returns the queue name, or "" when the handle is closed.
func (q *MessageQueue) Name() string {
	if q.q == nil {
		return ""
	}
	return q.q.Name()
}

// Capacity returns the queue's capacity in blocks, or 0 when the handle is
// closed. After OpenOrCreate attaches to an existing queue this reflects
// the existing geometry, not the arguments.
func (q *MessageQueue) Capacity() uint32 {
	if q.q == nil {
		return 0
	}
	return q.q.Capacity()
}

// BlockSize returns the queue's block size in bytes, or 0 when the handle
// is closed.
func (q *MessageQueue) BlockSize() uint32 {
	if q.q == nil {
		return 0
	}
	return q.q.BlockSize()
}

// MaxMessageSize returns the largest payload Send accepts, or 0 when the
// handle is closed.
func (q *MessageQueue) MaxMessageSize() uint32 {
	if q.q == nil {
		return 0
	}
	return q.q.MaxMessageSize()
}

// Policy returns the handle's overflow policy.
func (q *MessageQueue) Policy() OverflowPolicy {
	return q.policy
}

// Stat is a point-in-time snapshot of a queue's shared state.
type Stat struct {
	Name           string `json:"name"`
	Capacity       uint32 `json:"capacity"`
	BlockSize      uint32 `json:"block_size"`
	MaxMessageSize uint32 `json:"max_message_size"`
	UsedBlocks     uint32 `json:"used_blocks"`
	FreeBlocks     uint32 `json:"free_blocks"`
	PutPos         uint32 `json:"put_pos"`
	GetPos         uint32 `json:"get_pos"`
	Stopped        bool   `json:"stopped"`
	Attached       uint32 `json:"attached"`
}

// Stat returns a snapshot of the queue's shared header.
func (q *MessageQueue) Stat() (Stat, error) {
	if q.q == nil {
		return Stat{}, ErrNotOpen
	}
	s := q.q.State()
	return Stat{
		Name:           q.q.Name(),
		Capacity:       s.Capacity,
		BlockSize:      s.BlockSize,
		MaxMessageSize: q.q.MaxMessageSize(),
		UsedBlocks:     s.UsedBlocks,
		FreeBlocks:     s.Capacity - s.UsedBlocks,
		PutPos:         s.PutPos,
		GetPos:         s.GetPos,
		Stopped:        s.Stopped,
		Attached:       s.RefCount,
	}, nil
}
