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
	"encoding/binary"
	"os"
	"time"

	"github.com/pkg/errors"
)

// Open retry tuning. An open that lands between a creator's file creation
// and its magic publish retries until the header appears.
const (
	openRetryWindow = 2 * time.Second
	openRetryDelay  = 2 * time.Millisecond
)

// Queue is one process's attachment to a shared message queue. All methods
// except Close are safe to call concurrently from any number of goroutines
// and from other processes attached to the same segment.
//
// Messages are framed as a 4-byte little-endian length prefix followed by
// the payload, occupying a contiguous-with-wraparound run of fixed-size
// blocks. Free space is tracked by two block cursors and a used count; a
// message run is allocated at the write cursor and reclaimed from the read
// cursor, so the arena never fragments.
type Queue struct {
	seg   *Segment
	h     *Header
	arena []byte
	mu    qmutex
	space qcond
	data  qcond
	name  string

	// Geometry cached from the header; immutable after attach.
	blockSize uint32
	capacity  uint32
	arenaSize uint32
	maxMsg    uint32
}

// CreateQueue creates a brand-new named queue with capacity blocks of
// blockSize bytes each and attaches to it. It fails with ErrExists when the
// name is already in use.
func CreateQueue(name string, capacity, blockSize uint32) (*Queue, error) {
	total, err := CalculateQueueLayout(capacity, blockSize)
	if err != nil {
		return nil, err
	}

	seg, err := CreateSegment(name, total)
	if err != nil {
		return nil, err
	}

	// The file arrives zero-filled; only the non-zero fields need stores.
	// The magic goes last and publishes the header to concurrent opens.
	h := seg.Header()
	h.SetVersion(QueueVersion)
	h.SetBlockSize(blockSize)
	h.SetCapacity(capacity)
	h.SetRefCount(1)
	h.SetMagic(queueMagic)

	return newQueue(seg, name), nil
}

// OpenQueue attaches to an existing named queue. It fails with ErrNotFound
// when no queue has the given name.
func OpenQueue(name string) (*Queue, error) {
	deadline := time.Now().Add(openRetryWindow)
	for {
		q, err := tryOpenQueue(name)
		if err == nil {
			return q, nil
		}
		if !retryableOpen(err) || time.Now().After(deadline) {
			return nil, err
		}
		time.Sleep(openRetryDelay)
	}
}

// OpenOrCreateQueue opens the named queue, creating it first when it does
// not exist. When the queue already exists the capacity and blockSize
// arguments are ignored; the existing geometry applies.
func OpenOrCreateQueue(name string, capacity, blockSize uint32) (*Queue, error) {
	for {
		if SegmentExists(name) {
			q, err := OpenQueue(name)
			if err == nil || !errors.Is(err, ErrNotFound) {
				return q, err
			}
			// Removed between the probe and the open; fall through.
		}
		q, err := CreateQueue(name, capacity, blockSize)
		if err == nil || !errors.Is(err, ErrExists) {
			return q, err
		}
		// Created by a peer between the probe and the create; try opening.
	}
}

func retryableOpen(err error) bool {
	return errors.Is(err, errNotReady) || errors.Is(err, errVanished)
}

func tryOpenQueue(name string) (*Queue, error) {
	seg, err := OpenSegment(name)
	if err != nil {
		return nil, err
	}

	h := seg.Header()
	if err := ValidateHeader(h, int64(len(seg.Mem))); err != nil {
		seg.Close()
		return nil, err
	}

	q := newQueue(seg, name)

	// Attach under the shared lock. The last detacher unlinks the backing
	// file while holding the same lock, so confirming the path still names
	// our mapping before counting ourselves closes the open/teardown race.
	q.mu.lock()
	same, err := sameBacking(seg)
	if err != nil || !same {
		q.mu.unlock()
		seg.Close()
		if err != nil {
			return nil, err
		}
		return nil, errors.Wrapf(errVanished, "queue %q", name)
	}
	h.SetRefCount(h.RefCount() + 1)
	q.mu.unlock()

	return q, nil
}

// sameBacking reports whether the segment's path still refers to the file
// backing its mapping.
func sameBacking(seg *Segment) (bool, error) {
	pathInfo, err := os.Stat(seg.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrap(err, "failed to stat segment file")
	}
	fileInfo, err := seg.File.Stat()
	if err != nil {
		return false, errors.Wrap(err, "failed to stat segment mapping")
	}
	return os.SameFile(pathInfo, fileInfo), nil
}

func newQueue(seg *Segment, name string) *Queue {
	h := seg.Header()
	blockSize := h.BlockSize()
	capacity := h.Capacity()
	arenaSize := blockSize * capacity
	return &Queue{
		seg:       seg,
		h:         h,
		arena:     seg.Arena()[:arenaSize],
		mu:        qmutex{w: &h.mutex},
		space:     qcond{seq: &h.spaceSeq, waiters: &h.spaceWaiters},
		data:      qcond{seq: &h.dataSeq, waiters: &h.dataWaiters},
		name:      name,
		blockSize: blockSize,
		capacity:  capacity,
		arenaSize: arenaSize,
		maxMsg:    arenaSize - prefixSize,
	}
}

// Close detaches from the segment. The last detacher across all processes
// removes the backing file. Close is idempotent but must not be called
// concurrently with other methods on the same Queue.
func (q *Queue) Close() error {
	if q.seg == nil {
		return nil
	}

	q.mu.lock()
	rc := q.h.RefCount() - 1
	q.h.SetRefCount(rc)
	if rc == 0 {
		// Unlinking while holding the lock keeps racing opens correct:
		// they re-check the path under this lock before attaching.
		if err := os.Remove(q.seg.Path); err != nil && !os.IsNotExist(err) {
			debug("segment unlink failed", "path", q.seg.Path, "err", err)
		}
	}
	q.mu.unlock()
	debug("queue detached", "name", q.name, "refcount", rc)

	err := q.seg.Close()
	q.seg = nil
	q.h = nil
	q.arena = nil
	return err
}

// Name returns the queue name.
func (q *Queue) Name() string { return q.name }

// Capacity returns the arena capacity in blocks.
func (q *Queue) Capacity() uint32 { return q.capacity }

// BlockSize returns the block size in bytes.
func (q *Queue) BlockSize() uint32 { return q.blockSize }

// MaxMessageSize returns the largest payload that fits in an empty queue.
func (q *Queue) MaxMessageSize() uint32 { return q.maxMsg }

// Enqueue appends one message to the queue. In blocking mode it waits for
// free blocks and returns false without enqueueing when Stop interrupts the
// wait. In non-blocking mode it returns false when free blocks are
// insufficient, whether or not the queue is stopped.
func (q *Queue) Enqueue(payload []byte, block bool) (bool, error) {
	if uint64(len(payload)) > uint64(q.maxMsg) {
		return false, errors.Wrapf(ErrMessageTooLarge, "message size %d, queue limit %d", len(payload), q.maxMsg)
	}
	need := blocksRequired(q.blockSize, uint32(len(payload)))

	q.mu.lock()
	for q.h.UsedBlocks()+need > q.capacity {
		if !block || q.h.Stopped() {
			q.mu.unlock()
			return false, nil
		}
		q.space.wait(q.mu)
	}
	q.writeMessage(payload, need)
	q.mu.unlock()

	q.data.signal()
	return true, nil
}

// Dequeue removes the oldest message, handing its payload to deliver as up
// to two arena slices that are valid only until deliver returns. In
// blocking mode it waits for data and returns false when Stop interrupts
// the wait. In non-blocking mode it returns false when the queue is empty,
// whether or not the queue is stopped.
func (q *Queue) Dequeue(block bool, deliver func(head, tail []byte)) (bool, error) {
	q.mu.lock()
	for q.h.UsedBlocks() == 0 {
		if !block || q.h.Stopped() {
			q.mu.unlock()
			return false, nil
		}
		q.data.wait(q.mu)
	}
	err := q.readMessage(deliver)
	q.mu.unlock()
	if err != nil {
		return false, err
	}

	// Senders wait for differing block counts, so wake them all and let
	// each re-check its own space predicate.
	q.space.broadcast()
	return true, nil
}

// writeMessage frames payload into the run starting at the write cursor and
// advances the cursors. Caller holds the queue mutex and has verified that
// need blocks are free.
func (q *Queue) writeMessage(payload []byte, need uint32) {
	pos := q.h.PutPos() * q.blockSize

	var prefix [prefixSize]byte
	binary.LittleEndian.PutUint32(prefix[:], uint32(len(payload)))
	q.copyIn(pos, prefix[:])
	q.copyIn(q.wrap(pos+prefixSize), payload)

	q.h.SetPutPos((q.h.PutPos() + need) % q.capacity)
	q.h.SetUsedBlocks(q.h.UsedBlocks() + need)
}

// readMessage decodes the message at the read cursor, hands its payload to
// deliver, and reclaims the run. Caller holds the queue mutex and has
// verified the queue is non-empty.
func (q *Queue) readMessage(deliver func(head, tail []byte)) error {
	pos := q.h.GetPos() * q.blockSize

	var prefix [prefixSize]byte
	q.copyOut(pos, prefix[:])
	size := binary.LittleEndian.Uint32(prefix[:])
	if size > q.maxMsg {
		return errors.Wrapf(ErrCorrupt, "framed size %d exceeds queue limit %d", size, q.maxMsg)
	}
	spans := blocksRequired(q.blockSize, size)
	if used := q.h.UsedBlocks(); spans > used {
		return errors.Wrapf(ErrCorrupt, "message spans %d blocks, %d in use", spans, used)
	}

	start := q.wrap(pos + prefixSize)
	end := start + size
	var head, tail []byte
	if end <= q.arenaSize {
		head = q.arena[start:end]
	} else {
		head = q.arena[start:]
		tail = q.arena[:end-q.arenaSize]
	}
	deliver(head, tail)

	q.h.SetGetPos((q.h.GetPos() + spans) % q.capacity)
	q.h.SetUsedBlocks(q.h.UsedBlocks() - spans)
	return nil
}

// copyIn copies b into the arena at byte offset pos, wrapping past the
// arena end. A zero-length head chunk at the exact boundary is fine.
func (q *Queue) copyIn(pos uint32, b []byte) {
	n := copy(q.arena[pos:], b)
	if n < len(b) {
		copy(q.arena, b[n:])
	}
}

// copyOut copies len(b) arena bytes starting at offset pos into b, wrapping
// past the arena end.
func (q *Queue) copyOut(pos uint32, b []byte) {
	n := copy(b, q.arena[pos:])
	if n < len(b) {
		copy(b[n:], q.arena)
	}
}

// wrap reduces a byte offset at most one arena length past the end back
// into the arena.
func (q *Queue) wrap(pos uint32) uint32 {
	if pos >= q.arenaSize {
		pos -= q.arenaSize
	}
	return pos
}

// Stop interrupts every blocked Enqueue and Dequeue in every attached
// process. Operations that do not need to wait keep succeeding while the
// queue is stopped. Stop returns once the wakeups are posted; it does not
// wait for the interrupted calls to return.
func (q *Queue) Stop() {
	q.mu.lock()
	q.h.SetStopped(true)
	q.mu.unlock()

	q.data.broadcast()
	q.space.broadcast()
	debug("queue stopped", "name", q.name)
}

// Reset re-arms blocking operations after a Stop.
func (q *Queue) Reset() {
	q.mu.lock()
	q.h.SetStopped(false)
	q.mu.unlock()
	debug("queue reset", "name", q.name)
}

// Clear discards every queued message. Concurrent operations observe either
// the pre-clear or the post-clear state, never a mixture.
func (q *Queue) Clear() {
	q.mu.lock()
	q.h.SetPutPos(0)
	q.h.SetGetPos(0)
	q.h.SetUsedBlocks(0)
	q.mu.unlock()

	q.space.broadcast()
	debug("queue cleared", "name", q.name)
}

// State is a point-in-time snapshot of the shared queue header.
type State struct {
	Capacity   uint32
	BlockSize  uint32
	UsedBlocks uint32
	PutPos     uint32
	GetPos     uint32
	Stopped    bool
	RefCount   uint32
}

// State returns a consistent snapshot of the queue's shared state.
func (q *Queue) State() State {
	q.mu.lock()
	s := State{
		Capacity:   q.capacity,
		BlockSize:  q.blockSize,
		UsedBlocks: q.h.UsedBlocks(),
		PutPos:     q.h.PutPos(),
		GetPos:     q.h.GetPos(),
		Stopped:    q.h.Stopped(),
		RefCount:   q.h.RefCount(),
	}
	q.mu.unlock()
	return s
}
