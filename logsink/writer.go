/*
 *
 * Copyright 2026 The boost-log Authors.
 *
 * Distributed under the Boost Software License, Version 1.0.
 * (See accompanying file LICENSE_1_0.txt or copy at
 * http://www.boost.org/LICENSE_1_0.txt)
 *
 */

package logsink

import (
	"sync"
	"sync/atomic"

	"github.com/klauspost/compress/s2"

	"github.com/val-verde/boost-log/ipc"
)

// Option configures a Writer.
type Option func(*Writer)

// WithCompression makes the Writer s2-compress records of at least min
// bytes. A record whose compressed form is not smaller ships raw, so the
// flag byte is the only overhead in the worst case.
func WithCompression(min int) Option {
	return func(w *Writer) { w.compMin = min }
}

// WithDrop makes the Writer drop records instead of blocking when the queue
// is full. Dropped records are counted, not surfaced as write errors; a
// logging pipeline usually prefers losing records to stalling the
// application that emits them.
func WithDrop() Option {
	return func(w *Writer) { w.drop = true }
}

// Writer frames each Write call as one queue message: a flag byte followed
// by the (possibly compressed) record. It implements io.WriteCloser.
//
// Write may be called from any number of goroutines. The queue handle's
// overflow policy applies to non-drop writers: with ipc.ErrorOnOverflow a
// full queue fails the Write with ipc.ErrQueueFull instead of blocking.
type Writer struct {
	q       *ipc.MessageQueue
	compMin int // records >= compMin bytes are candidates; 0 disables
	drop    bool
	dropped uint64

	mu      sync.Mutex
	scratch []byte // assembled queue message
	comp    []byte // s2 output buffer
}

// NewWriter wraps an open queue handle. The Writer owns the handle from
// here on; closing the Writer closes it.
func NewWriter(q *ipc.MessageQueue, opts ...Option) *Writer {
	w := &Writer{q: q}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write ships p as one record. It returns len(p) even when the record was
// dropped by a WithDrop writer; the loss is visible through DroppedCount.
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	rec := w.encode(p)

	if w.drop {
		ok, err := w.q.TrySend(rec)
		if err != nil {
			return 0, err
		}
		if !ok {
			atomic.AddUint64(&w.dropped, 1)
		}
		return len(p), nil
	}

	res, err := w.q.Send(rec)
	if err != nil {
		return 0, err
	}
	if res == ipc.Aborted {
		return 0, ErrStopped
	}
	return len(p), nil
}

// encode assembles the queue message for p in w.scratch. Caller holds w.mu.
func (w *Writer) encode(p []byte) []byte {
	if w.compMin > 0 && len(p) >= w.compMin {
		w.comp = s2.Encode(w.comp, p)
		if len(w.comp) < len(p) {
			w.scratch = append(w.scratch[:0], recordS2)
			w.scratch = append(w.scratch, w.comp...)
			return w.scratch
		}
	}
	w.scratch = append(w.scratch[:0], recordRaw)
	w.scratch = append(w.scratch, p...)
	return w.scratch
}

// DroppedCount returns how many records a WithDrop writer has discarded.
func (w *Writer) DroppedCount() uint64 {
	return atomic.LoadUint64(&w.dropped)
}

// Close closes the underlying queue handle.
func (w *Writer) Close() error {
	return w.q.Close()
}
