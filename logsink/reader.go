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
	"io"

	"github.com/klauspost/compress/s2"
	"github.com/pkg/errors"

	"github.com/val-verde/boost-log/ipc"
)

// Reader drains records a Writer put on the queue, decompressing the ones
// that shipped compressed. It is not safe for concurrent use; run one
// Reader per draining goroutine.
type Reader struct {
	q       *ipc.MessageQueue
	scratch []byte // raw queue message
	dec     []byte // s2 decode buffer
}

// NewReader wraps an open queue handle. The Reader owns the handle from
// here on; closing the Reader closes it.
func NewReader(q *ipc.MessageQueue) *Reader {
	return &Reader{q: q}
}

// Next returns the next record appended to buf. It blocks while the queue
// is empty and returns io.EOF once the queue has been stopped and drained,
// so a collector loop terminates cleanly after the producer side calls
// Stop.
func (r *Reader) Next(buf []byte) ([]byte, error) {
	res, rec, err := r.q.ReceiveAppend(r.scratch[:0])
	if err != nil {
		return buf, err
	}
	r.scratch = rec
	if res == ipc.Aborted {
		// Stopped with nothing left; ready records would have been
		// delivered regardless of the stop flag.
		return buf, io.EOF
	}
	if len(rec) == 0 {
		return buf, errors.New("log record missing its flag byte")
	}

	body := rec[1:]
	switch rec[0] {
	case recordRaw:
		return append(buf, body...), nil
	case recordS2:
		dec, err := s2.Decode(r.dec[:cap(r.dec)], body)
		if err != nil {
			return buf, errors.Wrap(err, "failed to decompress log record")
		}
		r.dec = dec
		return append(buf, dec...), nil
	}
	return buf, errors.Errorf("unknown log record flag %#x", rec[0])
}

// Close closes the underlying queue handle.
func (r *Reader) Close() error {
	return r.q.Close()
}
