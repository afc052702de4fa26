/*
 *
 * Copyright 2026 The boost-log Authors.
 *
 * Distributed under the Boost Software License, Version 1.0.
 * (See accompanying file LICENSE_1_0.txt or copy at
 * http://www.boost.org/LICENSE_1_0.txt)
 *
 */

// Package logsink moves log records between processes over an interprocess
// message queue. A Writer frames each Write call as one queue message, so a
// logging sink in one process can hand complete records to a collector in
// another without splitting or merging them. Records above a configurable
// size can be s2-compressed on the way in; the Reader transparently undoes
// it on the way out.
package logsink

import "github.com/pkg/errors"

// Record flag byte, the first byte of every queue message.
const (
	recordRaw = 0x00 // payload follows verbatim
	recordS2  = 0x01 // payload is s2-compressed
)

// ErrStopped is returned by Writer.Write when the queue has been stopped
// and the record could not be enqueued.
var ErrStopped = errors.New("log queue is stopped")
