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

// OverflowPolicy selects how Send behaves when the queue has no room for
// the message.
type OverflowPolicy int32

//go:generate go tool stringer -type=OverflowPolicy

const (
	// BlockOnOverflow makes Send wait until enough blocks are freed.
	BlockOnOverflow OverflowPolicy = iota

	// ErrorOnOverflow makes Send fail with ErrQueueFull instead of waiting.
	ErrorOnOverflow
)

// OperationResult reports how a blocking Send or Receive concluded.
type OperationResult int32

//go:generate go tool stringer -type=OperationResult

const (
	// Succeeded means the message was enqueued or dequeued.
	Succeeded OperationResult = iota

	// Aborted means Stop interrupted the wait before the operation could
	// complete. No message was enqueued or dequeued.
	Aborted
)
