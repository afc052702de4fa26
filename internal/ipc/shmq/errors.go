package shmq

import "errors"

// Errors for queue usage violations and resource failures. Queue-full,
// queue-empty and interrupted-by-stop are not errors; operations report
// those as ordinary return values.
var (
	// ErrExists is returned by CreateQueue when the name is already in use.
	ErrExists = errors.New("message queue already exists")

	// ErrNotFound is returned by OpenQueue when no queue has the given name.
	ErrNotFound = errors.New("message queue does not exist")

	// ErrBadName is returned for empty names or names containing path
	// separators or NUL bytes.
	ErrBadName = errors.New("invalid message queue name")

	// ErrBlockSize is returned when the block size is not a power of two of
	// at least MinBlockSize bytes.
	ErrBlockSize = errors.New("block size must be a power of two of at least 8 bytes")

	// ErrCapacity is returned when the capacity is zero blocks.
	ErrCapacity = errors.New("capacity must be at least one block")

	// ErrMessageTooLarge is returned when a message cannot fit in the queue
	// even when it is completely empty.
	ErrMessageTooLarge = errors.New("message exceeds queue capacity")

	// ErrCorrupt is returned when the shared header or a framed message is
	// inconsistent with the queue geometry.
	ErrCorrupt = errors.New("message queue corrupted")

	// ErrUnsupported is returned on platforms without shared futex support.
	ErrUnsupported = errors.New("shared memory queues are not supported on this platform")
)

// errNotReady marks a segment whose creator has not finished initializing
// the header. Open paths retry on it.
var errNotReady = errors.New("message queue segment not initialized")

// errVanished marks a segment whose backing file was unlinked between the
// map and the attach. Open paths retry on it.
var errVanished = errors.New("message queue segment removed during open")
