/*
 *
 * Copyright 2026 The boost-log Authors.
 *
 * Distributed under the Boost Software License, Version 1.0.
 * (See accompanying file LICENSE_1_0.txt or copy at
 * http://www.boost.org/LICENSE_1_0.txt)
 *
 */

// Package shmq implements the engine of the interprocess message queue: the
// shared segment layout, the block arena, message framing, and the
// futex-based cross-process synchronization protocol. The public API lives
// in the ipc package.
package shmq

import (
	"encoding/binary"
	"os"
	"sync/atomic"
	"unsafe"

	"github.com/pkg/errors"
)

// Memory layout constants
const (
	// Magic bytes identifying a queue segment
	QueueMagic = "BLOGMQ1\x00"

	// Current layout version
	QueueVersion = uint32(1)

	// Queue header size (aligned to 128 bytes)
	HeaderSize = 128

	// Smallest allowed block size
	MinBlockSize = 8

	// Largest allowed segment (header plus arena)
	MaxSegmentSize = uint64(1) << 31

	// Bytes of the per-message length prefix
	prefixSize = 4
)

var queueMagic = [8]byte{'B', 'L', 'O', 'G', 'M', 'Q', '1', 0}

// Platform-specific functions (implemented in platform-specific files)
var (
	// unmapMemory unmaps a memory-mapped region
	unmapMemory func([]byte) error
)

// Header is the shared queue header at the start of the segment. Every
// field after the geometry is mutated only while holding the queue mutex;
// the accessors still use atomic loads and stores so that unlocked readers
// (validation, stat snapshots, futex re-checks) never see torn values.
type Header struct {
	magic        [8]byte  // 0x00: "BLOGMQ1\0"
	version      uint32   // 0x08: layout version
	blockSize    uint32   // 0x0C: block size in bytes (power of two)
	capacity     uint32   // 0x10: arena capacity in blocks
	putPos       uint32   // 0x14: write cursor (block index mod capacity)
	getPos       uint32   // 0x18: read cursor (block index mod capacity)
	usedBlocks   uint32   // 0x1C: blocks occupied by queued messages
	stopped      uint32   // 0x20: stop flag (0 running, 1 stopped)
	refCount     uint32   // 0x24: attached handles across all processes
	mutex        uint32   // 0x28: futex word (0 free, 1 locked, 2 contended)
	spaceSeq     uint32   // 0x2C: condition sequence: space became available
	spaceWaiters uint32   // 0x30: waiters on the space condition
	dataSeq      uint32   // 0x34: condition sequence: data became available
	dataWaiters  uint32   // 0x38: waiters on the data condition
	reserved     [68]byte // 0x3C-0x7F: reserved/padding to 128B
}

// Header atomic access methods

// Magic returns the magic bytes.
func (h *Header) Magic() [8]byte {
	var m [8]byte
	lo := atomic.LoadUint32((*uint32)(unsafe.Pointer(&h.magic[0])))
	hi := atomic.LoadUint32((*uint32)(unsafe.Pointer(&h.magic[4])))
	binary.LittleEndian.PutUint32(m[0:4], lo)
	binary.LittleEndian.PutUint32(m[4:8], hi)
	return m
}

// SetMagic publishes the magic bytes. The first word is stored last, so an
// open that observes the full magic also observes every header field stored
// before it.
func (h *Header) SetMagic(magic [8]byte) {
	atomic.StoreUint32((*uint32)(unsafe.Pointer(&h.magic[4])), binary.LittleEndian.Uint32(magic[4:8]))
	atomic.StoreUint32((*uint32)(unsafe.Pointer(&h.magic[0])), binary.LittleEndian.Uint32(magic[0:4]))
}

// Version returns the layout version.
func (h *Header) Version() uint32 {
	return atomic.LoadUint32(&h.version)
}

// SetVersion sets the layout version.
func (h *Header) SetVersion(version uint32) {
	atomic.StoreUint32(&h.version, version)
}

// BlockSize returns the block size in bytes.
func (h *Header) BlockSize() uint32 {
	return atomic.LoadUint32(&h.blockSize)
}

// SetBlockSize sets the block size in bytes.
func (h *Header) SetBlockSize(size uint32) {
	atomic.StoreUint32(&h.blockSize, size)
}

// Capacity returns the arena capacity in blocks.
func (h *Header) Capacity() uint32 {
	return atomic.LoadUint32(&h.capacity)
}

// SetCapacity sets the arena capacity in blocks.
func (h *Header) SetCapacity(capacity uint32) {
	atomic.StoreUint32(&h.capacity, capacity)
}

// PutPos returns the write cursor.
func (h *Header) PutPos() uint32 {
	return atomic.LoadUint32(&h.putPos)
}

// SetPutPos sets the write cursor.
func (h *Header) SetPutPos(pos uint32) {
	atomic.StoreUint32(&h.putPos, pos)
}

// GetPos returns the read cursor.
func (h *Header) GetPos() uint32 {
	return atomic.LoadUint32(&h.getPos)
}

// SetGetPos sets the read cursor.
func (h *Header) SetGetPos(pos uint32) {
	atomic.StoreUint32(&h.getPos, pos)
}

// UsedBlocks returns the number of blocks occupied by queued messages.
func (h *Header) UsedBlocks() uint32 {
	return atomic.LoadUint32(&h.usedBlocks)
}

// SetUsedBlocks sets the number of blocks occupied by queued messages.
func (h *Header) SetUsedBlocks(n uint32) {
	atomic.StoreUint32(&h.usedBlocks, n)
}

// Stopped returns the stop flag.
func (h *Header) Stopped() bool {
	return atomic.LoadUint32(&h.stopped) != 0
}

// SetStopped sets the stop flag.
func (h *Header) SetStopped(stopped bool) {
	var val uint32
	if stopped {
		val = 1
	}
	atomic.StoreUint32(&h.stopped, val)
}

// RefCount returns the number of attached handles across all processes.
func (h *Header) RefCount() uint32 {
	return atomic.LoadUint32(&h.refCount)
}

// SetRefCount sets the number of attached handles.
func (h *Header) SetRefCount(n uint32) {
	atomic.StoreUint32(&h.refCount, n)
}

// Layout calculation and validation helpers

// IsPowerOfTwo returns true if n is a power of two.
func IsPowerOfTwo(n uint64) bool {
	return n > 0 && (n&(n-1)) == 0
}

// CalculateQueueLayout returns the total segment size in bytes for a queue
// with the given geometry.
func CalculateQueueLayout(capacity, blockSize uint32) (uint64, error) {
	if !IsPowerOfTwo(uint64(blockSize)) || blockSize < MinBlockSize {
		return 0, errors.Wrapf(ErrBlockSize, "block size %d", blockSize)
	}
	if capacity == 0 {
		return 0, ErrCapacity
	}

	total := uint64(HeaderSize) + uint64(capacity)*uint64(blockSize)
	if total > MaxSegmentSize {
		return 0, errors.Errorf("segment size %d exceeds the %d byte limit", total, MaxSegmentSize)
	}
	return total, nil
}

// blocksRequired returns the number of blocks a framed message of the given
// payload length occupies.
func blocksRequired(blockSize, payloadLen uint32) uint32 {
	return (prefixSize + payloadLen + blockSize - 1) / blockSize
}

// ValidateHeader validates a mapped queue header against the mapped size.
// It returns errNotReady while the creator has not yet published the magic.
func ValidateHeader(h *Header, mappedSize int64) error {
	magic := h.Magic()
	// SetMagic stores the first word last and Magic loads it first, so a
	// zero first word means the creator is still mid-publish.
	if binary.LittleEndian.Uint32(magic[0:4]) == 0 {
		return errNotReady
	}
	if magic != queueMagic {
		return errors.Wrapf(ErrCorrupt, "bad magic %q", magic[:])
	}

	if v := h.Version(); v != QueueVersion {
		return errors.Errorf("unsupported queue version %d, expected %d", v, QueueVersion)
	}

	total, err := CalculateQueueLayout(h.Capacity(), h.BlockSize())
	if err != nil {
		return errors.Wrap(ErrCorrupt, err.Error())
	}
	if uint64(mappedSize) < total {
		return errors.Wrapf(ErrCorrupt, "segment is %d bytes, layout needs %d", mappedSize, total)
	}

	if used, capb := h.UsedBlocks(), h.Capacity(); used > capb {
		return errors.Wrapf(ErrCorrupt, "%d blocks used of %d", used, capb)
	}
	return nil
}

// Segment is a mapped shared memory region backing one queue.
type Segment struct {
	File *os.File // file descriptor for the shared memory file
	Mem  []byte   // memory-mapped region
	Path string   // file path
}

// Header returns the typed view of the queue header at the start of the
// mapped region.
func (s *Segment) Header() *Header {
	return (*Header)(unsafe.Pointer(&s.Mem[0]))
}

// Arena returns the block arena following the header.
func (s *Segment) Arena() []byte {
	return s.Mem[HeaderSize:]
}

// Close unmaps the memory and closes the file. It does not remove the
// backing file; that is the queue's reference-counted teardown.
func (s *Segment) Close() error {
	var firstErr error

	if s.Mem != nil {
		if err := unmapMemory(s.Mem); err != nil && firstErr == nil {
			firstErr = err
		}
		s.Mem = nil
	}

	if s.File != nil {
		if err := s.File.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.File = nil
	}

	return firstErr
}
