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
	"errors"
	"strings"
	"testing"
	"unsafe"
)

func TestHeaderSizeAndOffsets(t *testing.T) {
	if size := unsafe.Sizeof(Header{}); size != HeaderSize {
		t.Fatalf("Header size = %d, want %d", size, HeaderSize)
	}

	offsets := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"magic", unsafe.Offsetof(Header{}.magic), 0x00},
		{"version", unsafe.Offsetof(Header{}.version), 0x08},
		{"blockSize", unsafe.Offsetof(Header{}.blockSize), 0x0C},
		{"capacity", unsafe.Offsetof(Header{}.capacity), 0x10},
		{"putPos", unsafe.Offsetof(Header{}.putPos), 0x14},
		{"getPos", unsafe.Offsetof(Header{}.getPos), 0x18},
		{"usedBlocks", unsafe.Offsetof(Header{}.usedBlocks), 0x1C},
		{"stopped", unsafe.Offsetof(Header{}.stopped), 0x20},
		{"refCount", unsafe.Offsetof(Header{}.refCount), 0x24},
		{"mutex", unsafe.Offsetof(Header{}.mutex), 0x28},
		{"spaceSeq", unsafe.Offsetof(Header{}.spaceSeq), 0x2C},
		{"spaceWaiters", unsafe.Offsetof(Header{}.spaceWaiters), 0x30},
		{"dataSeq", unsafe.Offsetof(Header{}.dataSeq), 0x34},
		{"dataWaiters", unsafe.Offsetof(Header{}.dataWaiters), 0x38},
		{"reserved", unsafe.Offsetof(Header{}.reserved), 0x3C},
	}
	for _, o := range offsets {
		if o.got != o.want {
			t.Errorf("offset of %s = %#x, want %#x", o.name, o.got, o.want)
		}
	}
}

func TestQueueMagicMatchesConstant(t *testing.T) {
	if string(queueMagic[:]) != QueueMagic {
		t.Fatalf("queueMagic = %q, want %q", queueMagic[:], QueueMagic)
	}
}

func TestMagicPublishRoundTrip(t *testing.T) {
	var h Header
	if h.Magic() != [8]byte{} {
		t.Fatal("zero header should have zero magic")
	}
	h.SetMagic(queueMagic)
	if h.Magic() != queueMagic {
		t.Fatalf("Magic = %q, want %q", h.Magic(), queueMagic)
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	for _, n := range []uint64{1, 2, 4, 8, 1024, 1 << 31} {
		if !IsPowerOfTwo(n) {
			t.Errorf("IsPowerOfTwo(%d) = false, want true", n)
		}
	}
	for _, n := range []uint64{0, 3, 6, 12, 1000, 1<<31 + 1} {
		if IsPowerOfTwo(n) {
			t.Errorf("IsPowerOfTwo(%d) = true, want false", n)
		}
	}
}

func TestCalculateQueueLayout(t *testing.T) {
	total, err := CalculateQueueLayout(4, 16)
	if err != nil {
		t.Fatalf("CalculateQueueLayout(4, 16) failed: %v", err)
	}
	if want := uint64(HeaderSize + 4*16); total != want {
		t.Fatalf("total = %d, want %d", total, want)
	}

	cases := []struct {
		name      string
		capacity  uint32
		blockSize uint32
		wantErr   error
	}{
		{"zero block size", 4, 0, ErrBlockSize},
		{"non power of two", 4, 24, ErrBlockSize},
		{"below minimum", 4, 4, ErrBlockSize},
		{"zero capacity", 0, 16, ErrCapacity},
	}
	for _, tc := range cases {
		if _, err := CalculateQueueLayout(tc.capacity, tc.blockSize); !errors.Is(err, tc.wantErr) {
			t.Errorf("%s: err = %v, want %v", tc.name, err, tc.wantErr)
		}
	}

	if _, err := CalculateQueueLayout(1<<22, 1<<10); err == nil {
		t.Error("oversized layout should be rejected")
	}
}

func TestBlocksRequired(t *testing.T) {
	cases := []struct {
		blockSize  uint32
		payloadLen uint32
		want       uint32
	}{
		{16, 0, 1},
		{16, 12, 1},
		{16, 13, 2},
		{16, 50, 4},
		{8, 0, 1},
		{8, 4, 1},
		{8, 5, 2},
		{64, 60, 1},
		{64, 61, 2},
	}
	for _, tc := range cases {
		if got := blocksRequired(tc.blockSize, tc.payloadLen); got != tc.want {
			t.Errorf("blocksRequired(%d, %d) = %d, want %d", tc.blockSize, tc.payloadLen, got, tc.want)
		}
	}
}

func TestValidateHeader(t *testing.T) {
	good := func() *Header {
		var h Header
		h.SetVersion(QueueVersion)
		h.SetBlockSize(16)
		h.SetCapacity(4)
		h.SetRefCount(1)
		h.SetMagic(queueMagic)
		return &h
	}
	size := int64(HeaderSize + 4*16)

	if err := ValidateHeader(good(), size); err != nil {
		t.Fatalf("valid header rejected: %v", err)
	}

	var zero Header
	if err := ValidateHeader(&zero, size); !errors.Is(err, errNotReady) {
		t.Errorf("zero header: err = %v, want errNotReady", err)
	}

	// A creator caught between SetMagic's two stores: the second word is
	// visible, the first still zero. Opens must retry, not fail.
	h := good()
	h.magic = [8]byte{}
	copy(h.magic[4:8], queueMagic[4:8])
	if err := ValidateHeader(h, size); !errors.Is(err, errNotReady) {
		t.Errorf("half-published magic: err = %v, want errNotReady", err)
	}

	h = good()
	h.SetMagic([8]byte{'X', 'X', 'X', 'X', 'X', 'X', 'X', 0})
	if err := ValidateHeader(h, size); !errors.Is(err, ErrCorrupt) {
		t.Errorf("bad magic: err = %v, want ErrCorrupt", err)
	}

	h = good()
	h.SetVersion(QueueVersion + 1)
	if err := ValidateHeader(h, size); err == nil || !strings.Contains(err.Error(), "version") {
		t.Errorf("bad version: err = %v, want version error", err)
	}

	h = good()
	h.SetBlockSize(10)
	if err := ValidateHeader(h, size); !errors.Is(err, ErrCorrupt) {
		t.Errorf("bad block size: err = %v, want ErrCorrupt", err)
	}

	if err := ValidateHeader(good(), size-1); !errors.Is(err, ErrCorrupt) {
		t.Errorf("short mapping: err = %v, want ErrCorrupt", err)
	}

	h = good()
	h.SetUsedBlocks(5)
	if err := ValidateHeader(h, size); !errors.Is(err, ErrCorrupt) {
		t.Errorf("used over capacity: err = %v, want ErrCorrupt", err)
	}
}
