//go:build linux

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
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

func init() {
	// Set platform-specific function implementations
	unmapMemory = munmapImpl
}

// segmentDirEnv overrides the directory holding segment files.
const segmentDirEnv = "BOOSTLOG_MQ_DIR"

const segmentPrefix = "boostlog_mq_"

// CreateSegment creates and maps a brand-new named segment of size bytes.
// The region is zero-initialized. It fails with ErrExists when a segment
// with the same name already exists.
func CreateSegment(name string, size uint64) (*Segment, error) {
	path, err := segmentPath(name)
	if err != nil {
		return nil, err
	}

	// Create the file with exclusive access
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
	if err != nil {
		if os.IsExist(err) {
			return nil, errors.Wrapf(ErrExists, "queue %q", name)
		}
		return nil, errors.Wrapf(err, "failed to create segment file %s", path)
	}

	// Ensure cleanup on error
	cleanup := func() {
		file.Close()
		os.Remove(path)
	}

	// Set the file size
	if err := file.Truncate(int64(size)); err != nil {
		cleanup()
		return nil, errors.Wrap(err, "failed to resize segment file")
	}

	// Memory map the file
	mem, err := mmapFile(file, int(size))
	if err != nil {
		cleanup()
		return nil, errors.Wrap(err, "failed to mmap segment")
	}

	debug("segment created", "path", path, "size", size)
	return &Segment{File: file, Mem: mem, Path: path}, nil
}

// OpenSegment opens and maps an existing named segment. It fails with
// ErrNotFound when no segment has the given name and with errNotReady when
// the creator has not yet sized the file.
func OpenSegment(name string) (*Segment, error) {
	path, err := segmentPath(name)
	if err != nil {
		return nil, err
	}

	// Open the existing file
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNotFound, "queue %q", name)
		}
		return nil, errors.Wrapf(err, "failed to open segment file %s", path)
	}

	// Get file info to determine size
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, "failed to stat segment file")
	}

	size := info.Size()
	if size < HeaderSize {
		// The creator truncates the file before publishing the header.
		file.Close()
		return nil, errors.Wrapf(errNotReady, "segment file is %d bytes", size)
	}

	// Memory map the file
	mem, err := mmapFile(file, int(size))
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, "failed to mmap segment")
	}

	debug("segment opened", "path", path, "size", size)
	return &Segment{File: file, Mem: mem, Path: path}, nil
}

// RemoveSegment unlinks the backing file of a named segment. Existing
// mappings stay valid; new opens fail with ErrNotFound.
func RemoveSegment(name string) error {
	path, err := segmentPath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to remove segment file %s", path)
	}
	debug("segment removed", "path", path)
	return nil
}

// SegmentExists reports whether a segment with the given name exists.
func SegmentExists(name string) bool {
	path, err := segmentPath(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// segmentPath returns the file path backing a named segment.
func segmentPath(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, "/\x00") {
		return "", errors.Wrapf(ErrBadName, "name %q", name)
	}
	return filepath.Join(segmentDir(), segmentPrefix+name), nil
}

// segmentDir picks the directory holding segment files. /dev/shm is
// preferred so the segment never touches a disk.
func segmentDir() string {
	if dir := os.Getenv(segmentDirEnv); dir != "" {
		return dir
	}
	if info, err := os.Stat("/dev/shm"); err == nil && info.IsDir() {
		return "/dev/shm"
	}
	return os.TempDir()
}

// mmapFile memory maps a file for shared reading and writing.
func mmapFile(file *os.File, size int) ([]byte, error) {
	data, err := unix.Mmap(int(file.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.Wrap(err, "mmap failed")
	}
	return data, nil
}

// munmapImpl unmaps a memory-mapped region.
func munmapImpl(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := unix.Munmap(data); err != nil {
		return errors.Wrap(err, "munmap failed")
	}
	return nil
}
