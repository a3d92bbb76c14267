//go:build linux

package fsa

import (
	"os"

	"golang.org/x/sys/unix"
)

// madvPopulateWrite is MADV_POPULATE_WRITE (Linux 5.14+). Older kernels
// reject it with EINVAL.
const madvPopulateWrite = 23

// reserveFile sizes file to exactly size bytes, allocating the blocks up
// front so that writes through a shared mapping cannot fault on a full disk.
func reserveFile(file *os.File, size int64) error {
	if size > 0 {
		// Not every filesystem supports fallocate; ftruncate alone still
		// yields a correctly sized file.
		_ = unix.Fallocate(int(file.Fd()), 0, 0, size)
	}
	return unix.Ftruncate(int(file.Fd()), size)
}

// prefaultRegion populates the pages of a writable mapping before they are
// written. Best-effort.
func prefaultRegion(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Madvise(data, madvPopulateWrite)
}

// adviseRandom tells the kernel that a read-only mapping is accessed at
// random, disabling readahead. Best-effort.
func adviseRandom(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Madvise(data, unix.MADV_RANDOM)
}

// adviseSequential hints that file is about to be read front to back.
// Best-effort.
func adviseSequential(file *os.File, size int64) {
	_ = unix.Fadvise(int(file.Fd()), 0, size, unix.FADV_SEQUENTIAL)
}
