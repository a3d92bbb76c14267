//go:build darwin

package fsa

import (
	"os"

	"golang.org/x/sys/unix"
)

// reserveFile sizes file to exactly size bytes. F_PREALLOCATE only reserves
// space, so the file is truncated to size either way.
func reserveFile(file *os.File, size int64) error {
	if size > 0 {
		fst := unix.Fstore_t{
			Flags:   unix.F_ALLOCATEALL,
			Posmode: unix.F_PEOFPOSMODE,
			Length:  size,
		}
		_ = unix.FcntlFstore(file.Fd(), unix.F_PREALLOCATE, &fst)
	}
	return unix.Ftruncate(int(file.Fd()), size)
}

func prefaultRegion(data []byte) {}

func adviseRandom(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Madvise(data, unix.MADV_RANDOM)
}

// adviseSequential is a no-op; darwin has no posix_fadvise.
func adviseSequential(file *os.File, size int64) {}
