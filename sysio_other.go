//go:build !linux && !darwin

package fsa

import "os"

// reserveFile sizes file to exactly size bytes. Blocks are not reserved
// ahead of time on this platform.
func reserveFile(file *os.File, size int64) error {
	return file.Truncate(size)
}

func prefaultRegion(data []byte) {}

func adviseRandom(data []byte) {}

func adviseSequential(file *os.File, size int64) {}
