package fsa

import (
	"errors"
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
	"go.uber.org/zap"
)

// fileWriter encodes a plan straight into a memory-mapped output file.
// The exact size is known before writing, so the file is allocated once and
// never resized.
type fileWriter struct {
	path string
	file *os.File
	mmap mmap.MMap
}

// Save serializes g in the given format to the file at path, replacing any
// existing file. Returns the number of bytes written. On failure the partial
// file is removed.
func Save(path string, g *Graph, format Format, opts ...SerializeOption) (int64, error) {
	plan, err := newPlan(g, format, opts)
	if err != nil {
		return 0, err
	}
	size := plan.size()

	w, err := createFileWriter(path, size)
	if err != nil {
		return 0, err
	}
	plan.encodeTo(w.mmap)
	if err := w.finalize(); err != nil {
		return 0, err
	}

	Logger().Debug("automaton saved",
		zap.String("path", path),
		zap.Stringer("format", format),
		zap.Int("size", size))
	return int64(size), nil
}

func createFileWriter(path string, size int) (*fileWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create automaton file: %w", err)
	}
	w := &fileWriter{path: path, file: file}

	if err := reserveFile(file, int64(size)); err != nil {
		return nil, w.abort(fmt.Errorf("allocate %d bytes: %w", size, err))
	}
	mm, err := mmap.MapRegion(file, size, mmap.RDWR, 0, 0)
	if err != nil {
		return nil, w.abort(fmt.Errorf("mmap automaton file: %w", err))
	}
	w.mmap = mm
	prefaultRegion(mm)
	return w, nil
}

// finalize flushes and unmaps the region and closes the file.
func (w *fileWriter) finalize() error {
	if err := w.mmap.Flush(); err != nil {
		return w.abort(fmt.Errorf("mmap flush: %w", err))
	}
	// Nil the mapping regardless of outcome so abort does not unmap twice.
	unmapErr := w.mmap.Unmap()
	w.mmap = nil
	if unmapErr != nil {
		return w.abort(fmt.Errorf("mmap unmap: %w", unmapErr))
	}
	closeErr := w.file.Close()
	w.file = nil
	if closeErr != nil {
		return w.abort(fmt.Errorf("close automaton file: %w", closeErr))
	}
	return nil
}

// abort releases everything still held, removes the partial file and
// returns cause joined with any cleanup failure.
func (w *fileWriter) abort(cause error) error {
	var unmapErr, closeErr error
	if w.mmap != nil {
		unmapErr = w.mmap.Unmap()
		w.mmap = nil
	}
	if w.file != nil {
		closeErr = w.file.Close()
		w.file = nil
	}
	removeErr := os.Remove(w.path)
	if errors.Is(removeErr, os.ErrNotExist) {
		removeErr = nil
	}
	return errors.Join(cause, unmapErr, closeErr, removeErr)
}
