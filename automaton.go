package fsa

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"
	"go.uber.org/zap"

	fsaerrors "github.com/tamirms/fsa/errors"
)

// Automaton is a read-only view of a serialized automaton. Every query runs
// directly on the serialized bytes.
//
// Thread Safety:
//   - All query methods are safe for concurrent use
//   - Close is NOT safe to call concurrently with queries
//   - After Close returns, RightLanguageCount and Verify report
//     ErrAutomatonClosed, FirstArc and Arc panic with it, and no other
//     primitive may be called
//
// Nodes and arcs are int offsets. Zero means absent: FirstArc(0) and
// EndNode(0) return 0, and RootNode returns 0 for an automaton that accepts
// nothing.
type Automaton struct {
	mmap mmap.MMap // nil unless opened from a file
	data []byte

	header *header
	dec    decoder

	closed atomic.Bool
}

// Open memory-maps the automaton file at path.
func Open(path string) (*Automaton, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open automaton file: %w", err)
	}
	defer file.Close()
	return OpenFile(file)
}

// OpenFile memory-maps f read-only. The caller is responsible for closing f;
// it may be closed as soon as OpenFile returns.
func OpenFile(f *os.File) (*Automaton, error) {
	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat automaton file: %w", err)
	}
	// Zero-length mappings are rejected by mmap.
	if stat.Size() < prefixSize {
		return nil, fsaerrors.Format(fsaerrors.ErrTruncatedHeader, "%d bytes", stat.Size())
	}

	mm, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("mmap automaton file: %w", err)
	}
	adviseRandom(mm)

	a := &Automaton{mmap: mm, data: []byte(mm)}
	if err := a.init(); err != nil {
		return nil, errors.Join(err, a.Close())
	}
	return a, nil
}

// OpenBytes wraps an in-memory automaton. The caller must not modify data
// while the Automaton is in use. Close is a no-op.
func OpenBytes(data []byte) (*Automaton, error) {
	a := &Automaton{data: data}
	if err := a.init(); err != nil {
		return nil, err
	}
	return a, nil
}

// Load reads the whole file at path into memory. Unlike Open, the result
// does not depend on the file after Load returns.
func Load(path string) (*Automaton, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open automaton file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat automaton file: %w", err)
	}
	adviseSequential(file, stat.Size())

	data := make([]byte, stat.Size())
	if _, err := io.ReadFull(file, data); err != nil {
		return nil, fmt.Errorf("read automaton file: %w", err)
	}
	return OpenBytes(data)
}

// Read consumes r to EOF and opens the bytes read.
func Read(r io.Reader) (*Automaton, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("read automaton: %w", err)
	}
	return OpenBytes(buf.Bytes())
}

func (a *Automaton) init() error {
	hdr, err := decodeHeader(a.data)
	if err != nil {
		return err
	}
	a.header = hdr

	c, err := lookupCodec(hdr.Version)
	if err != nil {
		return fsaerrors.Format(fsaerrors.ErrInvalidVersion, "0x%02x", uint8(hdr.Version))
	}
	a.dec, err = c.open(hdr, a.data)
	if err != nil {
		return err
	}

	Logger().Debug("automaton opened",
		zap.Stringer("format", hdr.Version),
		zap.Stringer("flags", a.dec.flags()),
		zap.Int("size", len(a.data)),
		zap.Bool("mapped", a.mmap != nil))
	return nil
}

// Close releases the mapping, if any. It is idempotent.
func (a *Automaton) Close() error {
	if a.closed.Swap(true) {
		return nil
	}
	if a.mmap != nil {
		return a.mmap.Unmap()
	}
	return nil
}

// RootNode returns the node every accepted sequence starts from, or 0 if
// the automaton accepts nothing.
func (a *Automaton) RootNode() int {
	return a.dec.rootNode()
}

// FirstArc returns the first arc of node, in ascending label order.
// Panics with ErrAutomatonClosed after Close.
func (a *Automaton) FirstArc(node int) int {
	if node == 0 {
		return 0
	}
	a.checkOpen()
	return a.dec.firstArc(node)
}

// NextArc returns the arc following arc in its node, or 0 after the last.
func (a *Automaton) NextArc(arc int) int {
	if arc == 0 {
		return 0
	}
	return a.dec.nextArc(arc)
}

// Arc returns node's arc labelled label, or 0 if there is none.
// Panics with ErrAutomatonClosed after Close.
func (a *Automaton) Arc(node int, label byte) int {
	if node == 0 {
		return 0
	}
	a.checkOpen()
	return a.dec.arc(node, label)
}

// checkOpen guards the entry points of every traversal. A closed file-backed
// automaton no longer has its mapping, so reading it would fault.
func (a *Automaton) checkOpen() {
	if a.closed.Load() {
		panic(fsaerrors.ErrAutomatonClosed)
	}
}

// ArcLabel returns the byte arc consumes.
func (a *Automaton) ArcLabel(arc int) byte {
	if arc == 0 {
		return 0
	}
	return a.dec.arcLabel(arc)
}

// IsArcFinal reports whether the sequence spelled up to and including arc
// is accepted.
func (a *Automaton) IsArcFinal(arc int) bool {
	if arc == 0 {
		return false
	}
	return a.dec.isArcFinal(arc)
}

// IsArcTerminal reports whether arc has no target node.
func (a *Automaton) IsArcTerminal(arc int) bool {
	if arc == 0 {
		return true
	}
	return a.dec.isArcTerminal(arc)
}

// IsArcLast reports whether arc is the last arc of its node.
func (a *Automaton) IsArcLast(arc int) bool {
	if arc == 0 {
		return true
	}
	return a.dec.isArcLast(arc)
}

// EndNode returns the target of arc, or 0 for a terminal arc.
func (a *Automaton) EndNode(arc int) int {
	if arc == 0 {
		return 0
	}
	return a.dec.endNode(arc)
}

// RightLanguageCount returns the number of sequences accepted from node.
// Requires FlagNumbers.
func (a *Automaton) RightLanguageCount(node int) (int, error) {
	if a.closed.Load() {
		return 0, fsaerrors.ErrAutomatonClosed
	}
	if node == 0 {
		if !a.dec.flags().Has(FlagNumbers) {
			return 0, fsaerrors.ErrUnsupportedFeature
		}
		return 0, nil
	}
	n, ok := a.dec.rightLanguageCount(node)
	if !ok {
		return 0, fsaerrors.ErrUnsupportedFeature
	}
	return n, nil
}

// Flags returns the features of the serialized form.
func (a *Automaton) Flags() Flags {
	return a.dec.flags()
}

// Format returns the wire format the automaton was serialized in.
func (a *Automaton) Format() Format {
	return a.header.Version
}

// Filler returns the header's filler byte.
func (a *Automaton) Filler() byte {
	return a.header.Filler
}

// Annotation returns the header's annotation (separator) byte.
func (a *Automaton) Annotation() byte {
	return a.header.Annotation
}

// Bytes returns the serialized automaton. The slice is backed by the
// mapping for automata opened from a file.
func (a *Automaton) Bytes() []byte {
	return a.data
}

// Size returns the serialized size in bytes.
func (a *Automaton) Size() int {
	return len(a.data)
}

// Fingerprint returns a 64-bit xxhash of the serialized bytes. Automata
// built from the same set with the same format and options share a
// fingerprint.
func (a *Automaton) Fingerprint() uint64 {
	return xxhash.Sum64(a.data)
}

const (
	unvisited = iota
	visiting
	visited
)

// Verify walks every reachable node and arc and reports structural damage
// that Open does not check: reads past the end of the buffer, labels out of
// order, cycles, and (with FlagNumbers) stored counts that disagree with
// the automaton.
func (a *Automaton) Verify() (err error) {
	if a.closed.Load() {
		return fsaerrors.ErrAutomatonClosed
	}
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(error)
			if !ok || !errors.Is(e, fsaerrors.ErrOutOfBounds) {
				panic(r)
			}
			err = fsaerrors.Format(e, "")
		}
	}()

	root := a.RootNode()
	if root == 0 {
		return nil
	}

	numbers := a.dec.flags().Has(FlagNumbers)
	bodySize := len(a.data) - a.dec.headerSize()
	state := make([]uint8, bodySize)
	counts := make(map[int]int)

	type frame struct {
		node, arc int
		count     int
		prev      int // previous label, -1 before the first arc
	}
	corrupted := func(format string, args ...any) error {
		return fsaerrors.Format(fsaerrors.ErrCorrupted, format, args...)
	}
	enter := func(node int) (frame, error) {
		if node <= 0 || node >= bodySize {
			return frame{}, corrupted("node %d outside body of %d bytes", node, bodySize)
		}
		state[node] = visiting
		return frame{node: node, arc: a.dec.firstArc(node), prev: -1}, nil
	}

	first, err := enter(root)
	if err != nil {
		return err
	}
	stack := []frame{first}
	for len(stack) > 0 {
		top := len(stack) - 1
		f := &stack[top]

		if f.arc == 0 {
			if numbers {
				stored, _ := a.dec.rightLanguageCount(f.node)
				if stored != f.count {
					return corrupted("node %d stores count %d, has %d", f.node, stored, f.count)
				}
			}
			state[f.node] = visited
			counts[f.node] = f.count
			stack = stack[:top]
			continue
		}

		arc := f.arc
		if label := int(a.dec.arcLabel(arc)); label <= f.prev {
			return corrupted("arc %d label 0x%02x not above 0x%02x", arc, label, f.prev)
		}
		if !a.dec.isArcTerminal(arc) {
			target := a.dec.endNode(arc)
			if target > 0 && target < bodySize && state[target] == visiting {
				return corrupted("cycle through node %d", target)
			}
			if target <= 0 || target >= bodySize || state[target] == unvisited {
				child, err := enter(target)
				if err != nil {
					return err
				}
				stack = append(stack, child)
				continue
			}
			f.count += counts[target]
		}
		if a.dec.isArcFinal(arc) {
			f.count++
		}
		f.prev = int(a.dec.arcLabel(arc))
		f.arc = a.dec.nextArc(arc)
	}
	return nil
}
