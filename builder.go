package fsa

import (
	"bytes"
	"fmt"
	"iter"
	"slices"

	"go.uber.org/zap"

	fsaerrors "github.com/tamirms/fsa/errors"
)

// Builder constructs a minimal automaton from sequences supplied in sorted
// order. Minimization is incremental: once a sequence diverges from its
// predecessor, the states hanging off the predecessor's path past the
// shared prefix can never change again and are interned immediately.
//
// Usage:
//
//	b := fsa.NewBuilder()
//	for _, seq := range sortedSequences {
//	    if err := b.Add(seq); err != nil { return err }
//	}
//	g, err := b.Finish()
//	if err != nil { return err }
//	data, err := fsa.Serialize(g, fsa.FormatCompact, fsa.WithNumbers())
//
// A Builder is NOT safe for concurrent use.
type Builder struct {
	arena    *arena
	registry *registry

	// path[i] is the mutable state reached by the first i bytes of previous.
	// path[0] is the root.
	path     []stateID
	previous []byte

	numSequences int
	finished     bool

	// err is sticky: once the input order is violated the builder refuses
	// all further work.
	err error
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	a := &arena{}
	b := &Builder{
		arena:    a,
		registry: newRegistry(a),
	}
	b.path = append(b.path, a.alloc())
	return b
}

// Add appends a sequence. Sequences must arrive in non-decreasing unsigned
// lexicographic order (bytes.Compare); a sequence equal to the previous one
// is ignored. The sequence is copied.
//
// Returns ErrEmptySequence for an empty sequence, ErrOutOfOrder if seq sorts
// before the previous sequence (after which the builder is unusable), and
// ErrBuilderClosed after Finish.
func (b *Builder) Add(seq []byte) error {
	if b.err != nil {
		return b.err
	}
	if b.finished {
		return fsaerrors.ErrBuilderClosed
	}
	if len(seq) == 0 {
		return fsaerrors.ErrEmptySequence
	}

	switch c := bytes.Compare(seq, b.previous); {
	case c == 0:
		return nil
	case c < 0:
		b.err = fmt.Errorf("%w: %q after %q", fsaerrors.ErrOutOfOrder, seq, b.previous)
		return b.err
	}

	prefix := commonPrefix(seq, b.previous)

	// Everything below the shared prefix on the previous path is complete.
	b.freezeTo(prefix)

	// Grow the path with fresh states for the remaining suffix.
	for _, label := range seq[prefix:] {
		child := b.arena.alloc()
		parent := b.arena.get(b.path[len(b.path)-1])
		parent.transitions = append(parent.transitions, transition{label: label, target: child})
		b.path = append(b.path, child)
	}
	// The suffix is never empty, so the accepting edge is the last one
	// appended above.
	parent := b.arena.get(b.path[len(b.path)-2])
	parent.transitions[len(parent.transitions)-1].final = true

	b.previous = append(b.previous[:0], seq...)
	b.numSequences++
	return nil
}

// freezeTo interns path states deeper than depth, deepest first, replacing
// each one in its parent's last transition with its canonical instance.
func (b *Builder) freezeTo(depth int) {
	for i := len(b.path) - 1; i > depth; i-- {
		canonical := b.registry.intern(b.path[i])
		parent := b.arena.get(b.path[i-1])
		parent.transitions[len(parent.transitions)-1].target = canonical
	}
	b.path = b.path[:depth+1]
}

// NumSequences returns the number of distinct sequences added so far.
func (b *Builder) NumSequences() int {
	return b.numSequences
}

// Finish interns the remaining path and returns the minimized graph.
// The builder cannot be used afterwards.
func (b *Builder) Finish() (*Graph, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.finished {
		return nil, fsaerrors.ErrBuilderClosed
	}
	b.finished = true

	b.freezeTo(0)
	root := b.registry.intern(b.path[0])

	g := &Graph{
		states:       b.arena.states,
		root:         root,
		numSequences: b.numSequences,
	}

	Logger().Debug("automaton built",
		zap.Int("sequences", b.numSequences),
		zap.Int("states", b.registry.size()),
		zap.Int("arena", len(b.arena.states)),
		zap.Int("recycled", len(b.arena.free)))

	b.arena = nil
	b.registry = nil
	b.path = nil
	b.previous = nil
	return g, nil
}

// Build constructs a graph from sequences that are already sorted.
func Build(seqs [][]byte) (*Graph, error) {
	return BuildSeq(slices.Values(seqs))
}

// BuildSeq constructs a graph from a sorted sequence iterator. The
// iterator's slices may be reused between iterations.
func BuildSeq(seqs iter.Seq[[]byte]) (*Graph, error) {
	b := NewBuilder()
	for seq := range seqs {
		if err := b.Add(seq); err != nil {
			return nil, err
		}
	}
	return b.Finish()
}

// BuildUnsorted sorts and deduplicates a copy of seqs before building.
// The input slice is not modified. Empty sequences are still rejected.
func BuildUnsorted(seqs [][]byte) (*Graph, error) {
	sorted := slices.Clone(seqs)
	slices.SortFunc(sorted, bytes.Compare)
	sorted = slices.CompactFunc(sorted, bytes.Equal)
	return Build(sorted)
}

func commonPrefix(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
