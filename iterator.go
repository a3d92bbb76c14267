package fsa

import "iter"

// Iterator enumerates the sequences accepted from a node in ascending
// lexicographic order. It walks the automaton depth first with an explicit
// stack, so memory use is proportional to the longest sequence.
//
// An Iterator is not safe for concurrent use, but any number of iterators
// may run over the same FSA at once.
type Iterator struct {
	fsa   FSA
	stack []int // arc continuation per depth
	buf   []byte
	ok    bool
}

// NewIterator returns an iterator over the right language of node.
func NewIterator(fsa FSA, node int) *Iterator {
	it := &Iterator{fsa: fsa}
	it.Restart(node)
	return it
}

// Restart resets the iterator to enumerate the right language of node,
// reusing its buffers.
func (it *Iterator) Restart(node int) {
	it.stack = it.stack[:0]
	it.buf = it.buf[:0]
	it.ok = false
	if first := it.fsa.FirstArc(node); first != 0 {
		it.stack = append(it.stack, first)
	}
}

// Next advances to the next accepted sequence. It returns false once the
// right language is exhausted.
func (it *Iterator) Next() bool {
	for len(it.stack) > 0 {
		depth := len(it.stack) - 1
		arc := it.stack[depth]
		if arc == 0 {
			it.stack = it.stack[:depth]
			continue
		}

		it.buf = append(it.buf[:depth], it.fsa.ArcLabel(arc))
		it.stack[depth] = it.fsa.NextArc(arc)
		if !it.fsa.IsArcTerminal(arc) {
			it.stack = append(it.stack, it.fsa.FirstArc(it.fsa.EndNode(arc)))
		}
		if it.fsa.IsArcFinal(arc) {
			it.ok = true
			return true
		}
	}
	it.buf = it.buf[:0]
	it.ok = false
	return false
}

// Bytes returns the current sequence. The slice is reused by Next and
// Restart; copy it to retain it.
func (it *Iterator) Bytes() []byte {
	if !it.ok {
		return nil
	}
	return it.buf
}

// Sequences returns the right language of node as an iterator. Yielded
// slices are reused between iterations.
func Sequences(fsa FSA, node int) iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		it := NewIterator(fsa, node)
		for it.Next() {
			if !yield(it.Bytes()) {
				return
			}
		}
	}
}

// Collect returns copies of every sequence accepted by fsa, in order.
func Collect(fsa FSA) [][]byte {
	var out [][]byte
	for seq := range Sequences(fsa, fsa.RootNode()) {
		out = append(out, append([]byte(nil), seq...))
	}
	return out
}
