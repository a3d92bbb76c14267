package fsa

import (
	"encoding/binary"
	"slices"

	"github.com/zeebo/xxh3"
)

// stateID addresses a state in the construction arena.
type stateID int32

const noState stateID = -1

// transition is a labeled edge of a construction-time state. final marks
// that the sequence spelled up to and including this edge is accepted; it
// lives on the edge because every wire format stores it on the arc.
type transition struct {
	label  byte
	final  bool
	target stateID
}

// state is a construction-time automaton state. Transitions are kept sorted
// by unsigned label; the builder only ever appends labels greater than the
// last one.
type state struct {
	transitions []transition

	// hash is the structural signature, valid once the state is interned.
	hash uint64
}

// arena owns every construction-time state. States rejected by the registry
// are recycled through the free list together with their transition storage.
type arena struct {
	states []state
	free   []stateID
}

func (a *arena) alloc() stateID {
	if n := len(a.free); n > 0 {
		id := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.states[id]
		s.transitions = s.transitions[:0]
		s.hash = 0
		return id
	}
	a.states = append(a.states, state{})
	return stateID(len(a.states) - 1)
}

func (a *arena) release(id stateID) {
	a.free = append(a.free, id)
}

func (a *arena) get(id stateID) *state {
	return &a.states[id]
}

// registry interns minimized states by structure (hash-consing). Children
// must already be canonical when a parent is interned, so comparing target
// IDs is the same as comparing right languages.
//
// The primary map holds the first state seen for each signature; states
// whose signature collides with a different structure go to overflow.
type registry struct {
	arena    *arena
	primary  map[uint64]stateID
	overflow map[uint64][]stateID
	scratch  []byte
}

func newRegistry(a *arena) *registry {
	return &registry{
		arena:    a,
		primary:  make(map[uint64]stateID),
		overflow: make(map[uint64][]stateID),
	}
}

// signature hashes the labels, final flags and target identities of the
// transitions of s.
func (r *registry) signature(s *state) uint64 {
	buf := r.scratch[:0]
	for _, t := range s.transitions {
		flag := byte(0)
		if t.final {
			flag = 1
		}
		buf = append(buf, t.label, flag)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(t.target))
	}
	r.scratch = buf
	return xxh3.Hash(buf)
}

// intern returns the canonical instance structurally equal to id. If one is
// already registered, id is released back to the arena.
func (r *registry) intern(id stateID) stateID {
	s := r.arena.get(id)
	h := r.signature(s)

	if existing, ok := r.primary[h]; ok {
		if equalStates(r.arena.get(existing), s) {
			r.arena.release(id)
			return existing
		}
		for _, candidate := range r.overflow[h] {
			if equalStates(r.arena.get(candidate), s) {
				r.arena.release(id)
				return candidate
			}
		}
		s.hash = h
		r.overflow[h] = append(r.overflow[h], id)
		return id
	}

	s.hash = h
	r.primary[h] = id
	return id
}

// size returns the number of interned states.
func (r *registry) size() int {
	n := len(r.primary)
	for _, ids := range r.overflow {
		n += len(ids)
	}
	return n
}

func equalStates(a, b *state) bool {
	return slices.Equal(a.transitions, b.transitions)
}
