package fsa

// Graph is a minimized automaton produced by a Builder. It exists only to be
// serialized; queries run against an Automaton opened from the serialized
// bytes.
//
// A Graph is immutable and may be serialized any number of times, in any
// format, from multiple goroutines.
type Graph struct {
	states       []state
	root         stateID
	numSequences int
}

// NumSequences returns the number of distinct sequences the graph accepts.
func (g *Graph) NumSequences() int {
	return g.numSequences
}

// NumStates returns the number of reachable states, including the root and
// the shared accepting leaf.
func (g *Graph) NumStates() int {
	n := 0
	g.walk(func(stateID) { n++ })
	return n
}

// NumTransitions returns the number of transitions between reachable states.
func (g *Graph) NumTransitions() int {
	n := 0
	g.walk(func(id stateID) { n += len(g.states[id].transitions) })
	return n
}

func (g *Graph) state(id stateID) *state {
	return &g.states[id]
}

// walk visits every reachable state once, in no particular order.
func (g *Graph) walk(visit func(stateID)) {
	seen := make([]bool, len(g.states))
	stack := []stateID{g.root}
	seen[g.root] = true
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visit(id)
		for _, t := range g.states[id].transitions {
			if !seen[t.target] {
				seen[t.target] = true
				stack = append(stack, t.target)
			}
		}
	}
}

// linearize returns the non-leaf states in serialization order: depth first
// from the root, pushing transitions in label order so that the target of
// the last transition is emitted right after its parent whenever it has not
// been placed already. Leaves (no transitions) are never serialized; arcs
// into them are terminal.
func (g *Graph) linearize() []stateID {
	if len(g.states[g.root].transitions) == 0 {
		return nil
	}

	seen := make([]bool, len(g.states))
	var order []stateID
	stack := []stateID{g.root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		order = append(order, id)
		for _, t := range g.states[id].transitions {
			target := t.target
			if !seen[target] && len(g.states[target].transitions) > 0 {
				stack = append(stack, target)
			}
		}
	}
	return order
}

// rightLanguageCounts returns, per state, the number of sequences accepted
// from that state when it is entered, not counting acceptance at the state
// itself: count(s) = Σ over transitions of (final ? 1 : 0) + count(target).
// This is the per-node count stored by the NUMBERS feature.
func (g *Graph) rightLanguageCounts() []int {
	counts := make([]int, len(g.states))
	done := make([]bool, len(g.states))

	// Post-order with an explicit stack: a state is finished once all of its
	// targets are.
	type frame struct {
		id   stateID
		next int
	}
	stack := []frame{{id: g.root}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		transitions := g.states[top.id].transitions
		if top.next < len(transitions) {
			target := transitions[top.next].target
			top.next++
			if !done[target] {
				stack = append(stack, frame{id: target})
			}
			continue
		}

		n := 0
		for _, t := range transitions {
			if t.final {
				n++
			}
			n += counts[t.target]
		}
		counts[top.id] = n
		done[top.id] = true
		stack = stack[:len(stack)-1]
	}
	return counts
}
