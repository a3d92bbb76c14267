package fsa

// Stats describes the reachable structure of an automaton.
type Stats struct {
	Nodes     int // reachable nodes, excluding absent targets of terminal arcs
	Arcs      int
	FinalArcs int
	Terminal  int // arcs without a target node
	Sequences int // accepted sequences
	MaxDepth  int // length of the longest accepted sequence
}

// ComputeStats walks every reachable node of fsa once. Sequence counts are
// derived bottom-up, so the walk does not enumerate the language.
func ComputeStats(fsa FSA) Stats {
	var s Stats
	root := fsa.RootNode()
	if root == 0 {
		return s
	}

	type info struct {
		sequences int
		depth     int
	}
	done := make(map[int]info)

	type frame struct {
		node, arc int
		info      info
	}
	stack := []frame{{node: root, arc: fsa.FirstArc(root)}}
	for len(stack) > 0 {
		top := len(stack) - 1
		f := &stack[top]
		if f.arc == 0 {
			done[f.node] = f.info
			s.Nodes++
			stack = stack[:top]
			continue
		}

		arc := f.arc
		depth := 0
		if !fsa.IsArcTerminal(arc) {
			target := fsa.EndNode(arc)
			child, ok := done[target]
			if !ok {
				stack = append(stack, frame{node: target, arc: fsa.FirstArc(target)})
				continue
			}
			f.info.sequences += child.sequences
			depth = child.depth
		} else {
			s.Terminal++
		}
		if fsa.IsArcFinal(arc) {
			f.info.sequences++
			s.FinalArcs++
		}
		f.info.depth = max(f.info.depth, depth+1)
		s.Arcs++
		f.arc = fsa.NextArc(arc)
	}

	s.Sequences = done[root].sequences
	s.MaxDepth = done[root].depth
	return s
}
