package fsa

// FSA is the set of primitives the traversal functions need. *Automaton
// implements it; nodes and arcs are opaque offsets with 0 meaning absent.
type FSA interface {
	RootNode() int
	FirstArc(node int) int
	NextArc(arc int) int
	Arc(node int, label byte) int
	ArcLabel(arc int) byte
	IsArcFinal(arc int) bool
	IsArcTerminal(arc int) bool
	IsArcLast(arc int) bool
	EndNode(arc int) int
	RightLanguageCount(node int) (int, error)
	Flags() Flags
}

var _ FSA = (*Automaton)(nil)

// MatchKind classifies the outcome of Match and PerfectHash.
type MatchKind uint8

const (
	// NoMatch: the automaton has no arc for the byte at Index.
	NoMatch MatchKind = iota

	// ExactMatch: the whole sequence is accepted.
	ExactMatch

	// AutomatonHasPrefix: the automaton accepts seq[:Index] and has nowhere
	// to go from there, leaving seq[Index:] unconsumed.
	AutomatonHasPrefix

	// SequenceIsAPrefix: the whole sequence was consumed without being
	// accepted; Node is where it ended and longer accepted sequences
	// continue from there.
	SequenceIsAPrefix
)

func (k MatchKind) String() string {
	switch k {
	case NoMatch:
		return "NoMatch"
	case ExactMatch:
		return "ExactMatch"
	case AutomatonHasPrefix:
		return "AutomatonHasPrefix"
	case SequenceIsAPrefix:
		return "SequenceIsAPrefix"
	default:
		return "MatchKind(?)"
	}
}

// MatchResult is the outcome of Match.
//
// Index is the number of bytes of the input that were consumed by arcs:
// len(seq) for ExactMatch and SequenceIsAPrefix, the position of the first
// unconsumed byte for AutomatonHasPrefix, and the position of the failing
// byte for NoMatch. Node is the node the walk stopped at (0 when it left the
// automaton through a terminal arc).
type MatchResult struct {
	Kind  MatchKind
	Index int
	Node  int
}

// Match walks seq from node and classifies the result. Pass fsa.RootNode()
// to match from the start.
func Match(fsa FSA, seq []byte, node int) MatchResult {
	if node == 0 {
		return MatchResult{Kind: NoMatch, Node: 0}
	}
	for i, label := range seq {
		arc := fsa.Arc(node, label)
		if arc == 0 {
			return MatchResult{Kind: NoMatch, Index: i, Node: node}
		}
		if i+1 == len(seq) && fsa.IsArcFinal(arc) {
			return MatchResult{Kind: ExactMatch, Index: len(seq), Node: node}
		}
		if fsa.IsArcTerminal(arc) {
			return MatchResult{Kind: AutomatonHasPrefix, Index: i + 1, Node: node}
		}
		node = fsa.EndNode(arc)
	}
	return MatchResult{Kind: SequenceIsAPrefix, Index: len(seq), Node: node}
}

// Contains reports whether fsa accepts seq.
func Contains(fsa FSA, seq []byte) bool {
	return Match(fsa, seq, fsa.RootNode()).Kind == ExactMatch
}
