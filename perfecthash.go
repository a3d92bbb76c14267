package fsa

import (
	fsaerrors "github.com/tamirms/fsa/errors"
)

// PerfectHash returns the lexicographic ordinal of seq among the sequences
// accepted from node. Ordinals are dense: the accepted sequences map onto
// 0..RightLanguageCount(node)-1 in sorted order.
//
// The ordinal is meaningful only when the kind is ExactMatch. Other kinds
// follow Match, except that an empty seq is SequenceIsAPrefix (or NoMatch
// when node has no arcs). Returns ErrUnsupportedFeature unless the
// automaton was serialized WithNumbers.
func PerfectHash(fsa FSA, seq []byte, node int) (int, MatchKind, error) {
	if !fsa.Flags().Has(FlagNumbers) {
		return 0, NoMatch, fsaerrors.ErrUnsupportedFeature
	}
	if node == 0 {
		return 0, NoMatch, nil
	}
	if len(seq) == 0 {
		if fsa.FirstArc(node) == 0 {
			return 0, NoMatch, nil
		}
		return 0, SequenceIsAPrefix, nil
	}

	hash := 0
	for i, label := range seq {
		arc := fsa.FirstArc(node)
		for arc != 0 {
			l := fsa.ArcLabel(arc)
			if l == label {
				break
			}
			if l > label {
				arc = 0
				break
			}
			// Every sequence through a smaller arc sorts before seq.
			if fsa.IsArcFinal(arc) {
				hash++
			}
			if !fsa.IsArcTerminal(arc) {
				n, err := fsa.RightLanguageCount(fsa.EndNode(arc))
				if err != nil {
					return 0, NoMatch, err
				}
				hash += n
			}
			arc = fsa.NextArc(arc)
		}
		if arc == 0 {
			return hash, NoMatch, nil
		}

		if i+1 == len(seq) {
			if fsa.IsArcFinal(arc) {
				return hash, ExactMatch, nil
			}
			if fsa.IsArcTerminal(arc) {
				return hash, NoMatch, nil
			}
			return hash, SequenceIsAPrefix, nil
		}
		// seq is longer than the prefix accepted here, so it sorts after it.
		if fsa.IsArcFinal(arc) {
			hash++
		}
		if fsa.IsArcTerminal(arc) {
			return hash, AutomatonHasPrefix, nil
		}
		node = fsa.EndNode(arc)
	}
	// Unreachable: the loop returns on the last byte.
	return hash, NoMatch, nil
}
