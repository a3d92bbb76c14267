package fsa

import (
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fsaerrors "github.com/tamirms/fsa/errors"
)

func TestBuilderOutOfOrderIsSticky(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Add([]byte("b")))

	err := b.Add([]byte("a"))
	require.ErrorIs(t, err, fsaerrors.ErrOutOfOrder)

	// Later input, even in order, is refused with the same error.
	require.ErrorIs(t, b.Add([]byte("c")), fsaerrors.ErrOutOfOrder)
	_, err = b.Finish()
	require.ErrorIs(t, err, fsaerrors.ErrOutOfOrder)
}

func TestBuilderUnsignedOrder(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Add([]byte{0x7f}))
	require.NoError(t, b.Add([]byte{0x80}))
	require.NoError(t, b.Add([]byte{0xff}))
	require.ErrorIs(t, b.Add([]byte{0x00}), fsaerrors.ErrOutOfOrder)
}

func TestBuilderEmptySequence(t *testing.T) {
	b := NewBuilder()
	require.ErrorIs(t, b.Add(nil), fsaerrors.ErrEmptySequence)
	require.ErrorIs(t, b.Add([]byte{}), fsaerrors.ErrEmptySequence)

	// Not sticky.
	require.NoError(t, b.Add([]byte("a")))
	g, err := b.Finish()
	require.NoError(t, err)
	assert.Equal(t, 1, g.NumSequences())
}

func TestBuilderClosed(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Add([]byte("a")))
	_, err := b.Finish()
	require.NoError(t, err)

	require.ErrorIs(t, b.Add([]byte("b")), fsaerrors.ErrBuilderClosed)
	_, err = b.Finish()
	require.ErrorIs(t, err, fsaerrors.ErrBuilderClosed)
}

func TestBuilderDuplicatesIgnored(t *testing.T) {
	b := NewBuilder()
	for _, w := range []string{"a", "a", "ab", "ab", "ab", "b"} {
		require.NoError(t, b.Add([]byte(w)))
	}
	assert.Equal(t, 3, b.NumSequences())
	g, err := b.Finish()
	require.NoError(t, err)
	assert.Equal(t, 3, g.NumSequences())
}

func TestBuilderCopiesInput(t *testing.T) {
	buf := []byte("abc")
	b := NewBuilder()
	require.NoError(t, b.Add(buf))
	buf[0] = 'z' // would sort after "abd" if the builder kept the slice
	require.NoError(t, b.Add([]byte("abd")))
	g, err := b.Finish()
	require.NoError(t, err)

	a := mustOpen(t, g, FormatFixed)
	assert.Equal(t, []string{"abc", "abd"}, toStrings(Collect(a)))
}

func TestBuildEmptyInput(t *testing.T) {
	g, err := Build(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, g.NumSequences())
	assert.Equal(t, 1, g.NumStates())
	assert.Equal(t, 0, g.NumTransitions())
	assert.Empty(t, g.state(g.root).transitions)
	assert.Nil(t, g.linearize())
}

func TestBuildSeqReusedBuffer(t *testing.T) {
	words := []string{"car", "cart", "cat", "dog"}
	g, err := BuildSeq(func(yield func([]byte) bool) {
		buf := make([]byte, 0, 8)
		for _, w := range words {
			buf = append(buf[:0], w...)
			if !yield(buf) {
				return
			}
		}
	})
	require.NoError(t, err)

	a := mustOpen(t, g, FormatCompact)
	assert.Equal(t, words, toStrings(Collect(a)))
}

func TestBuildUnsorted(t *testing.T) {
	input := toBytes([]string{"pear", "apple", "fig", "apple", "banana"})
	snapshot := toStrings(input)

	g, err := BuildUnsorted(input)
	require.NoError(t, err)
	assert.Equal(t, snapshot, toStrings(input), "input must not be modified")

	a := mustOpen(t, g, FormatRelative)
	assert.Equal(t, []string{"apple", "banana", "fig", "pear"}, toStrings(Collect(a)))

	_, err = BuildUnsorted(toBytes([]string{"a", ""}))
	require.ErrorIs(t, err, fsaerrors.ErrEmptySequence)
}

func TestBuildMatchTableStructure(t *testing.T) {
	g := mustBuild(t, toBytes(matchTable))
	// root, the node after "a", the node shared by "ab" and "b", and the leaf.
	assert.Equal(t, 4, g.NumStates())
	assert.Equal(t, 6, g.NumTransitions())
	assert.Equal(t, 6, g.NumSequences())
}

// rightLanguages enumerates the right language of every reachable state.
// Only suitable for small graphs.
func rightLanguages(g *Graph) map[stateID]string {
	memo := make(map[stateID][]string)
	var lang func(id stateID) []string
	lang = func(id stateID) []string {
		if l, ok := memo[id]; ok {
			return l
		}
		var out []string
		for _, tr := range g.states[id].transitions {
			if tr.final {
				out = append(out, string(tr.label))
			}
			for _, suffix := range lang(tr.target) {
				out = append(out, string(tr.label)+suffix)
			}
		}
		memo[id] = out
		return out
	}

	keys := make(map[stateID]string)
	g.walk(func(id stateID) {
		keys[id] = strings.Join(lang(id), "\x00")
	})
	return keys
}

func TestBuilderMinimality(t *testing.T) {
	rng := newTestRNG(t)
	for iter := 0; iter < 50; iter++ {
		words := randomWords(rng, 1+rng.IntN(200), 8, "abcd")
		g := mustBuild(t, words)

		// One reachable state per distinct right language.
		keys := rightLanguages(g)
		distinct := make(map[string]bool)
		for _, k := range keys {
			distinct[k] = true
		}
		require.Equal(t, len(distinct), g.NumStates(), "iter %d", iter)

		// No two reachable states share a signature.
		var ids []stateID
		g.walk(func(id stateID) { ids = append(ids, id) })
		for i := range ids {
			for j := i + 1; j < len(ids); j++ {
				require.False(t, equalStates(g.state(ids[i]), g.state(ids[j])),
					"iter %d: states %d and %d are equal", iter, ids[i], ids[j])
			}
		}
	}
}

// TestBuilderSharesSuffixAcrossFinality covers two states that differ only
// in whether the path into them is accepted: "ab" is not in the set while
// "b" is, yet both continue with exactly "a".
func TestBuilderSharesSuffixAcrossFinality(t *testing.T) {
	g := mustBuild(t, toBytes(matchTable))
	root := g.state(g.root)
	afterA := g.state(root.transitions[0].target)

	require.Equal(t, byte('b'), afterA.transitions[0].label)
	require.Equal(t, byte('b'), root.transitions[1].label)
	assert.False(t, afterA.transitions[0].final)
	assert.True(t, root.transitions[1].final)
	assert.Equal(t, afterA.transitions[0].target, root.transitions[1].target)
}

// serializedNodeKeys walks every node reachable from the root and keys it by
// its arcs (label, final bit, key of the target). Keys are assigned bottom-up
// and interned to small ids, so equal ids mean equal right languages.
func serializedNodeKeys(t *testing.T, fsa FSA) (nodes int, distinct int) {
	t.Helper()
	keyOf := make(map[int]int)
	ids := make(map[string]int)

	type frame struct{ node, arc int }
	root := fsa.RootNode()
	if root == 0 {
		return 0, 0
	}
	stack := []frame{{root, fsa.FirstArc(root)}}
	for len(stack) > 0 {
		f := &stack[len(stack)-1]
		if f.arc != 0 && !fsa.IsArcTerminal(f.arc) {
			if _, ok := keyOf[fsa.EndNode(f.arc)]; !ok {
				target := fsa.EndNode(f.arc)
				stack = append(stack, frame{target, fsa.FirstArc(target)})
				continue
			}
		}
		if f.arc != 0 {
			f.arc = fsa.NextArc(f.arc)
			continue
		}

		var b strings.Builder
		for arc := fsa.FirstArc(f.node); arc != 0; arc = fsa.NextArc(arc) {
			target := -1
			if !fsa.IsArcTerminal(arc) {
				target = keyOf[fsa.EndNode(arc)]
			}
			fmt.Fprintf(&b, "(%d,%t,%d)", fsa.ArcLabel(arc), fsa.IsArcFinal(arc), target)
		}
		key := b.String()
		id, ok := ids[key]
		if !ok {
			id = len(ids)
			ids[key] = id
		}
		keyOf[f.node] = id
		stack = stack[:len(stack)-1]
	}
	require.NotEmpty(t, keyOf)
	return len(keyOf), len(ids)
}

func TestSerializedAutomatonMinimal(t *testing.T) {
	rng := newTestRNG(t)
	sets := map[string][][]byte{
		"table":  toBytes(matchTable),
		"alpha":  randomWords(rng, 20000, 10, "abcdefgh"),
		"binary": randomBinaryWords(rng, 3000, 5),
	}
	for name, words := range sets {
		g := mustBuild(t, words)
		t.Run(name, func(t *testing.T) {
			forEachFormat(t, func(t *testing.T, format Format) {
				for _, opts := range [][]SerializeOption{nil, {WithNumbers()}} {
					a := mustOpen(t, g, format, opts...)
					nodes, distinct := serializedNodeKeys(t, a)
					require.Equal(t, distinct, nodes)
					require.Equal(t, g.NumStates()-1, nodes)
				}
			})
		})
	}

	a := mustOpen(t, mustBuild(t, toBytes(matchTable)), FormatFixed)
	nodes, _ := serializedNodeKeys(t, a)
	assert.Equal(t, 3, nodes)
}

func TestBuilderTransitionsSorted(t *testing.T) {
	rng := newTestRNG(t)
	g := mustBuild(t, randomBinaryWords(rng, 500, 6))
	g.walk(func(id stateID) {
		labels := make([]byte, 0, len(g.states[id].transitions))
		for _, tr := range g.states[id].transitions {
			labels = append(labels, tr.label)
		}
		require.True(t, slices.IsSorted(labels))
		require.Equal(t, len(labels), len(slices.Compact(slices.Clone(labels))))
	})
}

func TestRightLanguageCountsOfRoot(t *testing.T) {
	rng := newTestRNG(t)
	words := randomWords(rng, 1000, 10, "abcdefgh")
	g := mustBuild(t, words)
	counts := g.rightLanguageCounts()
	assert.Equal(t, len(words), counts[g.root])
}
