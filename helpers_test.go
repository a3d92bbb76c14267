package fsa

import (
	"bytes"
	"encoding/binary"
	"hash/fnv"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

// Named seeds for deterministic reproduction.
const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(testSeed1^s1, testSeed2^s2))
}

// matchTable is the reference set for the match classification tests.
var matchTable = []string{"a", "aba", "ac", "b", "ba", "c"}

func toBytes(words []string) [][]byte {
	out := make([][]byte, len(words))
	for i, w := range words {
		out[i] = []byte(w)
	}
	return out
}

func toStrings(seqs [][]byte) []string {
	out := make([]string, len(seqs))
	for i, s := range seqs {
		out[i] = string(s)
	}
	return out
}

// randomWords returns n random non-empty words over alphabet, sorted and
// deduplicated.
func randomWords(rng *rand.Rand, n, maxLen int, alphabet string) [][]byte {
	words := make([][]byte, n)
	for i := range words {
		w := make([]byte, 1+rng.IntN(maxLen))
		for j := range w {
			w[j] = alphabet[rng.IntN(len(alphabet))]
		}
		words[i] = w
	}
	slices.SortFunc(words, bytes.Compare)
	return slices.CompactFunc(words, bytes.Equal)
}

// randomBinaryWords draws labels from the whole byte range.
func randomBinaryWords(rng *rand.Rand, n, maxLen int) [][]byte {
	words := make([][]byte, n)
	for i := range words {
		w := make([]byte, 1+rng.IntN(maxLen))
		for j := range w {
			w[j] = byte(rng.Uint32())
		}
		words[i] = w
	}
	slices.SortFunc(words, bytes.Compare)
	return slices.CompactFunc(words, bytes.Equal)
}

func mustBuild(t testing.TB, seqs [][]byte) *Graph {
	t.Helper()
	g, err := Build(seqs)
	require.NoError(t, err)
	return g
}

func mustOpen(t testing.TB, g *Graph, format Format, opts ...SerializeOption) *Automaton {
	t.Helper()
	data, err := Serialize(g, format, opts...)
	require.NoError(t, err)
	a, err := OpenBytes(data)
	require.NoError(t, err)
	return a
}

// forEachFormat runs fn as a subtest for every registered format.
func forEachFormat(t *testing.T, fn func(t *testing.T, format Format)) {
	for _, format := range Formats() {
		t.Run(format.String(), func(t *testing.T) {
			fn(t, format)
		})
	}
}
