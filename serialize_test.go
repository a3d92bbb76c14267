package fsa

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fsaerrors "github.com/tamirms/fsa/errors"
	intbits "github.com/tamirms/fsa/internal/bits"
	"github.com/tamirms/fsa/internal/encoding"
)

func TestSerializeSingleWordLayout(t *testing.T) {
	g := mustBuild(t, toBytes([]string{"a"}))

	tests := []struct {
		format Format
		want   []byte
	}{
		{
			format: FormatFixed,
			want: []byte{
				0x5C, 0x66, 0x73, 0x61, 0x05, '_', '+', 0x01, // header, gotoWidth 1
				'^', 0x06, // epsilon: last|next
				'a', 0x03, // final|last, terminal
			},
		},
		{
			format: FormatCompact,
			want: []byte{
				0x5C, 0x66, 0x73, 0x61, 0xC6, '_', '+', 0x07, 0x01, 'a',
				0xC0, '^', // epsilon: next|last, escaped label
				0x61, 0x00, // last|final|index 1, terminal
			},
		},
		{
			format: FormatRelative,
			want: []byte{
				0x5C, 0x66, 0x73, 0x61, 0xC7, '_', '+', 0x07, 0x01, 'a',
				0xC0, '^',
				0x61, 0x00,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			data, err := Serialize(g, tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.want, data)
		})
	}
}

func TestSerializeEmptyAutomaton(t *testing.T) {
	g := mustBuild(t, nil)
	forEachFormat(t, func(t *testing.T, format Format) {
		a := mustOpen(t, g, format, WithNumbers())
		assert.Equal(t, 0, a.RootNode())
		assert.Empty(t, Collect(a))
		assert.Equal(t, NoMatch, Match(a, []byte("a"), a.RootNode()).Kind)
		n, err := a.RightLanguageCount(a.RootNode())
		require.NoError(t, err)
		assert.Equal(t, 0, n)
		require.NoError(t, a.Verify())
	})
}

func TestSerializeRoundTrip(t *testing.T) {
	rng := newTestRNG(t)
	sets := map[string][][]byte{
		"table":  toBytes(matchTable),
		"alpha":  randomWords(rng, 2000, 12, "abcdefghijklmnopqrstuvwxyz"),
		"binary": randomBinaryWords(rng, 2000, 8),
		"chain":  {bytes.Repeat([]byte("x"), 5000)},
	}
	for name, words := range sets {
		g := mustBuild(t, words)
		t.Run(name, func(t *testing.T) {
			forEachFormat(t, func(t *testing.T, format Format) {
				for _, numbers := range []bool{false, true} {
					var opts []SerializeOption
					if numbers {
						opts = append(opts, WithNumbers())
					}
					a := mustOpen(t, g, format, opts...)
					require.Equal(t, words, Collect(a), "numbers=%v", numbers)
					require.NoError(t, a.Verify())
				}
			})
		})
	}
}

func TestSerializeCrossFormatIdentity(t *testing.T) {
	rng := newTestRNG(t)
	words := randomWords(rng, 3000, 10, "abcdefg")
	g := mustBuild(t, words)

	var want [][]byte
	for _, format := range Formats() {
		got := Collect(mustOpen(t, g, format))
		if want == nil {
			want = got
			continue
		}
		require.Equal(t, want, got, "format %s", format)
	}
	assert.Equal(t, words, want)
}

func TestSerializeDeterministic(t *testing.T) {
	rng := newTestRNG(t)
	words := randomWords(rng, 1000, 10, "abcdef")

	// Duplicates sprinkled through the input.
	var dup [][]byte
	for _, w := range words {
		dup = append(dup, w)
		if rng.IntN(3) == 0 {
			dup = append(dup, w, w)
		}
	}

	g1 := mustBuild(t, words)
	g2 := mustBuild(t, dup)
	forEachFormat(t, func(t *testing.T, format Format) {
		a, err := Serialize(g1, format, WithNumbers())
		require.NoError(t, err)
		b, err := Serialize(g1, format, WithNumbers())
		require.NoError(t, err)
		c, err := Serialize(g2, format, WithNumbers())
		require.NoError(t, err)
		assert.Equal(t, a, b)
		assert.Equal(t, a, c)
	})
}

func TestSerializeUnknownFormat(t *testing.T) {
	g := mustBuild(t, toBytes(matchTable))
	_, err := Serialize(g, Format(0x42))
	require.ErrorIs(t, err, fsaerrors.ErrUnknownFormat)
}

func TestWriteTo(t *testing.T) {
	g := mustBuild(t, toBytes(matchTable))
	forEachFormat(t, func(t *testing.T, format Format) {
		want, err := Serialize(g, format)
		require.NoError(t, err)

		var buf bytes.Buffer
		n, err := WriteTo(&buf, g, format)
		require.NoError(t, err)
		assert.Equal(t, int64(len(want)), n)
		assert.Equal(t, want, buf.Bytes())
	})
}

func TestSerializeHeaderOptions(t *testing.T) {
	g := mustBuild(t, toBytes(matchTable))
	forEachFormat(t, func(t *testing.T, format Format) {
		a := mustOpen(t, g, format, WithFiller('*'), WithAnnotation('|'))
		assert.Equal(t, format, a.Format())
		assert.Equal(t, byte('*'), a.Filler())
		assert.Equal(t, byte('|'), a.Annotation())

		d := mustOpen(t, g, format)
		assert.Equal(t, byte(defaultFiller), d.Filler())
		assert.Equal(t, byte(defaultAnnotation), d.Annotation())
	})
}

func TestSerializeFlags(t *testing.T) {
	g := mustBuild(t, toBytes(matchTable))
	forEachFormat(t, func(t *testing.T, format Format) {
		plain := mustOpen(t, g, format)
		assert.False(t, plain.Flags().Has(FlagNumbers))
		assert.True(t, plain.Flags().Has(FlagFlexible|FlagStopBit|FlagNextBit))

		numbered := mustOpen(t, g, format, WithNumbers())
		assert.True(t, numbered.Flags().Has(FlagNumbers))
		assert.Equal(t, "FLEXIBLE|STOPBIT|NEXTBIT|NUMBERS", numbered.Flags().String())
	})
}

// TestFixedGotoWidthMinimal checks that the chosen goto width holds every
// node offset and that one byte less would not.
func TestFixedGotoWidthMinimal(t *testing.T) {
	rng := newTestRNG(t)
	sizes := []int{1, 10, 100, 1000, 5000}
	sawWide := false
	for _, n := range sizes {
		g := mustBuild(t, randomWords(rng, n, 14, "abcdefghijklmnopqrstuvwxyz"))
		for _, numbers := range []bool{false, true} {
			cfg := defaultSerializeConfig()
			cfg.numbers = numbers
			ep, err := planFixed(g, cfg)
			require.NoError(t, err)
			p := ep.(*fixedPlan)

			require.True(t, p.fits(p.gotoWidth), "n=%d", n)
			if p.gotoWidth > 1 {
				sawWide = true
				narrower := p.gotoWidth - 1
				p.place(narrower)
				require.False(t, p.fits(narrower), "n=%d: width %d also fits", n, narrower)
			}
		}
	}
	assert.True(t, sawWide, "no input needed more than one goto byte")
}

func TestFixedCountWidth(t *testing.T) {
	rng := newTestRNG(t)
	words := randomWords(rng, 20000, 6, "abcdefghijklmnop")
	g := mustBuild(t, words)

	data, err := Serialize(g, FormatFixed, WithNumbers())
	require.NoError(t, err)
	countWidth := int(data[prefixSize] >> 4)
	assert.Equal(t, intbits.ByteWidth(uint64(len(words))), countWidth)

	data, err = Serialize(g, FormatFixed)
	require.NoError(t, err)
	assert.Equal(t, 0, int(data[prefixSize]>>4))
}

// TestCompactSizesSettled checks that every reserved arc size holds its
// target and that the plan's layout matches what was written.
func TestCompactSizesSettled(t *testing.T) {
	rng := newTestRNG(t)
	g := mustBuild(t, randomWords(rng, 4000, 12, "abcdefghijklmnopqrstuvwxyz"))
	for _, relative := range []bool{false, true} {
		cfg := defaultSerializeConfig()
		ep, err := planCompact(g, cfg, relative)
		require.NoError(t, err)
		p := ep.(*compactPlan)

		for i := range p.arcs {
			a := &p.arcs[i]
			need := p.fixedArcSize(a)
			if !a.next {
				need += encoding.VIntLen(p.targetValue(a))
			}
			require.GreaterOrEqual(t, a.size, need, "arc %d", i)
			require.LessOrEqual(t, a.size, p.fixedArcSize(a)+encoding.MaxVIntLen)
		}

		buf := make([]byte, p.size())
		p.encodeTo(buf)
		a, err := OpenBytes(buf)
		require.NoError(t, err)
		require.NoError(t, a.Verify())
		assert.Equal(t, p.nodeStart[p.order[0]], a.RootNode())
	}
}

func TestLabelTable(t *testing.T) {
	g := mustBuild(t, toBytes([]string{"aa", "ab", "ba", "ca"}))
	l := newLayout(g, false)
	// 'a' labels three arcs, 'b' two, 'c' one.
	assert.Equal(t, []byte("abc"), l.labelTable(maxLabelTableSize))
	assert.Equal(t, []byte("ab"), l.labelTable(2))
	assert.Empty(t, l.labelTable(0))
}

func TestLabelTableSizeOption(t *testing.T) {
	rng := newTestRNG(t)
	words := randomBinaryWords(rng, 3000, 5)
	g := mustBuild(t, words)

	for _, k := range []int{0, 1, 7, 31, 100, -5} {
		for _, format := range []Format{FormatCompact, FormatRelative} {
			data, err := Serialize(g, format, WithLabelTableSize(k))
			require.NoError(t, err)
			stored := int(data[prefixSize+1])
			assert.Equal(t, max(0, min(k, maxLabelTableSize)), stored, "k=%d", k)

			a, err := OpenBytes(data)
			require.NoError(t, err)
			require.Equal(t, words, Collect(a), "k=%d format=%s", k, format)
		}
	}
}

func TestFormatsRegistered(t *testing.T) {
	assert.Equal(t, []Format{FormatFixed, FormatCompact, FormatRelative}, Formats())
	assert.Equal(t, "fixed", FormatFixed.String())
	assert.Equal(t, "compact", FormatCompact.String())
	assert.Equal(t, "relative", FormatRelative.String())
	assert.Equal(t, "unknown(0x42)", Format(0x42).String())
	assert.Panics(t, func() {
		registerCodec(&codec{format: FormatFixed, name: "again"})
	})
}
