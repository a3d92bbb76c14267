package fsa

import (
	"errors"
	"fmt"
	"strings"

	fsaerrors "github.com/tamirms/fsa/errors"
	"github.com/tamirms/fsa/internal/encoding"
)

// Format identifies a wire format. The value is the version byte stored in
// the header.
type Format uint8

const (
	// FormatFixed stores every target as a fixed-width field sized for the
	// whole automaton. Fastest to decode.
	FormatFixed Format = 0x05

	// FormatCompact packs frequent labels into the flag byte and stores
	// targets as variable-length integers.
	FormatCompact Format = 0xC6

	// FormatRelative is FormatCompact with targets stored relative to the
	// arc that references them.
	FormatRelative Format = 0xC7
)

// String returns the format name.
func (f Format) String() string {
	if c, ok := codecs[f]; ok {
		return c.name
	}
	return fmt.Sprintf("unknown(0x%02x)", uint8(f))
}

// Formats returns every registered format in ascending version order.
func Formats() []Format {
	out := make([]Format, 0, len(codecs))
	for v := 0; v < 256; v++ {
		if _, ok := codecs[Format(v)]; ok {
			out = append(out, Format(v))
		}
	}
	return out
}

// Flags describes the features of a serialized automaton.
type Flags uint8

const (
	// FlagFlexible: arcs have variable size.
	FlagFlexible Flags = 1 << iota
	// FlagStopBit: the last arc of every node carries a stop bit.
	FlagStopBit
	// FlagNextBit: arcs may omit a target that immediately follows their node.
	FlagNextBit
	// FlagNumbers: every node stores its right-language count.
	FlagNumbers

	knownFlags = FlagFlexible | FlagStopBit | FlagNextBit | FlagNumbers
)

// Has reports whether all flags in want are set.
func (f Flags) Has(want Flags) bool {
	return f&want == want
}

// String lists the set flags.
func (f Flags) String() string {
	var names []string
	for _, x := range []struct {
		flag Flags
		name string
	}{
		{FlagFlexible, "FLEXIBLE"},
		{FlagStopBit, "STOPBIT"},
		{FlagNextBit, "NEXTBIT"},
		{FlagNumbers, "NUMBERS"},
	} {
		if f.Has(x.flag) {
			names = append(names, x.name)
		}
	}
	if extra := f &^ knownFlags; extra != 0 {
		names = append(names, fmt.Sprintf("0x%02x", uint8(extra)))
	}
	return strings.Join(names, "|")
}

// codec binds a version byte to its serializer and decoder. Each format file
// registers its codecs from init, so supporting a new format touches only
// that file.
type codec struct {
	format Format
	name   string

	// plan lays out g for this format. The plan knows the exact output size
	// before anything is written.
	plan func(g *Graph, cfg *serializeConfig) (encoderPlan, error)

	// open parses the format-specific header that follows the common prefix
	// and returns a decoder over data.
	open func(h *header, data []byte) (decoder, error)
}

var codecs = map[Format]*codec{}

func registerCodec(c *codec) {
	if _, dup := codecs[c.format]; dup {
		panic(fmt.Sprintf("fsa: format 0x%02x registered twice", uint8(c.format)))
	}
	codecs[c.format] = c
}

func lookupCodec(f Format) (*codec, error) {
	c, ok := codecs[f]
	if !ok {
		return nil, fmt.Errorf("%w: 0x%02x", fsaerrors.ErrUnknownFormat, uint8(f))
	}
	return c, nil
}

// encoderPlan is a fully laid out automaton waiting to be written.
type encoderPlan interface {
	// size returns the exact number of bytes encodeTo writes.
	size() int

	// encodeTo writes the header and body into dst, which must be at least
	// size() bytes. Every byte in dst[:size()] is overwritten.
	encodeTo(dst []byte)
}

// decoder exposes the primitive node and arc operations of one wire format.
//
// Node and arc addresses are offsets into the body (the bytes after the
// header). Offset 0 holds the internal epsilon node; the Automaton wrapper
// maps it to "absent" before calling into a decoder, so decoders never see
// a zero node or arc from callers.
//
// A decoder is stateless and safe for concurrent use. Reads outside the body
// panic with an error wrapping ErrOutOfBounds.
type decoder interface {
	rootNode() int
	firstArc(node int) int
	nextArc(arc int) int
	arc(node int, label byte) int
	arcLabel(arc int) byte
	isArcFinal(arc int) bool
	isArcLast(arc int) bool
	isArcTerminal(arc int) bool
	endNode(arc int) int

	// rightLanguageCount returns false if the format was written without
	// counts.
	rightLanguageCount(node int) (int, bool)

	flags() Flags
	headerSize() int
}

// body is the arc region of a serialized automaton with checked accessors.
type body []byte

func (b body) at(off int) byte {
	if uint(off) >= uint(len(b)) {
		panic(fsaerrors.OutOfBounds(off, len(b)))
	}
	return b[off]
}

func (b body) slice(off, n int) []byte {
	if off < 0 || n < 0 || off > len(b)-n {
		panic(fsaerrors.OutOfBounds(off+n, len(b)))
	}
	return b[off : off+n]
}

func (b body) vint(off int) (uint64, int) {
	if uint(off) >= uint(len(b)) {
		panic(fsaerrors.OutOfBounds(off, len(b)))
	}
	v, n := encoding.VInt(b[off:])
	if n == 0 {
		panic(fsaerrors.OutOfBounds(off+encoding.MaxVIntLen, len(b)))
	}
	return v, n
}

func (b body) vintLen(off int) int {
	if uint(off) >= uint(len(b)) {
		panic(fsaerrors.OutOfBounds(off, len(b)))
	}
	n := encoding.SkipVInt(b[off:])
	if n == 0 {
		panic(fsaerrors.OutOfBounds(off+encoding.MaxVIntLen, len(b)))
	}
	return n
}

// guard runs fn and converts an out-of-bounds panic raised by body into an
// error. Any other panic is re-raised.
func guard[T any](fn func() T) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(error)
			if !ok || !errors.Is(e, fsaerrors.ErrOutOfBounds) {
				panic(r)
			}
			err = e
		}
	}()
	return fn(), nil
}
