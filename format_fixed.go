package fsa

import (
	"fmt"

	fsaerrors "github.com/tamirms/fsa/errors"
	intbits "github.com/tamirms/fsa/internal/bits"
	"github.com/tamirms/fsa/internal/encoding"
)

// FormatFixed layout.
//
// Header: the common prefix followed by one byte holding
// countWidth<<4 | gotoWidth.
//
// Body: the epsilon node at offset 0, then every node in layout order.
// A node is [count: countWidth bytes LE] followed by its arcs. An arc is
//
//	label  1 byte
//	goto   gotoWidth bytes LE: target<<3 | flags
//
// with flags final=1, last=2, next=4. When next is set only the first goto
// byte is stored and the target is the node that follows the arc's node.
// A zero target without next marks a terminal arc.
const (
	fixedHeaderSize = prefixSize + 1

	fixedBitFinal = 1 << 0
	fixedBitLast  = 1 << 1
	fixedBitNext  = 1 << 2
	fixedFlagMask = fixedBitFinal | fixedBitLast | fixedBitNext

	// fixedAddressShift is the number of goto bits taken by flags.
	fixedAddressShift = 3

	// maxGotoWidth bounds the goto field, giving 37-bit node offsets.
	maxGotoWidth = 5

	// maxCountWidth is the largest count field the header nibble describes
	// that still fits a uint64.
	maxCountWidth = 8
)

func init() {
	registerCodec(&codec{
		format: FormatFixed,
		name:   "fixed",
		plan:   planFixed,
		open:   openFixed,
	})
}

type fixedPlan struct {
	*layout
	cfg        *serializeConfig
	gotoWidth  int
	countWidth int
	offsets    []int // by stateID
	bodySize   int
}

func planFixed(g *Graph, cfg *serializeConfig) (encoderPlan, error) {
	p := &fixedPlan{
		layout:  newLayout(g, cfg.numbers),
		cfg:     cfg,
		offsets: make([]int, len(g.states)),
	}
	if cfg.numbers {
		p.countWidth = intbits.ByteWidth(uint64(p.maxCount()))
		if p.countWidth > maxCountWidth {
			return nil, fmt.Errorf("%w: %d-byte counts", fsaerrors.ErrCountOverflow, p.countWidth)
		}
	}

	width, err := p.settleGotoWidth()
	if err != nil {
		return nil, err
	}
	p.gotoWidth = width
	p.bodySize = p.place(width)
	return p, nil
}

// settleGotoWidth finds the smallest goto width whose address bits can hold
// every node offset. Offsets only grow with the width, so trying widths in
// increasing order yields the minimum.
func (p *fixedPlan) settleGotoWidth() (int, error) {
	for width := 1; width <= maxGotoWidth; width++ {
		p.place(width)
		if p.fits(width) {
			return width, nil
		}
	}
	return 0, fmt.Errorf("%w: %d-byte goto field required", fsaerrors.ErrOffsetOverflow, maxGotoWidth+1)
}

// fits reports whether the current offsets are addressable with width.
func (p *fixedPlan) fits(width int) bool {
	limit := width*8 - fixedAddressShift
	for _, id := range p.order {
		if !intbits.FitsIn(uint64(p.offsets[id]), limit) {
			return false
		}
	}
	return true
}

// place assigns node offsets for the given goto width and returns the body
// size.
func (p *fixedPlan) place(width int) int {
	offset := p.countWidth + p.arcSize(-1, p.epsilonTarget(), width)
	for pos, id := range p.order {
		p.offsets[id] = offset
		offset += p.countWidth
		for _, t := range p.transitions(id) {
			offset += p.arcSize(pos, t.target, width)
		}
	}
	return offset
}

func (p *fixedPlan) arcSize(pos int, target stateID, width int) int {
	if target != noState && p.followsNode(pos, target) {
		return 2
	}
	return 1 + width
}

// epsilonTarget is the root, or noState when the automaton is empty.
func (p *fixedPlan) epsilonTarget() stateID {
	if len(p.order) == 0 {
		return noState
	}
	return p.order[0]
}

func (p *fixedPlan) size() int {
	return fixedHeaderSize + p.bodySize
}

func (p *fixedPlan) encodeTo(dst []byte) {
	h := header{Version: FormatFixed, Filler: p.cfg.filler, Annotation: p.cfg.annotation}
	h.encodeTo(dst)
	dst[prefixSize] = byte(p.countWidth<<4 | p.gotoWidth)

	out := dst[fixedHeaderSize:p.size()]
	at := 0

	// Epsilon node.
	encoding.PutUint(out[at:], 0, p.countWidth)
	at += p.countWidth
	at = p.putArc(out, at, -1, transition{label: epsilonLabel, target: p.epsilonTarget()}, true)

	for pos, id := range p.order {
		if p.counts != nil {
			encoding.PutUint(out[at:], uint64(p.counts[id]), p.countWidth)
			at += p.countWidth
		}
		transitions := p.transitions(id)
		for i, t := range transitions {
			at = p.putArc(out, at, pos, t, i == len(transitions)-1)
		}
	}
}

func (p *fixedPlan) putArc(out []byte, at, pos int, t transition, last bool) int {
	target := t.target
	var flags uint64
	if last {
		flags |= fixedBitLast
	}
	if t.final {
		flags |= fixedBitFinal
	}

	out[at] = t.label
	if target != noState && p.followsNode(pos, target) {
		out[at+1] = byte(flags | fixedBitNext)
		return at + 2
	}

	var address uint64
	if target != noState && !p.isLeaf(target) {
		address = uint64(p.offsets[target])
	}
	encoding.PutUint(out[at+1:], address<<fixedAddressShift|flags, p.gotoWidth)
	return at + 1 + p.gotoWidth
}

type fixedDecoder struct {
	arcs       body
	gotoWidth  int
	countWidth int
	root       int
}

func openFixed(h *header, data []byte) (decoder, error) {
	if len(data) < fixedHeaderSize {
		return nil, fsaerrors.Format(fsaerrors.ErrTruncatedHeader, "%d bytes", len(data))
	}
	widths := data[prefixSize]
	d := &fixedDecoder{
		arcs:       body(data[fixedHeaderSize:]),
		gotoWidth:  int(widths & 0x0f),
		countWidth: int(widths >> 4),
	}
	if d.gotoWidth < 1 || d.gotoWidth > maxGotoWidth {
		return nil, fsaerrors.Format(fsaerrors.ErrInvalidHeader, "goto width %d", d.gotoWidth)
	}
	if d.countWidth > maxCountWidth {
		return nil, fsaerrors.Format(fsaerrors.ErrInvalidHeader, "count width %d", d.countWidth)
	}

	root, err := guard(func() int { return d.endNode(d.countWidth) })
	if err != nil {
		return nil, fsaerrors.Format(err, "epsilon node")
	}
	d.root = root
	return d, nil
}

func (d *fixedDecoder) headerSize() int { return fixedHeaderSize }

func (d *fixedDecoder) flags() Flags {
	f := FlagFlexible | FlagStopBit | FlagNextBit
	if d.countWidth > 0 {
		f |= FlagNumbers
	}
	return f
}

func (d *fixedDecoder) rootNode() int { return d.root }

func (d *fixedDecoder) firstArc(node int) int {
	return node + d.countWidth
}

func (d *fixedDecoder) nextArc(arc int) int {
	if d.isArcLast(arc) {
		return 0
	}
	return d.skipArc(arc)
}

func (d *fixedDecoder) arc(node int, label byte) int {
	for a := d.firstArc(node); a != 0; a = d.nextArc(a) {
		l := d.arcLabel(a)
		if l == label {
			return a
		}
		if l > label {
			break
		}
	}
	return 0
}

func (d *fixedDecoder) arcLabel(arc int) byte {
	return d.arcs.at(arc)
}

func (d *fixedDecoder) arcFlags(arc int) byte {
	return d.arcs.at(arc+1) & fixedFlagMask
}

func (d *fixedDecoder) isArcFinal(arc int) bool {
	return d.arcFlags(arc)&fixedBitFinal != 0
}

func (d *fixedDecoder) isArcLast(arc int) bool {
	return d.arcFlags(arc)&fixedBitLast != 0
}

func (d *fixedDecoder) isNextSet(arc int) bool {
	return d.arcFlags(arc)&fixedBitNext != 0
}

func (d *fixedDecoder) isArcTerminal(arc int) bool {
	return !d.isNextSet(arc) && d.address(arc) == 0
}

func (d *fixedDecoder) endNode(arc int) int {
	if d.isNextSet(arc) {
		return d.nodeEnd(arc)
	}
	return d.address(arc)
}

func (d *fixedDecoder) address(arc int) int {
	v := encoding.Uint(d.arcs.slice(arc+1, d.gotoWidth), d.gotoWidth)
	return int(v >> fixedAddressShift)
}

func (d *fixedDecoder) skipArc(arc int) int {
	if d.isNextSet(arc) {
		return arc + 2
	}
	return arc + 1 + d.gotoWidth
}

// nodeEnd returns the offset just past the last arc of arc's node.
func (d *fixedDecoder) nodeEnd(arc int) int {
	for !d.isArcLast(arc) {
		arc = d.skipArc(arc)
	}
	return d.skipArc(arc)
}

func (d *fixedDecoder) rightLanguageCount(node int) (int, bool) {
	if d.countWidth == 0 {
		return 0, false
	}
	return int(encoding.Uint(d.arcs.slice(node, d.countWidth), d.countWidth)), true
}
