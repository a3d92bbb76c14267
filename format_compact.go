package fsa

import (
	fsaerrors "github.com/tamirms/fsa/errors"
	"github.com/tamirms/fsa/internal/encoding"
)

// FormatCompact and FormatRelative layout.
//
// Header: the common prefix, then
//
//	Offset  Size  Field
//	7       1     Flags
//	8       1     K, the label table size (at most 31)
//	9       K     label table, most frequent label first
//
// Body: the epsilon node at offset 0, then every node in layout order.
// A node is [count: vint, with FlagNumbers] followed by its arcs. An arc is
//
//	flags  1 byte: next=0x80 last=0x40 final=0x20, low 5 bits label index
//	label  1 byte, only when the label index is 0
//	target vint, only when next is clear
//
// A label index i in 1..K stands for table[i-1]. The target of a next arc is
// the node that follows the arc's node. Otherwise a zero target marks a
// terminal arc; FormatCompact stores the node's body offset and
// FormatRelative stores zigzag(target - arcStart).
const (
	compactBitNext  = 0x80
	compactBitLast  = 0x40
	compactBitFinal = 0x20
	compactIndex    = 0x1f

	// compactFixedHeader is the header size excluding the label table.
	compactFixedHeader = prefixSize + 2
)

func init() {
	registerCodec(&codec{
		format: FormatCompact,
		name:   "compact",
		plan: func(g *Graph, cfg *serializeConfig) (encoderPlan, error) {
			return planCompact(g, cfg, false)
		},
		open: func(h *header, data []byte) (decoder, error) {
			return openCompact(h, data, false)
		},
	})
	registerCodec(&codec{
		format: FormatRelative,
		name:   "relative",
		plan: func(g *Graph, cfg *serializeConfig) (encoderPlan, error) {
			return planCompact(g, cfg, true)
		},
		open: func(h *header, data []byte) (decoder, error) {
			return openCompact(h, data, true)
		},
	})
}

// compactArc is one arc of the plan in body order. The epsilon arc is first.
type compactArc struct {
	label  byte
	target stateID // noState for the epsilon arc of an empty automaton
	final  bool
	last   bool
	next   bool

	// size is the reserved encoded size. It only grows while the layout
	// settles; the target vint is padded up to it.
	size  int
	start int
}

type compactPlan struct {
	*layout
	cfg      *serializeConfig
	relative bool

	labels []byte
	index  [256]byte // label -> table index, 0 when escaped

	arcs      []compactArc
	nodeStart []int // by stateID
	bodySize  int
}

func planCompact(g *Graph, cfg *serializeConfig, relative bool) (encoderPlan, error) {
	p := &compactPlan{
		layout:    newLayout(g, cfg.numbers),
		cfg:       cfg,
		relative:  relative,
		nodeStart: make([]int, len(g.states)),
	}
	p.labels = p.labelTable(cfg.labelTableSize)
	for i, l := range p.labels {
		p.index[l] = byte(i + 1)
	}
	p.collectArcs()
	p.settle()
	return p, nil
}

func (p *compactPlan) collectArcs() {
	root := noState
	if len(p.order) > 0 {
		root = p.order[0]
	}
	p.arcs = append(p.arcs, compactArc{
		label:  epsilonLabel,
		target: root,
		last:   true,
		next:   root != noState,
	})
	for pos, id := range p.order {
		transitions := p.transitions(id)
		for i, t := range transitions {
			p.arcs = append(p.arcs, compactArc{
				label:  t.label,
				target: t.target,
				final:  t.final,
				last:   i == len(transitions)-1,
				next:   p.followsNode(pos, t.target),
			})
		}
	}
	for i := range p.arcs {
		p.arcs[i].size = p.fixedArcSize(&p.arcs[i])
		if !p.arcs[i].next {
			p.arcs[i].size++
		}
	}
}

// fixedArcSize is the size of an arc without its target field.
func (p *compactPlan) fixedArcSize(a *compactArc) int {
	if p.index[a.label] == 0 {
		return 2
	}
	return 1
}

// settle grows arc sizes until every target fits the room reserved for it.
// Sizes never shrink, so the loop ends after at most MaxVIntLen rounds per
// arc.
func (p *compactPlan) settle() {
	for {
		p.place()
		changed := false
		for i := range p.arcs {
			a := &p.arcs[i]
			if a.next {
				continue
			}
			need := p.fixedArcSize(a) + encoding.VIntLen(p.targetValue(a))
			if need > a.size {
				a.size = need
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

// place assigns node and arc offsets from the current arc sizes.
func (p *compactPlan) place() {
	offset := p.countSize(0)
	p.arcs[0].start = offset
	offset += p.arcs[0].size

	k := 1
	for _, id := range p.order {
		p.nodeStart[id] = offset
		if p.counts != nil {
			offset += p.countSize(p.counts[id])
		}
		for range p.transitions(id) {
			p.arcs[k].start = offset
			offset += p.arcs[k].size
			k++
		}
	}
	p.bodySize = offset
}

func (p *compactPlan) countSize(count int) int {
	if p.counts == nil {
		return 0
	}
	return encoding.VIntLen(uint64(count))
}

// targetValue is the stored target of a non-next arc.
func (p *compactPlan) targetValue(a *compactArc) uint64 {
	if a.target == noState || p.isLeaf(a.target) {
		return 0
	}
	target := p.nodeStart[a.target]
	if p.relative {
		return encoding.ZigZag(int64(target - a.start))
	}
	return uint64(target)
}

func (p *compactPlan) flags() Flags {
	f := FlagFlexible | FlagStopBit | FlagNextBit
	if p.counts != nil {
		f |= FlagNumbers
	}
	return f
}

func (p *compactPlan) headerSize() int {
	return compactFixedHeader + len(p.labels)
}

func (p *compactPlan) size() int {
	return p.headerSize() + p.bodySize
}

func (p *compactPlan) encodeTo(dst []byte) {
	version := FormatCompact
	if p.relative {
		version = FormatRelative
	}
	h := header{Version: version, Filler: p.cfg.filler, Annotation: p.cfg.annotation}
	h.encodeTo(dst)
	dst[prefixSize] = byte(p.flags())
	dst[prefixSize+1] = byte(len(p.labels))
	copy(dst[compactFixedHeader:], p.labels)

	out := dst[p.headerSize():p.size()]
	at := 0
	if p.counts != nil {
		at += encoding.PutVInt(out[at:], 0)
	}
	at = p.putArc(out, at, &p.arcs[0])

	k := 1
	for _, id := range p.order {
		if p.counts != nil {
			at += encoding.PutVInt(out[at:], uint64(p.counts[id]))
		}
		for range p.transitions(id) {
			at = p.putArc(out, at, &p.arcs[k])
			k++
		}
	}
}

func (p *compactPlan) putArc(out []byte, at int, a *compactArc) int {
	b := p.index[a.label]
	if a.last {
		b |= compactBitLast
	}
	if a.final {
		b |= compactBitFinal
	}
	if a.next {
		b |= compactBitNext
	}
	out[at] = b
	n := 1
	if p.index[a.label] == 0 {
		out[at+1] = a.label
		n++
	}
	if !a.next {
		encoding.PutVIntPadded(out[at+n:], p.targetValue(a), a.size-n)
	}
	return at + a.size
}

type compactDecoder struct {
	arcs     body
	labels   []byte
	numbers  bool
	relative bool
	hdrSize  int
	root     int
}

func openCompact(h *header, data []byte, relative bool) (decoder, error) {
	if len(data) < compactFixedHeader {
		return nil, fsaerrors.Format(fsaerrors.ErrTruncatedHeader, "%d bytes", len(data))
	}
	f := Flags(data[prefixSize])
	if extra := f &^ knownFlags; extra != 0 {
		return nil, fsaerrors.Format(fsaerrors.ErrInvalidHeader, "unknown flags 0x%02x", uint8(extra))
	}
	k := int(data[prefixSize+1])
	if k > maxLabelTableSize {
		return nil, fsaerrors.Format(fsaerrors.ErrInvalidHeader, "label table size %d", k)
	}
	hdrSize := compactFixedHeader + k
	if len(data) < hdrSize {
		return nil, fsaerrors.Format(fsaerrors.ErrTruncatedHeader, "%d bytes, label table needs %d", len(data), hdrSize)
	}

	d := &compactDecoder{
		arcs:     body(data[hdrSize:]),
		labels:   data[compactFixedHeader:hdrSize],
		numbers:  f.Has(FlagNumbers),
		relative: relative,
		hdrSize:  hdrSize,
	}
	root, err := guard(func() int { return d.endNode(d.firstArc(0)) })
	if err != nil {
		return nil, fsaerrors.Format(err, "epsilon node")
	}
	d.root = root
	return d, nil
}

func (d *compactDecoder) headerSize() int { return d.hdrSize }

func (d *compactDecoder) flags() Flags {
	f := FlagFlexible | FlagStopBit | FlagNextBit
	if d.numbers {
		f |= FlagNumbers
	}
	return f
}

func (d *compactDecoder) rootNode() int { return d.root }

func (d *compactDecoder) firstArc(node int) int {
	if d.numbers {
		return node + d.arcs.vintLen(node)
	}
	return node
}

func (d *compactDecoder) nextArc(arc int) int {
	if d.isArcLast(arc) {
		return 0
	}
	return d.skipArc(arc)
}

func (d *compactDecoder) arc(node int, label byte) int {
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

func (d *compactDecoder) arcLabel(arc int) byte {
	idx := int(d.arcs.at(arc) & compactIndex)
	if idx == 0 {
		return d.arcs.at(arc + 1)
	}
	if idx > len(d.labels) {
		panic(fsaerrors.OutOfBounds(idx-1, len(d.labels)))
	}
	return d.labels[idx-1]
}

func (d *compactDecoder) isArcFinal(arc int) bool {
	return d.arcs.at(arc)&compactBitFinal != 0
}

func (d *compactDecoder) isArcLast(arc int) bool {
	return d.arcs.at(arc)&compactBitLast != 0
}

func (d *compactDecoder) isNextSet(arc int) bool {
	return d.arcs.at(arc)&compactBitNext != 0
}

func (d *compactDecoder) isArcTerminal(arc int) bool {
	if d.isNextSet(arc) {
		return false
	}
	v, _ := d.arcs.vint(d.targetField(arc))
	return v == 0
}

// targetField returns the offset of the arc's target vint.
func (d *compactDecoder) targetField(arc int) int {
	if d.arcs.at(arc)&compactIndex == 0 {
		return arc + 2
	}
	return arc + 1
}

func (d *compactDecoder) endNode(arc int) int {
	if d.isNextSet(arc) {
		return d.nodeEnd(arc)
	}
	v, _ := d.arcs.vint(d.targetField(arc))
	if v == 0 {
		return 0
	}
	if d.relative {
		return arc + int(encoding.UnZigZag(v))
	}
	return int(v)
}

func (d *compactDecoder) skipArc(arc int) int {
	t := d.targetField(arc)
	if d.isNextSet(arc) {
		return t
	}
	return t + d.arcs.vintLen(t)
}

// nodeEnd returns the offset just past the last arc of arc's node.
func (d *compactDecoder) nodeEnd(arc int) int {
	for !d.isArcLast(arc) {
		arc = d.skipArc(arc)
	}
	return d.skipArc(arc)
}

func (d *compactDecoder) rightLanguageCount(node int) (int, bool) {
	if !d.numbers {
		return 0, false
	}
	v, _ := d.arcs.vint(node)
	return int(v), true
}
