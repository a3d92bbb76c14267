package fsa

import (
	"io"
	"slices"

	"go.uber.org/zap"
)

const (
	// maxLabelTableSize is the number of labels FormatCompact and
	// FormatRelative can pack into the 5-bit label index (index 0 escapes).
	maxLabelTableSize = 31

	// epsilonLabel labels the arc from the epsilon node to the root.
	epsilonLabel = '^'
)

// SerializeOption is a functional option for configuring serialization.
type SerializeOption func(*serializeConfig)

type serializeConfig struct {
	numbers        bool
	filler         byte
	annotation     byte
	labelTableSize int
}

func defaultSerializeConfig() *serializeConfig {
	return &serializeConfig{
		filler:         defaultFiller,
		annotation:     defaultAnnotation,
		labelTableSize: maxLabelTableSize,
	}
}

// WithNumbers stores the right-language count of every node, enabling
// PerfectHash and RightLanguageCount on the result.
func WithNumbers() SerializeOption {
	return func(c *serializeConfig) {
		c.numbers = true
	}
}

// WithFiller sets the header's filler byte.
func WithFiller(b byte) SerializeOption {
	return func(c *serializeConfig) {
		c.filler = b
	}
}

// WithAnnotation sets the header's annotation (separator) byte.
func WithAnnotation(b byte) SerializeOption {
	return func(c *serializeConfig) {
		c.annotation = b
	}
}

// WithLabelTableSize limits the frequent-label table of FormatCompact and
// FormatRelative to k entries. Values are clamped to [0, 31]. Ignored by
// FormatFixed.
func WithLabelTableSize(k int) SerializeOption {
	return func(c *serializeConfig) {
		c.labelTableSize = max(0, min(k, maxLabelTableSize))
	}
}

// Serialize encodes g in the given format. The output is deterministic:
// the same graph and options always produce the same bytes.
func Serialize(g *Graph, format Format, opts ...SerializeOption) ([]byte, error) {
	plan, err := newPlan(g, format, opts)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, plan.size())
	plan.encodeTo(buf)
	return buf, nil
}

// WriteTo encodes g in the given format to w. Returns the number of bytes
// written.
func WriteTo(w io.Writer, g *Graph, format Format, opts ...SerializeOption) (int64, error) {
	buf, err := Serialize(g, format, opts...)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(buf)
	return int64(n), err
}

func newPlan(g *Graph, format Format, opts []SerializeOption) (encoderPlan, error) {
	c, err := lookupCodec(format)
	if err != nil {
		return nil, err
	}
	cfg := defaultSerializeConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	plan, err := c.plan(g, cfg)
	if err != nil {
		return nil, err
	}
	Logger().Debug("automaton laid out",
		zap.Stringer("format", format),
		zap.Bool("numbers", cfg.numbers),
		zap.Int("size", plan.size()))
	return plan, nil
}

// layout is the format-independent part of a serialization plan: which
// states become nodes, in which order, and their counts.
type layout struct {
	g      *Graph
	order  []stateID
	counts []int // nil unless numbers were requested

	// position[id] is the index of id in order, or -1 for leaves.
	position []int32
}

func newLayout(g *Graph, numbers bool) *layout {
	l := &layout{
		g:        g,
		order:    g.linearize(),
		position: make([]int32, len(g.states)),
	}
	for i := range l.position {
		l.position[i] = -1
	}
	for i, id := range l.order {
		l.position[id] = int32(i)
	}
	if numbers {
		l.counts = g.rightLanguageCounts()
	}
	return l
}

// maxCount returns the largest count of any node.
func (l *layout) maxCount() int {
	if l.counts == nil || len(l.order) == 0 {
		return 0
	}
	m := 0
	for _, id := range l.order {
		m = max(m, l.counts[id])
	}
	return m
}

// followsNode reports whether target is laid out right after the node at
// position pos. Position -1 is the epsilon node, followed by the root.
func (l *layout) followsNode(pos int, target stateID) bool {
	next := pos + 1
	return next < len(l.order) && l.order[next] == target
}

func (l *layout) isLeaf(id stateID) bool {
	return len(l.g.states[id].transitions) == 0
}

func (l *layout) transitions(id stateID) []transition {
	return l.g.states[id].transitions
}

// labelTable returns up to k labels ordered by descending number of arcs
// that carry them, ties broken by ascending label.
func (l *layout) labelTable(k int) []byte {
	var freq [256]int
	for _, id := range l.order {
		for _, t := range l.transitions(id) {
			freq[t.label]++
		}
	}
	var labels []byte
	for b := 0; b < 256; b++ {
		if freq[b] > 0 {
			labels = append(labels, byte(b))
		}
	}
	slices.SortStableFunc(labels, func(a, b byte) int {
		return freq[b] - freq[a]
	})
	if len(labels) > k {
		labels = labels[:k]
	}
	return labels
}
