package fsa

import (
	"fmt"
	"io"
	"strings"
)

// WriteDot writes the reachable part of fsa as a Graphviz digraph. Nodes
// are named by their offset. Final arcs are drawn bold; terminal arcs point
// at a shared "stop" node.
func WriteDot(w io.Writer, fsa FSA) error {
	var b strings.Builder
	b.WriteString("digraph Automaton {\n")
	b.WriteString("  rankdir = LR;\n")
	b.WriteString("  stop [shape=doublecircle,label=\"\"];\n")
	b.WriteString("  initial [shape=plaintext,label=\"\"];\n")

	root := fsa.RootNode()
	if root != 0 {
		fmt.Fprintf(&b, "  initial -> %d;\n", root)

		seen := map[int]bool{root: true}
		stack := []int{root}
		for len(stack) > 0 {
			node := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			fmt.Fprintf(&b, "  %d [shape=circle,label=\"\"];\n", node)

			for arc := fsa.FirstArc(node); arc != 0; arc = fsa.NextArc(arc) {
				target := "stop"
				if !fsa.IsArcTerminal(arc) {
					end := fsa.EndNode(arc)
					target = fmt.Sprint(end)
					if !seen[end] {
						seen[end] = true
						stack = append(stack, end)
					}
				}
				style := ""
				if fsa.IsArcFinal(arc) {
					style = ",style=bold"
				}
				fmt.Fprintf(&b, "  %d -> %s [label=%q%s];\n", node, target, string([]byte{fsa.ArcLabel(arc)}), style)
			}
		}
	}
	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}
