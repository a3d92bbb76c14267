// Package fsa builds, serializes and queries minimal deterministic finite
// state automata over byte sequences.
//
// An automaton is built once from a sorted set of sequences, written in one
// of three wire formats, and then queried directly on the serialized bytes:
// no object graph is rebuilt at load time, and every query is a pure
// function of the buffer and an integer offset.
//
// # Basic Usage
//
// Building and saving an automaton:
//
//	g, err := fsa.Build(sortedWords)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if _, err := fsa.Save("words.fsa", g, fsa.FormatCompact, fsa.WithNumbers()); err != nil {
//	    log.Fatal(err)
//	}
//
// Querying it:
//
//	a, err := fsa.Open("words.fsa")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer a.Close()
//
//	if fsa.Contains(a, []byte("word")) {
//	    ord, _, _ := fsa.PerfectHash(a, []byte("word"), a.RootNode())
//	    fmt.Printf("ordinal %d\n", ord)
//	}
//
// # Formats
//
//   - FormatFixed: fixed-width target fields, width chosen per automaton
//   - FormatCompact: frequent labels packed into the flag byte, vint targets
//   - FormatRelative: FormatCompact with targets relative to the arc
//
// # Package Structure
//
//   - Construction: state.go (arena, registry), builder.go, graph.go
//   - Serialization: serialize.go (options, layout), format_fixed.go,
//     format_compact.go, writer.go (Save)
//   - Reading: header.go, format.go (codec registry), automaton.go
//   - Traversal: match.go, perfecthash.go, iterator.go, stats.go, dot.go
//   - Platform: sysio_*.go (file allocation and mapping hints)
package fsa
