// Bench measures automaton build time, serialized size per format, and
// query throughput.
//
// Usage:
//
//	go run ./cmd/bench -words 1000000 -workers 4
//	go run ./cmd/bench -file /usr/share/dict/words -numbers
//
// Flags:
//
//	-words     Number of synthetic words to generate (default: 1,000,000)
//	-file      Read words from a file, one per line, instead of generating
//	-format    fixed, compact, relative or all (default: all)
//	-numbers   Serialize right-language counts and benchmark PerfectHash
//	-workers   Number of concurrent query workers (default: GOMAXPROCS)
//	-queries   Number of queries per format (default: 1,000,000)
//	-v         Log library debug events
package main

import (
	"bufio"
	"encoding/binary"
	"flag"
	"fmt"
	mrand "math/rand/v2"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"sync/atomic"
	"time"

	"github.com/spaolacci/murmur3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tamirms/fsa"
)

// alphabet is weighted towards common English letters so that synthetic
// words share prefixes and suffixes the way a real word list does.
const alphabet = "eeeeeeetttttaaaaooooiiiinnnnsssshhhrrrdddllcuumwfgypbvkjxqz"

// syntheticWords derives n words from murmur3 hashes of their index.
func syntheticWords(n int) [][]byte {
	words := make([][]byte, n)
	var key [8]byte
	for i := range words {
		binary.LittleEndian.PutUint64(key[:], uint64(i))
		h1, h2 := murmur3.Sum128WithSeed(key[:], 0x1234)
		length := 3 + int(h1%10)
		w := make([]byte, length)
		for j := range w {
			w[j] = alphabet[h2%uint64(len(alphabet))]
			h2 = h2/uint64(len(alphabet)) ^ h1>>uint(j)
		}
		words[i] = w
	}
	return words
}

func readWords(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var words [][]byte
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := sc.Bytes(); len(line) > 0 {
			words = append(words, append([]byte(nil), line...))
		}
	}
	return words, sc.Err()
}

type result struct {
	format      fsa.Format
	size        int64
	queryTime   time.Duration
	hashTime    time.Duration
	fingerprint uint64
	misses      int64
}

func main() {
	wordsFlag := flag.Int("words", 1_000_000, "number of synthetic words")
	fileFlag := flag.String("file", "", "word list, one word per line")
	formatFlag := flag.String("format", "all", "fixed, compact, relative or all")
	numbersFlag := flag.Bool("numbers", false, "serialize right-language counts")
	workersFlag := flag.Int("workers", runtime.GOMAXPROCS(0), "concurrent query workers")
	queriesFlag := flag.Int("queries", 1_000_000, "queries per format")
	cpuprofile := flag.String("cpuprofile", "", "write cpu profile to file (build phase only)")
	verbose := flag.Bool("v", false, "log library debug events")
	flag.Parse()

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Printf("Failed to create logger: %v\n", err)
			return
		}
		defer func() { _ = logger.Sync() }()
		fsa.SetLogger(logger)
	}

	var formats []fsa.Format
	if *formatFlag == "all" {
		formats = fsa.Formats()
	} else {
		for _, f := range fsa.Formats() {
			if f.String() == *formatFlag {
				formats = append(formats, f)
			}
		}
		if len(formats) == 0 {
			fmt.Printf("Unknown format: %s\n", *formatFlag)
			return
		}
	}

	var words [][]byte
	if *fileFlag != "" {
		fmt.Printf("Reading %s...\n", *fileFlag)
		var err error
		if words, err = readWords(*fileFlag); err != nil {
			fmt.Printf("Failed to read words: %v\n", err)
			return
		}
	} else {
		fmt.Println("Generating words...")
		words = syntheticWords(*wordsFlag)
	}
	if len(words) == 0 {
		fmt.Println("No words to index")
		return
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			fmt.Printf("could not create CPU profile: %v\n", err)
			return
		}
		defer func() { _ = f.Close() }()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Printf("could not start CPU profile: %v\n", err)
			return
		}
	}

	fmt.Println("Building automaton...")
	buildStart := time.Now()
	g, err := fsa.BuildUnsorted(words)
	buildDuration := time.Since(buildStart)
	if *cpuprofile != "" {
		pprof.StopCPUProfile()
	}
	if err != nil {
		fmt.Printf("Build failed: %v\n", err)
		return
	}

	tmpDir, err := os.MkdirTemp("", "bench-")
	if err != nil {
		fmt.Printf("Failed to create temp dir: %v\n", err)
		return
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	var opts []fsa.SerializeOption
	if *numbersFlag {
		opts = append(opts, fsa.WithNumbers())
	}

	// Query order is shared by every format so that timings compare.
	queryOrder := make([]int, *queriesFlag)
	for i := range queryOrder {
		queryOrder[i] = mrand.IntN(len(words))
	}

	// Formats are independent, so they are written concurrently. Queries run
	// one format at a time to keep timings comparable.
	fmt.Println("Serializing...")
	results := make([]result, len(formats))
	paths := make([]string, len(formats))
	var eg errgroup.Group
	for i, format := range formats {
		paths[i] = filepath.Join(tmpDir, format.String()+".fsa")
		eg.Go(func() error {
			size, err := fsa.Save(paths[i], g, format, opts...)
			if err != nil {
				return fmt.Errorf("%s: %w", format, err)
			}
			results[i] = result{format: format, size: size}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		fmt.Printf("Serialization failed: %v\n", err)
		return
	}

	fmt.Println("Querying...")
	for i := range results {
		if err := benchQueries(&results[i], paths[i], words, queryOrder, *workersFlag, *numbersFlag); err != nil {
			fmt.Printf("%s: %v\n", results[i].format, err)
			return
		}
	}

	fmt.Printf("\n")
	fmt.Printf("Words: %d distinct of %d, states: %d, transitions: %d\n",
		g.NumSequences(), len(words), g.NumStates(), g.NumTransitions())
	fmt.Printf("Build time: %.2f sec (%.2f M/sec)\n",
		buildDuration.Seconds(), float64(len(words))/buildDuration.Seconds()/1_000_000)
	fmt.Printf("\n")
	fmt.Printf("╔══════════╦══════════════╦═══════════╦═════════════╦═════════════╦══════════════════╗\n")
	fmt.Printf("║ Format   ║ Size         ║ Bits/word ║ Match       ║ PerfectHash ║ Fingerprint      ║\n")
	fmt.Printf("╠══════════╬══════════════╬═══════════╬═════════════╬═════════════╬══════════════════╣\n")
	for _, r := range results {
		bitsPerWord := float64(r.size*8) / float64(max(g.NumSequences(), 1))
		hash := "     -     "
		if *numbersFlag {
			hash = fmt.Sprintf("%8.1f ns", nsPerOp(r.hashTime, len(queryOrder)))
		}
		fmt.Printf("║ %-8s ║ %12d ║ %9.2f ║ %8.1f ns ║ %s ║ %016x ║\n",
			r.format, r.size, bitsPerWord, nsPerOp(r.queryTime, len(queryOrder)), hash, r.fingerprint)
		if r.misses > 0 {
			fmt.Printf("║ WARNING: %d lookups failed\n", r.misses)
		}
	}
	fmt.Printf("╚══════════╩══════════════╩═══════════╩═════════════╩═════════════╩══════════════════╝\n")
}

func nsPerOp(d time.Duration, n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(d.Nanoseconds()) / float64(n)
}

func benchQueries(r *result, path string, words [][]byte, order []int, workers int, numbers bool) error {
	a, err := fsa.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	r.fingerprint = a.Fingerprint()

	var misses atomic.Int64
	r.queryTime = runQueries(order, workers, func(i int) {
		if !fsa.Contains(a, words[i]) {
			misses.Add(1)
		}
	})
	if numbers {
		root := a.RootNode()
		r.hashTime = runQueries(order, workers, func(i int) {
			if _, kind, _ := fsa.PerfectHash(a, words[i], root); kind != fsa.ExactMatch {
				misses.Add(1)
			}
		})
	}
	r.misses = misses.Load()
	return a.Verify()
}

// runQueries splits order across workers and returns the wall time.
func runQueries(order []int, workers int, query func(int)) time.Duration {
	workers = max(workers, 1)
	chunk := (len(order) + workers - 1) / workers
	start := time.Now()
	var eg errgroup.Group
	for w := 0; w < workers; w++ {
		lo := min(w*chunk, len(order))
		hi := min(lo+chunk, len(order))
		eg.Go(func() error {
			for _, i := range order[lo:hi] {
				query(i)
			}
			return nil
		})
	}
	_ = eg.Wait()
	return time.Since(start)
}
