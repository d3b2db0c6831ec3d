// Package dfa builds byte-level deterministic finite automata from regular
// expressions and ranks the words of a fixed length N that they accept.
//
// A DFA is constructed once per (pattern, N) pair: the pattern is compiled
// with regexp/syntax, converted by subset construction, pruned of dead states
// and minimised. A count table holding, for every state q and every budget k,
// the number of words of length exactly k that lead from q to acceptance is
// computed at build time. Rank and Unrank use that table to map between the
// accepted words of length N and the integers [0, NumWordsInSlice(N)) in time
// linear in N.
//
// Bytes are interpreted as Latin-1 runes, so a pattern class like [a-z] or
// \xff matches the bytes of the same value. The pattern always has to match
// the whole word; ^ and $ may be used but are implied.
package dfa

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'fte.dfa'
func tracer() tracing.Trace {
	return tracing.Select("fte.dfa")
}

const alphabetSize = 256

// MaxStates is the default maximum number of states when constructing a DFA.
const MaxStates = 10000

var (
	// ErrPattern is returned for malformed or unsupported patterns.
	ErrPattern = errors.New("dfa: malformed or unsupported pattern")
	// ErrTooManyStates is returned when subset construction exceeds the state limit.
	ErrTooManyStates = errors.New("dfa: automaton exceeds state limit")
	// ErrInvalidLength is returned for a fixed slice smaller than one.
	ErrInvalidLength = errors.New("dfa: fixed slice must be positive")
	// ErrLength is returned when Rank is given a word whose length is not N.
	ErrLength = errors.New("dfa: word length does not match fixed slice")
	// ErrNotInLanguage is returned when Rank is given a word the DFA rejects.
	ErrNotInLanguage = errors.New("dfa: word is not in the language")
	// ErrOutOfRange is returned when Unrank is given a rank outside [0, NumWordsInSlice(N)).
	ErrOutOfRange = errors.New("dfa: rank out of range")
)

// edge is a run of consecutive bytes that share a transition target.
type edge struct {
	lo, hi byte
	to     int32
}

// DFA is an immutable automaton bounded to words of length N together with
// its count table. It is safe for concurrent use.
type DFA struct {
	pattern  string
	n        int
	start    int32
	accept   []bool
	trans    [][alphabetSize]int32
	edges    [][]edge
	counts   [][]*big.Int // counts[q][k]: words of length k leading from q to acceptance
	capacity int
}

type config struct {
	maxStates int
}

// Option configures New.
type Option func(*config)

// WithMaxStates overrides MaxStates for a single construction.
func WithMaxStates(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxStates = n
		}
	}
}

// New compiles pattern into a DFA whose Rank and Unrank operate on words of
// exactly n bytes. A language without words of length n is not an error; its
// capacity is zero.
func New(pattern string, n int, opts ...Option) (*DFA, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLength, n)
	}
	cfg := config{maxStates: MaxStates}
	for _, opt := range opts {
		opt(&cfg)
	}

	m, err := compile(pattern, cfg.maxStates)
	if err != nil {
		return nil, err
	}
	built := len(m.accept)
	m = m.prune().minimize()

	d := &DFA{
		pattern: pattern,
		n:       n,
		start:   m.start,
		accept:  m.accept,
		trans:   m.trans,
	}
	d.buildEdges()
	d.buildCounts()

	tracer().Infof("dfa for %q n=%d: %d states (%d before minimisation), capacity %d bits",
		pattern, n, len(d.accept), built, d.capacity)
	return d, nil
}

func (d *DFA) buildEdges() {
	d.edges = make([][]edge, len(d.trans))
	for q := range d.trans {
		var runs []edge
		for c := 0; c < alphabetSize; c++ {
			to := d.trans[q][c]
			if to < 0 {
				continue
			}
			if k := len(runs) - 1; k >= 0 && runs[k].to == to && int(runs[k].hi)+1 == c {
				runs[k].hi = byte(c)
				continue
			}
			runs = append(runs, edge{lo: byte(c), hi: byte(c), to: to})
		}
		d.edges[q] = runs
	}
}

func (d *DFA) buildCounts() {
	d.counts = make([][]*big.Int, len(d.accept))
	for q := range d.counts {
		d.counts[q] = make([]*big.Int, d.n+1)
		if d.accept[q] {
			d.counts[q][0] = big.NewInt(1)
		} else {
			d.counts[q][0] = new(big.Int)
		}
	}
	var tmp big.Int
	for k := 1; k <= d.n; k++ {
		for q := range d.counts {
			sum := new(big.Int)
			for _, e := range d.edges[q] {
				c := d.counts[e.to][k-1]
				if c.Sign() == 0 {
					continue
				}
				tmp.SetInt64(int64(e.hi-e.lo) + 1)
				tmp.Mul(&tmp, c)
				sum.Add(sum, &tmp)
			}
			d.counts[q][k] = sum
		}
	}
	if total := d.counts[d.start][d.n]; total.Sign() > 0 {
		d.capacity = total.BitLen() - 1
	}
}

// Pattern returns the regular expression the DFA was built from.
func (d *DFA) Pattern() string {
	return d.pattern
}

// N returns the fixed slice: the length of every word produced by Unrank.
func (d *DFA) N() int {
	return d.n
}

// NumStates returns the number of states of the minimised automaton.
func (d *DFA) NumStates() int {
	return len(d.accept)
}

// Capacity returns floor(log2(NumWordsInSlice(N))) in bits, or zero when the
// language has no word of length N.
func (d *DFA) Capacity() int {
	return d.capacity
}

// NumWordsInSlice returns the number of accepted words of length exactly k,
// for 0 <= k <= N.
func (d *DFA) NumWordsInSlice(k int) *big.Int {
	if k < 0 || k > d.n {
		return new(big.Int)
	}
	return new(big.Int).Set(d.counts[d.start][k])
}

// NumWordsInLanguage returns the number of accepted words whose length lies
// in [lo, hi], clamped to [0, N].
func (d *DFA) NumWordsInLanguage(lo, hi int) *big.Int {
	if lo < 0 {
		lo = 0
	}
	if hi > d.n {
		hi = d.n
	}
	sum := new(big.Int)
	for k := lo; k <= hi; k++ {
		sum.Add(sum, d.counts[d.start][k])
	}
	return sum
}

// Matches reports whether the DFA accepts word. Unlike Rank it accepts words
// of any length.
func (d *DFA) Matches(word []byte) bool {
	q := d.start
	for _, c := range word {
		if q = d.trans[q][c]; q < 0 {
			return false
		}
	}
	return d.accept[q]
}

// Rank returns the number of accepted words of length N that sort before
// word in byte order.
func (d *DFA) Rank(word []byte) (*big.Int, error) {
	if len(word) != d.n {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrLength, len(word), d.n)
	}
	rank := new(big.Int)
	var tmp big.Int
	q := d.start
	for i, c := range word {
		left := d.n - i - 1
		for _, e := range d.edges[q] {
			if e.lo >= c {
				break
			}
			hi := e.hi
			if hi >= c {
				hi = c - 1
			}
			cnt := d.counts[e.to][left]
			if cnt.Sign() == 0 {
				continue
			}
			tmp.SetInt64(int64(hi-e.lo) + 1)
			tmp.Mul(&tmp, cnt)
			rank.Add(rank, &tmp)
		}
		if q = d.trans[q][c]; q < 0 {
			return nil, fmt.Errorf("%w: rejected at offset %d", ErrNotInLanguage, i)
		}
	}
	if !d.accept[q] {
		return nil, fmt.Errorf("%w: no accepting state at end of word", ErrNotInLanguage)
	}
	return rank, nil
}

// Unrank returns the accepted word of length N whose rank is rank.
func (d *DFA) Unrank(rank *big.Int) ([]byte, error) {
	total := d.counts[d.start][d.n]
	if rank.Sign() < 0 || rank.Cmp(total) >= 0 {
		return nil, fmt.Errorf("%w: %d words in slice", ErrOutOfRange, total)
	}
	rem := new(big.Int).Set(rank)
	var block, off, mod big.Int
	word := make([]byte, d.n)
	q := d.start
	for i := range word {
		left := d.n - i - 1
		next := int32(-1)
		for _, e := range d.edges[q] {
			cnt := d.counts[e.to][left]
			if cnt.Sign() == 0 {
				continue
			}
			block.SetInt64(int64(e.hi-e.lo) + 1)
			block.Mul(&block, cnt)
			if rem.Cmp(&block) < 0 {
				off.QuoRem(rem, cnt, &mod)
				rem.Set(&mod)
				word[i] = e.lo + byte(off.Int64())
				next = e.to
				break
			}
			rem.Sub(rem, &block)
		}
		if next < 0 {
			// unreachable while counts are consistent with the transitions
			return nil, fmt.Errorf("dfa: unrank left the language at offset %d", i)
		}
		q = next
	}
	return word, nil
}
