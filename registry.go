package fte

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/vdparikh/fte/dfa"
	"golang.org/x/sync/singleflight"
)

// Language is a compiled (regex, fixed slice) pair: the automaton, its count
// table and capacity. A Language is immutable and shared by every Codec that
// uses the same format.
type Language struct {
	regex string
	n     int
	dfa   *dfa.DFA
}

// Regex returns the regular expression of the language.
func (l *Language) Regex() string { return l.regex }

// FixedSlice returns N, the length of the formatted covertext prefix.
func (l *Language) FixedSlice() int { return l.n }

// Capacity returns the number of bits the language can carry per covertext.
func (l *Language) Capacity() int { return l.dfa.Capacity() }

// DFA returns the underlying automaton.
func (l *Language) DFA() *dfa.DFA { return l.dfa }

// Matches reports whether word is a member of the language.
func (l *Language) Matches(word []byte) bool { return l.dfa.Matches(word) }

// Rank maps an accepted word of length N to its index.
func (l *Language) Rank(word []byte) (*big.Int, error) { return l.dfa.Rank(word) }

// Unrank maps an index to the accepted word of length N with that rank.
func (l *Language) Unrank(rank *big.Int) ([]byte, error) { return l.dfa.Unrank(rank) }

type languageKey struct {
	regex string
	n     int
}

func (k languageKey) String() string {
	return strconv.Itoa(k.n) + ":" + k.regex
}

// Registry memoizes compiled languages by (regex, fixed slice). Each key is
// built at most once, also when first requested by concurrent callers: they
// wait for the single construction and share its result. Entries are never
// evicted.
type Registry struct {
	mu        sync.RWMutex
	languages map[languageKey]*Language
	flight    singleflight.Group
	builds    atomic.Int64
	opts      []dfa.Option
}

// DefaultRegistry is the process-wide registry used by New and the tinkfte package.
var DefaultRegistry = NewRegistry()

// NewRegistry returns an empty registry. opts are applied to every automaton
// it builds.
func NewRegistry(opts ...dfa.Option) *Registry {
	return &Registry{
		languages: make(map[languageKey]*Language),
		opts:      opts,
	}
}

func (r *Registry) lookup(key languageKey) (*Language, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lang, ok := r.languages[key]
	return lang, ok
}

// Get returns the language for (regex, n), building it on first use.
// A malformed or unsupported regex fails with PatternError, n < 1 with
// InvalidInput. Failed builds are not cached.
func (r *Registry) Get(regex string, n int) (*Language, error) {
	const op = "registry"
	if n < 1 {
		return nil, NewError(InvalidInput, op, fmt.Errorf("fixed slice must be positive, got %d", n))
	}
	key := languageKey{regex: regex, n: n}
	if lang, ok := r.lookup(key); ok {
		return lang, nil
	}

	v, err, shared := r.flight.Do(key.String(), func() (interface{}, error) {
		// a flight that finished between lookup and Do has already stored the key
		if lang, ok := r.lookup(key); ok {
			return lang, nil
		}
		r.builds.Add(1)
		d, err := dfa.New(regex, n, r.opts...)
		if err != nil {
			tracer().Errorf("building language %s failed: %v", key, err)
			return nil, err
		}
		lang := &Language{regex: regex, n: n, dfa: d}
		r.mu.Lock()
		r.languages[key] = lang
		r.mu.Unlock()
		return lang, nil
	})
	if err != nil {
		if errors.Is(err, dfa.ErrInvalidLength) {
			return nil, NewError(InvalidInput, op, err)
		}
		return nil, NewError(PatternError, op, err)
	}
	if shared {
		tracer().Debugf("shared construction of language %s", key)
	}
	return v.(*Language), nil
}

// GetFormat returns the language of a named format.
func (r *Registry) GetFormat(f Format) (*Language, error) {
	if err := f.Validate(); err != nil {
		return nil, NewError(InvalidInput, "registry", err)
	}
	return r.Get(f.Regex, f.FixedSlice)
}

// Builds returns the number of automaton constructions started by r.
func (r *Registry) Builds() int64 {
	return r.builds.Load()
}

// Len returns the number of cached languages.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.languages)
}
