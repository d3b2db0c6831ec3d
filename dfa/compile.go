package dfa

import (
	"encoding/binary"
	"fmt"
	"regexp/syntax"
	"slices"
)

// machine is the intermediate automaton produced by subset construction.
// Transition targets of -1 denote the implicit reject state.
type machine struct {
	start  int32
	accept []bool
	trans  [][alphabetSize]int32
}

// byteSet is a 256-bit membership set over the byte alphabet.
type byteSet [4]uint64

func (s *byteSet) add(b byte) {
	s[b>>6] |= 1 << (b & 63)
}

func (s *byteSet) has(b byte) bool {
	return s[b>>6]&(1<<(b&63)) != 0
}

// builder runs the subset construction over a compiled regexp program.
type builder struct {
	prog  *syntax.Prog
	bytes []*byteSet // per program counter, nil for non-consuming instructions
}

// compile parses expr and converts it into a byte-level DFA. The pattern
// always has to match the whole input.
func compile(expr string, maxStates int) (*machine, error) {
	re, err := syntax.Parse(expr, syntax.Perl)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPattern, err)
	}
	prog, err := syntax.Compile(re.Simplify())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPattern, err)
	}
	b, err := newBuilder(prog)
	if err != nil {
		return nil, err
	}
	return b.build(maxStates)
}

func newBuilder(prog *syntax.Prog) (*builder, error) {
	b := &builder{
		prog:  prog,
		bytes: make([]*byteSet, len(prog.Inst)),
	}
	for pc := range prog.Inst {
		inst := &prog.Inst[pc]
		switch inst.Op {
		case syntax.InstRune, syntax.InstRune1, syntax.InstRuneAny, syntax.InstRuneAnyNotNL:
			set := new(byteSet)
			for c := 0; c < alphabetSize; c++ {
				if matchByte(inst, byte(c)) {
					set.add(byte(c))
				}
			}
			b.bytes[pc] = set
		case syntax.InstEmptyWidth:
			op := syntax.EmptyOp(inst.Arg)
			if op&^(syntax.EmptyBeginText|syntax.EmptyEndText) != 0 {
				return nil, fmt.Errorf("%w: empty-width assertion %#x is not supported", ErrPattern, uint8(op))
			}
		}
	}
	return b, nil
}

// matchByte reports whether inst consumes the byte c. Bytes are treated as
// the Latin-1 runes of the same value.
func matchByte(inst *syntax.Inst, c byte) bool {
	switch inst.Op {
	case syntax.InstRuneAny:
		return true
	case syntax.InstRuneAnyNotNL:
		return c != '\n'
	}
	return inst.MatchRune(rune(c))
}

// closure returns the sorted set of program counters reachable from seeds
// without consuming input. Empty-width assertions are followed only when all
// their conditions hold in ctx; blocked assertions stay in the set so that
// acceptance can be re-evaluated later with a different context.
func (b *builder) closure(seeds []uint32, ctx syntax.EmptyOp) []uint32 {
	seen := make(map[uint32]bool, len(seeds)*2)
	stack := append([]uint32(nil), seeds...)
	var out []uint32
	for len(stack) > 0 {
		pc := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[pc] {
			continue
		}
		seen[pc] = true
		out = append(out, pc)

		inst := &b.prog.Inst[pc]
		switch inst.Op {
		case syntax.InstAlt, syntax.InstAltMatch:
			stack = append(stack, inst.Out, inst.Arg)
		case syntax.InstCapture, syntax.InstNop:
			stack = append(stack, inst.Out)
		case syntax.InstEmptyWidth:
			if syntax.EmptyOp(inst.Arg)&^ctx == 0 {
				stack = append(stack, inst.Out)
			}
		}
	}
	slices.Sort(out)
	return out
}

// accepts reports whether the state set reaches a match once the end of the
// input has been reached.
func (b *builder) accepts(set []uint32, atStart bool) bool {
	ctx := syntax.EmptyEndText
	if atStart {
		ctx |= syntax.EmptyBeginText
	}
	for _, pc := range b.closure(set, ctx) {
		if b.prog.Inst[pc].Op == syntax.InstMatch {
			return true
		}
	}
	return false
}

// step returns the deduplicated successors of set on input c, before closure.
func (b *builder) step(set []uint32, c byte) []uint32 {
	var next []uint32
	for _, pc := range set {
		if bs := b.bytes[pc]; bs != nil && bs.has(c) {
			next = append(next, b.prog.Inst[pc].Out)
		}
	}
	slices.Sort(next)
	return slices.Compact(next)
}

func setKey(prefix byte, set []uint32) string {
	buf := make([]byte, 1, 1+4*len(set))
	buf[0] = prefix
	for _, pc := range set {
		buf = binary.LittleEndian.AppendUint32(buf, pc)
	}
	return string(buf)
}

func (b *builder) build(maxStates int) (*machine, error) {
	type pending struct {
		id  int32
		set []uint32
	}
	m := new(machine)
	index := make(map[string]int32)
	var queue []pending

	add := func(key string, set []uint32, atStart bool) (int32, error) {
		if id, ok := index[key]; ok {
			return id, nil
		}
		if len(m.accept) >= maxStates {
			return -1, fmt.Errorf("%w: more than %d states", ErrTooManyStates, maxStates)
		}
		id := int32(len(m.accept))
		index[key] = id
		m.accept = append(m.accept, b.accepts(set, atStart))
		m.trans = append(m.trans, [alphabetSize]int32{})
		queue = append(queue, pending{id: id, set: set})
		return id, nil
	}

	// The start state is keyed apart from the others: its set is evaluated
	// with the begin-of-text assertion satisfied.
	start := b.closure([]uint32{uint32(b.prog.Start)}, syntax.EmptyBeginText)
	id, err := add(setKey('s', start), start, true)
	if err != nil {
		return nil, err
	}
	m.start = id

	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		moves := make(map[string]int32)
		for c := 0; c < alphabetSize; c++ {
			seeds := b.step(p.set, byte(c))
			if len(seeds) == 0 {
				m.trans[p.id][c] = -1
				continue
			}
			sk := setKey('m', seeds)
			if to, ok := moves[sk]; ok {
				m.trans[p.id][c] = to
				continue
			}
			set := b.closure(seeds, 0)
			to, err := add(setKey('q', set), set, false)
			if err != nil {
				return nil, err
			}
			moves[sk] = to
			m.trans[p.id][c] = to
		}
	}
	return m, nil
}

// prune drops every state that cannot reach an accepting state. The start
// state is always kept so that an empty language still has a machine.
func (m *machine) prune() *machine {
	n := len(m.accept)
	rev := make([][]int32, n)
	for q := range m.trans {
		last := int32(-1)
		for _, t := range m.trans[q] {
			if t >= 0 && t != last {
				rev[t] = append(rev[t], int32(q))
				last = t
			}
		}
	}
	live := make([]bool, n)
	var stack []int32
	for q, ok := range m.accept {
		if ok {
			live[q] = true
			stack = append(stack, int32(q))
		}
	}
	for len(stack) > 0 {
		q := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, p := range rev[q] {
			if !live[p] {
				live[p] = true
				stack = append(stack, p)
			}
		}
	}

	remap := make([]int32, n)
	kept := int32(0)
	for q := range remap {
		if live[q] || int32(q) == m.start {
			remap[q] = kept
			kept++
		} else {
			remap[q] = -1
		}
	}
	out := &machine{
		start:  remap[m.start],
		accept: make([]bool, kept),
		trans:  make([][alphabetSize]int32, kept),
	}
	for q := range m.trans {
		nq := remap[q]
		if nq < 0 {
			continue
		}
		out.accept[nq] = m.accept[q]
		for c, t := range m.trans[q] {
			if t < 0 {
				out.trans[nq][c] = -1
			} else {
				out.trans[nq][c] = remap[t]
			}
		}
	}
	return out
}

// minimize merges equivalent states by Moore partition refinement.
func (m *machine) minimize() *machine {
	n := len(m.accept)
	class := make([]int32, n)
	classes := 0
	var seenAccept, seenReject bool
	for q, ok := range m.accept {
		if ok {
			class[q] = 1
			seenAccept = true
		} else {
			seenReject = true
		}
	}
	if seenAccept {
		classes++
	}
	if seenReject {
		classes++
	}

	for {
		sigs := make(map[string]int32, classes)
		next := make([]int32, n)
		for q := range m.trans {
			sig := binary.LittleEndian.AppendUint32(nil, uint32(class[q]))
			prev := int32(-2)
			for c, t := range m.trans[q] {
				cls := int32(-1)
				if t >= 0 {
					cls = class[t]
				}
				if cls != prev {
					sig = append(sig, byte(c))
					sig = binary.LittleEndian.AppendUint32(sig, uint32(cls))
					prev = cls
				}
			}
			id, ok := sigs[string(sig)]
			if !ok {
				id = int32(len(sigs))
				sigs[string(sig)] = id
			}
			next[q] = id
		}
		class = next
		if len(sigs) == classes {
			break
		}
		classes = len(sigs)
	}

	out := &machine{
		start:  class[m.start],
		accept: make([]bool, classes),
		trans:  make([][alphabetSize]int32, classes),
	}
	for q := range m.trans {
		nq := class[q]
		out.accept[nq] = m.accept[q]
		for c, t := range m.trans[q] {
			if t < 0 {
				out.trans[nq][c] = -1
			} else {
				out.trans[nq][c] = class[t]
			}
		}
	}
	return out
}
