// Package sequence implements the Fibonacci sequence as a demand-driven
// producer of arbitrary-precision integers.
//
// A Source keeps O(1) state, the last two terms, and computes a term only
// when one is requested:
//
//	src := sequence.New(sequence.Unbounded())
//	first := src.Pull(ctx) // 1 (the seed)
//	next := src.Pull(ctx)  // 1, then 2, 3, 5, ...
package sequence

import (
	"math/big"

	"github.com/lguimbarda/fibflow/flow/core"
)

// State holds the last two terms of the sequence.
type State struct {
	Prev *big.Int
	Curr *big.Int
}

// Seed returns the state before the first computed term: (0, 1).
func Seed() State {
	return State{Prev: big.NewInt(0), Curr: big.NewInt(1)}
}

// Step returns the state after one more term. It never mutates s, so
// integers already handed out stay unchanged.
func (s State) Step() State {
	return State{Prev: s.Curr, Curr: new(big.Int).Add(s.Prev, s.Curr)}
}

// Limit bounds how many terms a Source computes after the seed.
type Limit struct {
	n       uint64
	bounded bool
}

// Unbounded returns a Limit that never ends the sequence.
func Unbounded() Limit { return Limit{} }

// Count returns a Limit of n terms beyond the seed, so the Source emits
// n+1 elements in total.
func Count(n uint64) Limit { return Limit{n: n, bounded: true} }

// Bounded reports whether l ends the sequence.
func (l Limit) Bounded() bool { return l.bounded }

// N returns the number of terms beyond the seed. It is meaningless for an
// unbounded Limit.
func (l Limit) N() uint64 { return l.n }

// Source produces 1, 1, 2, 3, 5, ... one element per request.
type Source struct {
	*core.Emitter[*big.Int]

	state     State
	seeded    bool
	remaining uint64
	bounded   bool
}

// New creates a Source. No term is computed until the first Pull.
func New(limit Limit) *Source {
	s := &Source{
		state:     Seed(),
		remaining: limit.n,
		bounded:   limit.bounded,
	}
	s.Emitter = core.Emit("fibonacci", s.next, s.release)
	return s
}

func (s *Source) next() (*big.Int, bool, error) {
	if !s.seeded {
		s.seeded = true
		return big.NewInt(1), true, nil
	}
	if s.bounded {
		if s.remaining == 0 {
			return nil, false, nil
		}
		s.remaining--
	}
	s.state = s.state.Step()
	return s.state.Curr, true, nil
}

func (s *Source) release() {
	s.state = State{}
}

// Steps returns the number of production steps that emitted an element.
func (s *Source) Steps() uint64 {
	return s.Produced()
}

// State returns the termination state of the source.
func (s *Source) State() core.State {
	return s.Signal().State()
}
