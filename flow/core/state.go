package core

import "sync"

// State is the termination state of a producer or stage.
type State int32

const (
	// Open accepts demand and produces one element per request.
	Open State = iota
	// ConsumerClosed means downstream stopped asking; upstream must stop.
	ConsumerClosed
	// ProducerExhausted means the producer has signaled end-of-stream.
	ProducerExhausted
	// Destroyed is terminal: state released, no further production.
	Destroyed
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case ConsumerClosed:
		return "consumer-closed"
	case ProducerExhausted:
		return "producer-exhausted"
	case Destroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Signal is the cooperative termination contract shared by the two ends of a
// link in the pipeline. Transitions:
//
//	Open -> ConsumerClosed    -> Destroyed
//	Open -> ProducerExhausted -> Destroyed
//	Open -> Destroyed             (failure teardown)
//
// Every other transition is ignored, which makes Destroy idempotent.
// The zero value is an Open signal.
//
// A Signal is the only piece of pipeline state that may be touched from
// outside the goroutine driving the pipeline, so it is mutex guarded.
type Signal struct {
	mu        sync.Mutex
	state     State
	cause     State
	observers []func(from, to State)
}

// State returns the current state.
func (s *Signal) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Cause returns the state the signal was in when it was destroyed:
// ConsumerClosed, ProducerExhausted, or Open for a failure teardown.
// It is Open while the signal has not been destroyed.
func (s *Signal) Cause() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cause
}

// Active reports whether the signal is still Open.
func (s *Signal) Active() bool {
	return s.State() == Open
}

// OnTransition registers an observer called synchronously after each
// transition, on the goroutine that caused it.
func (s *Signal) OnTransition(fn func(from, to State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// CloseConsumer moves Open to ConsumerClosed. It reports whether the
// transition happened.
func (s *Signal) CloseConsumer() bool {
	return s.move(ConsumerClosed, Open)
}

// Exhaust moves Open to ProducerExhausted. It reports whether the
// transition happened.
func (s *Signal) Exhaust() bool {
	return s.move(ProducerExhausted, Open)
}

// Destroy moves any non-destroyed state to Destroyed. Destroying a destroyed
// signal is a no-op and reports false.
func (s *Signal) Destroy() bool {
	return s.move(Destroyed, Open, ConsumerClosed, ProducerExhausted)
}

func (s *Signal) move(to State, from ...State) bool {
	s.mu.Lock()
	prev := s.state
	allowed := false
	for _, f := range from {
		if prev == f {
			allowed = true
			break
		}
	}
	if !allowed {
		s.mu.Unlock()
		return false
	}
	s.state = to
	if to == Destroyed {
		s.cause = prev
	}
	observers := s.observers
	s.mu.Unlock()

	for _, fn := range observers {
		fn(prev, to)
	}
	return true
}
