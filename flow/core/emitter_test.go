package core

import (
	"context"
	"errors"
	"testing"
)

// fromSlice builds a producer over items for tests.
func fromSlice[T any](items []T) *Emitter[T] {
	i := 0
	return Emit("slice", func() (T, bool, error) {
		if i >= len(items) {
			var zero T
			return zero, false, nil
		}
		v := items[i]
		i++
		return v, true, nil
	}, nil)
}

func TestEmitter_ProducesOnDemand(t *testing.T) {
	ctx := context.Background()
	calls := 0
	e := Emit("counter", func() (int, bool, error) {
		calls++
		return calls, calls <= 3, nil
	}, nil)

	if calls != 0 {
		t.Fatalf("step ran %d times before any demand", calls)
	}

	for want := 1; want <= 3; want++ {
		res := e.Pull(ctx)
		if !res.IsValue() || res.Value() != want {
			t.Fatalf("Pull() = %+v, want %d", res, want)
		}
		if calls != want {
			t.Fatalf("step ran %d times after %d pulls", calls, want)
		}
	}

	if res := e.Pull(ctx); !res.IsEndOfStream() {
		t.Fatalf("Pull() = %+v, want end of stream", res)
	}
	if got := e.Signal().State(); got != Destroyed {
		t.Errorf("state = %s, want %s", got, Destroyed)
	}
	if got := e.Signal().Cause(); got != ProducerExhausted {
		t.Errorf("cause = %s, want %s", got, ProducerExhausted)
	}
	if got := e.Produced(); got != 3 {
		t.Errorf("Produced() = %d, want 3", got)
	}
	if got := e.Demand().HighWater(); got != 1 {
		t.Errorf("demand high water = %d, want 1", got)
	}
}

func TestEmitter_ContractViolationIsConsistent(t *testing.T) {
	ctx := context.Background()
	e := fromSlice([]int{1})
	_ = e.Pull(ctx)
	_ = e.Pull(ctx) // end of stream

	for i := 0; i < 3; i++ {
		if res := e.Pull(ctx); !errors.Is(res.Error(), ErrContractViolation) {
			t.Fatalf("pull %d after end = %+v, want %v", i, res, ErrContractViolation)
		}
		if res := e.ProduceNext(); !errors.Is(res.Error(), ErrContractViolation) {
			t.Fatalf("produce %d after end = %+v, want %v", i, res, ErrContractViolation)
		}
	}
}

func TestEmitter_ProduceWithoutDemand(t *testing.T) {
	e := fromSlice([]int{1, 2})
	if res := e.ProduceNext(); !errors.Is(res.Error(), ErrProtocolViolation) {
		t.Fatalf("ProduceNext() without demand = %+v, want %v", res, ErrProtocolViolation)
	}
	if got := e.Produced(); got != 0 {
		t.Errorf("Produced() = %d, want 0", got)
	}
}

func TestEmitter_CloseReleasesOnce(t *testing.T) {
	released := 0
	e := Emit("ones", func() (int, bool, error) { return 1, true, nil }, func() { released++ })

	_ = e.Pull(context.Background())
	if err := e.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	if released != 1 {
		t.Errorf("release ran %d times, want 1", released)
	}
	if got := e.Signal().Cause(); got != ConsumerClosed {
		t.Errorf("cause = %s, want %s", got, ConsumerClosed)
	}
	if res := e.Pull(context.Background()); !errors.Is(res.Error(), ErrContractViolation) {
		t.Errorf("Pull() after Close = %+v, want %v", res, ErrContractViolation)
	}
}

func TestEmitter_StepFailure(t *testing.T) {
	boom := errors.New("boom")
	e := Emit("failing", func() (int, bool, error) { return 0, false, boom }, nil)

	res := e.Pull(context.Background())
	var te *TransformError
	if !errors.As(res.Error(), &te) || !errors.Is(res.Error(), boom) {
		t.Fatalf("Pull() = %+v, want TransformError wrapping %v", res, boom)
	}
	if got := e.Signal().State(); got != Destroyed {
		t.Errorf("state = %s, want %s", got, Destroyed)
	}
}

func TestEmitter_StepPanic(t *testing.T) {
	e := Emit("panicky", func() (int, bool, error) { panic("kaboom") }, nil)

	res := e.Pull(context.Background())
	var p ErrPanic
	if !errors.As(res.Error(), &p) || p.Value != "kaboom" {
		t.Fatalf("Pull() = %+v, want ErrPanic(kaboom)", res)
	}
}

func TestEmitter_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := fromSlice([]int{1})
	if res := e.Pull(ctx); !errors.Is(res.Error(), context.Canceled) {
		t.Fatalf("Pull() = %+v, want %v", res, context.Canceled)
	}
	if got := e.Produced(); got != 0 {
		t.Errorf("Produced() = %d, want 0", got)
	}
}
