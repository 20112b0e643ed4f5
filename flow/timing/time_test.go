package timing_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/lguimbarda/fibflow/flow"
	"github.com/lguimbarda/fibflow/flow/core"
	"github.com/lguimbarda/fibflow/flow/filter"
	"github.com/lguimbarda/fibflow/flow/sequence"
	"github.com/lguimbarda/fibflow/flow/timing"
)

func TestPace(t *testing.T) {
	ctx := context.Background()
	interval := 20 * time.Millisecond

	start := time.Now()
	got, err := flow.Slice(ctx, timing.Pace[int](interval).Apply(flow.Range(0, 4)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %v, want 4 elements", got)
	}
	// Three waits: the first element is not delayed.
	if elapsed := time.Since(start); elapsed < 3*interval {
		t.Errorf("elements arrived too fast: %v", elapsed)
	}
}

func TestPace_DoesNotProduceAhead(t *testing.T) {
	ctx := context.Background()
	src := sequence.New(sequence.Unbounded())
	s := timing.Pace[*big.Int](10 * time.Millisecond).Apply(src)

	for i := range 3 {
		if res := s.Pull(ctx); !res.IsValue() {
			t.Fatalf("pull %d: unexpected %+v", i, res)
		}
		if src.Steps() != uint64(i+1) {
			t.Errorf("after pull %d: source ran %d steps", i, src.Steps())
		}
	}
	_ = s.Close()
	if src.State() != core.Destroyed {
		t.Errorf("expected source destroyed, got %s", src.State())
	}
}

func TestPace_EndsWithoutWaiting(t *testing.T) {
	ctx := context.Background()
	s := timing.Pace[int](time.Hour).Apply(filter.Take[int](1).Apply(flow.Range(0, 10)))

	start := time.Now()
	if res := s.Pull(ctx); !res.IsValue() {
		t.Fatalf("unexpected %+v", res)
	}
	if res := s.Pull(ctx); !res.IsEndOfStream() {
		t.Fatalf("expected end-of-stream, got %+v", res)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("end-of-stream waited for the interval: %v", elapsed)
	}
}

func TestPace_CancelledWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := timing.Pace[int](time.Hour).Apply(flow.Range(0, 10))

	if res := s.Pull(ctx); !res.IsValue() {
		t.Fatalf("unexpected %+v", res)
	}
	cancel()
	res := s.Pull(ctx)
	if !errors.Is(res.Error(), context.Canceled) {
		t.Errorf("expected cancellation, got %+v", res)
	}
}

func TestDelayWhen(t *testing.T) {
	ctx := context.Background()
	s := timing.DelayWhen(func(v int) time.Duration {
		return time.Duration(v) * 10 * time.Millisecond
	}).Apply(flow.FromSlice([]int{0, 3, 0}))

	start := time.Now()
	got, err := flow.Slice(ctx, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %v", got)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("expected the delay chosen by 3, took %v", elapsed)
	}
}

func TestDelayWhen_Panic(t *testing.T) {
	s := timing.DelayWhen(func(int) time.Duration { panic("boom") }).Apply(flow.Once(1))

	_, err := flow.Slice(context.Background(), s)
	var p core.ErrPanic
	if !errors.As(err, &p) {
		t.Errorf("expected a recovered panic, got %v", err)
	}
}

func TestTimeout(t *testing.T) {
	ctx := context.Background()
	slow := timing.Pace[int](time.Hour).Apply(flow.Range(0, 10))
	s := timing.Timeout[int](20 * time.Millisecond).Apply(slow)

	if res := s.Pull(ctx); !res.IsValue() || res.Value() != 0 {
		t.Fatalf("unexpected first result %+v", res)
	}
	res := s.Pull(ctx)
	if !errors.Is(res.Error(), timing.ErrTimeout) {
		t.Fatalf("expected a timeout, got %+v", res)
	}
	if again := s.Pull(ctx); !errors.Is(again.Error(), timing.ErrTimeout) {
		t.Errorf("expected the timeout to be sticky, got %+v", again)
	}
}

func TestTimeout_FastUpstream(t *testing.T) {
	got, err := flow.Slice(context.Background(),
		timing.Timeout[*big.Int](time.Second).Apply(filter.Take[*big.Int](5).Apply(sequence.New(sequence.Unbounded()))))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 5 {
		t.Errorf("got %d elements, want 5", len(got))
	}
}

func TestStamped(t *testing.T) {
	before := time.Now()
	got, err := flow.Slice(context.Background(), timing.Stamped[int]().Apply(flow.Range(0, 3)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, item := range got {
		if item.Value != i || item.Time.Before(before) {
			t.Errorf("unexpected item %+v", item)
		}
	}
}

func TestElapsed(t *testing.T) {
	s := timing.Elapsed[int]().Apply(timing.Pace[int](15 * time.Millisecond).Apply(flow.Range(0, 3)))

	got, err := flow.Slice(context.Background(), s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %v", got)
	}
	if got[1].Interval < 15*time.Millisecond || got[2].Interval < 15*time.Millisecond {
		t.Errorf("unexpected intervals %v, %v", got[1].Interval, got[2].Interval)
	}
}
