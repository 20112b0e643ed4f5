package core

import (
	"context"
	"errors"
	"testing"
)

func TestSlice(t *testing.T) {
	tests := []struct {
		name    string
		input   []int
		want    []int
		wantErr bool
	}{
		{name: "collects all", input: []int{1, 2, 3}, want: []int{1, 2, 3}},
		{name: "empty", input: []int{}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Slice(context.Background(), Stream[int](fromSlice(tt.input)))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Slice() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got[%d] = %d, want %d", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSlice_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := Emit("naturals", func() (int, bool, error) { return 1, true, nil }, nil)

	pulled := 0
	stream := Map(func(n int) (int, error) {
		pulled++
		if pulled == 3 {
			cancel()
		}
		return n, nil
	}).Apply(src)

	_, err := Slice(ctx, stream)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Slice() error = %v, want %v", err, context.Canceled)
	}
	if got := src.Signal().State(); got != Destroyed {
		t.Errorf("source state = %s, want %s", got, Destroyed)
	}
}

func TestFirst(t *testing.T) {
	src := fromSlice([]int{7, 8, 9})
	v, err := First(context.Background(), Stream[int](src))
	if err != nil {
		t.Fatal(err)
	}
	if v != 7 {
		t.Errorf("First() = %d, want 7", v)
	}
	if got := src.Produced(); got != 1 {
		t.Errorf("source produced %d, want 1", got)
	}
	if got := src.Signal().Cause(); got != ConsumerClosed {
		t.Errorf("source cause = %s, want %s", got, ConsumerClosed)
	}
}

func TestFirst_Empty(t *testing.T) {
	_, err := First(context.Background(), Stream[int](fromSlice([]int{})))
	if !errors.Is(err, ErrEmptyStream) {
		t.Errorf("First() error = %v, want %v", err, ErrEmptyStream)
	}
}

func TestRun(t *testing.T) {
	seen := 0
	stream := Map(func(n int) (int, error) {
		seen++
		return n, nil
	}).Apply(fromSlice([]int{1, 2, 3}))

	if err := Run(context.Background(), stream); err != nil {
		t.Fatal(err)
	}
	if seen != 3 {
		t.Errorf("side effect ran %d times, want 3", seen)
	}
}

func TestDrain_CallbackErrorCloses(t *testing.T) {
	stop := errors.New("stop here")
	src := fromSlice([]int{1, 2, 3})

	err := Drain(context.Background(), Stream[int](src), func(n int) error {
		if n == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Fatalf("Drain() error = %v, want %v", err, stop)
	}
	if got := src.Signal().State(); got != Destroyed {
		t.Errorf("source state = %s, want %s", got, Destroyed)
	}
	if got := src.Produced(); got != 2 {
		t.Errorf("source produced %d, want 2", got)
	}
}
