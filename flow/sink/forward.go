package sink

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/lguimbarda/fibflow/flow/core"
)

// Report describes how a forwarding run ended.
type Report struct {
	// Delivered counts elements fully written to the destination.
	Delivered uint64
	// Outcome is ProducerExhausted when the stream ended, ConsumerClosed when
	// the destination went away, and Open when the run failed.
	Outcome core.State
}

// Forwarder writes every element of a stream to a destination, one line per
// element, asking for the next element only after the previous one has been
// written.
type Forwarder[T any] struct {
	dest      *Destination
	format    func(T) string
	signal    core.Signal
	delivered uint64
}

// NewForwarder creates a Forwarder writing format(v) followed by a newline
// to w for every element v.
func NewForwarder[T any](w io.Writer, format func(T) string) *Forwarder[T] {
	dest, ok := w.(*Destination)
	if !ok {
		dest = Watch(w)
	}
	f := &Forwarder[T]{dest: dest, format: format}
	dest.OnClose(func(error) {
		f.signal.CloseConsumer()
	})
	return f
}

// Signal exposes the forwarder's termination state.
func (f *Forwarder[T]) Signal() *core.Signal { return &f.signal }

// Run drives in until it ends, fails, or the destination closes. A closed
// destination is a normal outcome: upstream is closed and Run returns a
// Report without an error. Write failures of any other kind, and upstream
// failures, are returned after the pipeline has been torn down.
func (f *Forwarder[T]) Run(ctx context.Context, in core.Stream[T]) (Report, error) {
	log := zerolog.Ctx(ctx)
	defer in.Close()

	for f.signal.Active() {
		res := in.Pull(ctx)
		switch {
		case res.IsValue():
			if err := f.write(res.Value()); err != nil {
				if !f.signal.Active() {
					log.Debug().Err(err).Uint64("delivered", f.delivered).Msg("destination closed")
					break
				}
				f.signal.Destroy()
				return f.report(), err
			}
			f.delivered++
		case res.IsError():
			f.signal.Destroy()
			return f.report(), res.Error()
		case res.IsEndOfStream():
			f.signal.Exhaust()
		}
	}

	f.signal.Destroy()
	if f.signal.Cause() == core.ProducerExhausted {
		log.Debug().Uint64("delivered", f.delivered).Msg("stream forwarded")
	}
	return f.report(), nil
}

func (f *Forwarder[T]) write(v T) error {
	_, err := io.WriteString(f.dest, f.format(v)+"\n")
	return err
}

func (f *Forwarder[T]) report() Report {
	return Report{Delivered: f.delivered, Outcome: f.signal.Cause()}
}

// Forward writes every element of in to w using format. It is shorthand for
// NewForwarder(w, format).Run(ctx, in).
func Forward[T any](ctx context.Context, in core.Stream[T], w io.Writer, format func(T) string) (Report, error) {
	return NewForwarder(w, format).Run(ctx, in)
}
