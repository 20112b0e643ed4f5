package core

import "context"

// Mapper is a 1:1 stage: each upstream element is transformed into exactly
// one downstream element. It implements Transformer.
// It answers the question: "What is done to each item in the flow?"
type Mapper[IN, OUT any] func(IN) (OUT, error)

// Map creates a Mapper from a transformation function.
// An error or panic in mapFunc is a TransformError: it is delivered
// downstream once, the upstream is closed, and the stage keeps answering
// with the same failure.
func Map[IN, OUT any](mapFunc func(IN) (OUT, error)) Mapper[IN, OUT] {
	return mapFunc
}

// Apply wraps s in the mapping stage.
func (m Mapper[IN, OUT]) Apply(s Stream[IN]) Stream[OUT] {
	return &mapStream[IN, OUT]{Link: NewLink(s), fn: m}
}

type mapStream[IN, OUT any] struct {
	Link[IN]
	fn Mapper[IN, OUT]
}

func (m *mapStream[IN, OUT]) Pull(ctx context.Context) Result[OUT] {
	res := m.Next(ctx)
	if !res.IsValue() {
		return Recast[OUT](res)
	}
	out, err := Protect("map", func() (OUT, error) {
		return m.fn(res.Value())
	})
	if err != nil {
		m.Fail(err)
		return Err[OUT](err)
	}
	return Ok(out)
}
