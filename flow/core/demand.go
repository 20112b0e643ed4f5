package core

import "fmt"

// Demand is the backpressure counter between a consumer and a producer.
// A consumer Requests one element; the producer Acquires the token before it
// computes anything and does nothing while no token is pending. At most one
// token can be outstanding, so a producer can never run ahead of its
// consumer.
//
// The zero value is ready to use. Demand is not safe for concurrent use; it
// belongs to the goroutine driving the pipeline.
type Demand struct {
	pending   int
	served    uint64
	highWater int
}

// Request issues one demand token. It fails with ErrProtocolViolation if a
// token is already outstanding.
func (d *Demand) Request() error {
	if d.pending > 0 {
		return fmt.Errorf("%w: %d request(s) already outstanding", ErrProtocolViolation, d.pending)
	}
	d.pending++
	if d.pending > d.highWater {
		d.highWater = d.pending
	}
	return nil
}

// Acquire consumes the outstanding token. It reports false when there is no
// demand, in which case the producer must stay idle.
func (d *Demand) Acquire() bool {
	if d.pending == 0 {
		return false
	}
	d.pending--
	d.served++
	return true
}

// Pending reports whether a token is outstanding.
func (d *Demand) Pending() bool { return d.pending > 0 }

// Cancel drops an outstanding token without serving it.
func (d *Demand) Cancel() { d.pending = 0 }

// Served returns how many tokens have been acquired.
func (d *Demand) Served() uint64 { return d.served }

// HighWater returns the largest number of tokens ever outstanding at once.
func (d *Demand) HighWater() int { return d.highWater }
