// Package bridge turns a stream into a single awaited result. Each call moves
// through pending to exactly one of resolved or cancelled; whichever happens
// first wins and every later event is ignored.
package bridge

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/fivetwenty-io/healthtrack/internal/constants"
	"github.com/fivetwenty-io/healthtrack/internal/stream"
	"github.com/fivetwenty-io/healthtrack/pkg/healthtrack"
)

// ErrNoResponse is the cause of the transport failure returned when a stream
// completes without emitting a response.
var ErrNoResponse = errors.New("stream completed without a response")

// State is the lifecycle position of a call.
type State int32

// Call states.
const (
	StatePending State = iota
	StateResolved
	StateCancelled
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateResolved:
		return "resolved"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

type outcome[T any] struct {
	envelope *healthtrack.Envelope[T]
	err      error
}

// Pending is a started call awaiting its outcome.
type Pending[T any] struct {
	ctx     context.Context
	state   atomic.Int32
	results chan outcome[T]
	sub     *stream.Subscription

	awaitOnce sync.Once
	final     outcome[T]
}

// Start subscribes to publisher for descriptor and returns the pending call.
// The first emission is decoded as an Envelope[T] and resolves the call; a
// completion without an emission resolves it with the classified error.
func Start[T any](ctx context.Context, publisher stream.Publisher, descriptor healthtrack.Descriptor) *Pending[T] {
	pending := &Pending[T]{
		ctx:     ctx,
		results: make(chan outcome[T], 1),
	}

	pending.sub = publisher.Subscribe(ctx, descriptor, stream.SinkFuncs{
		OnNext: func(event stream.Event) {
			env, err := healthtrack.DecodeEnvelope[T](event.StatusCode, event.Body)
			pending.resolve(outcome[T]{envelope: env, err: err})
		},
		OnComplete: func(err error) {
			if err == nil {
				err = healthtrack.TransportFailure(constants.UnknownStatusCode, ErrNoResponse)
			}

			pending.resolve(outcome[T]{err: healthtrack.Classify(err)})
		},
	})

	return pending
}

// resolve delivers out if the call is still pending. The results channel has
// room for exactly the one winning outcome.
func (p *Pending[T]) resolve(out outcome[T]) {
	if p.state.CompareAndSwap(int32(StatePending), int32(StateResolved)) {
		p.results <- out
	}
}

func (p *Pending[T]) cancel() bool {
	return p.state.CompareAndSwap(int32(StatePending), int32(StateCancelled))
}

// State returns the current lifecycle state.
func (p *Pending[T]) State() State {
	return State(p.state.Load())
}

// Subscription returns the handle of the underlying stream.
func (p *Pending[T]) Subscription() *stream.Subscription {
	return p.sub
}

// Cancel releases the handle. A call still pending ends with
// healthtrack.ErrCancelled.
func (p *Pending[T]) Cancel() {
	p.sub.Release()
}

// Await blocks until the call resolves, its context ends, or its handle is
// released. The handle is always released on return. Repeated calls return
// the same outcome.
func (p *Pending[T]) Await() (*healthtrack.Envelope[T], error) {
	p.awaitOnce.Do(func() {
		defer p.sub.Release()

		p.final = p.wait()
	})

	return p.final.envelope, p.final.err
}

func (p *Pending[T]) wait() outcome[T] {
	select {
	case out := <-p.results:
		return out
	case <-p.ctx.Done():
		if p.cancel() {
			return outcome[T]{err: healthtrack.Classify(p.ctx.Err())}
		}
	case <-p.sub.Done():
		if p.cancel() {
			return outcome[T]{err: healthtrack.ErrCancelled}
		}
	}

	// Resolution won the race; its outcome is already buffered.
	return <-p.results
}

// Call runs descriptor on publisher and waits for the envelope.
func Call[T any](ctx context.Context, publisher stream.Publisher, descriptor healthtrack.Descriptor) (*healthtrack.Envelope[T], error) {
	return Start[T](ctx, publisher, descriptor).Await()
}

// Data runs descriptor and returns its payload. A successful envelope without
// data is a decoding failure.
func Data[T any](ctx context.Context, publisher stream.Publisher, descriptor healthtrack.Descriptor) (T, error) {
	env, err := Call[T](ctx, publisher, descriptor)
	if err != nil {
		var zero T

		return zero, err
	}

	return healthtrack.RequireData(env)
}

// DataOrEmpty runs descriptor and returns its payload, or the zero value when
// a successful envelope carries no data.
func DataOrEmpty[T any](ctx context.Context, publisher stream.Publisher, descriptor healthtrack.Descriptor) (T, error) {
	env, err := Call[T](ctx, publisher, descriptor)
	if err != nil {
		var zero T

		return zero, err
	}

	return healthtrack.DataOrZero(env), nil
}
