// Package stream provides the event-producing primitive calls run on: an
// operation started on its own goroutine, a sink receiving its emissions, and
// a subscription handle that cancels it.
package stream

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/fivetwenty-io/healthtrack/pkg/healthtrack"
)

// Event is one emission of a request stream: a raw response.
type Event struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Sink receives the emissions of one stream. Next may be called any number of
// times before Complete; Complete is called at most once, with nil when the
// stream finished normally.
type Sink interface {
	Next(event Event)
	Complete(err error)
}

// SinkFuncs adapts a pair of functions to Sink. Nil fields are skipped.
type SinkFuncs struct {
	OnNext     func(event Event)
	OnComplete func(err error)
}

// Next implements Sink.
func (s SinkFuncs) Next(event Event) {
	if s.OnNext != nil {
		s.OnNext(event)
	}
}

// Complete implements Sink.
func (s SinkFuncs) Complete(err error) {
	if s.OnComplete != nil {
		s.OnComplete(err)
	}
}

// Publisher starts a stream for a descriptor. Nothing is sent before
// Subscribe is called.
type Publisher interface {
	Subscribe(ctx context.Context, descriptor healthtrack.Descriptor, sink Sink) *Subscription
}

// Subscription is the cancellation handle of one running stream. It moves
// from active to released exactly once.
type Subscription struct {
	cancel    context.CancelFunc
	released  atomic.Bool
	done      chan struct{}
	onRelease []func()
	once      sync.Once
}

// NewSubscription returns an active handle. cancel, when not nil, runs on
// release, followed by the hooks in order.
func NewSubscription(cancel context.CancelFunc, onRelease ...func()) *Subscription {
	return &Subscription{
		cancel:    cancel,
		done:      make(chan struct{}),
		onRelease: onRelease,
	}
}

// Release cancels the stream. Only the first call has an effect; it reports
// whether this call was the one that released the handle.
func (s *Subscription) Release() bool {
	released := false

	s.once.Do(func() {
		released = true
		s.released.Store(true)

		if s.cancel != nil {
			s.cancel()
		}

		close(s.done)

		for _, hook := range s.onRelease {
			hook()
		}
	})

	return released
}

// Released reports whether the handle has been released.
func (s *Subscription) Released() bool {
	return s.released.Load()
}

// Done is closed once the handle is released.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Operation produces the events of one stream. It must stop when ctx is done.
type Operation func(ctx context.Context, emit func(Event)) error

// Start runs op on its own goroutine and returns its handle. Events and the
// completion are delivered to sink until the handle is released; after the
// completion has been delivered the handle is released automatically.
func Start(ctx context.Context, op Operation, sink Sink, onRelease ...func()) *Subscription {
	opCtx, cancel := context.WithCancel(ctx)
	sub := NewSubscription(cancel, onRelease...)

	go func() {
		defer sub.Release()

		err := op(opCtx, func(event Event) {
			if !sub.Released() {
				sink.Next(event)
			}
		})

		if !sub.Released() {
			sink.Complete(err)
		}
	}()

	return sub
}
