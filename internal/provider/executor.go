package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	hthttp "github.com/fivetwenty-io/healthtrack/internal/http"
	"github.com/fivetwenty-io/healthtrack/internal/stream"
	"github.com/fivetwenty-io/healthtrack/pkg/healthtrack"
)

// Executor sends the requests of one audience over the shared session. Its
// configuration is fixed at construction.
type Executor struct {
	id       string
	audience healthtrack.Audience
	epoch    uint64
	timeout  time.Duration
	session  *hthttp.Client
	chain    *healthtrack.InterceptorChain
}

// ID identifies the executor instance.
func (e *Executor) ID() string {
	return e.id
}

// Audience returns the audience the executor serves.
func (e *Executor) Audience() healthtrack.Audience {
	return e.audience
}

// Epoch returns the credential epoch the executor was built in.
func (e *Executor) Epoch() uint64 {
	return e.epoch
}

// Timeout returns the per-call timeout.
func (e *Executor) Timeout() time.Duration {
	return e.timeout
}

// Subscribe starts the request described by descriptor. It implements
// stream.Publisher.
func (e *Executor) Subscribe(ctx context.Context, descriptor healthtrack.Descriptor, sink stream.Sink) *stream.Subscription {
	return stream.Start(ctx, func(ctx context.Context, emit func(stream.Event)) error {
		return e.execute(ctx, descriptor, emit)
	}, sink)
}

func (e *Executor) execute(ctx context.Context, descriptor healthtrack.Descriptor, emit func(stream.Event)) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	err := descriptor.Validate()
	if err != nil {
		return err
	}

	req, err := healthtrack.NewRequest(descriptor)
	if err != nil {
		return err
	}

	err = e.chain.ExecuteRequestInterceptors(ctx, req)
	if err != nil {
		return err
	}

	resp, doErr := e.session.Do(ctx, &hthttp.Request{
		Method:  req.Method,
		BaseURL: req.BaseURL,
		Path:    req.Path,
		Query:   req.Query,
		Body:    rawBody(req.Body),
		Headers: flattenHeaders(req),
	})

	intercepted := &healthtrack.Response{Error: doErr}
	if resp != nil {
		intercepted.StatusCode = resp.StatusCode
		intercepted.Headers = resp.Headers
		intercepted.Body = resp.Body
	}

	err = e.chain.ExecuteResponseInterceptors(ctx, req, intercepted)
	if err != nil {
		return err
	}

	if doErr != nil {
		return fmt.Errorf("%s: %w", descriptor.Name, doErr)
	}

	emit(stream.Event{
		StatusCode: intercepted.StatusCode,
		Header:     intercepted.Headers,
		Body:       intercepted.Body,
	})

	return nil
}

func rawBody(body []byte) interface{} {
	if body == nil {
		return nil
	}

	return body
}

func flattenHeaders(req *healthtrack.Request) map[string]string {
	headers := make(map[string]string, len(req.Headers))
	for key, values := range req.Headers {
		headers[key] = strings.Join(values, ", ")
	}

	return headers
}
