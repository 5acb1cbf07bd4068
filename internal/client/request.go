package client

import (
	"context"

	"github.com/fivetwenty-io/healthtrack/internal/bridge"
	"github.com/fivetwenty-io/healthtrack/internal/pagination"
	"github.com/fivetwenty-io/healthtrack/pkg/healthtrack"
)

// PageDescriptor builds the descriptor of one page.
type PageDescriptor func(page, size int) healthtrack.Descriptor

// Envelope runs descriptor and returns the decoded envelope.
func Envelope[T any](ctx context.Context, c *Client, descriptor healthtrack.Descriptor) (*healthtrack.Envelope[T], error) {
	executor, err := c.manager.ExecutorFor(ctx, descriptor.Audience)
	if err != nil {
		return nil, healthtrack.Classify(err)
	}

	return bridge.Call[T](ctx, executor, descriptor)
}

// Request runs descriptor and returns its data payload. An absent payload is
// a decoding failure.
func Request[T any](ctx context.Context, c *Client, descriptor healthtrack.Descriptor) (T, error) {
	executor, err := c.manager.ExecutorFor(ctx, descriptor.Audience)
	if err != nil {
		var zero T

		return zero, healthtrack.Classify(err)
	}

	return bridge.Data[T](ctx, executor, descriptor)
}

// RequestOrEmpty is Request with an absent payload read as the zero value.
func RequestOrEmpty[T any](ctx context.Context, c *Client, descriptor healthtrack.Descriptor) (T, error) {
	executor, err := c.manager.ExecutorFor(ctx, descriptor.Audience)
	if err != nil {
		var zero T

		return zero, healthtrack.Classify(err)
	}

	return bridge.DataOrEmpty[T](ctx, executor, descriptor)
}

// RequestAll follows every page produced by pageOf using the client's page
// size and page limit.
func RequestAll[S any](ctx context.Context, c *Client, pageOf PageDescriptor) ([]S, error) {
	fetch := func(ctx context.Context, page, size int) (*healthtrack.Page[S], error) {
		result, err := Request[healthtrack.Page[S]](ctx, c, pageOf(page, size))
		if err != nil {
			return nil, err
		}

		return &result, nil
	}

	return pagination.CollectAll(ctx, fetch,
		pagination.WithPageSize(c.pageSize),
		pagination.WithMaxPages(c.maxPages),
		pagination.WithLogger(c.logger),
	)
}
