// Package pagination follows paginated list endpoints to the end.
package pagination

import (
	"context"
	"errors"
	"fmt"

	"github.com/fivetwenty-io/healthtrack/internal/constants"
	"github.com/fivetwenty-io/healthtrack/pkg/healthtrack"
)

// Static errors for err113 compliance.
var (
	ErrPageNotAdvancing = errors.New("next page does not advance")
	ErrTooManyPages     = errors.New("too many pages")
)

// FetchFunc fetches one page.
type FetchFunc[S any] func(ctx context.Context, page, size int) (*healthtrack.Page[S], error)

type options struct {
	pageSize int
	maxPages int
	logger   healthtrack.Logger
}

// Option configures CollectAll.
type Option func(*options)

// WithPageSize sets the page size sent with every request.
func WithPageSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.pageSize = size
		}
	}
}

// WithMaxPages bounds the number of pages fetched.
func WithMaxPages(limit int) Option {
	return func(o *options) {
		if limit > 0 {
			o.maxPages = limit
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger healthtrack.Logger) Option {
	return func(o *options) {
		o.logger = healthtrack.LoggerOrNoop(logger)
	}
}

// CollectAll fetches pages one at a time, starting at page 1, and returns
// every item in server order. It stops when a page reports no next page. A
// page whose next page number does not move forward, or more than the page
// limit, ends the walk with a decoding failure. Any failure discards what
// was collected so far.
func CollectAll[S any](ctx context.Context, fetch FetchFunc[S], opts ...Option) ([]S, error) {
	cfg := options{
		pageSize: constants.DefaultPageSize,
		maxPages: constants.DefaultMaxPages,
		logger:   healthtrack.NoopLogger(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	items := make([]S, 0)
	page := constants.FirstPage

	for fetched := 0; ; fetched++ {
		if fetched >= cfg.maxPages {
			return nil, healthtrack.DecodingFailure(fmt.Errorf("%w: limit is %d", ErrTooManyPages, cfg.maxPages))
		}

		result, err := fetch(ctx, page, cfg.pageSize)
		if err != nil {
			cfg.logger.Debug("page fetch failed", map[string]interface{}{
				"page":  page,
				"error": err.Error(),
			})

			return nil, healthtrack.Classify(err)
		}

		if result == nil {
			return items, nil
		}

		items = append(items, result.List...)

		if !result.HasNextPage {
			return items, nil
		}

		if result.NextPage <= page {
			return nil, healthtrack.DecodingFailure(fmt.Errorf("%w: page %d points to %d", ErrPageNotAdvancing, page, result.NextPage))
		}

		page = result.NextPage
	}
}
