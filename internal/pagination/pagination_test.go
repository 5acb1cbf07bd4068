package pagination_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/healthtrack/internal/pagination"
	"github.com/fivetwenty-io/healthtrack/pkg/healthtrack"
)

var errOffline = errors.New("offline")

type call struct {
	page int
	size int
}

// pagesFetcher serves pages keyed by page number and records every request.
type pagesFetcher struct {
	pages map[int]*healthtrack.Page[string]
	fail  map[int]error
	calls []call
}

func (f *pagesFetcher) fetch(ctx context.Context, page, size int) (*healthtrack.Page[string], error) {
	f.calls = append(f.calls, call{page: page, size: size})

	if err, ok := f.fail[page]; ok {
		return nil, err
	}

	return f.pages[page], nil
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestCollectAll(t *testing.T) {
	t.Parallel()

	t.Run("follows pages in order", func(t *testing.T) {
		t.Parallel()

		fetcher := &pagesFetcher{pages: map[int]*healthtrack.Page[string]{
			1: {HasNextPage: true, List: []string{"a", "b"}, NextPage: 2, Total: 5},
			2: {HasNextPage: true, List: []string{"c", "d"}, NextPage: 3, Total: 5},
			3: {HasNextPage: false, List: []string{"e"}, NextPage: 3, Total: 5},
		}}

		items, err := pagination.CollectAll(context.Background(), fetcher.fetch)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c", "d", "e"}, items)
		assert.Equal(t, []call{{1, 50}, {2, 50}, {3, 50}}, fetcher.calls)
	})

	t.Run("single empty page", func(t *testing.T) {
		t.Parallel()

		fetcher := &pagesFetcher{pages: map[int]*healthtrack.Page[string]{
			1: {HasNextPage: false, List: []string{}},
		}}

		items, err := pagination.CollectAll(context.Background(), fetcher.fetch)
		require.NoError(t, err)
		assert.NotNil(t, items)
		assert.Empty(t, items)
		assert.Len(t, fetcher.calls, 1)
	})

	t.Run("absent page ends the walk", func(t *testing.T) {
		t.Parallel()

		fetcher := &pagesFetcher{pages: map[int]*healthtrack.Page[string]{
			1: {HasNextPage: true, List: []string{"a"}, NextPage: 2},
		}}

		items, err := pagination.CollectAll(context.Background(), fetcher.fetch)
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, items)
	})

	t.Run("custom page size", func(t *testing.T) {
		t.Parallel()

		fetcher := &pagesFetcher{pages: map[int]*healthtrack.Page[string]{
			1: {List: []string{"a"}},
		}}

		_, err := pagination.CollectAll(context.Background(), fetcher.fetch, pagination.WithPageSize(10))
		require.NoError(t, err)
		assert.Equal(t, []call{{1, 10}}, fetcher.calls)
	})

	t.Run("failure discards partial results", func(t *testing.T) {
		t.Parallel()

		business := healthtrack.BusinessFailure(5001, nil)
		fetcher := &pagesFetcher{
			pages: map[int]*healthtrack.Page[string]{
				1: {HasNextPage: true, List: []string{"a"}, NextPage: 2},
			},
			fail: map[int]error{2: business},
		}

		items, err := pagination.CollectAll(context.Background(), fetcher.fetch)
		assert.Nil(t, items)
		require.Error(t, err)
		assert.Same(t, business, err)
		assert.Len(t, fetcher.calls, 2)
	})

	t.Run("unclassified failure is classified", func(t *testing.T) {
		t.Parallel()

		fetcher := &pagesFetcher{fail: map[int]error{1: errOffline}}

		_, err := pagination.CollectAll(context.Background(), fetcher.fetch)
		assert.True(t, healthtrack.IsTransport(err))
		assert.ErrorIs(t, err, errOffline)
	})

	t.Run("next page equal to current aborts", func(t *testing.T) {
		t.Parallel()

		fetcher := &pagesFetcher{pages: map[int]*healthtrack.Page[string]{
			1: {HasNextPage: true, List: []string{"a"}, NextPage: 2},
			2: {HasNextPage: true, List: []string{"b"}, NextPage: 2},
		}}

		items, err := pagination.CollectAll(context.Background(), fetcher.fetch)
		assert.Nil(t, items)
		assert.True(t, healthtrack.IsDecoding(err))
		assert.ErrorIs(t, err, pagination.ErrPageNotAdvancing)
		assert.Len(t, fetcher.calls, 2)
	})

	t.Run("next page going backwards aborts", func(t *testing.T) {
		t.Parallel()

		fetcher := &pagesFetcher{pages: map[int]*healthtrack.Page[string]{
			1: {HasNextPage: true, List: []string{"a"}, NextPage: 0},
		}}

		_, err := pagination.CollectAll(context.Background(), fetcher.fetch)
		assert.ErrorIs(t, err, pagination.ErrPageNotAdvancing)
	})

	t.Run("page limit aborts", func(t *testing.T) {
		t.Parallel()

		fetcher := &pagesFetcher{pages: map[int]*healthtrack.Page[string]{}}

		for i := 1; i <= 5; i++ {
			fetcher.pages[i] = &healthtrack.Page[string]{HasNextPage: true, List: []string{"x"}, NextPage: i + 1}
		}

		_, err := pagination.CollectAll(context.Background(), fetcher.fetch, pagination.WithMaxPages(3))
		assert.True(t, healthtrack.IsDecoding(err))
		assert.ErrorIs(t, err, pagination.ErrTooManyPages)
		assert.Len(t, fetcher.calls, 3)
	})

	t.Run("skipped page numbers are followed", func(t *testing.T) {
		t.Parallel()

		fetcher := &pagesFetcher{pages: map[int]*healthtrack.Page[string]{
			1: {HasNextPage: true, List: []string{"a"}, NextPage: 4},
			4: {HasNextPage: false, List: []string{"b"}},
		}}

		items, err := pagination.CollectAll(context.Background(), fetcher.fetch)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, items)
		assert.Equal(t, []call{{1, 50}, {4, 50}}, fetcher.calls)
	})
}
