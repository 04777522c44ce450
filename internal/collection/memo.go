// Package collection provides an array-like facade over a live element count.
//
// Items are built lazily on first access and memoized for the lifetime of the
// Memo. The count is never cached: it is recomputed on every read.
package collection

import (
	"context"
	"iter"
	"sync"

	"github.com/RoaringBitmap/roaring/roaring64"
)

// CountFunc reports the current number of items.
type CountFunc func(ctx context.Context) (int, error)

// BuildFunc builds the item at index i.
type BuildFunc[T any] func(i int) (T, error)

// Memo is a lazily materialized, memoized sequence.
// A Memo must never be shared between two trees.
type Memo[T any] struct {
	mu    sync.Mutex
	count CountFunc
	build BuildFunc[T]
	items map[int]T
	built *roaring64.Bitmap // non-negative indices materialized so far
}

// New creates an empty memo.
func New[T any](count CountFunc, build BuildFunc[T]) *Memo[T] {
	return &Memo[T]{
		count: count,
		build: build,
		items: make(map[int]T),
		built: roaring64.New(),
	}
}

// Len returns the live item count.
func (m *Memo[T]) Len(ctx context.Context) (int, error) {
	return m.count(ctx)
}

// At returns the item at index i, building it on first access.
// Two calls with the same index return the identical item.
// Neither indices past the current count nor negative indices are an
// error; a negative index counts back from the end of the match set.
func (m *Memo[T]) At(i int) (T, error) {
	var zero T
	m.mu.Lock()
	defer m.mu.Unlock()

	if item, ok := m.items[i]; ok {
		return item, nil
	}
	item, err := m.build(i)
	if err != nil {
		return zero, err
	}
	m.items[i] = item
	if i >= 0 {
		m.built.Add(uint64(i))
	}
	return item, nil
}

// Materialized returns a snapshot of the non-negative indices built so far.
func (m *Memo[T]) Materialized() *roaring64.Bitmap {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.built.Clone()
}

// ToSlice materializes every current index once, in order.
func (m *Memo[T]) ToSlice(ctx context.Context) ([]T, error) {
	n, err := m.Len(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, n)
	for i := 0; i < n; i++ {
		item, err := m.At(i)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// ForEach calls fn for every current item, stopping at the first error.
func (m *Memo[T]) ForEach(ctx context.Context, fn func(i int, item T) error) error {
	items, err := m.ToSlice(ctx)
	if err != nil {
		return err
	}
	for i, item := range items {
		if err := fn(i, item); err != nil {
			return err
		}
	}
	return nil
}

// Filter returns the items for which keep reports true.
func (m *Memo[T]) Filter(ctx context.Context, keep func(item T) (bool, error)) ([]T, error) {
	var out []T
	err := m.ForEach(ctx, func(_ int, item T) error {
		ok, err := keep(item)
		if err != nil {
			return err
		}
		if ok {
			out = append(out, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// All iterates over the current items. A failure is yielded once as the
// error of the final pair and ends the iteration.
func (m *Memo[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		n, err := m.Len(ctx)
		if err != nil {
			yield(zero, err)
			return
		}
		for i := 0; i < n; i++ {
			item, err := m.At(i)
			if err != nil {
				yield(zero, err)
				return
			}
			if !yield(item, nil) {
				return
			}
		}
	}
}

// Map applies fn to every current item of m.
func Map[T, R any](ctx context.Context, m *Memo[T], fn func(item T) (R, error)) ([]R, error) {
	items, err := m.ToSlice(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]R, 0, len(items))
	for _, item := range items {
		r, err := fn(item)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
