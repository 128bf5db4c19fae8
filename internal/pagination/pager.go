package pagination

import (
	"context"
	"errors"
	"slices"
	"sync"
)

// ErrStale is returned by a load whose response arrived after a newer load
// was issued. The pager state is left untouched.
var ErrStale = errors.New("pagination: response superseded by a newer load")

// FetchFunc loads one page.
type FetchFunc[T any] func(ctx context.Context, req Request) ([]T, error)

// Pager accumulates pages for an infinite list. Every load is stamped with
// a sequence number; only the latest issued load may update the list.
type Pager[T any] struct {
	fetch FetchFunc[T]
	limit int

	mu      sync.Mutex
	seq     uint64
	items   []T
	next    int
	hasMore bool
	loaded  bool
}

// NewPager returns an empty pager. limit <= 0 means DefaultLimit.
func NewPager[T any](fetch FetchFunc[T], limit int) *Pager[T] {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Pager[T]{fetch: fetch, limit: limit, next: 1, hasMore: true}
}

// Reload fetches page 1 and replaces the list.
func (p *Pager[T]) Reload(ctx context.Context) (Page[T], error) {
	return p.load(ctx, 1, true)
}

// LoadMore fetches the next page and appends it. Once a short page has been
// seen it returns an empty page without fetching.
func (p *Pager[T]) LoadMore(ctx context.Context) (Page[T], error) {
	p.mu.Lock()
	if p.loaded && !p.hasMore {
		page := Page[T]{Page: p.next, Limit: p.limit, HasMoreApproximate: true}
		p.mu.Unlock()
		return page, nil
	}
	next := p.next
	p.mu.Unlock()

	return p.load(ctx, next, next == 1)
}

func (p *Pager[T]) load(ctx context.Context, page int, replace bool) (Page[T], error) {
	req := Request{Page: page, Limit: p.limit}

	p.mu.Lock()
	p.seq++
	seq := p.seq
	p.mu.Unlock()

	items, err := p.fetch(ctx, req)

	p.mu.Lock()
	defer p.mu.Unlock()
	if seq != p.seq {
		return Page[T]{}, ErrStale
	}
	if err != nil {
		return Page[T]{}, err
	}

	result := FromItems(items, req)
	if replace {
		p.items = slices.Clone(items)
	} else {
		p.items = append(p.items, items...)
	}
	p.next = page + 1
	p.hasMore = result.HasMore
	p.loaded = true
	return result, nil
}

// Items returns a copy of everything loaded so far.
func (p *Pager[T]) Items() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.items)
}

// HasMore reports whether LoadMore may return more items.
func (p *Pager[T]) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasMore
}
