package m2m

import (
	"context"

	"github.com/airbusgeo/m2m-client/service/log"
	"go.uber.org/zap"
)

// Page is one page of a paginated result.
// The pagination cursor is held by the query the page is bound to.
type Page[T any] struct {
	Binding
	Results         []T
	RecordsReturned int
	TotalHits       int
	NumExcluded     int
	StartingNumber  int
	NextRecord      int
}

// Len returns the number of items of the page
func (p *Page[T]) Len() int {
	return len(p.Results)
}

// At returns the i-th item of the page
func (p *Page[T]) At(i int) *T {
	return &p.Results[i]
}

// Exhausted returns true if there is no page after this one
func (p *Page[T]) Exhausted() bool {
	pq, ok := p.query.(paginated)
	return !ok || p.TotalHits <= pq.cursor().StartingNumber
}

// Next advances the cursor of the query and fetches the next page.
// Once the pagination is exhausted, it returns an empty page without any request.
// Pages are never merged: the caller accumulates the items if needed.
func (p *Page[T]) Next(ctx context.Context) (*Page[T], error) {
	if p.Exhausted() {
		return &Page[T]{Binding: p.Binding, TotalHits: p.TotalHits}, nil
	}
	q, ok := p.query.(Query[T])
	if !ok || p.client == nil {
		return nil, configError("page is not bound to a paginated query")
	}
	cur := p.query.(paginated).cursor()
	cur.StartingNumber += cur.MaxResults
	log.Logger(ctx).Debug("fetching next page", zap.String("endpoint", q.Endpoint()), zap.Int("startingNumber", cur.StartingNumber), zap.Int("totalHits", p.TotalHits))
	return FetchPage(ctx, p.client, q)
}

type downloadable interface {
	Downloadable() bool
}

// Downloadable returns the items of the current page available for bulk download
func (p *Page[T]) Downloadable() []T {
	var items []T
	for i := range p.Results {
		if d, ok := any(&p.Results[i]).(downloadable); ok && d.Downloadable() {
			items = append(items, p.Results[i])
		}
	}
	return items
}
