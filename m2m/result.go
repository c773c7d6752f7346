package m2m

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Result is the decoded response of a query, tagged by its Shape:
// Items is set for ShapeList, Page for ShapePage and Record for ShapeRecord.
type Result[T any] struct {
	Shape  Shape
	Items  []T
	Page   *Page[T]
	Record *T
}

// All returns the items of the result, whatever its shape
func (r *Result[T]) All() []T {
	switch r.Shape {
	case ShapePage:
		if r.Page != nil {
			return r.Page.Results
		}
	case ShapeRecord:
		if r.Record != nil {
			return []T{*r.Record}
		}
	default:
		return r.Items
	}
	return nil
}

// Len returns the number of items of the result
func (r *Result[T]) Len() int {
	return len(r.All())
}

// Fetch executes the query and decodes the response according to the shape declared by the query
func Fetch[T any](ctx context.Context, c *Client, q Query[T]) (*Result[T], error) {
	if c == nil {
		return nil, configError("no client to execute %s", q.Endpoint())
	}
	data, err := c.Do(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("Fetch.%w", err)
	}
	url, _ := EndpointURL(c.BaseURL(), q.Endpoint())
	res, err := decode(data, c, q)
	if err != nil {
		return nil, newError(KindDecode, url, "", "", err)
	}
	return res, nil
}

// FetchOne executes the query and returns one entity: the first item of a list or a page, or the record.
// It returns ErrNotFound if there is no item.
// Use FetchPage to get the page itself of a paginated query.
func FetchOne[T any](ctx context.Context, c *Client, q Query[T]) (*T, error) {
	res, err := Fetch(ctx, c, q)
	if err != nil {
		return nil, err
	}
	if res.Shape == ShapeRecord && res.Record != nil {
		return res.Record, nil
	}
	items := res.All()
	if len(items) == 0 {
		return nil, fmt.Errorf("FetchOne(%s): %w", q.Endpoint(), ErrNotFound)
	}
	return &items[0], nil
}

// FetchPage executes a paginated query and returns the page
func FetchPage[T any](ctx context.Context, c *Client, q Query[T]) (*Page[T], error) {
	if q.Shape() != ShapePage {
		return nil, configError("%s is not paginated", q.Endpoint())
	}
	res, err := Fetch(ctx, c, q)
	if err != nil {
		return nil, err
	}
	return res.Page, nil
}

func isNull(data json.RawMessage) bool {
	data = bytes.TrimSpace(data)
	return len(data) == 0 || bytes.Equal(data, []byte("null"))
}

func checkKind(data json.RawMessage, shape Shape) error {
	want := byte('{')
	if shape == ShapeList {
		want = '['
	}
	if data = bytes.TrimSpace(data); data[0] != want {
		return fmt.Errorf("expecting a %s, got %.20q", shape, data)
	}
	return nil
}

func decode[T any](data json.RawMessage, c *Client, q Query[T]) (*Result[T], error) {
	shape := q.Shape()
	res := &Result[T]{Shape: shape}
	if isNull(data) {
		if shape == ShapePage {
			res.Page = &Page[T]{}
			res.Page.bind(c, q)
		}
		return res, nil
	}
	if err := checkKind(data, shape); err != nil {
		return nil, err
	}

	switch shape {
	case ShapeList:
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		items, err := decodeItems[T](raw, c, q)
		if err != nil {
			return nil, err
		}
		res.Items = items
	case ShapePage:
		page, err := decodePage[T](data, c, q)
		if err != nil {
			return nil, err
		}
		res.Page = page
	default:
		var record T
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		bind(&record, c, q)
		res.Record = &record
	}
	return res, nil
}

func decodeItems[T any](raw []json.RawMessage, c *Client, q Request) ([]T, error) {
	items := make([]T, len(raw))
	for i, r := range raw {
		if err := json.Unmarshal(r, &items[i]); err != nil {
			return nil, fmt.Errorf("decode item %d: %w", i, err)
		}
		bind(&items[i], c, q)
	}
	return items, nil
}

type pageJSON struct {
	Results         []json.RawMessage `json:"results"`
	RecordsReturned int               `json:"recordsReturned"`
	TotalHits       int               `json:"totalHits"`
	NumExcluded     int               `json:"numExcluded"`
	StartingNumber  int               `json:"startingNumber"`
	NextRecord      int               `json:"nextRecord"`
}

// decodePage decodes the items before building the page
func decodePage[T any](data json.RawMessage, c *Client, q Request) (*Page[T], error) {
	var raw pageJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	items, err := decodeItems[T](raw.Results, c, q)
	if err != nil {
		return nil, err
	}
	page := &Page[T]{
		Results:         items,
		RecordsReturned: raw.RecordsReturned,
		TotalHits:       raw.TotalHits,
		NumExcluded:     raw.NumExcluded,
		StartingNumber:  raw.StartingNumber,
		NextRecord:      raw.NextRecord,
	}
	page.bind(c, q)
	return page, nil
}
