package m2m

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Shape is the layout of the "data" member returned by an endpoint
type Shape int

const (
	// ShapeRecord: a single object
	ShapeRecord Shape = iota
	// ShapeList: an array of items
	ShapeList
	// ShapePage: an object with a "results" array and pagination counters
	ShapePage
)

func (s Shape) String() string {
	switch s {
	case ShapeRecord:
		return "record"
	case ShapeList:
		return "list"
	case ShapePage:
		return "page"
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

// Request is a serializable request descriptor bound to an endpoint
type Request interface {
	// Endpoint returns the name of the endpoint, relative to the base url
	Endpoint() string
	// Shape returns the expected shape of the response
	Shape() Shape
}

// Query is a Request whose items decode into T
type Query[T any] interface {
	Request
	model() T
}

// Cursor holds the pagination parameters of a paginated query.
// It is advanced by Page.Next.
type Cursor struct {
	MaxResults     int `json:"maxResults,omitempty"`
	StartingNumber int `json:"startingNumber,omitempty"`
}

func (c *Cursor) cursor() *Cursor { return c }

type paginated interface {
	cursor() *Cursor
}

type defaulter interface {
	setDefaults()
}

// Payload renders the request to the JSON body sent to the service (empty fields are omitted)
func Payload(q Request) ([]byte, error) {
	if d, ok := q.(defaulter); ok {
		d.setDefaults()
	}
	b, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("Payload: %w", err)
	}
	return b, nil
}

// EndpointURL joins the base url and the name of the endpoint
func EndpointURL(baseURL, endpoint string) (string, error) {
	if endpoint == "" {
		return "", configError("endpoint does not exist")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	if baseURL == "" {
		return "", configError("base url is not defined (endpoint %s)", endpoint)
	}
	return baseURL + "/" + endpoint, nil
}
