package m2m

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
)

type call struct {
	endpoint string
	apiKey   string
	payload  map[string]interface{}
}

// fakeTransport answers with a handler per endpoint and records the calls
type fakeTransport struct {
	calls    []call
	handlers map[string]func(payload map[string]interface{}) (string, error)
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{handlers: map[string]func(map[string]interface{}) (string, error){}}
}

func (f *fakeTransport) on(endpoint string, h func(payload map[string]interface{}) (string, error)) *fakeTransport {
	f.handlers[endpoint] = h
	return f
}

func (f *fakeTransport) reply(endpoint, data string) *fakeTransport {
	return f.on(endpoint, func(map[string]interface{}) (string, error) { return data, nil })
}

func (f *fakeTransport) count(endpoint string) int {
	n := 0
	for _, c := range f.calls {
		if c.endpoint == endpoint {
			n++
		}
	}
	return n
}

func (f *fakeTransport) Post(ctx context.Context, url string, payload []byte, apiKey string) (json.RawMessage, error) {
	endpoint := path.Base(url)
	if err := ctx.Err(); err != nil {
		return nil, newError(KindNoResponse, url, "", "No output from service", err)
	}
	var p map[string]interface{}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, err
		}
	}
	f.calls = append(f.calls, call{endpoint: endpoint, apiKey: apiKey, payload: p})
	h, ok := f.handlers[endpoint]
	if !ok {
		return nil, newError(KindStatus, url, "404", "404 Not Found", nil)
	}
	data, err := h(p)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

func newTestClient(t Transport) *Client {
	return New(Config{BaseURL: "https://m2m.test/api/", Transport: t, APIKey: "apikey", Label: "m2m-label-test"})
}

// scenePages serves a scene-search of total scenes. Even scenes are bulk-downloadable.
func scenePages(total int) func(map[string]interface{}) (string, error) {
	return func(p map[string]interface{}) (string, error) {
		start := int(p["startingNumber"].(float64))
		max := int(p["maxResults"].(float64))
		var results []string
		for i := start; i < start+max && i <= total; i++ {
			results = append(results, fmt.Sprintf(`{"entityId":"E%d","displayId":"D%d","options":{"download":true,"bulk":%t}}`, i, i, i%2 == 0))
		}
		next := start + len(results)
		return fmt.Sprintf(`{"results":[%s],"recordsReturned":%d,"totalHits":%d,"numExcluded":0,"startingNumber":%d,"nextRecord":%d}`,
			strings.Join(results, ","), len(results), total, start, next), nil
	}
}
