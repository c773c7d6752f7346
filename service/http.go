package service

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
)

// AuthTokenHeader carries the API key on authenticated requests
const AuthTokenHeader = "X-Auth-Token"

// HTTPPostWithAuth posts a JSON body. The token, if any, is sent in the X-Auth-Token header.
// The caller is responsible for closing the body of the response.
func HTTPPostWithAuth(ctx context.Context, client *http.Client, url string, body []byte, authToken string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("HTTPPost: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return doWithAuth(client, req, authToken)
}

func doWithAuth(client *http.Client, req *http.Request, authToken string) (*http.Response, error) {
	if authToken != "" {
		req.Header.Set(AuthTokenHeader, authToken)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return client.Do(req)
}
