package m2m

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/airbusgeo/m2m-client/service"
	"github.com/airbusgeo/m2m-client/service/log"
	"go.uber.org/zap"
)

// Transport posts a JSON payload to an endpoint url and returns the "data" member of the response.
// apiKey is empty for unauthenticated calls.
type Transport interface {
	Post(ctx context.Context, url string, payload []byte, apiKey string) (json.RawMessage, error)
}

// statusCodes maps the HTTP statuses known by the service to a readable label
var statusCodes = map[int]string{
	http.StatusNotFound:     "404 Not Found",
	http.StatusUnauthorized: "401 Unauthorized",
	http.StatusBadRequest:   "General Error",
}

type envelope struct {
	Data         json.RawMessage `json:"data"`
	ErrorCode    FlexString      `json:"errorCode"`
	ErrorMessage string          `json:"errorMessage"`
}

// HTTPTransport implements Transport over net/http
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport creates a transport. If client is nil, http.DefaultClient is used
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{client: client}
}

// Post implements Transport
func (t *HTTPTransport) Post(ctx context.Context, url string, payload []byte, apiKey string) (json.RawMessage, error) {
	endpoint := path.Base(url)
	start := time.Now()
	resp, err := service.HTTPPostWithAuth(ctx, t.client, url, payload, apiKey)
	requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		requestsTotal.WithLabelValues(endpoint, "none").Inc()
		return nil, newError(KindNoResponse, url, "", "No output from service", err)
	}
	defer resp.Body.Close()
	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(KindNoResponse, url, strconv.Itoa(resp.StatusCode), "", fmt.Errorf("ReadAll: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, ok := statusCodes[resp.StatusCode]
		if !ok {
			msg = http.StatusText(resp.StatusCode)
		}
		log.Logger(ctx).Debug("m2m status error", zap.String("url", url), zap.ByteString("body", body))
		return nil, newError(KindStatus, url, strconv.Itoa(resp.StatusCode), msg, nil)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, newError(KindDecode, url, "", "", fmt.Errorf("decode envelope: %w", err))
	}
	if env.ErrorCode != "" || env.ErrorMessage != "" {
		return nil, newError(KindApplication, url, string(env.ErrorCode), env.ErrorMessage, nil)
	}
	return env.Data, nil
}
