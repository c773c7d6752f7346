package m2m

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/airbusgeo/m2m-client/service/log"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// DefaultBaseURL of the M2M API (overridden by EE_URL)
const DefaultBaseURL = "https://m2m.cr.usgs.gov/api/api/json/stable"

// DefaultTokenLifetime is the validity of an API key delivered by login
const DefaultTokenLifetime = 2 * time.Hour

// Config of a Client
type Config struct {
	// BaseURL of the API. Default: EE_URL, then DefaultBaseURL
	BaseURL string
	// Label of the session. Default: "m2m-label-<uuid>"
	Label string
	// Transport. Default: HTTPTransport using HTTPClient
	Transport  Transport
	HTTPClient *http.Client
	// APIKey, if already known. Otherwise, call Login
	APIKey string
	// TokenLifetime of the API key. Default: DefaultTokenLifetime
	TokenLifetime time.Duration
}

// Client is one session with the M2M API.
// It holds the API key and the label correlating all the download requests of the session.
type Client struct {
	baseURL       string
	label         string
	transport     Transport
	tokenLifetime time.Duration

	mu     sync.Mutex
	tokens oauth2.TokenSource
}

// New creates a client. It does not authenticate (see Login)
func New(cfg Config) *Client {
	c := &Client{
		baseURL:       cfg.BaseURL,
		label:         cfg.Label,
		transport:     cfg.Transport,
		tokenLifetime: cfg.TokenLifetime,
	}
	if c.baseURL == "" {
		c.baseURL = os.Getenv("EE_URL")
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.label == "" {
		c.label = "m2m-label-" + uuid.New().String()
	}
	if c.transport == nil {
		c.transport = NewHTTPTransport(cfg.HTTPClient)
	}
	if c.tokenLifetime <= 0 {
		c.tokenLifetime = DefaultTokenLifetime
	}
	if cfg.APIKey != "" {
		c.tokens = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIKey})
	}
	return c
}

// BaseURL returns the base url of the API
func (c *Client) BaseURL() string { return c.baseURL }

// Label returns the label of the session
func (c *Client) Label() string { return c.label }

// APIKey returns the current API key, logging in again if it is about to expire.
// It returns an empty string if the client is not authenticated.
func (c *Client) APIKey() (string, error) {
	c.mu.Lock()
	tokens := c.tokens
	c.mu.Unlock()
	if tokens == nil {
		return "", nil
	}
	token, err := tokens.Token()
	if err != nil {
		return "", fmt.Errorf("APIKey: %w", err)
	}
	return token.AccessToken, nil
}

// Login authenticates the client. The API key is renewed transparently before it expires.
func (c *Client) Login(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return configError("username or password must be defined")
	}
	url, err := EndpointURL(c.baseURL, "login")
	if err != nil {
		return err
	}
	src := &loginTokenSource{
		ctx:       ctx,
		transport: c.transport,
		url:       url,
		username:  username,
		password:  password,
		lifetime:  c.tokenLifetime,
	}
	token, err := src.Token()
	if err != nil {
		return fmt.Errorf("Login: %w", err)
	}
	// The key is renewed after Login returns: the cancellation of ctx must not prevent it
	src.ctx = context.WithoutCancel(ctx)
	c.mu.Lock()
	c.tokens = oauth2.ReuseTokenSource(token, src)
	c.mu.Unlock()
	log.Logger(ctx).Sugar().Infof("logged in as %s (session %s)", username, c.label)
	return nil
}

// Logout invalidates the API key
func (c *Client) Logout(ctx context.Context) error {
	apiKey, err := c.APIKey()
	if err != nil {
		return fmt.Errorf("Logout.%w", err)
	}
	if apiKey == "" {
		return nil
	}
	url, err := EndpointURL(c.baseURL, "logout")
	if err != nil {
		return err
	}
	if _, err := c.transport.Post(ctx, url, nil, apiKey); err != nil {
		return fmt.Errorf("Logout.%w", err)
	}
	c.mu.Lock()
	c.tokens = nil
	c.mu.Unlock()
	return nil
}

// Do posts the request to its endpoint and returns the raw "data" member of the response
func (c *Client) Do(ctx context.Context, q Request) (json.RawMessage, error) {
	url, err := EndpointURL(c.baseURL, q.Endpoint())
	if err != nil {
		return nil, err
	}
	payload, err := Payload(q)
	if err != nil {
		return nil, newError(KindConfig, url, "", "", err)
	}
	apiKey, err := c.APIKey()
	if err != nil {
		return nil, err
	}
	log.Logger(ctx).Debug("m2m request", zap.String("url", url), zap.ByteString("payload", payload))
	return c.transport.Post(ctx, url, payload, apiKey)
}

// Dataset retrieves the dataset by name
func (c *Client) Dataset(ctx context.Context, name string) (*Dataset, error) {
	return FetchOne[Dataset](ctx, c, &DatasetQuery{DatasetName: name})
}

// Datasets searches the datasets
func (c *Client) Datasets(ctx context.Context, q *DatasetSearchQuery) ([]Dataset, error) {
	if q == nil {
		q = &DatasetSearchQuery{}
	}
	res, err := Fetch[Dataset](ctx, c, q)
	if err != nil {
		return nil, err
	}
	return res.All(), nil
}

// Scenes searches the scenes and returns the first page
func (c *Client) Scenes(ctx context.Context, q *SceneSearchQuery) (*Page[Scene], error) {
	return FetchPage[Scene](ctx, c, q)
}

// loginTokenSource implements oauth2.TokenSource with the login endpoint
type loginTokenSource struct {
	ctx       context.Context
	transport Transport
	url       string
	username  string
	password  string
	lifetime  time.Duration
}

func (s *loginTokenSource) Token() (*oauth2.Token, error) {
	payload, err := json.Marshal(map[string]string{"username": s.username, "password": s.password})
	if err != nil {
		return nil, fmt.Errorf("login.Marshal: %w", err)
	}
	data, err := s.transport.Post(s.ctx, s.url, payload, "")
	if err != nil {
		return nil, err
	}
	var apiKey string
	if err := json.Unmarshal(data, &apiKey); err != nil || apiKey == "" {
		return nil, newError(KindDecode, s.url, "", "login did not return an API key", err)
	}
	// Renewed before expiration
	return &oauth2.Token{
		AccessToken: apiKey,
		Expiry:      time.Now().Add(9 * s.lifetime / 10),
	}, nil
}
