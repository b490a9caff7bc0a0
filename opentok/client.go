// Package opentok is a client for the OpenTok video platform REST API.
//
// A Client holds the project credentials. It creates sessions, signs tokens for them and
// performs the server side operations of a session: signaling, stream lookups, forcing a
// connection out and recording archives. Every remote operation is a single synchronous HTTP
// call; the package never retries.
package opentok

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/isqad/opentok-go/internal/telemetry"
)

const (
	// Version of the SDK, reported in the User-Agent header
	Version = "1.2.0"
	// DefaultAPIURL is the production REST endpoint
	DefaultAPIURL = "https://api.opentok.com"

	defaultTimeout = 10 * time.Second
	userAgentBase  = "OpenTok-Go-SDK/" + Version
)

// Client talks to the REST API on behalf of one project. It is safe for concurrent use.
type Client struct {
	apiKey    string
	apiSecret string
	endpoints Endpoints

	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
	log        zerolog.Logger
	now        func() time.Time
}

type Option func(*Client)

func WithAPIURL(apiURL string) Option {
	return func(c *Client) {
		c.endpoints.APIURL = strings.TrimRight(apiURL, "/")
	}
}

// WithHTTPClient replaces the default client. Its own timeout is left untouched.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.log = logger
	}
}

// WithClock sets the time source used for token and auth header timestamps
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithUserAgentSuffix appends an application identifier to the User-Agent header
func WithUserAgentSuffix(suffix string) Option {
	return func(c *Client) {
		if suffix != "" {
			c.userAgent = userAgentBase + " " + suffix
		}
	}
}

// New creates a client for the project identified by apiKey
func New(apiKey, apiSecret string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, invalid("api_key", "cannot be empty")
	}
	if apiSecret == "" {
		return nil, invalid("api_secret", "cannot be empty")
	}

	c := &Client{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		endpoints: NewEndpoints(DefaultAPIURL, apiKey),
		timeout:   defaultTimeout,
		userAgent: userAgentBase,
		log:       zerolog.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}

	return c, nil
}

func (c *Client) APIKey() string {
	return c.apiKey
}

func (c *Client) Endpoints() Endpoints {
	return c.endpoints
}

type apiRequest struct {
	op          string
	method      string
	url         string
	body        []byte
	contentType string
	target      target
}

// do sends one request and returns the response body of a 2xx response. Anything else is
// mapped onto the error taxonomy.
func (c *Client) do(ctx context.Context, r apiRequest) ([]byte, error) {
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", r.op, err)
	}

	token, err := c.authToken()
	if err != nil {
		return nil, fmt.Errorf("%s: sign auth header: %w", r.op, err)
	}
	req.Header.Set(authHeader, token)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	start := time.Now()
	res, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		telemetry.ObserveRequest(r.op, "error", elapsed)
		c.log.Debug().Err(err).Str("op", r.op).Str("url", r.url).Msg("opentok request failed")
		return nil, fmt.Errorf("%s: request failed: %w", r.op, err)
	}
	defer res.Body.Close()

	telemetry.ObserveRequest(r.op, strconv.Itoa(res.StatusCode), elapsed)
	c.log.Debug().
		Str("op", r.op).
		Str("method", r.method).
		Str("url", r.url).
		Int("status", res.StatusCode).
		Dur("elapsed", elapsed).
		Msg("opentok request")

	if err := checkResponse(res, r.target); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", r.op, err)
	}
	return data, nil
}
