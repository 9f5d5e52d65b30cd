// Package exabeam provides a client for the Exabeam Data Lake search API.
//
// Data Lake authenticates with a session cookie: the client logs in with
// username and password once per process and the cookie jar carries the
// session from there. Searches run against daily indices, one per calendar
// day in the requested range.
package exabeam

import (
	"context"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	siemfeed "github.com/tphakala/go-siemfeed"
	"github.com/tphakala/go-siemfeed/internal/api"
)

const (
	defaultTimeout     = 20 * time.Second
	defaultClusterName = "local"

	// kbnVersion is required by the search endpoint, which fronts a
	// Kibana-era Elasticsearch.
	kbnVersion = "5.1.1-SNAPSHOT"

	loginPath     = "/api/auth/login"
	authCheckPath = "/api/auth/check"
	searchPath    = "/dl/api/es/search"
)

// Client is the Exabeam Data Lake API client.
type Client struct {
	transport   *api.Transport
	username    string
	password    string
	clusterName string
	logger      *zap.Logger

	loginMu  sync.Mutex
	loggedIn bool
}

// NewClient creates a new Data Lake client with the given options.
// It performs no I/O; the session is opened lazily on first use.
func NewClient(opts ...ClientOption) (*Client, error) {
	cfg := &clientConfig{
		timeout:     defaultTimeout,
		clusterName: defaultClusterName,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.baseURL == "" {
		return nil, siemfeed.ErrNoBaseURL
	}

	if cfg.username == "" || cfg.password == "" {
		return nil, siemfeed.ErrNoCredentials
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		var err error
		httpClient, err = api.NewHTTPClient(api.HTTPClientConfig{
			Timeout:   cfg.timeout,
			Insecure:  cfg.insecure,
			ProxyURL:  cfg.proxyURL,
			CookieJar: true,
		})
		if err != nil {
			return nil, err
		}
	} else if httpClient.Jar == nil {
		// The session cookie has to survive across requests.
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		httpClient.Jar = jar
	}

	transport, err := api.NewTransport(cfg.baseURL, httpClient)
	if err != nil {
		return nil, err
	}

	transport.Headers.Set("Csrf-Token", "nocheck")

	if cfg.userAgent != "" {
		transport.UserAgent = cfg.userAgent
	}

	if cfg.requestsPerSecond > 0 {
		burst := int(cfg.requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		transport.Limiter = rate.NewLimiter(rate.Limit(cfg.requestsPerSecond), burst)
	}

	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		transport:   transport,
		username:    cfg.username,
		password:    cfg.password,
		clusterName: cfg.clusterName,
		logger:      logger,
	}, nil
}

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string {
	return c.transport.BaseURL.String()
}

// Login opens a Data Lake session. The other operations call it
// automatically on first use; any failure is reported as
// *siemfeed.AuthenticationError.
func (c *Client) Login(ctx context.Context) error {
	c.logger.Debug("logging in", zap.String("username", c.username))

	resp, err := c.transport.Do(ctx, &api.Request{
		Method: http.MethodPost,
		Path:   loginPath,
		Form: url.Values{
			"username": {c.username},
			"password": {c.password},
		},
	})
	if err != nil {
		return &siemfeed.AuthenticationError{Err: err}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		err := api.ParseError(resp.StatusCode, resp.Body, resp.Headers)
		var authErr *siemfeed.AuthenticationError
		if errors.As(err, &authErr) {
			return err
		}
		return &siemfeed.AuthenticationError{Err: err}
	}

	return nil
}

// ensureSession logs in once per client.
func (c *Client) ensureSession(ctx context.Context) error {
	c.loginMu.Lock()
	defer c.loginMu.Unlock()

	if c.loggedIn {
		return nil
	}
	if err := c.Login(ctx); err != nil {
		return err
	}
	c.loggedIn = true
	return nil
}

// CheckAuth verifies reachability and session validity against the auth
// check endpoint. Connection tests use it as their probe.
func (c *Client) CheckAuth(ctx context.Context, opts ...RequestOption) error {
	if err := c.ensureSession(ctx); err != nil {
		return err
	}

	reqCfg := newRequestConfig()
	reqCfg.apply(opts...)

	resp, err := c.transport.Do(ctx, &api.Request{
		Method:  http.MethodGet,
		Path:    authCheckPath,
		Headers: reqCfg.headers,
	})
	if err != nil {
		return err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return api.ParseError(resp.StatusCode, resp.Body, resp.Headers)
	}

	return nil
}
