package exabeam

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	baseURL           string
	username          string
	password          string
	clusterName       string
	httpClient        *http.Client
	timeout           time.Duration
	userAgent         string
	insecure          bool
	proxyURL          string
	requestsPerSecond float64
	logger            *zap.Logger
}

// WithBaseURL sets the Data Lake base URL.
func WithBaseURL(url string) ClientOption {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// WithCredentials sets the username and password used for session login.
func WithCredentials(username, password string) ClientOption {
	return func(c *clientConfig) {
		c.username = username
		c.password = password
	}
}

// WithClusterName selects the Data Lake cluster to search.
// Defaults to "local".
func WithClusterName(name string) ClientOption {
	return func(c *clientConfig) {
		c.clusterName = name
	}
}

// WithHTTPClient sets a custom HTTP client. The client should carry a
// cookie jar; one is attached when absent, since the Data Lake session is
// cookie-based.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithTimeout sets the default request timeout.
// Note: This option is ignored when WithHTTPClient is used;
// set the timeout directly on the provided client instead.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.timeout = d
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *clientConfig) {
		c.userAgent = ua
	}
}

// WithInsecure skips TLS certificate verification.
// Ignored when WithHTTPClient is used.
func WithInsecure(insecure bool) ClientOption {
	return func(c *clientConfig) {
		c.insecure = insecure
	}
}

// WithProxyURL routes requests through the given proxy.
// Ignored when WithHTTPClient is used.
func WithProxyURL(url string) ClientOption {
	return func(c *clientConfig) {
		c.proxyURL = url
	}
}

// WithRateLimit paces outgoing requests to at most rps per second.
func WithRateLimit(rps float64) ClientOption {
	return func(c *clientConfig) {
		c.requestsPerSecond = rps
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// RequestOption configures individual API requests.
type RequestOption func(*requestConfig)

type requestConfig struct {
	headers http.Header
}

func newRequestConfig() *requestConfig {
	return &requestConfig{
		headers: make(http.Header),
	}
}

func (r *requestConfig) apply(opts ...RequestOption) {
	for _, opt := range opts {
		opt(r)
	}
}

// WithHeader adds a custom header to a request.
func WithHeader(key, value string) RequestOption {
	return func(r *requestConfig) {
		r.headers.Set(key, value)
	}
}

// WithHeaders adds multiple custom headers to a request.
func WithHeaders(headers map[string]string) RequestOption {
	return func(r *requestConfig) {
		for k, v := range headers {
			r.headers.Set(k, v)
		}
	}
}
