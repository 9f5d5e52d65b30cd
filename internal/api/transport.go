// Package api provides the low-level HTTP transport shared by the vendor
// clients.
package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	siemfeed "github.com/tphakala/go-siemfeed"
	"github.com/tphakala/go-siemfeed/internal/auth"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	defaultMaxBodySize = 10 * 1024 * 1024 // 10MB
)

// Transport handles HTTP communication with a vendor API.
type Transport struct {
	BaseURL    *url.URL
	HTTPClient *http.Client
	UserAgent  string

	// Headers are sent with every request, before per-request headers.
	Headers http.Header

	// Auth, when set, injects credentials into each request.
	Auth auth.Applier

	// Limiter, when set, paces outgoing requests.
	Limiter *rate.Limiter
}

// NewTransport creates a Transport for the given base URL.
func NewTransport(baseURL string, httpClient *http.Client) (*Transport, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: defaultHTTPTimeout,
		}
	}

	return &Transport{
		BaseURL:    u,
		HTTPClient: httpClient,
		UserAgent:  "go-siemfeed/1.0",
		Headers:    make(http.Header),
	}, nil
}

// HTTPClientConfig describes the http.Client a vendor client builds when
// the caller does not supply one.
type HTTPClientConfig struct {
	Timeout  time.Duration
	Insecure bool   // skip TLS certificate verification
	ProxyURL string // empty means the environment proxy settings apply
	// CookieJar attaches an in-memory jar so session cookies set by the
	// vendor survive across requests.
	CookieJar bool
}

// NewHTTPClient builds an http.Client from cfg.
func NewHTTPClient(cfg HTTPClientConfig) (*http.Client, error) {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
	}
	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	if cfg.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	client := &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
	if cfg.CookieJar {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
		client.Jar = jar
	}
	return client, nil
}

// Request represents an API request. Body and Form are mutually exclusive;
// Form wins when both are set.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    any        // marshaled as JSON
	Form    url.Values // sent form-encoded
	Headers http.Header
}

// Response represents an API response.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// Do executes an API request and returns the raw response.
func (t *Transport) Do(ctx context.Context, req *Request) (*Response, error) {
	if t.Limiter != nil {
		if err := t.Limiter.Wait(ctx); err != nil {
			return nil, &siemfeed.TransportError{Op: "waiting for rate limiter", Err: err}
		}
	}

	httpReq, err := t.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	httpResp, err := t.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, &siemfeed.TransportError{Op: "sending request", Err: err}
	}
	defer func() { _ = httpResp.Body.Close() }()

	// Limit response body size to prevent memory exhaustion
	limitedReader := io.LimitReader(httpResp.Body, defaultMaxBodySize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, &siemfeed.TransportError{Op: "reading response body", Err: err}
	}

	if int64(len(body)) > defaultMaxBodySize {
		return nil, fmt.Errorf("response too large: exceeds %d bytes", defaultMaxBodySize)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       body,
		Headers:    httpResp.Header,
	}, nil
}

// DoJSON executes a request and unmarshals the JSON response into result.
// It only attempts to unmarshal on success status codes (< 400).
func (t *Transport) DoJSON(ctx context.Context, req *Request, result any) (*Response, error) {
	resp, err := t.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	// Only unmarshal on success status codes
	if result != nil && len(resp.Body) > 0 && resp.StatusCode < 400 {
		if err := json.Unmarshal(resp.Body, result); err != nil {
			return resp, fmt.Errorf("unmarshaling response: %w", err)
		}
	}

	return resp, nil
}

func (t *Transport) buildRequest(ctx context.Context, req *Request) (*http.Request, error) {
	u := t.BaseURL.JoinPath(req.Path)
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	var bodyReader io.Reader
	contentType := ""
	switch {
	case req.Form != nil:
		bodyReader = strings.NewReader(req.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case req.Body != nil:
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	// Set default headers
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", t.UserAgent)
	maps.Copy(httpReq.Header, t.Headers)

	// Apply authentication
	if t.Auth != nil {
		t.Auth.Apply(httpReq)
	}

	// Apply custom headers
	maps.Copy(httpReq.Header, req.Headers)

	return httpReq, nil
}
