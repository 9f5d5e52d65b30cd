package sink

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	siemfeed "github.com/tphakala/go-siemfeed"
	"github.com/tphakala/go-siemfeed/internal/api"
)

const (
	defaultHTTPBatchSize = 1000
	defaultHTTPTimeout   = 30 * time.Second

	// maxErrorBodySize bounds how much of an error response is read for
	// diagnostics.
	maxErrorBodySize = 1 * 1024 * 1024
)

// HTTPOption configures an HTTP sink.
type HTTPOption func(*HTTP)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(s *HTTP) { s.client = client }
}

// WithBatchSize sets the number of events per POST. Default: 1000.
func WithBatchSize(n int) HTTPOption {
	return func(s *HTTP) { s.batchSize = n }
}

// WithGzip compresses request bodies.
func WithGzip() HTTPOption {
	return func(s *HTTP) { s.gzip = true }
}

// WithHTTPHeaders sets custom headers sent with every POST.
func WithHTTPHeaders(headers map[string]string) HTTPOption {
	return func(s *HTTP) { s.headers = headers }
}

// WithHTTPLogger sets the logger. Defaults to a no-op logger.
func WithHTTPLogger(logger *zap.Logger) HTTPOption {
	return func(s *HTTP) { s.logger = logger }
}

// HTTP posts events to a bulk ingestion endpoint as JSON arrays, chunked
// into batches. Each POST carries the dataset tags and a batch id in
// headers so the receiving side can deduplicate replays.
type HTTP struct {
	client    *http.Client
	url       string
	headers   map[string]string
	batchSize int
	gzip      bool
	logger    *zap.Logger
}

// NewHTTP creates an HTTP sink targeting the given URL.
func NewHTTP(url string, opts ...HTTPOption) *HTTP {
	s := &HTTP{
		client:    &http.Client{Timeout: defaultHTTPTimeout},
		url:       url,
		batchSize: defaultHTTPBatchSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest delivers the events in batches. The first failed batch aborts the
// call; already-delivered batches are re-sent on the caller's next
// invocation, which the batch id headers make safe to deduplicate.
func (s *HTTP) Ingest(ctx context.Context, events []siemfeed.Event, vendor, product string) error {
	for _, batch := range chunk(events, s.batchSize) {
		if err := s.send(ctx, batch, vendor, product); err != nil {
			return err
		}
	}
	return nil
}

func (s *HTTP) send(ctx context.Context, batch []siemfeed.Event, vendor, product string) error {
	payload, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("encoding events: %w", err)
	}

	var body io.Reader = bytes.NewReader(payload)
	if s.gzip {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(payload); err != nil {
			return fmt.Errorf("compressing events: %w", err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("compressing events: %w", err)
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	batchID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	if s.gzip {
		req.Header.Set("Content-Encoding", "gzip")
	}
	req.Header.Set("X-Vendor", vendor)
	req.Header.Set("X-Product", product)
	req.Header.Set("X-Batch-ID", batchID)
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return &siemfeed.TransportError{Op: "posting events", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil {
		return &siemfeed.TransportError{Op: "reading ingestion response", Err: err}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return api.ParseError(resp.StatusCode, respBody, resp.Header)
	}

	s.logger.Debug("delivered batch",
		zap.String("batch_id", batchID),
		zap.String("vendor", vendor),
		zap.String("product", product),
		zap.Int("count", len(batch)))
	return nil
}

var _ siemfeed.Sink = (*HTTP)(nil)
