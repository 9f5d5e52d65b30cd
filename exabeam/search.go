package exabeam

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	siemfeed "github.com/tphakala/go-siemfeed"
	"github.com/tphakala/go-siemfeed/internal/api"
	"github.com/tphakala/go-siemfeed/internal/markdown"
)

const logsTableTitle = "Logs"

// logTableHeaders fixes the column order of the rendered table.
var logTableHeaders = []string{"Created_at", "Id", "Message", "Product", "Vendor"}

// SearchArgs are the caller-supplied arguments for a Data Lake search.
type SearchArgs struct {
	// Query is the free-text query. Empty matches everything.
	Query string

	// StartTime and EndTime bound the calendar range of daily indices to
	// search. Both are required; timestamps are truncated to their date.
	StartTime string
	EndTime   string

	// Page and PageSize window the results together; Limit caps them from
	// the start instead. Provide the pair or Limit alone, not both.
	Page     *int
	PageSize *int
	Limit    *int
}

// SearchResult is one window of raw hits plus the rendered table.
type SearchResult struct {
	Events []siemfeed.Event
	Table  string
}

// Search runs a single paged query against the Data Lake and returns the
// raw hits along with a war-room style table. Arguments are validated
// before any request is sent; a query failure reported by the vendor
// surfaces as *siemfeed.UpstreamError with the vendor's own reason.
func (c *Client) Search(ctx context.Context, args SearchArgs, opts ...RequestOption) (*SearchResult, error) {
	from, size, err := PageWindow(args.Page, args.PageSize, args.Limit)
	if err != nil {
		return nil, err
	}

	start, err := normalizeSearchDate(args.StartTime, "start_time")
	if err != nil {
		return nil, err
	}
	end, err := normalizeSearchDate(args.EndTime, "end_time")
	if err != nil {
		return nil, err
	}

	dates, err := DatesInRange(start, end)
	if err != nil {
		return nil, err
	}

	indices := make([]string, 0, len(dates))
	for _, date := range dates {
		indices = append(indices, indexPrefix+date)
	}

	query := args.Query
	if query == "" {
		query = "*"
	}

	body := &searchRequest{
		SortBy: []sortField{
			{Field: "@timestamp", Order: "desc", UnmappedType: "date"},
		},
		Query: query,
		From:  from,
		Size:  size,
		ClusterWithIndices: []clusterWithIndices{
			{ClusterName: c.clusterName, Indices: indices},
		},
	}

	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}

	reqCfg := newRequestConfig()
	reqCfg.apply(opts...)
	reqCfg.headers.Set("kbn-version", kbnVersion)

	c.logger.Debug("querying data lake",
		zap.String("query", query),
		zap.Int("from", from),
		zap.Int("size", size),
		zap.Strings("indices", indices))

	var envelope searchResponse
	resp, err := c.transport.DoJSON(ctx, &api.Request{
		Method:  http.MethodPost,
		Path:    searchPath,
		Body:    body,
		Headers: reqCfg.headers,
	}, &envelope)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, api.ParseError(resp.StatusCode, resp.Body, resp.Headers)
	}

	var first queryResponse
	if len(envelope.Responses) > 0 {
		first = envelope.Responses[0]
	}

	if first.Error != nil {
		return nil, &siemfeed.UpstreamError{Reason: first.Error.reason()}
	}

	events := first.Hits.Hits

	rows := make([]map[string]string, 0, len(events))
	for _, entry := range events {
		rows = append(rows, parseEntry(entry))
	}

	return &SearchResult{
		Events: events,
		Table:  markdown.Table(logsTableTitle, logTableHeaders, rows),
	}, nil
}

// parseEntry flattens one hit into a table row.
func parseEntry(entry siemfeed.Event) map[string]string {
	var source siemfeed.Event
	if m, ok := entry["_source"].(map[string]any); ok {
		source = siemfeed.Event(m)
	}

	id, _ := entry.StringField("_id")
	vendor, _ := source.StringField("Vendor")
	createdAt, _ := source.StringField("@timestamp")
	product, _ := source.StringField("Product")
	message, _ := source.StringField("message")

	return map[string]string{
		"Id":         id,
		"Vendor":     vendor,
		"Created_at": createdAt,
		"Product":    product,
		"Message":    message,
	}
}
