package identitynow

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"go.uber.org/zap"

	siemfeed "github.com/tphakala/go-siemfeed"
	"github.com/tphakala/go-siemfeed/internal/api"
	"github.com/tphakala/go-siemfeed/internal/markdown"
)

const (
	// initialSearchAfter seeds the search-after marker before any event
	// has been seen.
	initialSearchAfter = "0"

	// searchTimeZone is pinned by the vendor query contract.
	searchTimeZone = "America/Los_Angeles"

	queryType    = "SAILPOINT"
	queryVersion = "5.2"

	eventsTableTitle = "Test Event"
)

// searchRequest is the wire shape of a v3 search scoped to the events
// index.
type searchRequest struct {
	Indices      []string    `json:"indices"`
	QueryType    string      `json:"queryType"`
	QueryVersion string      `json:"queryVersion"`
	Query        searchQuery `json:"query"`
	TimeZone     string      `json:"timeZone"`
	Sort         []string    `json:"sort"`
	SearchAfter  []string    `json:"searchAfter"`
}

type searchQuery struct {
	Query string `json:"query"`
}

// SearchEvents returns up to limit events created on or after the cursor
// position, in ascending id order. A zero cursor starts from the default
// lookback window. SearchEvents implements siemfeed.EventSearcher.
func (c *Client) SearchEvents(ctx context.Context, cursor siemfeed.Cursor, limit int) ([]siemfeed.Event, error) {
	return c.searchEvents(ctx, cursor, limit, nil)
}

func (c *Client) searchEvents(ctx context.Context, cursor siemfeed.Cursor, limit int, headers http.Header) ([]siemfeed.Event, error) {
	if err := c.ensureToken(ctx); err != nil {
		return nil, err
	}

	prevID := cursor.PrevID
	if prevID == "" {
		prevID = initialSearchAfter
	}
	fromDate := cursor.PrevDate
	if fromDate == "" {
		fromDate = siemfeed.FormatTimestamp(time.Now().Add(-DefaultLookback))
	}

	body := &searchRequest{
		Indices:      []string{"events"},
		QueryType:    queryType,
		QueryVersion: queryVersion,
		Query:        searchQuery{Query: fmt.Sprintf("type:* AND created: [%s TO now]", fromDate)},
		TimeZone:     searchTimeZone,
		Sort:         []string{"+id"},
		SearchAfter:  []string{prevID},
	}

	query := make(url.Values)
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	c.logger.Debug("searching events",
		zap.String("prev_id", prevID),
		zap.String("from_date", fromDate),
		zap.Int("limit", limit))

	var events []siemfeed.Event
	resp, err := c.transport.DoJSON(ctx, &api.Request{
		Method:  http.MethodPost,
		Path:    searchPath,
		Query:   query,
		Body:    body,
		Headers: headers,
	}, &events)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, api.ParseError(resp.StatusCode, resp.Body, resp.Headers)
	}

	return events, nil
}

// Fetch drains up to maxEvents events from the cursor position and returns
// the advanced cursor with them. A maxEvents of zero or less selects
// DefaultMaxEventsPerFetch. The caller persists the returned cursor only
// after the events are safely handed off.
func (c *Client) Fetch(ctx context.Context, cursor siemfeed.Cursor, maxEvents int) (siemfeed.Cursor, []siemfeed.Event, error) {
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEventsPerFetch
	}
	return siemfeed.FetchEvents(ctx, c, cursor, maxEvents, c.logger)
}

// Stream returns an iterator over the cursor protocol, fetching batches
// lazily as the consumer advances.
func (c *Client) Stream(ctx context.Context, cursor siemfeed.Cursor) iter.Seq2[siemfeed.Event, error] {
	return siemfeed.StreamEvents(ctx, c, cursor, 0)
}

// EventsResult is an interactive batch of events plus the rendered table.
type EventsResult struct {
	Events []siemfeed.Event
	Table  string
}

// GetEvents performs a single interactive search from the given lower
// bound, bypassing the persisted cursor. An empty fromDate selects the
// default lookback window; limit caps the batch.
func (c *Client) GetEvents(ctx context.Context, limit int, fromDate string, opts ...RequestOption) (*EventsResult, error) {
	if fromDate != "" {
		normalized, err := normalizeFromDate(fromDate)
		if err != nil {
			return nil, err
		}
		fromDate = normalized
	}

	reqCfg := newRequestConfig()
	reqCfg.apply(opts...)

	events, err := c.searchEvents(ctx, siemfeed.Cursor{PrevDate: fromDate}, limit, reqCfg.headers)
	if err != nil {
		return nil, err
	}

	return &EventsResult{
		Events: events,
		Table:  renderEventsTable(events),
	}, nil
}

// TestConnection probes connectivity and authentication by fetching a
// single event. Callers can recognize denied credentials through
// *siemfeed.AuthenticationError.
func (c *Client) TestConnection(ctx context.Context) error {
	_, _, err := siemfeed.FetchEvents(ctx, c, siemfeed.Cursor{}, 1, c.logger)
	return err
}

// fromDateLayouts are the spellings accepted for the from_date argument.
var fromDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func normalizeFromDate(value string) (string, error) {
	for _, layout := range fromDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return siemfeed.FormatTimestamp(t), nil
		}
	}
	return "", &siemfeed.ValidationError{Message: fmt.Sprintf("invalid from_date %q", value)}
}

// renderEventsTable renders events with the union of their fields as
// columns, sorted by name.
func renderEventsTable(events []siemfeed.Event) string {
	var headers []string
	seen := make(map[string]bool)
	for _, event := range events {
		for key := range event {
			if !seen[key] {
				seen[key] = true
				headers = append(headers, key)
			}
		}
	}
	slices.Sort(headers)

	rows := make([]map[string]string, 0, len(events))
	for _, event := range events {
		row := make(map[string]string, len(event))
		for _, h := range headers {
			row[h], _ = event.StringField(h)
		}
		rows = append(rows, row)
	}

	return markdown.Table(eventsTableTitle, headers, rows)
}
