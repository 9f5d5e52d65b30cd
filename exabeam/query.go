package exabeam

import (
	"fmt"
	"time"

	siemfeed "github.com/tphakala/go-siemfeed"
)

const (
	defaultLimit = 50

	// maxSearchDays caps the calendar range of one search, counting both
	// endpoints. Each day in the range becomes one daily index.
	maxSearchDays = 10

	indexPrefix      = "exabeam-"
	indexDateFormat  = "2006.01.02"
	searchDateFormat = "2006-01-02"
)

// PageWindow converts the page, page_size and limit arguments into the
// from/size window of the upstream query. Callers provide either limit
// alone or page and page_size together; pages are one-based. With no
// arguments at all the window defaults to the first 50 results.
func PageWindow(page, pageSize, limit *int) (from, size int, err error) {
	pairIncomplete := (page != nil) != (pageSize != nil)
	if (limit != nil && (page != nil || pageSize != nil)) || pairIncomplete {
		return 0, 0, &siemfeed.ValidationError{
			Message: "You can only provide 'limit' alone or 'page' and 'page_size' together.",
		}
	}

	if page != nil {
		if *page < 1 || *pageSize < 1 {
			return 0, 0, &siemfeed.ValidationError{
				Message: "'page' and 'page_size' must be positive integers",
			}
		}
		return *page**pageSize - *pageSize, *pageSize, nil
	}

	size = defaultLimit
	if limit != nil {
		if *limit < 1 {
			return 0, 0, &siemfeed.ValidationError{
				Message: "'limit' must be a positive integer",
			}
		}
		size = *limit
	}
	return 0, size, nil
}

// DatesInRange expands a calendar date range, both ends inclusive, into
// the daily index date strings. The range may span at most maxSearchDays
// days.
func DatesInRange(startTime, endTime string) ([]string, error) {
	start, err := time.Parse(searchDateFormat, startTime)
	if err != nil {
		return nil, &siemfeed.ValidationError{
			Message: fmt.Sprintf("invalid start time %q: expected %s", startTime, searchDateFormat),
		}
	}
	end, err := time.Parse(searchDateFormat, endTime)
	if err != nil {
		return nil, &siemfeed.ValidationError{
			Message: fmt.Sprintf("invalid end time %q: expected %s", endTime, searchDateFormat),
		}
	}

	if !start.Before(end) {
		return nil, &siemfeed.ValidationError{Message: "Start time must be before end time"}
	}
	if int(end.Sub(start).Hours()/24)+1 > maxSearchDays {
		return nil, &siemfeed.ValidationError{
			Message: "Difference between start time and end time must be less than or equal to 10 days",
		}
	}

	var dates []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(indexDateFormat))
	}
	return dates, nil
}

// searchTimeLayouts are the timestamp spellings accepted for the start_time
// and end_time arguments. Times are truncated to their calendar date.
var searchTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006.01.02T15:04:05",
	"2006.01.02",
}

func normalizeSearchDate(value, name string) (string, error) {
	if value == "" {
		return "", &siemfeed.ValidationError{Message: fmt.Sprintf("Missing '%s'", name)}
	}
	for _, layout := range searchTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(searchDateFormat), nil
		}
	}
	return "", &siemfeed.ValidationError{Message: fmt.Sprintf("Invalid date: '%s'='%s'", name, value)}
}

// searchRequest is the wire shape of a Data Lake multisearch.
type searchRequest struct {
	SortBy             []sortField          `json:"sortBy"`
	Query              string               `json:"query"`
	From               int                  `json:"from"`
	Size               int                  `json:"size"`
	ClusterWithIndices []clusterWithIndices `json:"clusterWithIndices"`
}

type sortField struct {
	Field        string `json:"field"`
	Order        string `json:"order"`
	UnmappedType string `json:"unmappedType"`
}

type clusterWithIndices struct {
	ClusterName string   `json:"clusterName"`
	Indices     []string `json:"indices"`
}

type searchResponse struct {
	Responses []queryResponse `json:"responses"`
}

type queryResponse struct {
	Hits  hitsEnvelope `json:"hits"`
	Error *queryError  `json:"error"`
}

type hitsEnvelope struct {
	Hits []siemfeed.Event `json:"hits"`
}

type queryError struct {
	RootCause []rootCause `json:"root_cause"`
}

type rootCause struct {
	Reason string `json:"reason"`
}

// reason returns the first root cause, or a generic fallback when the
// vendor sent an error object with no usable detail.
func (e *queryError) reason() string {
	if len(e.RootCause) > 0 && e.RootCause[0].Reason != "" {
		return e.RootCause[0].Reason
	}
	return "Unknown error occurred"
}
