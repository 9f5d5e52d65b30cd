// Package sink delivers annotated events to downstream analytics backends.
//
// Three implementations are provided: HTTP posts JSON batches to a bulk
// ingestion endpoint, AMQP publishes them to a RabbitMQ exchange, and
// Writer streams NDJSON to a local writer for interactive use. None of
// them retry; the caller's cursor protocol re-delivers on the next
// invocation instead.
package sink

import (
	siemfeed "github.com/tphakala/go-siemfeed"
)

// chunk splits events into batches of at most size records each.
func chunk(events []siemfeed.Event, size int) [][]siemfeed.Event {
	if size <= 0 || len(events) == 0 {
		return nil
	}
	batches := make([][]siemfeed.Event, 0, (len(events)+size-1)/size)
	for start := 0; start < len(events); start += size {
		end := start + size
		if end > len(events) {
			end = len(events)
		}
		batches = append(batches, events[start:end])
	}
	return batches
}
