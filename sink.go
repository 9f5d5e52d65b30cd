package siemfeed

import "context"

// Sink receives annotated events for bulk delivery into an analytics
// backend. The vendor and product tags name the dataset the events belong
// to. Implementations live in package sink.
//
// Ingest must be safe to call again with the same events: the fetch
// watermark is persisted only after Ingest returns, so a failed delivery
// is re-sent on the next invocation.
type Sink interface {
	Ingest(ctx context.Context, events []Event, vendor, product string) error
}
