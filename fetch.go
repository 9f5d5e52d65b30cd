package siemfeed

import (
	"context"
	"iter"

	"go.uber.org/zap"
)

// defaultStreamPageSize is the batch size StreamEvents requests when the
// caller does not choose one.
const defaultStreamPageSize = 100

// EventSearcher is implemented by vendor clients that support cursor-based
// incremental collection. SearchEvents returns up to limit events strictly
// after the cursor position, ordered by ascending id. Every returned event
// must carry an "id" field and a "created" timestamp; the fetch engine
// advances the cursor from the last record of each batch.
type EventSearcher interface {
	SearchEvents(ctx context.Context, cursor Cursor, limit int) ([]Event, error)
}

// FetchEvents drains events from src starting at cursor until a batch comes
// back empty or maxEvents have been collected. It returns the advanced
// cursor together with the events, in arrival order.
//
// The cursor only ever moves to the id and creation timestamp of a record
// that was actually returned. When the first batch is already empty the
// input cursor comes back unchanged. On error the events collected so far
// are returned along with the last cursor that covers them, so the caller
// can still hand them off without losing its place.
func FetchEvents(ctx context.Context, src EventSearcher, cursor Cursor, maxEvents int, logger *zap.Logger) (Cursor, []Event, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxEvents <= 0 {
		return cursor, nil, &ValidationError{Message: "max events per fetch must be a positive integer"}
	}

	next := cursor
	var collected []Event
	remaining := maxEvents

	for remaining > 0 {
		logger.Debug("fetching events",
			zap.Int("remaining", remaining),
			zap.String("prev_id", next.PrevID),
			zap.String("prev_date", next.PrevDate))

		batch, err := src.SearchEvents(ctx, next, remaining)
		if err != nil {
			return next, collected, err
		}
		if len(batch) == 0 {
			logger.Debug("no more events to fetch")
			break
		}

		advanced, err := advanceCursor(next, batch)
		if err != nil {
			return next, collected, err
		}
		next = advanced
		collected = append(collected, batch...)
		remaining -= len(batch)

		logger.Debug("fetched batch",
			zap.Int("count", len(batch)),
			zap.String("prev_id", next.PrevID),
			zap.String("prev_date", next.PrevDate))
	}

	return next, collected, nil
}

// advanceCursor derives the next watermark from the last record of batch.
func advanceCursor(cur Cursor, batch []Event) (Cursor, error) {
	last := batch[len(batch)-1]
	id, _ := last.StringField("id")
	created, _ := last.StringField("created")
	if id == "" || created == "" {
		return cur, &UpstreamError{Reason: "event is missing its id or created timestamp, cannot advance cursor"}
	}
	return Cursor{PrevID: id, PrevDate: created}, nil
}

// StreamEvents returns an iterator over the same cursor protocol, fetching
// batches of pageSize lazily as the consumer advances. A pageSize of zero
// or less selects a default. The iterator stops at the first empty batch;
// a consumer that keeps the iterator alive sees new events only on a new
// call, matching the one-shot nature of SearchEvents.
func StreamEvents(ctx context.Context, src EventSearcher, cursor Cursor, pageSize int) iter.Seq2[Event, error] {
	if pageSize <= 0 {
		pageSize = defaultStreamPageSize
	}

	return func(yield func(Event, error) bool) {
		cur := cursor
		for {
			batch, err := src.SearchEvents(ctx, cur, pageSize)
			if err != nil {
				yield(nil, err)
				return
			}
			if len(batch) == 0 {
				return
			}

			for _, event := range batch {
				if err := ctx.Err(); err != nil {
					yield(nil, err)
					return
				}
				if !yield(event, nil) {
					return
				}
			}

			cur, err = advanceCursor(cur, batch)
			if err != nil {
				yield(nil, err)
				return
			}
		}
	}
}
