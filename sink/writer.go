package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	siemfeed "github.com/tphakala/go-siemfeed"
)

// Writer streams events as NDJSON, one event per line. It is the default
// sink for interactive use, typically over os.Stdout.
type Writer struct {
	enc *json.Encoder
}

// NewWriter creates a Writer sink over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: json.NewEncoder(w)}
}

// Ingest writes each event on its own line. The dataset tags are not
// rendered; interactive output carries them implicitly.
func (s *Writer) Ingest(_ context.Context, events []siemfeed.Event, _, _ string) error {
	for _, event := range events {
		if err := s.enc.Encode(event); err != nil {
			return fmt.Errorf("encoding event: %w", err)
		}
	}
	return nil
}

var _ siemfeed.Sink = (*Writer)(nil)
