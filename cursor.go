package siemfeed

// Cursor is the durable fetch watermark: the id and creation timestamp of
// the last event handed downstream. Both values always come from an
// actually-returned record, never from wall-clock guesses, so a crash
// between fetches replays events instead of skipping them.
type Cursor struct {
	PrevID   string `json:"prev_id"`
	PrevDate string `json:"prev_date"`
}

// IsZero reports whether the cursor has never been advanced.
func (c Cursor) IsZero() bool {
	return c.PrevID == "" && c.PrevDate == ""
}
