package segment

import "encoding/json"

// RecordType identifies the kind of a replay record.
type RecordType int

const (
	RecordDOMContentLoaded    RecordType = 0
	RecordLoad                RecordType = 1
	RecordFullSnapshot        RecordType = 2
	RecordIncrementalSnapshot RecordType = 3
	RecordMeta                RecordType = 4
	RecordFocus               RecordType = 6
	RecordViewEnd             RecordType = 7
	RecordVisualViewport      RecordType = 8
	RecordFrustration         RecordType = 9
)

// Record is a single replay record. Data is kept as raw JSON and never inspected.
type Record struct {
	Type      RecordType      `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}
