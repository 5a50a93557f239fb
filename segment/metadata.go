package segment

import (
	"encoding/json"
	"fmt"
)

// CreationReason tells why a segment was started. It is the reason the previous segment was
// flushed, or [ReasonInit] for the first one.
type CreationReason string

const (
	ReasonInit          CreationReason = "init"
	ReasonDurationLimit CreationReason = "segment_duration_limit"
	ReasonBytesLimit    CreationReason = "segment_bytes_limit"
	ReasonViewChange    CreationReason = "view_change"
	ReasonBeforeUnload  CreationReason = "before_unload"
)

// Ref references an entity by id.
type Ref struct {
	ID string `json:"id"`
}

// Context tells which application, session and view records belong to.
type Context struct {
	Application string
	Session     string
	View        string
}

// Metadata describes a finished segment. It is appended to the segment body and stored
// alongside it.
type Metadata struct {
	Application     Ref            `json:"application"`
	Session         Ref            `json:"session"`
	View            Ref            `json:"view"`
	Start           int64          `json:"start"`
	End             int64          `json:"end"`
	RecordsCount    int            `json:"records_count"`
	CreationReason  CreationReason `json:"creation_reason"`
	HasFullSnapshot bool           `json:"has_full_snapshot"`
	IndexInView     int            `json:"index_in_view"`
	Source          string         `json:"source"`
}

func newMetadata(ctx Context, reason CreationReason, indexInView int, source string) Metadata {
	return Metadata{
		Application:    Ref{ID: ctx.Application},
		Session:        Ref{ID: ctx.Session},
		View:           Ref{ID: ctx.View},
		CreationReason: reason,
		IndexInView:    indexInView,
		Source:         source,
	}
}

func (m *Metadata) add(record Record) {
	if m.RecordsCount == 0 {
		m.Start, m.End = record.Timestamp, record.Timestamp
	} else {
		m.Start = min(m.Start, record.Timestamp)
		m.End = max(m.End, record.Timestamp)
	}
	m.RecordsCount++
	if record.Type == RecordFullSnapshot {
		m.HasFullSnapshot = true
	}
}

// tail closes the records array and appends the metadata fields to the segment body.
func (m *Metadata) tail() (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	return "]," + string(data[1:]) + "\n", nil
}

// Segment is a finished, compressed segment.
type Segment struct {
	// Data is the zlib compressed segment body.
	Data []byte
	// Metadata describes the records in the segment.
	Metadata Metadata
	// RawSize is the uncompressed length of Data.
	RawSize int
}
