package domain

import (
	"time"
)

// AccessLogEntry is one append-only audit record for an interactive session.
// It is created before the session attaches, so a crash mid-session still
// leaves a start record. TsEnd is set exactly once when the session finalizes.
type AccessLogEntry struct {
	ID             int64
	Username       string
	ContainerName  string
	TsStart        time.Time
	TsEnd          *time.Time
	TranscriptPath string
}

// Open returns true while the entry has no end timestamp.
func (e *AccessLogEntry) Open() bool {
	return e.TsEnd == nil
}
