package domain

import "time"

// Snapshot is an immutable, timestamped copy of a session's transcript and
// progress, taken at save time and independent of the live session thereafter.
type Snapshot struct {
	Name            string    `json:"name"`
	Timestamp       time.Time `json:"timestamp"`
	Messages        []Message `json:"messages"`
	ProgressPercent int       `json:"progress_percent"`
}
