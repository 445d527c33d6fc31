package models

import "time"

// Snapshot is a cached, ordered view of one search results page. Paths
// holds the canonical form of every item link in document order, so the
// 1-based rank of an entry is its index plus one.
type Snapshot struct {
	SourceURL string
	FetchedAt time.Time
	Paths     []string
}

// RankOf returns the 1-based rank of the first entry equal to the given
// canonical path, or 0 when the listing does not appear. First occurrence
// wins when the same path is listed more than once.
func (s *Snapshot) RankOf(canonical string) int {
	for i, path := range s.Paths {
		if path == canonical {
			return i + 1
		}
	}
	return 0
}

// Age returns how long ago the snapshot was fetched.
func (s *Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.FetchedAt)
}
