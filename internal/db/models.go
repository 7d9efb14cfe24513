// Package db is the local SQLite cache of meetings and their transcripts, so
// review works without the backend.
package db

import "time"

// Meeting is a cached meeting.
type Meeting struct {
	ID        string
	Title     string
	Status    string
	Segments  int // number of cached segments
	CreatedAt time.Time
	UpdatedAt time.Time
}
