package importer

import "time"

// Config holds configuration for a bulk GPX import.
type Config struct {
	BaseURL string        // Base URL of the logbook service
	Dir     string        // Directory scanned for .gpx files
	Workers int           // Concurrent uploads
	Timeout time.Duration // Per-request timeout
	// ProcessAwards runs an award pass after the uploads.
	ProcessAwards bool
	Verbose       bool
}

// Stats holds the outcome of a run.
type Stats struct {
	Files     int
	Skipped   int // already in the ledger before the run
	Shadowed  int // same base name as an earlier file
	Imported  int
	Duplicate int
	Failed    int
	Granted   int
	StartTime time.Time
	Duration  time.Duration
}

// uploadResult is the service's reply to a successful upload.
type uploadResult struct {
	ID         int64 `json:"id"`
	ActivityID int64 `json:"activity_id"`
}

type duplicateResult struct {
	Exists bool `json:"exists"`
}

type processResult struct {
	Granted int `json:"granted"`
}
