package model

import "time"

// ImportRecord marks an external id of a source as imported into an activity.
type ImportRecord struct {
	ID         int64     `json:"id"`
	Source     Source    `json:"source"`
	ExternalID string    `json:"external_id"`
	ActivityID int64     `json:"activity_id"`
	ImportedAt time.Time `json:"imported_at"`
}
