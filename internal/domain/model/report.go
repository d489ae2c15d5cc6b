package model

import "time"

// Report is the summary sent by the report operation.
type Report struct {
	UserID          int64         `json:"user_id"`
	Activities      int           `json:"total_activities"`
	Distance        float64       `json:"total_distance"`
	Nights          int           `json:"total_nights"`
	AverageDistance float64       `json:"avg_distance"`
	Awards          []EarnedAward `json:"awards"`
	GeneratedAt     time.Time     `json:"generated_at"`
}
