package model

import "time"

// AwardType is the metric an award threshold is compared against.
type AwardType string

const (
	// AwardCamping compares against the total number of nights.
	AwardCamping AwardType = "camping"
	// AwardWalkabout compares against the total distance in km.
	AwardWalkabout AwardType = "walkabout"
)

// AwardTypes lists the known award types in display order.
var AwardTypes = []AwardType{AwardCamping, AwardWalkabout}

// AwardDefinition is a catalog entry.
type AwardDefinition struct {
	ID          int64     `json:"award_id" yaml:"-"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"`
	Icon        string    `json:"icon" yaml:"icon"`
	Type        AwardType `json:"type" yaml:"type"`
	Value       float64   `json:"value" yaml:"value"`
}

// EarnedAward joins a grant with its catalog entry.
type EarnedAward struct {
	AwardDefinition
	DateEarned string `json:"date_earned"`
}

// Today returns the calendar date of now in UTC.
func Today(now time.Time) string {
	return now.UTC().Format(DateLayout)
}
