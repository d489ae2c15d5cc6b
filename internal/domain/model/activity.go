// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-date format used for activity dates and award dates.
const DateLayout = "2006-01-02"

// ActivityType enumerates the kinds of activity the logbook accepts.
type ActivityType string

const (
	TypeHiking  ActivityType = "Hiking"
	TypeCamping ActivityType = "Camping"
	TypeCycling ActivityType = "Cycling"
	TypeRunning ActivityType = "Running"
)

// Valid reports whether t is one of the known activity types.
func (t ActivityType) Valid() bool {
	switch t {
	case TypeHiking, TypeCamping, TypeCycling, TypeRunning:
		return true
	}
	return false
}

// Source names where an activity came from.
type Source string

const (
	SourceManual Source = "manual"
	SourceGPX    Source = "gpx"
	SourceStrava Source = "strava"
)

// Importable reports whether s has an import ledger.
func (s Source) Importable() bool {
	return s == SourceGPX || s == SourceStrava
}

// Activity is one logged outing.
type Activity struct {
	ID                 int64        `json:"id"`
	Name               string       `json:"name"`
	Date               string       `json:"date"`
	Type               ActivityType `json:"type"`
	Duration           float64      `json:"duration"`
	Distance           float64      `json:"distance"`
	Elevation          int          `json:"elevation"`
	Nights             int          `json:"nights"`
	Role               string       `json:"role"`
	Category           string       `json:"category"`
	Weather            string       `json:"weather"`
	StartLocation      string       `json:"start_location"`
	EndLocation        string       `json:"end_location"`
	Comments           string       `json:"comments"`
	IsScoutingActivity bool         `json:"is_scouting_activity"`
	Source             Source       `json:"source"`
	SourceID           string       `json:"source_id,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
}

// Normalize trims text fields and fills the source default.
func (a *Activity) Normalize() {
	a.Name = strings.TrimSpace(a.Name)
	a.Date = strings.TrimSpace(a.Date)
	a.Role = strings.TrimSpace(a.Role)
	a.Category = strings.TrimSpace(a.Category)
	a.Weather = strings.TrimSpace(a.Weather)
	a.StartLocation = strings.TrimSpace(a.StartLocation)
	a.EndLocation = strings.TrimSpace(a.EndLocation)
	if a.Source == "" {
		a.Source = SourceManual
	}
}

// Validate checks required fields and value ranges.
func (a Activity) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if a.Date == "" {
		return fmt.Errorf("%w: date is required", ErrValidation)
	}
	if _, err := time.Parse(DateLayout, a.Date); err != nil {
		return fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrValidation, a.Date)
	}
	if !a.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrValidation, a.Type)
	}
	if a.Duration < 0 || a.Distance < 0 || a.Elevation < 0 || a.Nights < 0 {
		return fmt.Errorf("%w: duration, distance, elevation and nights must not be negative", ErrValidation)
	}
	switch a.Source {
	case SourceManual, SourceGPX, SourceStrava:
	default:
		return fmt.Errorf("%w: unknown source %q", ErrValidation, a.Source)
	}
	return nil
}

// Totals aggregates every stored activity.
type Totals struct {
	Activities int     `json:"activities"`
	Distance   float64 `json:"distance"`
	Duration   float64 `json:"duration"`
	Nights     int     `json:"nights"`
}

// MonthlyStat is the activity count and distance for one calendar month (YYYY-MM).
type MonthlyStat struct {
	Month    string  `json:"month"`
	Count    int     `json:"count"`
	Distance float64 `json:"distance"`
}

// Stats is the dashboard summary.
type Stats struct {
	Totals  Totals        `json:"totals"`
	Monthly []MonthlyStat `json:"monthly"`
	Recent  []Activity    `json:"recent"`
}
