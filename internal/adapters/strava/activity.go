package strava

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/okian/logbook/internal/domain/model"
)

// Activity is the subset of a Strava summary activity the logbook reads.
type Activity struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Type               string    `json:"type"`
	SportType          string    `json:"sport_type,omitempty"`
	StartDateLocal     string    `json:"start_date_local"`
	Distance           float64   `json:"distance"`
	MovingTime         int64     `json:"moving_time"`
	TotalElevationGain float64   `json:"total_elevation_gain"`
	StartLatLng        []float64 `json:"start_latlng,omitempty"`
	EndLatLng          []float64 `json:"end_latlng,omitempty"`
	Description        string    `json:"description,omitempty"`
	Imported           bool      `json:"imported"`
}

var outdoorTypes = map[string]model.ActivityType{
	"Ride":    model.TypeCycling,
	"Cycling": model.TypeCycling,
	"Run":     model.TypeRunning,
	"Running": model.TypeRunning,
	"Hike":    model.TypeHiking,
	"Hiking":  model.TypeHiking,
	"Walk":    model.TypeHiking,
}

// Outdoor reports whether the activity type is one the logbook imports.
func (a Activity) Outdoor() bool {
	_, ok := outdoorTypes[a.Type]
	return ok
}

// ExternalID is the ledger key for the activity.
func (a Activity) ExternalID() string {
	return strconv.FormatInt(a.ID, 10)
}

// FilterOutdoor keeps only outdoor activities, preserving order.
func FilterOutdoor(in []Activity) []Activity {
	out := make([]Activity, 0, len(in))
	for _, a := range in {
		if a.Outdoor() {
			out = append(out, a)
		}
	}
	return out
}

// ToActivity maps a Strava activity onto a logbook activity.
func (a Activity) ToActivity() model.Activity {
	typ, ok := outdoorTypes[a.Type]
	if !ok {
		typ = model.TypeHiking
	}
	date, _, _ := strings.Cut(a.StartDateLocal, "T")

	comments := "Imported from Strava. Original ID: " + a.ExternalID()
	if a.Description != "" {
		comments += "\n\nOriginal description: " + a.Description
	}

	return model.Activity{
		Name:          a.Name,
		Date:          date,
		Type:          typ,
		Duration:      round1(float64(a.MovingTime) / 3600),
		Distance:      round1(a.Distance / 1000),
		Elevation:     int(math.Round(a.TotalElevationGain)),
		Role:          "Participate",
		Category:      "Recreational",
		Weather:       "Unknown",
		StartLocation: latLng(a.StartLatLng),
		EndLocation:   latLng(a.EndLatLng),
		Comments:      comments,
		Source:        model.SourceStrava,
		SourceID:      a.ExternalID(),
	}
}

func latLng(p []float64) string {
	if len(p) < 2 {
		return "Strava Import"
	}
	return fmt.Sprintf("%.4f, %.4f", p[0], p[1])
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
