package gpx

import (
	"fmt"
	"math"
	"time"

	"github.com/okian/logbook/internal/domain/model"
)

// ToActivity maps an analysis to a hiking activity ready for import.
// The activity is dated by the first timestamp, or by now when the track has none.
func ToActivity(a Analysis, filename string, now time.Time) model.Activity {
	date := model.Today(now)
	if a.Start != nil {
		date = a.Start.UTC().Format(model.DateLayout)
	}
	name := a.Name
	if name == "" {
		name = BaseName(filename)
	}
	return model.Activity{
		Name:          name,
		Date:          date,
		Type:          model.TypeHiking,
		Duration:      Round(a.Duration, 1),
		Distance:      Round(a.Distance, 2),
		Elevation:     int(math.Round(a.ElevationGain)),
		Role:          "Participate",
		Category:      "Recreational",
		Weather:       "Unknown",
		StartLocation: "Unknown",
		EndLocation:   "Unknown",
		Comments:      fmt.Sprintf("Imported from GPX: %s", filename),
		Source:        model.SourceGPX,
		SourceID:      filename,
	}
}
