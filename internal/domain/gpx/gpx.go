// Package gpx parses GPX tracks and summarizes them for activity import.
package gpx

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"
	"time"

	gpxgo "github.com/tkrajina/gpxgo/gpx"
)

const earthRadiusKm = 6371.0

// Point is one parsed track point.
type Point struct {
	Lat    float64
	Lon    float64
	Ele    float64
	HasEle bool
	Time   time.Time
}

// Track is a parsed GPX document.
type Track struct {
	Name   string
	Points []Point
}

// Analysis summarizes a track.
type Analysis struct {
	Name          string     `json:"name"`
	Distance      float64    `json:"distance"`
	ElevationGain float64    `json:"elevation"`
	MinElevation  float64    `json:"min_elevation"`
	MaxElevation  float64    `json:"max_elevation"`
	Duration      float64    `json:"duration"`
	Points        int        `json:"points"`
	Start         *time.Time `json:"start,omitempty"`
	End           *time.Time `json:"end,omitempty"`
}

// Parse reads a GPX 1.0 or 1.1 document. filename supplies the track name
// when the document has neither a track nor a metadata name.
func Parse(r io.Reader, filename string) (Track, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return Track{}, fmt.Errorf("%w: read: %w", ErrInvalidGPX, err)
	}
	if !bytes.Contains(body, []byte("<gpx")) {
		return Track{}, fmt.Errorf("%w: no gpx element", ErrInvalidGPX)
	}
	doc, err := gpxgo.ParseBytes(body)
	if err != nil {
		return Track{}, fmt.Errorf("%w: %w", ErrInvalidGPX, err)
	}

	var t Track
	for _, trk := range doc.Tracks {
		if t.Name == "" {
			t.Name = strings.TrimSpace(trk.Name)
		}
		for _, seg := range trk.Segments {
			for _, gp := range seg.Points {
				t.Points = append(t.Points, toPoint(gp))
			}
		}
	}
	if t.Name == "" {
		t.Name = strings.TrimSpace(doc.Name)
	}
	if t.Name == "" {
		t.Name = BaseName(filename)
	}
	return t, nil
}

func toPoint(gp gpxgo.GPXPoint) Point {
	p := Point{Lat: gp.Latitude, Lon: gp.Longitude}
	if gp.Elevation.NotNull() {
		p.Ele, p.HasEle = gp.Elevation.Value(), true
	}
	if !gp.Timestamp.IsZero() {
		p.Time = gp.Timestamp.UTC()
	}
	return p
}

// BaseName strips directories and the extension from filename.
func BaseName(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Analyze computes distance, climb and duration. It needs at least two points.
func Analyze(t Track) (Analysis, error) {
	if len(t.Points) < 2 {
		return Analysis{}, fmt.Errorf("%w: got %d, need at least 2", ErrNoPoints, len(t.Points))
	}

	a := Analysis{Name: t.Name, Points: len(t.Points)}
	seenEle := false
	for i, cur := range t.Points {
		if i > 0 {
			prev := t.Points[i-1]
			a.Distance += Haversine(prev.Lat, prev.Lon, cur.Lat, cur.Lon)
			if prev.HasEle && cur.HasEle && cur.Ele > prev.Ele {
				a.ElevationGain += cur.Ele - prev.Ele
			}
		}
		if !cur.HasEle {
			continue
		}
		if !seenEle {
			a.MinElevation, a.MaxElevation, seenEle = cur.Ele, cur.Ele, true
			continue
		}
		a.MinElevation = math.Min(a.MinElevation, cur.Ele)
		a.MaxElevation = math.Max(a.MaxElevation, cur.Ele)
	}

	// duration spans the first and last points that carry a timestamp
	first, last := -1, -1
	for i, p := range t.Points {
		if p.Time.IsZero() {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
	}
	if first >= 0 {
		start, end := t.Points[first].Time, t.Points[last].Time
		a.Start, a.End = &start, &end
		a.Duration = math.Max(0, end.Sub(start).Hours())
	}
	return a, nil
}

// Haversine returns the great-circle distance in kilometres.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// Round rounds v to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
