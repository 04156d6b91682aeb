// Package markers renders fleet snapshots in the shapes map layers expect.
package markers

import (
	"fmt"
	"strings"
	"time"

	"github.com/ukydev/ambulance-tracker/internal/geo"
	"github.com/ukydev/ambulance-tracker/internal/models"
)

// Format selects a marker payload shape.
type Format string

const (
	// FormatRaw is the snapshot as-is.
	FormatRaw Format = "raw"
	// FormatGoogle uses {lat, lng} objects.
	FormatGoogle Format = "google"
	// FormatMapbox is a GeoJSON FeatureCollection with [lng, lat] coordinates.
	FormatMapbox Format = "mapbox"
)

// ParseFormat maps a query value to a Format. The empty string is FormatRaw.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatRaw:
		return FormatRaw, nil
	case FormatGoogle, FormatMapbox:
		return f, nil
	default:
		return "", fmt.Errorf("unknown marker format %q", s)
	}
}

type GoogleMarker struct {
	ID          string      `json:"id"`
	Label       string      `json:"display_label"`
	Position    geo.LatLng  `json:"position"`
	Status      string      `json:"status"`
	Speed       float64     `json:"speed"`
	DistanceKm  float64     `json:"distance_km"`
	ETAMinutes  int         `json:"eta_minutes"`
	Heading     float64     `json:"heading"`
	Destination *geo.LatLng `json:"destination,omitempty"`
	Distance    string      `json:"distance_text"`
	ETA         string      `json:"eta_text"`
}

type GoogleSnapshot struct {
	Sequence  uint64         `json:"sequence"`
	Timestamp time.Time      `json:"timestamp"`
	Markers   []GoogleMarker `json:"markers"`
}

type FeatureCollection struct {
	Type     string    `json:"type"`
	Sequence uint64    `json:"sequence"`
	Features []Feature `json:"features"`
}

type Feature struct {
	Type       string     `json:"type"`
	Geometry   Geometry   `json:"geometry"`
	Properties Properties `json:"properties"`
}

type Geometry struct {
	Type        string     `json:"type"`
	Coordinates geo.LngLat `json:"coordinates"`
}

type Properties struct {
	ID          string      `json:"id"`
	Label       string      `json:"display_label"`
	Status      string      `json:"status"`
	Speed       float64     `json:"speed"`
	DistanceKm  float64     `json:"distance_km"`
	ETAMinutes  int         `json:"eta_minutes"`
	Heading     float64     `json:"heading"`
	RequestID   string      `json:"request_id,omitempty"`
	Destination *geo.LngLat `json:"destination,omitempty"`
}

// Render converts snap into the payload for f.
func Render(snap models.Snapshot, f Format) interface{} {
	switch f {
	case FormatGoogle:
		return Google(snap)
	case FormatMapbox:
		return Mapbox(snap)
	default:
		return snap
	}
}

func Google(snap models.Snapshot) GoogleSnapshot {
	out := GoogleSnapshot{
		Sequence:  snap.Sequence,
		Timestamp: snap.Timestamp,
		Markers:   make([]GoogleMarker, 0, len(snap.Vehicles)),
	}
	for _, v := range snap.Vehicles {
		m := GoogleMarker{
			ID:         v.ID,
			Label:      v.CallSign,
			Position:   geo.ToLatLng(v.Position),
			Status:     string(v.Status),
			Speed:      v.Speed,
			DistanceKm: v.DistanceKm,
			ETAMinutes: v.ETAMinutes,
			Heading:    v.Heading,
			Distance:   geo.FormatDistance(v.DistanceKm * 1000),
			ETA:        geo.FormatDuration(float64(v.ETAMinutes) * 60),
		}
		if v.Destination != nil {
			d := geo.ToLatLng(v.Destination.Location)
			m.Destination = &d
		}
		out.Markers = append(out.Markers, m)
	}
	return out
}

func Mapbox(snap models.Snapshot) FeatureCollection {
	out := FeatureCollection{
		Type:     "FeatureCollection",
		Sequence: snap.Sequence,
		Features: make([]Feature, 0, len(snap.Vehicles)),
	}
	for _, v := range snap.Vehicles {
		f := Feature{
			Type:     "Feature",
			Geometry: Geometry{Type: "Point", Coordinates: geo.ToLngLat(v.Position)},
			Properties: Properties{
				ID:         v.ID,
				Label:      v.CallSign,
				Status:     string(v.Status),
				Speed:      v.Speed,
				DistanceKm: v.DistanceKm,
				ETAMinutes: v.ETAMinutes,
				Heading:    v.Heading,
				RequestID:  v.RequestID,
			},
		}
		if v.Destination != nil {
			d := geo.ToLngLat(v.Destination.Location)
			f.Properties.Destination = &d
		}
		out.Features = append(out.Features, f)
	}
	return out
}
