package geo

import "github.com/ukydev/ambulance-tracker/internal/models"

// LatLng is the {lat, lng} object shape expected by Google-style map layers.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// LngLat is the [longitude, latitude] pair used by GeoJSON and Mapbox.
type LngLat [2]float64

func ToLatLng(loc models.Location) LatLng { return LatLng{Lat: loc.Lat, Lng: loc.Lon} }

func FromLatLng(p LatLng) models.Location { return models.Location{Lat: p.Lat, Lon: p.Lng} }

func ToLngLat(loc models.Location) LngLat { return LngLat{loc.Lon, loc.Lat} }

func FromLngLat(p LngLat) models.Location { return models.Location{Lat: p[1], Lon: p[0]} }
