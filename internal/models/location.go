package models

// Location represents a geographical location with latitude and longitude coordinates.
type Location struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lon float64 `bson:"lon" json:"lon"`
}

// Destination is an incident location a vehicle is dispatched to.
type Destination struct {
	Location `bson:",inline"`
	Address  string `bson:"address,omitempty" json:"address,omitempty"`
}
