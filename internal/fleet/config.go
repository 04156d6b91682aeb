package fleet

import "time"

// Config holds the simulation constants. Zero fields fall back to DefaultConfig.
type Config struct {
	TickInterval      time.Duration
	MobilizationDelay time.Duration

	// ArrivalThresholdKm is the distance under which an enroute vehicle arrives.
	ArrivalThresholdKm float64

	// Fractions of the remaining lat/lon delta covered per tick.
	EnrouteMoveFactor    float64
	DispatchedMoveFactor float64

	// Enroute speed ramps down from CruiseSpeedKmh by SlowdownPerKm for every
	// kilometer covered since the vehicle went enroute, never below MinSpeedKmh.
	CruiseSpeedKmh   float64
	MinSpeedKmh      float64
	SlowdownPerKm    float64
	DispatchSpeedKmh float64

	// ETASentinel is reported when a vehicle that has not arrived is standing still.
	ETASentinel int

	// A tick later than MissedTickTolerance periods after the previous one
	// counts as a missed deadline.
	MissedTickTolerance int

	GeohashPrecision uint
}

// DefaultConfig returns the reference simulation cadence and constants.
func DefaultConfig() Config {
	return Config{
		TickInterval:         2 * time.Second,
		MobilizationDelay:    8 * time.Second,
		ArrivalThresholdKm:   0.2,
		EnrouteMoveFactor:    0.0003,
		DispatchedMoveFactor: 0.0001,
		CruiseSpeedKmh:       45,
		MinSpeedKmh:          10,
		SlowdownPerKm:        30,
		DispatchSpeedKmh:     20,
		ETASentinel:          999,
		MissedTickTolerance:  3,
		GeohashPrecision:     7,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TickInterval <= 0 {
		c.TickInterval = d.TickInterval
	}
	if c.MobilizationDelay <= 0 {
		c.MobilizationDelay = d.MobilizationDelay
	}
	if c.ArrivalThresholdKm <= 0 {
		c.ArrivalThresholdKm = d.ArrivalThresholdKm
	}
	if c.EnrouteMoveFactor <= 0 || c.EnrouteMoveFactor > 1 {
		c.EnrouteMoveFactor = d.EnrouteMoveFactor
	}
	if c.DispatchedMoveFactor <= 0 || c.DispatchedMoveFactor > 1 {
		c.DispatchedMoveFactor = d.DispatchedMoveFactor
	}
	if c.CruiseSpeedKmh <= 0 {
		c.CruiseSpeedKmh = d.CruiseSpeedKmh
	}
	if c.MinSpeedKmh <= 0 || c.MinSpeedKmh > c.CruiseSpeedKmh {
		c.MinSpeedKmh = min(d.MinSpeedKmh, c.CruiseSpeedKmh)
	}
	if c.SlowdownPerKm < 0 {
		c.SlowdownPerKm = d.SlowdownPerKm
	}
	if c.DispatchSpeedKmh <= 0 {
		c.DispatchSpeedKmh = d.DispatchSpeedKmh
	}
	if c.ETASentinel <= 0 {
		c.ETASentinel = d.ETASentinel
	}
	if c.MissedTickTolerance <= 0 {
		c.MissedTickTolerance = d.MissedTickTolerance
	}
	if c.GeohashPrecision == 0 || c.GeohashPrecision > 12 {
		c.GeohashPrecision = d.GeohashPrecision
	}
	return c
}
