package geo

import (
	"fmt"
	"math"
)

// ETAMinutes converts a distance and speed into whole minutes, rounded up.
// ok is false when speed is not positive.
func ETAMinutes(distanceKm, speedKmh float64) (minutes int, ok bool) {
	if speedKmh <= 0 || math.IsNaN(speedKmh) || math.IsNaN(distanceKm) {
		return 0, false
	}
	return int(math.Ceil(distanceKm / speedKmh * 60)), true
}

// FormatDistance renders meters as "850m" below one kilometer and "1.2km" above.
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%dm", int(math.Round(meters)))
	}
	return fmt.Sprintf("%.1fkm", meters/1000)
}

// FormatDuration renders seconds as "12 min" or "1h 5m".
func FormatDuration(seconds float64) string {
	minutes := int(math.Floor(seconds / 60))
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
