package workouts

import (
	"fmt"
	"math"
)

// CalculatePace returns minutes per kilometer formatted as M:SS.
// distance must be greater than 0.
func CalculatePace(distance, duration float64) string {
	paceMinutes := duration / distance
	minutes := math.Floor(paceMinutes)
	seconds := math.Round((paceMinutes - minutes) * 60)
	if seconds >= 60 {
		minutes++
		seconds -= 60
	}
	return fmt.Sprintf("%d:%02d", int(minutes), int(seconds))
}
