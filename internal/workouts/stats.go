package workouts

import "math"

type Stats struct {
	TotalDistance float64 `json:"total_distance"`
	AveragePace   string  `json:"average_pace"`
	Count         int     `json:"count"`
}

func CalculateStats(workouts []Workout) Stats {
	if len(workouts) == 0 {
		return Stats{AveragePace: "0:00"}
	}

	var totalDistance float64
	var totalDuration int
	for _, w := range workouts {
		totalDistance += w.Distance
		totalDuration += w.Duration
	}

	return Stats{
		TotalDistance: math.Round(totalDistance*100) / 100,
		AveragePace:   CalculatePace(totalDistance, float64(totalDuration)),
		Count:         len(workouts),
	}
}
