package recommendation

import (
	"math"
	"time"

	"github.com/2beens/runlog/internal/workouts"
)

const (
	// RecentWorkoutsLimit is how many of the latest workouts feed a recommendation.
	RecentWorkoutsLimit = 5

	defaultDistance = 5.0
	defaultDuration = 30.0

	TypeRestDay = "Rest Day"
)

type Recommendation struct {
	Type           string  `json:"type"`
	Recommendation string  `json:"recommendation"`
	Distance       float64 `json:"distance"`
	Duration       int     `json:"duration"`
}

type archetype struct {
	name               string
	distanceMultiplier float64
	durationMultiplier float64
	description        string
}

var archetypes = [...]archetype{
	{
		name:               "Easy Run",
		distanceMultiplier: 0.8,
		durationMultiplier: 1.1,
		description:        "Focus on maintaining a comfortable pace",
	},
	{
		name:               "Long Run",
		distanceMultiplier: 1.3,
		durationMultiplier: 1.4,
		description:        "Build endurance with a longer distance",
	},
	{
		name:               "Speed Work",
		distanceMultiplier: 0.7,
		durationMultiplier: 0.8,
		description:        "Include intervals at a faster pace",
	},
}

var restDay = Recommendation{
	Type:           TypeRestDay,
	Recommendation: "Take a rest day to recover and prevent injury.",
}

// Recommend suggests the next workout. recent must be ordered most recent first;
// only the first RecentWorkoutsLimit entries are considered.
func Recommend(recent []workouts.Workout, now time.Time) Recommendation {
	if len(recent) > RecentWorkoutsLimit {
		recent = recent[:RecentWorkoutsLimit]
	}

	avgDistance, avgDuration := defaultDistance, defaultDuration
	if len(recent) > 0 {
		var totalDistance float64
		var totalDuration int
		for _, w := range recent {
			totalDistance += w.Distance
			totalDuration += w.Duration
		}
		avgDistance = totalDistance / float64(len(recent))
		avgDuration = float64(totalDuration) / float64(len(recent))

		if daysSince(recent[0].Date, now) < 1 {
			return restDay
		}
	}

	a := archetypes[len(recent)%len(archetypes)]
	return Recommendation{
		Type:           a.name,
		Recommendation: a.description,
		Distance:       math.Round(avgDistance*a.distanceMultiplier*10) / 10,
		Duration:       int(math.Round(avgDuration * a.durationMultiplier)),
	}
}

// daysSince counts whole days between the start of date (UTC) and now.
func daysSince(date workouts.Date, now time.Time) int {
	return int(math.Floor(now.Sub(date.Time).Hours() / 24))
}
