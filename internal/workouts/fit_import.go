package workouts

import (
	"fmt"
	"io"
	"math"

	"github.com/tormoder/fit"
)

// DecodeFIT reads a FIT activity file and converts its running sessions to workouts
// for the given user. Sessions of other sports, or without distance/time, are skipped.
func DecodeFIT(r io.Reader, userID string) ([]Workout, error) {
	decoded, err := fit.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode fit: %w", err)
	}
	activity, err := decoded.Activity()
	if err != nil {
		return nil, fmt.Errorf("fit activity: %w", err)
	}
	return SessionsToWorkouts(activity.Sessions, userID), nil
}

func SessionsToWorkouts(sessions []*fit.SessionMsg, userID string) []Workout {
	var workouts []Workout
	for _, s := range sessions {
		if s == nil || s.Sport != fit.SportRunning {
			continue
		}

		meters := s.GetTotalDistanceScaled()
		seconds := s.GetTotalTimerTimeScaled()
		if math.IsNaN(meters) || math.IsNaN(seconds) || meters <= 0 || seconds <= 0 {
			continue
		}

		distance := math.Round(meters/10) / 100
		duration := int(math.Round(seconds / 60))
		if distance <= 0 || duration <= 0 {
			continue
		}

		workouts = append(workouts, Workout{
			UserID:   userID,
			Date:     NewDate(s.StartTime.UTC()),
			Distance: distance,
			Duration: duration,
			Pace:     CalculatePace(distance, float64(duration)),
		})
	}
	return workouts
}
