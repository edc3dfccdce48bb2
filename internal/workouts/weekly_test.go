package workouts

import (
	"math"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, s string) Date {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestAggregateWeekly(t *testing.T) {
	// 2024-01-01 is a Monday
	workouts := []Workout{
		{Date: mustDate(t, "2024-01-07"), Distance: 10},  // Sun
		{Date: mustDate(t, "2024-01-01"), Distance: 5},   // Mon
		{Date: mustDate(t, "2024-01-01"), Distance: 2.5}, // Mon, same day sums
		{Date: mustDate(t, "2024-01-03"), Distance: 8},   // Wed
		{Date: mustDate(t, "2024-01-06"), Distance: 12},  // Sat
	}

	buckets := AggregateWeekly(workouts)
	assert.Equal(t, []WeeklyBucket{
		{Name: "Mon", Distance: 7.5},
		{Name: "Tue", Distance: 0},
		{Name: "Wed", Distance: 8},
		{Name: "Thu", Distance: 0},
		{Name: "Fri", Distance: 0},
		{Name: "Sat", Distance: 12},
		{Name: "Sun", Distance: 10},
	}, buckets)
}

func TestAggregateWeekly_Empty(t *testing.T) {
	buckets := AggregateWeekly(nil)
	require.Len(t, buckets, 7)
	assert.Equal(t, "Mon", buckets[0].Name)
	assert.Equal(t, "Sun", buckets[6].Name)
	for _, b := range buckets {
		assert.Zero(t, b.Distance)
	}
}

func TestAggregateWeekly_SumPreserved(t *testing.T) {
	faker := gofakeit.New(7)
	start := mustDate(t, "2024-03-01")

	for round := 0; round < 50; round++ {
		n := faker.IntRange(0, 30)
		workouts := make([]Workout, 0, n)
		var inputSum float64
		for i := 0; i < n; i++ {
			distance := math.Round(faker.Float64Range(0.5, 42)*100) / 100
			inputSum += distance
			workouts = append(workouts, Workout{
				Date:     start.AddDays(faker.IntRange(0, 60)),
				Distance: distance,
			})
		}

		buckets := AggregateWeekly(workouts)
		require.Len(t, buckets, 7)
		assert.Equal(t, "Mon", buckets[0].Name)

		var bucketSum float64
		for _, b := range buckets {
			bucketSum += b.Distance
		}
		assert.InDelta(t, inputSum, bucketSum, 1e-6)
	}
}

func TestWeekWindowStart(t *testing.T) {
	assert.Equal(t, "2024-01-01", WeekWindowStart(mustDate(t, "2024-01-07")).String())
	assert.Equal(t, "2023-12-27", WeekWindowStart(mustDate(t, "2024-01-02")).String())
}
