package workouts

// WeeklyBucket is the total distance run on one day of the week.
type WeeklyBucket struct {
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
}

var dayNames = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// AggregateWeekly sums workout distances per weekday and returns the 7 buckets
// starting on Monday. Input order does not matter.
func AggregateWeekly(workouts []Workout) []WeeklyBucket {
	var totals [7]float64
	for _, w := range workouts {
		totals[int(w.Date.Weekday())] += w.Distance
	}

	buckets := make([]WeeklyBucket, 0, 7)
	for i := 1; i <= 7; i++ {
		day := i % 7
		buckets = append(buckets, WeeklyBucket{
			Name:     dayNames[day],
			Distance: totals[day],
		})
	}
	return buckets
}

// WeekWindowStart is the first day of the 7 calendar days ending today.
func WeekWindowStart(today Date) Date {
	return today.AddDays(-6)
}
