package workouts

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// Date is a calendar date without a time component, kept at midnight UTC.
type Date struct {
	time.Time
}

func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return NewDate(t), nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// AddDays returns the date n calendar days later (or earlier for negative n).
func (d Date) AddDays(n int) Date {
	return NewDate(d.Time.AddDate(0, 0, n))
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

type Workout struct {
	ID        int       `json:"id"`
	UserID    string    `json:"user_id"`
	Date      Date      `json:"date"`
	Distance  float64   `json:"distance"`
	Duration  int       `json:"duration"`
	Pace      string    `json:"pace"`
	CreatedAt time.Time `json:"created_at"`
}

// NewWorkoutRequest is the body of a new workout submission. Pace is optional
// and never trusted: it is recomputed from distance and duration.
type NewWorkoutRequest struct {
	Date     string  `json:"date"`
	Distance float64 `json:"distance"`
	Duration int     `json:"duration"`
	Pace     string  `json:"pace,omitempty"`
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ToWorkout validates the request and builds the workout to persist.
func (r NewWorkoutRequest) ToWorkout(userID string) (Workout, error) {
	if strings.TrimSpace(r.Date) == "" {
		return Workout{}, &ValidationError{Field: "date", Message: "required"}
	}
	date, err := ParseDate(r.Date)
	if err != nil {
		return Workout{}, &ValidationError{Field: "date", Message: "expected YYYY-MM-DD"}
	}

	w := Workout{
		UserID:   userID,
		Date:     date,
		Distance: r.Distance,
		Duration: r.Duration,
	}
	if err := w.Validate(); err != nil {
		return Workout{}, err
	}
	w.Pace = CalculatePace(w.Distance, float64(w.Duration))
	return w, nil
}

func (w Workout) Validate() error {
	if w.UserID == "" {
		return &ValidationError{Field: "user_id", Message: "required"}
	}
	if w.Date.IsZero() {
		return &ValidationError{Field: "date", Message: "required"}
	}
	if w.Distance <= 0 {
		return &ValidationError{Field: "distance", Message: "must be greater than 0"}
	}
	if w.Duration <= 0 {
		return &ValidationError{Field: "duration", Message: "must be greater than 0"}
	}
	return nil
}
