package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/coworking-booking/internal/model"
)

const dateLayout = "2006-01-02"

// Calendar converts between the business's local wall clock and absolute
// instants. All comparisons in this package happen on UTC instants; local
// dates and times of day are converted here and nowhere else.
type Calendar struct {
	Location    *time.Location
	Step        time.Duration
	HorizonDays int // 0 disables the horizon check
}

// NewCalendar builds a calendar for a fixed UTC offset in minutes.
func NewCalendar(offsetMinutes int, step time.Duration, horizonDays int) Calendar {
	if step <= 0 {
		step = 15 * time.Minute
	}
	return Calendar{
		Location:    time.FixedZone(zoneName(offsetMinutes), offsetMinutes*60),
		Step:        step,
		HorizonDays: horizonDays,
	}
}

func zoneName(offsetMinutes int) string {
	sign := "+"
	if offsetMinutes < 0 {
		sign = "-"
		offsetMinutes = -offsetMinutes
	}
	return fmt.Sprintf("UTC%s%02d:%02d", sign, offsetMinutes/60, offsetMinutes%60)
}

// ParseDate reads YYYY-MM-DD as a local calendar day and returns local midnight.
func (c Calendar) ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), c.Location)
	if err != nil {
		return time.Time{}, invalid("date", "expected YYYY-MM-DD")
	}
	return d, nil
}

// Day truncates an instant to local midnight of its local calendar day.
func (c Calendar) Day(t time.Time) time.Time {
	y, m, d := t.In(c.Location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.Location)
}

// At returns the UTC instant of a local time of day on the given local day.
func (c Calendar) At(day time.Time, tod model.TimeOfDay) time.Time {
	y, m, d := day.In(c.Location).Date()
	return time.Date(y, m, d, int(tod)/60, int(tod)%60, 0, 0, c.Location).UTC()
}

// Local renders an instant on the business wall clock.
func (c Calendar) Local(t time.Time) time.Time { return t.In(c.Location) }

// FormatDate renders the local calendar day of t.
func (c Calendar) FormatDate(t time.Time) string { return t.In(c.Location).Format(dateLayout) }

// InHorizon reports whether day lies between today and today+HorizonDays.
func (c Calendar) InHorizon(day, now time.Time) bool {
	today := c.Day(now)
	day = c.Day(day)
	if day.Before(today) {
		return false
	}
	if c.HorizonDays > 0 && day.After(today.AddDate(0, 0, c.HorizonDays)) {
		return false
	}
	return true
}
