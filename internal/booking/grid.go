package booking

import (
	"time"

	"github.com/iliyamo/coworking-booking/internal/model"
)

// Grid is the ordered set of candidate start instants for one resource on
// one local day. Points run from Open in Step increments while strictly
// before Close; Close itself is never a start point.
type Grid struct {
	Day    time.Time
	Open   time.Time
	Close  time.Time
	Step   time.Duration
	Points []time.Time
}

// Empty reports whether there is nothing to book on this day.
func (g Grid) Empty() bool { return len(g.Points) == 0 }

// Index locates t among the grid points.
func (g Grid) Index(t time.Time) (int, bool) {
	if g.Empty() || t.Before(g.Open) || !t.Before(g.Close) {
		return 0, false
	}
	off := t.Sub(g.Open)
	if off%g.Step != 0 {
		return 0, false
	}
	i := int(off / g.Step)
	return i, i < len(g.Points)
}

// Grid builds the slot grid for res on day. The result is empty when the
// resource is not bookable, its opening window is empty, or the day falls
// outside the booking horizon relative to now.
func (c Calendar) Grid(day time.Time, res model.Resource, now time.Time) Grid {
	day = c.Day(day)
	g := Grid{
		Day:   day,
		Open:  c.At(day, res.OpenTime),
		Close: c.At(day, res.CloseTime),
		Step:  c.Step,
	}
	if !res.Bookable() || !c.InHorizon(day, now) {
		return g
	}
	for p := g.Open; p.Before(g.Close); p = p.Add(g.Step) {
		g.Points = append(g.Points, p)
	}
	return g
}
