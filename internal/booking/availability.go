package booking

import (
	"time"
)

// Slot is one candidate start point with the durations it can offer.
type Slot struct {
	Start     time.Time
	Occupied  int
	Remaining int
	Disabled  bool
	Durations []int // whole hours; every sub-slice of each span has spare capacity
}

// Offers reports whether a booking of hours starting at this slot is legal.
func (s Slot) Offers(hours int) bool {
	for _, d := range s.Durations {
		if d == hours {
			return true
		}
	}
	return false
}

// MaxDuration is the longest whole-hour booking starting at start that ends
// no later than close.
func MaxDuration(start, close time.Time) int {
	if !start.Before(close) {
		return 0
	}
	return int(close.Sub(start) / time.Hour)
}

// Filter turns occupancy into bookable slots.
type Filter struct {
	MinHours int
}

// Apply marks each grid point and lists the durations that fit. A point is
// disabled when it is not after now or already at capacity. A duration d is
// offered only if every slice in [start, start+d h) has occupancy below
// quantity; longer durations are never offered once a shorter one fails.
func (f Filter) Apply(occ Occupancy, quantity int, now time.Time) []Slot {
	g := occ.Grid
	minHours := f.MinHours
	if minHours < 1 {
		minHours = 1
	}
	slots := make([]Slot, len(g.Points))
	for i, p := range g.Points {
		used := occ.At(i)
		s := Slot{
			Start:     p,
			Occupied:  used,
			Remaining: max(quantity-used, 0),
			Disabled:  !p.After(now) || used >= quantity,
		}
		if !s.Disabled {
			s.Durations = f.durations(occ, i, quantity, minHours)
		}
		slots[i] = s
	}
	return slots
}

func (f Filter) durations(occ Occupancy, i, quantity, minHours int) []int {
	g := occ.Grid
	start := g.Points[i]
	var out []int
	j := i
	for d := 1; d <= MaxDuration(start, g.Close); d++ {
		end := start.Add(time.Duration(d) * time.Hour)
		for ; j < len(g.Points) && g.Points[j].Before(end); j++ {
			if occ.At(j) >= quantity {
				return out
			}
		}
		if d >= minHours {
			out = append(out, d)
		}
	}
	return out
}

// Bookable returns only slots that offer at least one duration.
func Bookable(slots []Slot) []Slot {
	var out []Slot
	for _, s := range slots {
		if len(s.Durations) > 0 {
			out = append(out, s)
		}
	}
	return out
}
