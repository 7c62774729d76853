package booking

import (
	"context"
	"sort"
	"time"

	"github.com/iliyamo/coworking-booking/internal/model"
)

// Occupancy holds, per grid point, the number of units already committed
// during [point, point+Step).
type Occupancy struct {
	Grid   Grid
	Counts []int
}

// At returns the count for grid index i.
func (o Occupancy) At(i int) int { return o.Counts[i] }

// Aggregator reads existing reservations and folds them onto a grid.
type Aggregator struct {
	store Store
}

func NewAggregator(store Store) *Aggregator {
	if store == nil {
		panic("nil store passed to NewAggregator")
	}
	return &Aggregator{store: store}
}

// Occupancy issues one range query covering the grid's opening window and
// counts overlapping occupying reservations per slice. Store failures are
// returned, never reported as free capacity.
func (a *Aggregator) Occupancy(ctx context.Context, resourceID uint64, g Grid) (Occupancy, error) {
	if g.Empty() {
		return Occupancy{Grid: g}, nil
	}
	existing, err := a.store.ListOverlapping(ctx, resourceID, g.Open, g.Close, model.OccupyingStatuses)
	if err != nil {
		return Occupancy{}, StoreError("list overlapping reservations", err)
	}
	return Occupancy{Grid: g, Counts: CountPerSlice(g.Points, g.Step, existing)}, nil
}

// CountPerSlice counts, for each point p, the reservations overlapping
// [p, p+step). Non-occupying statuses are ignored.
func CountPerSlice(points []time.Time, step time.Duration, existing []model.Reservation) []int {
	counts := make([]int, len(points))
	for _, r := range existing {
		if !r.Status.Occupying() {
			continue
		}
		for i, p := range points {
			if r.Overlaps(p, p.Add(step)) {
				counts[i]++
			}
		}
	}
	return counts
}

// PeakConcurrency returns the highest number of reservations simultaneously
// active at any instant inside [start, end).
func PeakConcurrency(existing []model.Reservation, start, end time.Time) int {
	type edge struct {
		at    time.Time
		delta int
	}
	var edges []edge
	for _, r := range existing {
		if !r.Status.Occupying() || !r.Overlaps(start, end) {
			continue
		}
		s, e := r.StartAt, r.EndAt
		if s.Before(start) {
			s = start
		}
		if e.After(end) {
			e = end
		}
		edges = append(edges, edge{s, 1}, edge{e, -1})
	}
	// Ends sort before starts at the same instant: half-open intervals that
	// touch do not overlap.
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].at.Equal(edges[j].at) {
			return edges[i].delta < edges[j].delta
		}
		return edges[i].at.Before(edges[j].at)
	})
	peak, cur := 0, 0
	for _, e := range edges {
		cur += e.delta
		if cur > peak {
			peak = cur
		}
	}
	return peak
}
