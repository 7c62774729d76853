package booking

import (
	"context"
	"time"

	"github.com/iliyamo/coworking-booking/internal/model"
)

// DayAvailability is what a requester sees when picking a start time.
type DayAvailability struct {
	Resource model.Resource
	Grid     Grid
	Slots    []Slot
}

// Planner answers availability questions: it builds the grid, aggregates
// occupancy and applies the filter.
type Planner struct {
	store  Store
	cal    Calendar
	clock  Clock
	agg    *Aggregator
	filter Filter
}

func NewPlanner(store Store, cal Calendar, clock Clock, minHours int) *Planner {
	if store == nil || clock == nil {
		panic("nil dependency passed to NewPlanner")
	}
	return &Planner{
		store:  store,
		cal:    cal,
		clock:  clock,
		agg:    NewAggregator(store),
		filter: Filter{MinHours: minHours},
	}
}

func (p *Planner) Calendar() Calendar { return p.cal }

func (p *Planner) Now() time.Time { return p.clock.Now() }

// Availability returns every slot of the resource's day. On store failure
// no slots are returned.
func (p *Planner) Availability(ctx context.Context, resourceID uint64, date string) (DayAvailability, error) {
	if resourceID == 0 {
		return DayAvailability{}, invalid("resource_id", "is required")
	}
	day, err := p.cal.ParseDate(date)
	if err != nil {
		return DayAvailability{}, err
	}
	res, err := p.store.GetResource(ctx, resourceID)
	if err != nil {
		return DayAvailability{}, StoreError("get resource", err)
	}
	if res.IsArchived {
		return DayAvailability{}, ErrNotFound
	}
	now := p.clock.Now()
	g := p.cal.Grid(day, res, now)
	occ, err := p.agg.Occupancy(ctx, res.ID, g)
	if err != nil {
		return DayAvailability{}, err
	}
	return DayAvailability{
		Resource: res,
		Grid:     g,
		Slots:    p.filter.Apply(occ, res.Quantity, now),
	}, nil
}
