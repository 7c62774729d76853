package booking_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/coworking-booking/internal/booking"
	"github.com/iliyamo/coworking-booking/internal/model"
	"github.com/iliyamo/coworking-booking/internal/queue"
	"github.com/iliyamo/coworking-booking/internal/repository"
)

// UTC+7, 15 minute grid, 30 day horizon.
var cal = booking.NewCalendar(420, 15*time.Minute, 30)

// at parses "2006-01-02 15:04" on the business wall clock and returns the UTC instant.
func at(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.ParseInLocation("2006-01-02 15:04", s, cal.Location)
	require.NoError(t, err)
	return v.UTC()
}

func clockAt(t *testing.T, s string) booking.FixedClock {
	return booking.FixedClock{T: at(t, s)}
}

func resource(name string, qty int, open, close string) model.Resource {
	return model.Resource{
		Name:         name,
		PricePerHour: decimal.NewFromInt(45000),
		Quantity:     qty,
		OpenTime:     model.MustTimeOfDay(open),
		CloseTime:    model.MustTimeOfDay(close),
	}
}

func confirmed(resourceID uint64, start, end time.Time) model.Reservation {
	return model.Reservation{
		ResourceID: resourceID,
		Holder:     model.UserHolder(99),
		StartAt:    start,
		EndAt:      end,
		Status:     model.StatusConfirmed,
	}
}

// brokenStore fails every range query while delegating everything else.
type brokenStore struct {
	*repository.Memory
	err error
}

func (s brokenStore) ListOverlapping(context.Context, uint64, time.Time, time.Time, []model.ReservationStatus) ([]model.Reservation, error) {
	return nil, s.err
}

var errDown = errors.New("connection refused")

// recordingPublisher keeps published events; failing makes every publish fail.
type recordingPublisher struct {
	events  []queue.BookingEvent
	failing bool
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.BookingEvent) error {
	if p.failing {
		return errDown
	}
	p.events = append(p.events, ev)
	return nil
}
