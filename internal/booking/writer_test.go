package booking_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/coworking-booking/internal/booking"
	"github.com/iliyamo/coworking-booking/internal/model"
	"github.com/iliyamo/coworking-booking/internal/queue"
	"github.com/iliyamo/coworking-booking/internal/repository"
)

func newWriter(t *testing.T, mem booking.Store, now string, opts ...booking.WriterOption) *booking.Writer {
	return booking.NewWriter(mem, cal, clockAt(t, now), opts...)
}

func TestReserve_SinglePodConcurrentRequests(t *testing.T) {
	mem := repository.NewMemory()
	pod := mem.AddResource(resource("Single Pod", 1, "08:00", "20:00"))
	w := newWriter(t, mem, "2024-01-09 12:00")

	const callers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      []model.Reservation
		rejects []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(uid uint64) {
			defer wg.Done()
			r, err := w.Reserve(context.Background(), booking.Request{
				ResourceID: pod.ID,
				Date:       "2024-01-10",
				Start:      "09:00",
				Hours:      1,
				Requester:  booking.UserRequester{UserID: uid},
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				rejects = append(rejects, err)
				return
			}
			ok = append(ok, r)
		}(uint64(i + 1))
	}
	wg.Wait()

	require.Len(t, ok, 1)
	assert.Equal(t, model.StatusConfirmed, ok[0].Status)
	assert.True(t, decimal.NewFromInt(45000).Equal(ok[0].Price))
	require.Len(t, rejects, callers-1)
	for _, err := range rejects {
		assert.ErrorIs(t, err, booking.ErrCapacityConflict)
		assert.False(t, booking.IsRetryable(err))
	}

	stored, err := mem.ListOverlapping(context.Background(), pod.ID, at(t, "2024-01-10 09:00"), at(t, "2024-01-10 10:00"), model.OccupyingStatuses)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestReserve_FillsEveryUnitThenConflicts(t *testing.T) {
	mem := repository.NewMemory()
	pods := mem.AddResource(resource("Pods", 2, "08:00", "20:00"))
	w := newWriter(t, mem, "2024-01-09 12:00")

	req := func(uid uint64, start string, hours int) booking.Request {
		return booking.Request{ResourceID: pods.ID, Date: "2024-01-10", Start: start, Hours: hours, Requester: booking.UserRequester{UserID: uid}}
	}
	ctx := context.Background()

	_, err := w.Reserve(ctx, req(1, "09:00", 2))
	require.NoError(t, err)
	_, err = w.Reserve(ctx, req(2, "10:00", 2))
	require.NoError(t, err)

	// 10:00-11:00 now holds two units.
	_, err = w.Reserve(ctx, req(3, "08:00", 3))
	var conflict *booking.CapacityConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 2, conflict.Peak)
	assert.Equal(t, 2, conflict.Quantity)

	// Touching the end of both bookings is fine.
	_, err = w.Reserve(ctx, req(3, "12:00", 1))
	assert.NoError(t, err)
	// 09:00-10:00 only has one unit taken.
	_, err = w.Reserve(ctx, req(4, "09:00", 1))
	assert.NoError(t, err)
}

func TestReserve_CancelledAndNoShowReleaseCapacity(t *testing.T) {
	mem := repository.NewMemory()
	pod := mem.AddResource(resource("Single Pod", 1, "08:00", "20:00"))
	gone := confirmed(pod.ID, at(t, "2024-01-10 09:00"), at(t, "2024-01-10 10:00"))
	gone.Status = model.StatusCancelled
	mem.AddReservation(gone)
	missed := gone
	missed.ID = 0
	missed.Status = model.StatusNoShow
	mem.AddReservation(missed)

	w := newWriter(t, mem, "2024-01-09 12:00")
	_, err := w.Reserve(context.Background(), booking.Request{
		ResourceID: pod.ID, Date: "2024-01-10", Start: "09:00", Hours: 1,
		Requester: booking.UserRequester{UserID: 7},
	})
	assert.NoError(t, err)
}

func TestReserve_GuestDedupByPhone(t *testing.T) {
	mem := repository.NewMemory()
	desks := mem.AddResource(resource("Desks", 5, "08:00", "20:00"))
	w := newWriter(t, mem, "2024-01-09 12:00")
	ctx := context.Background()

	a, err := w.Reserve(ctx, booking.Request{
		ResourceID: desks.ID, Date: "2024-01-10", Start: "09:00", Hours: 1,
		Requester: booking.GuestRequester{Name: "An Nguyen", Phone: "+84 912-345-678"},
	})
	require.NoError(t, err)
	b, err := w.Reserve(ctx, booking.Request{
		ResourceID: desks.ID, Date: "2024-01-11", Start: "14:00", Hours: 2,
		Requester: booking.GuestRequester{Name: "An", Phone: "+84912345678"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, mem.GuestCount())
	assert.Equal(t, model.HolderGuest, a.Holder.Kind)
	assert.Equal(t, a.Holder, b.Holder)

	g, err := mem.FindGuestByPhone(ctx, "+84912345678")
	require.NoError(t, err)
	assert.Equal(t, "An Nguyen", g.FullName)
}

func TestReserve_RejectsPastAndNow(t *testing.T) {
	mem := repository.NewMemory()
	desks := mem.AddResource(resource("Desks", 5, "08:00", "20:00"))
	w := newWriter(t, mem, "2024-01-10 09:00")

	for _, start := range []string{"08:00", "09:00"} {
		_, err := w.Reserve(context.Background(), booking.Request{
			ResourceID: desks.ID, Date: "2024-01-10", Start: start, Hours: 1,
			Requester: booking.UserRequester{UserID: 1},
		})
		var verr *booking.ValidationError
		require.ErrorAs(t, err, &verr, start)
		assert.Equal(t, "start", verr.Field)
	}

	_, err := w.Reserve(context.Background(), booking.Request{
		ResourceID: desks.ID, Date: "2024-01-10", Start: "09:15", Hours: 1,
		Requester: booking.UserRequester{UserID: 1},
	})
	assert.NoError(t, err)
}

func TestReserve_Validation(t *testing.T) {
	mem := repository.NewMemory()
	desks := mem.AddResource(resource("Desks", 5, "08:00", "18:00"))
	archived := resource("Old", 1, "08:00", "18:00")
	archived.IsArchived = true
	archived = mem.AddResource(archived)

	w := newWriter(t, mem, "2024-01-09 12:00", booking.WithMinHours(1))
	user := booking.UserRequester{UserID: 1}

	cases := map[string]struct {
		req   booking.Request
		field string
	}{
		"no requester":   {booking.Request{ResourceID: desks.ID, Date: "2024-01-10", Start: "09:00", Hours: 1}, "requester"},
		"user id zero":   {booking.Request{ResourceID: desks.ID, Date: "2024-01-10", Start: "09:00", Hours: 1, Requester: booking.UserRequester{}}, "requester"},
		"guest no name":  {booking.Request{ResourceID: desks.ID, Date: "2024-01-10", Start: "09:00", Hours: 1, Requester: booking.GuestRequester{Phone: "0912345678"}}, "name"},
		"guest bad tel":  {booking.Request{ResourceID: desks.ID, Date: "2024-01-10", Start: "09:00", Hours: 1, Requester: booking.GuestRequester{Name: "A", Phone: "12ab"}}, "phone"},
		"no resource":    {booking.Request{Date: "2024-01-10", Start: "09:00", Hours: 1, Requester: user}, "resource_id"},
		"zero hours":     {booking.Request{ResourceID: desks.ID, Date: "2024-01-10", Start: "09:00", Requester: user}, "hours"},
		"negative hours": {booking.Request{ResourceID: desks.ID, Date: "2024-01-10", Start: "09:00", Hours: -2, Requester: user}, "hours"},
		"bad date":       {booking.Request{ResourceID: desks.ID, Date: "Jan 10", Start: "09:00", Hours: 1, Requester: user}, "date"},
		"bad start":      {booking.Request{ResourceID: desks.ID, Date: "2024-01-10", Start: "9am", Hours: 1, Requester: user}, "start"},
		"off grid":       {booking.Request{ResourceID: desks.ID, Date: "2024-01-10", Start: "09:10", Hours: 1, Requester: user}, "start"},
		"before open":    {booking.Request{ResourceID: desks.ID, Date: "2024-01-10", Start: "07:00", Hours: 1, Requester: user}, "start"},
		"past close":     {booking.Request{ResourceID: desks.ID, Date: "2024-01-10", Start: "17:15", Hours: 1, Requester: user}, "hours"},
		"beyond horizon": {booking.Request{ResourceID: desks.ID, Date: "2024-03-10", Start: "09:00", Hours: 1, Requester: user}, "start"},
		"archived":       {booking.Request{ResourceID: archived.ID, Date: "2024-01-10", Start: "09:00", Hours: 1, Requester: user}, "resource_id"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := w.Reserve(context.Background(), tc.req)
			var verr *booking.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
			assert.True(t, booking.IsClientError(err))
		})
	}
	assert.Zero(t, mem.GuestCount(), "no guest created for rejected requests")
}

func TestReserve_UnknownResource(t *testing.T) {
	w := newWriter(t, repository.NewMemory(), "2024-01-09 12:00")
	_, err := w.Reserve(context.Background(), booking.Request{
		ResourceID: 42, Date: "2024-01-10", Start: "09:00", Hours: 1,
		Requester: booking.UserRequester{UserID: 1},
	})
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestReserve_StoreFailureIsRetryable(t *testing.T) {
	mem := repository.NewMemory()
	desks := mem.AddResource(resource("Desks", 5, "08:00", "18:00"))
	w := newWriter(t, brokenStore{mem, errDown}, "2024-01-09 12:00")

	_, err := w.Reserve(context.Background(), booking.Request{
		ResourceID: desks.ID, Date: "2024-01-10", Start: "09:00", Hours: 1,
		Requester: booking.GuestRequester{Name: "Binh", Phone: "0912345678"},
	})
	assert.ErrorIs(t, err, booking.ErrStoreUnavailable)
	assert.True(t, booking.IsRetryable(err))
	assert.Zero(t, mem.GuestCount())
}

func TestReserve_PublishesCreatedEvent(t *testing.T) {
	mem := repository.NewMemory()
	desks := mem.AddResource(resource("Desks", 5, "08:00", "18:00"))
	pub := &recordingPublisher{}
	w := newWriter(t, mem, "2024-01-09 12:00", booking.WithPublisher(pub))

	r, err := w.Reserve(context.Background(), booking.Request{
		ResourceID: desks.ID, Date: "2024-01-10", Start: "09:00", Hours: 3,
		Requester: booking.UserRequester{UserID: 5},
	})
	require.NoError(t, err)
	require.Len(t, pub.events, 1)
	assert.Equal(t, queue.EventCreated, pub.events[0].Type)
	assert.Equal(t, r.ID, pub.events[0].ReservationID)
	assert.Equal(t, at(t, "2024-01-10 12:00"), r.EndAt)
	assert.True(t, decimal.NewFromInt(135000).Equal(r.Price))
}

func TestReserve_PublishFailureDoesNotFailBooking(t *testing.T) {
	mem := repository.NewMemory()
	desks := mem.AddResource(resource("Desks", 5, "08:00", "18:00"))
	w := newWriter(t, mem, "2024-01-09 12:00", booking.WithPublisher(&recordingPublisher{failing: true}))

	r, err := w.Reserve(context.Background(), booking.Request{
		ResourceID: desks.ID, Date: "2024-01-10", Start: "09:00", Hours: 1,
		Requester: booking.UserRequester{UserID: 5},
	})
	require.NoError(t, err)
	assert.NotZero(t, r.ID)
}

func TestNormalizePhone(t *testing.T) {
	cases := map[string]struct {
		in   string
		want string
		err  bool
	}{
		"plain":        {in: "0912345678", want: "0912345678"},
		"formatted":    {in: " (091) 234.56-78 ", want: "0912345678"},
		"intl":         {in: "+84 912 345 678", want: "+84912345678"},
		"plus inside":  {in: "84+912345678", err: true},
		"letters":      {in: "09123abc78", err: true},
		"too short":    {in: "1234567", err: true},
		"too long":     {in: "1234567890123456", err: true},
		"empty":        {in: "", err: true},
		"only symbols": {in: "+() -", err: true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := booking.NormalizePhone(tc.in)
			if tc.err {
				assert.True(t, errors.Is(err, booking.ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
