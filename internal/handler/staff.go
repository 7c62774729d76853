package handler

// Staff-facing handlers: the day's booking list, check-in, check-out,
// cancellation and an on-demand no-show sweep. Routes require the STAFF or
// ADMIN role.

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/coworking-booking/internal/booking"
	"github.com/iliyamo/coworking-booking/internal/model"
)

type StaffHandler struct {
	Store     booking.Store
	Lifecycle *booking.Lifecycle
	Cal       booking.Calendar
	Timeout   time.Duration
	Log       *zap.Logger
}

func NewStaffHandler(store booking.Store, l *booking.Lifecycle, cal booking.Calendar, timeout time.Duration, log *zap.Logger) *StaffHandler {
	if store == nil || l == nil {
		panic("nil dependency passed to NewStaffHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &StaffHandler{Store: store, Lifecycle: l, Cal: cal, Timeout: timeout, Log: log}
}

// List handles GET /v1/staff/bookings?date=&resource_id=&status=.
// Without a date every booking is listed.
func (h *StaffHandler) List(c echo.Context) error {
	var f booking.ReservationFilter
	if d := c.QueryParam("date"); d != "" {
		day, err := h.Cal.ParseDate(d)
		if err != nil {
			return writeError(c, h.Log, err)
		}
		// One business-local day, as a half-open UTC window.
		f.From, f.To = day.UTC(), day.AddDate(0, 0, 1).UTC()
	}
	if s := c.QueryParam("resource_id"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil || id == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid resource_id", "code": "validation", "field": "resource_id"})
		}
		f.ResourceID = id
	}
	if s := model.ReservationStatus(c.QueryParam("status")); s != "" {
		if !s.Valid() {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status", "code": "validation", "field": "status"})
		}
		f.Status = s
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()
	rs, err := h.Store.ListReservations(ctx, f)
	if err != nil {
		return writeError(c, h.Log, booking.StoreError("list reservations", err))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": toReservationResps(h.Cal, rs), "count": len(rs)})
}

func (h *StaffHandler) transition(c echo.Context, do func(ctx context.Context, id uint64) (model.Reservation, error)) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()
	// TransitionError (wrong current status) maps to 409 and leaves the row unchanged.
	res, err := do(ctx, id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toReservationResp(h.Cal, res))
}

// CheckIn handles POST /v1/staff/bookings/:id/check-in.
func (h *StaffHandler) CheckIn(c echo.Context) error { return h.transition(c, h.Lifecycle.CheckIn) }

// CheckOut handles POST /v1/staff/bookings/:id/check-out.
func (h *StaffHandler) CheckOut(c echo.Context) error { return h.transition(c, h.Lifecycle.CheckOut) }

// Cancel handles POST /v1/staff/bookings/:id/cancel.
func (h *StaffHandler) Cancel(c echo.Context) error { return h.transition(c, h.Lifecycle.Cancel) }

// Sweep handles POST /v1/staff/sweep. Partial failures still report the
// counts with a 503 so the caller can retry.
func (h *StaffHandler) Sweep(c echo.Context) error {
	// A sweep touches many rows one by one; give it more room than a single request.
	ctx, cancel := withTimeout(c, 4*h.Timeout)
	defer cancel()
	out, err := h.Lifecycle.SweepNoShows(ctx)
	if err != nil {
		h.Log.Error("no-show sweep failed", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "sweep incomplete, please retry", "result": out})
	}
	return c.JSON(http.StatusOK, out)
}
