package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/coworking-booking/internal/booking"
	"github.com/iliyamo/coworking-booking/internal/middleware"
	"github.com/iliyamo/coworking-booking/internal/model"
)

// BookingHandler serves booking submission and the caller's own bookings.
type BookingHandler struct {
	Store     booking.Store
	Writer    *booking.Writer
	Lifecycle *booking.Lifecycle
	Cal       booking.Calendar
	Timeout   time.Duration
	Log       *zap.Logger
}

func NewBookingHandler(store booking.Store, w *booking.Writer, l *booking.Lifecycle, cal booking.Calendar, timeout time.Duration, log *zap.Logger) *BookingHandler {
	if store == nil || w == nil || l == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BookingHandler{Store: store, Writer: w, Lifecycle: l, Cal: cal, Timeout: timeout, Log: log}
}

type createBookingReq struct {
	ResourceID uint64 `json:"resource_id"`
	Date       string `json:"date"`  // YYYY-MM-DD, business local
	Start      string `json:"start"` // HH:MM, business local
	Hours      int    `json:"hours"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
}

// requesterFor picks the booking identity. Customers book for themselves.
// Staff may book a walk-in guest by supplying name and phone. Anonymous
// callers are always guests.
func requesterFor(c echo.Context, req createBookingReq) booking.Requester {
	uid, ok := middleware.UserID(c)
	if !ok {
		return booking.GuestRequester{Name: req.Name, Phone: req.Phone}
	}
	role := middleware.Role(c)
	if (role == model.RoleStaff || role == model.RoleAdmin) && strings.TrimSpace(req.Phone) != "" {
		return booking.GuestRequester{Name: req.Name, Phone: req.Phone}
	}
	return booking.UserRequester{UserID: uid}
}

// Create handles POST /v1/bookings.
func (h *BookingHandler) Create(c echo.Context) error {
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	// An omitted duration means the one-hour minimum.
	if req.Hours == 0 {
		req.Hours = 1
	}
	// Bound the whole write, including the locked insert, by the request timeout.
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	// All validation and the capacity check live in the writer; this handler
	// only maps its error onto a status code.
	res, err := h.Writer.Reserve(ctx, booking.Request{
		ResourceID: req.ResourceID,
		Date:       req.Date,
		Start:      req.Start,
		Hours:      req.Hours,
		Requester:  requesterFor(c, req),
	})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, toReservationResp(h.Cal, res))
}

// ListMine handles GET /v1/my-bookings. Optional ?status= filter.
func (h *BookingHandler) ListMine(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	status := model.ReservationStatus(c.QueryParam("status"))
	if status != "" && !status.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status", "code": "validation", "field": "status"})
	}
	// Only the caller's own bookings; guests have no session to list with.
	holder := model.UserHolder(uid)
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()
	rs, err := h.Store.ListReservations(ctx, booking.ReservationFilter{Holder: &holder, Status: status})
	if err != nil {
		return writeError(c, h.Log, booking.StoreError("list reservations", err))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": toReservationResps(h.Cal, rs), "count": len(rs)})
}

// Get handles GET /v1/bookings/:id. Customers only see their own bookings.
func (h *BookingHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	uid, _ := middleware.UserID(c)
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()
	res, err := h.Store.GetReservation(ctx, id)
	if err != nil {
		return writeError(c, h.Log, booking.StoreError("get reservation", err))
	}
	// A customer asking for someone else's booking gets 404, not 403, so ids
	// cannot be enumerated.
	if middleware.Role(c) == model.RoleCustomer && res.Holder != model.UserHolder(uid) {
		return writeError(c, h.Log, booking.ErrNotFound)
	}
	return c.JSON(http.StatusOK, toReservationResp(h.Cal, res))
}

// Cancel handles DELETE /v1/bookings/:id for the customer holding it.
func (h *BookingHandler) Cancel(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()
	res, err := h.Lifecycle.CancelOwn(ctx, id, uid)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toReservationResp(h.Cal, res))
}
