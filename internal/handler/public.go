// This file defines handlers for the public browsing API: resource listings
// and per-day availability. No authentication is required.

package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/coworking-booking/internal/booking"
	"github.com/iliyamo/coworking-booking/internal/model"
)

// PublicHandler serves unauthenticated browsing.
type PublicHandler struct {
	Store   booking.Store
	Planner *booking.Planner
	Timeout time.Duration
	Log     *zap.Logger
}

func NewPublicHandler(store booking.Store, planner *booking.Planner, timeout time.Duration, log *zap.Logger) *PublicHandler {
	if store == nil || planner == nil {
		panic("nil dependency passed to NewPublicHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PublicHandler{Store: store, Planner: planner, Timeout: timeout, Log: log}
}

// PublicResource is a resource as exposed to requesters.
type PublicResource struct {
	ID           uint64          `json:"id"`
	Name         string          `json:"name"`
	PricePerHour string          `json:"price_per_hour"`
	Quantity     int             `json:"quantity"`
	OpenTime     model.TimeOfDay `json:"open_time"`
	CloseTime    model.TimeOfDay `json:"close_time"`
}

func toPublicResource(r model.Resource) PublicResource {
	return PublicResource{
		ID:           r.ID,
		Name:         r.Name,
		PricePerHour: r.PricePerHour.StringFixed(2),
		Quantity:     r.Quantity,
		OpenTime:     r.OpenTime,
		CloseTime:    r.CloseTime,
	}
}

// ListResources handles GET /v1/resources.
func (h *PublicHandler) ListResources(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()
	rs, err := h.Store.ListResources(ctx, false)
	if err != nil {
		return writeError(c, h.Log, booking.StoreError("list resources", err))
	}
	out := make([]PublicResource, 0, len(rs))
	for _, r := range rs {
		out = append(out, toPublicResource(r))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out, "count": len(out)})
}

// GetResource handles GET /v1/resources/:id. Archived resources are hidden.
func (h *PublicHandler) GetResource(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid resource id"})
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()
	r, err := h.Store.GetResource(ctx, id)
	if err == nil && r.IsArchived {
		err = booking.ErrNotFound
	}
	if err != nil {
		return writeError(c, h.Log, booking.StoreError("get resource", err))
	}
	return c.JSON(http.StatusOK, toPublicResource(r))
}

type slotResp struct {
	Start     time.Time `json:"start"`
	Time      string    `json:"time"`
	Occupied  int       `json:"occupied"`
	Remaining int       `json:"remaining"`
	Disabled  bool      `json:"disabled"`
	Durations []int     `json:"durations"`
}

type availabilityResp struct {
	Resource PublicResource `json:"resource"`
	Date     string         `json:"date"`
	Timezone string         `json:"timezone"`
	Slots    []slotResp     `json:"slots"`
}

// Availability handles GET /v1/resources/:id/availability?date=YYYY-MM-DD.
// Optional query parameters: hours=N keeps only slots offering N hours;
// bookable=true drops slots that offer nothing.
func (h *PublicHandler) Availability(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid resource id"})
	}
	cal := h.Planner.Calendar()
	date := c.QueryParam("date")
	// No date means today in the business timezone.
	if date == "" {
		date = cal.FormatDate(h.Planner.Now())
	}
	wantHours := 0
	if s := c.QueryParam("hours"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "hours must be a positive integer", "code": "validation", "field": "hours"})
		}
		wantHours = n
	}
	onlyBookable := c.QueryParam("bookable") == "true"

	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()
	// Occupancy and "now" are read fresh for every call; this response is
	// never cached.
	day, err := h.Planner.Availability(ctx, id, date)
	if err != nil {
		return writeError(c, h.Log, err)
	}

	slots := make([]slotResp, 0, len(day.Slots))
	for _, s := range day.Slots {
		if wantHours > 0 && !s.Offers(wantHours) {
			continue
		}
		if onlyBookable && len(s.Durations) == 0 {
			continue
		}
		// Render an empty list rather than null for slots with no offer.
		durations := s.Durations
		if durations == nil {
			durations = []int{}
		}
		slots = append(slots, slotResp{
			Start:     s.Start,
			Time:      cal.Local(s.Start).Format("15:04"),
			Occupied:  s.Occupied,
			Remaining: s.Remaining,
			Disabled:  s.Disabled,
			Durations: durations,
		})
	}
	return c.JSON(http.StatusOK, availabilityResp{
		Resource: toPublicResource(day.Resource),
		Date:     cal.FormatDate(day.Grid.Day),
		Timezone: cal.Location.String(),
		Slots:    slots,
	})
}
