package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/coworking-booking/internal/booking"
	"github.com/iliyamo/coworking-booking/internal/model"
)

const defaultTimeout = 5 * time.Second

// withTimeout bounds the store calls made while serving c.
func withTimeout(c echo.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = defaultTimeout
	}
	return context.WithTimeout(c.Request().Context(), d)
}

func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id != 0
}

// writeError maps the booking error taxonomy onto HTTP responses.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	var ve *booking.ValidationError
	switch {
	// Field-level validation tells the client which input to fix.
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Error(), "code": "validation", "field": ve.Field})
	case errors.Is(err, booking.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error(), "code": "validation"})
	case errors.Is(err, booking.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found", "code": "not_found"})
	case errors.Is(err, booking.ErrCapacityConflict):
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "this time is no longer available, please choose another time",
			"code":  "capacity_conflict",
		})
	case errors.Is(err, booking.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error(), "code": "invalid_transition"})
	// The store could not answer. Never guess at capacity; ask for a retry.
	case booking.IsRetryable(err), errors.Is(err, context.DeadlineExceeded):
		log.Error("record store unavailable", zap.String("path", c.Path()), zap.Error(err))
		c.Response().Header().Set("Retry-After", "1")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"error": "service temporarily unavailable, please retry",
			"code":  "store_unavailable",
		})
	default:
		log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

type reservationResp struct {
	ID          uint64       `json:"id"`
	ResourceID  uint64       `json:"resource_id"`
	Holder      model.Holder `json:"holder"`
	Status      string       `json:"status"`
	Price       string       `json:"price"`
	Date        string       `json:"date"`
	StartTime   string       `json:"start_time"`
	EndTime     string       `json:"end_time"`
	Hours       int          `json:"hours"`
	StartAt     time.Time    `json:"start_at"`
	EndAt       time.Time    `json:"end_at"`
	CheckInAt   *time.Time   `json:"check_in_at,omitempty"`
	CheckOutAt  *time.Time   `json:"check_out_at,omitempty"`
	CancelledAt *time.Time   `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

func toReservationResp(cal booking.Calendar, r model.Reservation) reservationResp {
	return reservationResp{
		ID:          r.ID,
		ResourceID:  r.ResourceID,
		Holder:      r.Holder,
		Status:      string(r.Status),
		Price:       r.Price.StringFixed(2),
		Date:        cal.FormatDate(r.StartAt),
		StartTime:   cal.Local(r.StartAt).Format("15:04"),
		EndTime:     cal.Local(r.EndAt).Format("15:04"),
		Hours:       r.Hours(),
		StartAt:     r.StartAt,
		EndAt:       r.EndAt,
		CheckInAt:   r.CheckInAt,
		CheckOutAt:  r.CheckOutAt,
		CancelledAt: r.CancelledAt,
		CreatedAt:   r.CreatedAt,
	}
}

func toReservationResps(cal booking.Calendar, rs []model.Reservation) []reservationResp {
	out := make([]reservationResp, len(rs))
	for i, r := range rs {
		out[i] = toReservationResp(cal, r)
	}
	return out
}
