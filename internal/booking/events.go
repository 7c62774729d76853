package booking

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/coworking-booking/internal/model"
	"github.com/iliyamo/coworking-booking/internal/queue"
)

// Publisher delivers booking events after a change is committed.
type Publisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

// announce publishes ev and logs a failure; committed changes never fail
// because of the broker.
func announce(ctx context.Context, pub Publisher, log *zap.Logger, t queue.EventType, res model.Reservation, at time.Time) {
	if pub == nil {
		return
	}
	ev := queue.NewBookingEvent(t, res, at)
	if err := pub.Publish(ctx, ev); err != nil {
		log.Warn("publish booking event failed",
			zap.String("event", string(t)),
			zap.Uint64("reservation_id", res.ID),
			zap.Error(err))
	}
}
