package booking

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/coworking-booking/internal/model"
	"github.com/iliyamo/coworking-booking/internal/queue"
)

// Request is a requester's final selection. Date and Start are on the
// business wall clock.
type Request struct {
	ResourceID uint64
	Date       string // YYYY-MM-DD
	Start      string // HH:MM
	Hours      int
	Requester  Requester
}

// Writer validates and commits new reservations.
type Writer struct {
	store    Store
	cal      Calendar
	clock    Clock
	minHours int
	pub      Publisher
	log      *zap.Logger
}

// WriterOption customizes a Writer.
type WriterOption func(*Writer)

func WithMinHours(h int) WriterOption        { return func(w *Writer) { w.minHours = h } }
func WithPublisher(p Publisher) WriterOption { return func(w *Writer) { w.pub = p } }
func WithWriterLogger(l *zap.Logger) WriterOption {
	return func(w *Writer) { w.log = l }
}

func NewWriter(store Store, cal Calendar, clock Clock, opts ...WriterOption) *Writer {
	if store == nil || clock == nil {
		panic("nil dependency passed to NewWriter")
	}
	w := &Writer{store: store, cal: cal, clock: clock, minHours: 1, log: zap.NewNop()}
	for _, o := range opts {
		o(w)
	}
	if w.minHours < 1 {
		w.minHours = 1
	}
	return w
}

// Reserve re-checks capacity against the store and inserts a confirmed
// reservation. The final capacity check and the insert run as one atomic
// store operation; the earlier read only avoids creating guests for
// requests that are already known to fail.
func (w *Writer) Reserve(ctx context.Context, req Request) (model.Reservation, error) {
	requester, err := validateRequester(req.Requester)
	if err != nil {
		return model.Reservation{}, err
	}
	if req.ResourceID == 0 {
		return model.Reservation{}, invalid("resource_id", "is required")
	}
	if req.Hours < w.minHours {
		return model.Reservation{}, invalid("hours", "below the minimum booking length")
	}
	day, err := w.cal.ParseDate(req.Date)
	if err != nil {
		return model.Reservation{}, err
	}
	tod, err := model.ParseTimeOfDay(req.Start)
	if err != nil {
		return model.Reservation{}, invalid("start", "expected HH:MM")
	}

	now := w.clock.Now()
	start := w.cal.At(day, tod)
	end := start.Add(time.Duration(req.Hours) * time.Hour)
	if !start.After(now) {
		return model.Reservation{}, invalid("start", "must be in the future")
	}

	res, err := w.store.GetResource(ctx, req.ResourceID)
	if err != nil {
		return model.Reservation{}, StoreError("get resource", err)
	}
	if !res.Bookable() {
		return model.Reservation{}, invalid("resource_id", "resource is not bookable")
	}
	g := w.cal.Grid(day, res, now)
	if _, ok := g.Index(start); !ok {
		return model.Reservation{}, invalid("start", "not a bookable start time for this day")
	}
	if end.After(g.Close) {
		return model.Reservation{}, invalid("hours", "booking would run past closing time")
	}

	admit := func(r model.Resource, overlapping []model.Reservation) error {
		if peak := PeakConcurrency(overlapping, start, end); peak >= r.Quantity {
			return &CapacityConflictError{ResourceID: r.ID, Start: start, End: end, Peak: peak, Quantity: r.Quantity}
		}
		return nil
	}

	existing, err := w.store.ListOverlapping(ctx, res.ID, start, end, model.OccupyingStatuses)
	if err != nil {
		return model.Reservation{}, StoreError("list overlapping reservations", err)
	}
	if err := admit(res, existing); err != nil {
		w.log.Warn("booking rejected", zap.Uint64("resource_id", res.ID), zap.Time("start", start), zap.Error(err))
		return model.Reservation{}, err
	}

	holder, err := w.resolveHolder(ctx, requester)
	if err != nil {
		return model.Reservation{}, err
	}

	created, err := w.store.InsertReservation(ctx, model.Reservation{
		ResourceID: res.ID,
		Holder:     holder,
		StartAt:    start,
		EndAt:      end,
		Status:     model.StatusConfirmed,
		Price:      res.PricePerHour.Mul(decimal.NewFromInt(int64(req.Hours))),
		CreatedAt:  now,
		UpdatedAt:  now,
	}, admit)
	if err != nil {
		if errors.Is(err, ErrCapacityConflict) {
			w.log.Warn("booking rejected at commit", zap.Uint64("resource_id", res.ID), zap.Time("start", start), zap.Error(err))
		}
		return model.Reservation{}, StoreError("insert reservation", err)
	}

	w.log.Info("booking created",
		zap.Uint64("reservation_id", created.ID),
		zap.Uint64("resource_id", created.ResourceID),
		zap.String("holder", string(holder.Kind)),
		zap.Time("start", created.StartAt),
		zap.Int("hours", req.Hours))
	announce(ctx, w.pub, w.log, queue.EventCreated, created, now)
	return created, nil
}

// resolveHolder maps the requester to a holder, finding or creating the
// guest row by phone. A guest created here survives a failed insert.
func (w *Writer) resolveHolder(ctx context.Context, r Requester) (model.Holder, error) {
	switch v := r.(type) {
	case UserRequester:
		return model.UserHolder(v.UserID), nil
	case GuestRequester:
		g, err := w.store.FindGuestByPhone(ctx, v.Phone)
		if err == nil {
			return model.GuestHolder(g.ID), nil
		}
		if !errors.Is(err, ErrNotFound) {
			return model.Holder{}, StoreError("find guest", err)
		}
		g, err = w.store.InsertGuest(ctx, v.Name, v.Phone)
		if err != nil {
			return model.Holder{}, StoreError("insert guest", err)
		}
		return model.GuestHolder(g.ID), nil
	}
	return model.Holder{}, invalid("requester", "is required")
}
