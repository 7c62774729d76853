package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/coworking-booking/internal/model"
	"github.com/iliyamo/coworking-booking/internal/queue"
)

// Lifecycle advances reservations through their statuses. Every change is
// a store update guarded by the expected current status, so a transition
// either applies exactly once or reports the status it found.
type Lifecycle struct {
	store Store
	clock Clock
	grace time.Duration
	pub   Publisher
	log   *zap.Logger
}

// LifecycleOption customizes a Lifecycle.
type LifecycleOption func(*Lifecycle)

// WithSweepGrace delays no-show marking until start+grace has passed.
func WithSweepGrace(d time.Duration) LifecycleOption { return func(l *Lifecycle) { l.grace = d } }
func WithLifecyclePublisher(p Publisher) LifecycleOption {
	return func(l *Lifecycle) { l.pub = p }
}
func WithLifecycleLogger(log *zap.Logger) LifecycleOption {
	return func(l *Lifecycle) { l.log = log }
}

func NewLifecycle(store Store, clock Clock, opts ...LifecycleOption) *Lifecycle {
	if store == nil || clock == nil {
		panic("nil dependency passed to NewLifecycle")
	}
	l := &Lifecycle{store: store, clock: clock, log: zap.NewNop()}
	for _, o := range opts {
		o(l)
	}
	if l.grace < 0 {
		l.grace = 0
	}
	return l
}

// CheckIn moves a confirmed reservation to checked_in.
func (l *Lifecycle) CheckIn(ctx context.Context, id uint64) (model.Reservation, error) {
	return l.transition(ctx, id, model.StatusConfirmed, model.StatusCheckedIn)
}

// CheckOut moves a checked-in reservation to completed.
func (l *Lifecycle) CheckOut(ctx context.Context, id uint64) (model.Reservation, error) {
	return l.transition(ctx, id, model.StatusCheckedIn, model.StatusCompleted)
}

// Cancel moves a confirmed reservation to cancelled, releasing its capacity.
func (l *Lifecycle) Cancel(ctx context.Context, id uint64) (model.Reservation, error) {
	return l.transition(ctx, id, model.StatusConfirmed, model.StatusCancelled)
}

// CancelOwn cancels a reservation on behalf of the user holding it. Other
// users' reservations look not found. Bookings that already started cannot
// be cancelled this way.
func (l *Lifecycle) CancelOwn(ctx context.Context, id, userID uint64) (model.Reservation, error) {
	res, err := l.store.GetReservation(ctx, id)
	if err != nil {
		return model.Reservation{}, StoreError("get reservation", err)
	}
	if res.Holder != model.UserHolder(userID) {
		return model.Reservation{}, ErrNotFound
	}
	if !res.StartAt.After(l.clock.Now()) {
		return model.Reservation{}, invalid("id", "booking has already started")
	}
	return l.Cancel(ctx, id)
}

func (l *Lifecycle) transition(ctx context.Context, id uint64, from, to model.ReservationStatus) (model.Reservation, error) {
	if id == 0 {
		return model.Reservation{}, invalid("id", "is required")
	}
	now := l.clock.Now()
	res, err := l.store.TransitionStatus(ctx, id, from, to, now)
	if err != nil {
		return model.Reservation{}, StoreError("transition reservation", err)
	}
	l.log.Info("reservation transitioned",
		zap.Uint64("reservation_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	announce(ctx, l.pub, l.log, queue.EventForStatus(to), res, now)
	return res, nil
}

// SweepResult summarizes one no-show sweep.
type SweepResult struct {
	Scanned int `json:"scanned"`
	Marked  int `json:"marked"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// SweepNoShows marks confirmed reservations that were never checked in and
// whose start (plus grace) is before now as no_show. Rows that changed
// status in the meantime are skipped, so running it again has no further
// effect. Per-row store failures are collected and the sweep continues.
func (l *Lifecycle) SweepNoShows(ctx context.Context) (SweepResult, error) {
	now := l.clock.Now()
	cutoff := now.Add(-l.grace)
	candidates, err := l.store.ListNoShowCandidates(ctx, cutoff)
	if err != nil {
		return SweepResult{}, StoreError("list no-show candidates", err)
	}

	var (
		out  = SweepResult{Scanned: len(candidates)}
		errs []error
	)
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if c.Status != model.StatusConfirmed || c.CheckInAt != nil || !c.StartAt.Before(cutoff) {
			out.Skipped++
			continue
		}
		res, err := l.store.TransitionStatus(ctx, c.ID, model.StatusConfirmed, model.StatusNoShow, now)
		switch {
		case err == nil:
			out.Marked++
			announce(ctx, l.pub, l.log, queue.EventNoShow, res, now)
		case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrNotFound):
			out.Skipped++
		default:
			out.Failed++
			errs = append(errs, fmt.Errorf("reservation %d: %w", c.ID, StoreError("mark no-show", err)))
			l.log.Error("mark no-show failed", zap.Uint64("reservation_id", c.ID), zap.Error(err))
		}
	}
	l.log.Info("no-show sweep finished",
		zap.Int("scanned", out.Scanned),
		zap.Int("marked", out.Marked),
		zap.Int("skipped", out.Skipped),
		zap.Int("failed", out.Failed))
	return out, errors.Join(errs...)
}
