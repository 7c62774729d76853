package booking

import (
	"context"
	"time"

	"github.com/iliyamo/coworking-booking/internal/model"
)

// Admission decides whether a new reservation fits next to the reservations
// that already overlap it. Stores call it while holding whatever lock makes
// the check and the insert a single atomic step.
type Admission func(res model.Resource, overlapping []model.Reservation) error

// ReservationFilter narrows ListReservations. Zero values mean "any".
type ReservationFilter struct {
	ResourceID uint64
	Holder     *model.Holder
	Status     model.ReservationStatus
	From       time.Time
	To         time.Time
	Limit      int
}

// Store is the persistent record store the booking core runs against.
// Implementations return ErrNotFound for missing rows and *TransitionError
// when a guarded status update finds a different current status.
type Store interface {
	GetResource(ctx context.Context, id uint64) (model.Resource, error)
	ListResources(ctx context.Context, includeArchived bool) ([]model.Resource, error)

	// ListOverlapping returns reservations on resourceID whose interval
	// intersects [from, to) and whose status is one of statuses.
	ListOverlapping(ctx context.Context, resourceID uint64, from, to time.Time, statuses []model.ReservationStatus) ([]model.Reservation, error)

	FindGuestByPhone(ctx context.Context, phone string) (model.Guest, error)
	// InsertGuest creates a guest, or returns the existing one when the phone
	// number is already taken.
	InsertGuest(ctx context.Context, name, phone string) (model.Guest, error)

	// InsertReservation locks res.ResourceID, loads the occupying reservations
	// overlapping [res.StartAt, res.EndAt), runs admit and inserts only if it
	// returns nil.
	InsertReservation(ctx context.Context, res model.Reservation, admit Admission) (model.Reservation, error)

	GetReservation(ctx context.Context, id uint64) (model.Reservation, error)
	ListReservations(ctx context.Context, f ReservationFilter) ([]model.Reservation, error)

	// TransitionStatus moves id from one status to another only if its
	// current status is from, stamping the timestamp column that belongs to
	// the target status with at.
	TransitionStatus(ctx context.Context, id uint64, from, to model.ReservationStatus, at time.Time) (model.Reservation, error)

	// ListNoShowCandidates returns confirmed reservations without a check-in
	// that started before the cutoff.
	ListNoShowCandidates(ctx context.Context, before time.Time) ([]model.Reservation, error)
}
