package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCheckedIn ReservationStatus = "checked_in"
	StatusCompleted ReservationStatus = "completed"
	StatusCancelled ReservationStatus = "cancelled"
	StatusNoShow    ReservationStatus = "no_show"
)

// OccupyingStatuses lists the statuses that hold a unit of capacity.
// Completed reservations keep occupying their original interval.
var OccupyingStatuses = []ReservationStatus{StatusConfirmed, StatusCheckedIn, StatusCompleted}

// Terminal reports whether no further transition is allowed.
func (s ReservationStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// Occupying reports whether a reservation in this status counts toward capacity.
func (s ReservationStatus) Occupying() bool {
	for _, o := range OccupyingStatuses {
		if s == o {
			return true
		}
	}
	return false
}

func (s ReservationStatus) Valid() bool {
	switch s {
	case StatusConfirmed, StatusCheckedIn, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// HolderKind tells which identity a reservation belongs to.
type HolderKind string

const (
	HolderUser  HolderKind = "user"
	HolderGuest HolderKind = "guest"
)

// Holder identifies who a reservation is for: exactly one registered user
// or one guest, never both.
type Holder struct {
	Kind HolderKind `json:"kind"`
	ID   uint64     `json:"id"`
}

func UserHolder(id uint64) Holder  { return Holder{Kind: HolderUser, ID: id} }
func GuestHolder(id uint64) Holder { return Holder{Kind: HolderGuest, ID: id} }

func (h Holder) Valid() bool {
	return (h.Kind == HolderUser || h.Kind == HolderGuest) && h.ID != 0
}

// Reservation books one unit of a Resource for the half-open interval
// [StartAt, EndAt). All instants are UTC.
//
// Fields:
//
//	ID          – primary key identifier.
//	ResourceID  – booked resource.
//	Holder      – registered user or guest the booking belongs to.
//	StartAt     – first instant of the booking.
//	EndAt       – first instant after the booking.
//	Status      – lifecycle state.
//	Price       – amount charged (price per hour times booked hours).
//	CheckInAt   – set when staff check the holder in.
//	CheckOutAt  – set when staff check the holder out.
//	CancelledAt – set when the booking is cancelled.
type Reservation struct {
	ID          uint64            `json:"id"`
	ResourceID  uint64            `json:"resource_id"`
	Holder      Holder            `json:"holder"`
	StartAt     time.Time         `json:"start_at"`
	EndAt       time.Time         `json:"end_at"`
	Status      ReservationStatus `json:"status"`
	Price       decimal.Decimal   `json:"price"`
	CheckInAt   *time.Time        `json:"check_in_at,omitempty"`
	CheckOutAt  *time.Time        `json:"check_out_at,omitempty"`
	CancelledAt *time.Time        `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Overlaps reports whether [StartAt, EndAt) intersects [start, end).
func (r Reservation) Overlaps(start, end time.Time) bool {
	return r.StartAt.Before(end) && start.Before(r.EndAt)
}

// Hours is the booked length in whole hours.
func (r Reservation) Hours() int { return int(r.EndAt.Sub(r.StartAt) / time.Hour) }
