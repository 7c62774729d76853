// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/coworking-booking/internal/model"
)

// BookingQueue is the durable queue every booking event is routed to.
const BookingQueue = "booking.events"

// EventType names what happened to a reservation.
type EventType string

const (
	EventCreated    EventType = "booking.created"
	EventCheckedIn  EventType = "booking.checked_in"
	EventCheckedOut EventType = "booking.checked_out"
	EventCancelled  EventType = "booking.cancelled"
	EventNoShow     EventType = "booking.no_show"
)

// BookingEvent is published after a reservation change is committed. It
// carries enough for downstream consumers to log or notify without
// querying the primary database.
type BookingEvent struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	ReservationID uint64    `json:"reservation_id"`
	ResourceID    uint64    `json:"resource_id"`
	HolderKind    string    `json:"holder_kind"`
	HolderID      uint64    `json:"holder_id"`
	Status        string    `json:"status"`
	StartsAt      string    `json:"starts_at"`
	EndsAt        string    `json:"ends_at"`
	Price         string    `json:"price"`
	OccurredAt    string    `json:"occurred_at"`
}

// NewBookingEvent snapshots res as an event of type t.
func NewBookingEvent(t EventType, res model.Reservation, at time.Time) BookingEvent {
	return BookingEvent{
		ID:            uuid.NewString(),
		Type:          t,
		ReservationID: res.ID,
		ResourceID:    res.ResourceID,
		HolderKind:    string(res.Holder.Kind),
		HolderID:      res.Holder.ID,
		Status:        string(res.Status),
		StartsAt:      res.StartAt.UTC().Format(time.RFC3339),
		EndsAt:        res.EndAt.UTC().Format(time.RFC3339),
		Price:         res.Price.StringFixed(2),
		OccurredAt:    at.UTC().Format(time.RFC3339),
	}
}

// EventForStatus maps a target status to the event announcing it.
func EventForStatus(s model.ReservationStatus) EventType {
	switch s {
	case model.StatusCheckedIn:
		return EventCheckedIn
	case model.StatusCompleted:
		return EventCheckedOut
	case model.StatusCancelled:
		return EventCancelled
	case model.StatusNoShow:
		return EventNoShow
	default:
		return EventCreated
	}
}
