package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Resource represents a bookable workspace unit type as stored in the
// `resources` table. Quantity is the number of identical physical units
// (three single pods share one Resource with Quantity 3) and bounds how
// many reservations may overlap any instant.
//
// Fields:
//
//	ID           – primary key identifier.
//	Name         – display name shown to requesters.
//	PricePerHour – price charged per booked hour.
//	Quantity     – concurrent capacity, always >= 1.
//	OpenTime     – local time of day the resource opens.
//	CloseTime    – local time of day the resource closes (exclusive).
//	IsArchived   – archived resources are hidden and cannot be booked.
type Resource struct {
	ID           uint64          `db:"id" json:"id"`                         // resources.id
	Name         string          `db:"name" json:"name"`                     // resources.name
	PricePerHour decimal.Decimal `db:"price_per_hour" json:"price_per_hour"` // resources.price_per_hour
	Quantity     int             `db:"quantity" json:"quantity"`             // resources.quantity
	OpenTime     TimeOfDay       `db:"open_time" json:"open_time"`           // resources.open_time
	CloseTime    TimeOfDay       `db:"close_time" json:"close_time"`         // resources.close_time
	IsArchived   bool            `db:"is_archived" json:"is_archived"`       // resources.is_archived
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`         // resources.created_at
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`         // resources.updated_at
}

// Bookable reports whether new reservations may be placed on the resource.
func (r Resource) Bookable() bool {
	return !r.IsArchived && r.Quantity > 0 && r.CloseTime > r.OpenTime
}
