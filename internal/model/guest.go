package model

import "time"

// Guest is an unauthenticated requester captured at booking time. Guests are
// deduplicated by normalized phone number.
type Guest struct {
	ID        uint64    `db:"id" json:"id"`                     // guests.id
	FullName  string    `db:"full_name" json:"full_name"`       // guests.full_name
	Phone     string    `db:"phone_number" json:"phone_number"` // guests.phone_number
	CreatedAt time.Time `db:"created_at" json:"created_at"`     // guests.created_at
}
