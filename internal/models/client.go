package models

import "time"

// Client is a salon customer. Clients carry the salon id that scopes every
// consultation hanging off them.
type Client struct {
	ID        int64
	SalonID   int64
	Name      string
	Phone     *string
	Email     *string
	Notes     *string
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
