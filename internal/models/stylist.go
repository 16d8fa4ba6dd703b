package models

import "time"

type StylistRole string

const (
	// RoleSalon is the salon owner account; it can manage everything the
	// salon owns, including destructive client operations.
	RoleSalon StylistRole = "salon"
	// RoleStylist is a regular staff account.
	RoleStylist StylistRole = "stylist"
)

type Salon struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

type Stylist struct {
	ID           int64
	SalonID      int64
	Email        string
	PasswordHash []byte
	Name         string
	Role         StylistRole
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Session struct {
	ID               string
	StylistID        int64
	DeviceID         string
	DeviceName       string
	RefreshTokenHash []byte
	IPAddress        string
	UserAgent        string
	CreatedAt        time.Time
	LastSeenAt       time.Time
	ExpiresAt        time.Time
}
