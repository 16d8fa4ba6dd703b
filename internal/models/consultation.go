package models

import "time"

type ConsultationStatus string

const (
	// ConsultationStatusTemporary marks quick consults for walk-in clients;
	// stale ones are purged by the cleanup job unless saved.
	ConsultationStatusTemporary ConsultationStatus = "TEMPORARY"
	ConsultationStatusSaved     ConsultationStatus = "SAVED"
)

type Consultation struct {
	ID        int64
	ClientID  int64
	StylistID int64
	Status    ConsultationStatus
	Tags      []string
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
