package models

import "time"

// GeneratedImage is an immutable artifact produced by one successful
// generation pipeline run. Rows are never updated; access control follows
// the owning consultation.
type GeneratedImage struct {
	ID             int64
	ConsultationID int64
	ImageURL       string
	CreatedAt      time.Time
}
