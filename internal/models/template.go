package models

import "time"

// HairstyleTemplate is a curated style reference. Parameters is a free-form
// bag whose schema depends on ModelKey; it is stored as jsonb and merged
// with caller overrides at generation time. ModelKey is resolved against the
// in-process model registry, not the database, so a template can outlive the
// registry entry it was created with.
type HairstyleTemplate struct {
	ID         int64
	Name       string
	ImageURL   string
	ModelKey   string
	Parameters map[string]any
	Tags       []string
	DeletedAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
