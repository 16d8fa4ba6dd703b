package repository

import "errors"

// ErrNotFound is returned for rows that do not exist, are soft-deleted, or
// belong to another salon. The cases are deliberately indistinguishable so
// lookups never leak existence across tenants.
var ErrNotFound = errors.New("not found")
