package ids

import "github.com/segmentio/ksuid"

// New returns a sortable, URL-safe unique id for sessions, devices and
// object storage keys. Entity rows use database-generated numeric ids.
func New() string {
	return ksuid.New().String()
}
