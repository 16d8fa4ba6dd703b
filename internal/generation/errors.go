package generation

import "errors"

// Stable pipeline failure kinds. Every Generate outcome wraps exactly one of
// these so callers can map failures without parsing messages.
var (
	// ErrNotFound covers missing consultations, templates and model keys.
	// Tenant-ownership mismatches are folded in so a caller cannot probe
	// for another salon's data.
	ErrNotFound = errors.New("not found")

	// ErrMissingSourceImage rejects a request before any external call.
	ErrMissingSourceImage = errors.New("source image is required")

	// ErrContentPolicy reports that the provider flagged the source image.
	ErrContentPolicy = errors.New("source image was flagged as inappropriate")

	// ErrGenerationFailed covers provider-reported failures and empty or
	// unusable model output.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrGenerationTimedOut is the client-side polling ceiling.
	ErrGenerationTimedOut = errors.New("generation timed out")

	// ErrUpstreamUnavailable covers media store or provider transport
	// failures unrelated to the job itself.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrPersistenceFailed marks a failed final write after all external
	// side effects completed.
	ErrPersistenceFailed = errors.New("could not persist generated image")
)
