package prediction

// State is the client-side view of a prediction job's lifecycle. Provider
// statuses map onto it via FromProviderStatus; StateTimedOut is decided by
// this client when the polling ceiling is exceeded and is never reported by
// the provider itself.
type State string

const (
	StateCreated   State = "created"
	StatePolling   State = "polling"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateCanceled  State = "canceled"
	StateTimedOut  State = "timed_out"
)

// Provider-reported job statuses.
const (
	statusStarting   = "starting"
	statusProcessing = "processing"
	statusSucceeded  = "succeeded"
	statusFailed     = "failed"
	statusCanceled   = "canceled"
)

func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateCanceled, StateTimedOut:
		return true
	}
	return false
}

// FromProviderStatus maps a polled status onto a client state. Unknown
// statuses keep the job in StatePolling: status is authoritative, so the
// next poll settles it.
func FromProviderStatus(status string) State {
	switch status {
	case statusSucceeded:
		return StateSucceeded
	case statusFailed:
		return StateFailed
	case statusCanceled:
		return StateCanceled
	case statusStarting, statusProcessing:
		return StatePolling
	default:
		return StatePolling
	}
}
