package domain

// Status is the lifecycle of a message: sent -> delivered -> seen.
// Values are ordered so that a higher value is always a later stage.
type Status int

const (
	StatusUnknown Status = iota
	StatusSent
	StatusDelivered
	StatusSeen
)

func (s Status) String() string {
	switch s {
	case StatusSent:
		return "sent"
	case StatusDelivered:
		return "delivered"
	case StatusSeen:
		return "seen"
	default:
		return "unknown"
	}
}

// Advance returns the later of the two statuses, status never moves backward.
func (s Status) Advance(next Status) Status {
	if next > s {
		return next
	}
	return s
}
