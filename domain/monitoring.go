package domain

import "time"

type NodeStatus string

const (
	ALIVE    NodeStatus = "ALIVE"
	DEGRADED NodeStatus = "DEGRADED"
)

// PresenceStats is a point-in-time count of the presence registry.
type PresenceStats struct {
	Connections int
	Users       int
	Channels    int
}

// NodeHealth is what the health endpoint reports for this process.
type NodeHealth struct {
	Status    NodeStatus
	PID       int32
	CPU       float64
	RAM       uint64
	Presence  PresenceStats
	StartedAt time.Time
	CheckedAt time.Time
}
