package web

import (
	"chat-relay/domain"
	"log/slog"
	"net/http"
	"time"
)

type HealthReporter interface {
	Latest() domain.NodeHealth
}

type healthResponse struct {
	Status      domain.NodeStatus `json:"status"`
	PID         int32             `json:"pid"`
	CPU         float64           `json:"cpuPercent"`
	RSS         uint64            `json:"rssBytes"`
	Connections int               `json:"connections"`
	Users       int               `json:"users"`
	Channels    int               `json:"channels"`
	StartedAt   time.Time         `json:"startedAt"`
	CheckedAt   time.Time         `json:"checkedAt"`
}

func Health(log *slog.Logger, reporter HealthReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		health := reporter.Latest()
		writeJSON(log, w, http.StatusOK, healthResponse{
			Status:      health.Status,
			PID:         health.PID,
			CPU:         health.CPU,
			RSS:         health.RAM,
			Connections: health.Presence.Connections,
			Users:       health.Presence.Users,
			Channels:    health.Presence.Channels,
			StartedAt:   health.StartedAt,
			CheckedAt:   health.CheckedAt,
		})
	}
}
