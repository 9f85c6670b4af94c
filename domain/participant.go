// Package domain contains core concepts of the chat system.
// This file defines User entities as seen by the delivery layer.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

type User struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// UnknownUser is the display fallback for a sender missing from the directory.
func UnknownUser(userID string) User {
	return User{ID: userID, Name: userID}
}
