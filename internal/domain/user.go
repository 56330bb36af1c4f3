package domain

import "time"

// User is the internal identity resolved from a messaging-platform sender.
type User struct {
	ID          string
	ExternalID  string
	DisplayName string
	Username    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
