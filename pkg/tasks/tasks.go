// Package tasks defines the messages exchanged over Kafka.
package tasks

import "time"

// Booking change operations.
const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// BookingChangeEvent is published by upstream systems whenever a booking row
// changes. Any event schedules an insight refresh.
type BookingChangeEvent struct {
	Op         string    `json:"op"`
	Hotel      string    `json:"hotel,omitempty"`
	Country    string    `json:"country,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
