package model

import "time"

// EventID uniquely identifies an event
type EventID string

// Event statuses
const (
	EventStatusActive = "active"
)

// Event is a single networking event; Slug is the stable external handle
// used in encounter codes and request scoping
type Event struct {
	ID        EventID
	Slug      string
	Name      string
	Status    string
	CreatedAt time.Time
}
