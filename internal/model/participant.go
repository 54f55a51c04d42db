package model

import (
	"strings"
	"time"
)

// ParticipantID uniquely identifies a participant across the system
type ParticipantID string

// Participant is a registered attendee of the networking app.
// PublicID is the opaque token embedded in encounter codes; it is random,
// never reused, and carries no relation to the Telegram id.
type Participant struct {
	ID         ParticipantID
	TelegramID string
	PublicID   string
	CreatedAt  time.Time
}

// Membership records that a participant has joined an event
type Membership struct {
	ID            string
	EventID       EventID
	ParticipantID ParticipantID
	JoinedAt      time.Time
}

// Profile holds the participant-editable profile fields
type Profile struct {
	ParticipantID ParticipantID
	PhotoURL      *string
	FirstName     string
	LastName      *string
	Instagram     *string
	Niche         *string
	About         *string
	Helpful       *string
	UpdatedAt     time.Time
}

// ParticipantSummary is one directory entry for an event: the public
// identity of a member joined with their profile. Members without a profile
// are not listed.
type ParticipantSummary struct {
	ParticipantID ParticipantID
	PublicID      string
	JoinedAt      time.Time
	Profile       Profile
}

// DisplayName joins first and last name, skipping empty parts
func (p Profile) DisplayName() string {
	first := strings.TrimSpace(p.FirstName)
	last := ""
	if p.LastName != nil {
		last = strings.TrimSpace(*p.LastName)
	}
	if last == "" {
		return first
	}
	if first == "" {
		return last
	}
	return first + " " + last
}
