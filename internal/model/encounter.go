package model

import "time"

// EncounterID uniquely identifies a recorded encounter
type EncounterID string

// Encounter is a mutual meeting between two participants at one event.
// The pair is stored in canonical order (ParticipantLowID < ParticipantHighID
// lexicographically) so one row covers both scan directions.
type Encounter struct {
	ID                EncounterID
	EventID           EventID
	ParticipantLowID  ParticipantID
	ParticipantHighID ParticipantID
	InitiatorID       ParticipantID
	CreatedAt         time.Time
}

// OrderPair returns the canonical (low, high) ordering of two participant ids.
// The order is a plain lexicographic comparison and must stay stable for the
// lifetime of the ids.
func OrderPair(a, b ParticipantID) (ParticipantID, ParticipantID) {
	if a < b {
		return a, b
	}
	return b, a
}

// Counterpart returns the other side of the encounter for the given
// participant, or empty if the participant is not part of it
func (e *Encounter) Counterpart(id ParticipantID) ParticipantID {
	switch id {
	case e.ParticipantLowID:
		return e.ParticipantHighID
	case e.ParticipantHighID:
		return e.ParticipantLowID
	}
	return ""
}

// Annotation is one side's private note and rating about an encounter.
// Exactly one row exists per (encounter, participant); rows are created empty
// alongside the encounter and only ever updated afterwards.
type Annotation struct {
	EncounterID   EncounterID
	ParticipantID ParticipantID
	Note          *string
	Rating        *int
	UpdatedAt     time.Time
}

// EncounterResult is the outcome of recording a scan. Created distinguishes a
// new connection from a re-scan of an existing one.
type EncounterResult struct {
	EncounterID        EncounterID
	OtherParticipantID ParticipantID
	Created            bool
}

// CounterpartSnapshot is the profile summary of the other participant as
// shown in encounter lists
type CounterpartSnapshot struct {
	ParticipantID ParticipantID
	PublicID      string
	DisplayName   *string
	PhotoURL      *string
	Niche         *string
}

// EncounterSummary is one list entry: the encounter, the counterpart
// snapshot, and the caller's own annotation
type EncounterSummary struct {
	ID        EncounterID
	CreatedAt time.Time
	Other     CounterpartSnapshot
	Note      *string
	Rating    *int
}

// EncounterDetail extends the summary with the counterpart's full profile
type EncounterDetail struct {
	EncounterSummary
	OtherProfile *Profile
}

// EncounterStats aggregates a participant's activity within one event
type EncounterStats struct {
	Encounters int
	Rated      int
	AvgRating  *float64
	Notes      int
}
