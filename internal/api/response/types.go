package response

import (
	"time"

	"github.com/mcoot/eventpulse/internal/model"
)

// Me is the response for the identity endpoint
type Me struct {
	ParticipantID string  `json:"participant_id"`
	PublicID      string  `json:"public_id"`
	Event         Event   `json:"event"`
	Profile       Profile `json:"profile"`
}

// Event represents the active event
type Event struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// EventFromModel converts a model.Event
func EventFromModel(e *model.Event) Event {
	return Event{
		Slug: e.Slug,
		Name: e.Name,
	}
}

// Profile represents a participant profile
type Profile struct {
	FirstName string  `json:"first_name"`
	LastName  *string `json:"last_name"`
	PhotoURL  *string `json:"photo_url"`
	Instagram *string `json:"instagram"`
	Niche     *string `json:"niche"`
	About     *string `json:"about"`
	Helpful   *string `json:"helpful"`
}

// ProfileFromModel converts a model.Profile
func ProfileFromModel(p *model.Profile) Profile {
	return Profile{
		FirstName: p.FirstName,
		LastName:  p.LastName,
		PhotoURL:  p.PhotoURL,
		Instagram: p.Instagram,
		Niche:     p.Niche,
		About:     p.About,
		Helpful:   p.Helpful,
	}
}

// Code is the response for the code issuing endpoint. IssuedAtMs is null
// for unsigned codes.
type Code struct {
	Code       string `json:"code"`
	IssuedAtMs *int64 `json:"issued_at_ms"`
}

// Scan is the response for recording an encounter
type Scan struct {
	EncounterID string       `json:"encounter_id"`
	Created     bool         `json:"created"`
	Other       *Counterpart `json:"other,omitempty"`
}

// Counterpart is the public view of the other side of an encounter
type Counterpart struct {
	ParticipantID string  `json:"participant_id"`
	PublicID      string  `json:"public_id"`
	DisplayName   *string `json:"display_name"`
	PhotoURL      *string `json:"photo_url"`
	Niche         *string `json:"niche"`
}

// CounterpartFromModel converts a model.CounterpartSnapshot
func CounterpartFromModel(c model.CounterpartSnapshot) Counterpart {
	return Counterpart{
		ParticipantID: string(c.ParticipantID),
		PublicID:      c.PublicID,
		DisplayName:   c.DisplayName,
		PhotoURL:      c.PhotoURL,
		Niche:         c.Niche,
	}
}

// Encounter is one row of the encounter list
type Encounter struct {
	ID        string      `json:"id"`
	CreatedAt time.Time   `json:"created_at"`
	Other     Counterpart `json:"other"`
	Note      *string     `json:"note"`
	Rating    *int        `json:"rating"`
}

// EncounterFromModel converts a model.EncounterSummary
func EncounterFromModel(e model.EncounterSummary) Encounter {
	return Encounter{
		ID:        string(e.ID),
		CreatedAt: e.CreatedAt,
		Other:     CounterpartFromModel(e.Other),
		Note:      e.Note,
		Rating:    e.Rating,
	}
}

// EncounterList is the response for the encounter list endpoint
type EncounterList struct {
	Encounters []Encounter `json:"encounters"`
}

// EncounterListFromModel converts a slice of model.EncounterSummary
func EncounterListFromModel(summaries []model.EncounterSummary) EncounterList {
	encounters := make([]Encounter, 0, len(summaries))
	for _, summary := range summaries {
		encounters = append(encounters, EncounterFromModel(summary))
	}
	return EncounterList{Encounters: encounters}
}

// EncounterDetail is the response for a single encounter
type EncounterDetail struct {
	Encounter
	OtherProfile *Profile `json:"other_profile"`
}

// EncounterDetailFromModel converts a model.EncounterDetail
func EncounterDetailFromModel(d *model.EncounterDetail) EncounterDetail {
	detail := EncounterDetail{
		Encounter: EncounterFromModel(d.EncounterSummary),
	}
	if d.OtherProfile != nil {
		profile := ProfileFromModel(d.OtherProfile)
		detail.OtherProfile = &profile
	}
	return detail
}

// Participant is one directory entry in the participant list
type Participant struct {
	ParticipantID string    `json:"participant_id"`
	PublicID      string    `json:"public_id"`
	JoinedAt      time.Time `json:"joined_at"`
	Profile       Profile   `json:"profile"`
}

// ParticipantList is the response for the participant list endpoint
type ParticipantList struct {
	Participants []Participant `json:"participants"`
}

// ParticipantListFromModel converts a slice of model.ParticipantSummary
func ParticipantListFromModel(summaries []model.ParticipantSummary) ParticipantList {
	participants := make([]Participant, 0, len(summaries))
	for _, summary := range summaries {
		profile := summary.Profile
		participants = append(participants, Participant{
			ParticipantID: string(summary.ParticipantID),
			PublicID:      summary.PublicID,
			JoinedAt:      summary.JoinedAt,
			Profile:       ProfileFromModel(&profile),
		})
	}
	return ParticipantList{Participants: participants}
}

// Stats is the response for the stats endpoint
type Stats struct {
	Encounters int      `json:"encounters"`
	Rated      int      `json:"rated"`
	AvgRating  *float64 `json:"avg_rating"`
	Notes      int      `json:"notes"`
}

// StatsFromModel converts a model.EncounterStats
func StatsFromModel(s *model.EncounterStats) Stats {
	return Stats{
		Encounters: s.Encounters,
		Rated:      s.Rated,
		AvgRating:  s.AvgRating,
		Notes:      s.Notes,
	}
}

// Health is the response for the health endpoint
type Health struct {
	Status string `json:"status"`
}
