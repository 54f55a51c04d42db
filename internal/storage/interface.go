package storage

import (
	"context"
	"time"

	"github.com/mcoot/eventpulse/internal/model"
)

// Storage defines the interface for data persistence.
//
// Implementations must provide real uniqueness guarantees for the
// constraints named below: creating a duplicate reports
// model.ErrAlreadyExists (or silently succeeds for the Ensure* operations)
// rather than corrupting state, even under concurrent calls. Callers treat a
// conflicting insert as "already exists, re-fetch", never as a hard failure.
type Storage interface {
	// Participant operations. TelegramID and PublicID are each unique.
	CreateParticipant(ctx context.Context, p *model.Participant) error
	GetParticipant(ctx context.Context, id model.ParticipantID) (*model.Participant, error)
	GetParticipantByTelegramID(ctx context.Context, telegramID string) (*model.Participant, error)
	GetParticipantByPublicID(ctx context.Context, publicID string) (*model.Participant, error)

	// Event operations. Slug is unique.
	CreateEvent(ctx context.Context, e *model.Event) error
	GetEventBySlug(ctx context.Context, slug string) (*model.Event, error)

	// Membership operations. Unique per (event, participant); EnsureMembership
	// is insert-or-ignore.
	EnsureMembership(ctx context.Context, m *model.Membership) error
	ListMembers(ctx context.Context, eventID model.EventID, limit int) ([]model.ParticipantSummary, error)

	// Profile operations. One row per participant.
	GetProfile(ctx context.Context, id model.ParticipantID) (*model.Profile, error)
	UpsertProfile(ctx context.Context, p *model.Profile) error

	// Encounter operations. Unique per (event, low, high); InsertEncounter
	// reports model.ErrAlreadyExists on a duplicate pair so the caller can
	// re-fetch the winner of a concurrent insert.
	InsertEncounter(ctx context.Context, e *model.Encounter) error
	GetEncounterByPair(ctx context.Context, eventID model.EventID, low, high model.ParticipantID) (*model.Encounter, error)
	ListEncounters(ctx context.Context, eventID model.EventID, participantID model.ParticipantID) ([]model.EncounterSummary, error)
	GetEncounterDetail(ctx context.Context, eventID model.EventID, participantID model.ParticipantID, encounterID model.EncounterID) (*model.EncounterDetail, error)
	GetEncounterStats(ctx context.Context, eventID model.EventID, participantID model.ParticipantID) (*model.EncounterStats, error)

	// Annotation operations. Unique per (encounter, participant);
	// EnsureAnnotation is insert-or-ignore and never touches an existing row.
	// UpdateAnnotation is a pure update: it is a no-op when the row is absent.
	EnsureAnnotation(ctx context.Context, a *model.Annotation) error
	UpdateAnnotation(ctx context.Context, encounterID model.EncounterID, participantID model.ParticipantID, note *string, rating *int, updatedAt time.Time) error
}
