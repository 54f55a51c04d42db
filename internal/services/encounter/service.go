// Package encounter maintains the ledger of mutual encounters.
package encounter

import (
	"context"
	"errors"

	"github.com/mcoot/eventpulse/internal/dependencies/clock"
	"github.com/mcoot/eventpulse/internal/dependencies/random"
	"github.com/mcoot/eventpulse/internal/model"
	"github.com/mcoot/eventpulse/internal/storage"
)

// Service records encounters and their per-side annotations
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random
}

// New creates a new encounter service
func New(storage storage.Storage, clock clock.Clock, random random.Random) *Service {
	return &Service{
		storage: storage,
		clock:   clock,
		random:  random,
	}
}

// Record registers an encounter between the initiator and another
// participant. One encounter row exists per unordered pair per event:
// recording the same pair again, from either side, returns the existing
// row with Created false. Both sides get an annotation row up front so
// notes and ratings can be attached without a second insert path.
func (s *Service) Record(ctx context.Context, eventID model.EventID, initiatorID, otherID model.ParticipantID) (*model.EncounterResult, error) {
	if initiatorID == otherID {
		return nil, model.ErrSelfScan
	}

	low, high := model.OrderPair(initiatorID, otherID)
	encounter := &model.Encounter{
		ID:                model.EncounterID(s.random.UUID()),
		EventID:           eventID,
		ParticipantLowID:  low,
		ParticipantHighID: high,
		InitiatorID:       initiatorID,
		CreatedAt:         s.clock.Now(),
	}

	created := true
	if err := s.storage.InsertEncounter(ctx, encounter); err != nil {
		if !errors.Is(err, model.ErrAlreadyExists) {
			return nil, err
		}
		existing, err := s.storage.GetEncounterByPair(ctx, eventID, low, high)
		if err != nil {
			return nil, err
		}
		encounter = existing
		created = false
	}

	now := s.clock.Now()
	for _, participantID := range []model.ParticipantID{low, high} {
		err := s.storage.EnsureAnnotation(ctx, &model.Annotation{
			EncounterID:   encounter.ID,
			ParticipantID: participantID,
			UpdatedAt:     now,
		})
		if err != nil {
			return nil, err
		}
	}

	return &model.EncounterResult{
		EncounterID:        encounter.ID,
		OtherParticipantID: encounter.Counterpart(initiatorID),
		Created:            created,
	}, nil
}

// Annotate sets the caller's private note and rating for an encounter.
// The encounter must belong to the event and include the caller.
func (s *Service) Annotate(ctx context.Context, eventID model.EventID, participantID model.ParticipantID, encounterID model.EncounterID, note *string, rating *int) error {
	if _, err := s.storage.GetEncounterDetail(ctx, eventID, participantID, encounterID); err != nil {
		return err
	}

	now := s.clock.Now()
	err := s.storage.EnsureAnnotation(ctx, &model.Annotation{
		EncounterID:   encounterID,
		ParticipantID: participantID,
		UpdatedAt:     now,
	})
	if err != nil {
		return err
	}
	return s.storage.UpdateAnnotation(ctx, encounterID, participantID, note, rating, now)
}

// List returns the caller's encounters at an event, newest first, each
// with the counterpart snapshot and the caller's own annotation
func (s *Service) List(ctx context.Context, eventID model.EventID, participantID model.ParticipantID) ([]model.EncounterSummary, error) {
	return s.storage.ListEncounters(ctx, eventID, participantID)
}

// Get returns one encounter with the counterpart's full profile
func (s *Service) Get(ctx context.Context, eventID model.EventID, participantID model.ParticipantID, encounterID model.EncounterID) (*model.EncounterDetail, error) {
	return s.storage.GetEncounterDetail(ctx, eventID, participantID, encounterID)
}

// Stats summarises the caller's activity at an event
func (s *Service) Stats(ctx context.Context, eventID model.EventID, participantID model.ParticipantID) (*model.EncounterStats, error) {
	return s.storage.GetEncounterStats(ctx, eventID, participantID)
}
