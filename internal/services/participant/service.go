// Package participant manages the attendee directory.
package participant

import (
	"context"
	"errors"
	"strings"

	"github.com/mcoot/eventpulse/internal/dependencies/clock"
	"github.com/mcoot/eventpulse/internal/dependencies/random"
	"github.com/mcoot/eventpulse/internal/model"
	"github.com/mcoot/eventpulse/internal/storage"
)

const (
	defaultListLimit = 200
	maxListLimit     = 500
)

// Identity carries the verified caller details used to seed a new
// participant's profile
type Identity struct {
	TelegramID string
	FirstName  string
	LastName   string
	PhotoURL   string
}

// Service manages participants, memberships and profiles
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random
}

// New creates a new participant service
func New(storage storage.Storage, clock clock.Clock, random random.Random) *Service {
	return &Service{
		storage: storage,
		clock:   clock,
		random:  random,
	}
}

// GetOrCreate returns the participant for a Telegram id, creating one on
// first sight. The public id is random and carries no link to the
// Telegram id. Losing a concurrent create race falls back to the winner.
func (s *Service) GetOrCreate(ctx context.Context, identity Identity) (*model.Participant, error) {
	existing, err := s.storage.GetParticipantByTelegramID(ctx, identity.TelegramID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, model.ErrParticipantNotFound) {
		return nil, err
	}

	now := s.clock.Now()
	created := &model.Participant{
		ID:         model.ParticipantID(s.random.UUID()),
		TelegramID: identity.TelegramID,
		PublicID:   s.random.UUID(),
		CreatedAt:  now,
	}
	if err := s.storage.CreateParticipant(ctx, created); err != nil {
		if errors.Is(err, model.ErrAlreadyExists) {
			return s.storage.GetParticipantByTelegramID(ctx, identity.TelegramID)
		}
		return nil, err
	}

	profile := &model.Profile{
		ParticipantID: created.ID,
		FirstName:     strings.TrimSpace(identity.FirstName),
		UpdatedAt:     now,
	}
	if profile.FirstName == "" {
		profile.FirstName = "Guest"
	}
	if last := strings.TrimSpace(identity.LastName); last != "" {
		profile.LastName = &last
	}
	if photo := strings.TrimSpace(identity.PhotoURL); photo != "" {
		profile.PhotoURL = &photo
	}
	if err := s.storage.UpsertProfile(ctx, profile); err != nil {
		return nil, err
	}

	return created, nil
}

// GetByPublicID looks up a participant from a code's public id
func (s *Service) GetByPublicID(ctx context.Context, publicID string) (*model.Participant, error) {
	return s.storage.GetParticipantByPublicID(ctx, publicID)
}

// EnsureMembership registers a participant at an event. Repeated calls
// are no-ops.
func (s *Service) EnsureMembership(ctx context.Context, eventID model.EventID, participantID model.ParticipantID) error {
	return s.storage.EnsureMembership(ctx, &model.Membership{
		ID:            s.random.UUID(),
		EventID:       eventID,
		ParticipantID: participantID,
		JoinedAt:      s.clock.Now(),
	})
}

// GetProfile returns a participant's profile
func (s *Service) GetProfile(ctx context.Context, id model.ParticipantID) (*model.Profile, error) {
	return s.storage.GetProfile(ctx, id)
}

// UpdateProfileInput holds the editable profile fields. Nil pointer
// fields clear the stored value.
type UpdateProfileInput struct {
	FirstName string
	LastName  *string
	PhotoURL  *string
	Instagram *string
	Niche     *string
	About     *string
	Helpful   *string
}

// UpdateProfile replaces a participant's profile fields
func (s *Service) UpdateProfile(ctx context.Context, id model.ParticipantID, input UpdateProfileInput) (*model.Profile, error) {
	firstName := strings.TrimSpace(input.FirstName)
	if firstName == "" {
		firstName = "Guest"
	}
	profile := &model.Profile{
		ParticipantID: id,
		FirstName:     firstName,
		LastName:      trimmed(input.LastName),
		PhotoURL:      trimmed(input.PhotoURL),
		Instagram:     trimmed(input.Instagram),
		Niche:         trimmed(input.Niche),
		About:         trimmed(input.About),
		Helpful:       trimmed(input.Helpful),
		UpdatedAt:     s.clock.Now(),
	}
	if err := s.storage.UpsertProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// List returns an event's participants, optionally filtered by a
// case-insensitive substring over name, niche and instagram
func (s *Service) List(ctx context.Context, eventID model.EventID, query string, limit int) ([]model.ParticipantSummary, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return s.storage.ListMembers(ctx, eventID, limit)
	}

	// Filter in memory so the substring semantics stay identical across
	// storage backends
	members, err := s.storage.ListMembers(ctx, eventID, maxListLimit)
	if err != nil {
		return nil, err
	}
	var filtered []model.ParticipantSummary
	for _, member := range members {
		if matchesQuery(member.Profile, query) {
			filtered = append(filtered, member)
			if len(filtered) >= limit {
				break
			}
		}
	}
	return filtered, nil
}

func matchesQuery(profile model.Profile, query string) bool {
	fields := []string{profile.DisplayName()}
	for _, field := range []*string{profile.Niche, profile.Instagram} {
		if field != nil {
			fields = append(fields, *field)
		}
	}
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	result := strings.TrimSpace(*value)
	if result == "" {
		return nil
	}
	return &result
}
