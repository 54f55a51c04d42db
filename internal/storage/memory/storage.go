package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mcoot/eventpulse/internal/model"
	"github.com/mcoot/eventpulse/internal/storage"
)

// Storage is an in-memory implementation of the storage interface. It
// enforces the same uniqueness constraints as the SQLite backend under a
// single mutex, which makes it a faithful stand-in for service tests and
// local runs.
type Storage struct {
	mu sync.RWMutex

	participants    map[model.ParticipantID]*model.Participant
	telegramIndex   map[string]model.ParticipantID
	publicIndex     map[string]model.ParticipantID
	events          map[model.EventID]*model.Event
	slugIndex       map[string]model.EventID
	memberships     map[membershipKey]*model.Membership
	profiles        map[model.ParticipantID]*model.Profile
	encounters      map[model.EncounterID]*model.Encounter
	encounterPairs  map[pairKey]model.EncounterID
	annotations     map[annotationKey]*model.Annotation
}

type membershipKey struct {
	eventID       model.EventID
	participantID model.ParticipantID
}

type pairKey struct {
	eventID model.EventID
	low     model.ParticipantID
	high    model.ParticipantID
}

type annotationKey struct {
	encounterID   model.EncounterID
	participantID model.ParticipantID
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		participants:   make(map[model.ParticipantID]*model.Participant),
		telegramIndex:  make(map[string]model.ParticipantID),
		publicIndex:    make(map[string]model.ParticipantID),
		events:         make(map[model.EventID]*model.Event),
		slugIndex:      make(map[string]model.EventID),
		memberships:    make(map[membershipKey]*model.Membership),
		profiles:       make(map[model.ParticipantID]*model.Profile),
		encounters:     make(map[model.EncounterID]*model.Encounter),
		encounterPairs: make(map[pairKey]model.EncounterID),
		annotations:    make(map[annotationKey]*model.Annotation),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Participant operations

func (s *Storage) CreateParticipant(ctx context.Context, p *model.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.telegramIndex[p.TelegramID]; ok {
		return model.ErrAlreadyExists
	}
	if _, ok := s.publicIndex[p.PublicID]; ok {
		return model.ErrAlreadyExists
	}
	cp := *p
	s.participants[p.ID] = &cp
	s.telegramIndex[p.TelegramID] = p.ID
	s.publicIndex[p.PublicID] = p.ID
	return nil
}

func (s *Storage) GetParticipant(ctx context.Context, id model.ParticipantID) (*model.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[id]
	if !ok {
		return nil, model.ErrParticipantNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Storage) GetParticipantByTelegramID(ctx context.Context, telegramID string) (*model.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.telegramIndex[telegramID]
	if !ok {
		return nil, model.ErrParticipantNotFound
	}
	cp := *s.participants[id]
	return &cp, nil
}

func (s *Storage) GetParticipantByPublicID(ctx context.Context, publicID string) (*model.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.publicIndex[publicID]
	if !ok {
		return nil, model.ErrParticipantNotFound
	}
	cp := *s.participants[id]
	return &cp, nil
}

// Event operations

func (s *Storage) CreateEvent(ctx context.Context, e *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.slugIndex[e.Slug]; ok {
		return model.ErrAlreadyExists
	}
	cp := *e
	s.events[e.ID] = &cp
	s.slugIndex[e.Slug] = e.ID
	return nil
}

func (s *Storage) GetEventBySlug(ctx context.Context, slug string) (*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.slugIndex[slug]
	if !ok {
		return nil, model.ErrEventNotFound
	}
	cp := *s.events[id]
	return &cp, nil
}

// Membership operations

func (s *Storage) EnsureMembership(ctx context.Context, m *model.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := membershipKey{m.EventID, m.ParticipantID}
	if _, ok := s.memberships[key]; ok {
		return nil
	}
	cp := *m
	s.memberships[key] = &cp
	return nil
}

func (s *Storage) ListMembers(ctx context.Context, eventID model.EventID, limit int) ([]model.ParticipantSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var members []model.ParticipantSummary
	for key, m := range s.memberships {
		if key.eventID != eventID {
			continue
		}
		profile, ok := s.profiles[key.participantID]
		if !ok {
			continue
		}
		p := s.participants[key.participantID]
		members = append(members, model.ParticipantSummary{
			ParticipantID: p.ID,
			PublicID:      p.PublicID,
			JoinedAt:      m.JoinedAt,
			Profile:       *profile,
		})
	}
	// Newest joiners first, id as tiebreak for deterministic ordering
	sort.Slice(members, func(i, j int) bool {
		if !members[i].JoinedAt.Equal(members[j].JoinedAt) {
			return members[i].JoinedAt.After(members[j].JoinedAt)
		}
		return members[i].ParticipantID < members[j].ParticipantID
	})
	if limit > 0 && len(members) > limit {
		members = members[:limit]
	}
	return members, nil
}

// Profile operations

func (s *Storage) GetProfile(ctx context.Context, id model.ParticipantID) (*model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, model.ErrParticipantNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Storage) UpsertProfile(ctx context.Context, p *model.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.profiles[p.ParticipantID] = &cp
	return nil
}

// Encounter operations

func (s *Storage) InsertEncounter(ctx context.Context, e *model.Encounter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{e.EventID, e.ParticipantLowID, e.ParticipantHighID}
	if _, ok := s.encounterPairs[key]; ok {
		return model.ErrAlreadyExists
	}
	cp := *e
	s.encounters[e.ID] = &cp
	s.encounterPairs[key] = e.ID
	return nil
}

func (s *Storage) GetEncounterByPair(ctx context.Context, eventID model.EventID, low, high model.ParticipantID) (*model.Encounter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.encounterPairs[pairKey{eventID, low, high}]
	if !ok {
		return nil, model.ErrEncounterNotFound
	}
	cp := *s.encounters[id]
	return &cp, nil
}

func (s *Storage) ListEncounters(ctx context.Context, eventID model.EventID, participantID model.ParticipantID) ([]model.EncounterSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var summaries []model.EncounterSummary
	for _, e := range s.encounters {
		if e.EventID != eventID {
			continue
		}
		other := e.Counterpart(participantID)
		if other == "" {
			continue
		}
		summaries = append(summaries, s.summaryLocked(e, participantID, other))
	}
	// Newest first, id as tiebreak for deterministic ordering
	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
		}
		return summaries[i].ID < summaries[j].ID
	})
	return summaries, nil
}

func (s *Storage) GetEncounterDetail(ctx context.Context, eventID model.EventID, participantID model.ParticipantID, encounterID model.EncounterID) (*model.EncounterDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.encounters[encounterID]
	if !ok || e.EventID != eventID {
		return nil, model.ErrEncounterNotFound
	}
	other := e.Counterpart(participantID)
	if other == "" {
		// Scoped structurally: non-participants cannot see the encounter
		return nil, model.ErrEncounterNotFound
	}
	detail := &model.EncounterDetail{
		EncounterSummary: s.summaryLocked(e, participantID, other),
	}
	if profile, ok := s.profiles[other]; ok {
		cp := *profile
		detail.OtherProfile = &cp
	}
	return detail, nil
}

func (s *Storage) GetEncounterStats(ctx context.Context, eventID model.EventID, participantID model.ParticipantID) (*model.EncounterStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := &model.EncounterStats{}
	var ratingSum int
	for _, e := range s.encounters {
		if e.EventID != eventID || e.Counterpart(participantID) == "" {
			continue
		}
		stats.Encounters++
		if a, ok := s.annotations[annotationKey{e.ID, participantID}]; ok {
			if a.Rating != nil {
				stats.Rated++
				ratingSum += *a.Rating
			}
			if a.Note != nil && len(*a.Note) > 0 {
				stats.Notes++
			}
		}
	}
	if stats.Rated > 0 {
		avg := float64(ratingSum) / float64(stats.Rated)
		stats.AvgRating = &avg
	}
	return stats, nil
}

func (s *Storage) summaryLocked(e *model.Encounter, me, other model.ParticipantID) model.EncounterSummary {
	summary := model.EncounterSummary{
		ID:        e.ID,
		CreatedAt: e.CreatedAt,
	}
	if p, ok := s.participants[other]; ok {
		summary.Other = model.CounterpartSnapshot{
			ParticipantID: p.ID,
			PublicID:      p.PublicID,
		}
	}
	if profile, ok := s.profiles[other]; ok {
		name := profile.DisplayName()
		summary.Other.DisplayName = &name
		summary.Other.PhotoURL = profile.PhotoURL
		summary.Other.Niche = profile.Niche
	}
	if a, ok := s.annotations[annotationKey{e.ID, me}]; ok {
		summary.Note = a.Note
		summary.Rating = a.Rating
	}
	return summary
}

// Annotation operations

func (s *Storage) EnsureAnnotation(ctx context.Context, a *model.Annotation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := annotationKey{a.EncounterID, a.ParticipantID}
	if _, ok := s.annotations[key]; ok {
		return nil
	}
	cp := *a
	s.annotations[key] = &cp
	return nil
}

func (s *Storage) UpdateAnnotation(ctx context.Context, encounterID model.EncounterID, participantID model.ParticipantID, note *string, rating *int, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := annotationKey{encounterID, participantID}
	a, ok := s.annotations[key]
	if !ok {
		return nil
	}
	a.Note = note
	a.Rating = rating
	a.UpdatedAt = updatedAt
	return nil
}
