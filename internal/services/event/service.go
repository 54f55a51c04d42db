// Package event resolves and provisions events.
package event

import (
	"context"
	"errors"
	"strings"

	"github.com/mcoot/eventpulse/internal/dependencies/clock"
	"github.com/mcoot/eventpulse/internal/dependencies/random"
	"github.com/mcoot/eventpulse/internal/model"
	"github.com/mcoot/eventpulse/internal/storage"
)

// Config holds configuration for the event service
type Config struct {
	// DefaultSlug is the event assumed when a request names none
	DefaultSlug string
	// DefaultName is the display name given to the default event
	DefaultName string
	// AllowPublicCreate provisions unknown slugs on first use
	AllowPublicCreate bool
}

// DefaultConfig returns default event configuration
func DefaultConfig() Config {
	return Config{
		DefaultSlug: "default",
		DefaultName: "Community",
	}
}

// Service resolves event slugs to events
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random

	defaultSlug       string
	defaultName       string
	allowPublicCreate bool
}

// New creates a new event service
func New(storage storage.Storage, clock clock.Clock, random random.Random, cfg Config) *Service {
	if cfg.DefaultSlug == "" {
		cfg.DefaultSlug = DefaultConfig().DefaultSlug
	}
	if cfg.DefaultName == "" {
		cfg.DefaultName = DefaultConfig().DefaultName
	}
	return &Service{
		storage:           storage,
		clock:             clock,
		random:            random,
		defaultSlug:       cfg.DefaultSlug,
		defaultName:       cfg.DefaultName,
		allowPublicCreate: cfg.AllowPublicCreate,
	}
}

// DefaultSlug returns the configured default event slug
func (s *Service) DefaultSlug() string {
	return s.defaultSlug
}

// Resolve returns the event for a slug. An empty slug means the default
// event, which is provisioned on first use. Other unknown slugs are
// provisioned only when public creation is enabled.
func (s *Service) Resolve(ctx context.Context, slug string) (*model.Event, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		slug = s.defaultSlug
	}

	event, err := s.storage.GetEventBySlug(ctx, slug)
	if err == nil {
		return event, nil
	}
	if !errors.Is(err, model.ErrEventNotFound) {
		return nil, err
	}

	if slug != s.defaultSlug && !s.allowPublicCreate {
		return nil, model.ErrEventNotFound
	}

	name := slug
	if slug == s.defaultSlug {
		name = s.defaultName
	}
	created := &model.Event{
		ID:        model.EventID(s.random.UUID()),
		Slug:      slug,
		Name:      name,
		Status:    model.EventStatusActive,
		CreatedAt: s.clock.Now(),
	}
	if err := s.storage.CreateEvent(ctx, created); err != nil {
		// Concurrent provisioning of the same slug: take the winner
		if errors.Is(err, model.ErrAlreadyExists) {
			return s.storage.GetEventBySlug(ctx, slug)
		}
		return nil, err
	}
	return created, nil
}
