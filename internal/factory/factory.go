// Package factory wires the application components together.
package factory

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/eventpulse/internal/config"
	"github.com/mcoot/eventpulse/internal/dependencies/clock"
	"github.com/mcoot/eventpulse/internal/dependencies/random"
	"github.com/mcoot/eventpulse/internal/services/code"
	"github.com/mcoot/eventpulse/internal/services/encounter"
	"github.com/mcoot/eventpulse/internal/services/event"
	"github.com/mcoot/eventpulse/internal/services/participant"
	"github.com/mcoot/eventpulse/internal/services/telegramauth"
	"github.com/mcoot/eventpulse/internal/storage"
	"github.com/mcoot/eventpulse/internal/storage/memory"
	"github.com/mcoot/eventpulse/internal/storage/sqlite"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeSQLite = "sqlite"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	AuthService        *telegramauth.Service
	CodeService        *code.Service
	EventService       *event.Service
	ParticipantService *participant.Service
	EncounterService   *encounter.Service

	closer io.Closer
}

// New creates a new application with all dependencies wired from config
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	var store storage.Storage
	var closer io.Closer
	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeSQLite:
		sqliteStore, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		store = sqliteStore
		closer = sqliteStore
		logger.Info("opened sqlite storage", slog.String("path", cfg.SQLitePath))
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'sqlite'")
	}

	clk := clock.New()
	rnd := random.New()

	app := newWithDependencies(store, clk, rnd, serviceConfigs(cfg))
	app.closer = closer
	return app, nil
}

// Close releases storage resources
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// serviceConfig bundles the per-service configuration derived from the
// environment config
type serviceConfig struct {
	auth  telegramauth.Config
	code  code.Config
	event event.Config
}

func serviceConfigs(cfg *config.Config) serviceConfig {
	return serviceConfig{
		auth: telegramauth.Config{
			Secret:         cfg.AppSecret,
			MaxAge:         time.Duration(cfg.CredentialMaxAgeSeconds) * time.Second,
			DevModeEnabled: cfg.DevModeEnabled,
		},
		code: code.Config{
			Secret:           cfg.AppSecret,
			AllowUnsigned:    cfg.AllowUnsignedCodes,
			MaxAge:           time.Duration(cfg.CodeMaxAgeSeconds) * time.Second,
			DefaultEventSlug: cfg.DefaultEventSlug,
		},
		event: event.Config{
			DefaultSlug:       cfg.DefaultEventSlug,
			DefaultName:       cfg.DefaultEventName,
			AllowPublicCreate: cfg.AllowPublicEventCreate,
		},
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, cfgs serviceConfig) *App {
	authService := telegramauth.New(cfgs.auth, clk)
	codeService := code.New(cfgs.code, clk)
	eventService := event.New(store, clk, rnd, cfgs.event)
	participantService := participant.New(store, clk, rnd)
	encounterService := encounter.New(store, clk, rnd)

	return &App{
		Storage:            store,
		Clock:              clk,
		Random:             rnd,
		AuthService:        authService,
		CodeService:        codeService,
		EventService:       eventService,
		ParticipantService: participantService,
		EncounterService:   encounterService,
	}
}
