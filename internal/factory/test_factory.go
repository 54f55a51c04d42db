package factory

import (
	"time"

	"github.com/mcoot/eventpulse/internal/dependencies/mocks"
	"github.com/mcoot/eventpulse/internal/services/code"
	"github.com/mcoot/eventpulse/internal/services/event"
	"github.com/mcoot/eventpulse/internal/services/telegramauth"
	"github.com/mcoot/eventpulse/internal/storage/memory"
)

// TestSecret signs codes and credentials in tests
const TestSecret = "test-app-secret"

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// TestAppConfig tweaks the wired services for a test
type TestAppConfig struct {
	AllowUnsignedCodes bool
	DevModeEnabled     bool
	AllowPublicCreate  bool
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp(cfg TestAppConfig) *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	app := newWithDependencies(store, mockClock, mockRandom, serviceConfig{
		auth: telegramauth.Config{
			Secret:         TestSecret,
			MaxAge:         24 * time.Hour,
			DevModeEnabled: cfg.DevModeEnabled,
		},
		code: code.Config{
			Secret:           TestSecret,
			AllowUnsigned:    cfg.AllowUnsignedCodes,
			MaxAge:           7 * 24 * time.Hour,
			DefaultEventSlug: "demo",
		},
		event: event.Config{
			DefaultSlug:       "demo",
			DefaultName:       "Demo Event",
			AllowPublicCreate: cfg.AllowPublicCreate,
		},
	})

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}
