package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/eventpulse/internal/api/handler"
	apimiddleware "github.com/mcoot/eventpulse/internal/api/middleware"
	"github.com/mcoot/eventpulse/internal/middleware"
	"github.com/mcoot/eventpulse/internal/services/code"
	"github.com/mcoot/eventpulse/internal/services/encounter"
	"github.com/mcoot/eventpulse/internal/services/event"
	"github.com/mcoot/eventpulse/internal/services/participant"
	"github.com/mcoot/eventpulse/internal/services/telegramauth"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger             *slog.Logger
	AuthService        *telegramauth.Service
	CodeService        *code.Service
	EventService       *event.Service
	ParticipantService *participant.Service
	EncounterService   *encounter.Service
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	participantHandler := handler.NewParticipantHandler(cfg.ParticipantService, cfg.CodeService)
	encounterHandler := handler.NewEncounterHandler(cfg.CodeService, cfg.EventService, cfg.ParticipantService, cfg.EncounterService)

	// Create middleware
	authMiddleware := apimiddleware.Auth(cfg.AuthService, cfg.ParticipantService, cfg.EventService)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := apimiddleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	// All remaining routes require a verified caller
	protected := api.NewRoute().Subrouter()
	protected.Use(authMiddleware)

	protected.HandleFunc("/me", participantHandler.Me).Methods(http.MethodGet)
	protected.HandleFunc("/me/profile", participantHandler.UpdateProfile).Methods(http.MethodPut)
	protected.HandleFunc("/me/code", participantHandler.GetCode).Methods(http.MethodGet)

	protected.HandleFunc("/scan", encounterHandler.Scan).Methods(http.MethodPost)
	protected.HandleFunc("/encounters", encounterHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/encounters/{id}", encounterHandler.Get).Methods(http.MethodGet)
	protected.HandleFunc("/encounters/{id}/annotation", encounterHandler.Annotate).Methods(http.MethodPut)

	protected.HandleFunc("/participants", participantHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/stats", encounterHandler.Stats).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
