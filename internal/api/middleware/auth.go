package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mcoot/eventpulse/internal/api/apierr"
	"github.com/mcoot/eventpulse/internal/model"
	"github.com/mcoot/eventpulse/internal/services/event"
	"github.com/mcoot/eventpulse/internal/services/participant"
	"github.com/mcoot/eventpulse/internal/services/telegramauth"
)

type contextKey string

const (
	participantContextKey contextKey = "participant"
	eventContextKey       contextKey = "event"
)

// Auth creates authentication middleware. It resolves the caller from
// Telegram init data (or the dev fallback), provisions the participant
// on first sight, resolves the active event and registers membership.
func Auth(authService *telegramauth.Service, participantService *participant.Service, eventService *event.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := resolveIdentity(authService, r)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			ctx := r.Context()
			caller, err := participantService.GetOrCreate(ctx, participant.Identity{
				TelegramID: identity.TelegramID,
				FirstName:  identity.FirstName,
				LastName:   identity.LastName,
				PhotoURL:   identity.PhotoURL,
			})
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			activeEvent, err := eventService.Resolve(ctx, extractEventSlug(r))
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			if err := participantService.EnsureMembership(ctx, activeEvent.ID, caller.ID); err != nil {
				apierr.WriteError(w, err)
				return
			}

			ctx = context.WithValue(ctx, participantContextKey, caller)
			ctx = context.WithValue(ctx, eventContextKey, activeEvent)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveIdentity(authService *telegramauth.Service, r *http.Request) (*telegramauth.Identity, error) {
	if initData := extractInitData(r); initData != "" {
		return authService.Verify(initData)
	}
	if devID := extractDevID(r); devID != "" {
		return authService.ResolveDev(devID)
	}
	return nil, apierr.NewUnauthorizedError()
}

// extractInitData extracts the Telegram init data from the request
func extractInitData(r *http.Request) string {
	if initData := r.Header.Get("X-Telegram-Init-Data"); initData != "" {
		return initData
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "tma ") {
		return strings.TrimPrefix(authHeader, "tma ")
	}

	return ""
}

// extractDevID extracts the dev fallback Telegram id from the request
func extractDevID(r *http.Request) string {
	if devID := r.Header.Get("X-Dev-Telegram-Id"); devID != "" {
		return devID
	}
	return r.URL.Query().Get("devTelegramId")
}

// extractEventSlug extracts the requested event slug, empty meaning the
// default event
func extractEventSlug(r *http.Request) string {
	if slug := r.Header.Get("X-Event-Slug"); slug != "" {
		return slug
	}
	return r.URL.Query().Get("event")
}

// GetParticipant returns the authenticated participant from the request context
func GetParticipant(ctx context.Context) *model.Participant {
	caller, _ := ctx.Value(participantContextKey).(*model.Participant)
	return caller
}

// GetEvent returns the active event from the request context
func GetEvent(ctx context.Context) *model.Event {
	activeEvent, _ := ctx.Value(eventContextKey).(*model.Event)
	return activeEvent
}

// MustGetParticipant returns the authenticated participant or panics
func MustGetParticipant(ctx context.Context) *model.Participant {
	caller := GetParticipant(ctx)
	if caller == nil {
		panic("no participant in context - auth middleware not applied?")
	}
	return caller
}

// MustGetEvent returns the active event or panics
func MustGetEvent(ctx context.Context) *model.Event {
	activeEvent := GetEvent(ctx)
	if activeEvent == nil {
		panic("no event in context - auth middleware not applied?")
	}
	return activeEvent
}
