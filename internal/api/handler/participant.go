package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/mcoot/eventpulse/internal/api/middleware"
	"github.com/mcoot/eventpulse/internal/api/request"
	"github.com/mcoot/eventpulse/internal/api/response"
	"github.com/mcoot/eventpulse/internal/services/code"
	"github.com/mcoot/eventpulse/internal/services/participant"
)

const (
	maxNameLength  = 100
	maxFieldLength = 500
)

// ParticipantHandler handles identity, profile and directory endpoints
type ParticipantHandler struct {
	participantService *participant.Service
	codeService        *code.Service
}

// NewParticipantHandler creates a new participant handler
func NewParticipantHandler(participantService *participant.Service, codeService *code.Service) *ParticipantHandler {
	return &ParticipantHandler{
		participantService: participantService,
		codeService:        codeService,
	}
}

// Me handles GET /api/v1/me
func (h *ParticipantHandler) Me(w http.ResponseWriter, r *http.Request) {
	caller := middleware.MustGetParticipant(r.Context())
	activeEvent := middleware.MustGetEvent(r.Context())

	profile, err := h.participantService.GetProfile(r.Context(), caller.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Me{
		ParticipantID: string(caller.ID),
		PublicID:      caller.PublicID,
		Event:         response.EventFromModel(activeEvent),
		Profile:       response.ProfileFromModel(profile),
	})
}

// UpdateProfile handles PUT /api/v1/me/profile
func (h *ParticipantHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	caller := middleware.MustGetParticipant(r.Context())

	var req request.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if utf8.RuneCountInString(req.FirstName) > maxNameLength {
		WriteError(w, NewInvalidRequestError("first_name is too long"))
		return
	}
	for name, field := range map[string]*string{
		"last_name": req.LastName,
		"photo_url": req.PhotoURL,
		"instagram": req.Instagram,
		"niche":     req.Niche,
		"about":     req.About,
		"helpful":   req.Helpful,
	} {
		if field != nil && utf8.RuneCountInString(*field) > maxFieldLength {
			WriteError(w, NewInvalidRequestError(name+" is too long"))
			return
		}
	}

	profile, err := h.participantService.UpdateProfile(r.Context(), caller.ID, participant.UpdateProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		PhotoURL:  req.PhotoURL,
		Instagram: req.Instagram,
		Niche:     req.Niche,
		About:     req.About,
		Helpful:   req.Helpful,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ProfileFromModel(profile))
}

// GetCode handles GET /api/v1/me/code
func (h *ParticipantHandler) GetCode(w http.ResponseWriter, r *http.Request) {
	caller := middleware.MustGetParticipant(r.Context())
	activeEvent := middleware.MustGetEvent(r.Context())

	issued, issuedAt, err := h.codeService.Issue(activeEvent.Slug, caller.PublicID)
	if err != nil {
		WriteError(w, err)
		return
	}

	resp := response.Code{Code: issued}
	if issuedAt != nil {
		ms := issuedAt.UnixMilli()
		resp.IssuedAtMs = &ms
	}
	response.JSON(w, http.StatusOK, resp)
}

// List handles GET /api/v1/participants
func (h *ParticipantHandler) List(w http.ResponseWriter, r *http.Request) {
	activeEvent := middleware.MustGetEvent(r.Context())

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			WriteError(w, NewInvalidRequestError("limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	members, err := h.participantService.List(r.Context(), activeEvent.ID, r.URL.Query().Get("q"), limit)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ParticipantListFromModel(members))
}
