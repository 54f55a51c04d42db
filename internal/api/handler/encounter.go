package handler

import (
	"encoding/json"
	"net/http"
	"unicode/utf8"

	"github.com/gorilla/mux"

	"github.com/mcoot/eventpulse/internal/api/middleware"
	"github.com/mcoot/eventpulse/internal/api/request"
	"github.com/mcoot/eventpulse/internal/api/response"
	"github.com/mcoot/eventpulse/internal/model"
	"github.com/mcoot/eventpulse/internal/services/code"
	"github.com/mcoot/eventpulse/internal/services/encounter"
	"github.com/mcoot/eventpulse/internal/services/event"
	"github.com/mcoot/eventpulse/internal/services/participant"
)

const (
	minPublicIDLength = 8
	maxNoteLength     = 1000
)

// EncounterHandler handles scanning and the encounter ledger endpoints
type EncounterHandler struct {
	codeService        *code.Service
	eventService       *event.Service
	participantService *participant.Service
	encounterService   *encounter.Service
}

// NewEncounterHandler creates a new encounter handler
func NewEncounterHandler(codeService *code.Service, eventService *event.Service, participantService *participant.Service, encounterService *encounter.Service) *EncounterHandler {
	return &EncounterHandler{
		codeService:        codeService,
		eventService:       eventService,
		participantService: participantService,
		encounterService:   encounterService,
	}
}

// Scan handles POST /api/v1/scan
// The encounter is recorded in the event the code names, not the
// caller's active event, so cross-event badges land where they belong.
func (h *EncounterHandler) Scan(w http.ResponseWriter, r *http.Request) {
	caller := middleware.MustGetParticipant(r.Context())

	var req request.ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.Code == "" {
		WriteError(w, NewInvalidRequestError("code is required"))
		return
	}

	verified, err := h.codeService.Verify(req.Code)
	if err != nil {
		WriteError(w, err)
		return
	}
	if len(verified.PublicID) < minPublicIDLength {
		WriteError(w, code.ErrMalformed)
		return
	}

	codeEvent, err := h.eventService.Resolve(r.Context(), verified.EventSlug)
	if err != nil {
		WriteError(w, err)
		return
	}

	other, err := h.participantService.GetByPublicID(r.Context(), verified.PublicID)
	if err != nil {
		WriteError(w, err)
		return
	}

	for _, participantID := range []model.ParticipantID{caller.ID, other.ID} {
		if err := h.participantService.EnsureMembership(r.Context(), codeEvent.ID, participantID); err != nil {
			WriteError(w, err)
			return
		}
	}

	result, err := h.encounterService.Record(r.Context(), codeEvent.ID, caller.ID, other.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	scan := response.Scan{
		EncounterID: string(result.EncounterID),
		Created:     result.Created,
	}
	if detail, err := h.encounterService.Get(r.Context(), codeEvent.ID, caller.ID, result.EncounterID); err == nil {
		other := response.CounterpartFromModel(detail.Other)
		scan.Other = &other
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	response.JSON(w, status, scan)
}

// List handles GET /api/v1/encounters
func (h *EncounterHandler) List(w http.ResponseWriter, r *http.Request) {
	caller := middleware.MustGetParticipant(r.Context())
	activeEvent := middleware.MustGetEvent(r.Context())

	summaries, err := h.encounterService.List(r.Context(), activeEvent.ID, caller.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.EncounterListFromModel(summaries))
}

// Get handles GET /api/v1/encounters/{id}
func (h *EncounterHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller := middleware.MustGetParticipant(r.Context())
	activeEvent := middleware.MustGetEvent(r.Context())
	encounterID := model.EncounterID(mux.Vars(r)["id"])

	detail, err := h.encounterService.Get(r.Context(), activeEvent.ID, caller.ID, encounterID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.EncounterDetailFromModel(detail))
}

// Annotate handles PUT /api/v1/encounters/{id}/annotation
func (h *EncounterHandler) Annotate(w http.ResponseWriter, r *http.Request) {
	caller := middleware.MustGetParticipant(r.Context())
	activeEvent := middleware.MustGetEvent(r.Context())
	encounterID := model.EncounterID(mux.Vars(r)["id"])

	var req request.AnnotateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Note != nil && utf8.RuneCountInString(*req.Note) > maxNoteLength {
		WriteError(w, NewInvalidRequestError("note is too long"))
		return
	}
	if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 5) {
		WriteError(w, NewInvalidRequestError("rating must be between 1 and 5"))
		return
	}

	err := h.encounterService.Annotate(r.Context(), activeEvent.ID, caller.ID, encounterID, req.Note, req.Rating)
	if err != nil {
		WriteError(w, err)
		return
	}

	detail, err := h.encounterService.Get(r.Context(), activeEvent.ID, caller.ID, encounterID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.EncounterDetailFromModel(detail))
}

// Stats handles GET /api/v1/stats
func (h *EncounterHandler) Stats(w http.ResponseWriter, r *http.Request) {
	caller := middleware.MustGetParticipant(r.Context())
	activeEvent := middleware.MustGetEvent(r.Context())

	stats, err := h.encounterService.Stats(r.Context(), activeEvent.ID, caller.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.StatsFromModel(stats))
}
