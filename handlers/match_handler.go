package handlers

import (
	"net/http"
	"strconv"

	"github.com/clubpadel/championship-system/models"
	"github.com/clubpadel/championship-system/services"
)

type MatchHandler struct {
	matchService services.MatchService
	notifier     services.Notifier
}

func NewMatchHandler(matchService services.MatchService, notifier services.Notifier) *MatchHandler {
	return &MatchHandler{
		matchService: matchService,
		notifier:     notifier,
	}
}

type matchResultInput struct {
	Sets      []models.SetScore `json:"sets"`
	Winners   []int             `json:"winners" validate:"required,min=1,dive,gt=0"`
	Abandoned []int             `json:"abandoned,omitempty" validate:"omitempty,dive,gt=0"`
	Walkover  bool              `json:"walkover,omitempty"`
	// Необязательные переопределения очков за исход.
	WinPoints  *int `json:"win_points,omitempty" validate:"omitempty,gte=0"`
	LossPoints *int `json:"loss_points,omitempty" validate:"omitempty,gte=0"`
}

// RecordResult записывает или переписывает результат матча.
func (h *MatchHandler) RecordResult(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input matchResultInput
	if err := readAndValidate(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result := models.MatchResult{
		Sets:       input.Sets,
		Winners:    input.Winners,
		Abandoned:  input.Abandoned,
		Walkover:   input.Walkover,
		WinPoints:  input.WinPoints,
		LossPoints: input.LossPoints,
	}
	match, events, err := h.matchService.RecordResult(r.Context(), id, result)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.notifier.Dispatch(r.Context(), events)

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.GetByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListByStage отдаёт матчи этапа, ?etapa= обязателен.
func (h *MatchHandler) ListByStage(w http.ResponseWriter, r *http.Request) {
	stageID, err := strconv.Atoi(r.URL.Query().Get("etapa"))
	if err != nil || stageID <= 0 {
		badRequestResponse(w, r, errInvalidQueryParam("etapa"))
		return
	}

	matches, err := h.matchService.ListByStage(r.Context(), stageID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
