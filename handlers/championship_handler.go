package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/clubpadel/championship-system/models"
	"github.com/clubpadel/championship-system/repositories"
	"github.com/clubpadel/championship-system/services"
)

type ChampionshipHandler struct {
	championshipService services.ChampionshipService
	notifier            services.Notifier
}

func NewChampionshipHandler(championshipService services.ChampionshipService, notifier services.Notifier) *ChampionshipHandler {
	return &ChampionshipHandler{
		championshipService: championshipService,
		notifier:            notifier,
	}
}

type championshipInput struct {
	Name           string                  `json:"name" validate:"required"`
	Sport          string                  `json:"sport" validate:"required"`
	SeasonID       int                     `json:"season_id" validate:"required,gt=0"`
	Modality       models.Modality         `json:"modality" validate:"required,oneof=singles doubles"`
	StartDate      time.Time               `json:"start_date" validate:"required"`
	EndDate        time.Time               `json:"end_date" validate:"required"`
	MaxEntries     int                     `json:"max_entries" validate:"required,gt=0"`
	Rules          models.EligibilityRules `json:"rules"`
	PositionPoints map[int]int             `json:"position_points,omitempty"`
}

func (in *championshipInput) toModel() *models.Championship {
	return &models.Championship{
		Name:           in.Name,
		Sport:          in.Sport,
		SeasonID:       in.SeasonID,
		Modality:       in.Modality,
		StartDate:      in.StartDate,
		EndDate:        in.EndDate,
		MaxEntries:     in.MaxEntries,
		Rules:          in.Rules,
		PositionPoints: in.PositionPoints,
	}
}

func (h *ChampionshipHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input championshipInput
	if err := readAndValidate(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	champ, err := h.championshipService.Create(r.Context(), input.toModel())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"championship": champ}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ChampionshipHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repositories.ListChampionshipsFilter{Limit: 50}
	q := r.URL.Query()

	if sport := q.Get("deporte"); sport != "" {
		filter.Sport = &sport
	}
	if seasonStr := q.Get("temporada"); seasonStr != "" {
		seasonID, err := strconv.Atoi(seasonStr)
		if err != nil {
			badRequestResponse(w, r, errInvalidQueryParam("temporada"))
			return
		}
		filter.SeasonID = &seasonID
	}
	if modStr := q.Get("modalidad"); modStr != "" {
		modality := models.Modality(modStr)
		filter.Modality = &modality
	}
	if closedStr := q.Get("cerrado"); closedStr != "" {
		closed, err := strconv.ParseBool(closedStr)
		if err != nil {
			badRequestResponse(w, r, errInvalidQueryParam("cerrado"))
			return
		}
		filter.Closed = &closed
	}
	if limitStr := q.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			badRequestResponse(w, r, errInvalidQueryParam("limit"))
			return
		}
		filter.Limit = limit
	}
	if offsetStr := q.Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			badRequestResponse(w, r, errInvalidQueryParam("offset"))
			return
		}
		filter.Offset = offset
	}

	championships, err := h.championshipService.List(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"championships": championships}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByID отдаёт чемпионат со всеми этапами, записями и матчами.
func (h *ChampionshipHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	champ, err := h.championshipService.GetFullByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"championship": champ}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ChampionshipHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input championshipInput
	if err := readAndValidate(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	champ := input.toModel()
	champ.ID = id

	updated, err := h.championshipService.Update(r.Context(), champ)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"championship": updated}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type stageInput struct {
	Kind     models.StageKind     `json:"kind" validate:"required,oneof=round_robin elimination"`
	Document models.StageDocument `json:"document"`
}

// AddStage регистрирует подготовленный документ этапа.
func (h *ChampionshipHandler) AddStage(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input stageInput
	if err := readAndValidate(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	stage := &models.Stage{
		Kind:     input.Kind,
		Document: input.Document,
	}
	created, err := h.championshipService.AddStage(r.Context(), id, stage)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"stage": created}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ProcessStart запускает нормализацию первого этапа.
func (h *ChampionshipHandler) ProcessStart(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, events, err := h.championshipService.ProcessStart(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.notifier.Dispatch(r.Context(), events)

	if err := writeJSON(w, http.StatusOK, jsonResponse{"normalization": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Close подводит итоги и начисляет очки за места.
func (h *ChampionshipHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	positions, events, err := h.championshipService.Close(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.notifier.Dispatch(r.Context(), events)

	if err := writeJSON(w, http.StatusOK, jsonResponse{"positions": positions}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UploadPoster принимает афишу чемпионата multipart-формой.
func (h *ChampionshipHandler) UploadPoster(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	file, header, err := r.FormFile("cartel")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	champ, err := h.championshipService.UploadPoster(r.Context(), id, contentType, file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"championship": champ}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
