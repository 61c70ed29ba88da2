package handlers

import (
	"net/http"
	"strconv"

	"github.com/clubpadel/championship-system/models"
	"github.com/clubpadel/championship-system/repositories"
	"github.com/clubpadel/championship-system/services"
)

type RankingHandler struct {
	rankingService services.RankingService
}

func NewRankingHandler(rankingService services.RankingService) *RankingHandler {
	return &RankingHandler{rankingService: rankingService}
}

type rankingInput struct {
	PlayerID   int                 `json:"player_id" validate:"required,gt=0"`
	Scope      models.RankingScope `json:"scope" validate:"required"`
	Points     int                 `json:"points"`
	CategoryID *int                `json:"category_id,omitempty" validate:"omitempty,gt=0"`
}

// Upsert создаёт запись рейтинга либо возвращает существующую для области.
func (h *RankingHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var input rankingInput
	if err := readAndValidate(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	ranking := &models.Ranking{
		PlayerID:   input.PlayerID,
		Scope:      input.Scope,
		Points:     input.Points,
		CategoryID: input.CategoryID,
	}
	result, err := h.rankingService.Upsert(r.Context(), ranking)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"ranking": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RankingHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repositories.ListRankingsFilter{Limit: 100}
	q := r.URL.Query()

	if seasonStr := q.Get("temporada"); seasonStr != "" {
		seasonID, err := strconv.Atoi(seasonStr)
		if err != nil {
			badRequestResponse(w, r, errInvalidQueryParam("temporada"))
			return
		}
		scope := models.RankingScope{
			SeasonID: seasonID,
			Sport:    q.Get("deporte"),
			Modality: models.Modality(q.Get("modalidad")),
		}
		if genderStr := q.Get("genero"); genderStr != "" {
			gender := models.Gender(genderStr)
			scope.Gender = &gender
		}
		filter.Scope = &scope
	}
	if catStr := q.Get("categoria"); catStr != "" {
		categoryID, err := strconv.Atoi(catStr)
		if err != nil {
			badRequestResponse(w, r, errInvalidQueryParam("categoria"))
			return
		}
		filter.CategoryID = &categoryID
	}
	filter.Leaderboard = q.Get("leaderboard") == "true"

	rankings, err := h.rankingService.List(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"rankings": rankings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type rankingUpdateInput struct {
	Points     int  `json:"points"`
	Won        int  `json:"won" validate:"gte=0"`
	Lost       int  `json:"lost" validate:"gte=0"`
	Abandoned  int  `json:"abandoned" validate:"gte=0"`
	CategoryID *int `json:"category_id,omitempty" validate:"omitempty,gt=0"`
}

func (h *RankingHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input rankingUpdateInput
	if err := readAndValidate(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	ranking := &models.Ranking{
		ID:         id,
		Points:     input.Points,
		Won:        input.Won,
		Lost:       input.Lost,
		Abandoned:  input.Abandoned,
		CategoryID: input.CategoryID,
	}
	updated, err := h.rankingService.Update(r.Context(), ranking)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"ranking": updated}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type adjustInput struct {
	PointsDelta int `json:"points_delta" validate:"required"`
}

// Adjust применяет ручную корректировку очков.
func (h *RankingHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input adjustInput
	if err := readAndValidate(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	ranking, err := h.rankingService.Adjust(r.Context(), id, input.PointsDelta)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"ranking": ranking}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type changeCategoryInput struct {
	CategoryID *int `json:"category_id" validate:"omitempty,gt=0"`
}

// ChangeCategory переводит запись в другой дивизион с контролем вместимости.
func (h *RankingHandler) ChangeCategory(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input changeCategoryInput
	if err := readAndValidate(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	ranking, err := h.rankingService.ChangeCategory(r.Context(), id, input.CategoryID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"ranking": ranking}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
