package handlers

import (
	"net/http"
	"strconv"

	"github.com/clubpadel/championship-system/models"
	"github.com/clubpadel/championship-system/services"
)

type CategoryHandler struct {
	categoryService services.CategoryService
}

func NewCategoryHandler(categoryService services.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

type categoryInput struct {
	Scope    models.RankingScope `json:"scope" validate:"required"`
	Name     string              `json:"name" validate:"required"`
	Capacity int                 `json:"capacity" validate:"required,gt=0"`
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input categoryInput
	if err := readAndValidate(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	category := &models.RankingCategory{
		Scope:    input.Scope,
		Name:     input.Name,
		Capacity: input.Capacity,
	}
	created, err := h.categoryService.Create(r.Context(), category)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"category": created}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *CategoryHandler) ListByScope(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromQuery(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	categories, err := h.categoryService.ListByScope(r.Context(), scope)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"categories": categories}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type reorderInput struct {
	Scope models.RankingScope `json:"scope" validate:"required"`
	// CategoryIDs — частичный список в желаемом порядке; остальные
	// дивизионы сохраняют прежний относительный порядок.
	CategoryIDs []int `json:"category_ids" validate:"required,min=1,dive,gt=0"`
}

func (h *CategoryHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var input reorderInput
	if err := readAndValidate(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	categories, err := h.categoryService.Reorder(r.Context(), input.Scope, input.CategoryIDs)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"categories": categories}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func scopeFromQuery(r *http.Request) (models.RankingScope, error) {
	q := r.URL.Query()
	seasonID, err := strconv.Atoi(q.Get("temporada"))
	if err != nil {
		return models.RankingScope{}, errInvalidQueryParam("temporada")
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
	return scope, nil
}
