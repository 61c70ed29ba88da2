package handlers

import (
	"errors"
	"net/http"

	"github.com/clubpadel/championship-system/middleware"
	"github.com/clubpadel/championship-system/models"
	"github.com/clubpadel/championship-system/services"
)

type EnrollmentHandler struct {
	enrollmentService services.EnrollmentService
	notifier          services.Notifier
}

func NewEnrollmentHandler(enrollmentService services.EnrollmentService, notifier services.Notifier) *EnrollmentHandler {
	return &EnrollmentHandler{
		enrollmentService: enrollmentService,
		notifier:          notifier,
	}
}

type enrollInput struct {
	// InviteeID — партнёр по паре, только для парного разряда.
	InviteeID *int `json:"invitee_id,omitempty" validate:"omitempty,gt=0"`
}

// Enroll записывает игрока на чемпионат. Записываться можно только от
// своего имени; администратор может записать любого игрока.
func (h *EnrollmentHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	championshipID, err := idParam(r, "campeonatoId")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	playerID, err := idParam(r, "uid")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.ensureSelfOrAdmin(r, playerID); err != nil {
		forbiddenResponse(w, r, err.Error())
		return
	}

	var input enrollInput
	if r.ContentLength > 0 {
		if err := readAndValidate(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}

	enrollment, events, err := h.enrollmentService.Enroll(r.Context(), playerID, championshipID, input.InviteeID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.notifier.Dispatch(r.Context(), events)

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"enrollment": enrollment}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AcceptInvitation — ответ «принимаю» на приглашение в пару.
func (h *EnrollmentHandler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, true)
}

// RejectInvitation — ответ «отклоняю».
func (h *EnrollmentHandler) RejectInvitation(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, false)
}

func (h *EnrollmentHandler) respond(w http.ResponseWriter, r *http.Request, accept bool) {
	championshipID, err := idParam(r, "campeonatoId")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	// Отвечает всегда сам приглашённый.
	playerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	events, err := h.enrollmentService.RespondToInvitation(r.Context(), playerID, championshipID, accept)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.notifier.Dispatch(r.Context(), events)

	status := "rejected"
	if accept {
		status = "accepted"
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"invitation": status}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *EnrollmentHandler) ensureSelfOrAdmin(r *http.Request, playerID int) error {
	currentID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		return err
	}
	if currentID == playerID {
		return nil
	}
	role, err := middleware.GetUserRoleFromContext(r.Context())
	if err != nil {
		return err
	}
	if role != models.RoleAdmin {
		return errors.New("players can only enroll themselves")
	}
	return nil
}
