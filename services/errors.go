package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed       = errors.New("validation failed")
	ErrLicenseNotValid        = errors.New("competition license does not cover the championship start date")
	ErrAlreadyEnrolled        = errors.New("player is already enrolled in this championship")
	ErrChampionshipFull       = errors.New("championship has no remaining capacity")
	ErrNotEligible            = errors.New("player does not satisfy the championship eligibility rules")
	ErrRankingRequired        = errors.New("a qualifying ranking is required to enroll")
	ErrInviteNotPending       = errors.New("no pending invitation addressed to this player")
	ErrInviteExpired          = errors.New("invitation has expired")
	ErrInviteSinglesForbidden = errors.New("invitations are only available for doubles championships")
	ErrChampionshipClosed     = errors.New("championship is already closed")
	ErrChampionshipNoStages   = errors.New("championship has no stages")
	ErrMatchNotFinished       = errors.New("match result requires a winner")
	ErrCategoryFull           = errors.New("target category is already at capacity")
	ErrCategoryScopeMismatch  = errors.New("category belongs to a different ranking scope")
	ErrCategoryBadCapacity    = errors.New("category capacity must be a power of two between 4 and 256")

	// Ошибки конфликтов
	ErrPlayerEmailConflict      = errors.New("email address is already in use")
	ErrChampionshipNameConflict = errors.New("championship name already exists in this season")
	ErrRankingScopeConflict     = errors.New("ranking already exists for this player and scope")
	ErrStageWriteConflict       = errors.New("stage was modified concurrently, retry the operation")

	// Ошибки аутентификации и авторизации
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")

	// Ошибки, специфичные для сущностей
	ErrPlayerNotFound       = errors.New("player not found")
	ErrChampionshipNotFound = errors.New("championship not found")
	ErrStageNotFound        = errors.New("stage not found")
	ErrEnrollmentNotFound   = errors.New("enrollment not found")
	ErrMatchNotFound        = errors.New("match not found")
	ErrRankingNotFound      = errors.New("ranking not found")
	ErrCategoryNotFound     = errors.New("ranking category not found")

	// Ошибки чемпионатов
	ErrChampionshipInvalidDateRange = errors.New("championship end date must be after start date")
	ErrChampionshipInvalidCapacity  = errors.New("championship max entries must be positive")
)
