package models

import "time"

// Modality определяет формат матчей чемпионата (и область рейтинга).
type Modality string

const (
	ModalitySingles Modality = "singles"
	ModalityDoubles Modality = "doubles"
)

// DefaultPositionPoints — таблица очков за итоговое место, используется,
// если чемпионат не задаёт собственную.
var DefaultPositionPoints = map[int]int{
	1: 1000,
	2: 600,
	3: 360,
	4: 270,
	5: 180,
	6: 150,
	7: 120,
	8: 90,
}

// EligibilityRules — ограничения на участие (пол, возраст, рейтинг).
// Возраст считается на дату начала чемпионата.
type EligibilityRules struct {
	Gender    *Gender `json:"gender,omitempty"`
	MinAge    *int    `json:"min_age,omitempty"`
	MaxAge    *int    `json:"max_age,omitempty"`
	MinPoints *int    `json:"min_points,omitempty"`
	MaxPoints *int    `json:"max_points,omitempty"`
}

// Championship представляет чемпионат клуба.
type Championship struct {
	ID             int              `json:"id" db:"id"`
	Name           string           `json:"name" db:"name"`
	Sport          string           `json:"sport" db:"sport"`
	SeasonID       int              `json:"season_id" db:"season_id"`
	Modality       Modality         `json:"modality" db:"modality"`
	Doubles        bool             `json:"doubles" db:"doubles"`
	StartDate      time.Time        `json:"start_date" db:"start_date"`
	EndDate        time.Time        `json:"end_date" db:"end_date"`
	MaxEntries     int              `json:"max_entries" db:"max_entries"`
	Rules          EligibilityRules `json:"rules"`
	StageIDs       []int            `json:"stage_ids" db:"-"`
	EnrollmentIDs  []int            `json:"enrollment_ids" db:"-"`
	PositionPoints map[int]int      `json:"position_points,omitempty" db:"-"`
	Closed         bool             `json:"closed" db:"closed"`
	PosterKey      *string          `json:"-" db:"poster_key"`
	PosterURL      *string          `json:"poster_url,omitempty" db:"-"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`

	// Опциональные связанные сущности, заполняются сервисом.
	Stages      []Stage      `json:"stages,omitempty" db:"-"`
	Enrollments []Enrollment `json:"enrollments,omitempty" db:"-"`
	Matches     []Match      `json:"matches,omitempty" db:"-"`
}

// PointsForPosition возвращает очки за место по таблице чемпионата,
// либо по таблице по умолчанию. Места за пределами таблицы дают 0.
func (c *Championship) PointsForPosition(position int) int {
	table := c.PositionPoints
	if len(table) == 0 {
		table = DefaultPositionPoints
	}
	return table[position]
}

// SeatsPerSlot — сколько мест занимает слот сетки (2 для парного разряда).
func (c *Championship) SeatsPerSlot() int {
	if c.Doubles {
		return 2
	}
	return 1
}
