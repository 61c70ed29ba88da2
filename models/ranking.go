package models

// RankingScope задаёт область рейтинга: сезон × вид спорта × формат ×
// необязательный фильтр по полу.
type RankingScope struct {
	SeasonID int      `json:"season_id"`
	Sport    string   `json:"sport"`
	Modality Modality `json:"modality"`
	Gender   *Gender  `json:"gender,omitempty"`
}

// Matches reports whether two scopes are the same, treating the gender
// filter as part of the key.
func (s RankingScope) Matches(o RankingScope) bool {
	if s.SeasonID != o.SeasonID || s.Sport != o.Sport || s.Modality != o.Modality {
		return false
	}
	if (s.Gender == nil) != (o.Gender == nil) {
		return false
	}
	return s.Gender == nil || *s.Gender == *o.Gender
}

// Ranking — накопленный рейтинг игрока в своей области. Создаётся лениво
// при первом начислении очков или явном назначении категории.
type Ranking struct {
	ID         int          `json:"id" db:"id"`
	PlayerID   int          `json:"player_id" db:"player_id"`
	Scope      RankingScope `json:"scope"`
	Points     int          `json:"points" db:"points"`
	CategoryID *int         `json:"category_id,omitempty" db:"category_id"`
	Won        int          `json:"won" db:"won"`
	Lost       int          `json:"lost" db:"lost"`
	Abandoned  int          `json:"abandoned" db:"abandoned"`
}
