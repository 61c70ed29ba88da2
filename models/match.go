package models

type MatchStatus string

const (
	MatchScheduled  MatchStatus = "scheduled"
	MatchInProgress MatchStatus = "in_progress"
	MatchFinished   MatchStatus = "finished"
)

// SetScore — счёт одного сета.
type SetScore struct {
	Games1 int `json:"games_1"`
	Games2 int `json:"games_2"`
}

// MatchResult — результат завершённого матча.
type MatchResult struct {
	Sets []SetScore `json:"sets,omitempty"`
	// Winners — идентификаторы победителей (один или пара).
	Winners []int `json:"winners"`
	// Abandoned — игроки, снявшиеся с матча. Если пусто, но Walkover
	// установлен, снявшимися считаются все проигравшие.
	Abandoned []int `json:"abandoned,omitempty"`
	Walkover  bool  `json:"walkover,omitempty"`
	// WinPoints и LossPoints переопределяют рейтинговые очки за исход.
	// Хранятся в результате, чтобы откат при исправлении использовал те
	// же значения, что и исходное начисление.
	WinPoints  *int `json:"win_points,omitempty"`
	LossPoints *int `json:"loss_points,omitempty"`
}

// Match — матч, адресуемый независимо от структуры этапа. Составы сторон
// здесь авторитетны; структура этапа хранит только ссылки на матч.
type Match struct {
	ID      int          `json:"id" db:"id"`
	StageID int          `json:"stage_id" db:"stage_id"`
	Side1   []int        `json:"side_1"`
	Side2   []int        `json:"side_2"`
	Doubles bool         `json:"doubles" db:"doubles"`
	Gender  *Gender      `json:"gender,omitempty" db:"gender"`
	Status  MatchStatus  `json:"status" db:"status"`
	Result  *MatchResult `json:"result,omitempty"`
}

// SideOf возвращает сторону матча, на которой играет игрок:
// 1, 2 или 0, если игрок в матче не участвует.
func (m *Match) SideOf(playerID int) int {
	for _, id := range m.Side1 {
		if id == playerID {
			return 1
		}
	}
	for _, id := range m.Side2 {
		if id == playerID {
			return 2
		}
	}
	return 0
}

// PointsForOutcome возвращает очки за победу и поражение с учётом
// переопределений результата.
func (r *MatchResult) PointsForOutcome(defaultWin, defaultLoss int) (win, loss int) {
	win, loss = defaultWin, defaultLoss
	if r.WinPoints != nil {
		win = *r.WinPoints
	}
	if r.LossPoints != nil {
		loss = *r.LossPoints
	}
	return win, loss
}

// GameDifference возвращает разницу геймов матча с точки зрения стороны 1.
func (r *MatchResult) GameDifference() int {
	diff := 0
	for _, s := range r.Sets {
		diff += s.Games1 - s.Games2
	}
	return diff
}

// SetDifference возвращает разницу выигранных сетов с точки зрения стороны 1.
func (r *MatchResult) SetDifference() int {
	diff := 0
	for _, s := range r.Sets {
		switch {
		case s.Games1 > s.Games2:
			diff++
		case s.Games2 > s.Games1:
			diff--
		}
	}
	return diff
}

// AbandonedBy reports whether the given loser is flagged as having
// abandoned: either explicitly listed, or implied for every loser by a
// generic walkover marker when no explicit list exists.
func (r *MatchResult) AbandonedBy(playerID int) bool {
	if len(r.Abandoned) > 0 {
		for _, id := range r.Abandoned {
			if id == playerID {
				return true
			}
		}
		return false
	}
	return r.Walkover
}
