package models

import "time"

// Enrollment — запись игрока на чемпионат. Одна запись на пару
// (игрок, чемпионат); вторая запись для приглашённого создаётся
// только при принятии приглашения.
type Enrollment struct {
	ID             int         `json:"id" db:"id"`
	PlayerID       int         `json:"player_id" db:"player_id"`
	ChampionshipID int         `json:"championship_id" db:"championship_id"`
	StageID        *int        `json:"stage_id,omitempty" db:"stage_id"`
	GroupIdx       *int        `json:"group_idx,omitempty" db:"group_idx"`
	SlotIdx        *int        `json:"slot_idx,omitempty" db:"slot_idx"`
	Invite         *Invitation `json:"invite,omitempty"`
	MatchIDs       []int       `json:"match_ids" db:"-"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
}

// PlacedAt записывает обратные ссылки на позицию в сетке.
func (e *Enrollment) PlacedAt(stageID, groupIdx, slotIdx int) {
	e.StageID = &stageID
	e.GroupIdx = &groupIdx
	e.SlotIdx = &slotIdx
}
