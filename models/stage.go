package models

import "time"

type StageKind string

const (
	StageRoundRobin  StageKind = "round_robin"
	StageElimination StageKind = "elimination"
)

// InviteTTL — срок действия приглашения в пару (7 дней).
const InviteTTL = 7 * 24 * time.Hour

type InviteState string

const (
	InvitePending   InviteState = "pending"
	InviteAccepted  InviteState = "accepted"
	InviteRejected  InviteState = "rejected"
	InviteExpired   InviteState = "expired"
	InviteCancelled InviteState = "cancelled"
)

// Invitation — приглашение в пару, встроено в слот сетки и в запись на участие.
type Invitation struct {
	ID          string      `json:"id"`
	InviterID   int         `json:"inviter_id"`
	TargetID    int         `json:"target_id"`
	State       InviteState `json:"state"`
	SentAt      time.Time   `json:"sent_at"`
	RespondedAt *time.Time  `json:"responded_at,omitempty"`
}

// ExpiredAt reports whether a pending invitation has outlived its TTL.
// Expiry is evaluated lazily at read time, there is no background sweep.
func (i *Invitation) ExpiredAt(now time.Time) bool {
	return i.State == InvitePending && now.Sub(i.SentAt) > InviteTTL
}

// PendingFor reports whether the invitation is still awaiting a response
// from the given player.
func (i *Invitation) PendingFor(playerID int, now time.Time) bool {
	return i.State == InvitePending && i.TargetID == playerID && !i.ExpiredAt(now)
}

type SlotState string

const (
	SlotEmpty        SlotState = "empty"
	SlotSingle       SlotState = "single"
	SlotPartialTeam  SlotState = "partial_team"
	SlotFullTeam     SlotState = "full_team"
	SlotDisqualified SlotState = "disqualified"
)

// Slot — позиция сетки. Явный тегированный вариант вместо неявной формы:
// empty | single(player) | partial_team(player, invite) |
// full_team(player, player) | disqualified.
type Slot struct {
	State   SlotState   `json:"state"`
	Players []int       `json:"players,omitempty"`
	Invite  *Invitation `json:"invite,omitempty"`
}

// Occupied возвращает число занятых мест слота.
func (s *Slot) Occupied() int {
	return len(s.Players)
}

func (s *Slot) Holds(playerID int) bool {
	for _, id := range s.Players {
		if id == playerID {
			return true
		}
	}
	return false
}

// SetPlayers is the single writer of slot occupancy: it rewrites the seat
// list and recomputes the variant tag from occupancy and seat count.
// Invitation state is managed separately by the caller.
func (s *Slot) SetPlayers(players []int, seats int) {
	s.Players = players
	switch {
	case len(players) == 0:
		s.State = SlotEmpty
	case len(players) < seats && s.Invite != nil && s.Invite.State == InvitePending:
		s.State = SlotPartialTeam
	case len(players) < seats:
		s.State = SlotSingle
	case seats == 1:
		s.State = SlotSingle
	default:
		s.State = SlotFullTeam
	}
}

func (s *Slot) Disqualify() {
	s.State = SlotDisqualified
}

// MatchRef связывает матч из независимого хранилища со слотами группы.
// Составы сторон живут в хранилище матчей; здесь только ссылки на слоты.
type MatchRef struct {
	MatchID int `json:"match_id"`
	SlotA   int `json:"slot_a"`
	SlotB   int `json:"slot_b"`
}

// Group — группа кругового этапа.
type Group struct {
	Name    string     `json:"name"`
	Slots   []Slot     `json:"slots"`
	Matches []MatchRef `json:"matches"`
}

// OccupiedSeats возвращает общее число занятых мест по всем слотам группы.
func (g *Group) OccupiedSeats() int {
	total := 0
	for i := range g.Slots {
		if g.Slots[i].State == SlotDisqualified {
			continue
		}
		total += g.Slots[i].Occupied()
	}
	return total
}

// EliminationSide — одна сторона матча олимпийской сетки. Маркер
// origin=enrollment означает, что место заполняется при записи на чемпионат.
type EliminationSide struct {
	Players        []int `json:"players,omitempty"`
	FromEnrollment bool  `json:"origin_enrollment,omitempty"`
}

type EliminationMatch struct {
	MatchID int             `json:"match_id"`
	SideA   EliminationSide `json:"side_a"`
	SideB   EliminationSide `json:"side_b"`
}

// Round — раунд олимпийской сетки, от первого к финалу.
type Round struct {
	Matches []EliminationMatch `json:"matches"`
}

// StageDocument — изменяемая структура этапа, хранится единым документом.
type StageDocument struct {
	Groups []Group `json:"groups,omitempty"`
	Rounds []Round `json:"rounds,omitempty"`
}

// Stage — этап чемпионата. Документ читается и перезаписывается целиком;
// Version используется для compare-and-swap при записи.
type Stage struct {
	ID             int           `json:"id" db:"id"`
	ChampionshipID int           `json:"championship_id" db:"championship_id"`
	Kind           StageKind     `json:"kind" db:"kind"`
	Document       StageDocument `json:"document"`
	Version        int           `json:"version" db:"version"`
}

// MatchRefsForSlot возвращает ссылки на все матчи группы, в которых
// участвует слот с данным индексом.
func (g *Group) MatchRefsForSlot(slotIdx int) []MatchRef {
	var refs []MatchRef
	for _, ref := range g.Matches {
		if ref.SlotA == slotIdx || ref.SlotB == slotIdx {
			refs = append(refs, ref)
		}
	}
	return refs
}

// RemoveMatchRefsForSlot удаляет из группы ссылки на матчи слота и
// возвращает идентификаторы удалённых матчей для синхронного удаления
// из хранилища матчей.
func (g *Group) RemoveMatchRefsForSlot(slotIdx int) []int {
	var removed []int
	kept := g.Matches[:0]
	for _, ref := range g.Matches {
		if ref.SlotA == slotIdx || ref.SlotB == slotIdx {
			removed = append(removed, ref.MatchID)
			continue
		}
		kept = append(kept, ref)
	}
	g.Matches = kept
	return removed
}

// FindPendingInvite ищет в круговом этапе действующее приглашение,
// адресованное игроку. Возвращает индексы группы и слота.
func (d *StageDocument) FindPendingInvite(playerID int, now time.Time) (groupIdx, slotIdx int, ok bool) {
	for gi := range d.Groups {
		for si := range d.Groups[gi].Slots {
			inv := d.Groups[gi].Slots[si].Invite
			if inv != nil && inv.PendingFor(playerID, now) {
				return gi, si, true
			}
		}
	}
	return 0, 0, false
}

// HoldsPlayer reports whether the player already occupies any seat of the
// stage, in either representation.
func (d *StageDocument) HoldsPlayer(playerID int) bool {
	for gi := range d.Groups {
		for si := range d.Groups[gi].Slots {
			if d.Groups[gi].Slots[si].Holds(playerID) {
				return true
			}
		}
	}
	for ri := range d.Rounds {
		for mi := range d.Rounds[ri].Matches {
			m := &d.Rounds[ri].Matches[mi]
			for _, id := range m.SideA.Players {
				if id == playerID {
					return true
				}
			}
			for _, id := range m.SideB.Players {
				if id == playerID {
					return true
				}
			}
		}
	}
	return false
}
