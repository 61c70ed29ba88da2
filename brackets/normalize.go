package brackets

import (
	"time"

	"github.com/clubpadel/championship-system/models"
)

// NormalizeResult описывает, что именно изменил проход нормализации.
type NormalizeResult struct {
	ExpiredInvites  int
	MergedGroups    int
	PairedSlots     int
	Disqualified    int
	RemovedMatchIDs []int
}

func (r NormalizeResult) Changed() bool {
	return r.ExpiredInvites > 0 || r.MergedGroups > 0 || r.PairedSlots > 0 ||
		r.Disqualified > 0 || len(r.RemovedMatchIDs) > 0
}

// Normalize performs the one-shot structural cleanup of the first stage
// before competition begins. The pass is idempotent: re-running it on an
// already stabilized document is a no-op.
//
// Round-robin: stale pending invites flip to expired, empty groups are
// merged pairwise until at most one remains, half-filled slots are paired
// greedily in discovery order, and any slot left solo is disqualified with
// every match referencing it removed. Elimination: enrollment-fed sides
// still underfilled after stage assignment have their matches removed;
// sides awaiting winners of earlier rounds are untouched.
func Normalize(doc *models.StageDocument, kind models.StageKind, seats int, now time.Time) NormalizeResult {
	var res NormalizeResult
	switch kind {
	case models.StageRoundRobin:
		res.ExpiredInvites = expireStaleInvites(doc, now)
		res.MergedGroups = mergeEmptyGroups(doc)
		res.PairedSlots = pairSoloSlots(doc, seats)
		res.Disqualified, res.RemovedMatchIDs = disqualifyLeftovers(doc, seats)
	case models.StageElimination:
		res.RemovedMatchIDs = dropUnderfilledEliminationMatches(doc, seats)
	}
	return res
}

func expireStaleInvites(doc *models.StageDocument, now time.Time) int {
	expired := 0
	for gi := range doc.Groups {
		for si := range doc.Groups[gi].Slots {
			slot := &doc.Groups[gi].Slots[si]
			if slot.Invite != nil && slot.Invite.ExpiredAt(now) {
				slot.Invite.State = models.InviteExpired
				expired++
			}
		}
	}
	return expired
}

// mergeEmptyGroups попарно сливает полностью пустые группы, пока не
// останется не более одной.
func mergeEmptyGroups(doc *models.StageDocument) int {
	merged := 0
	for {
		empty := make([]int, 0, 2)
		for gi := range doc.Groups {
			if doc.Groups[gi].OccupiedSeats() == 0 {
				empty = append(empty, gi)
				if len(empty) == 2 {
					break
				}
			}
		}
		if len(empty) < 2 {
			return merged
		}
		donor := empty[1]
		doc.Groups[empty[0]].Slots = append(doc.Groups[empty[0]].Slots, doc.Groups[donor].Slots...)
		doc.Groups = append(doc.Groups[:donor], doc.Groups[donor+1:]...)
		merged++
	}
}

// soloRef указывает на слот с ровно одним занятым местом.
type soloRef struct {
	group, slot int
}

func pairSoloSlots(doc *models.StageDocument, seats int) int {
	if seats < 2 {
		// В одиночном разряде слот с одним игроком уже полон.
		return 0
	}
	var solos []soloRef
	for gi := range doc.Groups {
		for si := range doc.Groups[gi].Slots {
			slot := &doc.Groups[gi].Slots[si]
			if slot.State == models.SlotDisqualified {
				continue
			}
			if slot.Occupied() == 1 {
				solos = append(solos, soloRef{gi, si})
			}
		}
	}

	paired := 0
	for i := 0; i+1 < len(solos); i += 2 {
		host := &doc.Groups[solos[i].group].Slots[solos[i].slot]
		donor := &doc.Groups[solos[i+1].group].Slots[solos[i+1].slot]

		cancelPendingInvite(host)
		cancelPendingInvite(donor)
		host.SetPlayers(append(host.Players, donor.Players...), seats)
		donor.Invite = nil
		donor.SetPlayers(nil, seats)
		paired++
	}
	return paired
}

// cancelPendingInvite гасит приглашение, место которого занимается
// принудительным спариванием.
func cancelPendingInvite(slot *models.Slot) {
	if slot.Invite != nil && slot.Invite.State == models.InvitePending {
		slot.Invite.State = models.InviteCancelled
	}
}

func disqualifyLeftovers(doc *models.StageDocument, seats int) (int, []int) {
	if seats < 2 {
		return 0, nil
	}
	disqualified := 0
	var removed []int
	for gi := range doc.Groups {
		group := &doc.Groups[gi]
		for si := range group.Slots {
			slot := &group.Slots[si]
			if slot.State == models.SlotDisqualified || slot.Occupied() != 1 {
				continue
			}
			cancelPendingInvite(slot)
			slot.Disqualify()
			removed = append(removed, group.RemoveMatchRefsForSlot(si)...)
			disqualified++
		}
	}
	return disqualified, removed
}

func dropUnderfilledEliminationMatches(doc *models.StageDocument, seats int) []int {
	var removed []int
	for ri := range doc.Rounds {
		kept := doc.Rounds[ri].Matches[:0]
		for _, em := range doc.Rounds[ri].Matches {
			// Пустая сторона без маркера origin=enrollment ждёт победителя
			// предыдущего раунда, такой матч не трогаем.
			if underfilledEnrollmentSide(em.SideA, seats) || underfilledEnrollmentSide(em.SideB, seats) {
				removed = append(removed, em.MatchID)
				continue
			}
			kept = append(kept, em)
		}
		doc.Rounds[ri].Matches = kept
	}
	return removed
}

func underfilledEnrollmentSide(side models.EliminationSide, seats int) bool {
	return side.FromEnrollment && len(side.Players) < seats
}
