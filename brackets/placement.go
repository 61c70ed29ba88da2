package brackets

import (
	"errors"
	"fmt"
	"sort"

	"github.com/clubpadel/championship-system/models"
)

var (
	ErrNoRounds        = errors.New("stage has no rounds to place")
	ErrUnorderedRounds = errors.New("rounds are not ordered towards a single final")
	ErrUnfinishedFinal = errors.New("final match has no recorded winner")
)

// DefaultWinPoints и DefaultLossPoints — очки за исход матча по умолчанию,
// общие для рейтингового движка и групповых таблиц.
const (
	DefaultWinPoints  = 3
	DefaultLossPoints = 1
)

// EliminationPlacements computes the final position of every participant of
// a single-elimination stage. Rounds are stored first-to-final; the list is
// validated to be walkable final-to-first before the fold. The final
// produces positions 1 and 2; losers of each earlier round share one
// position band, 2^d+1 for the round d steps before the final (semifinal
// losers 3, quarterfinal losers 5, ...).
func EliminationPlacements(rounds []models.Round, matches map[int]*models.Match) (map[int]int, error) {
	if len(rounds) == 0 {
		return nil, ErrNoRounds
	}
	// Каждый следующий раунд должен быть не больше предыдущего,
	// последний — ровно один матч (финал).
	for i := 1; i < len(rounds); i++ {
		if len(rounds[i].Matches) > len(rounds[i-1].Matches) {
			return nil, ErrUnorderedRounds
		}
	}
	if len(rounds[len(rounds)-1].Matches) != 1 {
		return nil, ErrUnorderedRounds
	}

	positions := make(map[int]int)

	for dist := 0; dist < len(rounds); dist++ {
		round := rounds[len(rounds)-1-dist]
		for _, em := range round.Matches {
			match, ok := matches[em.MatchID]
			if ok {
				ok = match.Status == models.MatchFinished && match.Result != nil && len(match.Result.Winners) > 0
			}
			if !ok {
				if dist == 0 {
					return nil, ErrUnfinishedFinal
				}
				continue // недоигранный ранний матч мест не даёт
			}

			winners := match.Result.Winners
			losers := matchLosers(match, winners)

			if dist == 0 {
				for _, id := range winners {
					positions[id] = 1
				}
				for _, id := range losers {
					positions[id] = 2
				}
				continue
			}

			band := (1 << uint(dist)) + 1
			for _, id := range losers {
				// Победители ранних раундов получают место дальше по сетке.
				if _, placed := positions[id]; !placed {
					positions[id] = band
				}
			}
		}
	}

	return positions, nil
}

func matchLosers(match *models.Match, winners []int) []int {
	isWinner := make(map[int]bool, len(winners))
	for _, id := range winners {
		isWinner[id] = true
	}
	var losers []int
	for _, id := range match.Side1 {
		if !isWinner[id] {
			losers = append(losers, id)
		}
	}
	for _, id := range match.Side2 {
		if !isWinner[id] {
			losers = append(losers, id)
		}
	}
	return losers
}

// GroupStanding — строка групповой таблицы: один слот (игрок или пара).
type GroupStanding struct {
	Players  []int
	Points   int
	Won      int
	SetDiff  int
	GameDiff int
}

// RoundRobinPlacements computes final positions for a round-robin stage.
// Within each group entrants are ordered by points, then matches won, then
// set difference, then game difference, all descending. Groups are then
// merged by interleaving equal ranks (all group-firsts, then all
// group-seconds, ...); entrants sharing a merged rank share the position
// number, and the next occupied band skips past them.
func RoundRobinPlacements(doc *models.StageDocument, matches map[int]*models.Match) (map[int]int, error) {
	ranked := make([][]GroupStanding, 0, len(doc.Groups))
	maxRank := 0
	for gi := range doc.Groups {
		standings, err := GroupStandings(&doc.Groups[gi], matches)
		if err != nil {
			return nil, err
		}
		if len(standings) > 0 {
			ranked = append(ranked, standings)
			if len(standings) > maxRank {
				maxRank = len(standings)
			}
		}
	}

	positions := make(map[int]int)
	nextPosition := 1
	for rank := 0; rank < maxRank; rank++ {
		entrantsAtRank := 0
		for _, standings := range ranked {
			if rank >= len(standings) {
				continue
			}
			for _, id := range standings[rank].Players {
				positions[id] = nextPosition
			}
			entrantsAtRank++
		}
		nextPosition += entrantsAtRank
	}
	return positions, nil
}

// GroupStandings builds the ordered standing rows of one group from its
// finished matches. Disqualified and empty slots are not ranked.
func GroupStandings(group *models.Group, matches map[int]*models.Match) ([]GroupStanding, error) {
	rows := make(map[int]*GroupStanding)
	order := make([]int, 0, len(group.Slots))
	for si := range group.Slots {
		slot := &group.Slots[si]
		if slot.State == models.SlotDisqualified || slot.Occupied() == 0 {
			continue
		}
		rows[si] = &GroupStanding{Players: slot.Players}
		order = append(order, si)
	}

	for _, ref := range group.Matches {
		match, ok := matches[ref.MatchID]
		if !ok || match.Status != models.MatchFinished || match.Result == nil {
			continue
		}
		applyMatchToStandings(rows, ref, match)
	}

	standings := make([]GroupStanding, 0, len(order))
	for _, si := range order {
		standings = append(standings, *rows[si])
	}
	sort.SliceStable(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.Won != b.Won {
			return a.Won > b.Won
		}
		if a.SetDiff != b.SetDiff {
			return a.SetDiff > b.SetDiff
		}
		return a.GameDiff > b.GameDiff
	})
	return standings, nil
}

func applyMatchToStandings(rows map[int]*GroupStanding, ref models.MatchRef, match *models.Match) {
	rowA, okA := rows[ref.SlotA]
	rowB, okB := rows[ref.SlotB]
	if !okA || !okB {
		return
	}
	result := match.Result

	winnerIsA := sideWon(match.Side1, result.Winners) && slotHoldsSide(rowA.Players, match.Side1) ||
		sideWon(match.Side2, result.Winners) && slotHoldsSide(rowA.Players, match.Side2)

	setDiff := result.SetDifference()
	gameDiff := result.GameDifference()
	// Диффы считаются с точки зрения стороны 1 матча.
	aIsSide1 := slotHoldsSide(rowA.Players, match.Side1)
	if !aIsSide1 {
		setDiff, gameDiff = -setDiff, -gameDiff
	}

	rowA.SetDiff += setDiff
	rowA.GameDiff += gameDiff
	rowB.SetDiff -= setDiff
	rowB.GameDiff -= gameDiff

	winner, loser := rowA, rowB
	if !winnerIsA {
		winner, loser = rowB, rowA
	}
	winner.Points += DefaultWinPoints
	winner.Won++
	if loserAbandoned(loser.Players, result) {
		// Снявшийся проигравший очков за участие не получает.
		return
	}
	loser.Points += DefaultLossPoints
}

func loserAbandoned(players []int, result *models.MatchResult) bool {
	for _, id := range players {
		if result.AbandonedBy(id) {
			return true
		}
	}
	return false
}

func sideWon(side []int, winners []int) bool {
	if len(side) == 0 || len(side) != len(winners) {
		return false
	}
	set := make(map[int]bool, len(winners))
	for _, id := range winners {
		set[id] = true
	}
	for _, id := range side {
		if !set[id] {
			return false
		}
	}
	return true
}

func slotHoldsSide(slotPlayers []int, side []int) bool {
	for _, p := range slotPlayers {
		for _, s := range side {
			if p == s {
				return true
			}
		}
	}
	return false
}

// String implements fmt.Stringer for debugging group tables.
func (s GroupStanding) String() string {
	return fmt.Sprintf("players=%v pts=%d won=%d sets=%+d games=%+d",
		s.Players, s.Points, s.Won, s.SetDiff, s.GameDiff)
}
