package brackets

import (
	"testing"

	"github.com/clubpadel/championship-system/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finishedMatch(id int, side1, side2, winners []int, sets ...models.SetScore) *models.Match {
	return &models.Match{
		ID:     id,
		Side1:  side1,
		Side2:  side2,
		Status: models.MatchFinished,
		Result: &models.MatchResult{Sets: sets, Winners: winners},
	}
}

func TestEliminationPlacementsFourPlayers(t *testing.T) {
	// Полуфиналы: A-C и B-D, финал C-D. C побеждает.
	rounds := []models.Round{
		{Matches: []models.EliminationMatch{
			{MatchID: 1},
			{MatchID: 2},
		}},
		{Matches: []models.EliminationMatch{
			{MatchID: 3},
		}},
	}
	const (
		playerA = 10
		playerB = 11
		playerC = 12
		playerD = 13
	)
	matches := map[int]*models.Match{
		1: finishedMatch(1, []int{playerA}, []int{playerC}, []int{playerC}),
		2: finishedMatch(2, []int{playerB}, []int{playerD}, []int{playerD}),
		3: finishedMatch(3, []int{playerC}, []int{playerD}, []int{playerC}),
	}

	positions, err := EliminationPlacements(rounds, matches)
	require.NoError(t, err)

	assert.Equal(t, map[int]int{
		playerC: 1,
		playerD: 2,
		playerA: 3,
		playerB: 3,
	}, positions)
}

func TestEliminationPlacementsQuarterfinalBand(t *testing.T) {
	// Восемь игроков: проигравшие четвертьфиналов делят 5-е место.
	rounds := []models.Round{
		{Matches: []models.EliminationMatch{
			{MatchID: 1}, {MatchID: 2}, {MatchID: 3}, {MatchID: 4},
		}},
		{Matches: []models.EliminationMatch{
			{MatchID: 5}, {MatchID: 6},
		}},
		{Matches: []models.EliminationMatch{
			{MatchID: 7},
		}},
	}
	matches := map[int]*models.Match{
		1: finishedMatch(1, []int{1}, []int{2}, []int{1}),
		2: finishedMatch(2, []int{3}, []int{4}, []int{3}),
		3: finishedMatch(3, []int{5}, []int{6}, []int{5}),
		4: finishedMatch(4, []int{7}, []int{8}, []int{7}),
		5: finishedMatch(5, []int{1}, []int{3}, []int{1}),
		6: finishedMatch(6, []int{5}, []int{7}, []int{5}),
		7: finishedMatch(7, []int{1}, []int{5}, []int{5}),
	}

	positions, err := EliminationPlacements(rounds, matches)
	require.NoError(t, err)

	assert.Equal(t, 1, positions[5])
	assert.Equal(t, 2, positions[1])
	assert.Equal(t, 3, positions[3])
	assert.Equal(t, 3, positions[7])
	for _, loser := range []int{2, 4, 6, 8} {
		assert.Equal(t, 5, positions[loser], "quarterfinal loser %d", loser)
	}
}

func TestEliminationPlacementsUnfinishedFinal(t *testing.T) {
	rounds := []models.Round{
		{Matches: []models.EliminationMatch{{MatchID: 1}}},
	}
	matches := map[int]*models.Match{
		1: {ID: 1, Side1: []int{1}, Side2: []int{2}, Status: models.MatchScheduled},
	}

	_, err := EliminationPlacements(rounds, matches)
	assert.ErrorIs(t, err, ErrUnfinishedFinal)
}

func TestEliminationPlacementsNoRounds(t *testing.T) {
	_, err := EliminationPlacements(nil, nil)
	assert.ErrorIs(t, err, ErrNoRounds)
}

func TestEliminationPlacementsUnorderedRounds(t *testing.T) {
	rounds := []models.Round{
		{Matches: []models.EliminationMatch{{MatchID: 1}}},
		{Matches: []models.EliminationMatch{{MatchID: 2}, {MatchID: 3}}},
	}
	_, err := EliminationPlacements(rounds, map[int]*models.Match{})
	assert.ErrorIs(t, err, ErrUnorderedRounds)
}

func TestEliminationPlacementsSkipsUnfinishedEarlyMatch(t *testing.T) {
	rounds := []models.Round{
		{Matches: []models.EliminationMatch{{MatchID: 1}, {MatchID: 2}}},
		{Matches: []models.EliminationMatch{{MatchID: 3}}},
	}
	matches := map[int]*models.Match{
		1: finishedMatch(1, []int{1}, []int{2}, []int{1}),
		// Матч 2 так и не сыгран.
		2: {ID: 2, Side1: []int{3}, Side2: []int{4}, Status: models.MatchScheduled},
		3: finishedMatch(3, []int{1}, []int{3}, []int{1}),
	}

	positions, err := EliminationPlacements(rounds, matches)
	require.NoError(t, err)

	assert.Equal(t, 1, positions[1])
	assert.Equal(t, 2, positions[3])
	assert.Equal(t, 3, positions[2])
	_, placed := positions[4]
	assert.False(t, placed, "player of the unplayed match must not receive a position")
}

func singlesGroup(players ...int) models.Group {
	group := models.Group{Name: "Grupo 1"}
	for _, id := range players {
		slot := models.Slot{}
		slot.SetPlayers([]int{id}, 1)
		group.Slots = append(group.Slots, slot)
	}
	return group
}

func TestGroupStandingsTieBreakByGameDifference(t *testing.T) {
	group := singlesGroup(1, 2, 3)
	group.Matches = []models.MatchRef{
		{MatchID: 1, SlotA: 0, SlotB: 1},
		{MatchID: 2, SlotA: 1, SlotB: 2},
		{MatchID: 3, SlotA: 0, SlotB: 2},
	}
	matches := map[int]*models.Match{
		1: finishedMatch(1, []int{1}, []int{2}, []int{1},
			models.SetScore{Games1: 6, Games2: 0}, models.SetScore{Games1: 6, Games2: 0}),
		2: finishedMatch(2, []int{2}, []int{3}, []int{2},
			models.SetScore{Games1: 6, Games2: 4}, models.SetScore{Games1: 6, Games2: 4}),
		3: finishedMatch(3, []int{1}, []int{3}, []int{3},
			models.SetScore{Games1: 4, Games2: 6}, models.SetScore{Games1: 4, Games2: 6}),
	}

	standings, err := GroupStandings(&group, matches)
	require.NoError(t, err)
	require.Len(t, standings, 3)

	// Все по 4 очка и одной победе, решает разница геймов: +8, 0, -8.
	assert.Equal(t, []int{1}, standings[0].Players)
	assert.Equal(t, []int{3}, standings[1].Players)
	assert.Equal(t, []int{2}, standings[2].Players)
	for _, row := range standings {
		assert.Equal(t, 4, row.Points)
		assert.Equal(t, 1, row.Won)
	}
}

func TestGroupStandingsAbandonedLoserGetsNothing(t *testing.T) {
	group := singlesGroup(1, 2)
	group.Matches = []models.MatchRef{{MatchID: 1, SlotA: 0, SlotB: 1}}
	matches := map[int]*models.Match{
		1: {
			ID:     1,
			Side1:  []int{1},
			Side2:  []int{2},
			Status: models.MatchFinished,
			Result: &models.MatchResult{Winners: []int{1}, Walkover: true},
		},
	}

	standings, err := GroupStandings(&group, matches)
	require.NoError(t, err)
	require.Len(t, standings, 2)

	assert.Equal(t, DefaultWinPoints, standings[0].Points)
	assert.Equal(t, 0, standings[1].Points)
}

func TestRoundRobinPlacementsInterleavesGroups(t *testing.T) {
	groupA := singlesGroup(1, 2)
	groupA.Matches = []models.MatchRef{{MatchID: 1, SlotA: 0, SlotB: 1}}
	groupB := singlesGroup(3, 4)
	groupB.Matches = []models.MatchRef{{MatchID: 2, SlotA: 0, SlotB: 1}}
	doc := &models.StageDocument{Groups: []models.Group{groupA, groupB}}

	matches := map[int]*models.Match{
		1: finishedMatch(1, []int{1}, []int{2}, []int{1}),
		2: finishedMatch(2, []int{3}, []int{4}, []int{4}),
	}

	positions, err := RoundRobinPlacements(doc, matches)
	require.NoError(t, err)

	// Первые обеих групп делят 1-е место, вторые — 3-е.
	assert.Equal(t, 1, positions[1])
	assert.Equal(t, 1, positions[4])
	assert.Equal(t, 3, positions[2])
	assert.Equal(t, 3, positions[3])
}

func TestRoundRobinPlacementsSkipsDisqualifiedSlots(t *testing.T) {
	group := singlesGroup(1, 2)
	group.Slots[1].Disqualify()
	doc := &models.StageDocument{Groups: []models.Group{group}}

	positions, err := RoundRobinPlacements(doc, map[int]*models.Match{})
	require.NoError(t, err)

	assert.Equal(t, 1, positions[1])
	_, placed := positions[2]
	assert.False(t, placed)
}
