package services

import (
	"context"
	"testing"

	"github.com/clubpadel/championship-system/brackets"
	"github.com/clubpadel/championship-system/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChampionship() *models.Championship {
	return &models.Championship{
		ID:       1,
		Name:     "Open de Primavera",
		Sport:    "padel",
		SeasonID: 2026,
		Modality: models.ModalitySingles,
	}
}

func TestApplyMatchPointsLazilyCreatesRankings(t *testing.T) {
	repo := newFakeRankingRepo()
	svc := NewPointsService(repo)
	champ := testChampionship()

	match := &models.Match{
		ID:     1,
		Side1:  []int{10},
		Side2:  []int{20},
		Status: models.MatchFinished,
		Result: &models.MatchResult{Winners: []int{10}},
	}

	err := svc.ApplyMatchPoints(context.Background(), nil, champ, match, nil)
	require.NoError(t, err)

	winner, err := repo.GetByPlayerAndScope(context.Background(), 10, scopeOf(champ))
	require.NoError(t, err)
	assert.Equal(t, brackets.DefaultWinPoints, winner.Points)
	assert.Equal(t, 1, winner.Won)
	assert.Equal(t, 0, winner.Lost)

	loser, err := repo.GetByPlayerAndScope(context.Background(), 20, scopeOf(champ))
	require.NoError(t, err)
	assert.Equal(t, brackets.DefaultLossPoints, loser.Points)
	assert.Equal(t, 1, loser.Lost)
}

func TestApplyMatchPointsRevertsPreviousResult(t *testing.T) {
	repo := newFakeRankingRepo()
	svc := NewPointsService(repo)
	champ := testChampionship()

	match := &models.Match{
		ID:     1,
		Side1:  []int{10},
		Side2:  []int{20},
		Status: models.MatchFinished,
		Result: &models.MatchResult{Winners: []int{10}},
	}
	require.NoError(t, svc.ApplyMatchPoints(context.Background(), nil, champ, match, nil))

	// Исправление: победитель меняется на игрока 20.
	previous := &models.MatchResult{Winners: []int{10}}
	match.Result = &models.MatchResult{Winners: []int{20}}
	require.NoError(t, svc.ApplyMatchPoints(context.Background(), nil, champ, match, previous))

	scope := scopeOf(champ)
	first, err := repo.GetByPlayerAndScope(context.Background(), 10, scope)
	require.NoError(t, err)
	second, err := repo.GetByPlayerAndScope(context.Background(), 20, scope)
	require.NoError(t, err)

	// Итог такой, как будто игрок 20 победил с самого начала.
	assert.Equal(t, brackets.DefaultLossPoints, first.Points)
	assert.Equal(t, 0, first.Won)
	assert.Equal(t, 1, first.Lost)
	assert.Equal(t, brackets.DefaultWinPoints, second.Points)
	assert.Equal(t, 1, second.Won)
	assert.Equal(t, 0, second.Lost)
}

func TestApplyMatchPointsSameResultTwiceIsNetZero(t *testing.T) {
	repo := newFakeRankingRepo()
	svc := NewPointsService(repo)
	champ := testChampionship()

	match := &models.Match{
		ID:     1,
		Side1:  []int{10},
		Side2:  []int{20},
		Status: models.MatchFinished,
		Result: &models.MatchResult{Winners: []int{10}},
	}
	require.NoError(t, svc.ApplyMatchPoints(context.Background(), nil, champ, match, nil))

	previous := &models.MatchResult{Winners: []int{10}}
	require.NoError(t, svc.ApplyMatchPoints(context.Background(), nil, champ, match, previous))

	winner, err := repo.GetByPlayerAndScope(context.Background(), 10, scopeOf(champ))
	require.NoError(t, err)
	assert.Equal(t, brackets.DefaultWinPoints, winner.Points)
	assert.Equal(t, 1, winner.Won)
}

func TestApplyMatchPointsAbandonedLoserGetsNothing(t *testing.T) {
	repo := newFakeRankingRepo()
	svc := NewPointsService(repo)
	champ := testChampionship()

	match := &models.Match{
		ID:     1,
		Side1:  []int{10},
		Side2:  []int{20},
		Status: models.MatchFinished,
		Result: &models.MatchResult{Winners: []int{10}, Abandoned: []int{20}},
	}
	require.NoError(t, svc.ApplyMatchPoints(context.Background(), nil, champ, match, nil))

	loser, err := repo.GetByPlayerAndScope(context.Background(), 20, scopeOf(champ))
	require.NoError(t, err)
	assert.Equal(t, 0, loser.Points)
	assert.Equal(t, 0, loser.Lost)
	assert.Equal(t, 1, loser.Abandoned)
}

func TestApplyMatchPointsHonorsOverrides(t *testing.T) {
	repo := newFakeRankingRepo()
	svc := NewPointsService(repo)
	champ := testChampionship()

	win, loss := 10, 2
	match := &models.Match{
		ID:     1,
		Side1:  []int{10},
		Side2:  []int{20},
		Status: models.MatchFinished,
		Result: &models.MatchResult{Winners: []int{10}, WinPoints: &win, LossPoints: &loss},
	}
	require.NoError(t, svc.ApplyMatchPoints(context.Background(), nil, champ, match, nil))

	scope := scopeOf(champ)
	winner, err := repo.GetByPlayerAndScope(context.Background(), 10, scope)
	require.NoError(t, err)
	assert.Equal(t, 10, winner.Points)

	// Исправление на стандартные очки откатывает именно сохранённые
	// переопределённые значения.
	previous := match.Result
	match.Result = &models.MatchResult{Winners: []int{10}}
	require.NoError(t, svc.ApplyMatchPoints(context.Background(), nil, champ, match, previous))

	winner, err = repo.GetByPlayerAndScope(context.Background(), 10, scope)
	require.NoError(t, err)
	assert.Equal(t, brackets.DefaultWinPoints, winner.Points)

	loser, err := repo.GetByPlayerAndScope(context.Background(), 20, scope)
	require.NoError(t, err)
	assert.Equal(t, brackets.DefaultLossPoints, loser.Points)
}

func TestApplyMatchPointsRequiresResult(t *testing.T) {
	svc := NewPointsService(newFakeRankingRepo())
	match := &models.Match{ID: 1, Side1: []int{10}, Side2: []int{20}, Status: models.MatchInProgress}

	err := svc.ApplyMatchPoints(context.Background(), nil, testChampionship(), match, nil)
	assert.ErrorIs(t, err, ErrMatchNotFinished)
}

func TestAwardPositionPointsUsesChampionshipTable(t *testing.T) {
	repo := newFakeRankingRepo()
	svc := NewPointsService(repo)
	champ := testChampionship()
	champ.PositionPoints = map[int]int{1: 500, 2: 300}

	positions := map[int]int{10: 1, 20: 2, 30: 9}
	require.NoError(t, svc.AwardPositionPoints(context.Background(), nil, champ, positions))

	scope := scopeOf(champ)
	first, err := repo.GetByPlayerAndScope(context.Background(), 10, scope)
	require.NoError(t, err)
	assert.Equal(t, 500, first.Points)

	second, err := repo.GetByPlayerAndScope(context.Background(), 20, scope)
	require.NoError(t, err)
	assert.Equal(t, 300, second.Points)

	// Место вне таблицы даёт 0 очков: запись даже не создаётся.
	_, err = repo.GetByPlayerAndScope(context.Background(), 30, scope)
	assert.Error(t, err)
}

func TestAwardPositionPointsDefaultTable(t *testing.T) {
	repo := newFakeRankingRepo()
	svc := NewPointsService(repo)
	champ := testChampionship()

	require.NoError(t, svc.AwardPositionPoints(context.Background(), nil, champ, map[int]int{10: 1, 20: 3}))

	scope := scopeOf(champ)
	first, err := repo.GetByPlayerAndScope(context.Background(), 10, scope)
	require.NoError(t, err)
	assert.Equal(t, 1000, first.Points)

	third, err := repo.GetByPlayerAndScope(context.Background(), 20, scope)
	require.NoError(t, err)
	assert.Equal(t, 360, third.Points)
}
