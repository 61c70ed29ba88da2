package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/clubpadel/championship-system/brackets"
	"github.com/clubpadel/championship-system/models"
	"github.com/clubpadel/championship-system/repositories"
)

// PointsService начисляет рейтинговые очки за матчи и за итоговые места.
// Все записи идут через переданный executor, чтобы вызывающий сервис мог
// объединить их в одну транзакцию с записью результата.
type PointsService interface {
	// ApplyMatchPoints начисляет очки за результат матча. Если previous
	// не nil, сначала откатываются начисления прежнего результата, так
	// что повторная запись того же результата ничего не меняет.
	ApplyMatchPoints(ctx context.Context, exec repositories.SQLExecutor, champ *models.Championship, match *models.Match, previous *models.MatchResult) error
	// AwardPositionPoints начисляет очки за итоговые места при закрытии
	// чемпионата. positions: идентификатор игрока -> место.
	AwardPositionPoints(ctx context.Context, exec repositories.SQLExecutor, champ *models.Championship, positions map[int]int) error
}

type pointsService struct {
	rankingRepo repositories.RankingRepository
}

func NewPointsService(rankingRepo repositories.RankingRepository) PointsService {
	return &pointsService{rankingRepo: rankingRepo}
}

// rankingDelta — изменение одной записи рейтинга.
type rankingDelta struct {
	points    int
	won       int
	lost      int
	abandoned int
}

func (d rankingDelta) negated() rankingDelta {
	return rankingDelta{-d.points, -d.won, -d.lost, -d.abandoned}
}

func (d rankingDelta) add(o rankingDelta) rankingDelta {
	return rankingDelta{d.points + o.points, d.won + o.won, d.lost + o.lost, d.abandoned + o.abandoned}
}

// scopeOf выводит область рейтинга из параметров чемпионата.
func scopeOf(champ *models.Championship) models.RankingScope {
	return models.RankingScope{
		SeasonID: champ.SeasonID,
		Sport:    champ.Sport,
		Modality: champ.Modality,
		Gender:   champ.Rules.Gender,
	}
}

func (s *pointsService) ApplyMatchPoints(ctx context.Context, exec repositories.SQLExecutor, champ *models.Championship, match *models.Match, previous *models.MatchResult) error {
	if match.Result == nil {
		return ErrMatchNotFinished
	}

	deltas := make(map[int]rankingDelta)
	if previous != nil {
		for playerID, d := range resultDeltas(match, previous) {
			deltas[playerID] = deltas[playerID].add(d.negated())
		}
	}
	for playerID, d := range resultDeltas(match, match.Result) {
		deltas[playerID] = deltas[playerID].add(d)
	}
	return s.applyDeltas(ctx, exec, scopeOf(champ), deltas)
}

func (s *pointsService) AwardPositionPoints(ctx context.Context, exec repositories.SQLExecutor, champ *models.Championship, positions map[int]int) error {
	deltas := make(map[int]rankingDelta, len(positions))
	for playerID, position := range positions {
		deltas[playerID] = rankingDelta{points: champ.PointsForPosition(position)}
	}
	return s.applyDeltas(ctx, exec, scopeOf(champ), deltas)
}

// resultDeltas раскладывает результат матча на изменения по игрокам:
// победитель получает очки за победу, доигравший проигравший — очки за
// поражение, снявшийся — ничего. Результат может переопределять значения
// очков, и откат использует сохранённые в нём значения.
func resultDeltas(match *models.Match, result *models.MatchResult) map[int]rankingDelta {
	winners := make(map[int]bool, len(result.Winners))
	for _, id := range result.Winners {
		winners[id] = true
	}
	winPoints, lossPoints := result.PointsForOutcome(brackets.DefaultWinPoints, brackets.DefaultLossPoints)

	deltas := make(map[int]rankingDelta)
	for _, side := range [][]int{match.Side1, match.Side2} {
		for _, playerID := range side {
			switch {
			case winners[playerID]:
				deltas[playerID] = rankingDelta{points: winPoints, won: 1}
			case result.AbandonedBy(playerID):
				deltas[playerID] = rankingDelta{abandoned: 1}
			default:
				deltas[playerID] = rankingDelta{points: lossPoints, lost: 1}
			}
		}
	}
	return deltas
}

// applyDeltas применяет изменения, лениво создавая записи рейтинга при
// первом начислении.
func (s *pointsService) applyDeltas(ctx context.Context, exec repositories.SQLExecutor, scope models.RankingScope, deltas map[int]rankingDelta) error {
	for playerID, d := range deltas {
		if d == (rankingDelta{}) {
			continue
		}
		ranking, err := s.rankingRepo.GetByPlayerAndScope(ctx, playerID, scope)
		if err != nil {
			if errors.Is(err, repositories.ErrRankingNotFound) {
				created := &models.Ranking{
					PlayerID:  playerID,
					Scope:     scope,
					Points:    d.points,
					Won:       d.won,
					Lost:      d.lost,
					Abandoned: d.abandoned,
				}
				if createErr := s.rankingRepo.Create(ctx, exec, created); createErr != nil {
					return fmt.Errorf("failed to create ranking for player %d: %w", playerID, createErr)
				}
				continue
			}
			return fmt.Errorf("failed to resolve ranking for player %d: %w", playerID, err)
		}
		if err := s.rankingRepo.ApplyDelta(ctx, exec, ranking.ID, d.points, d.won, d.lost, d.abandoned); err != nil {
			return fmt.Errorf("failed to apply ranking delta for player %d: %w", playerID, err)
		}
	}
	return nil
}
