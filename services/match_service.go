package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/clubpadel/championship-system/models"
	"github.com/clubpadel/championship-system/repositories"
)

// ErrMatchResultInvalid возвращается, когда победители результата не
// совпадают ни с одной из сторон матча.
var ErrMatchResultInvalid = errors.New("match result winners do not match either side")

type MatchService interface {
	GetByID(ctx context.Context, matchID int) (*models.Match, error)
	ListByStage(ctx context.Context, stageID int) ([]models.Match, error)
	// RecordResult записывает (или переписывает) результат матча и
	// начисляет рейтинговые очки. Повторная запись того же результата
	// не меняет рейтинг.
	RecordResult(ctx context.Context, matchID int, result models.MatchResult) (*models.Match, []models.DomainEvent, error)
}

type matchService struct {
	db               *sql.DB
	matchRepo        repositories.MatchRepository
	stageRepo        repositories.StageRepository
	championshipRepo repositories.ChampionshipRepository
	points           PointsService
}

func NewMatchService(
	db *sql.DB,
	matchRepo repositories.MatchRepository,
	stageRepo repositories.StageRepository,
	championshipRepo repositories.ChampionshipRepository,
	points PointsService,
) MatchService {
	return &matchService{
		db:               db,
		matchRepo:        matchRepo,
		stageRepo:        stageRepo,
		championshipRepo: championshipRepo,
		points:           points,
	}
}

func (s *matchService) GetByID(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match %d: %w", matchID, err)
	}
	return match, nil
}

func (s *matchService) ListByStage(ctx context.Context, stageID int) ([]models.Match, error) {
	matches, err := s.matchRepo.ListByStage(ctx, stageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches of stage %d: %w", stageID, err)
	}
	return matches, nil
}

func (s *matchService) RecordResult(ctx context.Context, matchID int, result models.MatchResult) (*models.Match, []models.DomainEvent, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, nil, ErrMatchNotFound
		}
		return nil, nil, fmt.Errorf("failed to get match %d: %w", matchID, err)
	}

	if !sameSide(result.Winners, match.Side1) && !sameSide(result.Winners, match.Side2) {
		return nil, nil, ErrMatchResultInvalid
	}

	stage, err := s.stageRepo.GetByID(ctx, match.StageID)
	if err != nil {
		if errors.Is(err, repositories.ErrStageNotFound) {
			return nil, nil, ErrStageNotFound
		}
		return nil, nil, fmt.Errorf("failed to get stage %d: %w", match.StageID, err)
	}
	champ, err := s.championshipRepo.GetByID(ctx, stage.ChampionshipID)
	if err != nil {
		if errors.Is(err, repositories.ErrChampionshipNotFound) {
			return nil, nil, ErrChampionshipNotFound
		}
		return nil, nil, fmt.Errorf("failed to get championship %d: %w", stage.ChampionshipID, err)
	}
	if champ.Closed {
		return nil, nil, ErrChampionshipClosed
	}

	previous := match.Result
	match.Result = &result
	match.Status = models.MatchFinished

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.matchRepo.UpdateResult(ctx, tx, match); err != nil {
		return nil, nil, fmt.Errorf("failed to update match %d result: %w", matchID, err)
	}
	if err := s.points.ApplyMatchPoints(ctx, tx, champ, match, previous); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit match result: %w", err)
	}

	events := []models.DomainEvent{
		newEvent(models.EventMatchScored, champ.ID, 0, match),
	}
	return match, events, nil
}

// sameSide сравнивает победителей со стороной матча как множества.
func sameSide(winners, side []int) bool {
	if len(winners) == 0 || len(winners) != len(side) {
		return false
	}
	for _, w := range winners {
		found := false
		for _, p := range side {
			if p == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
