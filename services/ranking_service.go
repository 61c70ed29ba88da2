package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/clubpadel/championship-system/models"
	"github.com/clubpadel/championship-system/repositories"
)

type RankingService interface {
	// Upsert создаёт запись рейтинга либо возвращает существующую для
	// пары (игрок, область).
	Upsert(ctx context.Context, ranking *models.Ranking) (*models.Ranking, error)
	GetByID(ctx context.Context, id int) (*models.Ranking, error)
	List(ctx context.Context, filter repositories.ListRankingsFilter) ([]models.Ranking, error)
	Update(ctx context.Context, ranking *models.Ranking) (*models.Ranking, error)
	// Adjust применяет ручную корректировку очков (админская операция).
	Adjust(ctx context.Context, id int, pointsDelta int) (*models.Ranking, error)
	// ChangeCategory переводит запись в дивизион с контролем вместимости.
	ChangeCategory(ctx context.Context, id int, categoryID *int) (*models.Ranking, error)
}

type rankingService struct {
	rankingRepo  repositories.RankingRepository
	categoryRepo repositories.CategoryRepository
	playerRepo   repositories.PlayerRepository
}

func NewRankingService(
	rankingRepo repositories.RankingRepository,
	categoryRepo repositories.CategoryRepository,
	playerRepo repositories.PlayerRepository,
) RankingService {
	return &rankingService{
		rankingRepo:  rankingRepo,
		categoryRepo: categoryRepo,
		playerRepo:   playerRepo,
	}
}

func (s *rankingService) Upsert(ctx context.Context, ranking *models.Ranking) (*models.Ranking, error) {
	if _, err := s.playerRepo.GetByID(ctx, ranking.PlayerID); err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player %d: %w", ranking.PlayerID, err)
	}

	if ranking.CategoryID != nil {
		category, err := s.checkCategoryAssignment(ctx, ranking.Scope, *ranking.CategoryID)
		if err != nil {
			return nil, err
		}
		points, err := s.promotionFloor(ctx, category)
		if err != nil {
			return nil, err
		}
		ranking.Points = points
	}

	if err := s.rankingRepo.Create(ctx, nil, ranking); err != nil {
		if errors.Is(err, repositories.ErrRankingConflict) {
			existing, getErr := s.rankingRepo.GetByPlayerAndScope(ctx, ranking.PlayerID, ranking.Scope)
			if getErr != nil {
				return nil, fmt.Errorf("failed to load existing ranking: %w", getErr)
			}
			return existing, nil
		}
		return nil, fmt.Errorf("failed to create ranking: %w", err)
	}
	return ranking, nil
}

func (s *rankingService) GetByID(ctx context.Context, id int) (*models.Ranking, error) {
	ranking, err := s.rankingRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrRankingNotFound) {
			return nil, ErrRankingNotFound
		}
		return nil, fmt.Errorf("failed to get ranking %d: %w", id, err)
	}
	return ranking, nil
}

func (s *rankingService) List(ctx context.Context, filter repositories.ListRankingsFilter) ([]models.Ranking, error) {
	rankings, err := s.rankingRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list rankings: %w", err)
	}
	return rankings, nil
}

func (s *rankingService) Update(ctx context.Context, ranking *models.Ranking) (*models.Ranking, error) {
	current, err := s.GetByID(ctx, ranking.ID)
	if err != nil {
		return nil, err
	}
	if ranking.CategoryID != nil && !sameCategory(current.CategoryID, ranking.CategoryID) {
		if _, err := s.checkCategoryAssignment(ctx, current.Scope, *ranking.CategoryID); err != nil {
			return nil, err
		}
	}
	if err := s.rankingRepo.Update(ctx, nil, ranking); err != nil {
		return nil, fmt.Errorf("failed to update ranking %d: %w", ranking.ID, err)
	}
	return ranking, nil
}

func (s *rankingService) Adjust(ctx context.Context, id int, pointsDelta int) (*models.Ranking, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if err := s.rankingRepo.ApplyDelta(ctx, nil, id, pointsDelta, 0, 0, 0); err != nil {
		return nil, fmt.Errorf("failed to adjust ranking %d: %w", id, err)
	}
	return s.GetByID(ctx, id)
}

func (s *rankingService) ChangeCategory(ctx context.Context, id int, categoryID *int) (*models.Ranking, error) {
	ranking, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if categoryID != nil && !sameCategory(ranking.CategoryID, categoryID) {
		category, err := s.checkCategoryAssignment(ctx, ranking.Scope, *categoryID)
		if err != nil {
			return nil, err
		}
		// Первое попадание в дивизион стартует с потолка дивизиона ниже.
		if ranking.CategoryID == nil {
			points, err := s.promotionFloor(ctx, category)
			if err != nil {
				return nil, err
			}
			ranking.Points = points
		}
	}
	ranking.CategoryID = categoryID
	if err := s.rankingRepo.Update(ctx, nil, ranking); err != nil {
		return nil, fmt.Errorf("failed to change ranking %d category: %w", id, err)
	}
	return ranking, nil
}

// checkCategoryAssignment проверяет, что дивизион принадлежит той же
// области и не заполнен.
func (s *rankingService) checkCategoryAssignment(ctx context.Context, scope models.RankingScope, categoryID int) (*models.RankingCategory, error) {
	category, err := s.categoryRepo.GetByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, repositories.ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category %d: %w", categoryID, err)
	}
	if !category.Scope.Matches(scope) {
		return nil, ErrCategoryScopeMismatch
	}
	count, err := s.rankingRepo.CountByCategory(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to count category %d members: %w", categoryID, err)
	}
	if count >= category.Capacity {
		return nil, ErrCategoryFull
	}
	return category, nil
}

// promotionFloor считает стартовые очки для новичка дивизиона: максимум
// очков в дивизионе на ступень ниже той же области, 0 при его отсутствии.
func (s *rankingService) promotionFloor(ctx context.Context, category *models.RankingCategory) (int, error) {
	below, err := s.categoryRepo.GetByScopeAndOrder(ctx, category.Scope, category.Order+1)
	if err != nil {
		if errors.Is(err, repositories.ErrCategoryNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to resolve lower tier of category %d: %w", category.ID, err)
	}
	maxPoints, err := s.rankingRepo.MaxPointsInCategory(ctx, below.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to compute promotion floor: %w", err)
	}
	return maxPoints, nil
}

func sameCategory(a, b *int) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}
