package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/clubpadel/championship-system/models"
	"github.com/clubpadel/championship-system/repositories"
)

type CategoryService interface {
	// Create добавляет дивизион в конец порядка своей области.
	Create(ctx context.Context, category *models.RankingCategory) (*models.RankingCategory, error)
	GetByID(ctx context.Context, id int) (*models.RankingCategory, error)
	ListByScope(ctx context.Context, scope models.RankingScope) ([]models.RankingCategory, error)
	// Reorder принимает частичный список идентификаторов в желаемом
	// порядке; не упомянутые дивизионы следуют за ними в прежнем
	// относительном порядке. Результат — плотная нумерация 0..n-1.
	Reorder(ctx context.Context, scope models.RankingScope, orderedIDs []int) ([]models.RankingCategory, error)
}

type categoryService struct {
	categoryRepo repositories.CategoryRepository
}

func NewCategoryService(categoryRepo repositories.CategoryRepository) CategoryService {
	return &categoryService{categoryRepo: categoryRepo}
}

func (s *categoryService) Create(ctx context.Context, category *models.RankingCategory) (*models.RankingCategory, error) {
	if !models.ValidCategoryCapacity(category.Capacity) {
		return nil, ErrCategoryBadCapacity
	}

	existing, err := s.categoryRepo.ListByScope(ctx, category.Scope)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories of scope: %w", err)
	}
	category.Order = len(existing)

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return category, nil
}

func (s *categoryService) GetByID(ctx context.Context, id int) (*models.RankingCategory, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category %d: %w", id, err)
	}
	return category, nil
}

func (s *categoryService) ListByScope(ctx context.Context, scope models.RankingScope) ([]models.RankingCategory, error) {
	categories, err := s.categoryRepo.ListByScope(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (s *categoryService) Reorder(ctx context.Context, scope models.RankingScope, orderedIDs []int) ([]models.RankingCategory, error) {
	categories, err := s.categoryRepo.ListByScope(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories of scope: %w", err)
	}

	byID := make(map[int]*models.RankingCategory, len(categories))
	for i := range categories {
		byID[categories[i].ID] = &categories[i]
	}
	for _, id := range orderedIDs {
		if _, ok := byID[id]; !ok {
			return nil, ErrCategoryNotFound
		}
	}

	reordered := reorderCategories(categories, orderedIDs)

	orders := make(map[int]int, len(reordered))
	for i := range reordered {
		reordered[i].Order = i
		orders[reordered[i].ID] = i
	}
	if err := s.categoryRepo.UpdateOrders(ctx, nil, orders); err != nil {
		return nil, fmt.Errorf("failed to persist category order: %w", err)
	}
	return reordered, nil
}

// reorderCategories: сначала упомянутые дивизионы в заданном порядке,
// затем остальные в прежнем относительном порядке.
func reorderCategories(categories []models.RankingCategory, orderedIDs []int) []models.RankingCategory {
	mentioned := make(map[int]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		mentioned[id] = true
	}

	result := make([]models.RankingCategory, 0, len(categories))
	for _, id := range orderedIDs {
		for i := range categories {
			if categories[i].ID == id {
				result = append(result, categories[i])
				break
			}
		}
	}
	for i := range categories {
		if !mentioned[categories[i].ID] {
			result = append(result, categories[i])
		}
	}
	return result
}
