package services

import (
	"context"
	"testing"

	"github.com/clubpadel/championship-system/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCategories(t *testing.T, svc CategoryService, names ...string) []*models.RankingCategory {
	t.Helper()
	out := make([]*models.RankingCategory, 0, len(names))
	for _, name := range names {
		category, err := svc.Create(context.Background(), &models.RankingCategory{
			Scope:    testScope(),
			Name:     name,
			Capacity: 16,
		})
		require.NoError(t, err)
		out = append(out, category)
	}
	return out
}

func TestCategoryCreateAppendsToOrder(t *testing.T) {
	svc := NewCategoryService(newFakeCategoryRepo())

	created := seedCategories(t, svc, "Primera", "Segunda", "Tercera")

	assert.Equal(t, 0, created[0].Order)
	assert.Equal(t, 1, created[1].Order)
	assert.Equal(t, 2, created[2].Order)
}

func TestCategoryCreateRejectsBadCapacity(t *testing.T) {
	svc := NewCategoryService(newFakeCategoryRepo())

	_, err := svc.Create(context.Background(), &models.RankingCategory{
		Scope:    testScope(),
		Name:     "Primera",
		Capacity: 5,
	})
	assert.ErrorIs(t, err, ErrCategoryBadCapacity)
}

func TestCategoryReorderPartialListKeepsRelativeOrder(t *testing.T) {
	svc := NewCategoryService(newFakeCategoryRepo())
	created := seedCategories(t, svc, "A", "B", "C")

	// Упомянуты только C и A: они встают первыми, B следует за ними.
	reordered, err := svc.Reorder(context.Background(), testScope(), []int{created[2].ID, created[0].ID})
	require.NoError(t, err)
	require.Len(t, reordered, 3)

	assert.Equal(t, "C", reordered[0].Name)
	assert.Equal(t, "A", reordered[1].Name)
	assert.Equal(t, "B", reordered[2].Name)
	for i, category := range reordered {
		assert.Equal(t, i, category.Order)
	}
}

func TestCategoryReorderUnknownID(t *testing.T) {
	svc := NewCategoryService(newFakeCategoryRepo())
	seedCategories(t, svc, "A", "B")

	_, err := svc.Reorder(context.Background(), testScope(), []int{42})
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestCategoryReorderPersists(t *testing.T) {
	repo := newFakeCategoryRepo()
	svc := NewCategoryService(repo)
	created := seedCategories(t, svc, "A", "B")

	_, err := svc.Reorder(context.Background(), testScope(), []int{created[1].ID, created[0].ID})
	require.NoError(t, err)

	listed, err := svc.ListByScope(context.Background(), testScope())
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "B", listed[0].Name)
	assert.Equal(t, "A", listed[1].Name)
}
