package services

import (
	"context"
	"testing"
	"time"

	"github.com/clubpadel/championship-system/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScope() models.RankingScope {
	return models.RankingScope{SeasonID: 2026, Sport: "padel", Modality: models.ModalitySingles}
}

func testPlayer(id int) *models.Player {
	expiry := time.Now().AddDate(1, 0, 0)
	return &models.Player{
		ID:            id,
		FirstName:     "Ana",
		LastName:      "García",
		Email:         "ana@example.com",
		Role:          models.RolePlayer,
		Gender:        models.GenderFemale,
		BirthDate:     time.Date(1995, 4, 12, 0, 0, 0, 0, time.UTC),
		LicenseExpiry: &expiry,
	}
}

func newRankingFixture(t *testing.T) (RankingService, *fakeRankingRepo, *fakeCategoryRepo) {
	t.Helper()
	rankingRepo := newFakeRankingRepo()
	categoryRepo := newFakeCategoryRepo()
	playerRepo := newFakePlayerRepo(testPlayer(1), testPlayer(2), testPlayer(3), testPlayer(4), testPlayer(5))
	return NewRankingService(rankingRepo, categoryRepo, playerRepo), rankingRepo, categoryRepo
}

func TestRankingUpsertReturnsExistingOnConflict(t *testing.T) {
	svc, _, _ := newRankingFixture(t)
	ctx := context.Background()

	created, err := svc.Upsert(ctx, &models.Ranking{PlayerID: 1, Scope: testScope(), Points: 10})
	require.NoError(t, err)

	again, err := svc.Upsert(ctx, &models.Ranking{PlayerID: 1, Scope: testScope(), Points: 999})
	require.NoError(t, err)

	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, 10, again.Points)
}

func TestRankingUpsertUnknownPlayer(t *testing.T) {
	svc, _, _ := newRankingFixture(t)

	_, err := svc.Upsert(context.Background(), &models.Ranking{PlayerID: 99, Scope: testScope()})
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestRankingAdjustAppliesDelta(t *testing.T) {
	svc, repo, _ := newRankingFixture(t)
	ctx := context.Background()

	ranking := &models.Ranking{PlayerID: 1, Scope: testScope(), Points: 100}
	require.NoError(t, repo.Create(ctx, nil, ranking))

	adjusted, err := svc.Adjust(ctx, ranking.ID, -30)
	require.NoError(t, err)
	assert.Equal(t, 70, adjusted.Points)
}

func TestChangeCategoryFirstAssignmentSeedsPromotionFloor(t *testing.T) {
	svc, rankingRepo, categoryRepo := newRankingFixture(t)
	ctx := context.Background()
	scope := testScope()

	primera := &models.RankingCategory{Scope: scope, Name: "Primera", Capacity: 8, Order: 0}
	segunda := &models.RankingCategory{Scope: scope, Name: "Segunda", Capacity: 8, Order: 1}
	require.NoError(t, categoryRepo.Create(ctx, primera))
	require.NoError(t, categoryRepo.Create(ctx, segunda))

	// Лучший игрок второго дивизиона — 450 очков.
	veteran := &models.Ranking{PlayerID: 2, Scope: scope, Points: 450, CategoryID: &segunda.ID}
	require.NoError(t, rankingRepo.Create(ctx, nil, veteran))

	newcomer := &models.Ranking{PlayerID: 1, Scope: scope, Points: 5}
	require.NoError(t, rankingRepo.Create(ctx, nil, newcomer))

	changed, err := svc.ChangeCategory(ctx, newcomer.ID, &primera.ID)
	require.NoError(t, err)

	require.NotNil(t, changed.CategoryID)
	assert.Equal(t, primera.ID, *changed.CategoryID)
	assert.Equal(t, 450, changed.Points)
}

func TestChangeCategoryLowestTierStartsFromZero(t *testing.T) {
	svc, rankingRepo, categoryRepo := newRankingFixture(t)
	ctx := context.Background()
	scope := testScope()

	category := &models.RankingCategory{Scope: scope, Name: "Única", Capacity: 8, Order: 0}
	require.NoError(t, categoryRepo.Create(ctx, category))

	ranking := &models.Ranking{PlayerID: 1, Scope: scope, Points: 77}
	require.NoError(t, rankingRepo.Create(ctx, nil, ranking))

	changed, err := svc.ChangeCategory(ctx, ranking.ID, &category.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, changed.Points)
}

func TestChangeCategoryRejectsFullCategory(t *testing.T) {
	svc, rankingRepo, categoryRepo := newRankingFixture(t)
	ctx := context.Background()
	scope := testScope()

	category := &models.RankingCategory{Scope: scope, Name: "Primera", Capacity: 4, Order: 0}
	require.NoError(t, categoryRepo.Create(ctx, category))

	for player := 2; player <= 5; player++ {
		member := &models.Ranking{PlayerID: player, Scope: scope, CategoryID: &category.ID}
		require.NoError(t, rankingRepo.Create(ctx, nil, member))
	}

	ranking := &models.Ranking{PlayerID: 1, Scope: scope}
	require.NoError(t, rankingRepo.Create(ctx, nil, ranking))

	_, err := svc.ChangeCategory(ctx, ranking.ID, &category.ID)
	assert.ErrorIs(t, err, ErrCategoryFull)
}

func TestChangeCategoryRejectsScopeMismatch(t *testing.T) {
	svc, rankingRepo, categoryRepo := newRankingFixture(t)
	ctx := context.Background()

	otherScope := models.RankingScope{SeasonID: 2025, Sport: "padel", Modality: models.ModalitySingles}
	category := &models.RankingCategory{Scope: otherScope, Name: "Primera", Capacity: 8, Order: 0}
	require.NoError(t, categoryRepo.Create(ctx, category))

	ranking := &models.Ranking{PlayerID: 1, Scope: testScope()}
	require.NoError(t, rankingRepo.Create(ctx, nil, ranking))

	_, err := svc.ChangeCategory(ctx, ranking.ID, &category.ID)
	assert.ErrorIs(t, err, ErrCategoryScopeMismatch)
}

func TestChangeCategoryClearsAssignment(t *testing.T) {
	svc, rankingRepo, categoryRepo := newRankingFixture(t)
	ctx := context.Background()
	scope := testScope()

	category := &models.RankingCategory{Scope: scope, Name: "Primera", Capacity: 8, Order: 0}
	require.NoError(t, categoryRepo.Create(ctx, category))

	ranking := &models.Ranking{PlayerID: 1, Scope: scope, Points: 50, CategoryID: &category.ID}
	require.NoError(t, rankingRepo.Create(ctx, nil, ranking))

	changed, err := svc.ChangeCategory(ctx, ranking.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, changed.CategoryID)
	assert.Equal(t, 50, changed.Points)
}
