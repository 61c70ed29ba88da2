package services

import (
	"context"

	"github.com/clubpadel/championship-system/models"
	"github.com/clubpadel/championship-system/repositories"
)

// Фейковые репозитории для юнит-тестов сервисов: данные в памяти,
// executor игнорируется.

type fakeRankingRepo struct {
	nextID   int
	rankings map[int]*models.Ranking
}

func newFakeRankingRepo() *fakeRankingRepo {
	return &fakeRankingRepo{nextID: 1, rankings: make(map[int]*models.Ranking)}
}

func (r *fakeRankingRepo) Create(_ context.Context, _ repositories.SQLExecutor, ranking *models.Ranking) error {
	for _, existing := range r.rankings {
		if existing.PlayerID == ranking.PlayerID && existing.Scope.Matches(ranking.Scope) {
			return repositories.ErrRankingConflict
		}
	}
	ranking.ID = r.nextID
	r.nextID++
	stored := *ranking
	r.rankings[ranking.ID] = &stored
	return nil
}

func (r *fakeRankingRepo) GetByID(_ context.Context, id int) (*models.Ranking, error) {
	ranking, ok := r.rankings[id]
	if !ok {
		return nil, repositories.ErrRankingNotFound
	}
	copied := *ranking
	return &copied, nil
}

func (r *fakeRankingRepo) GetByPlayerAndScope(_ context.Context, playerID int, scope models.RankingScope) (*models.Ranking, error) {
	for _, ranking := range r.rankings {
		if ranking.PlayerID == playerID && ranking.Scope.Matches(scope) {
			copied := *ranking
			return &copied, nil
		}
	}
	return nil, repositories.ErrRankingNotFound
}

func (r *fakeRankingRepo) List(_ context.Context, _ repositories.ListRankingsFilter) ([]models.Ranking, error) {
	out := make([]models.Ranking, 0, len(r.rankings))
	for _, ranking := range r.rankings {
		out = append(out, *ranking)
	}
	return out, nil
}

func (r *fakeRankingRepo) Update(_ context.Context, _ repositories.SQLExecutor, ranking *models.Ranking) error {
	if _, ok := r.rankings[ranking.ID]; !ok {
		return repositories.ErrRankingNotFound
	}
	stored := *ranking
	r.rankings[ranking.ID] = &stored
	return nil
}

func (r *fakeRankingRepo) ApplyDelta(_ context.Context, _ repositories.SQLExecutor, id int, points, won, lost, abandoned int) error {
	ranking, ok := r.rankings[id]
	if !ok {
		return repositories.ErrRankingNotFound
	}
	ranking.Points += points
	ranking.Won += won
	ranking.Lost += lost
	ranking.Abandoned += abandoned
	return nil
}

func (r *fakeRankingRepo) CountByCategory(_ context.Context, categoryID int) (int, error) {
	count := 0
	for _, ranking := range r.rankings {
		if ranking.CategoryID != nil && *ranking.CategoryID == categoryID {
			count++
		}
	}
	return count, nil
}

func (r *fakeRankingRepo) MaxPointsInCategory(_ context.Context, categoryID int) (int, error) {
	max := 0
	for _, ranking := range r.rankings {
		if ranking.CategoryID != nil && *ranking.CategoryID == categoryID && ranking.Points > max {
			max = ranking.Points
		}
	}
	return max, nil
}

type fakeCategoryRepo struct {
	nextID     int
	categories []*models.RankingCategory
}

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{nextID: 1}
}

func (r *fakeCategoryRepo) Create(_ context.Context, category *models.RankingCategory) error {
	category.ID = r.nextID
	r.nextID++
	stored := *category
	r.categories = append(r.categories, &stored)
	return nil
}

func (r *fakeCategoryRepo) GetByID(_ context.Context, id int) (*models.RankingCategory, error) {
	for _, category := range r.categories {
		if category.ID == id {
			copied := *category
			return &copied, nil
		}
	}
	return nil, repositories.ErrCategoryNotFound
}

func (r *fakeCategoryRepo) ListByScope(_ context.Context, scope models.RankingScope) ([]models.RankingCategory, error) {
	var out []models.RankingCategory
	for _, category := range r.categories {
		if category.Scope.Matches(scope) {
			out = append(out, *category)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Order < out[i].Order {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (r *fakeCategoryRepo) GetByScopeAndOrder(_ context.Context, scope models.RankingScope, order int) (*models.RankingCategory, error) {
	for _, category := range r.categories {
		if category.Scope.Matches(scope) && category.Order == order {
			copied := *category
			return &copied, nil
		}
	}
	return nil, repositories.ErrCategoryNotFound
}

func (r *fakeCategoryRepo) UpdateOrders(_ context.Context, _ repositories.SQLExecutor, orders map[int]int) error {
	for _, category := range r.categories {
		if order, ok := orders[category.ID]; ok {
			category.Order = order
		}
	}
	return nil
}

type fakeEnrollmentRepo struct {
	nextID      int
	enrollments map[int]*models.Enrollment
}

func newFakeEnrollmentRepo() *fakeEnrollmentRepo {
	return &fakeEnrollmentRepo{nextID: 1, enrollments: make(map[int]*models.Enrollment)}
}

func (r *fakeEnrollmentRepo) Create(_ context.Context, _ repositories.SQLExecutor, enrollment *models.Enrollment) error {
	for _, existing := range r.enrollments {
		if existing.PlayerID == enrollment.PlayerID && existing.ChampionshipID == enrollment.ChampionshipID {
			return repositories.ErrEnrollmentConflict
		}
	}
	enrollment.ID = r.nextID
	r.nextID++
	stored := *enrollment
	r.enrollments[enrollment.ID] = &stored
	return nil
}

func (r *fakeEnrollmentRepo) GetByID(_ context.Context, id int) (*models.Enrollment, error) {
	enrollment, ok := r.enrollments[id]
	if !ok {
		return nil, repositories.ErrEnrollmentNotFound
	}
	copied := *enrollment
	return &copied, nil
}

func (r *fakeEnrollmentRepo) GetByPlayerAndChampionship(_ context.Context, playerID, championshipID int) (*models.Enrollment, error) {
	for _, enrollment := range r.enrollments {
		if enrollment.PlayerID == playerID && enrollment.ChampionshipID == championshipID {
			copied := *enrollment
			return &copied, nil
		}
	}
	return nil, repositories.ErrEnrollmentNotFound
}

func (r *fakeEnrollmentRepo) ListByChampionship(_ context.Context, championshipID int) ([]models.Enrollment, error) {
	var out []models.Enrollment
	for _, enrollment := range r.enrollments {
		if enrollment.ChampionshipID == championshipID {
			out = append(out, *enrollment)
		}
	}
	return out, nil
}

func (r *fakeEnrollmentRepo) Update(_ context.Context, _ repositories.SQLExecutor, enrollment *models.Enrollment) error {
	if _, ok := r.enrollments[enrollment.ID]; !ok {
		return repositories.ErrEnrollmentNotFound
	}
	stored := *enrollment
	r.enrollments[enrollment.ID] = &stored
	return nil
}

func (r *fakeEnrollmentRepo) AppendMatchID(_ context.Context, _ repositories.SQLExecutor, enrollmentID, matchID int) error {
	enrollment, ok := r.enrollments[enrollmentID]
	if !ok {
		return repositories.ErrEnrollmentNotFound
	}
	enrollment.MatchIDs = append(enrollment.MatchIDs, matchID)
	return nil
}

func (r *fakeEnrollmentRepo) RemoveMatchIDs(_ context.Context, _ repositories.SQLExecutor, championshipID int, matchIDs []int) error {
	drop := make(map[int]bool, len(matchIDs))
	for _, id := range matchIDs {
		drop[id] = true
	}
	for _, enrollment := range r.enrollments {
		if enrollment.ChampionshipID != championshipID {
			continue
		}
		kept := enrollment.MatchIDs[:0]
		for _, id := range enrollment.MatchIDs {
			if !drop[id] {
				kept = append(kept, id)
			}
		}
		enrollment.MatchIDs = kept
	}
	return nil
}

type fakePlayerRepo struct {
	players map[int]*models.Player
}

func newFakePlayerRepo(players ...*models.Player) *fakePlayerRepo {
	repo := &fakePlayerRepo{players: make(map[int]*models.Player)}
	for _, player := range players {
		repo.players[player.ID] = player
	}
	return repo
}

func (r *fakePlayerRepo) Create(_ context.Context, player *models.Player) error {
	for _, existing := range r.players {
		if existing.Email == player.Email {
			return repositories.ErrPlayerEmailConflict
		}
	}
	if player.ID == 0 {
		player.ID = len(r.players) + 1
	}
	r.players[player.ID] = player
	return nil
}

func (r *fakePlayerRepo) GetByID(_ context.Context, id int) (*models.Player, error) {
	player, ok := r.players[id]
	if !ok {
		return nil, repositories.ErrPlayerNotFound
	}
	return player, nil
}

func (r *fakePlayerRepo) GetByEmail(_ context.Context, email string) (*models.Player, error) {
	for _, player := range r.players {
		if player.Email == email {
			return player, nil
		}
	}
	return nil, repositories.ErrPlayerNotFound
}

func (r *fakePlayerRepo) Update(_ context.Context, player *models.Player) error {
	if _, ok := r.players[player.ID]; !ok {
		return repositories.ErrPlayerNotFound
	}
	r.players[player.ID] = player
	return nil
}
