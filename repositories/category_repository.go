package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/clubpadel/championship-system/models"
)

var ErrCategoryNotFound = errors.New("ranking category not found")

type CategoryRepository interface {
	Create(ctx context.Context, category *models.RankingCategory) error
	GetByID(ctx context.Context, id int) (*models.RankingCategory, error)
	// ListByScope возвращает дивизионы области по возрастанию порядка.
	ListByScope(ctx context.Context, scope models.RankingScope) ([]models.RankingCategory, error)
	GetByScopeAndOrder(ctx context.Context, scope models.RankingScope, order int) (*models.RankingCategory, error)
	// UpdateOrders перезаписывает порядок всех дивизионов области одной
	// транзакцией: после неё порядок снова плотный 0..n-1.
	UpdateOrders(ctx context.Context, exec SQLExecutor, orders map[int]int) error
}

type postgresCategoryRepository struct {
	db *sql.DB
}

func NewPostgresCategoryRepository(db *sql.DB) CategoryRepository {
	return &postgresCategoryRepository{db: db}
}

func (r *postgresCategoryRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const categoryColumns = `id, season_id, sport, modality, gender, name, capacity, ord`

func (r *postgresCategoryRepository) Create(ctx context.Context, c *models.RankingCategory) error {
	query := `
		INSERT INTO ranking_categories (season_id, sport, modality, gender, name, capacity, ord)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	return r.db.QueryRowContext(ctx, query,
		c.Scope.SeasonID, c.Scope.Sport, c.Scope.Modality, c.Scope.Gender,
		c.Name, c.Capacity, c.Order,
	).Scan(&c.ID)
}

func (r *postgresCategoryRepository) GetByID(ctx context.Context, id int) (*models.RankingCategory, error) {
	query := `SELECT ` + categoryColumns + ` FROM ranking_categories WHERE id = $1`
	c, err := scanCategory(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *postgresCategoryRepository) ListByScope(ctx context.Context, scope models.RankingScope) ([]models.RankingCategory, error) {
	query := `
		SELECT ` + categoryColumns + `
		FROM ranking_categories
		WHERE season_id = $1 AND sport = $2 AND modality = $3 AND gender IS NOT DISTINCT FROM $4
		ORDER BY ord`

	rows, err := r.db.QueryContext(ctx, query, scope.SeasonID, scope.Sport, scope.Modality, scope.Gender)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]models.RankingCategory, 0)
	for rows.Next() {
		c, scanErr := scanCategory(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

func (r *postgresCategoryRepository) GetByScopeAndOrder(ctx context.Context, scope models.RankingScope, order int) (*models.RankingCategory, error) {
	query := `
		SELECT ` + categoryColumns + `
		FROM ranking_categories
		WHERE season_id = $1 AND sport = $2 AND modality = $3 AND gender IS NOT DISTINCT FROM $4 AND ord = $5`
	c, err := scanCategory(r.db.QueryRowContext(ctx, query,
		scope.SeasonID, scope.Sport, scope.Modality, scope.Gender, order))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *postgresCategoryRepository) UpdateOrders(ctx context.Context, exec SQLExecutor, orders map[int]int) error {
	executor := r.getExecutor(exec)
	for id, order := range orders {
		result, err := executor.ExecContext(ctx,
			`UPDATE ranking_categories SET ord = $1 WHERE id = $2`, order, id)
		if err != nil {
			return fmt.Errorf("failed to update order of category %d: %w", id, err)
		}
		if err := checkAffectedRows(result, ErrCategoryNotFound); err != nil {
			return err
		}
	}
	return nil
}

func scanCategory(row rowScanner) (*models.RankingCategory, error) {
	c := &models.RankingCategory{}
	err := row.Scan(
		&c.ID, &c.Scope.SeasonID, &c.Scope.Sport, &c.Scope.Modality, &c.Scope.Gender,
		&c.Name, &c.Capacity, &c.Order,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}
