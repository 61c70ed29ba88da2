package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/clubpadel/championship-system/models"
	"github.com/lib/pq"
)

var (
	ErrRankingNotFound = errors.New("ranking not found")
	ErrRankingConflict = errors.New("ranking already exists for this player and scope")
)

type ListRankingsFilter struct {
	Scope      *models.RankingScope
	CategoryID *int
	// Leaderboard включает сортировку по очкам по убыванию.
	Leaderboard bool
	Limit       int
	Offset      int
}

type RankingRepository interface {
	Create(ctx context.Context, exec SQLExecutor, ranking *models.Ranking) error
	GetByID(ctx context.Context, id int) (*models.Ranking, error)
	GetByPlayerAndScope(ctx context.Context, playerID int, scope models.RankingScope) (*models.Ranking, error)
	List(ctx context.Context, filter ListRankingsFilter) ([]models.Ranking, error)
	Update(ctx context.Context, exec SQLExecutor, ranking *models.Ranking) error
	// ApplyDelta атомарно прибавляет очки и инкременты счётчиков.
	ApplyDelta(ctx context.Context, exec SQLExecutor, id int, points, won, lost, abandoned int) error
	CountByCategory(ctx context.Context, categoryID int) (int, error)
	MaxPointsInCategory(ctx context.Context, categoryID int) (int, error)
}

type postgresRankingRepository struct {
	db *sql.DB
}

func NewPostgresRankingRepository(db *sql.DB) RankingRepository {
	return &postgresRankingRepository{db: db}
}

func (r *postgresRankingRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const rankingColumns = `
	id, player_id, season_id, sport, modality, gender, points, category_id, won, lost, abandoned`

func (r *postgresRankingRepository) Create(ctx context.Context, exec SQLExecutor, rk *models.Ranking) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO rankings (player_id, season_id, sport, modality, gender, points, category_id, won, lost, abandoned)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	err := executor.QueryRowContext(ctx, query,
		rk.PlayerID, rk.Scope.SeasonID, rk.Scope.Sport, rk.Scope.Modality, rk.Scope.Gender,
		rk.Points, rk.CategoryID, rk.Won, rk.Lost, rk.Abandoned,
	).Scan(&rk.ID)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrRankingConflict
		}
		return err
	}
	return nil
}

func (r *postgresRankingRepository) GetByID(ctx context.Context, id int) (*models.Ranking, error) {
	query := `SELECT` + rankingColumns + ` FROM rankings WHERE id = $1`
	rk, err := scanRanking(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRankingNotFound
		}
		return nil, err
	}
	return rk, nil
}

func (r *postgresRankingRepository) GetByPlayerAndScope(ctx context.Context, playerID int, scope models.RankingScope) (*models.Ranking, error) {
	query := `SELECT` + rankingColumns + `
		FROM rankings
		WHERE player_id = $1 AND season_id = $2 AND sport = $3 AND modality = $4
		  AND gender IS NOT DISTINCT FROM $5`
	rk, err := scanRanking(r.db.QueryRowContext(ctx, query,
		playerID, scope.SeasonID, scope.Sport, scope.Modality, scope.Gender))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRankingNotFound
		}
		return nil, err
	}
	return rk, nil
}

func (r *postgresRankingRepository) List(ctx context.Context, filter ListRankingsFilter) ([]models.Ranking, error) {
	query := `SELECT` + rankingColumns + ` FROM rankings WHERE 1=1`
	args := []interface{}{}
	argID := 1

	if filter.Scope != nil {
		query += fmt.Sprintf(" AND season_id = $%d AND sport = $%d AND modality = $%d AND gender IS NOT DISTINCT FROM $%d",
			argID, argID+1, argID+2, argID+3)
		args = append(args, filter.Scope.SeasonID, filter.Scope.Sport, filter.Scope.Modality, filter.Scope.Gender)
		argID += 4
	}
	if filter.CategoryID != nil {
		query += fmt.Sprintf(" AND category_id = $%d", argID)
		args = append(args, *filter.CategoryID)
		argID++
	}

	if filter.Leaderboard {
		query += " ORDER BY points DESC, won DESC, id"
	} else {
		query += " ORDER BY id"
	}

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rankings := make([]models.Ranking, 0)
	for rows.Next() {
		rk, scanErr := scanRanking(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		rankings = append(rankings, *rk)
	}
	return rankings, rows.Err()
}

func (r *postgresRankingRepository) Update(ctx context.Context, exec SQLExecutor, rk *models.Ranking) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE rankings SET
			points = $1, category_id = $2, won = $3, lost = $4, abandoned = $5
		WHERE id = $6`

	result, err := executor.ExecContext(ctx, query,
		rk.Points, rk.CategoryID, rk.Won, rk.Lost, rk.Abandoned, rk.ID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRankingNotFound)
}

func (r *postgresRankingRepository) ApplyDelta(ctx context.Context, exec SQLExecutor, id int, points, won, lost, abandoned int) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE rankings SET
			points = points + $1,
			won = won + $2,
			lost = lost + $3,
			abandoned = abandoned + $4
		WHERE id = $5`

	result, err := executor.ExecContext(ctx, query, points, won, lost, abandoned, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRankingNotFound)
}

func (r *postgresRankingRepository) CountByCategory(ctx context.Context, categoryID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rankings WHERE category_id = $1`, categoryID).Scan(&count)
	return count, err
}

func (r *postgresRankingRepository) MaxPointsInCategory(ctx context.Context, categoryID int) (int, error) {
	var max int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(points), 0) FROM rankings WHERE category_id = $1`, categoryID).Scan(&max)
	return max, err
}

func scanRanking(row rowScanner) (*models.Ranking, error) {
	rk := &models.Ranking{}
	err := row.Scan(
		&rk.ID, &rk.PlayerID, &rk.Scope.SeasonID, &rk.Scope.Sport, &rk.Scope.Modality,
		&rk.Scope.Gender, &rk.Points, &rk.CategoryID, &rk.Won, &rk.Lost, &rk.Abandoned,
	)
	if err != nil {
		return nil, err
	}
	return rk, nil
}
