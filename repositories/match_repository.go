package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/clubpadel/championship-system/models"
	"github.com/lib/pq"
)

var ErrMatchNotFound = errors.New("match not found")

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	ListByStage(ctx context.Context, stageID int) ([]models.Match, error)
	// UpdateSides переписывает составы сторон — единственный способ
	// распространить смену владельца слота на матчи хранилища.
	UpdateSides(ctx context.Context, exec SQLExecutor, matchID int, side1, side2 []int) error
	UpdateResult(ctx context.Context, exec SQLExecutor, match *models.Match) error
	DeleteByIDs(ctx context.Context, exec SQLExecutor, ids []int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	executor := r.getExecutor(exec)
	result, err := marshalResult(m.Result)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO matches (stage_id, side_1, side_2, doubles, gender, status, result)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	return executor.QueryRowContext(ctx, query,
		m.StageID, pq.Array(intsToInt64(m.Side1)), pq.Array(intsToInt64(m.Side2)),
		m.Doubles, m.Gender, m.Status, result,
	).Scan(&m.ID)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT id, stage_id, side_1, side_2, doubles, gender, status, result FROM matches WHERE id = $1`
	m, err := scanMatch(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByStage(ctx context.Context, stageID int) ([]models.Match, error) {
	query := `SELECT id, stage_id, side_1, side_2, doubles, gender, status, result FROM matches WHERE stage_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, stageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]models.Match, 0)
	for rows.Next() {
		m, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, *m)
	}
	return matches, rows.Err()
}

func (r *postgresMatchRepository) UpdateSides(ctx context.Context, exec SQLExecutor, matchID int, side1, side2 []int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE matches SET side_1 = $1, side_2 = $2 WHERE id = $3`
	result, err := executor.ExecContext(ctx, query,
		pq.Array(intsToInt64(side1)), pq.Array(intsToInt64(side2)), matchID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateResult(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	executor := r.getExecutor(exec)
	result, err := marshalResult(m.Result)
	if err != nil {
		return err
	}
	query := `UPDATE matches SET status = $1, result = $2 WHERE id = $3`
	res, err := executor.ExecContext(ctx, query, m.Status, result, m.ID)
	if err != nil {
		return err
	}
	return checkAffectedRows(res, ErrMatchNotFound)
}

func (r *postgresMatchRepository) DeleteByIDs(ctx context.Context, exec SQLExecutor, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	executor := r.getExecutor(exec)
	query := `DELETE FROM matches WHERE id = ANY($1)`
	_, err := executor.ExecContext(ctx, query, pq.Array(intsToInt64(ids)))
	return err
}

func scanMatch(row rowScanner) (*models.Match, error) {
	m := &models.Match{}
	var side1, side2 pq.Int64Array
	var result []byte

	err := row.Scan(&m.ID, &m.StageID, &side1, &side2, &m.Doubles, &m.Gender, &m.Status, &result)
	if err != nil {
		return nil, err
	}
	m.Side1 = int64sToInt(side1)
	m.Side2 = int64sToInt(side2)
	if len(result) > 0 {
		m.Result = &models.MatchResult{}
		if err := json.Unmarshal(result, m.Result); err != nil {
			return nil, fmt.Errorf("failed to decode match %d result: %w", m.ID, err)
		}
	}
	return m, nil
}

func marshalResult(result *models.MatchResult) ([]byte, error) {
	if result == nil {
		return nil, nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode match result: %w", err)
	}
	return data, nil
}
