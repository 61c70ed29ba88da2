package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/clubpadel/championship-system/models"
	"github.com/lib/pq"
)

var (
	ErrChampionshipNotFound     = errors.New("championship not found")
	ErrChampionshipNameConflict = errors.New("championship name conflict for this season")
)

type ListChampionshipsFilter struct {
	Sport    *string
	SeasonID *int
	Modality *models.Modality
	Closed   *bool
	Limit    int
	Offset   int
}

type ChampionshipRepository interface {
	Create(ctx context.Context, championship *models.Championship) error
	GetByID(ctx context.Context, id int) (*models.Championship, error)
	List(ctx context.Context, filter ListChampionshipsFilter) ([]models.Championship, error)
	Update(ctx context.Context, championship *models.Championship) error
	AppendStageID(ctx context.Context, exec SQLExecutor, championshipID, stageID int) error
	AppendEnrollmentID(ctx context.Context, exec SQLExecutor, championshipID, enrollmentID int) error
	MarkClosed(ctx context.Context, exec SQLExecutor, championshipID int) error
	UpdatePosterKey(ctx context.Context, championshipID int, posterKey *string) error
}

type postgresChampionshipRepository struct {
	db *sql.DB
}

func NewPostgresChampionshipRepository(db *sql.DB) ChampionshipRepository {
	return &postgresChampionshipRepository{db: db}
}

func (r *postgresChampionshipRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const championshipColumns = `
	id, name, sport, season_id, modality, doubles, start_date, end_date, max_entries,
	rule_gender, rule_min_age, rule_max_age, rule_min_points, rule_max_points,
	stage_ids, enrollment_ids, position_points, closed, poster_key, created_at`

func (r *postgresChampionshipRepository) Create(ctx context.Context, c *models.Championship) error {
	positionPoints, err := marshalPositionPoints(c.PositionPoints)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO championships (
			name, sport, season_id, modality, doubles, start_date, end_date, max_entries,
			rule_gender, rule_min_age, rule_max_age, rule_min_points, rule_max_points,
			stage_ids, enrollment_ids, position_points, closed, poster_key
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id, created_at`

	err = r.db.QueryRowContext(ctx, query,
		c.Name, c.Sport, c.SeasonID, c.Modality, c.Doubles, c.StartDate, c.EndDate, c.MaxEntries,
		c.Rules.Gender, c.Rules.MinAge, c.Rules.MaxAge, c.Rules.MinPoints, c.Rules.MaxPoints,
		pq.Array(intsToInt64(c.StageIDs)), pq.Array(intsToInt64(c.EnrollmentIDs)),
		positionPoints, c.Closed, c.PosterKey,
	).Scan(&c.ID, &c.CreatedAt)

	return r.handleChampionshipError(err)
}

func (r *postgresChampionshipRepository) GetByID(ctx context.Context, id int) (*models.Championship, error) {
	query := `SELECT` + championshipColumns + ` FROM championships WHERE id = $1`
	c, err := scanChampionship(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrChampionshipNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *postgresChampionshipRepository) List(ctx context.Context, filter ListChampionshipsFilter) ([]models.Championship, error) {
	query := `SELECT` + championshipColumns + ` FROM championships WHERE 1=1`
	args := []interface{}{}
	argID := 1

	if filter.Sport != nil {
		query += fmt.Sprintf(" AND sport = $%d", argID)
		args = append(args, *filter.Sport)
		argID++
	}
	if filter.SeasonID != nil {
		query += fmt.Sprintf(" AND season_id = $%d", argID)
		args = append(args, *filter.SeasonID)
		argID++
	}
	if filter.Modality != nil {
		query += fmt.Sprintf(" AND modality = $%d", argID)
		args = append(args, *filter.Modality)
		argID++
	}
	if filter.Closed != nil {
		query += fmt.Sprintf(" AND closed = $%d", argID)
		args = append(args, *filter.Closed)
		argID++
	}

	query += " ORDER BY start_date DESC, created_at DESC"

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

	championships := make([]models.Championship, 0)
	for rows.Next() {
		c, scanErr := scanChampionship(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		championships = append(championships, *c)
	}
	return championships, rows.Err()
}

func (r *postgresChampionshipRepository) Update(ctx context.Context, c *models.Championship) error {
	positionPoints, err := marshalPositionPoints(c.PositionPoints)
	if err != nil {
		return err
	}
	query := `
		UPDATE championships SET
			name = $1, sport = $2, season_id = $3, modality = $4, doubles = $5,
			start_date = $6, end_date = $7, max_entries = $8,
			rule_gender = $9, rule_min_age = $10, rule_max_age = $11,
			rule_min_points = $12, rule_max_points = $13, position_points = $14
		WHERE id = $15`

	result, err := r.db.ExecContext(ctx, query,
		c.Name, c.Sport, c.SeasonID, c.Modality, c.Doubles,
		c.StartDate, c.EndDate, c.MaxEntries,
		c.Rules.Gender, c.Rules.MinAge, c.Rules.MaxAge,
		c.Rules.MinPoints, c.Rules.MaxPoints, positionPoints,
		c.ID,
	)
	if err != nil {
		return r.handleChampionshipError(err)
	}
	return checkAffectedRows(result, ErrChampionshipNotFound)
}

func (r *postgresChampionshipRepository) AppendStageID(ctx context.Context, exec SQLExecutor, championshipID, stageID int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE championships SET stage_ids = array_append(stage_ids, $1) WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, stageID, championshipID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrChampionshipNotFound)
}

func (r *postgresChampionshipRepository) AppendEnrollmentID(ctx context.Context, exec SQLExecutor, championshipID, enrollmentID int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE championships SET enrollment_ids = array_append(enrollment_ids, $1) WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, enrollmentID, championshipID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrChampionshipNotFound)
}

func (r *postgresChampionshipRepository) MarkClosed(ctx context.Context, exec SQLExecutor, championshipID int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE championships SET closed = TRUE WHERE id = $1`
	result, err := executor.ExecContext(ctx, query, championshipID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrChampionshipNotFound)
}

func (r *postgresChampionshipRepository) UpdatePosterKey(ctx context.Context, championshipID int, posterKey *string) error {
	query := `UPDATE championships SET poster_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, posterKey, championshipID)
	if err != nil {
		return fmt.Errorf("failed to update championship poster key: %w", err)
	}
	return checkAffectedRows(result, ErrChampionshipNotFound)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanChampionship(row rowScanner) (*models.Championship, error) {
	c := &models.Championship{}
	var stageIDs, enrollmentIDs pq.Int64Array
	var positionPoints []byte

	err := row.Scan(
		&c.ID, &c.Name, &c.Sport, &c.SeasonID, &c.Modality, &c.Doubles,
		&c.StartDate, &c.EndDate, &c.MaxEntries,
		&c.Rules.Gender, &c.Rules.MinAge, &c.Rules.MaxAge,
		&c.Rules.MinPoints, &c.Rules.MaxPoints,
		&stageIDs, &enrollmentIDs, &positionPoints, &c.Closed, &c.PosterKey, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.StageIDs = int64sToInt(stageIDs)
	c.EnrollmentIDs = int64sToInt(enrollmentIDs)
	if len(positionPoints) > 0 {
		table := make(map[string]int)
		if err := json.Unmarshal(positionPoints, &table); err != nil {
			return nil, fmt.Errorf("failed to decode position points table: %w", err)
		}
		c.PositionPoints = make(map[int]int, len(table))
		for k, v := range table {
			pos, convErr := strconv.Atoi(k)
			if convErr != nil {
				return nil, fmt.Errorf("invalid position key %q in points table: %w", k, convErr)
			}
			c.PositionPoints[pos] = v
		}
	}
	return c, nil
}

func marshalPositionPoints(table map[int]int) ([]byte, error) {
	if len(table) == 0 {
		return nil, nil
	}
	enc := make(map[string]int, len(table))
	for pos, pts := range table {
		enc[strconv.Itoa(pos)] = pts
	}
	data, err := json.Marshal(enc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode position points table: %w", err)
	}
	return data, nil
}

func (r *postgresChampionshipRepository) handleChampionshipError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		if pqErr.Constraint == "championships_season_id_name_key" {
			return ErrChampionshipNameConflict
		}
	}
	return err
}
