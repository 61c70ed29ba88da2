package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/clubpadel/championship-system/models"
)

var (
	ErrStageNotFound = errors.New("stage not found")
	// ErrStageVersionConflict возникает, когда документ этапа изменился
	// между чтением и записью; вызывающий перечитывает и повторяет.
	ErrStageVersionConflict = errors.New("stage document version conflict")
)

type StageRepository interface {
	Create(ctx context.Context, exec SQLExecutor, stage *models.Stage) error
	GetByID(ctx context.Context, id int) (*models.Stage, error)
	ListByChampionship(ctx context.Context, championshipID int) ([]models.Stage, error)
	// UpdateDocument перезаписывает документ этапа по схеме compare-and-swap:
	// запись проходит только при совпадении версии, версия инкрементируется.
	UpdateDocument(ctx context.Context, exec SQLExecutor, stage *models.Stage) error
}

type postgresStageRepository struct {
	db *sql.DB
}

func NewPostgresStageRepository(db *sql.DB) StageRepository {
	return &postgresStageRepository{db: db}
}

func (r *postgresStageRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresStageRepository) Create(ctx context.Context, exec SQLExecutor, stage *models.Stage) error {
	executor := r.getExecutor(exec)
	data, err := json.Marshal(stage.Document)
	if err != nil {
		return fmt.Errorf("failed to encode stage document: %w", err)
	}
	query := `
		INSERT INTO stages (championship_id, kind, data, version)
		VALUES ($1, $2, $3, 1)
		RETURNING id`
	if err := executor.QueryRowContext(ctx, query, stage.ChampionshipID, stage.Kind, data).Scan(&stage.ID); err != nil {
		return err
	}
	stage.Version = 1
	return nil
}

func (r *postgresStageRepository) GetByID(ctx context.Context, id int) (*models.Stage, error) {
	query := `SELECT id, championship_id, kind, data, version FROM stages WHERE id = $1`

	stage := &models.Stage{}
	var data []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&stage.ID, &stage.ChampionshipID, &stage.Kind, &data, &stage.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStageNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(data, &stage.Document); err != nil {
		return nil, fmt.Errorf("failed to decode stage %d document: %w", id, err)
	}
	return stage, nil
}

func (r *postgresStageRepository) ListByChampionship(ctx context.Context, championshipID int) ([]models.Stage, error) {
	query := `SELECT id, championship_id, kind, data, version FROM stages WHERE championship_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, championshipID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stages := make([]models.Stage, 0)
	for rows.Next() {
		var stage models.Stage
		var data []byte
		if scanErr := rows.Scan(&stage.ID, &stage.ChampionshipID, &stage.Kind, &data, &stage.Version); scanErr != nil {
			return nil, scanErr
		}
		if err := json.Unmarshal(data, &stage.Document); err != nil {
			return nil, fmt.Errorf("failed to decode stage %d document: %w", stage.ID, err)
		}
		stages = append(stages, stage)
	}
	return stages, rows.Err()
}

func (r *postgresStageRepository) UpdateDocument(ctx context.Context, exec SQLExecutor, stage *models.Stage) error {
	executor := r.getExecutor(exec)
	data, err := json.Marshal(stage.Document)
	if err != nil {
		return fmt.Errorf("failed to encode stage document: %w", err)
	}
	query := `
		UPDATE stages SET data = $1, version = version + 1
		WHERE id = $2 AND version = $3`

	result, err := executor.ExecContext(ctx, query, data, stage.ID, stage.Version)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		// Либо этап исчез, либо его версия ушла вперёд.
		if _, getErr := r.GetByID(ctx, stage.ID); getErr != nil {
			return getErr
		}
		return ErrStageVersionConflict
	}
	stage.Version++
	return nil
}
