package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/clubpadel/championship-system/models"
	"github.com/lib/pq"
)

var (
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	// ErrEnrollmentConflict — вторая запись той же пары (игрок, чемпионат).
	ErrEnrollmentConflict = errors.New("player is already enrolled in this championship")
)

type EnrollmentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, enrollment *models.Enrollment) error
	GetByID(ctx context.Context, id int) (*models.Enrollment, error)
	GetByPlayerAndChampionship(ctx context.Context, playerID, championshipID int) (*models.Enrollment, error)
	ListByChampionship(ctx context.Context, championshipID int) ([]models.Enrollment, error)
	Update(ctx context.Context, exec SQLExecutor, enrollment *models.Enrollment) error
	AppendMatchID(ctx context.Context, exec SQLExecutor, enrollmentID, matchID int) error
	RemoveMatchIDs(ctx context.Context, exec SQLExecutor, championshipID int, matchIDs []int) error
}

type postgresEnrollmentRepository struct {
	db *sql.DB
}

func NewPostgresEnrollmentRepository(db *sql.DB) EnrollmentRepository {
	return &postgresEnrollmentRepository{db: db}
}

func (r *postgresEnrollmentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const enrollmentColumns = `
	id, player_id, championship_id, stage_id, group_idx, slot_idx,
	invite_id, invitee_id, invite_state, invite_sent_at, invite_responded_at,
	match_ids, created_at`

func (r *postgresEnrollmentRepository) Create(ctx context.Context, exec SQLExecutor, e *models.Enrollment) error {
	executor := r.getExecutor(exec)

	var inviteID, inviteState interface{}
	var inviteeID interface{}
	var sentAt, respondedAt interface{}
	if e.Invite != nil {
		inviteID = e.Invite.ID
		inviteeID = e.Invite.TargetID
		inviteState = string(e.Invite.State)
		sentAt = e.Invite.SentAt
		respondedAt = e.Invite.RespondedAt
	}

	query := `
		INSERT INTO enrollments (
			player_id, championship_id, stage_id, group_idx, slot_idx,
			invite_id, invitee_id, invite_state, invite_sent_at, invite_responded_at, match_ids
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		e.PlayerID, e.ChampionshipID, e.StageID, e.GroupIdx, e.SlotIdx,
		inviteID, inviteeID, inviteState, sentAt, respondedAt,
		pq.Array(intsToInt64(e.MatchIDs)),
	).Scan(&e.ID, &e.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			if pqErr.Constraint == "enrollments_player_id_championship_id_key" {
				return ErrEnrollmentConflict
			}
		}
		return err
	}
	return nil
}

func (r *postgresEnrollmentRepository) GetByID(ctx context.Context, id int) (*models.Enrollment, error) {
	query := `SELECT` + enrollmentColumns + ` FROM enrollments WHERE id = $1`
	e, err := scanEnrollment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *postgresEnrollmentRepository) GetByPlayerAndChampionship(ctx context.Context, playerID, championshipID int) (*models.Enrollment, error) {
	query := `SELECT` + enrollmentColumns + ` FROM enrollments WHERE player_id = $1 AND championship_id = $2`
	e, err := scanEnrollment(r.db.QueryRowContext(ctx, query, playerID, championshipID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *postgresEnrollmentRepository) ListByChampionship(ctx context.Context, championshipID int) ([]models.Enrollment, error) {
	query := `SELECT` + enrollmentColumns + ` FROM enrollments WHERE championship_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, championshipID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	enrollments := make([]models.Enrollment, 0)
	for rows.Next() {
		e, scanErr := scanEnrollment(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		enrollments = append(enrollments, *e)
	}
	return enrollments, rows.Err()
}

func (r *postgresEnrollmentRepository) Update(ctx context.Context, exec SQLExecutor, e *models.Enrollment) error {
	executor := r.getExecutor(exec)

	var inviteID, inviteState interface{}
	var inviteeID interface{}
	var sentAt, respondedAt interface{}
	if e.Invite != nil {
		inviteID = e.Invite.ID
		inviteeID = e.Invite.TargetID
		inviteState = string(e.Invite.State)
		sentAt = e.Invite.SentAt
		respondedAt = e.Invite.RespondedAt
	}

	query := `
		UPDATE enrollments SET
			stage_id = $1, group_idx = $2, slot_idx = $3,
			invite_id = $4, invitee_id = $5, invite_state = $6,
			invite_sent_at = $7, invite_responded_at = $8, match_ids = $9
		WHERE id = $10`

	result, err := executor.ExecContext(ctx, query,
		e.StageID, e.GroupIdx, e.SlotIdx,
		inviteID, inviteeID, inviteState, sentAt, respondedAt,
		pq.Array(intsToInt64(e.MatchIDs)),
		e.ID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrEnrollmentNotFound)
}

func (r *postgresEnrollmentRepository) AppendMatchID(ctx context.Context, exec SQLExecutor, enrollmentID, matchID int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE enrollments SET match_ids = array_append(match_ids, $1) WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, matchID, enrollmentID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrEnrollmentNotFound)
}

// RemoveMatchIDs вычищает идентификаторы удалённых матчей из всех записей
// чемпионата разом (нормализация перед стартом).
func (r *postgresEnrollmentRepository) RemoveMatchIDs(ctx context.Context, exec SQLExecutor, championshipID int, matchIDs []int) error {
	if len(matchIDs) == 0 {
		return nil
	}
	executor := r.getExecutor(exec)
	query := `
		UPDATE enrollments
		SET match_ids = (
			SELECT COALESCE(array_agg(id), '{}')
			FROM unnest(match_ids) AS id
			WHERE id <> ALL($1)
		)
		WHERE championship_id = $2 AND match_ids && $1`
	_, err := executor.ExecContext(ctx, query, pq.Array(intsToInt64(matchIDs)), championshipID)
	return err
}

func scanEnrollment(row rowScanner) (*models.Enrollment, error) {
	e := &models.Enrollment{}
	var matchIDs pq.Int64Array
	var inviteID, inviteState sql.NullString
	var inviteeID sql.NullInt64
	var sentAt, respondedAt sql.NullTime

	err := row.Scan(
		&e.ID, &e.PlayerID, &e.ChampionshipID, &e.StageID, &e.GroupIdx, &e.SlotIdx,
		&inviteID, &inviteeID, &inviteState, &sentAt, &respondedAt,
		&matchIDs, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.MatchIDs = int64sToInt(matchIDs)
	if inviteID.Valid {
		inv := &models.Invitation{
			ID:        inviteID.String,
			InviterID: e.PlayerID,
			TargetID:  int(inviteeID.Int64),
			State:     models.InviteState(inviteState.String),
		}
		if sentAt.Valid {
			inv.SentAt = sentAt.Time
		}
		if respondedAt.Valid {
			t := respondedAt.Time
			inv.RespondedAt = &t
		}
		e.Invite = inv
	}
	return e, nil
}
