package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/clubpadel/championship-system/models"
	"github.com/lib/pq"
)

var (
	ErrPlayerNotFound      = errors.New("player not found")
	ErrPlayerEmailConflict = errors.New("player email conflict")
)

type PlayerRepository interface {
	Create(ctx context.Context, player *models.Player) error
	GetByID(ctx context.Context, id int) (*models.Player, error)
	GetByEmail(ctx context.Context, email string) (*models.Player, error)
	Update(ctx context.Context, player *models.Player) error
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

func (r *postgresPlayerRepository) Create(ctx context.Context, player *models.Player) error {
	query := `
		INSERT INTO players (first_name, last_name, email, password_hash, role, gender, birth_date, license_expiry)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		player.FirstName,
		player.LastName,
		player.Email,
		player.PasswordHash,
		player.Role,
		player.Gender,
		player.BirthDate,
		player.LicenseExpiry,
	).Scan(&player.ID, &player.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			if pqErr.Constraint == "players_email_key" {
				return ErrPlayerEmailConflict
			}
		}
		return err
	}
	return nil
}

func (r *postgresPlayerRepository) GetByID(ctx context.Context, id int) (*models.Player, error) {
	query := `
		SELECT id, first_name, last_name, email, password_hash, role, gender, birth_date, license_expiry, created_at
		FROM players
		WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresPlayerRepository) GetByEmail(ctx context.Context, email string) (*models.Player, error) {
	query := `
		SELECT id, first_name, last_name, email, password_hash, role, gender, birth_date, license_expiry, created_at
		FROM players
		WHERE email = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *postgresPlayerRepository) scanOne(row *sql.Row) (*models.Player, error) {
	p := &models.Player{}
	err := row.Scan(
		&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.PasswordHash,
		&p.Role, &p.Gender, &p.BirthDate, &p.LicenseExpiry, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *postgresPlayerRepository) Update(ctx context.Context, player *models.Player) error {
	query := `
		UPDATE players SET
			first_name = $1, last_name = $2, email = $3, password_hash = $4,
			role = $5, gender = $6, birth_date = $7, license_expiry = $8
		WHERE id = $9`

	result, err := r.db.ExecContext(ctx, query,
		player.FirstName, player.LastName, player.Email, player.PasswordHash,
		player.Role, player.Gender, player.BirthDate, player.LicenseExpiry,
		player.ID,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			if pqErr.Constraint == "players_email_key" {
				return ErrPlayerEmailConflict
			}
		}
		return err
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}
