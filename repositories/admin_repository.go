package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/tournament-rounds/models"
)

var (
	ErrAdminNotFound         = errors.New("administrator not found")
	ErrAdminUsernameConflict = errors.New("administrator username is already taken")
	ErrRegCodeNotFound       = errors.New("registration code not found")
)

type AdminRepository interface {
	CreateAdmin(ctx context.Context, a *models.Administrator) error
	GetByUsername(ctx context.Context, username string) (*models.Administrator, error)
	CreateRegCode(ctx context.Context, c *models.RegCode) error
	// ConsumeRegCode deletes the code and returns it: codes are one-shot.
	ConsumeRegCode(ctx context.Context, code string) (*models.RegCode, error)
}

type postgresAdminRepository struct {
	db *sql.DB
}

func NewPostgresAdminRepository(db *sql.DB) AdminRepository {
	return &postgresAdminRepository{db: db}
}

func (r *postgresAdminRepository) CreateAdmin(ctx context.Context, a *models.Administrator) error {
	query := `
		INSERT INTO administrators (username, password_hash, role)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, a.Username, a.PasswordHash, a.Role).
		Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "") {
			return ErrAdminUsernameConflict
		}
		return err
	}
	return nil
}

func (r *postgresAdminRepository) GetByUsername(ctx context.Context, username string) (*models.Administrator, error) {
	query := `
		SELECT id, username, password_hash, role, created_at
		FROM administrators
		WHERE username = $1`

	a := &models.Administrator{}
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&a.ID, &a.Username, &a.PasswordHash, &a.Role, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAdminNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *postgresAdminRepository) CreateRegCode(ctx context.Context, c *models.RegCode) error {
	query := `
		INSERT INTO reg_codes (code, role)
		VALUES ($1, $2)
		RETURNING created_at`

	return r.db.QueryRowContext(ctx, query, c.Code, c.Role).Scan(&c.CreatedAt)
}

func (r *postgresAdminRepository) ConsumeRegCode(ctx context.Context, code string) (*models.RegCode, error) {
	query := `
		DELETE FROM reg_codes
		WHERE code = $1
		RETURNING code, role, created_at`

	c := &models.RegCode{}
	err := r.db.QueryRowContext(ctx, query, code).Scan(&c.Code, &c.Role, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegCodeNotFound
		}
		return nil, err
	}
	return c, nil
}
