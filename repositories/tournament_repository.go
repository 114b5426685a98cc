package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/tournament-rounds/models"
)

var ErrTournamentNotFound = errors.New("tournament not found")

type ListTournamentsFilter struct {
	Status *models.TournamentStatus
	Limit  int
	Offset int
}

type TournamentRepository interface {
	Create(ctx context.Context, t *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error
	SetWinner(ctx context.Context, exec SQLExecutor, id int, winnerPlayerID *int) error
	Finish(ctx context.Context, exec SQLExecutor, id int, finishedAt time.Time) error
	Delete(ctx context.Context, id int) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (name, tournament_type, status, tables)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	return r.db.QueryRowContext(ctx, query,
		t.Name, t.Type, t.Status, t.Tables,
	).Scan(&t.ID, &t.CreatedAt)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, name, tournament_type, status, tables, winner_player_id, created_at, finished_at
		FROM tournaments
		WHERE id = $1`

	t := &models.Tournament{}
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.Name, &t.Type, &t.Status, &t.Tables, &t.WinnerPlayerID, &t.CreatedAt, &t.FinishedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	query := `
		SELECT id, name, tournament_type, status, tables, winner_player_id, created_at, finished_at
		FROM tournaments
		WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}

	query += " ORDER BY created_at DESC, id DESC"

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

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if scanErr := rows.Scan(
			&t.ID, &t.Name, &t.Type, &t.Status, &t.Tables, &t.WinnerPlayerID, &t.CreatedAt, &t.FinishedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET status = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) SetWinner(ctx context.Context, exec SQLExecutor, id int, winnerPlayerID *int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET winner_player_id = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, winnerPlayerID, id)
	if err != nil {
		return fmt.Errorf("failed to set tournament winner: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Finish(ctx context.Context, exec SQLExecutor, id int, finishedAt time.Time) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET status = $1, finished_at = $2 WHERE id = $3`
	result, err := executor.ExecContext(ctx, query, models.StatusEnded, finishedAt, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, id int) error {
	// Players, rounds and matches cascade at the schema level.
	query := `DELETE FROM tournaments WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}
