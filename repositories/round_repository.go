package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-rounds/models"
)

var ErrRoundNotFound = errors.New("round not found")

type RoundRepository interface {
	Create(ctx context.Context, exec SQLExecutor, round *models.Round) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Round, error)
	// ListByTournament returns rounds ordered by their number.
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Round, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.RoundStatus) error
}

type postgresRoundRepository struct {
	db *sql.DB
}

func NewPostgresRoundRepository(db *sql.DB) RoundRepository {
	return &postgresRoundRepository{db: db}
}

func (r *postgresRoundRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresRoundRepository) Create(ctx context.Context, exec SQLExecutor, round *models.Round) error {
	executor := r.getExecutor(exec)
	if err := round.Pairings.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(&round.Pairings)
	if err != nil {
		return fmt.Errorf("failed to marshal pairing payload: %w", err)
	}

	query := `
		INSERT INTO rounds (tournament_id, number, round_type, status, data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	return executor.QueryRowContext(ctx, query,
		round.TournamentID, round.Number, round.Type, round.Status, payload,
	).Scan(&round.ID, &round.CreatedAt)
}

func (r *postgresRoundRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Round, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_id, number, round_type, status, data, created_at
		FROM rounds
		WHERE id = $1`

	round, err := scanRound(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoundNotFound
		}
		return nil, err
	}
	return round, nil
}

func (r *postgresRoundRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Round, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_id, number, round_type, status, data, created_at
		FROM rounds
		WHERE tournament_id = $1
		ORDER BY number`

	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rounds := make([]*models.Round, 0)
	for rows.Next() {
		round, scanErr := scanRound(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		rounds = append(rounds, round)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return rounds, nil
}

func (r *postgresRoundRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.RoundStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE rounds SET status = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRoundNotFound)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRound(row rowScanner) (*models.Round, error) {
	round := &models.Round{}
	var payload []byte
	if err := row.Scan(
		&round.ID, &round.TournamentID, &round.Number, &round.Type, &round.Status, &payload, &round.CreatedAt,
	); err != nil {
		return nil, err
	}
	pairings, err := models.ParseRoundPairings(payload)
	if err != nil {
		return nil, fmt.Errorf("round %d: %w", round.ID, err)
	}
	round.Pairings = *pairings
	return round, nil
}
