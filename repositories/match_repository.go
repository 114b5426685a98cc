package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-rounds/models"
)

var ErrMatchNotFound = errors.New("match not found")

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, m *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	ListByRound(ctx context.Context, exec SQLExecutor, roundID int) ([]*models.Match, error)
	// ListTerminalByTournament returns every completed or forfeited match of
	// the tournament, in round order.
	ListTerminalByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Match, error)
	SetResult(ctx context.Context, exec SQLExecutor, id int, status models.MatchStatus, result *models.MatchResult) error
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

	var result interface{}
	if m.Result != nil {
		raw, err := json.Marshal(m.Result)
		if err != nil {
			return fmt.Errorf("failed to marshal match result: %w", err)
		}
		result = raw
	}

	query := `
		INSERT INTO matches (round_id, table_number, player1_id, player2_id, result, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	return executor.QueryRowContext(ctx, query,
		m.RoundID, m.TableNumber, m.Player1ID, m.Player2ID, result, m.Status,
	).Scan(&m.ID, &m.CreatedAt)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, round_id, table_number, player1_id, player2_id, result, status, created_at
		FROM matches
		WHERE id = $1`

	m, err := scanMatch(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByRound(ctx context.Context, exec SQLExecutor, roundID int) ([]*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, round_id, table_number, player1_id, player2_id, result, status, created_at
		FROM matches
		WHERE round_id = $1
		ORDER BY table_number, id`

	return r.queryMatches(ctx, executor, query, roundID)
}

func (r *postgresMatchRepository) ListTerminalByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT m.id, m.round_id, m.table_number, m.player1_id, m.player2_id, m.result, m.status, m.created_at
		FROM matches m
		JOIN rounds r ON r.id = m.round_id
		WHERE r.tournament_id = $1 AND m.status IN ($2, $3)
		ORDER BY r.number, m.table_number, m.id`

	return r.queryMatches(ctx, executor, query, tournamentID, models.MatchCompleted, models.MatchForfeited)
}

func (r *postgresMatchRepository) SetResult(ctx context.Context, exec SQLExecutor, id int, status models.MatchStatus, result *models.MatchResult) error {
	executor := r.getExecutor(exec)

	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal match result: %w", err)
	}

	query := `UPDATE matches SET result = $1, status = $2 WHERE id = $3`
	res, err := executor.ExecContext(ctx, query, raw, status, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(res, ErrMatchNotFound)
}

func (r *postgresMatchRepository) queryMatches(ctx context.Context, executor SQLExecutor, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

func scanMatch(row rowScanner) (*models.Match, error) {
	m := &models.Match{}
	var result []byte
	if err := row.Scan(
		&m.ID, &m.RoundID, &m.TableNumber, &m.Player1ID, &m.Player2ID, &result, &m.Status, &m.CreatedAt,
	); err != nil {
		return nil, err
	}
	if len(result) > 0 {
		parsed, err := models.ParseMatchResult(result)
		if err != nil {
			return nil, fmt.Errorf("match %d: %w", m.ID, err)
		}
		m.Result = parsed
	}
	return m, nil
}
