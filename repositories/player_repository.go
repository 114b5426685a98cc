package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-rounds/models"
)

var (
	ErrPlayerNotFound     = errors.New("player not found")
	ErrPlayerNameConflict = errors.New("player name already registered in this tournament")
)

type PlayerRepository interface {
	Create(ctx context.Context, exec SQLExecutor, p *models.Player) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Player, error)
	// ListByTournament returns players in registration order and assigns
	// the 1-based Seed accordingly.
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Player, error)
	UpdateStanding(ctx context.Context, exec SQLExecutor, p *models.Player) error
	CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

func (r *postgresPlayerRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresPlayerRepository) Create(ctx context.Context, exec SQLExecutor, p *models.Player) error {
	executor := r.getExecutor(exec)
	opponents, err := marshalOpponents(p.Opponents)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO players (tournament_id, name, score, opponents, has_bye)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err = executor.QueryRowContext(ctx, query,
		p.TournamentID, p.Name, p.Score, opponents, p.HasBye,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "players_tournament_name_key") {
			return ErrPlayerNameConflict
		}
		return err
	}
	return nil
}

func (r *postgresPlayerRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Player, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_id, name, score, opponents, has_bye, created_at
		FROM players
		WHERE id = $1`

	p := &models.Player{}
	var opponents []byte
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.TournamentID, &p.Name, &p.Score, &opponents, &p.HasBye, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	if p.Opponents, err = unmarshalOpponents(opponents); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *postgresPlayerRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Player, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_id, name, score, opponents, has_bye, created_at
		FROM players
		WHERE tournament_id = $1
		ORDER BY id`

	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := make([]*models.Player, 0)
	for rows.Next() {
		p := &models.Player{}
		var opponents []byte
		if scanErr := rows.Scan(
			&p.ID, &p.TournamentID, &p.Name, &p.Score, &opponents, &p.HasBye, &p.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		if p.Opponents, err = unmarshalOpponents(opponents); err != nil {
			return nil, err
		}
		p.Seed = len(players) + 1
		players = append(players, p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return players, nil
}

func (r *postgresPlayerRepository) UpdateStanding(ctx context.Context, exec SQLExecutor, p *models.Player) error {
	executor := r.getExecutor(exec)
	opponents, err := marshalOpponents(p.Opponents)
	if err != nil {
		return err
	}

	query := `UPDATE players SET score = $1, opponents = $2, has_bye = $3 WHERE id = $4`
	result, err := executor.ExecContext(ctx, query, p.Score, opponents, p.HasBye, p.ID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	err := executor.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM players WHERE tournament_id = $1`, tournamentID,
	).Scan(&count)
	return count, err
}

func marshalOpponents(opponents []int) ([]byte, error) {
	if opponents == nil {
		opponents = []int{}
	}
	raw, err := json.Marshal(opponents)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal opponent set: %w", err)
	}
	return raw, nil
}

func unmarshalOpponents(raw []byte) ([]int, error) {
	if len(raw) == 0 {
		return []int{}, nil
	}
	var opponents []int
	if err := json.Unmarshal(raw, &opponents); err != nil {
		return nil, fmt.Errorf("failed to unmarshal opponent set: %w", err)
	}
	return opponents, nil
}
