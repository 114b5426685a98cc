package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/tournament-rounds/models"
	"github.com/Dosada05/tournament-rounds/repositories"
	"github.com/Dosada05/tournament-rounds/standings"
)

type CreateTournamentInput struct {
	Name   string                `json:"name"`
	Type   models.TournamentType `json:"type"`
	Tables int                   `json:"tables"`
}

// StandingRow is a ranked standings line as served to clients.
type StandingRow struct {
	Rank     int    `json:"rank"`
	PlayerID int    `json:"player_id"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	SOS      int    `json:"sos"`
	HasBye   bool   `json:"has_bye"`
	Games    int    `json:"games"`
}

type TournamentService interface {
	Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	Get(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)
	Delete(ctx context.Context, id int) error

	RegisterPlayer(ctx context.Context, tournamentID int, name string) (*models.Player, error)

	// Start moves the tournament to active and creates round 1 atomically.
	Start(ctx context.Context, id int) (*models.Tournament, error)
	// End closes a tournament whose rounds are all played and whose winner
	// is decided. Ending mid-play returns ErrTournamentInProgress.
	End(ctx context.Context, id int) (*models.Tournament, error)

	Standings(ctx context.Context, tournamentID int) ([]StandingRow, error)
}

type tournamentService struct {
	tx             repositories.TxRunner
	tournamentRepo repositories.TournamentRepository
	playerRepo     repositories.PlayerRepository
	roundRepo      repositories.RoundRepository
	matchRepo      repositories.MatchRepository
	roundService   RoundService
	calculator     *standings.Calculator
	locks          *TournamentLockRegistry
	logger         *slog.Logger
}

func NewTournamentService(
	tx repositories.TxRunner,
	tournamentRepo repositories.TournamentRepository,
	playerRepo repositories.PlayerRepository,
	roundRepo repositories.RoundRepository,
	matchRepo repositories.MatchRepository,
	roundService RoundService,
	calculator *standings.Calculator,
	locks *TournamentLockRegistry,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tx:             tx,
		tournamentRepo: tournamentRepo,
		playerRepo:     playerRepo,
		roundRepo:      roundRepo,
		matchRepo:      matchRepo,
		roundService:   roundService,
		calculator:     calculator,
		locks:          locks,
		logger:         logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: tournament name is required", ErrInvalidState)
	}
	if !input.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown tournament type %q", ErrInvalidState, input.Type)
	}
	if input.Tables < 0 {
		return nil, fmt.Errorf("%w: tables count cannot be negative", ErrInvalidState)
	}

	t := &models.Tournament{
		Name:   name,
		Type:   input.Type,
		Status: models.StatusRegistration,
		Tables: input.Tables,
	}
	if err := s.tournamentRepo.Create(ctx, t); err != nil {
		return nil, mapRepoError(err)
	}

	s.logger.Info("tournament created",
		slog.Int("tournament_id", t.ID),
		slog.String("name", t.Name),
		slog.String("type", string(t.Type)))
	return t, nil
}

// Get loads the tournament with its players and rounds. The two child
// collections load in parallel.
func (s *tournamentService) Get(ctx context.Context, id int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapRepoError(err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		players, err := s.playerRepo.ListByTournament(gctx, nil, id)
		if err != nil {
			return mapRepoError(err)
		}
		t.Players = players
		return nil
	})
	g.Go(func() error {
		rounds, err := s.roundService.ListRounds(gctx, id)
		if err != nil {
			return err
		}
		t.Rounds = rounds
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *tournamentService) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx, filter)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return tournaments, nil
}

func (s *tournamentService) Delete(ctx context.Context, id int) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.tournamentRepo.Delete(ctx, id); err != nil {
		return mapRepoError(err)
	}
	s.logger.Info("tournament deleted", slog.Int("tournament_id", id))
	return nil
}

func (s *tournamentService) RegisterPlayer(ctx context.Context, tournamentID int, name string) (*models.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: player name is required", ErrInvalidState)
	}

	unlock := s.locks.Lock(tournamentID)
	defer unlock()

	t, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if t.Status != models.StatusRegistration {
		return nil, fmt.Errorf("%w: registration is closed for tournament %d", ErrInvalidState, tournamentID)
	}

	p := &models.Player{TournamentID: tournamentID, Name: name, Opponents: []int{}}
	if err := s.playerRepo.Create(ctx, nil, p); err != nil {
		return nil, mapRepoError(err)
	}

	s.logger.Info("player registered",
		slog.Int("tournament_id", tournamentID),
		slog.Int("player_id", p.ID),
		slog.String("name", p.Name))
	return p, nil
}

func (s *tournamentService) Start(ctx context.Context, id int) (*models.Tournament, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	var started *models.Tournament
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByID(ctx, exec, id)
		if err != nil {
			return mapRepoError(err)
		}
		if !t.Status.CanTransitionTo(models.StatusActive) {
			return fmt.Errorf("%w: cannot start a tournament in status %q", ErrInvalidState, t.Status)
		}

		count, err := s.playerRepo.CountByTournament(ctx, exec, id)
		if err != nil {
			return mapRepoError(err)
		}
		if count < 2 {
			return ErrInsufficientPlayers
		}

		if err := s.tournamentRepo.UpdateStatus(ctx, exec, id, models.StatusActive); err != nil {
			return mapRepoError(err)
		}
		t.Status = models.StatusActive

		round, err := s.roundService.CreateInitialRound(ctx, exec, t)
		if err != nil {
			return err
		}
		t.Rounds = []*models.Round{round}
		started = t
		return nil
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	s.logger.Info("tournament started", slog.Int("tournament_id", id))
	return started, nil
}

func (s *tournamentService) End(ctx context.Context, id int) (*models.Tournament, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	var ended *models.Tournament
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByID(ctx, exec, id)
		if err != nil {
			return mapRepoError(err)
		}
		if !t.Status.CanTransitionTo(models.StatusEnded) {
			return fmt.Errorf("%w: cannot end a tournament in status %q", ErrInvalidState, t.Status)
		}

		progress, err := s.roundService.Progress(ctx, exec, t)
		if err != nil {
			return err
		}
		if !progress.Complete {
			return ErrTournamentInProgress
		}

		finishedAt := time.Now().UTC()
		if err := s.tournamentRepo.Finish(ctx, exec, id, finishedAt); err != nil {
			return mapRepoError(err)
		}
		t.Status = models.StatusEnded
		t.FinishedAt = &finishedAt
		ended = t
		return nil
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	s.logger.Info("tournament ended",
		slog.Int("tournament_id", id),
		slog.Any("champion_id", ended.WinnerPlayerID))
	return ended, nil
}

func (s *tournamentService) Standings(ctx context.Context, tournamentID int) ([]StandingRow, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, mapRepoError(err)
	}

	players, err := s.playerRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	matches, err := s.matchRepo.ListTerminalByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	ranked := s.calculator.Recompute(standings.EntriesFromPlayers(players), standings.GamesFromMatches(matches))
	rows := make([]StandingRow, 0, len(ranked))
	for i, e := range ranked {
		rows = append(rows, StandingRow{
			Rank:     i + 1,
			PlayerID: e.PlayerID,
			Name:     e.Name,
			Score:    e.Score,
			SOS:      e.SOS,
			HasBye:   e.HasBye,
			Games:    len(e.Opponents),
		})
	}
	return rows, nil
}
