package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/tournament-rounds/brackets"
	"github.com/Dosada05/tournament-rounds/models"
	"github.com/Dosada05/tournament-rounds/pairing"
	"github.com/Dosada05/tournament-rounds/repositories"
	"github.com/Dosada05/tournament-rounds/standings"
)

// memStore is a shared in-memory backing for the repository fakes. It keeps
// the same not-found and conflict semantics as the postgres implementations
// so services can be tested without a database.
type memStore struct {
	mu          sync.Mutex
	nextID      int
	tournaments map[int]*models.Tournament
	players     map[int]*models.Player
	rounds      map[int]*models.Round
	matches     map[int]*models.Match
}

func newMemStore() *memStore {
	return &memStore{
		tournaments: make(map[int]*models.Tournament),
		players:     make(map[int]*models.Player),
		rounds:      make(map[int]*models.Round),
		matches:     make(map[int]*models.Match),
	}
}

func (s *memStore) id() int {
	s.nextID++
	return s.nextID
}

type memTxRunner struct{}

func (memTxRunner) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

type memTournamentRepo struct{ s *memStore }

func (r *memTournamentRepo) Create(ctx context.Context, t *models.Tournament) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.ID = r.s.id()
	t.CreatedAt = time.Now()
	stored := *t
	r.s.tournaments[t.ID] = &stored
	return nil
}

func (r *memTournamentRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *memTournamentRepo) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.Tournament, 0)
	for _, t := range r.s.tournaments {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *memTournamentRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	return nil
}

func (r *memTournamentRepo) SetWinner(ctx context.Context, exec repositories.SQLExecutor, id int, winnerPlayerID *int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.WinnerPlayerID = winnerPlayerID
	return nil
}

func (r *memTournamentRepo) Finish(ctx context.Context, exec repositories.SQLExecutor, id int, finishedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = models.StatusEnded
	t.FinishedAt = &finishedAt
	return nil
}

func (r *memTournamentRepo) Delete(ctx context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tournaments[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(r.s.tournaments, id)
	for pid, p := range r.s.players {
		if p.TournamentID == id {
			delete(r.s.players, pid)
		}
	}
	for rid, round := range r.s.rounds {
		if round.TournamentID != id {
			continue
		}
		for mid, m := range r.s.matches {
			if m.RoundID == rid {
				delete(r.s.matches, mid)
			}
		}
		delete(r.s.rounds, rid)
	}
	return nil
}

type memPlayerRepo struct{ s *memStore }

func (r *memPlayerRepo) Create(ctx context.Context, exec repositories.SQLExecutor, p *models.Player) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.players {
		if existing.TournamentID == p.TournamentID && existing.Name == p.Name {
			return repositories.ErrPlayerNameConflict
		}
	}
	p.ID = r.s.id()
	p.CreatedAt = time.Now()
	stored := *p
	r.s.players[p.ID] = &stored
	return nil
}

func (r *memPlayerRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Player, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.players[id]
	if !ok {
		return nil, repositories.ErrPlayerNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *memPlayerRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.Player, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Player, 0)
	for _, p := range r.s.players {
		if p.TournamentID == tournamentID {
			copied := *p
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	for i, p := range out {
		p.Seed = i + 1
	}
	return out, nil
}

func (r *memPlayerRepo) UpdateStanding(ctx context.Context, exec repositories.SQLExecutor, p *models.Player) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.players[p.ID]
	if !ok {
		return repositories.ErrPlayerNotFound
	}
	stored.Score = p.Score
	stored.Opponents = append([]int(nil), p.Opponents...)
	stored.HasBye = p.HasBye
	return nil
}

func (r *memPlayerRepo) CountByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, p := range r.s.players {
		if p.TournamentID == tournamentID {
			count++
		}
	}
	return count, nil
}

type memRoundRepo struct{ s *memStore }

func (r *memRoundRepo) Create(ctx context.Context, exec repositories.SQLExecutor, round *models.Round) error {
	if err := round.Pairings.Validate(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	round.ID = r.s.id()
	round.CreatedAt = time.Now()
	stored := *round
	stored.Matches = nil
	r.s.rounds[round.ID] = &stored
	return nil
}

func (r *memRoundRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Round, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	round, ok := r.s.rounds[id]
	if !ok {
		return nil, repositories.ErrRoundNotFound
	}
	copied := *round
	return &copied, nil
}

func (r *memRoundRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.Round, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Round, 0)
	for _, round := range r.s.rounds {
		if round.TournamentID == tournamentID {
			copied := *round
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r *memRoundRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.RoundStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	round, ok := r.s.rounds[id]
	if !ok {
		return repositories.ErrRoundNotFound
	}
	round.Status = status
	return nil
}

type memMatchRepo struct{ s *memStore }

func (r *memMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m.ID = r.s.id()
	m.CreatedAt = time.Now()
	stored := *m
	r.s.matches[m.ID] = &stored
	return nil
}

func (r *memMatchRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	copied := *m
	return &copied, nil
}

func (r *memMatchRepo) ListByRound(ctx context.Context, exec repositories.SQLExecutor, roundID int) ([]*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Match, 0)
	for _, m := range r.s.matches {
		if m.RoundID == roundID {
			copied := *m
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TableNumber != out[j].TableNumber {
			return out[i].TableNumber < out[j].TableNumber
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memMatchRepo) ListTerminalByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Match, 0)
	for _, m := range r.s.matches {
		if !m.Status.Terminal() {
			continue
		}
		round, ok := r.s.rounds[m.RoundID]
		if !ok || round.TournamentID != tournamentID {
			continue
		}
		copied := *m
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := r.s.rounds[out[i].RoundID], r.s.rounds[out[j].RoundID]
		if ri.Number != rj.Number {
			return ri.Number < rj.Number
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memMatchRepo) SetResult(ctx context.Context, exec repositories.SQLExecutor, id int, status models.MatchStatus, result *models.MatchResult) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.Status = status
	if result != nil {
		copied := *result
		m.Result = &copied
	}
	return nil
}

// testEnv wires the services over the in-memory repositories, mirroring the
// production composition in cmd/main.go.
type testEnv struct {
	store       *memStore
	tournaments TournamentService
	rounds      RoundService
}

func newTestEnv() *testEnv {
	store := newMemStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tournamentRepo := &memTournamentRepo{s: store}
	playerRepo := &memPlayerRepo{s: store}
	roundRepo := &memRoundRepo{s: store}
	matchRepo := &memMatchRepo{s: store}

	locks := NewTournamentLockRegistry()
	calculator := standings.NewCalculator(standings.DefaultPolicy())
	pairer := pairing.NewEngine(pairing.Config{AllowRepeats: true})
	bracket := brackets.NewSingleElimination()

	roundService := NewRoundService(
		memTxRunner{}, tournamentRepo, playerRepo, roundRepo, matchRepo,
		calculator, pairer, bracket, locks, logger,
	)
	tournamentService := NewTournamentService(
		memTxRunner{}, tournamentRepo, playerRepo, roundRepo, matchRepo,
		roundService, calculator, locks, logger,
	)

	return &testEnv{
		store:       store,
		tournaments: tournamentService,
		rounds:      roundService,
	}
}
