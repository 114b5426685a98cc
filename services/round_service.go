package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/bits"

	"github.com/Dosada05/tournament-rounds/brackets"
	"github.com/Dosada05/tournament-rounds/models"
	"github.com/Dosada05/tournament-rounds/pairing"
	"github.com/Dosada05/tournament-rounds/repositories"
	"github.com/Dosada05/tournament-rounds/standings"
)

// finalPoolLimit caps the Advanced final stage at an 8-player bracket;
// smaller tournaments take the largest bracket their player count allows.
const finalPoolLimit = 8

// RoundOutcome reports what a recorded result caused: just a stored match,
// a closed round plus its successor, or a finished tournament.
type RoundOutcome struct {
	Match              *models.Match `json:"match"`
	RoundCompleted     bool          `json:"round_completed"`
	NextRound          *models.Round `json:"next_round,omitempty"`
	TournamentComplete bool          `json:"tournament_complete"`
	ChampionID         *int          `json:"champion_id,omitempty"`
}

// Progress summarizes how far a tournament has advanced. Complete means no
// further rounds are needed and End may be called.
type Progress struct {
	SimpleRoundsPlanned int  `json:"simple_rounds_planned"`
	SimpleRoundsDone    int  `json:"simple_rounds_done"`
	Complete            bool `json:"complete"`
	ChampionID          *int `json:"champion_id,omitempty"`
}

type RoundService interface {
	RecordResult(ctx context.Context, matchID int, result models.MatchResult) (*RoundOutcome, error)
	ForfeitMatch(ctx context.Context, matchID int, winnerID int) (*RoundOutcome, error)
	ListRounds(ctx context.Context, tournamentID int) ([]*models.Round, error)

	// CreateInitialRound produces round 1 inside the caller's transaction.
	// Invoked by the tournament manager when a tournament starts.
	CreateInitialRound(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament) (*models.Round, error)

	// Progress inspects the tournament without mutating it.
	Progress(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament) (*Progress, error)
}

type roundService struct {
	tx             repositories.TxRunner
	tournamentRepo repositories.TournamentRepository
	playerRepo     repositories.PlayerRepository
	roundRepo      repositories.RoundRepository
	matchRepo      repositories.MatchRepository
	calculator     *standings.Calculator
	pairer         *pairing.Engine
	bracket        brackets.Engine
	locks          *TournamentLockRegistry
	logger         *slog.Logger
}

func NewRoundService(
	tx repositories.TxRunner,
	tournamentRepo repositories.TournamentRepository,
	playerRepo repositories.PlayerRepository,
	roundRepo repositories.RoundRepository,
	matchRepo repositories.MatchRepository,
	calculator *standings.Calculator,
	pairer *pairing.Engine,
	bracket brackets.Engine,
	locks *TournamentLockRegistry,
	logger *slog.Logger,
) RoundService {
	return &roundService{
		tx:             tx,
		tournamentRepo: tournamentRepo,
		playerRepo:     playerRepo,
		roundRepo:      roundRepo,
		matchRepo:      matchRepo,
		calculator:     calculator,
		pairer:         pairer,
		bracket:        bracket,
		locks:          locks,
		logger:         logger,
	}
}

func (s *roundService) RecordResult(ctx context.Context, matchID int, result models.MatchResult) (*RoundOutcome, error) {
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResult, err)
	}
	return s.finishMatch(ctx, matchID, models.MatchCompleted, result)
}

func (s *roundService) ForfeitMatch(ctx context.Context, matchID int, winnerID int) (*RoundOutcome, error) {
	if winnerID <= 0 {
		return nil, fmt.Errorf("%w: a forfeit must name the advancing player", ErrInvalidResult)
	}
	result := models.MatchResult{WinnerID: &winnerID}
	return s.finishMatch(ctx, matchID, models.MatchForfeited, result)
}

// finishMatch applies one terminal result. The completion check and any
// follow-up round creation happen synchronously inside the same transaction,
// so two concurrent submissions can never both close the round.
func (s *roundService) finishMatch(ctx context.Context, matchID int, status models.MatchStatus, result models.MatchResult) (*RoundOutcome, error) {
	tournamentID, err := s.tournamentIDForMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(tournamentID)
	defer unlock()

	var outcome *RoundOutcome
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		match, err := s.matchRepo.GetByID(ctx, exec, matchID)
		if err != nil {
			return mapRepoError(err)
		}
		round, err := s.roundRepo.GetByID(ctx, exec, match.RoundID)
		if err != nil {
			return mapRepoError(err)
		}
		tournament, err := s.tournamentRepo.GetByID(ctx, exec, round.TournamentID)
		if err != nil {
			return mapRepoError(err)
		}

		if round.Status != models.RoundPending {
			return ErrRoundClosed
		}
		if match.Status != models.MatchScheduled {
			return fmt.Errorf("%w: match %d is already %s", ErrInvalidState, match.ID, match.Status)
		}
		if match.IsBye() {
			return fmt.Errorf("%w: a bye completes automatically", ErrInvalidState)
		}
		if err := validateResultFor(match, round, &result); err != nil {
			return err
		}

		if err := s.matchRepo.SetResult(ctx, exec, match.ID, status, &result); err != nil {
			return mapRepoError(err)
		}
		match.Status = status
		match.Result = &result

		outcome, err = s.afterTerminal(ctx, exec, tournament, round)
		if err != nil {
			return err
		}
		outcome.Match = match
		return nil
	})
	if err != nil {
		return nil, mapRepoError(err)
	}
	return outcome, nil
}

func (s *roundService) tournamentIDForMatch(ctx context.Context, matchID int) (int, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return 0, mapRepoError(err)
	}
	round, err := s.roundRepo.GetByID(ctx, nil, match.RoundID)
	if err != nil {
		return 0, mapRepoError(err)
	}
	return round.TournamentID, nil
}

func validateResultFor(match *models.Match, round *models.Round, result *models.MatchResult) error {
	if result.WinnerID != nil && !match.HasPlayer(*result.WinnerID) {
		return fmt.Errorf("%w: winner %d does not play in match %d", ErrInvalidResult, *result.WinnerID, match.ID)
	}
	if round.Type == models.RoundFinal && result.WinnerID == nil {
		return fmt.Errorf("%w: elimination matches cannot end in a draw", ErrInvalidResult)
	}
	return nil
}

// afterTerminal recomputes standings, detects round completion and advances
// the tournament: another simple round, the next bracket round, or nothing
// more to play.
func (s *roundService) afterTerminal(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, round *models.Round) (*RoundOutcome, error) {
	ranked, players, err := s.recomputeStandings(ctx, exec, t.ID)
	if err != nil {
		return nil, err
	}

	matches, err := s.matchRepo.ListByRound(ctx, exec, round.ID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	for _, m := range matches {
		if !m.Status.Terminal() {
			return &RoundOutcome{}, nil
		}
	}

	if err := s.roundRepo.UpdateStatus(ctx, exec, round.ID, models.RoundDone); err != nil {
		return nil, mapRepoError(err)
	}
	round.Status = models.RoundDone
	s.logger.Info("round completed",
		slog.Int("tournament_id", t.ID),
		slog.Int("round", round.Number),
		slog.String("type", string(round.Type)))

	outcome := &RoundOutcome{RoundCompleted: true}
	if err := s.advance(ctx, exec, t, round, ranked, len(players), outcome); err != nil {
		return nil, err
	}
	return outcome, nil
}

func (s *roundService) advance(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, closed *models.Round, ranked []*standings.Entry, playerCount int, outcome *RoundOutcome) error {
	if closed.Type == models.RoundFinal {
		winners, err := s.finalRoundWinners(ctx, exec, closed)
		if err != nil {
			return err
		}
		if len(winners) == 1 {
			return s.crown(ctx, exec, t, winners[0], outcome)
		}
		bms, err := s.bracket.NextRound(winners)
		if err != nil {
			return err
		}
		next, err := s.persistBracketRound(ctx, exec, t, closed.Number+1, bms)
		if err != nil {
			return err
		}
		outcome.NextRound = next
		return nil
	}

	planned := SimpleRoundCount(playerCount)
	done, err := s.countSimpleDone(ctx, exec, t.ID)
	if err != nil {
		return err
	}

	if done < planned {
		next, err := s.createSimpleRound(ctx, exec, t, closed.Number+1, ranked)
		if err != nil {
			return err
		}
		outcome.NextRound = next
		return nil
	}

	if t.Type == models.TypeAdvanced {
		seeds := make([]int, 0, finalPoolLimit)
		for _, e := range ranked {
			if len(seeds) == finalPoolLimit {
				break
			}
			seeds = append(seeds, e.PlayerID)
		}
		bms, err := s.bracket.FirstRound(seeds)
		if err != nil {
			return err
		}
		next, err := s.persistBracketRound(ctx, exec, t, closed.Number+1, bms)
		if err != nil {
			return err
		}
		outcome.NextRound = next
		return nil
	}

	// Beginner: the simple stage is the whole tournament, the standings
	// leader takes it.
	return s.crown(ctx, exec, t, ranked[0].PlayerID, outcome)
}

func (s *roundService) crown(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, championID int, outcome *RoundOutcome) error {
	if err := s.tournamentRepo.SetWinner(ctx, exec, t.ID, &championID); err != nil {
		return mapRepoError(err)
	}
	outcome.TournamentComplete = true
	outcome.ChampionID = &championID
	s.logger.Info("tournament decided",
		slog.Int("tournament_id", t.ID),
		slog.Int("champion_id", championID))
	return nil
}

func (s *roundService) CreateInitialRound(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament) (*models.Round, error) {
	ranked, _, err := s.loadStandings(ctx, exec, t.ID)
	if err != nil {
		return nil, err
	}
	return s.createSimpleRound(ctx, exec, t, 1, ranked)
}

func (s *roundService) createSimpleRound(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, number int, ranked []*standings.Entry) (*models.Round, error) {
	candidates := make([]pairing.Player, 0, len(ranked))
	for _, e := range ranked {
		candidates = append(candidates, pairing.Player{
			ID:        e.PlayerID,
			Score:     e.Score,
			Opponents: e.Opponents,
			HasBye:    e.HasBye,
		})
	}

	paired, err := s.pairer.Pair(candidates)
	if err != nil {
		return nil, err
	}
	if paired.ForcedRepeat {
		s.logger.Warn("pairing degraded to a forced repeat",
			slog.Int("tournament_id", t.ID),
			slog.Int("round", number))
	}

	round := &models.Round{
		TournamentID: t.ID,
		Number:       number,
		Type:         models.RoundSimple,
		Status:       models.RoundPending,
		Pairings: models.RoundPairings{
			Version:      models.PairingPayloadVersion,
			Pairings:     make([]models.PairingSlot, 0, len(paired.Pairs)),
			ByePlayerID:  paired.ByePlayerID,
			ForcedRepeat: paired.ForcedRepeat,
		},
	}
	for i, pair := range paired.Pairs {
		p2 := pair.Player2ID
		round.Pairings.Pairings = append(round.Pairings.Pairings, models.PairingSlot{
			Player1ID:   pair.Player1ID,
			Player2ID:   &p2,
			TableNumber: tableNumber(i, t.Tables),
		})
	}

	if err := s.roundRepo.Create(ctx, exec, round); err != nil {
		return nil, mapRepoError(err)
	}

	for _, slot := range round.Pairings.Pairings {
		match := &models.Match{
			RoundID:     round.ID,
			TableNumber: slot.TableNumber,
			Player1ID:   slot.Player1ID,
			Player2ID:   slot.Player2ID,
			Status:      models.MatchScheduled,
		}
		if err := s.matchRepo.Create(ctx, exec, match); err != nil {
			return nil, mapRepoError(err)
		}
		round.Matches = append(round.Matches, match)
	}

	// The bye is stored as an auto-completed match with no second player, so
	// standings recomputation credits it like any other terminal result.
	if paired.ByePlayerID != nil {
		bye := &models.Match{
			RoundID:   round.ID,
			Player1ID: *paired.ByePlayerID,
			Status:    models.MatchCompleted,
			Result:    &models.MatchResult{},
		}
		if err := s.matchRepo.Create(ctx, exec, bye); err != nil {
			return nil, mapRepoError(err)
		}
		round.Matches = append(round.Matches, bye)
	}

	s.logger.Info("simple round created",
		slog.Int("tournament_id", t.ID),
		slog.Int("round", number),
		slog.Int("matches", len(paired.Pairs)))
	return round, nil
}

// persistBracketRound stores a final round. Padding byes appear in the
// pairing payload to preserve bracket order but get no match: the player
// advances without playing.
func (s *roundService) persistBracketRound(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, number int, bms []*brackets.BracketMatch) (*models.Round, error) {
	round := &models.Round{
		TournamentID: t.ID,
		Number:       number,
		Type:         models.RoundFinal,
		Status:       models.RoundPending,
		Pairings: models.RoundPairings{
			Version:  models.PairingPayloadVersion,
			Pairings: make([]models.PairingSlot, 0, len(bms)),
		},
	}

	playable := 0
	for _, bm := range bms {
		slot := models.PairingSlot{Player1ID: bm.Player1ID, Player2ID: bm.Player2ID}
		if !bm.IsBye {
			slot.TableNumber = tableNumber(playable, t.Tables)
			playable++
		}
		round.Pairings.Pairings = append(round.Pairings.Pairings, slot)
	}

	if err := s.roundRepo.Create(ctx, exec, round); err != nil {
		return nil, mapRepoError(err)
	}

	allByes := true
	for _, slot := range round.Pairings.Pairings {
		if slot.Player2ID == nil {
			continue
		}
		allByes = false
		match := &models.Match{
			RoundID:     round.ID,
			TableNumber: slot.TableNumber,
			Player1ID:   slot.Player1ID,
			Player2ID:   slot.Player2ID,
			Status:      models.MatchScheduled,
		}
		if err := s.matchRepo.Create(ctx, exec, match); err != nil {
			return nil, mapRepoError(err)
		}
		round.Matches = append(round.Matches, match)
	}
	if allByes {
		return nil, fmt.Errorf("bracket round %d of tournament %d has no playable matches", number, t.ID)
	}

	s.logger.Info("final round created",
		slog.Int("tournament_id", t.ID),
		slog.Int("round", number),
		slog.Int("matches", len(round.Matches)))
	return round, nil
}

// finalRoundWinners reads the winners of a completed final round in bracket
// order: slot order is the payload order, byes advance their only player.
func (s *roundService) finalRoundWinners(ctx context.Context, exec repositories.SQLExecutor, round *models.Round) ([]int, error) {
	matches, err := s.matchRepo.ListByRound(ctx, exec, round.ID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	byPlayers := make(map[[2]int]*models.Match, len(matches))
	for _, m := range matches {
		if m.Player2ID != nil {
			byPlayers[[2]int{m.Player1ID, *m.Player2ID}] = m
		}
	}

	winners := make([]int, 0, len(round.Pairings.Pairings))
	for _, slot := range round.Pairings.Pairings {
		if slot.Player2ID == nil {
			winners = append(winners, slot.Player1ID)
			continue
		}
		m := byPlayers[[2]int{slot.Player1ID, *slot.Player2ID}]
		if m == nil || m.Result == nil || m.Result.WinnerID == nil {
			return nil, fmt.Errorf("final round %d has an undecided slot %d vs %v", round.Number, slot.Player1ID, *slot.Player2ID)
		}
		winners = append(winners, *m.Result.WinnerID)
	}
	return winners, nil
}

func (s *roundService) Progress(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament) (*Progress, error) {
	rounds, err := s.roundRepo.ListByTournament(ctx, exec, t.ID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	playerCount, err := s.playerRepo.CountByTournament(ctx, exec, t.ID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	p := &Progress{SimpleRoundsPlanned: SimpleRoundCount(playerCount)}
	allDone := true
	for _, r := range rounds {
		if r.Status != models.RoundDone {
			allDone = false
			continue
		}
		if r.Type == models.RoundSimple {
			p.SimpleRoundsDone++
		}
	}

	p.ChampionID = t.WinnerPlayerID
	p.Complete = allDone && t.WinnerPlayerID != nil
	return p, nil
}

func (s *roundService) ListRounds(ctx context.Context, tournamentID int) ([]*models.Round, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, mapRepoError(err)
	}
	rounds, err := s.roundRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	for _, round := range rounds {
		matches, err := s.matchRepo.ListByRound(ctx, nil, round.ID)
		if err != nil {
			return nil, mapRepoError(err)
		}
		round.Matches = matches
	}
	return rounds, nil
}

func (s *roundService) countSimpleDone(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
	rounds, err := s.roundRepo.ListByTournament(ctx, exec, tournamentID)
	if err != nil {
		return 0, mapRepoError(err)
	}
	done := 0
	for _, r := range rounds {
		if r.Type == models.RoundSimple && r.Status == models.RoundDone {
			done++
		}
	}
	return done, nil
}

// recomputeStandings rebuilds every player's score, opponent set and bye
// flag from the terminal matches and persists the changes.
func (s *roundService) recomputeStandings(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*standings.Entry, []*models.Player, error) {
	ranked, players, err := s.loadStandings(ctx, exec, tournamentID)
	if err != nil {
		return nil, nil, err
	}

	byID := make(map[int]*models.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}
	for _, e := range ranked {
		p := byID[e.PlayerID]
		p.Score = e.Score
		p.Opponents = e.Opponents
		p.HasBye = e.HasBye
		if err := s.playerRepo.UpdateStanding(ctx, exec, p); err != nil {
			return nil, nil, mapRepoError(err)
		}
	}
	return ranked, players, nil
}

func (s *roundService) loadStandings(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*standings.Entry, []*models.Player, error) {
	players, err := s.playerRepo.ListByTournament(ctx, exec, tournamentID)
	if err != nil {
		return nil, nil, mapRepoError(err)
	}
	matches, err := s.matchRepo.ListTerminalByTournament(ctx, exec, tournamentID)
	if err != nil {
		return nil, nil, mapRepoError(err)
	}
	entries := standings.EntriesFromPlayers(players)
	ranked := s.calculator.Recompute(entries, standings.GamesFromMatches(matches))
	return ranked, players, nil
}

// SimpleRoundCount is the number of Swiss rounds for a player count: enough
// for standings to separate, ceil(log2(n)) with a floor of two rounds.
func SimpleRoundCount(playerCount int) int {
	if playerCount < 2 {
		return 0
	}
	n := bits.Len(uint(playerCount - 1))
	if n < 2 {
		n = 2
	}
	return n
}

func tableNumber(index, tables int) int {
	if tables > 0 {
		return index%tables + 1
	}
	return index + 1
}
