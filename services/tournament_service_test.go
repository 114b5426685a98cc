package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tournament-rounds/models"
	"github.com/Dosada05/tournament-rounds/repositories"
)

func TestCreateTournamentValidation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.tournaments.Create(ctx, CreateTournamentInput{Name: "  ", Type: models.TypeBeginner})
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = env.tournaments.Create(ctx, CreateTournamentInput{Name: "cup", Type: "Pro"})
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = env.tournaments.Create(ctx, CreateTournamentInput{Name: "cup", Type: models.TypeBeginner, Tables: -1})
	assert.ErrorIs(t, err, ErrInvalidState)

	created, err := env.tournaments.Create(ctx, CreateTournamentInput{Name: "cup", Type: models.TypeBeginner, Tables: 4})
	require.NoError(t, err)
	assert.Equal(t, models.StatusRegistration, created.Status)
	assert.NotZero(t, created.ID)
}

func TestRegisterPlayerRules(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	created, err := env.tournaments.Create(ctx, CreateTournamentInput{Name: "cup", Type: models.TypeBeginner})
	require.NoError(t, err)

	_, err = env.tournaments.RegisterPlayer(ctx, created.ID, "alice")
	require.NoError(t, err)

	// Name uniqueness is scoped to the tournament.
	_, err = env.tournaments.RegisterPlayer(ctx, created.ID, "alice")
	assert.ErrorIs(t, err, ErrDuplicatePlayerName)

	_, err = env.tournaments.RegisterPlayer(ctx, created.ID, "")
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = env.tournaments.RegisterPlayer(ctx, 999, "bob")
	assert.ErrorIs(t, err, ErrTournamentNotFound)

	_, err = env.tournaments.RegisterPlayer(ctx, created.ID, "bob")
	require.NoError(t, err)
	_, err = env.tournaments.Start(ctx, created.ID)
	require.NoError(t, err)

	_, err = env.tournaments.RegisterPlayer(ctx, created.ID, "late")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStartRules(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	created, err := env.tournaments.Create(ctx, CreateTournamentInput{Name: "cup", Type: models.TypeBeginner})
	require.NoError(t, err)

	_, err = env.tournaments.Start(ctx, created.ID)
	assert.ErrorIs(t, err, ErrInsufficientPlayers)

	registerPlayers(t, env, created.ID, "a", "b", "c")
	started, err := env.tournaments.Start(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, started.Status)
	require.Len(t, started.Rounds, 1)
	assert.Equal(t, 1, started.Rounds[0].Number)

	_, err = env.tournaments.Start(ctx, created.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestEndRules(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	created, err := env.tournaments.Create(ctx, CreateTournamentInput{Name: "cup", Type: models.TypeBeginner})
	require.NoError(t, err)
	registerPlayers(t, env, created.ID, "a", "b")

	// Not started yet.
	_, err = env.tournaments.End(ctx, created.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = env.tournaments.Start(ctx, created.ID)
	require.NoError(t, err)

	// Rounds still open.
	_, err = env.tournaments.End(ctx, created.ID)
	assert.ErrorIs(t, err, ErrTournamentInProgress)
}

func TestGetLoadsPlayersAndRounds(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	tournament, players := startedTournament(t, env, models.TypeBeginner, 0, "a", "b", "c", "d")

	loaded, err := env.tournaments.Get(ctx, tournament.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Players, 4)
	assert.Equal(t, players[0].ID, loaded.Players[0].ID)
	assert.Equal(t, 1, loaded.Players[0].Seed)
	require.Len(t, loaded.Rounds, 1)
	require.Len(t, loaded.Rounds[0].Matches, 2)

	_, err = env.tournaments.Get(ctx, 999)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestListFiltersByStatus(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	first, err := env.tournaments.Create(ctx, CreateTournamentInput{Name: "open", Type: models.TypeBeginner})
	require.NoError(t, err)
	registerPlayers(t, env, first.ID, "a", "b")
	_, err = env.tournaments.Start(ctx, first.ID)
	require.NoError(t, err)

	_, err = env.tournaments.Create(ctx, CreateTournamentInput{Name: "draft", Type: models.TypeAdvanced})
	require.NoError(t, err)

	active := models.StatusActive
	listed, err := env.tournaments.List(ctx, repositories.ListTournamentsFilter{Status: &active})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, first.ID, listed[0].ID)

	all, err := env.tournaments.List(ctx, repositories.ListTournamentsFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDeleteRemovesEverything(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	tournament, _ := startedTournament(t, env, models.TypeBeginner, 0, "a", "b")

	require.NoError(t, env.tournaments.Delete(ctx, tournament.ID))

	_, err := env.tournaments.Get(ctx, tournament.ID)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
	_, err = env.rounds.ListRounds(ctx, tournament.ID)
	assert.ErrorIs(t, err, ErrTournamentNotFound)

	err = env.tournaments.Delete(ctx, tournament.ID)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestStandingsForUnknownTournament(t *testing.T) {
	env := newTestEnv()
	_, err := env.tournaments.Standings(context.Background(), 12345)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestStandingsRanksAreSequential(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	tournament, _ := startedTournament(t, env, models.TypeBeginner, 0, "a", "b", "c")

	rows, err := env.tournaments.Standings(ctx, tournament.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, row := range rows {
		assert.Equal(t, i+1, row.Rank)
	}
}
