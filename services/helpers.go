package services

import (
	"errors"
	"sync"

	"github.com/Dosada05/tournament-rounds/repositories"
)

// TournamentLockRegistry serializes state-mutating operations per
// tournament. Tournaments are independent units of concurrency: operations
// on different tournaments proceed in parallel, operations on the same one
// are single-writer.
type TournamentLockRegistry struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func NewTournamentLockRegistry() *TournamentLockRegistry {
	return &TournamentLockRegistry{locks: make(map[int]*sync.Mutex)}
}

// Lock acquires the tournament's lock and returns the unlock function.
func (r *TournamentLockRegistry) Lock(tournamentID int) func() {
	r.mu.Lock()
	l, ok := r.locks[tournamentID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[tournamentID] = l
	}
	r.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// mapRepoError translates repository sentinels into service sentinels so
// handlers only ever match against the services package.
func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrPlayerNotFound):
		return ErrPlayerNotFound
	case errors.Is(err, repositories.ErrRoundNotFound):
		return ErrRoundNotFound
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrPlayerNameConflict):
		return ErrDuplicatePlayerName
	case errors.Is(err, repositories.ErrSerializationFailure):
		return ErrConcurrentModification
	default:
		return err
	}
}
