package models

import "time"

// Player is a tournament participant. Score, Opponents and HasBye are
// derived state, recomputed from match results after every recorded result.
type Player struct {
	ID           int       `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	Name         string    `json:"name" db:"name"`
	Score        int       `json:"score" db:"score"`
	Opponents    []int     `json:"opponents" db:"opponents"`
	HasBye       bool      `json:"has_bye" db:"has_bye"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`

	// Seed is the 1-based registration order within the tournament.
	// Populated on load, not stored.
	Seed int `json:"seed" db:"-"`
}

// HasPlayed reports whether the player already faced the given opponent.
func (p *Player) HasPlayed(opponentID int) bool {
	for _, id := range p.Opponents {
		if id == opponentID {
			return true
		}
	}
	return false
}
