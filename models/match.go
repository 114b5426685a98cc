package models

import "time"

type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchCompleted MatchStatus = "completed"
	MatchForfeited MatchStatus = "forfeited"
)

// Terminal reports whether the match can no longer change.
func (s MatchStatus) Terminal() bool {
	return s == MatchCompleted || s == MatchForfeited
}

// Match is a single pairing inside a round. Player2ID is nil for a bye.
type Match struct {
	ID          int          `json:"id" db:"id"`
	RoundID     int          `json:"round_id" db:"round_id"`
	TableNumber int          `json:"table_number" db:"table_number"`
	Player1ID   int          `json:"player1_id" db:"player1_id"`
	Player2ID   *int         `json:"player2_id,omitempty" db:"player2_id"`
	Result      *MatchResult `json:"result,omitempty" db:"result"`
	Status      MatchStatus  `json:"status" db:"status"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
}

// IsBye reports whether the match represents a bye (no second player).
func (m *Match) IsBye() bool {
	return m.Player2ID == nil
}

// HasPlayer reports whether the given player takes part in the match.
func (m *Match) HasPlayer(playerID int) bool {
	if m.Player1ID == playerID {
		return true
	}
	return m.Player2ID != nil && *m.Player2ID == playerID
}
