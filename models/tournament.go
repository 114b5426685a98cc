package models

import "time"

// TournamentType определяет формат турнира.
type TournamentType string

const (
	TypeBeginner TournamentType = "Beginner"
	TypeAdvanced TournamentType = "Advanced"
)

func (t TournamentType) Valid() bool {
	return t == TypeBeginner || t == TypeAdvanced
}

// TournamentStatus представляет статусы турнира, соответствующие ENUM в БД.
type TournamentStatus string

const (
	StatusRegistration TournamentStatus = "registration"
	StatusActive       TournamentStatus = "active"
	StatusEnded        TournamentStatus = "ended"
)

// CanTransitionTo enforces the monotonic lifecycle:
// registration -> active -> ended, no reversal.
func (s TournamentStatus) CanTransitionTo(next TournamentStatus) bool {
	switch s {
	case StatusRegistration:
		return next == StatusActive
	case StatusActive:
		return next == StatusEnded
	default:
		return false
	}
}

// Tournament представляет турнир.
type Tournament struct {
	ID             int              `json:"id" db:"id"`
	Name           string           `json:"name" db:"name"`
	Type           TournamentType   `json:"type" db:"tournament_type"`
	Status         TournamentStatus `json:"status" db:"status"`
	Tables         int              `json:"tables" db:"tables"`
	WinnerPlayerID *int             `json:"winner_player_id,omitempty" db:"winner_player_id"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
	FinishedAt     *time.Time       `json:"finished_at,omitempty" db:"finished_at"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Players []*Player `json:"players,omitempty" db:"-"`
	Rounds  []*Round  `json:"rounds,omitempty" db:"-"`
}
