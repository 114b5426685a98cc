package models

import "time"

type RoundType string

const (
	RoundSimple RoundType = "simple"
	RoundFinal  RoundType = "final"
)

type RoundStatus string

const (
	RoundPending RoundStatus = "pending"
	RoundDone    RoundStatus = "done"
)

// Round is one pairing cycle of a tournament. The pairing payload is fixed
// at creation time; outcomes are appended to the owned matches instead.
type Round struct {
	ID           int           `json:"id" db:"id"`
	TournamentID int           `json:"tournament_id" db:"tournament_id"`
	Number       int           `json:"number" db:"number"`
	Type         RoundType     `json:"round_type" db:"round_type"`
	Status       RoundStatus   `json:"status" db:"status"`
	Pairings     RoundPairings `json:"pairings" db:"data"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`

	Matches []*Match `json:"matches,omitempty" db:"-"`
}
