package brackets

// Engine produces the rounds of a final-stage bracket one at a time: the
// first round from the seeded finalists, every later round from the ordered
// winners of the previous one.
type Engine interface {
	// FirstRound seeds the opening bracket round. seedIDs are player IDs in
	// standings order, best first.
	FirstRound(seedIDs []int) ([]*BracketMatch, error)

	// NextRound pairs the winners of the previous round in bracket order.
	NextRound(winnerIDs []int) ([]*BracketMatch, error)

	Name() string
}

// BracketMatch is one slot of a bracket round. Player2ID is nil for a
// padding bye: the first player advances without playing.
type BracketMatch struct {
	OrderInRound int
	Player1ID    int
	Player2ID    *int
	IsBye        bool
}
