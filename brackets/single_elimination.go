package brackets

import (
	"errors"
	"fmt"
	"math/bits"
)

type singleElimination struct{}

func NewSingleElimination() Engine {
	return &singleElimination{}
}

func (g *singleElimination) Name() string {
	return "SingleElimination"
}

// FirstRound builds the opening round of a single elimination bracket. The
// bracket is padded to the next power of two; padding byes land on the
// highest seeds, and the slot order keeps top seeds apart until the late
// rounds.
func (g *singleElimination) FirstRound(seedIDs []int) ([]*BracketMatch, error) {
	n := len(seedIDs)
	if n < 2 {
		return nil, errors.New("not enough finalists for a bracket (minimum 2)")
	}

	size := BracketSize(n)
	order := seedOrder(size)

	matches := make([]*BracketMatch, 0, size/2)
	for i := 0; i < size; i += 2 {
		var p1, p2 *int
		if order[i] <= n {
			p1 = &seedIDs[order[i]-1]
		}
		if order[i+1] <= n {
			p2 = &seedIDs[order[i+1]-1]
		}
		if p1 == nil && p2 == nil {
			return nil, fmt.Errorf("bracket slot %d has no players for %d finalists", i/2+1, n)
		}
		if p1 == nil {
			p1, p2 = p2, nil
		}
		matches = append(matches, &BracketMatch{
			OrderInRound: len(matches) + 1,
			Player1ID:    *p1,
			Player2ID:    p2,
			IsBye:        p2 == nil,
		})
	}
	return matches, nil
}

// NextRound pairs the winners of the previous round in the order they were
// produced. The caller is responsible for invoking it only after every match
// of the previous round completed.
func (g *singleElimination) NextRound(winnerIDs []int) ([]*BracketMatch, error) {
	if len(winnerIDs) < 2 {
		return nil, errors.New("not enough winners to continue the bracket")
	}
	if len(winnerIDs)%2 != 0 {
		return nil, fmt.Errorf("odd winner count %d, bracket is corrupt", len(winnerIDs))
	}

	matches := make([]*BracketMatch, 0, len(winnerIDs)/2)
	for i := 0; i < len(winnerIDs); i += 2 {
		matches = append(matches, &BracketMatch{
			OrderInRound: len(matches) + 1,
			Player1ID:    winnerIDs[i],
			Player2ID:    &winnerIDs[i+1],
		})
	}
	return matches, nil
}

// BracketSize returns the bracket capacity for n finalists: the smallest
// power of two that fits them.
func BracketSize(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// NumRounds returns how many bracket rounds a pool of n finalists needs.
func NumRounds(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(BracketSize(n) - 1))
}

// seedOrder lays seed positions (1-based) into bracket slots so that seeds 1
// and 2 can only meet in the final: 1, then its mirror, recursively.
// For size 8 the order is 1 8 4 5 2 7 3 6.
func seedOrder(size int) []int {
	order := []int{1}
	for len(order) < size {
		mirror := len(order)*2 + 1
		next := make([]int, 0, len(order)*2)
		for _, s := range order {
			next = append(next, s, mirror-s)
		}
		order = next
	}
	return order
}
