// Package pairing implements Swiss-style pairing: players of similar current
// standing are matched while repeat opponents are avoided.
package pairing

import (
	"errors"
	"sort"
)

// ErrPairingImpossible is returned when no legal pairing exists and the
// forced-repeat fallback is disabled by configuration.
var ErrPairingImpossible = errors.New("no legal pairing exists for this round")

// DefaultMaxBacktrack bounds the backtracking search so pairing always
// terminates, even on adversarial opponent graphs.
const DefaultMaxBacktrack = 4096

type Config struct {
	// AllowRepeats enables the degradation path: when no conflict-free
	// pairing is found within the backtracking bound, repeat pairings with
	// the least score difference are admitted and flagged in the result.
	AllowRepeats bool

	// MaxBacktrack caps the number of backtracking steps per search.
	// Zero means DefaultMaxBacktrack.
	MaxBacktrack int
}

// Player is a pairing candidate. Callers pass players in standings order,
// best first; the engine never reorders its input.
type Player struct {
	ID        int
	Score     int
	Opponents []int
	HasBye    bool
}

type Pair struct {
	Player1ID int
	Player2ID int

	// Repeat marks a pairing of two players who already faced each other,
	// admitted by the fallback.
	Repeat bool
}

type Result struct {
	Pairs        []Pair
	ByePlayerID  *int
	ForcedRepeat bool
}

type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	if cfg.MaxBacktrack <= 0 {
		cfg.MaxBacktrack = DefaultMaxBacktrack
	}
	return &Engine{cfg: cfg}
}

// Pair produces the pairings for one round from the ranked player list.
// The output is fully determined by the input: no randomness is involved.
func (e *Engine) Pair(ranked []Player) (*Result, error) {
	if len(ranked) < 2 {
		return nil, ErrPairingImpossible
	}

	players := make([]Player, len(ranked))
	copy(players, ranked)

	res := &Result{}
	if len(players)%2 == 1 {
		idx := byeIndex(players)
		id := players[idx].ID
		res.ByePlayerID = &id
		players = append(players[:idx], players[idx+1:]...)
	}

	played := playedSet(players)

	pairs, ok := searchNoRepeats(players, played, e.cfg.MaxBacktrack)
	if ok {
		res.Pairs = pairs
		return res, nil
	}
	if !e.cfg.AllowRepeats {
		return nil, ErrPairingImpossible
	}

	res.Pairs = e.pairWithRepeats(players, played)
	res.ForcedRepeat = true
	return res, nil
}

// byeIndex picks the lowest-ranked player without a bye. If every remaining
// player already had one, the lowest-ranked player is chosen regardless;
// that fallback is deliberate, not an oversight.
func byeIndex(players []Player) int {
	for i := len(players) - 1; i >= 0; i-- {
		if !players[i].HasBye {
			return i
		}
	}
	return len(players) - 1
}

type pairKey struct{ a, b int }

func keyFor(id1, id2 int) pairKey {
	if id1 > id2 {
		id1, id2 = id2, id1
	}
	return pairKey{id1, id2}
}

func playedSet(players []Player) map[pairKey]bool {
	present := make(map[int]bool, len(players))
	for _, p := range players {
		present[p.ID] = true
	}
	played := make(map[pairKey]bool)
	for _, p := range players {
		for _, opp := range p.Opponents {
			if present[opp] {
				played[keyFor(p.ID, opp)] = true
			}
		}
	}
	return played
}

// searchNoRepeats attempts the greedy top-down pairing with bounded
// backtracking: the highest unpaired player is matched with the nearest
// lower candidate they have not faced; on a dead end the next candidate
// down is tried instead. Exhausting the step budget counts as failure.
func searchNoRepeats(players []Player, played map[pairKey]bool, maxSteps int) ([]Pair, bool) {
	used := make([]bool, len(players))
	out := make([]Pair, 0, len(players)/2)
	steps := maxSteps
	if backtrack(players, used, played, &steps, &out) {
		return out, true
	}
	return nil, false
}

func backtrack(players []Player, used []bool, played map[pairKey]bool, steps *int, out *[]Pair) bool {
	first := -1
	for i := range players {
		if !used[i] {
			first = i
			break
		}
	}
	if first == -1 {
		return true
	}

	for j := first + 1; j < len(players); j++ {
		if used[j] || played[keyFor(players[first].ID, players[j].ID)] {
			continue
		}
		*steps--
		if *steps < 0 {
			return false
		}
		used[first], used[j] = true, true
		*out = append(*out, Pair{Player1ID: players[first].ID, Player2ID: players[j].ID})
		if backtrack(players, used, played, steps, out) {
			return true
		}
		*out = (*out)[:len(*out)-1]
		used[first], used[j] = false, false
	}
	return false
}

// pairWithRepeats degrades gracefully: repeat pairings are admitted one at a
// time, each chosen as the already-played pair with the least score
// difference, until the remaining players pair without conflicts. As a last
// resort the remainder is paired adjacently in standings order. The result
// is deterministic and always non-empty.
func (e *Engine) pairWithRepeats(players []Player, played map[pairKey]bool) []Pair {
	rank := make(map[int]int, len(players))
	for i, p := range players {
		rank[p.ID] = i
	}

	remaining := make([]Player, len(players))
	copy(remaining, players)
	fixed := make([]Pair, 0, 1)

	for len(remaining) > 0 {
		if pairs, ok := searchNoRepeats(remaining, played, e.cfg.MaxBacktrack); ok {
			fixed = append(fixed, pairs...)
			break
		}

		ri, rj := bestRepeatPair(remaining, played)
		if ri == -1 {
			// The search failed on the step budget alone. Pair what is left
			// adjacently in standings order.
			for i := 0; i+1 < len(remaining); i += 2 {
				fixed = append(fixed, Pair{
					Player1ID: remaining[i].ID,
					Player2ID: remaining[i+1].ID,
					Repeat:    played[keyFor(remaining[i].ID, remaining[i+1].ID)],
				})
			}
			break
		}

		fixed = append(fixed, Pair{
			Player1ID: remaining[ri].ID,
			Player2ID: remaining[rj].ID,
			Repeat:    true,
		})
		remaining = append(remaining[:rj], remaining[rj+1:]...)
		remaining = append(remaining[:ri], remaining[ri+1:]...)
	}

	sort.Slice(fixed, func(i, j int) bool {
		return rank[fixed[i].Player1ID] < rank[fixed[j].Player1ID]
	})
	return fixed
}

// bestRepeatPair returns the indices of the already-played pair with the
// smallest score difference, ties broken by rank. Returns (-1, -1) when no
// played pair remains.
func bestRepeatPair(players []Player, played map[pairKey]bool) (int, int) {
	bestI, bestJ := -1, -1
	bestDiff := 0
	for i := 0; i < len(players); i++ {
		for j := i + 1; j < len(players); j++ {
			if !played[keyFor(players[i].ID, players[j].ID)] {
				continue
			}
			diff := players[i].Score - players[j].Score
			if diff < 0 {
				diff = -diff
			}
			if bestI == -1 || diff < bestDiff {
				bestI, bestJ, bestDiff = i, j, diff
			}
		}
	}
	return bestI, bestJ
}
