package standings

import (
	"sort"

	"github.com/Dosada05/tournament-rounds/models"
)

// PointsPolicy maps match outcomes to score deltas. A bye is credited with
// the configured bye points and does not add an opponent.
type PointsPolicy struct {
	Win  int
	Draw int
	Loss int
	Bye  int
}

// DefaultPolicy is the standard 3/1/0 mapping with a bye counted as a win.
func DefaultPolicy() PointsPolicy {
	return PointsPolicy{Win: 3, Draw: 1, Loss: 0, Bye: 3}
}

// Entry is one player's standing. Score, Opponents, HasBye and SOS are
// rebuilt from scratch on every Recompute call.
type Entry struct {
	PlayerID  int
	Name      string
	Seed      int
	Score     int
	Opponents []int
	HasBye    bool

	// SOS is the strength-of-schedule tiebreak: the sum of the current
	// scores of every opponent this player defeated or drew with.
	SOS int

	credited []int
}

// Game is a terminal match outcome. Player2ID nil denotes a bye.
type Game struct {
	Player1ID int
	Player2ID *int
	WinnerID  *int
}

type Calculator struct {
	policy PointsPolicy
}

func NewCalculator(policy PointsPolicy) *Calculator {
	return &Calculator{policy: policy}
}

// Recompute derives scores, opponent sets, bye flags and the final ordering
// from the full set of terminal games. It is idempotent: repeated calls over
// the same inputs produce identical entries in an identical order. Unknown
// player references in games are ignored.
//
// Ordering: score descending, then strength of schedule descending, then
// registration order (seed) ascending, which guarantees a total order.
func (c *Calculator) Recompute(entries []*Entry, games []Game) []*Entry {
	byID := make(map[int]*Entry, len(entries))
	for _, e := range entries {
		e.Score = 0
		e.Opponents = e.Opponents[:0]
		e.HasBye = false
		e.SOS = 0
		e.credited = e.credited[:0]
		byID[e.PlayerID] = e
	}

	for _, g := range games {
		p1 := byID[g.Player1ID]
		if p1 == nil {
			continue
		}
		if g.Player2ID == nil {
			p1.Score += c.policy.Bye
			p1.HasBye = true
			continue
		}
		p2 := byID[*g.Player2ID]
		if p2 == nil {
			continue
		}
		p1.Opponents = append(p1.Opponents, p2.PlayerID)
		p2.Opponents = append(p2.Opponents, p1.PlayerID)

		switch {
		case g.WinnerID == nil:
			p1.Score += c.policy.Draw
			p2.Score += c.policy.Draw
			p1.credited = append(p1.credited, p2.PlayerID)
			p2.credited = append(p2.credited, p1.PlayerID)
		case *g.WinnerID == p1.PlayerID:
			p1.Score += c.policy.Win
			p2.Score += c.policy.Loss
			p1.credited = append(p1.credited, p2.PlayerID)
		case *g.WinnerID == p2.PlayerID:
			p2.Score += c.policy.Win
			p1.Score += c.policy.Loss
			p2.credited = append(p2.credited, p1.PlayerID)
		}
	}

	// Tiebreak is computed once, after all scores are final, so the ordering
	// cannot drift with comparison order.
	for _, e := range entries {
		for _, oppID := range e.credited {
			if opp := byID[oppID]; opp != nil {
				e.SOS += opp.Score
			}
		}
	}

	ranked := make([]*Entry, len(entries))
	copy(ranked, entries)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].SOS != ranked[j].SOS {
			return ranked[i].SOS > ranked[j].SOS
		}
		return ranked[i].Seed < ranked[j].Seed
	})
	return ranked
}

// EntriesFromPlayers builds calculator entries from loaded players,
// preserving registration order as the seed.
func EntriesFromPlayers(players []*models.Player) []*Entry {
	entries := make([]*Entry, 0, len(players))
	for _, p := range players {
		entries = append(entries, &Entry{
			PlayerID: p.ID,
			Name:     p.Name,
			Seed:     p.Seed,
		})
	}
	return entries
}

// GamesFromMatches converts terminal matches into calculator games.
// Forfeits count like decided games: the stored winner is credited a win.
func GamesFromMatches(matches []*models.Match) []Game {
	games := make([]Game, 0, len(matches))
	for _, m := range matches {
		if !m.Status.Terminal() {
			continue
		}
		g := Game{Player1ID: m.Player1ID, Player2ID: m.Player2ID}
		if m.Result != nil {
			g.WinnerID = m.Result.WinnerID
		}
		games = append(games, g)
	}
	return games
}
