package pairing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(allowRepeats bool) *Engine {
	return NewEngine(Config{AllowRepeats: allowRepeats})
}

func TestPairRequiresTwoPlayers(t *testing.T) {
	e := newTestEngine(true)

	_, err := e.Pair(nil)
	assert.ErrorIs(t, err, ErrPairingImpossible)

	_, err = e.Pair([]Player{{ID: 1}})
	assert.ErrorIs(t, err, ErrPairingImpossible)
}

func TestPairAdjacentByStanding(t *testing.T) {
	e := newTestEngine(true)
	ranked := []Player{
		{ID: 10, Score: 6},
		{ID: 20, Score: 6},
		{ID: 30, Score: 3},
		{ID: 40, Score: 0},
	}

	res, err := e.Pair(ranked)
	require.NoError(t, err)
	require.Len(t, res.Pairs, 2)
	assert.Nil(t, res.ByePlayerID)
	assert.False(t, res.ForcedRepeat)

	assert.Equal(t, Pair{Player1ID: 10, Player2ID: 20}, res.Pairs[0])
	assert.Equal(t, Pair{Player1ID: 30, Player2ID: 40}, res.Pairs[1])
}

func TestPairAvoidsRepeats(t *testing.T) {
	e := newTestEngine(true)
	// 10 and 20 already met, as did 30 and 40. The only repeat-free pairing
	// crosses the brackets.
	ranked := []Player{
		{ID: 10, Score: 3, Opponents: []int{20}},
		{ID: 20, Score: 3, Opponents: []int{10}},
		{ID: 30, Score: 0, Opponents: []int{40}},
		{ID: 40, Score: 0, Opponents: []int{30}},
	}

	res, err := e.Pair(ranked)
	require.NoError(t, err)
	assert.False(t, res.ForcedRepeat)

	for _, pair := range res.Pairs {
		for _, p := range ranked {
			if p.ID != pair.Player1ID {
				continue
			}
			for _, opp := range p.Opponents {
				assert.NotEqual(t, opp, pair.Player2ID, "pair %v is a repeat", pair)
			}
		}
	}
}

func TestOddCountByeGoesToLowestWithoutBye(t *testing.T) {
	e := newTestEngine(true)
	ranked := []Player{
		{ID: 1, Score: 6},
		{ID: 2, Score: 4},
		{ID: 3, Score: 3},
		{ID: 4, Score: 1},
		{ID: 5, Score: 0, HasBye: true},
	}

	res, err := e.Pair(ranked)
	require.NoError(t, err)
	require.NotNil(t, res.ByePlayerID)
	// The last player already had a bye, so it rotates up to the next one.
	assert.Equal(t, 4, *res.ByePlayerID)
	require.Len(t, res.Pairs, 2)
}

func TestByeFallsBackWhenEveryoneHadOne(t *testing.T) {
	e := newTestEngine(true)
	ranked := []Player{
		{ID: 1, HasBye: true},
		{ID: 2, HasBye: true},
		{ID: 3, HasBye: true},
	}

	res, err := e.Pair(ranked)
	require.NoError(t, err)
	require.NotNil(t, res.ByePlayerID)
	assert.Equal(t, 3, *res.ByePlayerID)
}

func TestForcedRepeatWhenNoLegalPairingExists(t *testing.T) {
	ranked := []Player{
		{ID: 1, Score: 3, Opponents: []int{2}},
		{ID: 2, Score: 3, Opponents: []int{1}},
	}

	res, err := newTestEngine(true).Pair(ranked)
	require.NoError(t, err)
	assert.True(t, res.ForcedRepeat)
	require.Len(t, res.Pairs, 1)
	assert.True(t, res.Pairs[0].Repeat)

	_, err = newTestEngine(false).Pair(ranked)
	assert.ErrorIs(t, err, ErrPairingImpossible)
}

func TestForcedRepeatPicksLeastScoreDifference(t *testing.T) {
	e := newTestEngine(true)
	// Everyone has faced everyone: the first admitted repeat must be a pair
	// with equal scores, not the 6-vs-0 extreme.
	ranked := []Player{
		{ID: 1, Score: 6, Opponents: []int{2, 3, 4}},
		{ID: 2, Score: 6, Opponents: []int{1, 3, 4}},
		{ID: 3, Score: 0, Opponents: []int{1, 2, 4}},
		{ID: 4, Score: 0, Opponents: []int{1, 2, 3}},
	}

	res, err := e.Pair(ranked)
	require.NoError(t, err)
	assert.True(t, res.ForcedRepeat)
	require.Len(t, res.Pairs, 2)
	assert.Equal(t, 1, res.Pairs[0].Player1ID)
	assert.Equal(t, 2, res.Pairs[0].Player2ID)
	assert.Equal(t, 3, res.Pairs[1].Player1ID)
	assert.Equal(t, 4, res.Pairs[1].Player2ID)
}

func TestPairIsDeterministic(t *testing.T) {
	e := newTestEngine(true)
	ranked := []Player{
		{ID: 7, Score: 6, Opponents: []int{5}},
		{ID: 5, Score: 4, Opponents: []int{7, 3}},
		{ID: 3, Score: 3, Opponents: []int{5, 9}},
		{ID: 9, Score: 3, Opponents: []int{3}},
		{ID: 11, Score: 0},
	}

	first, err := e.Pair(ranked)
	require.NoError(t, err)
	second, err := e.Pair(ranked)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPairDoesNotMutateInput(t *testing.T) {
	e := newTestEngine(true)
	ranked := []Player{
		{ID: 1, Score: 3},
		{ID: 2, Score: 2},
		{ID: 3, Score: 1},
	}

	_, err := e.Pair(ranked)
	require.NoError(t, err)

	assert.Equal(t, 1, ranked[0].ID)
	assert.Equal(t, 2, ranked[1].ID)
	assert.Equal(t, 3, ranked[2].ID)
}
