package allocation

import (
	"math"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fullPoolPolicy gives rank 1 the entire weekly pool, which makes the
// expected splits easy to read off
func fullPoolPolicy(rank int, weeklyAllocatedPoints int64) float64 {
	if rank == 1 {
		return float64(weeklyAllocatedPoints)
	}
	return 0
}

func TestAllocateProportionalSplit(t *testing.T) {
	scoutA := common.HexToAddress("0x000000000000000000000000000000000000000a")
	scoutB := common.HexToAddress("0x000000000000000000000000000000000000000b")

	result := Allocate(Input{
		Rank:                  1,
		GemsCollected:         10,
		WeeklyAllocatedPoints: 100000,
		NormalisationFactor:   1.0,
		BuilderPoolShare:      0.30,
		Holders: map[common.Address]uint64{
			scoutA: 3,
			scoutB: 7,
		},
	}, fullPoolPolicy)

	require.True(t, result.Distributed())
	assert.Equal(t, int64(100000), result.EarnableScoutPoints)
	assert.Equal(t, uint64(10), result.TotalSupply)

	// Builder gets floor(0.3 * 100000); scouts split the remaining 70%
	// proportional to 3/10 and 7/10
	assert.Equal(t, int64(30000), result.BuilderPoints)

	require.Len(t, result.ScoutShares, 2)
	shares := make(map[common.Address]int64)
	for _, s := range result.ScoutShares {
		shares[s.Wallet] = s.Points
	}
	assert.Equal(t, int64(math.Floor(0.7*100000*3.0/10.0)), shares[scoutA])
	assert.Equal(t, int64(math.Floor(0.7*100000*7.0/10.0)), shares[scoutB])
}

func TestAllocateConservationPreTruncation(t *testing.T) {
	holders := map[common.Address]uint64{
		common.HexToAddress("0x01"): 13,
		common.HexToAddress("0x02"): 29,
		common.HexToAddress("0x03"): 58,
	}

	result := Allocate(Input{
		Rank:                  1,
		WeeklyAllocatedPoints: 77777,
		NormalisationFactor:   1.0,
		BuilderPoolShare:      0.30,
		Holders:               holders,
	}, fullPoolPolicy)

	// Before truncation, builder pool share plus per-wallet scout shares
	// must sum to the full earnable pool
	pool := float64(result.EarnableScoutPoints)
	total := pool * 0.30
	var supply uint64
	for _, tokens := range holders {
		supply += tokens
	}
	for _, tokens := range holders {
		total += pool * 0.70 * float64(tokens) / float64(supply)
	}
	assert.InDelta(t, pool, total, 1e-6)

	// After truncation, distributed points never exceed the pool
	distributed := result.BuilderPoints
	for _, s := range result.ScoutShares {
		distributed += s.Points
	}
	assert.LessOrEqual(t, distributed, result.EarnableScoutPoints)
}

func TestAllocateZeroSupply(t *testing.T) {
	result := Allocate(Input{
		Rank:                  1,
		WeeklyAllocatedPoints: 100000,
		NormalisationFactor:   1.0,
		BuilderPoolShare:      0.30,
		Holders:               map[common.Address]uint64{},
	}, fullPoolPolicy)

	assert.False(t, result.Distributed())
	assert.Equal(t, uint64(0), result.TotalSupply)
	assert.Equal(t, int64(0), result.BuilderPoints)
	assert.Empty(t, result.ScoutShares)
}

func TestAllocateNormalisationFactor(t *testing.T) {
	result := Allocate(Input{
		Rank:                  1,
		WeeklyAllocatedPoints: 100000,
		NormalisationFactor:   0.5,
		BuilderPoolShare:      0.30,
		Holders: map[common.Address]uint64{
			common.HexToAddress("0x01"): 1,
		},
	}, fullPoolPolicy)

	assert.Equal(t, int64(50000), result.EarnableScoutPoints)
}

func TestGeometricDecayMonotonic(t *testing.T) {
	policy := GeometricDecay(0.85, 100)

	prev := math.Inf(1)
	for rank := 1; rank <= 100; rank++ {
		share := policy(rank, 100000)
		assert.Less(t, share, prev, "share must decrease with rank")
		assert.Greater(t, share, 0.0)
		prev = share
	}

	// Ranks outside the paid range earn nothing
	assert.Equal(t, 0.0, policy(0, 100000))
	assert.Equal(t, 0.0, policy(101, 100000))
}

func TestGeometricDecaySumsToPool(t *testing.T) {
	policy := GeometricDecay(0.85, 100)

	var total float64
	for rank := 1; rank <= 100; rank++ {
		total += policy(rank, 100000)
	}
	assert.InDelta(t, 100000, total, 1e-6)
}

func TestGeometricDecayUniformRatio(t *testing.T) {
	// ratio 1 means no decay: every paid rank gets an equal slice
	policy := GeometricDecay(1.0, 100)

	var total float64
	for rank := 1; rank <= 100; rank++ {
		share := policy(rank, 100000)
		assert.False(t, math.IsNaN(share))
		assert.InDelta(t, 1000.0, share, 1e-9)
		total += share
	}
	assert.InDelta(t, 100000, total, 1e-6)
}

func TestAllocateDeterministicOrder(t *testing.T) {
	holders := map[common.Address]uint64{
		common.HexToAddress("0x01"): 5,
		common.HexToAddress("0x02"): 5,
		common.HexToAddress("0x03"): 9,
	}

	first := Allocate(Input{
		Rank:                  1,
		WeeklyAllocatedPoints: 100000,
		NormalisationFactor:   1.0,
		BuilderPoolShare:      0.30,
		Holders:               holders,
	}, fullPoolPolicy)

	for i := 0; i < 10; i++ {
		again := Allocate(Input{
			Rank:                  1,
			WeeklyAllocatedPoints: 100000,
			NormalisationFactor:   1.0,
			BuilderPoolShare:      0.30,
			Holders:               holders,
		}, fullPoolPolicy)
		require.Equal(t, first.ScoutShares, again.ScoutShares)
	}
}
