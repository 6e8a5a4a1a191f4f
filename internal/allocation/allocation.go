// File: internal/allocation/allocation.go
package allocation

import (
	"math"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// RankDecayPolicy maps a 1-based leaderboard rank to that builder's share of
// the weekly allocated pool. The share must decrease monotonically with rank.
// The curve is an external policy choice, not fixed here.
type RankDecayPolicy func(rank int, weeklyAllocatedPoints int64) float64

// GeometricDecay returns a policy where rank n receives ratio^(n-1) times the
// rank-1 share, scaled so the first topBuilders ranks sum to the full pool
func GeometricDecay(ratio float64, topBuilders int) RankDecayPolicy {
	// A ratio of 1 degenerates to a uniform split; the closed-form series
	// sum divides by zero there
	seriesSum := float64(topBuilders)
	if ratio != 1 {
		// Normalise against the finite geometric series over the paid ranks
		seriesSum = (1 - math.Pow(ratio, float64(topBuilders))) / (1 - ratio)
	}
	return func(rank int, weeklyAllocatedPoints int64) float64 {
		if rank < 1 || rank > topBuilders {
			return 0
		}
		first := float64(weeklyAllocatedPoints) / seriesSum
		return first * math.Pow(ratio, float64(rank-1))
	}
}

// Input is everything the allocation computation needs for one builder
type Input struct {
	Rank                  int
	GemsCollected         int64
	WeeklyAllocatedPoints int64
	NormalisationFactor   float64
	BuilderPoolShare      float64
	// Holders maps wallet to tokens held as of the week's closing block
	Holders map[common.Address]uint64
}

// ScoutShare is one holder wallet's allocation
type ScoutShare struct {
	Wallet common.Address
	Tokens uint64
	Points int64
}

// Result is the computed split of one builder's weekly pool
type Result struct {
	EarnableScoutPoints int64
	BuilderPoints       int64
	ScoutShares         []ScoutShare
	TotalSupply         uint64
}

// Distributed returns true when the builder had outstanding supply and points
// were actually split
func (r *Result) Distributed() bool {
	return r.TotalSupply > 0
}

// Allocate computes the builder/scout split of a weekly point pool.
// Proportional shares are computed in floating point and floored at the point
// of persistence; residual fractional points from truncation are not
// redistributed. Zero outstanding supply yields an empty result, not an
// error.
func Allocate(input Input, policy RankDecayPolicy) *Result {
	rankShare := policy(input.Rank, input.WeeklyAllocatedPoints)
	earnable := int64(math.Floor(rankShare * input.NormalisationFactor))

	result := &Result{EarnableScoutPoints: earnable}

	var totalSupply uint64
	for _, tokens := range input.Holders {
		totalSupply += tokens
	}
	result.TotalSupply = totalSupply
	if totalSupply == 0 {
		return result
	}

	pool := float64(earnable)
	result.BuilderPoints = int64(math.Floor(pool * input.BuilderPoolShare))

	scoutPool := pool * (1 - input.BuilderPoolShare)
	shares := make([]ScoutShare, 0, len(input.Holders))
	for wallet, tokens := range input.Holders {
		points := int64(math.Floor(scoutPool * float64(tokens) / float64(totalSupply)))
		shares = append(shares, ScoutShare{
			Wallet: wallet,
			Tokens: tokens,
			Points: points,
		})
	}

	// Stable output order for deterministic persistence and logs
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Tokens != shares[j].Tokens {
			return shares[i].Tokens > shares[j].Tokens
		}
		return shares[i].Wallet.Hex() < shares[j].Wallet.Hex()
	})
	result.ScoutShares = shares

	return result
}
