// Package suggest proposes candidate trades by scanning producers against
// consumers and ranking feasible pairs with a weighted heuristic.
//
// This is a greedy single-pass heuristic, not an optimal matching: pairs are
// enumerated producers-outer / consumers-inner in registry order, and ties
// among equal scores keep that order. The proposed price is drawn from a
// fixed market-plausible band rather than derived from supply/demand curves.
package suggest

import (
	"math/rand"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/nexusgrid/energy-engine/internal/graph"
	"github.com/nexusgrid/energy-engine/internal/model"
)

// MaxSuggestions bounds the ranked result list.
const MaxSuggestions = 5

var (
	// ReferencePrice gates buyer-balance feasibility and drives the
	// price-compatibility term. It is a fixed heuristic simplification,
	// not a live quote.
	ReferencePrice = decimal.NewFromFloat(0.15)

	// Acceptable price band for the compatibility term. With the fixed
	// ReferencePrice this term is always granted.
	minAcceptablePrice = decimal.NewFromFloat(0.10)
	maxAcceptablePrice = decimal.NewFromFloat(0.20)

	// proposalFactor scales the proposed energy to 80% of the feasible max.
	proposalFactor = decimal.NewFromFloat(0.8)

	oneHundred = decimal.NewFromInt(100)
	one        = decimal.NewFromInt(1)
	two        = decimal.NewFromInt(2)

	weightEnergy  = decimal.NewFromFloat(0.4)
	weightFull    = decimal.NewFromFloat(0.3)
	weightPartial = decimal.NewFromFloat(0.2)
	weightMinimal = decimal.NewFromFloat(0.1)
	weightPath    = decimal.NewFromFloat(0.2)
	weightPrice   = decimal.NewFromFloat(0.1)
)

// reasons is the fixed rationale pool. Content is cosmetic, not scored.
var reasons = []string{
	"High energy surplus matches demand perfectly",
	"Optimal network path with minimal hops",
	"Balanced pricing for both parties",
	"Strong financial capacity for transaction",
	"Efficient energy transfer opportunity",
	"Complementary peak production/consumption cycles",
}

// Engine scores and ranks candidate trades over the current registry and
// network. Randomness (price and rationale selection) comes from the
// injected source so callers can pin a seed.
type Engine struct {
	network *graph.Network
	rng     *rand.Rand
}

// New creates a suggestion engine over the given network.
func New(network *graph.Network, rng *rand.Rand) *Engine {
	return &Engine{network: network, rng: rng}
}

// Generate produces up to MaxSuggestions ranked candidates from the given
// participants (expected in registry order). A storage participant appears
// on both sides of the scan.
func (e *Engine) Generate(participants []*model.Participant) []model.TradeSuggestion {
	var producers, consumers []*model.Participant
	for _, p := range participants {
		if p.Surplus.IsPositive() {
			producers = append(producers, p)
		}
		if p.Demand.IsPositive() {
			consumers = append(consumers, p)
		}
	}

	var suggestions []model.TradeSuggestion
	for _, seller := range producers {
		for _, buyer := range consumers {
			maxEnergy := decimal.Min(seller.Surplus, buyer.Demand)
			if !maxEnergy.IsPositive() {
				continue
			}
			// Feasibility gate at the reference unit price, not the
			// proposed price.
			if buyer.Balance.LessThan(maxEnergy.Mul(ReferencePrice)) {
				continue
			}

			suggestions = append(suggestions, model.TradeSuggestion{
				SellerID:        seller.ID,
				BuyerID:         buyer.ID,
				SuggestedEnergy: maxEnergy.Mul(proposalFactor),
				SuggestedPrice:  e.proposePrice(),
				MatchScore:      e.matchScore(seller, buyer, maxEnergy),
				Path:            e.network.ShortestPath(seller.ID, buyer.ID),
				Reason:          reasons[e.rng.Intn(len(reasons))],
			})
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].MatchScore.GreaterThan(suggestions[j].MatchScore)
	})
	if len(suggestions) > MaxSuggestions {
		suggestions = suggestions[:MaxSuggestions]
	}
	return suggestions
}

// proposePrice draws uniformly from [0.12, 0.19] in 0.01 increments.
func (e *Engine) proposePrice() decimal.Decimal {
	cents := 12 + e.rng.Intn(8)
	return decimal.NewFromInt(int64(cents)).Div(oneHundred)
}

// matchScore combines energy match (0.4), balance adequacy (0.3), network
// proximity (0.2), and price compatibility (0.1), clamped to 1.0. The energy
// term uses the feasible maximum, not the proposed 80%.
func (e *Engine) matchScore(seller, buyer *model.Participant, maxEnergy decimal.Decimal) decimal.Decimal {
	score := maxEnergy.Div(oneHundred).Mul(weightEnergy)

	required := maxEnergy.Mul(ReferencePrice)
	switch {
	case buyer.Balance.GreaterThanOrEqual(required.Mul(two)):
		score = score.Add(weightFull)
	case buyer.Balance.GreaterThanOrEqual(required):
		score = score.Add(weightPartial)
	default:
		score = score.Add(weightMinimal)
	}

	if path := e.network.ShortestPath(seller.ID, buyer.ID); len(path) > 0 {
		score = score.Add(one.Div(decimal.NewFromInt(int64(len(path)))).Mul(weightPath))
	}

	if ReferencePrice.GreaterThanOrEqual(minAcceptablePrice) &&
		ReferencePrice.LessThanOrEqual(maxAcceptablePrice) {
		score = score.Add(weightPrice)
	}

	return decimal.Min(score, one)
}
