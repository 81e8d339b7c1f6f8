package rates

import (
	"fmt"
	"sort"
	"strconv"

	"autoyield-vault/internal/domain"
)

// Aggregator is a yield destination the router can recommend.
type Aggregator struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Protocol    string  `json:"protocol"`
	Address     string  `json:"address,omitempty"`
	APY         float64 `json:"apy"`
	MinDeposit  float64 `json:"minDeposit,omitempty"`
	Fees        float64 `json:"fees,omitempty"` // percent of APY
	IsLive      bool    `json:"isLive"`
}

// DefaultAggregators are the destinations known without live data.
var DefaultAggregators = []Aggregator{
	{Name: "Tulip Garden", Description: "USDC yield vaults", Protocol: "tulip", APY: 8.5, MinDeposit: 1, Fees: 0.4,
		Address: "TuLipcqtGVXP9XR62wM8WWCm6a9vhLs7T1uoWBk6FDs"},
	{Name: "Francium", Description: "USDC LP farming", Protocol: "francium", APY: 9.2, MinDeposit: 5, Fees: 0.6,
		Address: "FC81tbGt6JWRXidaWYFXxGnTk4VgobhJHATvTRVMqgWj"},
	{Name: "Kamino Finance", Description: "Concentrated liquidity", Protocol: "kamino", APY: 10.1, MinDeposit: 10, Fees: 0.8,
		Address: "KLend2g3cP87fffoy8q1mQqGKjrxjC8boSyAYavgmjD"},
	{Name: "Solend", Description: "USDC lending", Protocol: "solend", APY: 7.8, MinDeposit: 1, Fees: 0.3,
		Address: "So1endDq2YkqhipRh3WViPa8hdiSpxWy6z3Z6tMCpAo"},
	{Name: "Marinade (mSOL)", Description: "Liquid staking via USDC→SOL→mSOL", Protocol: "marinade", APY: 8.9, MinDeposit: 1, Fees: 0.5,
		Address: "MarBmsSgKXdrN1egZf5sqe1TMai9K1rChYNDJgjq7aD"},
}

// Warnings attached to recommendations.
const (
	WarnSmallDeposit = "Small deposits may have proportionally higher gas costs"
	WarnLargeDeposit = "Large deposits should consider risk diversification"
	WarnExperimental = "This aggregator uses experimental strategies - higher risk"
)

// Router ranks aggregators by yield.
type Router struct {
	aggregators []Aggregator
}

// NewRouter creates a router over aggregators.
func NewRouter(aggregators []Aggregator) *Router {
	return &Router{aggregators: append([]Aggregator(nil), aggregators...)}
}

// DefaultRouter creates a router over DefaultAggregators.
func DefaultRouter() *Router {
	return NewRouter(DefaultAggregators)
}

// WithRates returns a router whose aggregators carry the APY and liveness
// of the matching protocol in rates.
func (r *Router) WithRates(rates []domain.RateEntry) *Router {
	byProtocol := make(map[string]domain.RateEntry, len(rates))
	for _, e := range rates {
		byProtocol[e.Protocol] = e
	}
	out := NewRouter(r.aggregators)
	for i := range out.aggregators {
		if e, ok := byProtocol[out.aggregators[i].Protocol]; ok {
			out.aggregators[i].APY = e.APY
			out.aggregators[i].IsLive = e.IsLive()
		}
	}
	return out
}

// BestByAPY returns the highest positive APY, preferring live figures.
func (r *Router) BestByAPY() *Aggregator {
	var best, bestLive *Aggregator
	for i := range r.aggregators {
		a := &r.aggregators[i]
		if a.APY <= 0 {
			continue
		}
		if best == nil || a.APY > best.APY {
			best = a
		}
		if a.IsLive && (bestLive == nil || a.APY > bestLive.APY) {
			bestLive = a
		}
	}
	if bestLive != nil {
		best = bestLive
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

// Choice is the aggregator selected for a deposit.
type Choice struct {
	Aggregator Aggregator `json:"aggregator"`
	NetAPY     float64    `json:"netApy"`
	Reasoning  string     `json:"reasoning"`
}

// BestForAmount picks the highest APY net of fees among aggregators whose
// minimum deposit amount satisfies.
func (r *Router) BestForAmount(amount float64) *Choice {
	var choice *Choice
	for _, a := range r.aggregators {
		if a.MinDeposit > 0 && amount < a.MinDeposit {
			continue
		}
		net := netAPY(a)
		switch {
		case choice == nil:
			choice = &Choice{Aggregator: a, NetAPY: net, Reasoning: "Default choice"}
		case net > choice.NetAPY:
			choice = &Choice{
				Aggregator: a,
				NetAPY:     net,
				Reasoning:  fmt.Sprintf("Highest net APY after fees: %.2f%%", net),
			}
		}
	}
	return choice
}

func netAPY(a Aggregator) float64 {
	return a.APY * (1 - a.Fees/100)
}

// Route describes how a deposit reaches the selected aggregator.
type Route struct {
	SelectedAggregator string   `json:"selectedAggregator"`
	ExpectedAPY        string   `json:"expectedApy"`
	Steps              []string `json:"route"`
	GasEstimate        string   `json:"gasEstimate"`
	Reasoning          string   `json:"reasoning"`
}

// RoutingInstructions returns the route for amount, or nil when no
// aggregator accepts it.
func (r *Router) RoutingInstructions(amount float64) *Route {
	choice := r.BestForAmount(amount)
	if choice == nil {
		return nil
	}
	steps := routeSteps(choice.Aggregator, amount)
	return &Route{
		SelectedAggregator: choice.Aggregator.Name,
		ExpectedAPY:        fmt.Sprintf("%.2f%%", choice.NetAPY),
		Steps:              steps,
		GasEstimate:        estimateGas(steps),
		Reasoning:          choice.Reasoning,
	}
}

func routeSteps(a Aggregator, amount float64) []string {
	amt := strconv.FormatFloat(amount, 'f', -1, 64)
	steps := []string{
		fmt.Sprintf("1. Approve %s USDC for AutoYield contract", amt),
		fmt.Sprintf("2. AutoYield contract deposits USDC to %s", a.Name),
	}

	switch a.Protocol {
	case "tulip":
		steps = append(steps,
			fmt.Sprintf("3. %s deploys USDC to yield vaults", a.Name),
			"4. Earn rewards from automated strategies",
			"5. Receive yUSDC tokens representing your share")
	case "francium":
		steps = append(steps,
			fmt.Sprintf("3. %s provides USDC to LP farming", a.Name),
			"4. Earn fees and rewards from liquidity provision",
			"5. Auto-compound returns back to USDC")
	case "kamino":
		steps = append(steps,
			fmt.Sprintf("3. %s creates concentrated liquidity positions", a.Name),
			"4. Automatically manages and rebalances positions",
			"5. Maximize fee collection from active trading")
	case "solend":
		steps = append(steps,
			fmt.Sprintf("3. %s lends USDC to borrowers", a.Name),
			"4. Earn interest from lending activities",
			"5. Receive cUSDC tokens with accumulated interest")
	case "marinade":
		steps = append(steps,
			"3. Convert USDC to SOL via Jupiter",
			fmt.Sprintf("4. %s stakes SOL for mSOL", a.Name),
			"5. Earn staking rewards from Solana network",
			"6. Auto-compound via liquid staking")
	default:
		steps = append(steps,
			fmt.Sprintf("3. %s deploys capital to yield strategies", a.Name),
			"4. Receive yUSDC tokens with yield exposure")
	}

	return append(steps, fmt.Sprintf("%d. Monitor performance and withdraw anytime", len(steps)+1))
}

// estimateGas is a flat per-step estimate in SOL.
func estimateGas(steps []string) string {
	const (
		baseGas    = 0.001
		perStepGas = 0.0005
	)
	return fmt.Sprintf("~%.4f SOL", baseGas+float64(len(steps))*perStepGas)
}

// SortedByAPY returns all aggregators, highest APY first.
func (r *Router) SortedByAPY() []Aggregator {
	out := append([]Aggregator(nil), r.aggregators...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].APY > out[j].APY })
	return out
}

// Recommendation is the best aggregator for a deposit with alternatives.
type Recommendation struct {
	Best         Aggregator   `json:"best"`
	Alternatives []Aggregator `json:"alternatives"`
	Warnings     []string     `json:"warnings"`
}

// Recommendations returns the best choice for amount, the two highest-APY
// alternatives and size warnings.
func (r *Router) Recommendations(amount float64) *Recommendation {
	choice := r.BestForAmount(amount)
	if choice == nil {
		return nil
	}

	alternatives := make([]Aggregator, 0, 2)
	for _, a := range r.SortedByAPY() {
		if a.Name == choice.Aggregator.Name {
			continue
		}
		alternatives = append(alternatives, a)
		if len(alternatives) == 2 {
			break
		}
	}

	warnings := []string{}
	if amount < 100 {
		warnings = append(warnings, WarnSmallDeposit)
	}
	if amount > 10000 {
		warnings = append(warnings, WarnLargeDeposit)
	}
	if choice.Aggregator.Protocol == "experimental" {
		warnings = append(warnings, WarnExperimental)
	}

	return &Recommendation{
		Best:         choice.Aggregator,
		Alternatives: alternatives,
		Warnings:     warnings,
	}
}
