package rates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoyield-vault/internal/domain"
)

func TestRouter_BestByAPY(t *testing.T) {
	best := DefaultRouter().BestByAPY()
	require.NotNil(t, best)
	assert.Equal(t, "Kamino Finance", best.Name)

	live := DefaultRouter().WithRates([]domain.RateEntry{
		{Protocol: "solend", APY: 6.0, Source: "solend-api"},
	})
	best = live.BestByAPY()
	require.NotNil(t, best)
	assert.Equal(t, "Solend", best.Name)
	assert.True(t, best.IsLive)

	assert.Nil(t, NewRouter(nil).BestByAPY())
}

func TestRouter_WithRatesLeavesOriginal(t *testing.T) {
	r := DefaultRouter()
	_ = r.WithRates([]domain.RateEntry{{Protocol: "tulip", APY: 20, Source: "defillama"}})
	assert.Equal(t, 8.5, r.SortedByAPY()[3].APY)
}

func TestRouter_BestForAmount(t *testing.T) {
	tests := []struct {
		name      string
		amount    float64
		want      string
		reasoning string
	}{
		{name: "below every minimum", amount: 0.5, want: ""},
		{name: "small deposit", amount: 2, want: "Marinade (mSOL)", reasoning: "Highest net APY after fees: 8.8"},
		{name: "francium unlocked", amount: 5, want: "Francium", reasoning: "Highest net APY after fees: 9.14%"},
		{name: "kamino unlocked", amount: 50, want: "Kamino Finance", reasoning: "Highest net APY after fees: 10.02%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			choice := DefaultRouter().BestForAmount(tt.amount)
			if tt.want == "" {
				assert.Nil(t, choice)
				return
			}
			require.NotNil(t, choice)
			assert.Equal(t, tt.want, choice.Aggregator.Name)
			assert.Contains(t, choice.Reasoning, tt.reasoning)
		})
	}
}

func TestRouter_BestForAmountDefaultChoice(t *testing.T) {
	r := NewRouter([]Aggregator{
		{Name: "Only", Protocol: "only", APY: 4, MinDeposit: 1},
		{Name: "Worse", Protocol: "worse", APY: 3, MinDeposit: 1},
	})
	choice := r.BestForAmount(10)
	require.NotNil(t, choice)
	assert.Equal(t, "Only", choice.Aggregator.Name)
	assert.Equal(t, "Default choice", choice.Reasoning)
	assert.Equal(t, 4.0, choice.NetAPY)
}

func TestRouter_RoutingInstructions(t *testing.T) {
	route := DefaultRouter().RoutingInstructions(100)
	require.NotNil(t, route)

	assert.Equal(t, "Kamino Finance", route.SelectedAggregator)
	assert.Equal(t, "10.02%", route.ExpectedAPY)
	assert.Equal(t, []string{
		"1. Approve 100 USDC for AutoYield contract",
		"2. AutoYield contract deposits USDC to Kamino Finance",
		"3. Kamino Finance creates concentrated liquidity positions",
		"4. Automatically manages and rebalances positions",
		"5. Maximize fee collection from active trading",
		"6. Monitor performance and withdraw anytime",
	}, route.Steps)
	assert.Equal(t, "~0.0040 SOL", route.GasEstimate)

	assert.Nil(t, DefaultRouter().RoutingInstructions(0.1))
}

func TestRouter_RoutingInstructionsMarinade(t *testing.T) {
	route := DefaultRouter().RoutingInstructions(2.5)
	require.NotNil(t, route)
	assert.Equal(t, "Marinade (mSOL)", route.SelectedAggregator)
	require.Len(t, route.Steps, 7)
	assert.Equal(t, "1. Approve 2.5 USDC for AutoYield contract", route.Steps[0])
	assert.Equal(t, "3. Convert USDC to SOL via Jupiter", route.Steps[2])
	assert.Equal(t, "7. Monitor performance and withdraw anytime", route.Steps[6])
	assert.Equal(t, "~0.0045 SOL", route.GasEstimate)
}

func TestRouter_SortedByAPY(t *testing.T) {
	sorted := DefaultRouter().SortedByAPY()
	names := make([]string, len(sorted))
	for i, a := range sorted {
		names[i] = a.Name
	}
	assert.Equal(t, []string{"Kamino Finance", "Francium", "Marinade (mSOL)", "Tulip Garden", "Solend"}, names)
}

func TestRouter_Recommendations(t *testing.T) {
	rec := DefaultRouter().Recommendations(50)
	require.NotNil(t, rec)
	assert.Equal(t, "Kamino Finance", rec.Best.Name)
	require.Len(t, rec.Alternatives, 2)
	assert.Equal(t, "Francium", rec.Alternatives[0].Name)
	assert.Equal(t, "Marinade (mSOL)", rec.Alternatives[1].Name)
	assert.Equal(t, []string{WarnSmallDeposit}, rec.Warnings)

	rec = DefaultRouter().Recommendations(50000)
	require.NotNil(t, rec)
	assert.Equal(t, []string{WarnLargeDeposit}, rec.Warnings)

	rec = DefaultRouter().Recommendations(500)
	require.NotNil(t, rec)
	assert.Empty(t, rec.Warnings)

	rec = NewRouter([]Aggregator{{Name: "Lab", Protocol: "experimental", APY: 30}}).Recommendations(500)
	require.NotNil(t, rec)
	assert.Equal(t, []string{WarnExperimental}, rec.Warnings)
	assert.Empty(t, rec.Alternatives)
}
