package explain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anikabisht/Trace-Bank/internal/policy"
	"github.com/anikabisht/Trace-Bank/internal/risk"
)

func TestApprovalExplanations(t *testing.T) {
	customer, bank := Counterfactuals(Input{
		Score: 10,
		Components: risk.Components{
			risk.ComponentAmount:   2,
			risk.ComponentLocation: 4,
			risk.ComponentBehavior: 0,
			risk.ComponentVelocity: 0,
		},
		Amount: 500,
	})

	require.Len(t, customer, 1)
	assert.Equal(t, "overall", customer[0].Factor)
	assert.LessOrEqual(t, len(bank), 4)
	for _, b := range bank {
		assert.Equal(t, "no action", b.Suggested)
	}
}

func TestDeclineSuggestionsPerElevatedComponent(t *testing.T) {
	customer, bank := Counterfactuals(Input{
		Score: 70,
		Components: risk.Components{
			risk.ComponentAmount:   30,
			risk.ComponentLocation: 12,
			risk.ComponentBehavior: 9,
			risk.ComponentMerchant: 10,
			risk.ComponentVelocity: 8,
		},
		Amount:         50000,
		HistoryAmounts: []float64{1000, 1000},
	})

	assert.Len(t, customer, 2, "customer suggestions capped at two")
	assert.Len(t, bank, 4, "bank suggestions capped at four")

	factors := make(map[string]bool)
	for _, b := range bank {
		factors[b.Factor] = true
	}
	assert.True(t, factors["amount"])
	assert.True(t, factors["location"])
}

func TestDeclineCustomerFallbackContactSupport(t *testing.T) {
	// Elevated score but no individually actionable component for the
	// customer: velocity is bank-only.
	customer, bank := Counterfactuals(Input{
		Score: 65,
		Components: risk.Components{
			risk.ComponentVelocity: 10,
		},
		Amount: 100,
	})

	require.Len(t, customer, 1)
	assert.Equal(t, "support", customer[0].Factor)
	require.Len(t, bank, 1)
	assert.Equal(t, "velocity", bank[0].Factor)
}

func TestOptimalAmountFromHistory(t *testing.T) {
	// 1.5x the average of the last 10 amounts.
	history := []float64{100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 200}
	got := optimalAmount(5000, history)
	// Last ten: nine 100s and one 200 -> avg 110 -> 165.
	assert.InDelta(t, 165.0, got, 1e-9)
}

func TestOptimalAmountNoHistory(t *testing.T) {
	assert.Equal(t, 2500.0, optimalAmount(5000, nil))
}

func TestLocationCustomerThresholdStricterThanBank(t *testing.T) {
	customer, bank := Counterfactuals(Input{
		Score:      62,
		Components: risk.Components{risk.ComponentLocation: 8},
		Amount:     100,
	})

	// 8 is over the bank threshold (5) but under the customer one (10).
	require.Len(t, bank, 1)
	assert.Equal(t, "location", bank[0].Factor)
	require.Len(t, customer, 1)
	assert.Equal(t, "support", customer[0].Factor)
}

func TestChurnDeclined(t *testing.T) {
	ci := Churn(policy.DecisionDeclined, 80, 1000)

	assert.Equal(t, "40.0%", ci.ChurnProbability)
	assert.Equal(t, 400.0, ci.RevenueAtRisk)
	assert.Equal(t, 60.0, ci.RetentionScore)
	assert.Contains(t, ci.Recommendation, "proactive outreach")
}

func TestChurnDeclinedCappedAtHalf(t *testing.T) {
	ci := Churn(policy.DecisionDeclined, 100, 2000)
	assert.Equal(t, "50.0%", ci.ChurnProbability)
	assert.Equal(t, 1000.0, ci.RevenueAtRisk)
}

func TestChurnLowScoreDeclineStandardNotification(t *testing.T) {
	ci := Churn(policy.DecisionDeclined, 30, 1000)
	assert.Equal(t, "15.0%", ci.ChurnProbability)
	assert.Equal(t, "standard decline notification", ci.Recommendation)
}

func TestChurnApprovedBackgroundRate(t *testing.T) {
	for _, d := range []string{policy.DecisionApproved, policy.DecisionPendingReview} {
		ci := Churn(d, 55, 1000)
		assert.Equal(t, "2.0%", ci.ChurnProbability, d)
		assert.Zero(t, ci.RevenueAtRisk, d)
		assert.Equal(t, 98.0, ci.RetentionScore, d)
	}
}
