// Package explain turns a risk evaluation into human-readable explanations:
// counterfactual suggestions for the customer and the bank, and the churn
// impact of a decline.
package explain

import (
	"fmt"

	"github.com/anikabisht/Trace-Bank/internal/policy"
	"github.com/anikabisht/Trace-Bank/internal/risk"
)

// declineCutoff separates approval explanations from decline suggestions.
const declineCutoff = 60.0

// Caps on explanation list lengths.
const (
	maxCustomer = 2
	maxBank     = 4
)

// Counterfactual is a customer-facing suggestion.
type Counterfactual struct {
	Factor     string `json:"factor"`
	Suggestion string `json:"suggestion"`
}

// BankCounterfactual is an analyst-facing suggestion with quantified impact.
type BankCounterfactual struct {
	Factor     string  `json:"factor"`
	Current    string  `json:"current"`
	Suggested  string  `json:"suggested"`
	Impact     string  `json:"impact"`
	Confidence float64 `json:"confidence"`
}

// ChurnImpact estimates the customer relationship cost of a decision.
type ChurnImpact struct {
	ChurnProbability string  `json:"churn_probability"` // formatted percentage
	RevenueAtRisk    float64 `json:"revenue_at_risk"`
	RetentionScore   float64 `json:"retention_score"` // 0-100
	Recommendation   string  `json:"recommendation"`
}

// Input carries what the counterfactual generator needs.
type Input struct {
	Score          float64
	Components     risk.Components
	Amount         float64
	HistoryAmounts []float64
}

// Counterfactuals generates up to two customer suggestions and up to four
// bank suggestions. Below the decline cutoff the lists explain why the
// transaction passed; at or above it each elevated component contributes a
// suggestion, with a contact-support fallback when nothing actionable
// remains for the customer.
func Counterfactuals(in Input) ([]Counterfactual, []BankCounterfactual) {
	if in.Score < declineCutoff {
		return approvalExplanations(in)
	}
	return declineSuggestions(in)
}

func approvalExplanations(in Input) ([]Counterfactual, []BankCounterfactual) {
	customer := []Counterfactual{{
		Factor:     "overall",
		Suggestion: "Transaction fits your normal pattern and was processed without friction.",
	}}

	var bank []BankCounterfactual
	positives := []struct {
		key     string
		current string
		note    string
	}{
		{risk.ComponentAmount, fmt.Sprintf("amount risk %.1f", in.Components[risk.ComponentAmount]), "amount consistent with user history"},
		{risk.ComponentLocation, fmt.Sprintf("location risk %.1f", in.Components[risk.ComponentLocation]), "connection from a trusted network"},
		{risk.ComponentBehavior, fmt.Sprintf("behavior risk %.1f", in.Components[risk.ComponentBehavior]), "session biometrics match the user baseline"},
		{risk.ComponentVelocity, fmt.Sprintf("velocity risk %.1f", in.Components[risk.ComponentVelocity]), "transaction frequency within normal bounds"},
	}
	for _, p := range positives {
		if in.Components[p.key] < 5 && len(bank) < maxBank {
			bank = append(bank, BankCounterfactual{
				Factor:     p.key,
				Current:    p.current,
				Suggested:  "no action",
				Impact:     p.note,
				Confidence: 90,
			})
		}
	}
	return customer, bank
}

func declineSuggestions(in Input) ([]Counterfactual, []BankCounterfactual) {
	var customer []Counterfactual
	var bank []BankCounterfactual

	if in.Components[risk.ComponentAmount] > 5 {
		optimal := optimalAmount(in.Amount, in.HistoryAmounts)
		customer = append(customer, Counterfactual{
			Factor:     "amount",
			Suggestion: fmt.Sprintf("An amount up to %.2f would be within your usual spending range.", optimal),
		})
		bank = append(bank, BankCounterfactual{
			Factor:     "amount",
			Current:    fmt.Sprintf("%.2f requested", in.Amount),
			Suggested:  fmt.Sprintf("approve up to %.2f", optimal),
			Impact:     fmt.Sprintf("removes %.1f risk points", in.Components[risk.ComponentAmount]),
			Confidence: 85,
		})
	}

	if loc := in.Components[risk.ComponentLocation]; loc > 5 {
		bank = append(bank, BankCounterfactual{
			Factor:     "location",
			Current:    fmt.Sprintf("location risk %.1f, likely tunneled connection", loc),
			Suggested:  "verify via registered device on home network",
			Impact:     fmt.Sprintf("removes %.1f risk points", loc),
			Confidence: 70,
		})
		if loc > 10 {
			customer = append(customer, Counterfactual{
				Factor:     "location",
				Suggestion: "Retry from your usual network without a VPN or proxy.",
			})
		}
	}

	if b := in.Components[risk.ComponentBehavior]; b > 5 {
		bank = append(bank, BankCounterfactual{
			Factor:     "behavior",
			Current:    fmt.Sprintf("behavior risk %.1f, session deviates from baseline", b),
			Suggested:  "step-up authentication before approval",
			Impact:     fmt.Sprintf("removes %.1f risk points", b),
			Confidence: 65,
		})
		if b > 8 {
			customer = append(customer, Counterfactual{
				Factor:     "behavior",
				Suggestion: "Complete the transaction at your usual pace from a device you have used before.",
			})
		}
	}

	if m := in.Components[risk.ComponentMerchant]; m > 5 {
		customer = append(customer, Counterfactual{
			Factor:     "merchant",
			Suggestion: "High-risk merchant category. A verified merchant in this category may still require review.",
		})
		bank = append(bank, BankCounterfactual{
			Factor:     "merchant",
			Current:    fmt.Sprintf("merchant risk %.1f", m),
			Suggested:  "allow with enhanced monitoring for this category",
			Impact:     fmt.Sprintf("removes %.1f risk points", m),
			Confidence: 60,
		})
	}

	if v := in.Components[risk.ComponentVelocity]; v > 3 {
		bank = append(bank, BankCounterfactual{
			Factor:     "velocity",
			Current:    fmt.Sprintf("velocity risk %.1f, burst of recent transactions", v),
			Suggested:  "apply a short cool-down window instead of a hard decline",
			Impact:     fmt.Sprintf("removes %.1f risk points", v),
			Confidence: 75,
		})
	}

	if len(customer) == 0 {
		customer = append(customer, Counterfactual{
			Factor:     "support",
			Suggestion: "Please contact support to verify your identity and release this transaction.",
		})
	}

	if len(customer) > maxCustomer {
		customer = customer[:maxCustomer]
	}
	if len(bank) > maxBank {
		bank = bank[:maxBank]
	}
	return customer, bank
}

// optimalAmount suggests a spend ceiling: one and a half times the average
// of the last ten historical amounts, or half the requested amount when
// there is no history.
func optimalAmount(amount float64, history []float64) float64 {
	if len(history) == 0 {
		return amount * 0.5
	}
	recent := history
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}
	var sum float64
	for _, a := range recent {
		sum += a
	}
	return (sum / float64(len(recent))) * 1.5
}

// Churn estimates the churn impact of a decision. Declines risk losing the
// customer in proportion to how aggressive the score was; approvals and
// reviews carry a small background rate with no revenue at risk.
func Churn(decision string, score, userValue float64) ChurnImpact {
	if decision != policy.DecisionDeclined {
		return ChurnImpact{
			ChurnProbability: "2.0%",
			RevenueAtRisk:    0,
			RetentionScore:   98,
			Recommendation:   "no retention action needed",
		}
	}

	p := score / 100 * 0.5
	if p > 0.5 {
		p = 0.5
	}

	rec := "standard decline notification"
	if p > 0.2 {
		rec = "proactive outreach: offer manual review to retain this customer"
	}

	return ChurnImpact{
		ChurnProbability: fmt.Sprintf("%.1f%%", p*100),
		RevenueAtRisk:    risk.Round1(p * userValue),
		RetentionScore:   risk.Round1((1 - p) * 100),
		Recommendation:   rec,
	}
}
