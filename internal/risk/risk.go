// Package risk computes per-component transaction risk and aggregates it
// into a single score.
package risk

import (
	"math"

	"github.com/anikabisht/Trace-Bank/internal/signals"
)

// Base component keys. Every evaluation response carries all six, zero or
// not; scenario layers may inject additional keys on top.
const (
	ComponentAmount   = "amount"
	ComponentLocation = "location"
	ComponentMerchant = "merchant"
	ComponentTime     = "time"
	ComponentBehavior = "behavior"
	ComponentVelocity = "velocity"
)

// BaseComponents lists the six always-present component keys.
var BaseComponents = []string{
	ComponentAmount, ComponentLocation, ComponentMerchant,
	ComponentTime, ComponentBehavior, ComponentVelocity,
}

// Components maps component name to its risk contribution.
type Components map[string]float64

// Clone returns a copy of the component map.
func (c Components) Clone() Components {
	out := make(Components, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// merchantRisk is the fixed per-category contribution. Unlisted categories
// score as unknown.
var merchantRisk = map[string]float64{
	"gambling":       10,
	"cryptocurrency": 8,
	"electronics":    5,
	"retail":         2,
	"restaurants":    2,
	"groceries":      1,
}

const unknownMerchantRisk = 3

// HighAmountThreshold triggers the aggregator's score override.
const HighAmountThreshold = 250000

// Inputs are the signals feeding the component calculator.
type Inputs struct {
	Amount           float64
	MerchantCategory string
	Snapshot         signals.Snapshot
	HistoryAmounts   []float64 // user's prior amounts, oldest first
	VPNProbability   float64   // 0-1
	BehaviorScore    float64   // 0-100 anomaly score
	VelocityCount    int       // user's entries among the 100 most recent global entries
}

// Calculate produces the six base risk components. Each value is rounded
// to one decimal; aggregation sums the rounded values.
func Calculate(in Inputs) Components {
	c := Components{
		ComponentAmount:   amountRisk(in.Amount, in.HistoryAmounts),
		ComponentLocation: math.Min(15, in.VPNProbability*20),
		ComponentMerchant: merchantComponent(in.MerchantCategory),
		ComponentTime:     timeRisk(in.Snapshot.TimeContext),
		ComponentBehavior: behaviorRisk(in.BehaviorScore),
		ComponentVelocity: velocityRisk(in.VelocityCount),
	}
	for k, v := range c {
		c[k] = Round1(v)
	}
	return c
}

// amountRisk scores the transaction amount against the user's history.
// Without history the amount alone drives it, one point per 500 units
// capped at 20. With history the ratio to the historical average drives it:
// at or below average is zero, up to double grows linearly to 10, beyond
// double jumps to the 30-point maximum.
func amountRisk(amount float64, history []float64) float64 {
	avg := average(history)
	if avg <= 0 {
		return math.Min(20, amount/500)
	}
	ratio := amount / avg
	switch {
	case ratio <= 1:
		return 0
	case ratio <= 2:
		return (ratio - 1) * 10
	default:
		return 30
	}
}

func merchantComponent(category string) float64 {
	if r, ok := merchantRisk[category]; ok {
		return r
	}
	return unknownMerchantRisk
}

func timeRisk(tc signals.TimeContext) float64 {
	if tc.IsNight {
		return 2
	}
	return 0
}

func behaviorRisk(score float64) float64 {
	return clamp((score-40)/5, 0, 10)
}

func velocityRisk(count int) float64 {
	if count <= 5 {
		return 0
	}
	return math.Min(10, float64(count-5)/5)
}

// Aggregate combines components into the final score. Amounts at or above
// HighAmountThreshold bypass the sum: the score is pinned at 65 with a
// fixed replacement breakdown. Otherwise the score is the sum of the base
// components clamped to [0,100].
func Aggregate(c Components, amount float64) (float64, Components) {
	if amount >= HighAmountThreshold {
		return 65.0, Components{
			ComponentAmount:   40,
			ComponentLocation: 5,
			ComponentTime:     5,
			ComponentMerchant: 5,
			ComponentBehavior: 5,
			ComponentVelocity: 5,
		}
	}

	var sum float64
	for _, k := range BaseComponents {
		sum += c[k]
	}
	return clamp(Round1(sum), 0, 100), c
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func average(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
