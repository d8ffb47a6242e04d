// Package policy holds the decision thresholds and maps risk scores to
// decisions and risk levels.
package policy

import (
	"errors"
	"math"
	"sync"
)

// Decisions.
const (
	DecisionApproved      = "APPROVED"
	DecisionPendingReview = "PENDING_REVIEW"
	DecisionDeclined      = "DECLINED"
)

// Risk levels. The first five are fixed score bands; the last two are
// forced by scenario overrides.
const (
	LevelLow          = "LOW_RISK"
	LevelMediumLow    = "MEDIUM_LOW"
	LevelMediumHigh   = "MEDIUM_HIGH"
	LevelHigh         = "HIGH_RISK"
	LevelVeryHigh     = "VERY_HIGH_RISK"
	LevelFraudRing    = "FRAUD_DETECTED"
	LevelAnomaly      = "ANOMALY_DETECTED"
)

// Default thresholds.
const (
	DefaultReviewCutoff = 40.0
	DefaultBlockCutoff  = 60.0
)

// ErrInvalidThresholds is returned when an update violates
// 0 <= review < block <= 100.
var ErrInvalidThresholds = errors.New("policy: thresholds must satisfy 0 <= review < block <= 100")

// Thresholds is a consistent snapshot of the policy cutoffs.
type Thresholds struct {
	ReviewCutoff float64 `json:"review_cutoff"`
	BlockCutoff  float64 `json:"block_cutoff"`
}

// Outcome is the result of evaluating a score against the policy.
type Outcome struct {
	Score    float64 `json:"score"`
	Decision string  `json:"decision"`
	Level    string  `json:"level"`
}

// Policy maps scores to decisions. One instance is constructed at startup
// and shared by reference; threshold updates are visible to in-flight
// traffic without a restart.
type Policy struct {
	mu     sync.RWMutex
	review float64
	block  float64
}

// New creates a policy with the default thresholds.
func New() *Policy {
	return &Policy{review: DefaultReviewCutoff, block: DefaultBlockCutoff}
}

// Snapshot returns a consistent view of both cutoffs.
func (p *Policy) Snapshot() Thresholds {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Thresholds{ReviewCutoff: p.review, BlockCutoff: p.block}
}

// Update atomically replaces both cutoffs. Both change together or neither
// does.
func (p *Policy) Update(review, block float64) error {
	if math.IsNaN(review) || math.IsNaN(block) {
		return ErrInvalidThresholds
	}
	if review < 0 || review >= block || block > 100 {
		return ErrInvalidThresholds
	}
	p.mu.Lock()
	p.review = review
	p.block = block
	p.mu.Unlock()
	return nil
}

// Evaluate maps a score to a decision and risk level. Scores outside
// [0,100], NaN, or infinite are clamped first; evaluation never errors.
func (p *Policy) Evaluate(score float64) Outcome {
	score = sanitize(score)

	p.mu.RLock()
	review, block := p.review, p.block
	p.mu.RUnlock()

	decision := DecisionApproved
	switch {
	case score >= block:
		decision = DecisionDeclined
	case score >= review:
		decision = DecisionPendingReview
	}

	return Outcome{Score: score, Decision: decision, Level: Level(score)}
}

// Level maps a score to its fixed risk band. Bands do not move with
// threshold updates.
func Level(score float64) string {
	score = sanitize(score)
	switch {
	case score < 20:
		return LevelLow
	case score < 40:
		return LevelMediumLow
	case score < 60:
		return LevelMediumHigh
	case score < 80:
		return LevelHigh
	default:
		return LevelVeryHigh
	}
}

func sanitize(score float64) float64 {
	if math.IsNaN(score) {
		return 0
	}
	if score < 0 {
		return 0
	}
	if score > 100 || math.IsInf(score, 1) {
		return 100
	}
	return score
}
