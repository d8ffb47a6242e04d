// Package ml provides the scoring collaborators used by the risk pipeline:
// VPN detection, behavioral analysis, and fraud-ring detection. The current
// implementations are deterministic heuristics behind real interfaces so
// trained models can replace them without touching the pipeline.
package ml

import (
	"math"

	"github.com/anikabisht/Trace-Bank/internal/signals"
)

// VPNDetector estimates the probability that a connection is tunneled.
type VPNDetector interface {
	DetectVPN(ip signals.IPInfo, loc signals.Location) float64
}

// BehaviorAnalyzer scores session biometrics for anomaly.
type BehaviorAnalyzer interface {
	AnalyzeBehavior(b signals.Behavior) (score float64, reasons []string)
}

// RingSignal is the fraud-ring detector's verdict for one evaluation.
type RingSignal struct {
	SuspicionScore   float64  `json:"suspicion_score"` // 0-100
	SharedDeviceUsers []string `json:"shared_device_users,omitempty"`
	SharedIPUsers     []string `json:"shared_ip_users,omitempty"`
}

// RingDetector tracks device and IP sharing across users.
type RingDetector interface {
	DetectRing(userID, ip, deviceID string) RingSignal
}

// HeuristicVPN estimates VPN probability from address class and location
// confidence.
type HeuristicVPN struct{}

// NewHeuristicVPN creates the heuristic VPN detector.
func NewHeuristicVPN() *HeuristicVPN { return &HeuristicVPN{} }

// DetectVPN returns a probability in [0,1]. Private-range addresses and
// unresolvable locations raise the estimate above the base rate.
func (d *HeuristicVPN) DetectVPN(ip signals.IPInfo, loc signals.Location) float64 {
	p := 0.2
	if ip.IsPrivate {
		p += 0.1
	}
	if loc.Source == "fallback" {
		p += 0.15
	}
	return math.Min(p, 1.0)
}

// HeuristicBehavior scores biometric bundles against human norms.
type HeuristicBehavior struct{}

// NewHeuristicBehavior creates the heuristic behavior analyzer.
func NewHeuristicBehavior() *HeuristicBehavior { return &HeuristicBehavior{} }

// AnalyzeBehavior returns an anomaly score in [0,100] and the reasons that
// contributed to it.
func (a *HeuristicBehavior) AnalyzeBehavior(b signals.Behavior) (float64, []string) {
	var score float64
	var reasons []string

	if b.IsRobotic {
		score += 50
		reasons = append(reasons, "robotic interaction pattern")
	}
	if b.TypingSpeed > 150 {
		score += 25
		reasons = append(reasons, "typing speed beyond human range")
	} else if b.TypingSpeed > 0 && b.TypingSpeed < 10 {
		score += 10
		reasons = append(reasons, "abnormally slow typing")
	}
	if b.MouseConsistency > 99 {
		score += 15
		reasons = append(reasons, "machine-perfect mouse movement")
	} else if b.MouseConsistency > 0 && b.MouseConsistency < 30 {
		score += 10
		reasons = append(reasons, "erratic mouse movement")
	}
	if b.SessionDuration > 0 && b.SessionDuration < 10 {
		score += 10
		reasons = append(reasons, "session too short for a considered purchase")
	}

	return math.Min(score, 100), reasons
}
