// Package scenario implements the synthetic fraud scenario overrides used
// for demonstrations and drills. A tagged scenario overrides the policy
// outcome after normal evaluation: the response shows what the engine would
// report for a live fraud ring or a behavioral takeover.
package scenario

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/anikabisht/Trace-Bank/internal/policy"
	"github.com/anikabisht/Trace-Bank/internal/risk"
	"github.com/anikabisht/Trace-Bank/internal/signals"
)

// Score floors applied by the overrides.
const (
	fraudRingFloor = 85.0
	anomalyFloor   = 75.0
)

// ringRoles are the roles assigned to fabricated ring members.
var ringRoles = []string{"mule", "coordinator", "beneficiary", "money_launderer", "recruiter"}

// RingMember is one account in a fabricated fraud ring.
type RingMember struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// RingAnalysis is the fraud-ring block attached to fraud_ring responses.
type RingAnalysis struct {
	RingID             string       `json:"ring_id"`
	RingSize           int          `json:"ring_size"`
	Members            []RingMember `json:"members"`
	SharedDevice       string       `json:"shared_device"`
	SharedIP           string       `json:"shared_ip"`
	Confidence         float64      `json:"confidence"` // 50-99
	RiskFactors        []string     `json:"risk_factors"`
	RecommendedActions []string     `json:"recommended_actions"`
}

// AnomalyAnalysis is the block attached to behavioral_anomaly responses.
type AnomalyAnalysis struct {
	AnomalyType         string   `json:"anomaly_type"` // robotic, unusual_timing, device_mismatch
	AnomalyScore        float64  `json:"anomaly_score"`
	DetectionConfidence float64  `json:"detection_confidence"` // capped at 95
	Indicators          []string `json:"indicators"`
	RecommendedActions  []string `json:"recommended_actions"`
}

// Override is the scenario's rewrite of a policy outcome.
type Override struct {
	Score      float64
	Decision   string
	Level      string
	Components risk.Components
	Ring       *RingAnalysis
	Anomaly    *AnomalyAnalysis
}

// Generator fabricates scenario analyses. Randomness only shapes the
// synthetic details (ring size, member ids); the override semantics are
// fixed.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a scenario generator.
func NewGenerator() *Generator {
	return &Generator{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404 -- synthetic demo data, not security
	}
}

// Apply rewrites the outcome for the given scenario tag. Normal evaluations
// pass through untouched. The override is unconditional for the two
// synthetic tags regardless of the organic score.
func (g *Generator) Apply(tag string, out policy.Outcome, comps risk.Components, snap signals.Snapshot, userID string, behaviorScore float64) Override {
	switch tag {
	case signals.ScenarioFraudRing:
		return g.fraudRing(out, comps, snap, userID)
	case signals.ScenarioBehavioralAnomaly:
		return g.anomaly(out, comps, snap, behaviorScore)
	default:
		return Override{
			Score:      out.Score,
			Decision:   out.Decision,
			Level:      out.Level,
			Components: comps,
		}
	}
}

func (g *Generator) fraudRing(out policy.Outcome, comps risk.Components, snap signals.Snapshot, userID string) Override {
	c := comps.Clone()
	c["fraud_ring"] = 40
	c["shared_device"] = 15
	c["shared_ip"] = 15

	score := out.Score
	if score < fraudRingFloor {
		score = fraudRingFloor
	}

	return Override{
		Score:      score,
		Decision:   policy.DecisionDeclined,
		Level:      policy.LevelFraudRing,
		Components: c,
		Ring:       g.fabricateRing(userID, snap),
	}
}

func (g *Generator) fabricateRing(userID string, snap signals.Snapshot) *RingAnalysis {
	g.mu.Lock()
	size := 5 + g.rng.Intn(4) // 5-8 members
	ringID := fmt.Sprintf("ring_%04x", g.rng.Intn(0x10000))
	members := make([]RingMember, 0, size)
	members = append(members, RingMember{UserID: userID, Role: ringRoles[0]})
	for i := 1; i < size; i++ {
		members = append(members, RingMember{
			UserID: fmt.Sprintf("user_%04d", g.rng.Intn(10000)),
			Role:   ringRoles[i%len(ringRoles)],
		})
	}
	g.mu.Unlock()

	roleSet := make(map[string]bool)
	for _, m := range members {
		roleSet[m.Role] = true
	}

	// Sharing evidence is worth 25 points; ring size and role diversity
	// add the rest, clamped to the 50-99 band.
	confidence := 25.0 + float64(size)*6 + float64(len(roleSet))*5
	if confidence < 50 {
		confidence = 50
	}
	if confidence > 99 {
		confidence = 99
	}

	return &RingAnalysis{
		RingID:       ringID,
		RingSize:     size,
		Members:      members,
		SharedDevice: snap.Device.DeviceID,
		SharedIP:     snap.IP.Address,
		Confidence:   confidence,
		RiskFactors: []string{
			fmt.Sprintf("%d accounts transacting from device %s", size, snap.Device.DeviceID),
			fmt.Sprintf("%d accounts sharing source address %s", size, snap.IP.Address),
			"coordinated transaction timing across member accounts",
			"funds converging on a single beneficiary account",
		},
		RecommendedActions: []string{
			"freeze all member accounts pending investigation",
			"file a suspicious activity report",
			"review the last 90 days of member transactions",
			"escalate to the financial crimes unit",
		},
	}
}

func (g *Generator) anomaly(out policy.Outcome, comps risk.Components, snap signals.Snapshot, behaviorScore float64) Override {
	c := comps.Clone()
	if c[risk.ComponentBehavior] < 25 {
		c[risk.ComponentBehavior] = 25
	}
	c["anomaly_detected"] = 20

	score := out.Score
	if score < anomalyFloor {
		score = anomalyFloor
	}

	return Override{
		Score:      score,
		Decision:   policy.DecisionDeclined,
		Level:      policy.LevelAnomaly,
		Components: c,
		Anomaly:    g.analyzeAnomaly(snap, behaviorScore),
	}
}

func (g *Generator) analyzeAnomaly(snap signals.Snapshot, behaviorScore float64) *AnomalyAnalysis {
	anomalyType := "device_mismatch"
	var indicators []string

	switch {
	case snap.Behavior.IsRobotic:
		anomalyType = "robotic"
		indicators = append(indicators,
			fmt.Sprintf("typing speed %.0f wpm exceeds human range", snap.Behavior.TypingSpeed),
			fmt.Sprintf("mouse consistency %.1f%% is machine-perfect", snap.Behavior.MouseConsistency),
			fmt.Sprintf("session lasted %.0f seconds", snap.Behavior.SessionDuration),
		)
	case snap.TimeContext.IsNight:
		anomalyType = "unusual_timing"
		indicators = append(indicators,
			fmt.Sprintf("transaction at %02d:%02d outside the user's active hours", snap.TimeContext.Hour, snap.TimeContext.Minute),
		)
	default:
		indicators = append(indicators,
			"session signals do not match the established device profile",
		)
	}

	score := behaviorScore
	if score < anomalyFloor {
		score = anomalyFloor
	}
	confidence := 60 + score/3
	if confidence > 95 {
		confidence = 95
	}

	return &AnomalyAnalysis{
		AnomalyType:         anomalyType,
		AnomalyScore:        score,
		DetectionConfidence: confidence,
		Indicators:          indicators,
		RecommendedActions: []string{
			"decline the transaction",
			"force a step-up authentication challenge",
			"invalidate active sessions for this account",
			"notify the account holder through a verified channel",
		},
	}
}
