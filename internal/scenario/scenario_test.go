package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anikabisht/Trace-Bank/internal/policy"
	"github.com/anikabisht/Trace-Bank/internal/risk"
	"github.com/anikabisht/Trace-Bank/internal/signals"
)

func baseComponents() risk.Components {
	return risk.Components{
		risk.ComponentAmount:   2,
		risk.ComponentLocation: 4,
		risk.ComponentMerchant: 2,
		risk.ComponentTime:     0,
		risk.ComponentBehavior: 0,
		risk.ComponentVelocity: 0,
	}
}

func testSnapshot() signals.Snapshot {
	return signals.Snapshot{
		IP:     signals.IPInfo{Address: "203.0.113.9"},
		Device: signals.Device{DeviceID: "device_abc123"},
	}
}

func TestApplyNormalPassesThrough(t *testing.T) {
	g := NewGenerator()
	out := policy.Outcome{Score: 8, Decision: policy.DecisionApproved, Level: policy.LevelLow}
	comps := baseComponents()

	ov := g.Apply(signals.ScenarioNormal, out, comps, testSnapshot(), "user_001", 0)

	assert.Equal(t, 8.0, ov.Score)
	assert.Equal(t, policy.DecisionApproved, ov.Decision)
	assert.Equal(t, policy.LevelLow, ov.Level)
	assert.Nil(t, ov.Ring)
	assert.Nil(t, ov.Anomaly)
	assert.Equal(t, comps, ov.Components)
}

func TestApplyFraudRingOverride(t *testing.T) {
	g := NewGenerator()
	out := policy.Outcome{Score: 8, Decision: policy.DecisionApproved, Level: policy.LevelLow}

	ov := g.Apply(signals.ScenarioFraudRing, out, baseComponents(), testSnapshot(), "user_001", 0)

	assert.Equal(t, 85.0, ov.Score)
	assert.Equal(t, policy.DecisionDeclined, ov.Decision)
	assert.Equal(t, policy.LevelFraudRing, ov.Level)
	assert.Equal(t, 40.0, ov.Components["fraud_ring"])
	assert.Equal(t, 15.0, ov.Components["shared_device"])
	assert.Equal(t, 15.0, ov.Components["shared_ip"])

	require.NotNil(t, ov.Ring)
	assert.GreaterOrEqual(t, ov.Ring.RingSize, 5)
	assert.LessOrEqual(t, ov.Ring.RingSize, 8)
	assert.Len(t, ov.Ring.Members, ov.Ring.RingSize)
	assert.Equal(t, "user_001", ov.Ring.Members[0].UserID)
	assert.GreaterOrEqual(t, ov.Ring.Confidence, 50.0)
	assert.LessOrEqual(t, ov.Ring.Confidence, 99.0)
	assert.Equal(t, "device_abc123", ov.Ring.SharedDevice)
	assert.NotEmpty(t, ov.Ring.RiskFactors)
	assert.NotEmpty(t, ov.Ring.RecommendedActions)
}

func TestApplyFraudRingKeepsHigherOrganicScore(t *testing.T) {
	g := NewGenerator()
	out := policy.Outcome{Score: 92, Decision: policy.DecisionDeclined, Level: policy.LevelVeryHigh}

	ov := g.Apply(signals.ScenarioFraudRing, out, baseComponents(), testSnapshot(), "user_001", 0)
	assert.Equal(t, 92.0, ov.Score)
}

func TestRingMemberRolesFromFixedSet(t *testing.T) {
	g := NewGenerator()
	valid := map[string]bool{
		"mule": true, "coordinator": true, "beneficiary": true,
		"money_launderer": true, "recruiter": true,
	}
	for i := 0; i < 20; i++ {
		ov := g.Apply(signals.ScenarioFraudRing, policy.Outcome{}, baseComponents(), testSnapshot(), "u", 0)
		for _, m := range ov.Ring.Members {
			assert.True(t, valid[m.Role], "unexpected role %q", m.Role)
		}
	}
}

func TestApplyAnomalyOverride(t *testing.T) {
	g := NewGenerator()
	out := policy.Outcome{Score: 12, Decision: policy.DecisionApproved, Level: policy.LevelLow}
	snap := testSnapshot()
	snap.Behavior = signals.Behavior{
		TypingSpeed:      220,
		MouseConsistency: 99.8,
		SessionDuration:  5,
		IsRobotic:        true,
	}

	ov := g.Apply(signals.ScenarioBehavioralAnomaly, out, baseComponents(), snap, "user_001", 90)

	assert.Equal(t, 75.0, ov.Score)
	assert.Equal(t, policy.DecisionDeclined, ov.Decision)
	assert.Equal(t, policy.LevelAnomaly, ov.Level)
	assert.GreaterOrEqual(t, ov.Components[risk.ComponentBehavior], 25.0)
	assert.Equal(t, 20.0, ov.Components["anomaly_detected"])

	require.NotNil(t, ov.Anomaly)
	assert.Equal(t, "robotic", ov.Anomaly.AnomalyType)
	assert.LessOrEqual(t, ov.Anomaly.DetectionConfidence, 95.0)
	assert.NotEmpty(t, ov.Anomaly.Indicators)
	assert.NotEmpty(t, ov.Anomaly.RecommendedActions)
}

func TestAnomalyTypeUnusualTiming(t *testing.T) {
	g := NewGenerator()
	snap := testSnapshot()
	snap.TimeContext = signals.TimeContext{Hour: 3, IsNight: true}

	ov := g.Apply(signals.ScenarioBehavioralAnomaly, policy.Outcome{}, baseComponents(), snap, "user_001", 50)
	require.NotNil(t, ov.Anomaly)
	assert.Equal(t, "unusual_timing", ov.Anomaly.AnomalyType)
}

func TestApplyDoesNotMutateInputComponents(t *testing.T) {
	g := NewGenerator()
	comps := baseComponents()

	g.Apply(signals.ScenarioFraudRing, policy.Outcome{}, comps, testSnapshot(), "user_001", 0)

	_, injected := comps["fraud_ring"]
	assert.False(t, injected, "input component map must not be mutated")
}
