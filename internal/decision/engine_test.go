package decision

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anikabisht/Trace-Bank/internal/ledger"
	"github.com/anikabisht/Trace-Bank/internal/ml"
	"github.com/anikabisht/Trace-Bank/internal/policy"
	"github.com/anikabisht/Trace-Bank/internal/risk"
	"github.com/anikabisht/Trace-Bank/internal/scenario"
	"github.com/anikabisht/Trace-Bank/internal/signals"
)

type stubVPN struct{ p float64 }

func (s stubVPN) DetectVPN(signals.IPInfo, signals.Location) float64 { return s.p }

type panicVPN struct{}

func (panicVPN) DetectVPN(signals.IPInfo, signals.Location) float64 { panic("model unavailable") }

type stubBehavior struct{ score float64 }

func (s stubBehavior) AnalyzeBehavior(signals.Behavior) (float64, []string) { return s.score, nil }

type stubRing struct{ sig ml.RingSignal }

func (s stubRing) DetectRing(string, string, string) ml.RingSignal { return s.sig }

type engineOption func(*Config)

func withVPN(d ml.VPNDetector) engineOption      { return func(c *Config) { c.VPN = d } }
func withBehavior(a ml.BehaviorAnalyzer) engineOption {
	return func(c *Config) { c.Behavior = a }
}
func withRings(r ml.RingDetector) engineOption { return func(c *Config) { c.Rings = r } }

func newTestEngine(t *testing.T, opts ...engineOption) (*Engine, *ledger.Ledger) {
	t.Helper()
	led := ledger.New(ledger.NewMemoryStore())
	cfg := Config{
		Tracker:   signals.NewTracker(nil, slog.Default()),
		VPN:       stubVPN{p: 0},
		Behavior:  stubBehavior{score: 0},
		Policy:    policy.New(),
		Scenarios: scenario.NewGenerator(),
		Ledger:    led,
		Logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewEngine(cfg), led
}

func validRequest() Request {
	return Request{
		UserID:             "user_001",
		Amount:             500,
		LocationPermission: true,
		ClientIP:           "10.0.0.5",
	}
}

func TestEvaluatePermissionDeniedBeforeScoring(t *testing.T) {
	e, led := newTestEngine(t)
	req := validRequest()
	req.LocationPermission = false

	_, err := e.Evaluate(context.Background(), req)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// No ledger write on rejection.
	entries, err := led.History(context.Background(), "user_001")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEvaluateInvalidFields(t *testing.T) {
	e, _ := newTestEngine(t)

	bad := validRequest()
	bad.UserID = "no spaces allowed"
	_, err := e.Evaluate(context.Background(), bad)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	bad = validRequest()
	bad.Amount = -5
	_, err = e.Evaluate(context.Background(), bad)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	bad = validRequest()
	bad.Scenario = "zombie_apocalypse"
	_, err = e.Evaluate(context.Background(), bad)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestEvaluateNormalLowRisk(t *testing.T) {
	e, led := newTestEngine(t)

	res, err := e.Evaluate(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, policy.DecisionApproved, res.Decision)
	assert.Equal(t, policy.LevelLow, res.RiskLevel)
	assert.Equal(t, "INR", res.Currency, "default currency applied")
	assert.Equal(t, signals.ScenarioNormal, res.Scenario)
	assert.Len(t, res.TransactionID, 16)
	assert.False(t, res.Timestamp.IsZero())
	assert.Nil(t, res.FraudRingAnalysis)
	assert.Nil(t, res.AnomalyAnalysis)
	assert.Nil(t, res.FraudRingAlert)

	// All six base components are present.
	for _, k := range risk.BaseComponents {
		_, ok := res.ComponentRisks[k]
		assert.True(t, ok, "missing component %s", k)
	}

	// The evaluation was recorded.
	entries, err := led.History(context.Background(), "user_001")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, res.TransactionID, entries[0].ID)
	assert.Equal(t, res.Decision, entries[0].Decision)
	assert.Equal(t, res.RiskScore, entries[0].RiskScore)
}

func TestEvaluateHighAmountOverride(t *testing.T) {
	e, _ := newTestEngine(t)
	req := validRequest()
	req.Amount = 250000

	res, err := e.Evaluate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 65.0, res.RiskScore)
	assert.Equal(t, policy.DecisionDeclined, res.Decision)
	assert.Equal(t, policy.LevelHigh, res.RiskLevel)
	assert.Equal(t, 40.0, res.ComponentRisks[risk.ComponentAmount])
	assert.Equal(t, 5.0, res.ComponentRisks[risk.ComponentLocation])
}

func TestEvaluateHistoryDrivesAmountRisk(t *testing.T) {
	e, _ := newTestEngine(t)

	// Build a stable history around 1000.
	for i := 0; i < 5; i++ {
		req := validRequest()
		req.Amount = 1000
		_, err := e.Evaluate(context.Background(), req)
		require.NoError(t, err)
	}

	// A 5x spike maxes the amount component.
	req := validRequest()
	req.Amount = 5000
	res, err := e.Evaluate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 30.0, res.ComponentRisks[risk.ComponentAmount])

	// At the historical average it contributes nothing.
	req = validRequest()
	req.Amount = 900
	res, err = e.Evaluate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.ComponentRisks[risk.ComponentAmount])
}

func TestEvaluateFraudRingScenario(t *testing.T) {
	e, led := newTestEngine(t)
	req := validRequest()
	req.Scenario = signals.ScenarioFraudRing

	res, err := e.Evaluate(context.Background(), req)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, res.RiskScore, 85.0)
	assert.Equal(t, policy.DecisionDeclined, res.Decision)
	assert.Equal(t, policy.LevelFraudRing, res.RiskLevel)
	assert.Equal(t, 40.0, res.ComponentRisks["fraud_ring"])
	assert.Equal(t, 15.0, res.ComponentRisks["shared_device"])
	assert.Equal(t, 15.0, res.ComponentRisks["shared_ip"])
	require.NotNil(t, res.FraudRingAnalysis)
	assert.GreaterOrEqual(t, res.FraudRingAnalysis.RingSize, 5)

	entries, err := led.History(context.Background(), "user_001")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, policy.LevelFraudRing, entries[0].RiskLevel)
}

func TestEvaluateBehavioralAnomalyScenario(t *testing.T) {
	e, _ := newTestEngine(t, withBehavior(ml.NewHeuristicBehavior()))
	req := validRequest()
	req.Scenario = signals.ScenarioBehavioralAnomaly

	res, err := e.Evaluate(context.Background(), req)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, res.RiskScore, 75.0)
	assert.Equal(t, policy.DecisionDeclined, res.Decision)
	assert.Equal(t, policy.LevelAnomaly, res.RiskLevel)
	assert.GreaterOrEqual(t, res.ComponentRisks[risk.ComponentBehavior], 25.0)
	assert.Equal(t, 20.0, res.ComponentRisks["anomaly_detected"])
	require.NotNil(t, res.AnomalyAnalysis)
	assert.Equal(t, "robotic", res.AnomalyAnalysis.AnomalyType)
	assert.Equal(t, "ANOMALOUS", res.TrackingSummary.BehaviorMatch)
}

func TestEvaluateRingAlertOnlyAboveThreshold(t *testing.T) {
	e, _ := newTestEngine(t, withRings(stubRing{sig: ml.RingSignal{
		SuspicionScore:    60,
		SharedDeviceUsers: []string{"user_002"},
	}}))
	res, err := e.Evaluate(context.Background(), validRequest())
	require.NoError(t, err)
	require.NotNil(t, res.FraudRingAlert)
	assert.Equal(t, 60.0, res.FraudRingAlert.SuspicionScore)

	e, _ = newTestEngine(t, withRings(stubRing{sig: ml.RingSignal{SuspicionScore: 40}}))
	res, err = e.Evaluate(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Nil(t, res.FraudRingAlert)
}

func TestEvaluateSurvivesPanickingCollaborator(t *testing.T) {
	e, _ := newTestEngine(t, withVPN(panicVPN{}))

	res, err := e.Evaluate(context.Background(), validRequest())
	require.NoError(t, err)
	// Base VPN rate 0.2 -> location risk 4.
	assert.Equal(t, 4.0, res.ComponentRisks[risk.ComponentLocation])
}

func TestEvaluateTrackingSummary(t *testing.T) {
	e, _ := newTestEngine(t)

	res, err := e.Evaluate(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, "Unknown, Unknown", res.TrackingSummary.Location)
	assert.False(t, res.TrackingSummary.GPSEnabled)
	assert.Equal(t, "NEW_DEVICE", res.TrackingSummary.DeviceTrust)

	// Same user again: the device is now known.
	res, err = e.Evaluate(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "KNOWN", res.TrackingSummary.DeviceTrust)
}

func TestEvaluateGPSOverride(t *testing.T) {
	e, _ := newTestEngine(t)
	lat, lon := 19.076, 72.8777
	req := validRequest()
	req.Latitude = &lat
	req.Longitude = &lon

	res, err := e.Evaluate(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.TrackingSummary.GPSEnabled)
}

func TestEvaluateExplanationsAttached(t *testing.T) {
	e, _ := newTestEngine(t)

	res, err := e.Evaluate(context.Background(), validRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, res.Counterfactuals)
	assert.LessOrEqual(t, len(res.Counterfactuals), 2)
	assert.LessOrEqual(t, len(res.BankCounterfactuals), 4)
	assert.Equal(t, "2.0%", res.ChurnImpact.ChurnProbability)

	// Declined evaluations carry churn risk.
	req := validRequest()
	req.Scenario = signals.ScenarioFraudRing
	res, err = e.Evaluate(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, "2.0%", res.ChurnImpact.ChurnProbability)
	assert.Greater(t, res.ChurnImpact.RevenueAtRisk, 0.0)
}

func TestEvaluatePolicyUpdateChangesDecisions(t *testing.T) {
	e, _ := newTestEngine(t)
	req := validRequest()
	req.Amount = 10000 // no history: amount component capped at 20

	res, err := e.Evaluate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, policy.DecisionApproved, res.Decision)

	require.NoError(t, e.policy.Update(5, 15))

	req.UserID = "user_fresh" // avoid history from the first call
	res, err = e.Evaluate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, policy.DecisionDeclined, res.Decision)
}
