package decision

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/anikabisht/Trace-Bank/internal/explain"
	"github.com/anikabisht/Trace-Bank/internal/ledger"
	"github.com/anikabisht/Trace-Bank/internal/logging"
	"github.com/anikabisht/Trace-Bank/internal/metrics"
	"github.com/anikabisht/Trace-Bank/internal/ml"
	"github.com/anikabisht/Trace-Bank/internal/policy"
	"github.com/anikabisht/Trace-Bank/internal/realtime"
	"github.com/anikabisht/Trace-Bank/internal/risk"
	"github.com/anikabisht/Trace-Bank/internal/scenario"
	"github.com/anikabisht/Trace-Bank/internal/signals"
	"github.com/anikabisht/Trace-Bank/internal/traces"
	"github.com/anikabisht/Trace-Bank/internal/validation"
)

// ringAlertThreshold is the organic suspicion level above which the
// response carries a fraud ring alert.
const ringAlertThreshold = 50.0

// Defaults applied to omitted request fields.
const (
	defaultMerchantCategory = "retail"
)

// Engine runs the evaluation pipeline. Collaborator failures (geolocation,
// ML scorers, explanations) degrade to documented defaults; only validation
// and ledger failures surface as errors.
type Engine struct {
	tracker   *signals.Tracker
	vpn       ml.VPNDetector
	behavior  ml.BehaviorAnalyzer
	rings     ml.RingDetector // optional
	policy    *policy.Policy
	scenarios *scenario.Generator
	ledger    *ledger.Ledger
	hub       *realtime.Hub // optional
	logger    *slog.Logger

	defaultCurrency  string
	defaultUserValue float64
}

// Config wires the engine's collaborators.
type Config struct {
	Tracker          *signals.Tracker
	VPN              ml.VPNDetector
	Behavior         ml.BehaviorAnalyzer
	Rings            ml.RingDetector
	Policy           *policy.Policy
	Scenarios        *scenario.Generator
	Ledger           *ledger.Ledger
	Hub              *realtime.Hub
	Logger           *slog.Logger
	DefaultCurrency  string
	DefaultUserValue float64
}

// NewEngine creates the pipeline engine.
func NewEngine(cfg Config) *Engine {
	currency := cfg.DefaultCurrency
	if currency == "" {
		currency = "INR"
	}
	userValue := cfg.DefaultUserValue
	if userValue <= 0 {
		userValue = 1000
	}
	return &Engine{
		tracker:          cfg.Tracker,
		vpn:              cfg.VPN,
		behavior:         cfg.Behavior,
		rings:            cfg.Rings,
		policy:           cfg.Policy,
		scenarios:        cfg.Scenarios,
		ledger:           cfg.Ledger,
		hub:              cfg.Hub,
		logger:           cfg.Logger,
		defaultCurrency:  currency,
		defaultUserValue: userValue,
	}
}

// Evaluate runs the full pipeline for one request.
func (e *Engine) Evaluate(ctx context.Context, req Request) (*Result, error) {
	ctx, span := traces.StartSpan(ctx, "decision.Evaluate",
		traces.UserID(req.UserID),
		traces.Amount(req.Amount),
		traces.Scenario(req.Scenario),
	)
	defer span.End()

	if err := e.validate(&req); err != nil {
		return nil, err
	}

	log := logging.L(ctx).With("user_id", req.UserID, "amount", req.Amount, "scenario", req.Scenario)

	// Signals. The tracker never fails; geolocation degrades internally.
	snap := e.tracker.Collect(ctx, signals.CollectParams{
		UserID:    req.UserID,
		ClientIP:  req.ClientIP,
		Scenario:  req.Scenario,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	})

	// ML collaborators behind fault boundaries.
	vpnProb := e.safeVPN(snap)
	behaviorScore, behaviorReasons := e.safeBehavior(snap.Behavior)
	ring := e.safeRing(req.UserID, snap)

	// History-driven signals. A ledger read failure degrades to no history,
	// same as a new user.
	historyAmounts, err := e.ledger.HistoryAmounts(ctx, req.UserID)
	if err != nil {
		log.Warn("history read failed, scoring without history", "error", err)
		metrics.CollaboratorFailuresTotal.WithLabelValues("ledger").Inc()
		historyAmounts = nil
	}
	velocity, err := e.ledger.Velocity(ctx, req.UserID)
	if err != nil {
		metrics.CollaboratorFailuresTotal.WithLabelValues("ledger").Inc()
		velocity = 0
	}

	// Component risks and aggregation.
	components := risk.Calculate(risk.Inputs{
		Amount:           req.Amount,
		MerchantCategory: req.MerchantCategory,
		Snapshot:         snap,
		HistoryAmounts:   historyAmounts,
		VPNProbability:   vpnProb,
		BehaviorScore:    behaviorScore,
		VelocityCount:    velocity,
	})
	score, components := risk.Aggregate(components, req.Amount)

	// Policy evaluates the organic score; the scenario override rewrites
	// the outcome afterwards.
	outcome := e.policy.Evaluate(score)
	ov := e.scenarios.Apply(req.Scenario, outcome, components, snap, req.UserID, behaviorScore)

	customer, bank, churn := e.safeExplain(req, ov, historyAmounts)

	// Ledger append is the only shared write in the pipeline. It assigns
	// the transaction id.
	entry := &ledger.Entry{
		UserID:           req.UserID,
		Amount:           req.Amount,
		Currency:         req.Currency,
		MerchantCategory: req.MerchantCategory,
		Scenario:         req.Scenario,
		RiskScore:        risk.Round1(ov.Score),
		RiskLevel:        ov.Level,
		Decision:         ov.Decision,
		Location:         fmt.Sprintf("%s, %s", snap.Location.City, snap.Location.Country),
		GPSEnabled:       snap.Location.GPSEnabled,
		DeviceID:         snap.Device.DeviceID,
		IPAddress:        snap.IP.Address,
	}
	if err := e.ledger.Record(ctx, entry); err != nil {
		return nil, fmt.Errorf("record transaction: %w", err)
	}

	result := e.compose(req, entry, snap, ov, customer, bank, churn, ring)

	span.SetAttributes(
		traces.TransactionID(result.TransactionID),
		traces.Decision(result.Decision),
		traces.Score(result.RiskScore),
	)
	metrics.EvaluationsTotal.WithLabelValues(result.Decision).Inc()
	metrics.RiskScore.Observe(result.RiskScore)
	metrics.ScenarioEvaluationsTotal.WithLabelValues(req.Scenario).Inc()

	if e.hub != nil {
		e.hub.BroadcastDecision(&realtime.DecisionEvent{
			TransactionID: result.TransactionID,
			UserID:        result.UserID,
			Amount:        result.Amount,
			Decision:      result.Decision,
			RiskScore:     result.RiskScore,
			RiskLevel:     result.RiskLevel,
			Scenario:      result.Scenario,
		})
	}

	log.Info("transaction evaluated",
		"transaction_id", result.TransactionID,
		"decision", result.Decision,
		"risk_score", result.RiskScore,
		"risk_level", result.RiskLevel,
		"behavior_reasons", behaviorReasons,
	)

	return result, nil
}

// validate checks the request and applies defaults. Permission is checked
// first: a denied request is rejected before any scoring or ledger write.
func (e *Engine) validate(req *Request) error {
	if !req.LocationPermission {
		return ErrPermissionDenied
	}
	if !validation.IsValidUserID(req.UserID) {
		return fmt.Errorf("%w: user_id must be 1-64 characters of letters, digits, '.', '-' or '_'", ErrInvalidRequest)
	}
	if !validation.IsValidAmount(req.Amount) {
		return fmt.Errorf("%w: amount must be a positive number", ErrInvalidRequest)
	}

	if req.Scenario == "" {
		req.Scenario = signals.ScenarioNormal
	}
	switch req.Scenario {
	case signals.ScenarioNormal, signals.ScenarioFraudRing, signals.ScenarioBehavioralAnomaly:
	default:
		return fmt.Errorf("%w: unknown scenario %q", ErrInvalidRequest, req.Scenario)
	}

	if req.MerchantCategory == "" {
		req.MerchantCategory = defaultMerchantCategory
	}
	req.MerchantCategory = validation.SanitizeString(req.MerchantCategory, 64)
	if req.Currency == "" {
		req.Currency = e.defaultCurrency
	}
	return nil
}

func (e *Engine) safeVPN(snap signals.Snapshot) (p float64) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("vpn detector panicked, using base rate", "panic", r)
			metrics.CollaboratorFailuresTotal.WithLabelValues("vpn").Inc()
			p = 0.2
		}
	}()
	if e.vpn == nil {
		return 0.2
	}
	return e.vpn.DetectVPN(snap.IP, snap.Location)
}

func (e *Engine) safeBehavior(b signals.Behavior) (score float64, reasons []string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("behavior analyzer panicked, scoring zero", "panic", r)
			metrics.CollaboratorFailuresTotal.WithLabelValues("behavior").Inc()
			score, reasons = 0, nil
		}
	}()
	if e.behavior == nil {
		return 0, nil
	}
	return e.behavior.AnalyzeBehavior(b)
}

func (e *Engine) safeRing(userID string, snap signals.Snapshot) (sig ml.RingSignal) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("ring detector panicked, no ring signal", "panic", r)
			metrics.CollaboratorFailuresTotal.WithLabelValues("ring").Inc()
			sig = ml.RingSignal{}
		}
	}()
	if e.rings == nil {
		return ml.RingSignal{}
	}
	return e.rings.DetectRing(userID, snap.IP.Address, snap.Device.DeviceID)
}

// safeExplain generates counterfactuals and churn. If explanation
// generation fails, the response carries empty lists and a neutral churn
// record; the evaluation itself is unaffected.
func (e *Engine) safeExplain(req Request, ov scenario.Override, history []float64) (customer []explain.Counterfactual, bank []explain.BankCounterfactual, churn explain.ChurnImpact) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("explanation generation panicked, returning empty explanations", "panic", r)
			metrics.CollaboratorFailuresTotal.WithLabelValues("explain").Inc()
			customer, bank = nil, nil
			churn = explain.Churn(policy.DecisionApproved, 0, e.defaultUserValue)
		}
	}()

	customer, bank = explain.Counterfactuals(explain.Input{
		Score:          ov.Score,
		Components:     ov.Components,
		Amount:         req.Amount,
		HistoryAmounts: history,
	})
	churn = explain.Churn(ov.Decision, ov.Score, e.defaultUserValue)
	return customer, bank, churn
}

func (e *Engine) compose(req Request, entry *ledger.Entry, snap signals.Snapshot, ov scenario.Override, customer []explain.Counterfactual, bank []explain.BankCounterfactual, churn explain.ChurnImpact, ring ml.RingSignal) *Result {
	components := ov.Components.Clone()
	for _, k := range risk.BaseComponents {
		if _, ok := components[k]; !ok {
			components[k] = 0
		}
	}

	var alert *FraudRingAlert
	if ring.SuspicionScore > ringAlertThreshold {
		alert = &FraudRingAlert{
			SuspicionScore:    ring.SuspicionScore,
			SharedDeviceUsers: ring.SharedDeviceUsers,
			SharedIPUsers:     ring.SharedIPUsers,
			Message:           "account linked to coordinated activity across devices or addresses",
		}
	}

	behaviorMatch := "NORMAL"
	if components[risk.ComponentBehavior] > 8 {
		behaviorMatch = "SUSPICIOUS"
	}
	if req.Scenario == signals.ScenarioBehavioralAnomaly {
		behaviorMatch = "ANOMALOUS"
	}

	deviceTrust := "KNOWN"
	if snap.Device.IsNewDevice {
		deviceTrust = "NEW_DEVICE"
	}

	timeContext := "NORMAL"
	if components[risk.ComponentTime] > 5 {
		timeContext = "UNUSUAL"
	}

	if customer == nil {
		customer = []explain.Counterfactual{}
	}
	if bank == nil {
		bank = []explain.BankCounterfactual{}
	}

	return &Result{
		TransactionID:       entry.ID,
		UserID:              req.UserID,
		Amount:              req.Amount,
		Currency:            req.Currency,
		RiskScore:           risk.Round1(ov.Score),
		RiskLevel:           ov.Level,
		Decision:            ov.Decision,
		ComponentRisks:      components,
		Counterfactuals:     customer,
		BankCounterfactuals: bank,
		ChurnImpact:         churn,
		FraudRingAlert:      alert,
		FraudRingAnalysis:   ov.Ring,
		AnomalyAnalysis:     ov.Anomaly,
		TrackingSummary: TrackingSummary{
			Location:      fmt.Sprintf("%s, %s", snap.Location.City, snap.Location.Country),
			GPSEnabled:    snap.Location.GPSEnabled,
			BehaviorMatch: behaviorMatch,
			DeviceTrust:   deviceTrust,
			TimeContext:   timeContext,
		},
		Scenario:  req.Scenario,
		Timestamp: entry.CreatedAt,
	}
}
