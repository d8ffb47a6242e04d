// Package decision orchestrates the evaluation pipeline: it collects
// signals, scores components, applies the policy and scenario overrides,
// generates explanations, records the ledger entry, and composes the
// response.
package decision

import (
	"errors"
	"time"

	"github.com/anikabisht/Trace-Bank/internal/explain"
	"github.com/anikabisht/Trace-Bank/internal/risk"
	"github.com/anikabisht/Trace-Bank/internal/scenario"
)

// Pipeline errors. Validation failures happen before any scoring and never
// produce a ledger entry.
var (
	ErrPermissionDenied = errors.New("decision: location permission required")
	ErrInvalidRequest   = errors.New("decision: invalid request")
)

// Request is one transaction to evaluate.
type Request struct {
	UserID             string   `json:"user_id"`
	Amount             float64  `json:"amount"`
	MerchantCategory   string   `json:"merchant_category"`
	Currency           string   `json:"currency"`
	LocationPermission bool     `json:"location_permission"`
	Scenario           string   `json:"scenario"`
	Latitude           *float64 `json:"latitude,omitempty"`
	Longitude          *float64 `json:"longitude,omitempty"`

	// ClientIP is set by the transport layer, not the request body.
	ClientIP string `json:"-"`
}

// TrackingSummary condenses the snapshot for the response.
type TrackingSummary struct {
	Location      string `json:"location"` // "City, Country"
	GPSEnabled    bool   `json:"gps_enabled"`
	BehaviorMatch string `json:"behavior_match"` // NORMAL, SUSPICIOUS, ANOMALOUS
	DeviceTrust   string `json:"device_trust"`   // KNOWN, NEW_DEVICE
	TimeContext   string `json:"time_context"`   // NORMAL, UNUSUAL
}

// FraudRingAlert surfaces organic ring suspicion above the alert threshold.
type FraudRingAlert struct {
	SuspicionScore    float64  `json:"suspicion_score"`
	SharedDeviceUsers []string `json:"shared_device_users"`
	SharedIPUsers     []string `json:"shared_ip_users"`
	Message           string   `json:"message"`
}

// Result is the full evaluation response.
type Result struct {
	TransactionID       string                       `json:"transaction_id"`
	UserID              string                       `json:"user_id"`
	Amount              float64                      `json:"amount"`
	Currency            string                       `json:"currency"`
	RiskScore           float64                      `json:"risk_score"`
	RiskLevel           string                       `json:"risk_level"`
	Decision            string                       `json:"decision"`
	ComponentRisks      risk.Components              `json:"component_risks"`
	Counterfactuals     []explain.Counterfactual     `json:"counterfactuals"`
	BankCounterfactuals []explain.BankCounterfactual `json:"bank_counterfactuals"`
	ChurnImpact         explain.ChurnImpact          `json:"churn_impact"`
	FraudRingAlert      *FraudRingAlert              `json:"fraud_ring_alert,omitempty"`
	FraudRingAnalysis   *scenario.RingAnalysis       `json:"fraud_ring_analysis,omitempty"`
	AnomalyAnalysis     *scenario.AnomalyAnalysis    `json:"anomaly_analysis,omitempty"`
	TrackingSummary     TrackingSummary              `json:"tracking_summary"`
	Scenario            string                       `json:"scenario"`
	Timestamp           time.Time                    `json:"timestamp"`
}
