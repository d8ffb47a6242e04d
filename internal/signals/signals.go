// Package signals collects the tracking snapshot that accompanies each
// transaction evaluation: location, IP, behavioral biometrics, device
// identity, and time context. A snapshot is ephemeral and belongs to a
// single request.
package signals

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"log/slog"
	"math/rand"
	"net"
	"sync"
	"time"
)

// Scenario tags accepted on evaluation requests.
const (
	ScenarioNormal            = "normal"
	ScenarioFraudRing         = "fraud_ring"
	ScenarioBehavioralAnomaly = "behavioral_anomaly"
)

// Location is where the transaction appears to originate from.
type Location struct {
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	AccuracyM float64 `json:"accuracy_m"`
	GPSEnabled bool   `json:"gps_enabled"`
	Source    string  `json:"source"` // "gps", "ip", or "fallback"
}

// IPInfo describes the client address.
type IPInfo struct {
	Address   string `json:"address"`
	IsPrivate bool   `json:"is_private"`
}

// Behavior carries session biometrics for the behavior analyzer.
type Behavior struct {
	TypingSpeed      float64 `json:"typing_speed"`      // words per minute
	MouseConsistency float64 `json:"mouse_consistency"` // 0-100
	SessionDuration  float64 `json:"session_duration"`  // seconds
	ClickCount       int     `json:"click_count"`
	ScrollDepth      float64 `json:"scroll_depth"` // 0-100
	IsRobotic        bool    `json:"is_robotic"`
}

// Device identifies the client device.
type Device struct {
	DeviceID         string `json:"device_id"`
	UserAgent        string `json:"user_agent"`
	ScreenResolution string `json:"screen_resolution"`
	Timezone         string `json:"timezone"`
	Language         string `json:"language"`
	IsNewDevice      bool   `json:"is_new_device"`
	Fingerprint      string `json:"fingerprint"`
}

// TimeContext captures when the transaction happened.
type TimeContext struct {
	Hour      int  `json:"hour"`
	Minute    int  `json:"minute"`
	Weekday   int  `json:"weekday"`
	IsNight   bool `json:"is_night"`
	IsWeekend bool `json:"is_weekend"`
}

// Snapshot is the full set of signals for one evaluation.
type Snapshot struct {
	Location    Location    `json:"location"`
	IP          IPInfo      `json:"ip"`
	Behavior    Behavior    `json:"behavior"`
	Device      Device      `json:"device"`
	TimeContext TimeContext `json:"time_context"`
}

// CollectParams are the inputs for snapshot collection.
type CollectParams struct {
	UserID   string
	ClientIP string
	Scenario string
	// Optional GPS override from the client; both must be set.
	Latitude  *float64
	Longitude *float64
}

// Geolocator resolves an IP address to a location. Implementations must
// not fail: on error they return a fallback location.
type Geolocator interface {
	Lookup(ctx context.Context, ip string) Location
}

// baseline is a user's persistent behavioral profile.
type baseline struct {
	typingSpeed      float64 // 40-80 wpm
	mouseConsistency float64 // 70-95
}

// Tracker collects snapshots. Behavioral baselines persist across requests
// so that the same user produces stable signals.
type Tracker struct {
	geo    Geolocator
	logger *slog.Logger

	mu        sync.Mutex
	baselines map[string]baseline
	seen      map[string]bool
	rng       *rand.Rand

	now func() time.Time
}

// NewTracker creates a snapshot tracker.
func NewTracker(geo Geolocator, logger *slog.Logger) *Tracker {
	return &Tracker{
		geo:       geo,
		logger:    logger,
		baselines: make(map[string]baseline),
		seen:      make(map[string]bool),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404 -- jitter for simulated signals, not security
		now:       time.Now,
	}
}

// Collect builds the snapshot for one evaluation. It never fails: location
// lookups degrade to a fallback location and all other signals are derived
// locally.
func (t *Tracker) Collect(ctx context.Context, p CollectParams) Snapshot {
	loc := t.locate(ctx, p)
	ip := ipInfo(p.ClientIP)
	behavior := t.behavior(p.UserID, p.Scenario)
	device := t.device(p.UserID)
	tc := timeContext(t.now())

	return Snapshot{
		Location:    loc,
		IP:          ip,
		Behavior:    behavior,
		Device:      device,
		TimeContext: tc,
	}
}

func (t *Tracker) locate(ctx context.Context, p CollectParams) Location {
	if p.Latitude != nil && p.Longitude != nil {
		return Location{
			City:       "Client Provided",
			Country:    "Unknown",
			Latitude:   *p.Latitude,
			Longitude:  *p.Longitude,
			AccuracyM:  10,
			GPSEnabled: true,
			Source:     "gps",
		}
	}
	if t.geo == nil {
		return FallbackLocation()
	}
	return t.geo.Lookup(ctx, p.ClientIP)
}

// FallbackLocation is returned when geolocation is unavailable.
func FallbackLocation() Location {
	return Location{
		City:      "Unknown",
		Country:   "Unknown",
		Latitude:  0,
		Longitude: 0,
		AccuracyM: 0,
		Source:    "fallback",
	}
}

func ipInfo(addr string) IPInfo {
	info := IPInfo{Address: addr}
	if ip := net.ParseIP(addr); ip != nil {
		info.IsPrivate = ip.IsPrivate() || ip.IsLoopback()
	}
	return info
}

// behavior returns the user's biometric bundle. Baselines are created once
// per user from a seeded hash so the same user gets stable signals; each
// request adds bounded jitter.
func (t *Tracker) behavior(userID, scenario string) Behavior {
	if scenario == ScenarioBehavioralAnomaly {
		// Robotic session: machine-fast typing, impossibly steady mouse,
		// near-instant session.
		return Behavior{
			TypingSpeed:      220,
			MouseConsistency: 99.8,
			SessionDuration:  5,
			ClickCount:       45,
			ScrollDepth:      100,
			IsRobotic:        true,
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.baselines[userID]
	if !ok {
		seed := userSeed(userID)
		b = baseline{
			typingSpeed:      40 + float64(seed%41),        // 40-80 wpm
			mouseConsistency: 70 + float64((seed/41)%26),   // 70-95
		}
		t.baselines[userID] = b
	}

	return Behavior{
		TypingSpeed:      b.typingSpeed + t.rng.Float64()*10 - 5,
		MouseConsistency: clamp(b.mouseConsistency+t.rng.Float64()*6-3, 0, 100),
		SessionDuration:  30 + t.rng.Float64()*570, // 30s-10m
		ClickCount:       3 + t.rng.Intn(25),
		ScrollDepth:      t.rng.Float64() * 100,
		IsRobotic:        false,
	}
}

// device derives a deterministic device identity from the user id. The
// first snapshot for a user marks the device as new.
func (t *Tracker) device(userID string) Device {
	fp := Fingerprint(userID)

	t.mu.Lock()
	isNew := !t.seen[userID]
	t.seen[userID] = true
	t.mu.Unlock()

	return Device{
		DeviceID:         "device_" + fp,
		UserAgent:        "TraceBank-Mobile/2.4 (Android 14)",
		ScreenResolution: "1080x2400",
		Timezone:         "Asia/Kolkata",
		Language:         "en-IN",
		IsNewDevice:      isNew,
		Fingerprint:      fp,
	}
}

// Fingerprint returns the deterministic 16-hex device fingerprint for a user.
func Fingerprint(userID string) string {
	sum := sha256.Sum256([]byte("device:" + userID))
	return hex.EncodeToString(sum[:])[:16]
}

func timeContext(now time.Time) TimeContext {
	h := now.Hour()
	wd := int(now.Weekday())
	return TimeContext{
		Hour:      h,
		Minute:    now.Minute(),
		Weekday:   wd,
		IsNight:   h >= 22 || h < 6,
		IsWeekend: wd == 0 || wd == 6,
	}
}

func userSeed(userID string) uint64 {
	sum := sha256.Sum256([]byte(userID))
	return binary.BigEndian.Uint64(sum[:8])
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
