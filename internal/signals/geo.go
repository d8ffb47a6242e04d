package signals

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/anikabisht/Trace-Bank/internal/circuitbreaker"
)

// breakerKey groups all lookups against the single upstream endpoint.
const breakerKey = "geolocation"

// GeoClient resolves IP addresses through an ipapi.co-compatible HTTP
// endpoint. Results are cached per IP for the lifetime of the process.
// Lookups never fail: any error degrades to the fallback location.
type GeoClient struct {
	baseURL string
	httpc   *http.Client
	logger  *slog.Logger

	mu    sync.Mutex
	cache map[string]Location

	// breaker stops lookups against a failing upstream. While open,
	// lookups fall back immediately instead of waiting out the timeout.
	breaker *circuitbreaker.Breaker

	// onFailure is called when a lookup degrades to the fallback, so the
	// caller can count collaborator failures.
	onFailure func()
}

// NewGeoClient creates a geolocation client. baseURL is the API root
// (e.g. "https://ipapi.co"); timeout bounds each lookup.
func NewGeoClient(baseURL string, timeout time.Duration, logger *slog.Logger) *GeoClient {
	return &GeoClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
		logger:  logger,
		cache:   make(map[string]Location),
		breaker: circuitbreaker.New(5, 30*time.Second),
	}
}

// OnFailure registers a callback invoked whenever a lookup falls back.
func (g *GeoClient) OnFailure(fn func()) { g.onFailure = fn }

type geoResponse struct {
	City        string  `json:"city"`
	CountryName string  `json:"country_name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Error       bool    `json:"error"`
	Reason      string  `json:"reason"`
}

// Lookup resolves an IP to a location. Private and unparseable addresses
// skip the remote call. On any failure the fallback location is returned;
// there is no retry. Repeated failures open the breaker and skip the
// upstream entirely until it recovers.
func (g *GeoClient) Lookup(ctx context.Context, ip string) Location {
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.IsPrivate() || parsed.IsLoopback() {
		return Location{
			City:      "Local Network",
			Country:   "Unknown",
			AccuracyM: 0,
			Source:    "fallback",
		}
	}

	g.mu.Lock()
	if loc, ok := g.cache[ip]; ok {
		g.mu.Unlock()
		return loc
	}
	g.mu.Unlock()

	if !g.breaker.Allow(breakerKey) {
		if g.onFailure != nil {
			g.onFailure()
		}
		return FallbackLocation()
	}

	loc, err := g.fetch(ctx, ip)
	if err != nil {
		g.breaker.RecordFailure(breakerKey)
		g.logger.Warn("geolocation lookup failed, using fallback", "ip", ip, "error", err)
		if g.onFailure != nil {
			g.onFailure()
		}
		return FallbackLocation()
	}
	g.breaker.RecordSuccess(breakerKey)

	g.mu.Lock()
	g.cache[ip] = loc
	g.mu.Unlock()

	return loc
}

func (g *GeoClient) fetch(ctx context.Context, ip string) (Location, error) {
	url := fmt.Sprintf("%s/%s/json/", g.baseURL, ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Location{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := g.httpc.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("geolocation request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("geolocation status %d", resp.StatusCode)
	}

	var body geoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Location{}, fmt.Errorf("decode geolocation response: %w", err)
	}
	if body.Error {
		return Location{}, fmt.Errorf("geolocation error: %s", body.Reason)
	}

	city := body.City
	if city == "" {
		city = "Unknown"
	}
	country := body.CountryName
	if country == "" {
		country = "Unknown"
	}

	return Location{
		City:       city,
		Country:    country,
		Latitude:   body.Latitude,
		Longitude:  body.Longitude,
		AccuracyM:  5000, // city-level accuracy
		GPSEnabled: false,
		Source:     "ip",
	}, nil
}
