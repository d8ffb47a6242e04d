package policy

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultThresholds(t *testing.T) {
	p := New()
	snap := p.Snapshot()
	assert.Equal(t, 40.0, snap.ReviewCutoff)
	assert.Equal(t, 60.0, snap.BlockCutoff)
}

func TestEvaluateDecisionBands(t *testing.T) {
	p := New()
	cases := []struct {
		score    float64
		decision string
	}{
		{0, DecisionApproved},
		{39.9, DecisionApproved},
		{40, DecisionPendingReview},
		{59.9, DecisionPendingReview},
		{60, DecisionDeclined},
		{100, DecisionDeclined},
	}
	for _, tc := range cases {
		out := p.Evaluate(tc.score)
		assert.Equal(t, tc.decision, out.Decision, "score %.1f", tc.score)
	}
}

func TestEvaluateSanitizesScore(t *testing.T) {
	p := New()

	assert.Equal(t, DecisionApproved, p.Evaluate(math.NaN()).Decision)
	assert.Equal(t, DecisionApproved, p.Evaluate(-12).Decision)
	assert.Equal(t, DecisionDeclined, p.Evaluate(math.Inf(1)).Decision)
	assert.Equal(t, 100.0, p.Evaluate(250).Score)
	assert.Equal(t, 0.0, p.Evaluate(-1).Score)
}

func TestLevelBandsMonotonic(t *testing.T) {
	cases := []struct {
		score float64
		level string
	}{
		{0, LevelLow}, {19.9, LevelLow},
		{20, LevelMediumLow}, {39.9, LevelMediumLow},
		{40, LevelMediumHigh}, {59.9, LevelMediumHigh},
		{60, LevelHigh}, {79.9, LevelHigh},
		{80, LevelVeryHigh}, {100, LevelVeryHigh},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.level, Level(tc.score), "score %.1f", tc.score)
	}
}

func TestUpdateValidation(t *testing.T) {
	p := New()

	assert.NoError(t, p.Update(30, 70))
	assert.ErrorIs(t, p.Update(70, 30), ErrInvalidThresholds)
	assert.ErrorIs(t, p.Update(50, 50), ErrInvalidThresholds)
	assert.ErrorIs(t, p.Update(-1, 60), ErrInvalidThresholds)
	assert.ErrorIs(t, p.Update(40, 101), ErrInvalidThresholds)
	assert.ErrorIs(t, p.Update(math.NaN(), 60), ErrInvalidThresholds)

	// Failed updates leave thresholds untouched.
	snap := p.Snapshot()
	assert.Equal(t, 30.0, snap.ReviewCutoff)
	assert.Equal(t, 70.0, snap.BlockCutoff)
}

func TestUpdateVisibleToSubsequentEvaluations(t *testing.T) {
	p := New()
	assert.Equal(t, DecisionPendingReview, p.Evaluate(50).Decision)

	require.NoError(t, p.Update(10, 45))
	assert.Equal(t, DecisionDeclined, p.Evaluate(50).Decision)
}

func TestConcurrentEvaluateAndUpdate(t *testing.T) {
	p := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = p.Evaluate(float64(i))
		}(i)
		go func(i int) {
			defer wg.Done()
			_ = p.Update(float64(i%30), float64(50+i%50))
		}(i)
	}
	wg.Wait()

	// Whatever interleaving happened, the pair is still valid.
	snap := p.Snapshot()
	assert.Less(t, snap.ReviewCutoff, snap.BlockCutoff)
}

func newPolicyRouter(p *Policy) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(p).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestGetPolicyEndpoint(t *testing.T) {
	r := newPolicyRouter(New())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/policy", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Policy Thresholds `json:"policy"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 40.0, resp.Policy.ReviewCutoff)
	assert.Equal(t, 60.0, resp.Policy.BlockCutoff)
}

func TestUpdatePolicyEndpoint(t *testing.T) {
	p := New()
	r := newPolicyRouter(p)

	body := bytes.NewBufferString(`{"review_cutoff": 25, "block_cutoff": 75}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("PUT", "/api/v1/policy", body))

	require.Equal(t, http.StatusOK, w.Code)
	snap := p.Snapshot()
	assert.Equal(t, 25.0, snap.ReviewCutoff)
	assert.Equal(t, 75.0, snap.BlockCutoff)
}

func TestUpdatePolicyEndpointPartialBody(t *testing.T) {
	p := New()
	r := newPolicyRouter(p)

	body := bytes.NewBufferString(`{"block_cutoff": 80}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("PUT", "/api/v1/policy", body))

	require.Equal(t, http.StatusOK, w.Code)
	snap := p.Snapshot()
	assert.Equal(t, 40.0, snap.ReviewCutoff)
	assert.Equal(t, 80.0, snap.BlockCutoff)
}

func TestUpdatePolicyEndpointRejectsInvalid(t *testing.T) {
	p := New()
	r := newPolicyRouter(p)

	body := bytes.NewBufferString(`{"review_cutoff": 90, "block_cutoff": 10}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("PUT", "/api/v1/policy", body))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_thresholds")

	snap := p.Snapshot()
	assert.Equal(t, 40.0, snap.ReviewCutoff)
	assert.Equal(t, 60.0, snap.BlockCutoff)
}
