package scenarios

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"tradelens/config"
	"tradelens/e2e"
	"tradelens/e2e/mocks"
	"tradelens/internal/api"
	"tradelens/models"
)

func setup(t *testing.T, mutate ...func(*config.Config)) *e2e.TestHarness {
	t.Helper()
	harness := e2e.NewTestHarness(t)
	if err := harness.Setup(mutate...); err != nil {
		t.Fatalf("failed to setup test harness: %v", err)
	}
	t.Cleanup(harness.Teardown)
	return harness
}

func decodeResponse(t *testing.T, body []byte) models.AnalysisResponse {
	t.Helper()
	var resp models.AnalysisResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func decodeError(t *testing.T, body []byte) api.ErrorDetail {
	t.Helper()
	var env api.ErrorBody
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return env.Error
}

func TestAnalysisWorkflow_AllProducersSucceed(t *testing.T) {
	harness := setup(t)

	resp := harness.Analyze(`{"ticker":"aapl","context":"investment"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	result := decodeResponse(t, resp.Body.Bytes())
	if result.Ticker != "AAPL" {
		t.Errorf("ticker = %q, want AAPL", result.Ticker)
	}
	if result.Recommendation != models.RecommendationBuy {
		t.Errorf("recommendation = %s, want BUY (score %d)", result.Recommendation, result.SynthesisScore)
	}
	if result.FullReport.Fundamental.Score != 78 || result.FullReport.Technical.Score != 74 || result.FullReport.SentimentEco.Score != 72 {
		t.Errorf("producer scores = %+v", result.FullReport)
	}
	if result.FullReport.Fundamental.Summary != "Strong fundamentals with reasonable valuation." {
		t.Errorf("fundamental summary = %q", result.FullReport.Fundamental.Summary)
	}
	if len(result.KeyEcos) != 1 || result.KeyEcos[0].Headline != "New product launch well received" {
		t.Errorf("key_ecos = %+v", result.KeyEcos)
	}
	if len(result.ConvergenceFactors) == 0 {
		t.Error("expected convergence factors")
	}

	wantAuth := "Bearer " + harness.Credential()
	for _, r := range harness.MockServer().GetRequestLog() {
		if r.Authorization != wantAuth {
			t.Errorf("%s got Authorization %q", r.Producer, r.Authorization)
		}
		if r.RequestID == "" {
			t.Errorf("%s got no X-Request-ID", r.Producer)
		}
		if r.Body.Ticker != "AAPL" || r.Body.Context != "investment" {
			t.Errorf("%s got body %+v", r.Producer, r.Body)
		}
	}

	if runs := harness.Runs().All(); len(runs) != 3 {
		t.Errorf("recorded runs = %d, want 3", len(runs))
	}
}

func TestAnalysisWorkflow_RepeatIsServedFromCache(t *testing.T) {
	harness := setup(t)
	body := `{"ticker":"AAPL","context":"investment"}`

	first := harness.Analyze(body)
	second := harness.Analyze(body)

	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("statuses = %d, %d", first.Code, second.Code)
	}
	if first.Body.String() != second.Body.String() {
		t.Errorf("cached response differs:\n%s\n%s", first.Body.String(), second.Body.String())
	}
	for _, p := range models.Producers {
		if calls := harness.MockServer().Calls(p); calls != 1 {
			t.Errorf("%s calls = %d, want 1", p, calls)
		}
	}
}

func TestAnalysisWorkflow_TradingTimeframeReachesProducers(t *testing.T) {
	harness := setup(t)

	resp := harness.Analyze(`{"ticker":"MSFT","context":"trading","trading_timeframe":"1D"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	for _, r := range harness.MockServer().GetRequestLog() {
		if r.Body.Timeframe != "1D" || r.Body.Context != "trading" {
			t.Errorf("%s got body %+v", r.Producer, r.Body)
		}
	}

	result := decodeResponse(t, resp.Body.Bytes())
	found := false
	for _, l := range result.FullReport.Limitations {
		if strings.Contains(l, "1D") {
			found = true
		}
	}
	if !found {
		t.Errorf("limitations should mention the short horizon: %v", result.FullReport.Limitations)
	}
}

func TestAnalysisWorkflow_OneProducerDown(t *testing.T) {
	harness := setup(t)
	harness.MockServer().SetFault(models.ProducerTechnical, mocks.ProducerFault{
		Status: http.StatusServiceUnavailable, Code: "UNAVAILABLE", Message: "maintenance",
	})

	resp := harness.Analyze(`{"ticker":"AAPL","context":"investment"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	result := decodeResponse(t, resp.Body.Bytes())
	if result.FullReport.Technical.Score != models.NeutralScore {
		t.Errorf("technical score = %d, want %d", result.FullReport.Technical.Score, models.NeutralScore)
	}
	if len(result.FullReport.Limitations) == 0 {
		t.Error("expected a limitation for the missing producer")
	}

	maxAttempts := harness.Config().Producers.MaxAttempts
	if calls := harness.MockServer().Calls(models.ProducerTechnical); calls != maxAttempts {
		t.Errorf("technical calls = %d, want %d attempts", calls, maxAttempts)
	}

	// A degraded synthesis is not cached: once the producer recovers the
	// next request gets full coverage.
	harness.MockServer().ClearFault(models.ProducerTechnical)
	resp = harness.Analyze(`{"ticker":"AAPL","context":"investment"}`)
	result = decodeResponse(t, resp.Body.Bytes())
	if result.FullReport.Technical.Score != 74 {
		t.Errorf("technical score after recovery = %d, want 74", result.FullReport.Technical.Score)
	}
}

func TestAnalysisWorkflow_TwoProducersDown(t *testing.T) {
	harness := setup(t)
	harness.MockServer().SetFault(models.ProducerTechnical, mocks.ProducerFault{Status: http.StatusBadGateway})
	harness.MockServer().SetFault(models.ProducerSentimentEco, mocks.ProducerFault{Status: http.StatusInternalServerError})

	resp := harness.Analyze(`{"ticker":"AAPL","context":"investment"}`)

	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d: %s", resp.Code, resp.Body.String())
	}
	if detail := decodeError(t, resp.Body.Bytes()); detail.Code != models.CodeInsufficientResults {
		t.Errorf("code = %s, want INSUFFICIENT_RESULTS", detail.Code)
	}
}

func TestAnalysisWorkflow_DegradedDisabled(t *testing.T) {
	harness := setup(t, func(c *config.Config) { c.Synthesis.AllowDegraded = false })
	harness.MockServer().SetFault(models.ProducerSentimentEco, mocks.ProducerFault{Status: http.StatusInternalServerError})

	resp := harness.Analyze(`{"ticker":"AAPL","context":"investment"}`)

	if resp.Code != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", resp.Code)
	}
}

func TestAnalysisWorkflow_RejectedCredentialIsReloaded(t *testing.T) {
	harness := setup(t)
	harness.MockServer().SetFault(models.ProducerFundamental, mocks.ProducerFault{
		Status: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: "bad key",
	})

	resp := harness.Analyze(`{"ticker":"AAPL","context":"investment"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected degraded 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if calls := harness.MockServer().Calls(models.ProducerFundamental); calls != 1 {
		t.Errorf("an unauthorized call must not be retried, got %d calls", calls)
	}

	readsBefore := harness.Store().Reads()
	harness.Analyze(`{"ticker":"AAPL","context":"investment"}`)
	if harness.Store().Reads() != readsBefore+1 {
		t.Error("a rejected credential should be dropped and re-read from the store")
	}
}

func TestAnalysisWorkflow_CredentialErrors(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		seed   func(h *e2e.TestHarness)
		code   models.ErrorCode
		status int
	}{
		{
			name:   "unknown user",
			userID: "nobody",
			code:   models.CodeMissingCredential,
			status: http.StatusBadRequest,
		},
		{
			name:   "malformed stored credential",
			userID: "user-bad-format",
			seed: func(h *e2e.TestHarness) {
				h.SealCredential("user-bad-format", "not-a-key")
			},
			code:   models.CodeInvalidCredential,
			status: http.StatusUnauthorized,
		},
		{
			name:   "tampered blob",
			userID: "user-tampered",
			seed: func(h *e2e.TestHarness) {
				h.Store().Set("user-tampered", []byte(strings.Repeat("x", 64)))
			},
			code:   models.CodeInvalidCredential,
			status: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			harness := setup(t)
			if tt.seed != nil {
				tt.seed(harness)
			}

			resp := harness.DoRequest(http.MethodPost, "/api/analyze", `{"ticker":"AAPL","context":"investment"}`, tt.userID)

			if resp.Code != tt.status {
				t.Errorf("status = %d, want %d", resp.Code, tt.status)
			}
			if detail := decodeError(t, resp.Body.Bytes()); detail.Code != tt.code {
				t.Errorf("code = %s, want %s", detail.Code, tt.code)
			}
			if n := len(harness.MockServer().GetRequestLog()); n != 0 {
				t.Errorf("producers received %d calls, want 0", n)
			}
		})
	}
}

func TestAnalysisWorkflow_SlowProducerTimesOut(t *testing.T) {
	harness := setup(t, func(c *config.Config) {
		c.Producers.SentimentEco.TimeoutSeconds = 1
		c.Producers.MaxAttempts = 1
	})
	harness.MockServer().SetDelay(models.ProducerSentimentEco, 3*time.Second)

	resp := harness.Analyze(`{"ticker":"AAPL","context":"investment"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected degraded 200, got %d: %s", resp.Code, resp.Body.String())
	}
	result := decodeResponse(t, resp.Body.Bytes())
	if result.FullReport.SentimentEco.Score != models.NeutralScore {
		t.Errorf("sentiment score = %d, want neutral", result.FullReport.SentimentEco.Score)
	}
}

func TestHealth(t *testing.T) {
	harness := setup(t)

	resp := harness.DoRequest(http.MethodGet, "/api/health", "", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode health: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
}
