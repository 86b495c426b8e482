package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/cyberpulse/pkg/credentials"
	"github.com/user/cyberpulse/pkg/engine"
	"github.com/user/cyberpulse/pkg/meter"
	"github.com/user/cyberpulse/pkg/metrics"
	"github.com/user/cyberpulse/pkg/runner"
)

// meteredAPI fakes the usage endpoint and records the keys it saw
type meteredAPI struct {
	status int
	body   string

	mu   sync.Mutex
	keys []string
}

func (m *meteredAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.keys = append(m.keys, r.Header.Get("x-api-key")+"|"+r.Header.Get("Authorization"))
	m.mu.Unlock()
	if m.status != 0 {
		w.WriteHeader(m.status)
	}
	_, _ = io.WriteString(w, m.body)
}

func newTestServer(t *testing.T, api *meteredAPI, fallback credentials.Credential) (*Server, *metrics.Collector) {
	t.Helper()
	upstream := httptest.NewServer(api)
	t.Cleanup(upstream.Close)

	col := metrics.NewCollector(nil)
	s := New(Options{
		Upstream: func(cred credentials.Credential) runner.Upstream {
			return meter.New(upstream.URL, cred)
		},
		Credential: fallback,
		Metrics:    col,
	})
	return s, col
}

func post(t *testing.T, h http.Handler, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", bytes.NewReader(data))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

var mfaRequest = EvaluateRequest{Items: []engine.Item{{
	"control_text":  "Password policy requires MFA and 12+ characters, enforced and documented",
	"evidence_urls": []any{"https://portal.example.com/dashboard.png", "https://portal.example.com/report.pdf"},
	"frameworks":    []any{"ISO 27001", "PCI DSS"},
}}}

func TestEvaluate(t *testing.T) {
	api := &meteredAPI{}
	s, _ := newTestServer(t, api, credentials.Static(credentials.HeaderAPIKey, "server-key"))

	rec := post(t, s.Handler(), mfaRequest, map[string]string{"Authorization": "Bearer caller"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var rep runner.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, runner.SourceDefault, rep.CrosswalkSource)
	require.Len(t, rep.Outputs, 1)
	assert.Equal(t, 71, rep.Outputs[0].Result.Score)
	assert.Equal(t, engine.StatusPartial, rep.Outputs[0].Result.Status)

	// the caller's header is forwarded instead of the server key
	assert.Equal(t, []string{"|Bearer caller"}, api.keys)
}

func TestEvaluateFallsBackToServerCredential(t *testing.T) {
	api := &meteredAPI{}
	s, _ := newTestServer(t, api, credentials.Static(credentials.HeaderAPIKey, "server-key"))

	rec := post(t, s.Handler(), mfaRequest, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"server-key|"}, api.keys)
}

func TestEvaluateWithoutCredential(t *testing.T) {
	api := &meteredAPI{}
	s, _ := newTestServer(t, api, credentials.Credential{})

	rec := post(t, s.Handler(), mfaRequest, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, api.keys)
}

func TestEvaluateUpstreamErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		wantStatus int
		wantError  string
	}{
		{"rate limited", http.StatusTooManyRequests, http.StatusTooManyRequests, "Too many requests – rate limited"},
		{"plan issue", http.StatusPaymentRequired, http.StatusPaymentRequired, "Payment required / plan issue"},
		{"upstream broken", http.StatusInternalServerError, http.StatusBadGateway, "status 500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &meteredAPI{status: tt.status, body: "upstream says no"}
			s, _ := newTestServer(t, api, credentials.Static(credentials.HeaderAPIKey, "k"))

			rec := post(t, s.Handler(), mfaRequest, nil)
			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Contains(t, resp.Error, tt.wantError)
			assert.Empty(t, resp.Outputs)
		})
	}
}

func TestEvaluateItemFailure(t *testing.T) {
	api := &meteredAPI{}
	s, _ := newTestServer(t, api, credentials.Static(credentials.HeaderAPIKey, "k"))

	req := EvaluateRequest{Items: append(append([]engine.Item{}, mfaRequest.Items...), engine.Item{"frameworks": "GDPR"})}
	rec := post(t, s.Handler(), req, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.ItemIndex)
	assert.Equal(t, 1, *resp.ItemIndex)
	assert.Len(t, resp.Outputs, 1)

	req.ContinueOnFail = true
	rec = post(t, s.Handler(), req, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rep runner.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	require.Len(t, rep.Outputs, 2)
	assert.Contains(t, rep.Outputs[1].Error, "frameworks")
}

func TestEvaluateBadBody(t *testing.T) {
	s, _ := newTestServer(t, &meteredAPI{}, credentials.Static(credentials.HeaderAPIKey, "k"))

	req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/evaluate", nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCrosswalkEndpointFollowsSwap(t *testing.T) {
	s, _ := newTestServer(t, &meteredAPI{}, credentials.Static(credentials.HeaderAPIKey, "k"))

	get := func() crosswalkResponse {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/crosswalk", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var resp crosswalkResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp
	}

	resp := get()
	assert.Equal(t, runner.SourceDefault, resp.Source)
	assert.Len(t, resp.Frameworks, len(engine.SupportedFrameworks))

	s.SetCrosswalk(engine.Crosswalk{engine.CategoryMFA: {"Internal": {{Framework: "Internal", Clause: "SEC-1"}}}}, "file:/tmp/cw.yaml")
	resp = get()
	assert.Equal(t, "file:/tmp/cw.yaml", resp.Source)
	assert.Equal(t, []engine.Framework{"Internal"}, resp.Frameworks)

	rec := post(t, s.Handler(), mfaRequest, nil)
	var rep runner.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, "file:/tmp/cw.yaml", rep.CrosswalkSource)
	assert.Empty(t, rep.Outputs[0].Result.MappedRequirements)
}

func TestHealthAndMetrics(t *testing.T) {
	s, _ := newTestServer(t, &meteredAPI{}, credentials.Static(credentials.HeaderAPIKey, "k"))
	post(t, s.Handler(), mfaRequest, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","crosswalk_source":"default"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `cyberpulse_evaluations_total{status="Partial"} 1`)
	assert.Contains(t, rec.Body.String(), `cyberpulse_upstream_calls_total{op="gate",outcome="success"} 1`)
}
